// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/efchatnet/ghostnet/backend/storage"
	"github.com/efchatnet/ghostnet/backend/storage/memory"
	"github.com/efchatnet/ghostnet/backend/storage/redis"
	"github.com/efchatnet/ghostnet/backend/storage/sqlstore"
)

// Backend is an opened entity store together with whatever connection
// it owns.
type Backend struct {
	storage.EntityStore
	Kind  string
	close func() error
}

// Ping reports store liveness. Stores without a liveness check are always
// up.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.EntityStore.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// PurgeExpired asks the store to drop expired entities when it supports
// that.
func (b *Backend) PurgeExpired(ctx context.Context) (int64, error) {
	if p, ok := b.EntityStore.(storage.Purger); ok {
		return p.PurgeExpired(ctx)
	}
	return 0, nil
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore connects to the configured store. SQL stores are migrated
// before they are returned.
func (c *StoreConfig) OpenStore(ctx context.Context) (*Backend, error) {
	switch c.Store {
	case "memory":
		return &Backend{EntityStore: memory.NewStore(c.Owner), Kind: c.Store}, nil

	case "redis":
		opts, err := redis.ParseAddr(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := goredis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &Backend{
			EntityStore: redis.NewEntityStore(rdb, c.Owner),
			Kind:        c.Store,
			close:       rdb.Close,
		}, nil

	case "postgres", "pgx", "sqlite3":
		store, err := sqlstore.New(c.Store, c.DatabaseURL, c.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &Backend{EntityStore: store, Kind: c.Store, close: store.Close}, nil
	}

	return nil, fmt.Errorf("unknown store %q", c.Store)
}
