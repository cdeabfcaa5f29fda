// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/efchatnet/ghostnet/backend/storage"
)

const (
	// Index sets outlive every entity they point at; stale members are
	// dropped lazily on read and by PurgeExpired.
	IndexTTL = 720 * time.Hour

	// Redis key prefixes
	entityPrefix = "entity:" // entity:{key} - JSON encoded entity, expires with the entity
	indexPrefix  = "idx:"    // idx:{attrKey}={attrValue} - set of entity keys
)

// ErrEmptyQuery is returned for a query without any attribute predicate.
// The binding never scans the whole keyspace.
var ErrEmptyQuery = errors.New("query needs at least one attribute")

type EntityStore struct {
	rdb   *redis.Client
	owner string
	now   func() time.Time
}

// NewEntityStore returns a store writing entities owned by owner.
func NewEntityStore(rdb *redis.Client, owner string) *EntityStore {
	return &EntityStore{
		rdb:   rdb,
		owner: owner,
		now:   time.Now,
	}
}

func indexKey(a storage.Attribute) string {
	return indexPrefix + a.Key + "=" + a.Value
}

// Create stores the entity and its attribute index entries in one
// MULTI/EXEC transaction.
func (s *EntityStore) Create(ctx context.Context, payload []byte, attrs []storage.Attribute, contentType string, ttl time.Duration) (*storage.Receipt, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid ttl %s", ttl)
	}

	now := s.now()
	e := storage.Entity{
		Key:         uuid.New().String(),
		Owner:       s.owner,
		Payload:     payload,
		ContentType: contentType,
		Attributes:  attrs,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	indexTTL := IndexTTL
	if ttl > indexTTL {
		indexTTL = ttl
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entityPrefix+e.Key, data, ttl)
		for _, a := range attrs {
			pipe.SAdd(ctx, indexKey(a), e.Key)
			pipe.Expire(ctx, indexKey(a), indexTTL)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store entity: %w", err)
	}

	log.Debugf("Stored entity %s (%d attributes, ttl %s)", e.Key, len(attrs), ttl)

	return &storage.Receipt{
		EntityKey:    e.Key,
		Confirmation: "redis-tx:" + uuid.New().String(),
	}, nil
}

// Query intersects the index sets of every predicate and loads the
// surviving entities.
func (s *EntityStore) Query(ctx context.Context, q storage.Query) ([]storage.Entity, error) {
	if len(q.Where) == 0 {
		return nil, ErrEmptyQuery
	}

	indexKeys := make([]string, 0, len(q.Where))
	for _, a := range q.Where {
		indexKeys = append(indexKeys, indexKey(a))
	}

	keys, err := s.rdb.SInter(ctx, indexKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to intersect indexes: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	entityKeys := make([]string, len(keys))
	for i, k := range keys {
		entityKeys[i] = entityPrefix + k
	}

	values, err := s.rdb.MGet(ctx, entityKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	var entities []storage.Entity
	var stale []interface{}
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			// Entity expired, index entry is stale
			stale = append(stale, keys[i])
			continue
		}

		var e storage.Entity
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			log.Warnf("Skipping malformed entity %s: %v", keys[i], err)
			continue
		}
		if !q.Matches(e.Attributes) {
			continue
		}
		if !q.WithPayload {
			e.Payload = nil
		}
		entities = append(entities, e)
	}

	if len(stale) > 0 {
		for _, ik := range indexKeys {
			s.rdb.SRem(ctx, ik, stale...)
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if q.Newest {
			a, b = b, a
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.Key < b.Key
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(entities) {
			return nil, nil
		}
		entities = entities[q.Offset:]
	}
	if q.Limit > 0 && len(entities) > q.Limit {
		entities = entities[:q.Limit]
	}

	return entities, nil
}

// PurgeExpired removes index members whose entity has expired and deletes
// emptied index sets. It should be run periodically as a background job.
func (s *EntityStore) PurgeExpired(ctx context.Context) (int64, error) {
	var removed int64
	iter := s.rdb.Scan(ctx, 0, indexPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		setKey := iter.Val()

		members, err := s.rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			continue
		}

		for _, m := range members {
			if s.rdb.Exists(ctx, entityPrefix+m).Val() == 0 {
				if n, err := s.rdb.SRem(ctx, setKey, m).Result(); err == nil {
					removed += n
				}
			}
		}

		if s.rdb.SCard(ctx, setKey).Val() == 0 {
			s.rdb.Del(ctx, setKey)
		}
	}

	if err := iter.Err(); err != nil {
		return removed, err
	}
	if removed > 0 {
		log.Debugf("Purged %d stale index entries", removed)
	}
	return removed, nil
}

func (s *EntityStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// ParseAddr accepts either host:port or a redis:// URL.
func ParseAddr(addr string) (*redis.Options, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}
