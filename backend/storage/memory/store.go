// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package memory is a process-local entity store used by tests and by
// development servers started with --store=memory.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efchatnet/ghostnet/backend/storage"
)

// ErrRejected is returned by Create while the store is set to fail writes.
var ErrRejected = errors.New("memory store rejected write")

type Store struct {
	mu       sync.RWMutex
	owner    string
	entities []storage.Entity
	now      func() time.Time
	failing  bool
}

func NewStore(owner string) *Store {
	return &Store{
		owner: owner,
		now:   time.Now,
	}
}

// SetClock replaces the clock used for creation and expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWrites makes every following Create return ErrRejected until called
// again with false.
func (s *Store) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = fail
}

// Put stores e as is. Tests use it to plant records written by others.
func (s *Store) Put(e storage.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, e)
}

func (s *Store) Create(ctx context.Context, payload []byte, attrs []storage.Attribute, contentType string, ttl time.Duration) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return nil, ErrRejected
	}

	now := s.now()
	e := storage.Entity{
		Key:         uuid.New().String(),
		Owner:       s.owner,
		Payload:     append([]byte(nil), payload...),
		ContentType: contentType,
		Attributes:  append([]storage.Attribute(nil), attrs...),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	s.entities = append(s.entities, e)

	return &storage.Receipt{EntityKey: e.Key, Confirmation: "mem:" + uuid.New().String()}, nil
}

func (s *Store) Query(ctx context.Context, q storage.Query) ([]storage.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	skip := q.Offset
	var out []storage.Entity
	for i := range s.entities {
		e := s.entities[i]
		if q.Newest {
			e = s.entities[len(s.entities)-1-i]
		}
		if !e.ExpiresAt.After(now) || !q.Matches(e.Attributes) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if !q.WithPayload {
			e.Payload = nil
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// PurgeExpired drops expired entities and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := s.entities[:0]
	var removed int64
	for _, e := range s.entities {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	s.entities = kept
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
