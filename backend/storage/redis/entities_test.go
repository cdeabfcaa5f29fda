// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/efchatnet/ghostnet/backend/storage"
)

func setupTestStore(t *testing.T) (*EntityStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewEntityStore(rdb, "0xowner"), mr
}

func roomAttrs(roomID, kind string) []storage.Attribute {
	return []storage.Attribute{
		{Key: "type", Value: "ghostnet"},
		{Key: "kind", Value: kind},
		{Key: "roomId", Value: roomID},
	}
}

func TestCreateAndQuery(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t)

	rcpt, err := s.Create(ctx, []byte(`{"name":"team-chat"}`), roomAttrs("r1", "room"), "application/json", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rcpt.EntityKey == "" || rcpt.Confirmation == "" {
		t.Fatalf("incomplete receipt: %+v", rcpt)
	}
	if !mr.Exists(entityPrefix + rcpt.EntityKey) {
		t.Fatal("entity key not written")
	}
	if ttl := mr.TTL(entityPrefix + rcpt.EntityKey); ttl != time.Hour {
		t.Errorf("expected entity ttl 1h, got %s", ttl)
	}

	s.Create(ctx, []byte(`{}`), roomAttrs("r2", "room"), "application/json", time.Hour)
	s.Create(ctx, []byte(`{}`), roomAttrs("r1", "msg"), "application/json", time.Hour)

	got, err := s.Query(ctx, storage.Query{Where: roomAttrs("r1", "room"), WithPayload: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(got))
	}
	if got[0].Key != rcpt.EntityKey || got[0].Owner != "0xowner" || string(got[0].Payload) != `{"name":"team-chat"}` {
		t.Errorf("unexpected entity: %+v", got[0])
	}

	all, _ := s.Query(ctx, storage.Query{Where: []storage.Attribute{{Key: "type", Value: "ghostnet"}}})
	if len(all) != 3 {
		t.Errorf("expected 3 entities, got %d", len(all))
	}
	for _, e := range all {
		if e.Payload != nil {
			t.Error("payload returned without WithPayload")
		}
	}
}

func TestQueryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	base := time.Unix(1_700_000_000, 0)
	for i, p := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		s.Create(ctx, []byte(p), roomAttrs("r1", "msg"), "text/plain", time.Hour)
	}

	got, err := s.Query(ctx, storage.Query{Where: roomAttrs("r1", "msg"), WithPayload: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got[0].Payload) != "first" || string(got[1].Payload) != "second" {
		t.Fatalf("expected first, second; got %+v", got)
	}
}

func TestQueryNewestWithOffset(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	base := time.Unix(1_700_000_000, 0)
	for i, p := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		s.Create(ctx, []byte(p), roomAttrs("r1", "msg"), "text/plain", time.Hour)
	}

	got, err := s.Query(ctx, storage.Query{Where: roomAttrs("r1", "msg"), WithPayload: true, Newest: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got[0].Payload) != "third" || string(got[1].Payload) != "second" {
		t.Fatalf("expected third, second; got %+v", got)
	}

	got, err = s.Query(ctx, storage.Query{Where: roomAttrs("r1", "msg"), WithPayload: true, Newest: true, Offset: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].Payload) != "first" {
		t.Fatalf("expected first; got %+v", got)
	}
}

func TestExpiredEntitiesDropped(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t)

	s.Create(ctx, []byte("short"), roomAttrs("r1", "msg"), "text/plain", time.Minute)
	s.Create(ctx, []byte("long"), roomAttrs("r1", "msg"), "text/plain", time.Hour)

	mr.FastForward(2 * time.Minute)

	got, err := s.Query(ctx, storage.Query{Where: roomAttrs("r1", "msg"), WithPayload: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].Payload) != "long" {
		t.Fatalf("expected only the long-lived entity, got %+v", got)
	}

	members, _ := mr.Members(indexPrefix + "roomId=r1")
	if len(members) != 1 {
		t.Errorf("expected stale index member removed on read, got %d members", len(members))
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestStore(t)

	s.Create(ctx, []byte("x"), roomAttrs("r9", "room"), "text/plain", time.Minute)
	mr.FastForward(2 * time.Minute)

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 stale index entries, got %d", n)
	}
	if mr.Exists(indexPrefix + "roomId=r9") {
		t.Error("empty index set not deleted")
	}
}

func TestEmptyQueryRejected(t *testing.T) {
	s, _ := setupTestStore(t)
	if _, err := s.Query(context.Background(), storage.Query{}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestStoreUnavailable(t *testing.T) {
	s, mr := setupTestStore(t)
	mr.Close()

	if _, err := s.Create(context.Background(), nil, roomAttrs("r1", "room"), "", time.Hour); err == nil {
		t.Fatal("expected error from closed server")
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from closed server")
	}
}

func TestParseAddr(t *testing.T) {
	opts, err := ParseAddr("localhost:6379")
	if err != nil || opts.Addr != "localhost:6379" {
		t.Errorf("host:port: %+v %v", opts, err)
	}
	opts, err = ParseAddr("redis://:pw@cache:6380/2")
	if err != nil || opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("url: %+v %v", opts, err)
	}
}
