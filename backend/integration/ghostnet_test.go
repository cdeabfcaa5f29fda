// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/efchatnet/ghostnet/backend/middleware"
	"github.com/efchatnet/ghostnet/backend/models"
	"github.com/efchatnet/ghostnet/backend/storage/memory"
)

const testSecret = "integration-secret"

func newTestRouter(t *testing.T, store *memory.Store) *mux.Router {
	t.Helper()
	g, err := New(&Config{Store: store, JWTSecret: testSecret, JWTIssuer: "efchat"})
	if err != nil {
		t.Fatal(err)
	}
	r := mux.NewRouter()
	r.Use(middleware.NewCORS([]string{"https://efchat.net"}))
	g.RegisterRoutes(r, nil)
	r.HandleFunc("/health", g.Health).Methods("GET")
	return r
}

func do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestGatewayRoundTrip(t *testing.T) {
	r := newTestRouter(t, memory.NewStore("0xgw"))
	token, err := middleware.IssueToken(testSecret, "efchat", "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	// Writes need a token.
	rr := do(r, "POST", "/api/rooms", "", map[string]interface{}{"name": "team-chat", "ttl_hours": 1, "nick": "alice"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = do(r, "POST", "/api/rooms", token, map[string]interface{}{"name": "team-chat", "ttl_hours": 1, "nick": "alice"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create room: %d %s", rr.Code, rr.Body.String())
	}
	var room models.Room
	json.NewDecoder(rr.Body).Decode(&room)

	rr = do(r, "GET", "/api/rooms/"+room.RoomID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get room: %d", rr.Code)
	}

	rr = do(r, "GET", "/api/rooms", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list rooms: %d", rr.Code)
	}

	rr = do(r, "POST", "/api/rooms/"+room.RoomID+"/messages", token, map[string]string{
		"nick": "alice", "text": "hello", "passphrase": "s3cret",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(r, "POST", "/api/rooms/"+room.RoomID+"/messages/read", "", map[string]string{"passphrase": "s3cret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("read: %d", rr.Code)
	}
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "hello" {
		t.Errorf("unexpected messages %+v", resp.Messages)
	}

	rr = do(r, "GET", "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("health: %d", rr.Code)
	}
}

func TestGatewayPreflight(t *testing.T) {
	r := newTestRouter(t, memory.NewStore(""))

	req := httptest.NewRequest("OPTIONS", "/api/rooms", nil)
	req.Header.Set("Origin", "https://efchat.net")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://efchat.net" {
		t.Error("missing allow-origin header")
	}
}

func TestNoAuthGateway(t *testing.T) {
	g, err := New(&Config{Store: memory.NewStore(""), NoAuth: true})
	if err != nil {
		t.Fatal(err)
	}
	r := mux.NewRouter()
	g.RegisterRoutes(r, nil)

	rr := do(r, "POST", "/api/rooms", "", map[string]interface{}{"name": "dev", "ttl_hours": 1, "nick": "alice"})
	if rr.Code != http.StatusCreated {
		t.Errorf("expected open writes with NoAuth, got %d", rr.Code)
	}
}

func TestNewValidation(t *testing.T) {
	var verr *ValidationError

	if _, err := New(&Config{}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing store, got %v", err)
	}
	if _, err := New(&Config{Store: memory.NewStore("")}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing secret, got %v", err)
	}
}

type recordingStore struct {
	*memory.Store
	purged chan int64
}

func (s *recordingStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.PurgeExpired(ctx)
	select {
	case s.purged <- n:
	default:
	}
	return n, err
}

func TestRunPurger(t *testing.T) {
	mem := memory.NewStore("")
	now := time.Now()
	mem.SetClock(func() time.Time { return now })
	store := &recordingStore{Store: mem, purged: make(chan int64, 1)}

	g, err := New(&Config{Store: store, NoAuth: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Service().CreateRoom(context.Background(), "short", 1, "alice"); err != nil {
		t.Fatal(err)
	}
	mem.SetClock(func() time.Time { return now.Add(2 * time.Hour) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.RunPurger(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case n := <-store.purged:
		if n != 1 {
			t.Errorf("expected 1 purged entity, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("purger never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop")
	}
}
