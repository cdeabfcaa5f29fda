// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package integration

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/handlers"
	"github.com/efchatnet/ghostnet/backend/middleware"
	"github.com/efchatnet/ghostnet/backend/storage"
)

// Gateway exposes rooms and sealed messages over HTTP so it can be mounted
// into an existing router.
type Gateway struct {
	store          storage.EntityStore
	svc            *conversation.Service
	roomHandler    *handlers.RoomHandler
	messageHandler *handlers.MessageHandler
	jwtSecret      string
	jwtIssuer      string
	noAuth         bool
}

// Config holds configuration for the gateway
type Config struct {
	Store     storage.EntityStore
	JWTSecret string
	JWTIssuer string

	// NoAuth serves write endpoints without a bearer token.
	NoAuth bool

	Options []conversation.Option
}

// New creates a gateway over cfg.Store.
func New(cfg *Config) (*Gateway, error) {
	if cfg.Store == nil {
		return nil, &ValidationError{Message: "entity store is not configured"}
	}

	svc := conversation.New(cfg.Store, cfg.Options...)
	g := &Gateway{
		store:          cfg.Store,
		svc:            svc,
		roomHandler:    handlers.NewRoomHandler(svc),
		messageHandler: handlers.NewMessageHandler(svc),
		jwtSecret:      cfg.JWTSecret,
		jwtIssuer:      cfg.JWTIssuer,
		noAuth:         cfg.NoAuth,
	}
	if err := g.ValidateSetup(); err != nil {
		return nil, err
	}
	return g, nil
}

// RegisterRoutes adds the gateway routes to an existing router. Reads are
// open; writes go through authMiddleware, or the built-in JWT validation
// when it is nil.
func (g *Gateway) RegisterRoutes(router *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	api := router.PathPrefix("/api").Subrouter()

	auth := authMiddleware
	switch {
	case g.noAuth:
		auth = func(next http.Handler) http.Handler { return next }
	case auth == nil:
		auth = middleware.NewAuthMiddleware(g.jwtSecret, g.jwtIssuer)
	}

	// Room endpoints
	api.Handle("/rooms", auth(http.HandlerFunc(g.roomHandler.CreateRoom))).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms", g.roomHandler.ListRooms).Methods("GET", "OPTIONS")
	api.HandleFunc("/rooms/{roomId}", g.roomHandler.GetRoom).Methods("GET", "OPTIONS")

	// Message endpoints
	api.Handle("/rooms/{roomId}/messages", auth(http.HandlerFunc(g.messageHandler.SendMessage))).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms/{roomId}/messages/read", g.messageHandler.ReadMessages).Methods("POST", "OPTIONS")
}

// Health reports whether the store answers.
func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := g.store.(storage.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			log.Warnf("Health check failed: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Store unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Service returns the conversation service behind the routes.
func (g *Gateway) Service() *conversation.Service {
	return g.svc
}

// RunPurger drops expired entities every interval until ctx is done. It
// returns immediately for stores that expire entities on their own.
func (g *Gateway) RunPurger(ctx context.Context, interval time.Duration) {
	p, ok := g.store.(storage.Purger)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.Errorf("Failed to purge expired entities: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("Purged %d expired entities", n)
			}
		}
	}
}

// ValidateSetup checks the gateway is properly configured
func (g *Gateway) ValidateSetup() error {
	if !g.noAuth && g.jwtSecret == "" {
		return &ValidationError{Message: "JWT secret is not configured"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
