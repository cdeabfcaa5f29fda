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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/efchatnet/ghostnet/backend/config"
	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/integration"
	"github.com/efchatnet/ghostnet/backend/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		return err
	}
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Infof("Using %s store as %s", store.Kind, cfg.Owner)

	opts := []conversation.Option{conversation.WithMinPassphraseLength(cfg.MinPassphrase)}
	if cfg.Workers > 0 {
		opts = append(opts, conversation.WithWorkers(cfg.Workers))
	}

	gateway, err := integration.New(&integration.Config{
		Store:     store,
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		NoAuth:    cfg.NoAuth,
		Options:   opts,
	})
	if err != nil {
		return err
	}
	if cfg.NoAuth {
		log.Warnf("Write endpoints accept requests without a bearer token")
	}

	r := mux.NewRouter()
	r.Use(middleware.NewCORS(cfg.AllowedOrigins))
	gateway.RegisterRoutes(r, nil)

	// Health check (no auth required)
	r.HandleFunc("/health", gateway.Health).Methods("GET")

	go gateway.RunPurger(ctx, cfg.PurgeInterval)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("Ghostnet server starting on port %s", cfg.Port)
		log.Infof("JWT Issuer: %s", cfg.JWTIssuer)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
