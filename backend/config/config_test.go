// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != "redis" || cfg.RedisURL != "localhost:6379" {
		t.Errorf("unexpected store defaults: %+v", cfg.StoreConfig)
	}
	if cfg.Addr() != ":8081" {
		t.Errorf("unexpected listen address %q", cfg.Addr())
	}
	if cfg.JWTIssuer != "efchat" || cfg.MinPassphrase != 1 || cfg.PurgeInterval != 10*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("GHOSTNET_STORE", "sqlite3")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("ALLOWED_ORIGINS", "https://efchat.net,http://localhost:3000")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.Store != "sqlite3" || cfg.DatabaseURL != ":memory:" {
		t.Errorf("environment not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:3000" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}

	// Flags win over the environment.
	cfg, err = Load([]string{"--port", "9100"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected flag to override env, got %q", cfg.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GHOSTNET_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GHOSTNET_TEST_DOTENV") })

	LoadDotEnv(path)
	if got := os.Getenv("GHOSTNET_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}

	// Missing files are ignored.
	LoadDotEnv(filepath.Join(dir, "missing.env"))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreConfig:   StoreConfig{Store: "memory", Owner: "ghostnet"},
			Port:          "8081",
			JWTSecret:     "secret",
			MinPassphrase: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"noauth without secret", func(c *Config) { c.JWTSecret = ""; c.NoAuth = true }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"bad port", func(c *Config) { c.Port = "http" }, false},
		{"port out of range", func(c *Config) { c.Port = "70000" }, false},
		{"postgres without url", func(c *Config) { c.Store = "postgres" }, false},
		{"sqlite with url", func(c *Config) { c.Store = "sqlite3"; c.DatabaseURL = "ghostnet.db" }, true},
		{"redis without url", func(c *Config) { c.Store = "redis" }, false},
		{"unknown store", func(c *Config) { c.Store = "bolt" }, false},
		{"empty owner", func(c *Config) { c.Owner = " " }, false},
		{"zero passphrase floor", func(c *Config) { c.MinPassphrase = 0 }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
		{"negative purge interval", func(c *Config) { c.PurgeInterval = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHelpRequest(t *testing.T) {
	_, err := Load([]string{"--help"})
	if !IsHelp(err) {
		t.Fatalf("expected help error, got %v", err)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	for _, sc := range []StoreConfig{
		{Store: "memory", Owner: "o"},
		{Store: "sqlite3", DatabaseURL: ":memory:", Owner: "o"},
		{Store: "redis", RedisURL: mr.Addr(), Owner: "o"},
		{Store: "redis", RedisURL: "redis://" + mr.Addr() + "/0", Owner: "o"},
	} {
		t.Run(sc.Store, func(t *testing.T) {
			b, err := sc.OpenStore(ctx)
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer b.Close()

			if err := b.Ping(ctx); err != nil {
				t.Errorf("Ping: %v", err)
			}
			if _, err := b.PurgeExpired(ctx); err != nil {
				t.Errorf("PurgeExpired: %v", err)
			}
		})
	}

	bad := StoreConfig{Store: "redis", RedisURL: "127.0.0.1:1", Owner: "o"}
	if _, err := bad.OpenStore(ctx); err == nil {
		t.Error("expected connection failure")
	}
}
