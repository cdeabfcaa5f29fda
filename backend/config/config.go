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

// Package config reads server and client settings from flags, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const (
	defaultStore         = "redis"
	defaultRedisURL      = "localhost:6379"
	defaultPort          = "8081"
	defaultJWTIssuer     = "efchat"
	defaultPurgeInterval = 10 * time.Minute
)

// StoreConfig selects and addresses the entity store. Both the server and
// the command line client embed it.
type StoreConfig struct {
	Store       string `long:"store" env:"GHOSTNET_STORE" default:"redis" choice:"redis" choice:"postgres" choice:"pgx" choice:"sqlite3" choice:"memory" description:"Entity store backend"`
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Connection string for the postgres, pgx and sqlite3 stores"`
	RedisURL    string `long:"redis-url" env:"REDIS_URL" default:"localhost:6379" description:"host:port or redis:// URL of the redis store"`
	Owner       string `long:"owner" env:"GHOSTNET_OWNER" default:"ghostnet" description:"Writer identity recorded on every entity"`
}

// Validate checks the store settings are usable together.
func (c *StoreConfig) Validate() error {
	switch c.Store {
	case "postgres", "pgx", "sqlite3":
		if c.DatabaseURL == "" {
			return fmt.Errorf("--database-url (DATABASE_URL) is required for the %s store", c.Store)
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("--redis-url (REDIS_URL) is required for the redis store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if strings.TrimSpace(c.Owner) == "" {
		return errors.New("--owner must not be empty")
	}
	return nil
}

// Config contains the server configuration read from the command line and
// the environment.
type Config struct {
	StoreConfig `group:"Store Options"`

	Port           string        `long:"port" env:"PORT" default:"8081" description:"HTTP listen port"`
	JWTSecret      string        `long:"jwt-secret" env:"JWT_SECRET" default-mask:"-" description:"HS256 secret for bearer tokens on write endpoints"`
	JWTIssuer      string        `long:"jwt-issuer" env:"JWT_ISSUER" default:"efchat" description:"Required token issuer"`
	NoAuth         bool          `long:"noauth" description:"Accept writes without a bearer token -- NOTE: development only"`
	AllowedOrigins []string      `long:"allow-origin" env:"ALLOWED_ORIGINS" env-delim:"," description:"Origin allowed to call the API; repeat for more, * for any"`
	DebugLevel     string        `short:"d" long:"debuglevel" env:"GHOSTNET_DEBUGLEVEL" default:"info" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,..."`
	MinPassphrase  int           `long:"min-passphrase" env:"GHOSTNET_MIN_PASSPHRASE" default:"1" description:"Minimum passphrase length in bytes"`
	Workers        int           `long:"workers" env:"GHOSTNET_WORKERS" description:"Concurrent decryptions per read (default GOMAXPROCS)"`
	PurgeInterval  time.Duration `long:"purge-interval" env:"GHOSTNET_PURGE_INTERVAL" default:"10m" description:"How often expired entities are purged from the store; 0 disables"`
}

// Validate returns the first setting that cannot work.
func (c *Config) Validate() error {
	if err := c.StoreConfig.Validate(); err != nil {
		return err
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}

	if !c.NoAuth && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required unless --noauth is set")
	}
	if c.MinPassphrase < 1 {
		return fmt.Errorf("--min-passphrase must be at least 1, got %d", c.MinPassphrase)
	}
	if c.Workers < 0 {
		return fmt.Errorf("--workers must not be negative, got %d", c.Workers)
	}
	if c.PurgeInterval < 0 {
		return fmt.Errorf("--purge-interval must not be negative, got %s", c.PurgeInterval)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// Load parses args on top of the environment and validates the result.
// Help requests come back as a *flags.Error of type flags.ErrHelp.
func Load(args []string) (*Config, error) {
	LoadDotEnv()

	cfg := Config{
		StoreConfig: StoreConfig{
			Store:    defaultStore,
			RedisURL: defaultRedisURL,
		},
		Port:          defaultPort,
		JWTIssuer:     defaultJWTIssuer,
		PurgeInterval: defaultPurgeInterval,
	}

	parser := flags.NewParser(&cfg, flags.HelpFlag)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsHelp reports whether err is a help request from the flag parser.
func IsHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}
