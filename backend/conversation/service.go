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

// Package conversation creates rooms, sends sealed messages and reads them
// back from a public entity store.
//
// Nothing the store returns is trusted. Message records that fail to
// decode or authenticate under the reader's passphrase are dropped without
// an error, so a wrong passphrase reads exactly like an empty room.
package conversation

import (
	"errors"
	"runtime"
	"time"

	"github.com/efchatnet/ghostnet/backend/storage"
)

var (
	// ErrInvalidInput is returned before any store call for malformed ids,
	// missing secrets and out of range values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable wraps any failure reported by the entity store.
	// Nothing is retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a room does not exist or has expired.
	ErrNotFound = errors.New("room not found")
)

const (
	MinTTLHours = 1
	MaxTTLHours = 720
	MaxTTL      = MaxTTLHours * time.Hour

	DefaultRoomLimit    = 20
	DefaultMessageLimit = 100
	MaxLimit            = 100

	MaxNameLength    = 128
	MaxNickLength    = 64
	MaxMessageLength = 64 * 1024
)

// Service is stateless apart from its injected store. Several services
// with different writer identities can share a process.
type Service struct {
	store         storage.EntityStore
	now           func() time.Time
	minPassphrase int
	workers       int
}

type Option func(*Service)

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMinPassphraseLength rejects passphrases shorter than n bytes.
// Values below 1 are raised to 1.
func WithMinPassphraseLength(n int) Option {
	return func(s *Service) {
		if n < 1 {
			n = 1
		}
		s.minPassphrase = n
	}
}

// WithWorkers bounds how many payloads ReadMessages opens concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func New(store storage.EntityStore, opts ...Option) *Service {
	s := &Service{
		store:         store,
		now:           time.Now,
		minPassphrase: 1,
		workers:       runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
