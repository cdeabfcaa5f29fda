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

package storage

import (
	"context"
	"time"
)

// Attribute is a public key/value tag attached to an entity.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is one immutable record in the store. Everything in it is public.
type Entity struct {
	Key         string      `json:"key"`
	Owner       string      `json:"owner"`
	Payload     []byte      `json:"payload,omitempty"`
	ContentType string      `json:"content_type"`
	Attributes  []Attribute `json:"attributes"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Receipt is returned for an accepted write. Confirmation is opaque proof
// of acceptance from the binding.
type Receipt struct {
	EntityKey    string `json:"entity_key"`
	Confirmation string `json:"confirmation"`
}

// Query selects entities whose attributes match every pair in Where.
// Newest reverses the order so Limit and Offset count back from the most
// recent entity. Offset skips that many matches before Limit applies.
type Query struct {
	Where       []Attribute
	WithPayload bool
	Newest      bool
	Offset      int
	Limit       int
}

// Matches reports whether attrs satisfy every equality in q.Where.
func (q Query) Matches(attrs []Attribute) bool {
	for _, want := range q.Where {
		found := false
		for _, a := range attrs {
			if a.Key == want.Key && a.Value == want.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// EntityWriter persists records.
type EntityWriter interface {
	Create(ctx context.Context, payload []byte, attrs []Attribute, contentType string, ttl time.Duration) (*Receipt, error)
}

// EntityReader finds live records by attribute equality. Results are
// ordered by creation time, oldest first unless Query.Newest is set, and
// never include expired entities.
type EntityReader interface {
	Query(ctx context.Context, q Query) ([]Entity, error)
}

type EntityStore interface {
	EntityWriter
	EntityReader
}

// Pinger is implemented by bindings that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Purger is implemented by bindings that need a periodic sweep of expired
// records or index entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
