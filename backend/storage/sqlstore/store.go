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

// Package sqlstore keeps entities in a SQL database. It works with the
// postgres (lib/pq), pgx and sqlite3 drivers.
package sqlstore

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver (pgx)
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/efchatnet/ghostnet/backend/storage"
)

type Store struct {
	db    *sqlx.DB
	owner string
	now   func() time.Time
}

// New opens the database and verifies the connection. Call Migrate before
// first use.
func New(driverName, dataSourceName, owner string) (*Store, error) {
	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Every sqlite :memory: connection is its own database
	if driverName == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	return &Store{
		db:    db,
		owner: owner,
		now:   time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) isPostgres() bool {
	return sqlx.BindType(s.db.DriverName()) == sqlx.DOLLAR
}

type entityRow struct {
	Key         string `db:"entity_key"`
	Owner       string `db:"owner_id"`
	ContentType string `db:"content_type"`
	CreatedAt   int64  `db:"created_at"`
	ExpiresAt   int64  `db:"expires_at"`
	Payload     []byte `db:"payload"`
}

type attributeRow struct {
	EntityKey string `db:"entity_key"`
	Key       string `db:"attr_key"`
	Value     string `db:"attr_value"`
}

func (s *Store) Create(ctx context.Context, payload []byte, attrs []storage.Attribute, contentType string, ttl time.Duration) (*storage.Receipt, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid ttl %s", ttl)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now()
	key := uuid.New().String()

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO entities (entity_key, owner_id, payload, content_type, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		key, s.owner, payload, contentType, now.UnixNano(), now.Add(ttl).UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert entity: %w", err)
	}

	for i, a := range attrs {
		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO entity_attributes (entity_key, position, attr_key, attr_value)
			VALUES (?, ?, ?, ?)`),
			key, i, a.Key, a.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to insert attribute %s: %w", a.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Debugf("Stored entity %s (%d attributes, ttl %s)", key, len(attrs), ttl)

	return &storage.Receipt{EntityKey: key, Confirmation: "sql-tx:" + uuid.New().String()}, nil
}

func (s *Store) Query(ctx context.Context, q storage.Query) ([]storage.Entity, error) {
	var b strings.Builder
	b.WriteString("SELECT entity_key, owner_id, content_type, created_at, expires_at")
	if q.WithPayload {
		b.WriteString(", payload")
	}
	b.WriteString(" FROM entities WHERE expires_at > ?")

	args := []interface{}{s.now().UnixNano()}
	for _, a := range q.Where {
		b.WriteString(" AND entity_key IN (SELECT entity_key FROM entity_attributes WHERE attr_key = ? AND attr_value = ?)")
		args = append(args, a.Key, a.Value)
	}
	if q.Newest {
		b.WriteString(" ORDER BY created_at DESC, entity_key DESC")
	} else {
		b.WriteString(" ORDER BY created_at ASC, entity_key ASC")
	}
	switch {
	case q.Limit > 0:
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	case q.Offset > 0:
		// OFFSET needs a LIMIT on sqlite.
		b.WriteString(" LIMIT ?")
		args = append(args, math.MaxInt32)
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET ?")
		args = append(args, q.Offset)
	}

	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}

	query, inArgs, err := sqlx.In(`
		SELECT entity_key, attr_key, attr_value FROM entity_attributes
		WHERE entity_key IN (?)
		ORDER BY entity_key, position`, keys)
	if err != nil {
		return nil, err
	}

	var attrRows []attributeRow
	if err := s.db.SelectContext(ctx, &attrRows, s.db.Rebind(query), inArgs...); err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}

	byKey := make(map[string][]storage.Attribute, len(rows))
	for _, a := range attrRows {
		byKey[a.EntityKey] = append(byKey[a.EntityKey], storage.Attribute{Key: a.Key, Value: a.Value})
	}

	entities := make([]storage.Entity, 0, len(rows))
	for _, r := range rows {
		entities = append(entities, storage.Entity{
			Key:         r.Key,
			Owner:       r.Owner,
			Payload:     r.Payload,
			ContentType: r.ContentType,
			Attributes:  byKey[r.Key],
			CreatedAt:   time.Unix(0, r.CreatedAt),
			ExpiresAt:   time.Unix(0, r.ExpiresAt),
		})
	}

	return entities, nil
}

// PurgeExpired deletes expired entities and their attributes.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.now().UnixNano()

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM entity_attributes
		WHERE entity_key IN (SELECT entity_key FROM entities WHERE expires_at <= ?)`), now)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM entities WHERE expires_at <= ?`), now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debugf("Purged %d expired entities", n)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
