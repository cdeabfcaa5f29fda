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

package sqlstore

import "strings"

func (s *Store) Migrate() error {
	migrations := []string{
		// Entities table. Times are unix nanoseconds.
		`CREATE TABLE IF NOT EXISTS entities (
			entity_key VARCHAR(64) PRIMARY KEY,
			owner_id VARCHAR(255) NOT NULL DEFAULT '',
			payload BLOB,
			content_type VARCHAR(255) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,

		// Index for expiry filtering and purging
		`CREATE INDEX IF NOT EXISTS idx_entities_expiry
		ON entities(expires_at)`,

		// Public attributes, one row per attribute in write order
		`CREATE TABLE IF NOT EXISTS entity_attributes (
			entity_key VARCHAR(64) NOT NULL,
			position INTEGER NOT NULL,
			attr_key VARCHAR(64) NOT NULL,
			attr_value VARCHAR(255) NOT NULL,
			PRIMARY KEY (entity_key, position),
			FOREIGN KEY (entity_key) REFERENCES entities(entity_key) ON DELETE CASCADE
		)`,

		// Index for attribute equality lookups
		`CREATE INDEX IF NOT EXISTS idx_entity_attributes_lookup
		ON entity_attributes(attr_key, attr_value)`,
	}

	for _, migration := range migrations {
		if s.isPostgres() {
			migration = strings.ReplaceAll(migration, "BLOB", "BYTEA")
		}
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
