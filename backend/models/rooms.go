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

package models

import (
	"time"
)

// Room is public metadata. Knowing a room exists is not protected.
type Room struct {
	RoomID       string    `json:"room_id"`
	EntityKey    string    `json:"entity_key,omitempty"`
	Name         string    `json:"name"`
	CreatedBy    string    `json:"created_by"`
	TTLHours     int       `json:"ttl_hours"`
	CreatedAt    time.Time `json:"created_at"`
	Confirmation string    `json:"confirmation,omitempty"`
}

// RoomMeta is the JSON payload of a room record.
type RoomMeta struct {
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	TTLHours  int    `json:"ttlHours"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
}

func (r *Room) Meta() RoomMeta {
	return RoomMeta{
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		TTLHours:  r.TTLHours,
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
}

// TTL is the lifetime the room record was written with.
func (r *Room) TTL() time.Duration {
	return time.Duration(r.TTLHours) * time.Hour
}

// ExpiresAt is when the store drops the room record.
func (r *Room) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.TTL())
}

// RoomFromMeta rebuilds a Room from its record payload.
func RoomFromMeta(roomID, entityKey string, meta RoomMeta) Room {
	return Room{
		RoomID:    roomID,
		EntityKey: entityKey,
		Name:      meta.Name,
		CreatedBy: meta.CreatedBy,
		TTLHours:  meta.TTLHours,
		CreatedAt: time.UnixMilli(meta.CreatedAt),
	}
}
