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

// Package attributes defines the public tags every GhostNet record carries.
// They let any reader find a room's records without decrypting anything,
// and are never derived from message content.
package attributes

import (
	"strconv"
	"time"

	"github.com/efchatnet/ghostnet/backend/storage"
)

// SystemTag marks records written by GhostNet.
const SystemTag = "ghostnet"

// Record kinds
const (
	KindRoom    = "room"
	KindMessage = "msg"
)

// Attribute keys
const (
	Type   = "type"
	Kind   = "kind"
	RoomID = "roomId"
	Nick   = "nick"
	TS     = "ts"
)

// For builds the fixed attribute set for a record of the given kind.
// ts is encoded as unix milliseconds.
func For(kind, roomID, nick string, ts time.Time) []storage.Attribute {
	return []storage.Attribute{
		{Key: Type, Value: SystemTag},
		{Key: Kind, Value: kind},
		{Key: RoomID, Value: roomID},
		{Key: Nick, Value: nick},
		{Key: TS, Value: strconv.FormatInt(ts.UnixMilli(), 10)},
	}
}

func ForRoom(roomID, nick string, ts time.Time) []storage.Attribute {
	return For(KindRoom, roomID, nick, ts)
}

func ForMessage(roomID, nick string, ts time.Time) []storage.Attribute {
	return For(KindMessage, roomID, nick, ts)
}

// Rooms selects every room record.
func Rooms() []storage.Attribute {
	return []storage.Attribute{
		{Key: Type, Value: SystemTag},
		{Key: Kind, Value: KindRoom},
	}
}

// Room selects the room record for roomID.
func Room(roomID string) []storage.Attribute {
	return append(Rooms(), storage.Attribute{Key: RoomID, Value: roomID})
}

// Messages selects every message record of roomID.
func Messages(roomID string) []storage.Attribute {
	return []storage.Attribute{
		{Key: Type, Value: SystemTag},
		{Key: Kind, Value: KindMessage},
		{Key: RoomID, Value: roomID},
	}
}

// Map flattens attrs. A repeated key keeps its last value.
func Map(attrs []storage.Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

// Timestamp reads the ts attribute. ok is false when it is missing or not
// a number.
func Timestamp(m map[string]string) (ts time.Time, ok bool) {
	v, found := m[TS]
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
