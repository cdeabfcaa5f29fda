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

package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/efchatnet/ghostnet/backend/attributes"
	"github.com/efchatnet/ghostnet/backend/models"
	"github.com/efchatnet/ghostnet/backend/seal"
	"github.com/efchatnet/ghostnet/backend/storage"
)

// roomLookupWindow is how many candidate records GetRoom inspects. Anyone
// can write a record under a known room id, so the first well-formed one
// wins rather than simply the first.
const roomLookupWindow = 10

const (
	// messagePageSize is how many message records ReadMessages fetches per
	// store round trip.
	messagePageSize = MaxLimit

	// messageScanLimit bounds the records one read will try to open.
	messageScanLimit = 50 * MaxLimit
)

var errWrongRecord = errors.New("record does not belong to room")

func roomFromEntity(e storage.Entity) (models.Room, bool) {
	attrs := attributes.Map(e.Attributes)
	if attrs[attributes.Kind] != attributes.KindRoom || attrs[attributes.RoomID] == "" {
		return models.Room{}, false
	}
	p := models.DecodePayload(e.ContentType, e.Payload)
	if p.Kind != models.PayloadRoom {
		log.Debugf("Skipping room record %s: %v", e.Key, p.Err)
		return models.Room{}, false
	}
	return models.RoomFromMeta(attrs[attributes.RoomID], e.Key, *p.Room), true
}

// ListRooms returns live rooms, oldest first. limit 0 means
// DefaultRoomLimit.
func (s *Service) ListRooms(ctx context.Context, limit int) ([]models.Room, error) {
	limit, err := clampLimit(limit, DefaultRoomLimit)
	if err != nil {
		return nil, err
	}

	entities, err := s.store.Query(ctx, storage.Query{
		Where:       attributes.Rooms(),
		WithPayload: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, storeError(ctx, err)
	}

	// Later records reusing a room id are copies; the oldest one is the
	// room, as in GetRoom.
	seen := make(map[string]struct{}, len(entities))
	rooms := make([]models.Room, 0, len(entities))
	for _, e := range entities {
		room, ok := roomFromEntity(e)
		if !ok {
			continue
		}
		if _, dup := seen[room.RoomID]; dup {
			continue
		}
		seen[room.RoomID] = struct{}{}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// GetRoom returns the room's metadata or ErrNotFound.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := validRoomID(roomID); err != nil {
		return nil, err
	}

	entities, err := s.store.Query(ctx, storage.Query{
		Where:       attributes.Room(roomID),
		WithPayload: true,
		Limit:       roomLookupWindow,
	})
	if err != nil {
		return nil, storeError(ctx, err)
	}

	for _, e := range entities {
		if room, ok := roomFromEntity(e); ok && room.RoomID == roomID {
			return &room, nil
		}
	}
	return nil, ErrNotFound
}

// openMessage turns one candidate record into a message, or an error
// saying why it was dropped.
func openMessage(e storage.Entity, roomID string, key seal.Key) (models.Message, error) {
	attrs := attributes.Map(e.Attributes)
	if attrs[attributes.RoomID] != roomID || attrs[attributes.Kind] != attributes.KindMessage {
		return models.Message{}, errWrongRecord
	}

	p := models.DecodePayload(e.ContentType, e.Payload)
	if p.Kind != models.PayloadSealed {
		return models.Message{}, fmt.Errorf("unexpected %s payload: %v", p.Kind, p.Err)
	}

	r := seal.Open(p.Sealed, key)
	if !r.OK() {
		return models.Message{}, r.Err
	}

	ts, ok := attributes.Timestamp(attrs)
	if !ok {
		ts = e.CreatedAt
	}

	return models.Message{
		RoomID:    roomID,
		EntityKey: e.Key,
		Nick:      attrs[attributes.Nick],
		Text:      string(r.Plaintext),
		Timestamp: ts,
	}, nil
}

type opened struct {
	msg models.Message
	err error
}

// openAll opens a page of records concurrently. Results line up with
// entities.
func (s *Service) openAll(ctx context.Context, entities []storage.Entity, roomID string, key seal.Key) ([]opened, error) {
	results := make([]opened, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msg, err := openMessage(e, roomID, key)
			results[i] = opened{msg: msg, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ReadMessages returns the newest limit messages in the room that
// authenticate under passphrase, oldest first. Records are scanned newest
// first a page at a time until limit messages open or messageScanLimit
// records have been tried, so records that do not open never crowd out
// ones that do. A wrong passphrase yields an empty slice and no error.
func (s *Service) ReadMessages(ctx context.Context, roomID, passphrase string, limit int) ([]models.Message, error) {
	if err := validRoomID(roomID); err != nil {
		return nil, err
	}
	if err := s.validPassphrase(passphrase); err != nil {
		return nil, err
	}
	limit, err := clampLimit(limit, DefaultMessageLimit)
	if err != nil {
		return nil, err
	}

	var (
		key      seal.Key
		haveKey  bool
		scanned  int
		messages []models.Message
		seen     = make(map[string]struct{})
	)
	for len(messages) < limit && scanned < messageScanLimit {
		page, err := s.store.Query(ctx, storage.Query{
			Where:       attributes.Messages(roomID),
			WithPayload: true,
			Newest:      true,
			Offset:      scanned,
			Limit:       messagePageSize,
		})
		if err != nil {
			return nil, storeError(ctx, err)
		}
		if len(page) == 0 {
			break
		}
		scanned += len(page)

		if !haveKey {
			key = seal.DeriveKey(passphrase, roomID)
			haveKey = true
		}
		results, err := s.openAll(ctx, page, roomID, key)
		if err != nil {
			return nil, err
		}
		for i, r := range results {
			if r.err != nil {
				continue
			}
			// A write landing between pages shifts the window by one.
			if _, dup := seen[page[i].Key]; dup {
				continue
			}
			seen[page[i].Key] = struct{}{}
			messages = append(messages, r.msg)
		}

		if len(page) < messagePageSize {
			break
		}
	}

	if dropped := scanned - len(messages); dropped > 0 {
		log.Debugf("Dropped %d of %d records in room %s", dropped, scanned, roomID)
	}
	if len(messages) == 0 {
		return []models.Message{}, nil
	}

	// Collected newest first; flip so equal timestamps keep store order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}
