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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/efchatnet/ghostnet/backend/attributes"
	"github.com/efchatnet/ghostnet/backend/models"
	"github.com/efchatnet/ghostnet/backend/seal"
)

// CreateRoom mints a fresh room id and writes the room's public metadata
// with a lifetime of ttlHours.
func (s *Service) CreateRoom(ctx context.Context, name string, ttlHours int, creatorNick string) (*models.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalid("room name is required")
	}
	if len(name) > MaxNameLength {
		return nil, invalid("room name longer than %d bytes", MaxNameLength)
	}
	if err := validNick(creatorNick); err != nil {
		return nil, err
	}
	if err := validTTLHours(ttlHours); err != nil {
		return nil, err
	}

	now := s.now()
	room := &models.Room{
		RoomID:    uuid.New().String(),
		Name:      name,
		CreatedBy: creatorNick,
		TTLHours:  ttlHours,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
	}

	payload, err := models.EncodeRoom(room)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room: %w", err)
	}

	rcpt, err := s.store.Create(ctx, payload, attributes.ForRoom(room.RoomID, creatorNick, now), models.ContentType, room.TTL())
	if err != nil {
		err = storeError(ctx, err)
		if errors.Is(err, ErrStoreUnavailable) {
			log.Errorf("Failed to create room: %v", err)
		}
		return nil, err
	}

	room.EntityKey = rcpt.EntityKey
	room.Confirmation = rcpt.Confirmation

	log.Infof("Created room %s (ttl %dh)", room.RoomID, ttlHours)
	return room, nil
}

// SendMessage seals plaintext under the room key derived from passphrase
// and writes it with the given ttl. The caller picks the ttl; see
// MessageTTL for the room's remaining lifetime.
func (s *Service) SendMessage(ctx context.Context, roomID, nick, plaintext, passphrase string, ttl time.Duration) (*models.Message, error) {
	if err := validRoomID(roomID); err != nil {
		return nil, err
	}
	if err := validNick(nick); err != nil {
		return nil, err
	}
	if err := s.validPassphrase(passphrase); err != nil {
		return nil, err
	}
	if plaintext == "" {
		return nil, invalid("message text is required")
	}
	if len(plaintext) > MaxMessageLength {
		return nil, invalid("message longer than %d bytes", MaxMessageLength)
	}
	if err := validTTL(ttl); err != nil {
		return nil, err
	}

	key := seal.DeriveKey(passphrase, roomID)
	sealed, err := seal.Encrypt([]byte(plaintext), key)
	if err != nil {
		return nil, err
	}

	payload, err := models.EncodeSealed(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	now := s.now()
	rcpt, err := s.store.Create(ctx, payload, attributes.ForMessage(roomID, nick, now), models.ContentType, ttl)
	if err != nil {
		err = storeError(ctx, err)
		if errors.Is(err, ErrStoreUnavailable) {
			log.Errorf("Failed to send message to room %s: %v", roomID, err)
		}
		return nil, err
	}

	log.Debugf("Sent message %s to room %s", rcpt.EntityKey, roomID)

	return &models.Message{
		RoomID:       roomID,
		EntityKey:    rcpt.EntityKey,
		Nick:         nick,
		Text:         plaintext,
		Timestamp:    time.UnixMilli(now.UnixMilli()),
		Confirmation: rcpt.Confirmation,
	}, nil
}

// MessageTTL returns how long room has left to live at now, capped at
// MaxTTL. A message written with it never outlives its room.
func MessageTTL(room *models.Room, now time.Time) (time.Duration, error) {
	remaining := room.ExpiresAt().Sub(now)
	if remaining <= 0 {
		return 0, ErrNotFound
	}
	if remaining > MaxTTL {
		remaining = MaxTTL
	}
	return remaining, nil
}

// SendToRoom looks the room up and sends with the room's remaining
// lifetime as ttl.
func (s *Service) SendToRoom(ctx context.Context, roomID, nick, plaintext, passphrase string) (*models.Message, error) {
	if err := s.validPassphrase(passphrase); err != nil {
		return nil, err
	}

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ttl, err := MessageTTL(room, s.now())
	if err != nil {
		return nil, err
	}

	return s.SendMessage(ctx, roomID, nick, plaintext, passphrase, ttl)
}
