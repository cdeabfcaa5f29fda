// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError wraps a store failure in ErrStoreUnavailable. A failure
// caused by the caller's own context ending is returned as ctx.Err().
func storeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func validRoomID(roomID string) error {
	if _, err := uuid.Parse(roomID); err != nil {
		return invalid("malformed room id %q", roomID)
	}
	return nil
}

func validNick(nick string) error {
	if strings.TrimSpace(nick) == "" {
		return invalid("nick is required")
	}
	if len(nick) > MaxNickLength {
		return invalid("nick longer than %d bytes", MaxNickLength)
	}
	return nil
}

func (s *Service) validPassphrase(passphrase string) error {
	if passphrase == "" {
		return invalid("passphrase is required")
	}
	if len(passphrase) < s.minPassphrase {
		return invalid("passphrase shorter than %d bytes", s.minPassphrase)
	}
	return nil
}

func validTTLHours(hours int) error {
	if hours < MinTTLHours || hours > MaxTTLHours {
		return invalid("ttl must be %d-%d hours", MinTTLHours, MaxTTLHours)
	}
	return nil
}

func validTTL(ttl time.Duration) error {
	if ttl <= 0 || ttl > MaxTTL {
		return invalid("ttl must be within (0, %s]", MaxTTL)
	}
	return nil
}

// clampLimit applies the default for zero and rejects anything outside
// 1..MaxLimit.
func clampLimit(limit, def int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, invalid("limit must be 1-%d", MaxLimit)
	}
	return limit, nil
}
