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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/efchatnet/ghostnet/backend/seal"
)

// ContentType of every record payload.
const ContentType = "application/json"

type PayloadKind int

const (
	PayloadMalformed PayloadKind = iota
	PayloadRoom
	PayloadSealed
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadRoom:
		return "room"
	case PayloadSealed:
		return "sealed"
	default:
		return "malformed"
	}
}

// Payload is a decoded record payload. Exactly one of Room and Sealed is
// set unless Kind is PayloadMalformed, in which case Err says why.
type Payload struct {
	Kind   PayloadKind
	Room   *RoomMeta
	Sealed *seal.Payload
	Err    error
}

var errUnknownShape = errors.New("payload is neither room metadata nor a sealed message")

func malformed(err error) Payload {
	return Payload{Kind: PayloadMalformed, Err: err}
}

// DecodePayload interprets bytes read from the store. It never panics on
// hostile input; anything it does not recognise comes back malformed.
func DecodePayload(contentType string, data []byte) Payload {
	if contentType != "" && !strings.HasPrefix(contentType, ContentType) {
		return malformed(fmt.Errorf("unexpected content type %q", contentType))
	}
	if len(data) == 0 {
		return malformed(errors.New("empty payload"))
	}

	var probe struct {
		IV        *string `json:"iv"`
		CT        *string `json:"ct"`
		Name      *string `json:"name"`
		CreatedBy *string `json:"createdBy"`
		TTLHours  *int    `json:"ttlHours"`
		CreatedAt *int64  `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return malformed(err)
	}

	switch {
	case probe.IV != nil || probe.CT != nil:
		var p seal.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		return Payload{Kind: PayloadSealed, Sealed: &p}

	case probe.Name != nil && probe.TTLHours != nil && probe.CreatedAt != nil:
		meta := RoomMeta{
			Name:      *probe.Name,
			TTLHours:  *probe.TTLHours,
			CreatedAt: *probe.CreatedAt,
		}
		if probe.CreatedBy != nil {
			meta.CreatedBy = *probe.CreatedBy
		}
		return Payload{Kind: PayloadRoom, Room: &meta}
	}

	return malformed(errUnknownShape)
}

// EncodeRoom returns the record payload for r.
func EncodeRoom(r *Room) ([]byte, error) {
	return json.Marshal(r.Meta())
}

// EncodeSealed returns the record payload for p.
func EncodeSealed(p *seal.Payload) ([]byte, error) {
	return json.Marshal(p)
}
