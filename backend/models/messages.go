// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "time"

// Message is a decrypted room message. Text only ever exists in process
// memory; the store holds the sealed payload.
type Message struct {
	RoomID       string    `json:"room_id"`
	EntityKey    string    `json:"entity_key,omitempty"`
	Nick         string    `json:"nick"` // claimed, not authenticated
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	Confirmation string    `json:"confirmation,omitempty"`
}
