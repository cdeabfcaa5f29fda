// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package attributes

import (
	"testing"
	"time"

	"github.com/efchatnet/ghostnet/backend/storage"
)

func TestForMessage(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)
	got := Map(ForMessage("room-1", "alice", ts))

	want := map[string]string{
		Type:   SystemTag,
		Kind:   KindMessage,
		RoomID: "room-1",
		Nick:   "alice",
		TS:     "1700000000123",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d attributes, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %q want %q", k, got[k], v)
		}
	}
}

func TestQueriesSelectOwnRecords(t *testing.T) {
	ts := time.Now()
	room := ForRoom("room-1", "alice", ts)
	msg := ForMessage("room-1", "bob", ts)
	otherMsg := ForMessage("room-2", "bob", ts)

	tests := []struct {
		name  string
		where []storage.Attribute
		attrs []storage.Attribute
		match bool
	}{
		{"rooms matches room", Rooms(), room, true},
		{"rooms skips message", Rooms(), msg, false},
		{"room matches own id", Room("room-1"), room, true},
		{"room skips other id", Room("room-2"), room, false},
		{"messages matches own room", Messages("room-1"), msg, true},
		{"messages skips other room", Messages("room-1"), otherMsg, false},
		{"messages skips room record", Messages("room-1"), room, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := storage.Query{Where: tt.where}
			if got := q.Matches(tt.attrs); got != tt.match {
				t.Errorf("Matches = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	ts, ok := Timestamp(map[string]string{TS: "1500"})
	if !ok || !ts.Equal(time.UnixMilli(1500)) {
		t.Errorf("got %v %v", ts, ok)
	}
	if _, ok := Timestamp(map[string]string{}); ok {
		t.Error("missing ts accepted")
	}
	if _, ok := Timestamp(map[string]string{TS: "soon"}); ok {
		t.Error("non-numeric ts accepted")
	}
}
