// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"testing"

	"github.com/btcsuite/btclog"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		level string
		ok    bool
	}{
		{"info", true},
		{"debug", true},
		{"verbose", false},
		{"CONV=debug,HTTP=warn", true},
		{"CONV=debug,NOPE=warn", false},
		{"CONV=loud", false},
		{"CONV,HTTP=warn", false},
	}

	for _, tt := range tests {
		err := parseAndSetDebugLevels(tt.level)
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tt.level, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected an error", tt.level)
		}
	}

	if err := parseAndSetDebugLevels("CONV=trace"); err != nil {
		t.Fatal(err)
	}
	if convLog.Level() != btclog.LevelTrace {
		t.Errorf("expected CONV at trace, got %v", convLog.Level())
	}
}
