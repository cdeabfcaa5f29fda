// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"

	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/storage/redis"
	"github.com/efchatnet/ghostnet/backend/storage/sqlstore"
)

// Log output goes to stderr so it never mixes with command output.
var (
	backendLog = btclog.NewBackend(os.Stderr)

	convLog  = backendLog.Logger("CONV")
	redisLog = backendLog.Logger("RDST")
	sqlLog   = backendLog.Logger("SQLS")
)

func init() {
	conversation.UseLogger(convLog)
	redis.UseLogger(redisLog)
	sqlstore.UseLogger(sqlLog)
}

// setLogLevels applies one level to every subsystem.
func setLogLevels(logLevel string) error {
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
	}
	for _, logger := range []btclog.Logger{convLog, redisLog, sqlLog} {
		logger.SetLevel(level)
	}
	return nil
}
