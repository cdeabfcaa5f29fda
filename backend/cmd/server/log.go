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
	"sort"
	"strings"

	"github.com/btcsuite/btclog"

	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/handlers"
	"github.com/efchatnet/ghostnet/backend/integration"
	"github.com/efchatnet/ghostnet/backend/middleware"
	"github.com/efchatnet/ghostnet/backend/storage/redis"
	"github.com/efchatnet/ghostnet/backend/storage/sqlstore"
)

// Loggers per subsystem. All of them write through backendLog.
var (
	backendLog = btclog.NewBackend(os.Stdout)

	log      = backendLog.Logger("GNET")
	convLog  = backendLog.Logger("CONV")
	httpLog  = backendLog.Logger("HTTP")
	redisLog = backendLog.Logger("RDST")
	sqlLog   = backendLog.Logger("SQLS")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"GNET": log,
	"CONV": convLog,
	"HTTP": httpLog,
	"RDST": redisLog,
	"SQLS": sqlLog,
}

func init() {
	conversation.UseLogger(convLog)
	handlers.UseLogger(httpLog)
	middleware.UseLogger(httpLog)
	integration.UseLogger(httpLog)
	redis.UseLogger(redisLog)
	sqlstore.UseLogger(sqlLog)
}

// setLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels accepts either a single level for every subsystem
// or a comma separated list of subsystem=level pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		subsysID, logLevel, ok := strings.Cut(logLevelPair, "=")
		if !ok {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%v]", logLevelPair)
		}
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- supported subsystems %v",
				subsysID, supportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
		setLogLevel(subsysID, logLevel)
	}
	return nil
}
