// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is the severity a message is logged at. Levels are ordered: a component configured at
// one level logs every message at that level or below.
type Level int

const (
	// LevelOff supresses logging.
	LevelOff Level = iota

	// LevelError logs transport failures and aborted operations.
	LevelError

	// LevelWarning logs write errors and write concern errors.
	LevelWarning

	// LevelInfo logs the start and outcome of each bulk operation.
	LevelInfo

	// LevelDebug logs every batch as it is dispatched and folded.
	LevelDebug

	// LevelTrace dumps batch plans.
	LevelTrace
)

// LevelLiteral is the string form of a Level, as read from the environment or a config file.
type LevelLiteral string

const (
	OffLevelLiteral     LevelLiteral = "off"
	ErrorLevelLiteral   LevelLiteral = "error"
	WarnLevelLiteral    LevelLiteral = "warn"
	WarningLevelLiteral LevelLiteral = "warning"
	InfoLevelLiteral    LevelLiteral = "info"
	DebugLevelLiteral   LevelLiteral = "debug"
	TraceLevelLiteral   LevelLiteral = "trace"
)

// Level returns the Level associated with the literal, or LevelOff if the literal is unknown.
func (ll LevelLiteral) Level() Level {
	switch ll {
	case ErrorLevelLiteral:
		return LevelError
	case WarnLevelLiteral, WarningLevelLiteral:
		return LevelWarning
	case InfoLevelLiteral:
		return LevelInfo
	case DebugLevelLiteral:
		return LevelDebug
	case TraceLevelLiteral:
		return LevelTrace
	default:
		return LevelOff
	}
}

// ParseLevel parses a case-insensitive level name. Unknown names parse as LevelOff.
func ParseLevel(level string) Level {
	return LevelLiteral(strings.ToLower(strings.TrimSpace(level))).Level()
}

// Includes returns true if messages at level l2 are logged by a component set to l.
func (l Level) Includes(l2 Level) bool {
	return l2 != LevelOff && l >= l2
}

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	}
	return "off"
}
