// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger routes component-level log messages to a logrus logger.
package logger

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// Logger logs messages for a set of components, each with its own Level. The zero value and a
// nil *Logger discard everything.
type Logger struct {
	componentLevels map[Component]Level
	entry           *logrus.Entry
}

// New constructs a Logger writing to base. If base is nil the logrus standard logger is used.
//
// The "componentLevels" parameter is variadic with the latest value taking precedence. Levels
// from the environment are applied first, so explicit levels override them.
func New(base *logrus.Logger, componentLevels ...map[Component]Level) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}

	levels := append([]map[Component]Level{getEnvComponentLevels()}, componentLevels...)
	return &Logger{
		componentLevels: mergeComponentLevels(levels...),
		entry:           logrus.NewEntry(base),
	}
}

// Discard returns a Logger that logs nothing.
func Discard() *Logger { return &Logger{} }

// Is returns true if the given Level is enabled for the given Component.
func (l *Logger) Is(level Level, component Component) bool {
	if l == nil || l.entry == nil {
		return false
	}
	return l.componentLevels[component].Includes(level)
}

// WithFields returns a Logger that adds fields to every message.
func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	if l == nil || l.entry == nil {
		return l
	}
	return &Logger{componentLevels: l.componentLevels, entry: l.entry.WithFields(fields)}
}

// Print logs msg for component at level, with optional fields.
func (l *Logger) Print(level Level, component Component, msg string, fields ...logrus.Fields) {
	if !l.Is(level, component) {
		return
	}

	entry := l.entry.WithField("component", component.String())
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Log(level.logrus(), msg)
}

// Dump logs a deep dump of v at trace level.
func (l *Logger) Dump(component Component, msg string, v interface{}) {
	if !l.Is(LevelTrace, component) {
		return
	}
	l.Print(LevelTrace, component, msg, logrus.Fields{"dump": spew.Sdump(v)})
}
