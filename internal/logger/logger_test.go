// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(levels map[Component]Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.TraceLevel)
	base.SetFormatter(&logrus.JSONFormatter{})
	return New(base, levels), &buf
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want Level
	}{
		{"off", LevelOff},
		{"ERROR", LevelError},
		{"warn", LevelWarning},
		{"warning", LevelWarning},
		{" info ", LevelInfo},
		{"debug", LevelDebug},
		{"trace", LevelTrace},
		{"verbose", LevelOff},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.in))
		})
	}
}

func TestLevelIncludes(t *testing.T) {
	assert.True(t, LevelDebug.Includes(LevelInfo))
	assert.True(t, LevelInfo.Includes(LevelInfo))
	assert.False(t, LevelInfo.Includes(LevelDebug))
	assert.False(t, LevelTrace.Includes(LevelOff))
	assert.False(t, LevelOff.Includes(LevelError))
}

func TestLoggerPrint(t *testing.T) {
	t.Run("enabled component", func(t *testing.T) {
		l, buf := newTestLogger(map[Component]Level{ComponentBulk: LevelInfo})
		l.WithFields(logrus.Fields{"ns": "db.coll"}).Print(LevelInfo, ComponentBulk, "executing", logrus.Fields{"batches": 2})

		out := buf.String()
		require.Contains(t, out, `"msg":"executing"`)
		assert.Contains(t, out, `"ns":"db.coll"`)
		assert.Contains(t, out, `"batches":2`)
		assert.Contains(t, out, `"component":"bulk"`)
	})
	t.Run("level too verbose", func(t *testing.T) {
		l, buf := newTestLogger(map[Component]Level{ComponentBulk: LevelInfo})
		l.Print(LevelDebug, ComponentBulk, "batch")
		assert.Empty(t, buf.String())
	})
	t.Run("other component", func(t *testing.T) {
		l, buf := newTestLogger(map[Component]Level{ComponentBulk: LevelTrace})
		l.Print(LevelError, ComponentCommand, "insert failed")
		assert.Empty(t, buf.String())
	})
	t.Run("all", func(t *testing.T) {
		l, buf := newTestLogger(map[Component]Level{ComponentAll: LevelError})
		l.Print(LevelError, ComponentCommand, "insert failed")
		assert.Contains(t, buf.String(), "insert failed")
	})
	t.Run("nil logger", func(t *testing.T) {
		var l *Logger
		assert.NotPanics(t, func() {
			l.WithFields(logrus.Fields{"a": 1}).Print(LevelError, ComponentBulk, "x")
		})
		assert.False(t, Discard().Is(LevelError, ComponentBulk))
	})
}

func TestLoggerDump(t *testing.T) {
	l, buf := newTestLogger(map[Component]Level{ComponentBulk: LevelTrace})
	l.Dump(ComponentBulk, "plan", []int{1, 2})
	assert.Contains(t, buf.String(), "plan")
	assert.Contains(t, buf.String(), "dump")
}

func TestEnvComponentLevels(t *testing.T) {
	t.Setenv("BULKWRITE_LOG_ALL", "info")
	t.Setenv("BULKWRITE_LOG_COMMAND", "debug")

	levels := getEnvComponentLevels()
	assert.Equal(t, LevelInfo, levels[ComponentBulk])
	assert.Equal(t, LevelDebug, levels[ComponentCommand])

	l := New(logrus.New(), map[Component]Level{ComponentBulk: LevelOff})
	assert.False(t, l.Is(LevelInfo, ComponentBulk))
	assert.True(t, l.Is(LevelDebug, ComponentCommand))
}
