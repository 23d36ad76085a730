// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

func TestMerge(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := Merge(BulkWrite())
		require.NoError(t, err)
		require.NotNil(t, opts.Ordered)
		assert.True(t, *opts.Ordered)
		assert.Nil(t, opts.WriteConcern)
		assert.Nil(t, opts.MaxConcurrency)
	})
	t.Run("later builders win", func(t *testing.T) {
		wc := writeconcern.New(writeconcern.WMajority())
		log := logrus.New()
		opts, err := Merge(
			BulkWrite().SetOrdered(false).SetMaxConcurrency(2),
			nil,
			(&BulkWriteOptionsBuilder{}).SetMaxConcurrency(8).SetWriteConcern(wc).SetComment("c").SetBypassDocumentValidation(true).SetLogger(log),
		)
		require.NoError(t, err)
		assert.False(t, *opts.Ordered)
		assert.Equal(t, 8, *opts.MaxConcurrency)
		assert.Same(t, wc, opts.WriteConcern)
		assert.Equal(t, "c", opts.Comment)
		assert.True(t, *opts.BypassDocumentValidation)
		assert.Same(t, log, opts.Logger)
	})
	t.Run("id generator", func(t *testing.T) {
		opts, err := Merge(BulkWrite().SetIDGenerator(func() interface{} { return 7 }))
		require.NoError(t, err)
		require.NotNil(t, opts.IDGenerator)
		assert.Equal(t, 7, opts.IDGenerator())
	})
	t.Run("component levels", func(t *testing.T) {
		opts, err := Merge(
			BulkWrite().SetComponentLevel(LogComponentAll, "info"),
			BulkWrite().SetComponentLevel(LogComponentCommand, "trace").SetComponentLevel(LogComponentAll, "debug"),
		)
		require.NoError(t, err)
		assert.Equal(t, map[LogComponent]string{
			LogComponentAll:     "debug",
			LogComponentCommand: "trace",
		}, opts.ComponentLevels)
	})
	t.Run("setter error", func(t *testing.T) {
		boom := errors.New("bad option")
		b := BulkWrite()
		b.Opts = append(b.Opts, func(*BulkWriteOptions) error { return boom })
		_, err := Merge(b)
		assert.Equal(t, boom, err)
	})
	t.Run("list", func(t *testing.T) {
		assert.Len(t, BulkWrite().SetComment("x").List(), 2)
	})
}
