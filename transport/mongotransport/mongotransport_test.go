// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongotransport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ikmak/mongo-bulkwrite/bulk"
)

type call struct {
	db  string
	cmd bson.D
}

type fakeRunner struct {
	calls []call
	reply bson.D
	err   error
}

func (f *fakeRunner) RunCommand(_ context.Context, db string, cmd bson.D) (bson.Raw, error) {
	f.calls = append(f.calls, call{db: db, cmd: cmd})
	if f.err != nil {
		return nil, f.err
	}
	return bson.Marshal(f.reply)
}

func keys(d bson.D) []string {
	out := make([]string, len(d))
	for i, e := range d {
		out[i] = e.Key
	}
	return out
}

var testNS = bulk.Namespace{DB: "db", Collection: "coll"}

func TestBuildCommand(t *testing.T) {
	docs := []bson.D{{{Key: "_id", Value: 1}}}
	bypass := true

	testCases := []struct {
		name string
		kind bulk.Kind
		opts bulk.WriteOptions
		keys []string
	}{
		{"insert", bulk.InsertKind, bulk.WriteOptions{Ordered: true}, []string{"insert", "documents", "ordered"}},
		{"update", bulk.UpdateKind, bulk.WriteOptions{}, []string{"update", "updates", "ordered"}},
		{"delete ignores bypass", bulk.DeleteKind, bulk.WriteOptions{BypassDocumentValidation: &bypass}, []string{"delete", "deletes", "ordered"}},
		{
			"all options",
			bulk.InsertKind,
			bulk.WriteOptions{
				WriteConcern:             writeconcern.New(writeconcern.WMajority()),
				BypassDocumentValidation: &bypass,
				Comment:                  "nightly load",
			},
			[]string{"insert", "documents", "ordered", "writeConcern", "bypassDocumentValidation", "comment"},
		},
		{"empty write concern", bulk.InsertKind, bulk.WriteOptions{WriteConcern: writeconcern.New()}, []string{"insert", "documents", "ordered"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := BuildCommand(tc.kind, testNS, docs, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.keys, keys(cmd))
			assert.Equal(t, "coll", cmd[0].Value)
			assert.Equal(t, tc.opts.Ordered, cmd[2].Value)
		})
	}

	_, err := BuildCommand(bulk.Kind(0), testNS, docs, bulk.WriteOptions{})
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	t.Run("reply decoded", func(t *testing.T) {
		runner := &fakeRunner{reply: bson.D{
			{Key: "ok", Value: 1.0},
			{Key: "n", Value: int32(1)},
			{Key: "writeErrors", Value: bson.A{
				bson.D{{Key: "index", Value: int32(1)}, {Key: "code", Value: int32(11000)}, {Key: "errmsg", Value: "dup"}},
			}},
		}}
		tr := NewWithRunner(runner)

		reply, err := tr.Insert(context.Background(), testNS, []bson.D{{{Key: "_id", Value: 1}}, {{Key: "_id", Value: 1}}}, bulk.WriteOptions{Ordered: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), reply.N)
		require.Len(t, reply.WriteErrors, 1)
		assert.Equal(t, 1, reply.WriteErrors[0].Index)
		assert.Equal(t, 11000, reply.WriteErrors[0].Code)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "db", runner.calls[0].db)
	})
	t.Run("command failure", func(t *testing.T) {
		runner := &fakeRunner{reply: bson.D{
			{Key: "ok", Value: 0.0},
			{Key: "code", Value: int32(13)},
			{Key: "codeName", Value: "Unauthorized"},
			{Key: "errmsg", Value: "not authorized"},
		}}
		_, err := NewWithRunner(runner).Delete(context.Background(), testNS, nil, bulk.WriteOptions{})

		var ce bulk.CommandError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, int32(13), ce.Code)
		assert.Equal(t, "Unauthorized", ce.Name)
	})
	t.Run("runner error passed through", func(t *testing.T) {
		boom := errors.New("connection refused")
		_, err := NewWithRunner(&fakeRunner{err: boom}).Update(context.Background(), testNS, nil, bulk.WriteOptions{})
		assert.Equal(t, boom, err)
	})
}

func TestLimits(t *testing.T) {
	runner := &fakeRunner{reply: bson.D{
		{Key: "ok", Value: 1.0},
		{Key: "maxBsonObjectSize", Value: int32(16777216)},
		{Key: "maxWriteBatchSize", Value: int32(100000)},
	}}
	limits, err := NewWithRunner(runner).Limits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bulk.Limits{MaxBSONObjectSize: 16777216, MaxWriteBatchSize: 100000}, limits)
	assert.Equal(t, "admin", runner.calls[0].db)
}
