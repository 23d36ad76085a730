// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// testBatch builds a batch of n operations of kind starting at input position start.
func testBatch(t *testing.T, kind Kind, start, n int) *Batch {
	t.Helper()
	b := &Batch{Kind: kind, StartIndex: start}
	for i := 0; i < n; i++ {
		var op Operation
		switch kind {
		case InsertKind:
			op = insertOp(t, start+i)
		case UpdateKind:
			op = updateOp(t)
		case DeleteKind:
			op = deleteOp(t)
		}
		op.OriginalIndex = start + i
		b.Operations = append(b.Operations, op)
		b.OriginalIndexes = append(b.OriginalIndexes, start+i)
	}
	return b
}

func TestMergeBatchResult(t *testing.T) {
	t.Run("insert counts and ids", func(t *testing.T) {
		res := newBulkWriteResult(true)
		fatal := mergeBatchResult(true, testBatch(t, InsertKind, 3, 2), res, nil, &Reply{N: 2})
		assert.False(t, fatal)
		assert.Equal(t, int64(2), res.NInserted)
		assert.Equal(t, []IndexedID{{Index: 3, ID: 3}, {Index: 4, ID: 4}}, res.InsertedIDs)
	})
	t.Run("update counts exclude upserts from matched", func(t *testing.T) {
		res := newBulkWriteResult(true)
		reply := &Reply{N: 3, NModified: 1, Upserted: []ReplyUpsert{{Index: 1, ID: "u"}}}
		mergeBatchResult(false, testBatch(t, UpdateKind, 10, 3), res, nil, reply)

		assert.Equal(t, int64(1), res.NUpserted)
		assert.Equal(t, int64(2), res.NMatched)
		assert.Equal(t, int64(1), res.NModified)
		assert.Equal(t, []IndexedID{{Index: 11, ID: "u"}}, res.Upserted)
	})
	t.Run("delete counts", func(t *testing.T) {
		res := newBulkWriteResult(true)
		mergeBatchResult(true, testBatch(t, DeleteKind, 0, 2), res, nil, &Reply{N: 5})
		assert.Equal(t, int64(5), res.NRemoved)
	})
	t.Run("write error index remapped", func(t *testing.T) {
		res := newBulkWriteResult(true)
		batch := testBatch(t, InsertKind, 2, 3)
		reply := &Reply{N: 1, WriteErrors: []WriteError{{Index: 1, Code: 11000, Message: "dup"}}}

		fatal := mergeBatchResult(true, batch, res, nil, reply)
		assert.True(t, fatal)
		require.Len(t, res.WriteErrors, 1)
		we := res.WriteErrors[0]
		assert.Equal(t, 3, we.Index)
		assert.Equal(t, 11000, we.Code)
		assert.Equal(t, "dup", we.Message)
		require.NotNil(t, we.Request)
		assert.Equal(t, 3, we.Request.OriginalIndex)

		// Only the document before the error was applied.
		assert.Equal(t, []IndexedID{{Index: 2, ID: 2}}, res.InsertedIDs)
		assert.Equal(t, 1, res.OK)
	})
	t.Run("unordered write error not fatal", func(t *testing.T) {
		res := newBulkWriteResult(true)
		reply := &Reply{N: 2, WriteErrors: []WriteError{{Index: 1, Code: 11000}}}
		fatal := mergeBatchResult(false, testBatch(t, InsertKind, 0, 3), res, nil, reply)
		assert.False(t, fatal)
		assert.Equal(t, []IndexedID{{Index: 0, ID: 0}, {Index: 2, ID: 2}}, res.InsertedIDs)
	})
	t.Run("write concern error collected", func(t *testing.T) {
		res := newBulkWriteResult(true)
		reply := &Reply{N: 1, WriteConcernError: &WriteConcernError{Code: 64, Message: "timeout"}}
		fatal := mergeBatchResult(true, testBatch(t, DeleteKind, 0, 1), res, nil, reply)
		assert.False(t, fatal)
		assert.Equal(t, []WriteConcernError{{Code: 64, Message: "timeout"}}, res.WriteConcernErrors)
	})
	t.Run("transport error synthesized", func(t *testing.T) {
		for _, ordered := range []bool{true, false} {
			res := newBulkWriteResult(true)
			fatal := mergeBatchResult(ordered, testBatch(t, UpdateKind, 4, 3), res, errors.New("socket closed"), nil)

			assert.Equal(t, ordered, fatal)
			assert.Equal(t, 0, res.OK)
			require.Len(t, res.WriteErrors, 1)
			we := res.WriteErrors[0]
			assert.Equal(t, 4, we.Index)
			assert.Equal(t, TransportErrorCode, we.Code)
			assert.Equal(t, "socket closed", we.Message)
			assert.Equal(t, []int{4, 5, 6}, we.Indexes)
			assert.Zero(t, res.NMatched)
		}
	})
	t.Run("folding accumulates", func(t *testing.T) {
		res := newBulkWriteResult(true)
		mergeBatchResult(true, testBatch(t, InsertKind, 0, 2), res, nil, &Reply{N: 2})
		mergeBatchResult(true, testBatch(t, UpdateKind, 2, 1), res, nil, &Reply{N: 1, NModified: 1})
		mergeBatchResult(true, testBatch(t, InsertKind, 3, 1), res, nil, &Reply{N: 1})

		assert.Equal(t, int64(3), res.NInserted)
		assert.Equal(t, int64(1), res.NMatched)
		assert.Len(t, res.InsertedIDs, 3)
		assert.False(t, res.HasWriteErrors())
	})
}

func TestBulkWriteResultAccessors(t *testing.T) {
	res := newBulkWriteResult(true)
	res.NInserted, res.NMatched, res.NModified, res.NRemoved = 2, 3, 1, 4
	res.InsertedIDs = []IndexedID{{Index: 3, ID: "b"}, {Index: 0, ID: "a"}}
	res.Upserted = []IndexedID{{Index: 5, ID: "u"}}
	res.WriteErrors = []BulkWriteError{{WriteError: WriteError{Index: 7}}, {WriteError: WriteError{Index: 1}}}
	res.sortByIndex()

	assert.Equal(t, int64(2), res.InsertedCount())
	assert.Equal(t, int64(3), res.MatchedCount())
	assert.Equal(t, int64(1), res.ModifiedCount())
	assert.Equal(t, int64(4), res.DeletedCount())
	assert.Equal(t, int64(1), res.UpsertedCount())
	assert.Equal(t, map[int]interface{}{0: "a", 3: "b"}, res.InsertedIDMap())
	assert.Equal(t, map[int]interface{}{5: "u"}, res.UpsertedIDMap())
	assert.Equal(t, 2, res.WriteErrorCount())

	we, ok := res.WriteErrorAt(0)
	assert.True(t, ok)
	assert.Equal(t, 1, we.Index)
	_, ok = res.WriteErrorAt(2)
	assert.False(t, ok)
}

func TestDecodeReply(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "ok", Value: 1.0},
		{Key: "n", Value: int32(2)},
		{Key: "nModified", Value: int32(1)},
		{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: int32(0)}, {Key: "_id", Value: "x"}}}},
		{Key: "writeConcernError", Value: bson.D{{Key: "code", Value: int32(64)}, {Key: "errmsg", Value: "wtimeout"}}},
	})
	require.NoError(t, err)

	reply, err := DecodeReply(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reply.N)
	assert.Equal(t, int64(1), reply.NModified)
	assert.Equal(t, []ReplyUpsert{{Index: 0, ID: "x"}}, reply.Upserted)
	require.NotNil(t, reply.WriteConcernError)
	assert.Equal(t, 64, reply.WriteConcernError.Code)

	raw, err = bson.Marshal(bson.D{{Key: "ok", Value: 0.0}, {Key: "code", Value: int32(13)}, {Key: "errmsg", Value: "unauthorized"}})
	require.NoError(t, err)
	_, err = DecodeReply(raw)
	var ce CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(13), ce.Code)
}
