// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"sort"
)

// IndexedID is the _id of an inserted or upserted document along with the position of its
// operation in the caller's input.
type IndexedID struct {
	Index int         `bson:"index"`
	ID    interface{} `bson:"_id"`
}

// BulkWriteResult is the aggregate result of a bulk operation. It is folded batch by batch while
// the operation runs and is not modified after Execute returns.
type BulkWriteResult struct {
	OK           int  `bson:"ok"`
	Acknowledged bool `bson:"acknowledged"`

	NInserted int64 `bson:"nInserted"`
	NUpserted int64 `bson:"nUpserted"`
	NMatched  int64 `bson:"nMatched"`
	NModified int64 `bson:"nModified"`
	NRemoved  int64 `bson:"nRemoved"`

	InsertedIDs        []IndexedID         `bson:"insertedIds"`
	Upserted           []IndexedID         `bson:"upserted"`
	WriteErrors        []BulkWriteError    `bson:"writeErrors"`
	WriteConcernErrors []WriteConcernError `bson:"writeConcernErrors"`
}

func newBulkWriteResult(acknowledged bool) *BulkWriteResult {
	return &BulkWriteResult{
		OK:                 1,
		Acknowledged:       acknowledged,
		InsertedIDs:        []IndexedID{},
		Upserted:           []IndexedID{},
		WriteErrors:        []BulkWriteError{},
		WriteConcernErrors: []WriteConcernError{},
	}
}

// InsertedCount returns the number of inserted documents.
func (r *BulkWriteResult) InsertedCount() int64 { return r.NInserted }

// MatchedCount returns the number of documents matched by updates, upserts excluded.
func (r *BulkWriteResult) MatchedCount() int64 { return r.NMatched }

// ModifiedCount returns the number of documents modified by updates.
func (r *BulkWriteResult) ModifiedCount() int64 { return r.NModified }

// DeletedCount returns the number of deleted documents.
func (r *BulkWriteResult) DeletedCount() int64 { return r.NRemoved }

// UpsertedCount returns the number of upserted documents.
func (r *BulkWriteResult) UpsertedCount() int64 { return int64(len(r.Upserted)) }

// InsertedIDMap maps the input position of every inserted document to its _id.
func (r *BulkWriteResult) InsertedIDMap() map[int]interface{} {
	return idMap(r.InsertedIDs)
}

// UpsertedIDMap maps the input position of every upsert to the _id of the created document.
func (r *BulkWriteResult) UpsertedIDMap() map[int]interface{} {
	return idMap(r.Upserted)
}

// HasWriteErrors reports whether any operation failed.
func (r *BulkWriteResult) HasWriteErrors() bool { return len(r.WriteErrors) > 0 }

// WriteErrorCount returns the number of write errors.
func (r *BulkWriteResult) WriteErrorCount() int { return len(r.WriteErrors) }

// WriteErrorAt returns the i-th write error, or false if there is none.
func (r *BulkWriteResult) WriteErrorAt(i int) (BulkWriteError, bool) {
	if i < 0 || i >= len(r.WriteErrors) {
		return BulkWriteError{}, false
	}
	return r.WriteErrors[i], true
}

func idMap(ids []IndexedID) map[int]interface{} {
	out := make(map[int]interface{}, len(ids))
	for _, id := range ids {
		out[id.Index] = id.ID
	}
	return out
}

// sortByIndex puts the per-operation lists in input order.
func (r *BulkWriteResult) sortByIndex() {
	sort.SliceStable(r.InsertedIDs, func(i, j int) bool { return r.InsertedIDs[i].Index < r.InsertedIDs[j].Index })
	sort.SliceStable(r.Upserted, func(i, j int) bool { return r.Upserted[i].Index < r.Upserted[j].Index })
	sort.SliceStable(r.WriteErrors, func(i, j int) bool { return r.WriteErrors[i].Index < r.WriteErrors[j].Index })
}

func (r *BulkWriteResult) exception() BulkWriteException {
	return BulkWriteException{
		WriteErrors:        append([]BulkWriteError(nil), r.WriteErrors...),
		WriteConcernErrors: append([]WriteConcernError(nil), r.WriteConcernErrors...),
	}
}
