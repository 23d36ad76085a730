// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

// mergeBatchResult folds the outcome of one batch into res. Exactly one of err and reply is
// used: a transport error becomes a single write error covering the whole batch.
//
// Indexes reported by the server are relative to the batch and are translated here, and only
// here, into positions in the caller's input.
//
// It returns true when res holds a write error and the operation is ordered, meaning no
// further batch may run.
func mergeBatchResult(ordered bool, batch *Batch, res *BulkWriteResult, err error, reply *Reply) bool {
	if err != nil {
		res.OK = 0
		res.WriteErrors = append(res.WriteErrors, BulkWriteError{
			WriteError: WriteError{
				Index:   batch.originalIndex(0),
				Code:    TransportErrorCode,
				Message: err.Error(),
			},
			Request: batch.operation(0),
			Indexes: append([]int(nil), batch.OriginalIndexes...),
		})
		return ordered
	}
	if reply == nil {
		reply = &Reply{}
	}

	switch batch.Kind {
	case InsertKind:
		res.NInserted += reply.N
		mergeInsertedIDs(ordered, batch, res, reply)
	case UpdateKind:
		nUpserted := int64(len(reply.Upserted))
		res.NUpserted += nUpserted
		res.NMatched += reply.N - nUpserted
		res.NModified += reply.NModified
		for _, u := range reply.Upserted {
			res.Upserted = append(res.Upserted, IndexedID{Index: batch.originalIndex(u.Index), ID: u.ID})
		}
	case DeleteKind:
		res.NRemoved += reply.N
	}

	for _, we := range reply.WriteErrors {
		res.WriteErrors = append(res.WriteErrors, BulkWriteError{
			WriteError: WriteError{
				Index:   batch.originalIndex(we.Index),
				Code:    we.Code,
				Message: we.Message,
				Details: we.Details,
			},
			Request: batch.operation(we.Index),
		})
	}

	if reply.WriteConcernError != nil {
		res.WriteConcernErrors = append(res.WriteConcernErrors, *reply.WriteConcernError)
	}

	return ordered && len(res.WriteErrors) > 0
}

// mergeInsertedIDs records the ids of the documents the server applied. Documents with a write
// error are skipped and, in an ordered batch, so is everything after the first error.
func mergeInsertedIDs(ordered bool, batch *Batch, res *BulkWriteResult, reply *Reply) {
	failed := make(map[int]bool, len(reply.WriteErrors))
	firstErr := -1
	for _, we := range reply.WriteErrors {
		failed[we.Index] = true
		if firstErr == -1 || we.Index < firstErr {
			firstErr = we.Index
		}
	}

	for i, op := range batch.Operations {
		if failed[i] || (ordered && firstErr != -1 && i > firstErr) {
			continue
		}
		res.InsertedIDs = append(res.InsertedIDs, IndexedID{Index: batch.originalIndex(i), ID: op.InsertedID})
	}
}
