// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"bytes"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNoOperations is returned by Execute when nothing was appended to the bulk operation.
var ErrNoOperations = errors.New("invalid operation, no operations in bulk")

// ErrAlreadyExecuted is returned when Execute is called more than once, or when an operation is
// appended after Execute was called.
var ErrAlreadyExecuted = errors.New("batch cannot be re-executed")

// ErrUnsupportedOperation is returned for operation descriptions that match none of the
// recognized shapes.
var ErrUnsupportedOperation = errors.New("bulkWrite only supports insertOne, insertMany, updateOne, " +
	"updateMany, replaceOne, removeOne, removeMany, deleteOne, deleteMany")

// ErrArrayDocument is returned when a single-document insert is given an array.
var ErrArrayDocument = errors.New("operation passed in cannot be an Array")

// ErrNilDocument is returned when a document, filter or update is nil.
var ErrNilDocument = errors.New("document is nil")

// ErrUpdateDocument is returned when an update document does not start with an update operator.
var ErrUpdateDocument = errors.New("update document must contain key beginning with '$'")

// ErrReplacementDocument is returned when a replacement document contains update operators.
var ErrReplacementDocument = errors.New("replacement document cannot contain keys beginning with '$'")

// ErrNilTransport is returned by Execute when the bulk operation has no transport.
var ErrNilTransport = errors.New("bulk operation has no write transport")

// TransportErrorCode is the code given to the write error synthesized for a batch whose
// command never produced a reply.
const TransportErrorCode = -1

// DocumentTooLargeError is returned when a single operation's encoded size meets or exceeds
// the maximum BSON object size.
type DocumentTooLargeError struct {
	Size int
	Max  int
}

func (e *DocumentTooLargeError) Error() string {
	return fmt.Sprintf("document is larger than the maximum size %d (got %d bytes)", e.Max, e.Size)
}

// WriteError is a non-write concern failure that occurred as a result of a write
// operation.
type WriteError struct {
	Index   int      `bson:"index"`
	Code    int      `bson:"code"`
	Message string   `bson:"errmsg"`
	Details bson.Raw `bson:"errInfo,omitempty"`
}

func (we WriteError) Error() string { return we.Message }

// BulkWriteError is a WriteError whose index was remapped to the position of the operation in
// the caller's input, along with the operation that caused it.
type BulkWriteError struct {
	WriteError `bson:",inline"`

	// Request is the operation that failed.
	Request *Operation `bson:"op,omitempty"`

	// Indexes holds every original index of the batch when the error was synthesized from a
	// transport failure. It is empty for errors reported by the server.
	Indexes []int `bson:"indexes,omitempty"`
}

func (bwe BulkWriteError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "{write errors: %d: %s}", bwe.Index, bwe.Message)
	return buf.String()
}

// WriteConcernError is a write concern failure that occurred as a result of a
// write operation.
type WriteConcernError struct {
	Code     int      `bson:"code"`
	CodeName string   `bson:"codeName,omitempty"`
	Message  string   `bson:"errmsg"`
	Details  bson.Raw `bson:"errInfo,omitempty"`
}

func (wce WriteConcernError) Error() string {
	if wce.CodeName != "" {
		return fmt.Sprintf("(%s) %s", wce.CodeName, wce.Message)
	}
	return wce.Message
}

// BulkWriteException is returned by an ordered bulk operation that stopped at a write error.
// The partial result is returned alongside it.
type BulkWriteException struct {
	WriteErrors        []BulkWriteError
	WriteConcernErrors []WriteConcernError
}

// First returns the write error that stopped the operation.
func (bwe BulkWriteException) First() BulkWriteError {
	if len(bwe.WriteErrors) == 0 {
		return BulkWriteError{}
	}
	return bwe.WriteErrors[0]
}

func (bwe BulkWriteException) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "bulk write exception: ")
	if len(bwe.WriteErrors) > 0 {
		first := bwe.WriteErrors[0]
		fmt.Fprintf(&buf, "write errors: [index %d, code %d: %s]", first.Index, first.Code, first.Message)
		if len(bwe.WriteErrors) > 1 {
			fmt.Fprintf(&buf, " and %d more", len(bwe.WriteErrors)-1)
		}
	}
	if len(bwe.WriteConcernErrors) > 0 {
		if len(bwe.WriteErrors) > 0 {
			fmt.Fprint(&buf, ", ")
		}
		fmt.Fprintf(&buf, "write concern error: [%s]", bwe.WriteConcernErrors[0])
	}
	return buf.String()
}

// CommandError is a failed command reply (ok: 0).
type CommandError struct {
	Code    int32
	Message string
	Name    string
}

func (e CommandError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("(%v) %v", e.Name, e.Message)
	}
	return e.Message
}

// TransportError wraps a failure of the write transport for one batch. A bulk operation that
// returns a TransportError still returns the result folded so far.
type TransportError struct {
	Kind  Kind
	Batch int
	Ops   int
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s batch %d (%d operations) failed: %v", e.Kind, e.Batch, e.Ops, e.Err)
}

// Cause returns the underlying transport error.
func (e *TransportError) Cause() error { return e.Err }

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error { return e.Err }
