// Copyright (C) MongoDB, Inc. 2022-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Defaults used when the server did not advertise a limit.
const (
	DefaultMaxWriteBatchSize = 1000
	DefaultMaxBSONObjectSize = 16 * 1024 * 1024
)

// Limits are the batch limits negotiated with the server. They are read once when the bulk
// operation is created.
type Limits struct {
	MaxBSONObjectSize int `bson:"maxBsonObjectSize" toml:"max_bson_object_size"`
	MaxWriteBatchSize int `bson:"maxWriteBatchSize" toml:"max_write_batch_size"`
}

func (l Limits) withDefaults() Limits {
	if l.MaxWriteBatchSize <= 0 {
		l.MaxWriteBatchSize = DefaultMaxWriteBatchSize
	}
	if l.MaxBSONObjectSize <= 0 {
		l.MaxBSONObjectSize = DefaultMaxBSONObjectSize
	}
	return l
}

// Batch is a group of operations of one kind sent as a single write command.
// OriginalIndexes[i] is the position of Operations[i] in the caller's input.
type Batch struct {
	Kind            Kind
	Operations      []Operation
	OriginalIndexes []int
	StartIndex      int

	// Size is the sum of the encoded sizes of the operations.
	Size int
}

// Len returns the number of operations in the batch.
func (b *Batch) Len() int { return len(b.Operations) }

// Documents returns the payloads of the batch in order.
func (b *Batch) Documents() []bson.D {
	docs := make([]bson.D, len(b.Operations))
	for i, op := range b.Operations {
		docs[i] = op.Payload
	}
	return docs
}

// originalIndex maps a batch-relative index reported by the server to the caller's index.
func (b *Batch) originalIndex(i int) int {
	if i >= 0 && i < len(b.OriginalIndexes) {
		return b.OriginalIndexes[i]
	}
	return b.StartIndex + i
}

func (b *Batch) operation(i int) *Operation {
	if i >= 0 && i < len(b.Operations) {
		return &b.Operations[i]
	}
	return nil
}

// batchBuilder splits appended operations into batches bounded by kind, count and size.
type batchBuilder struct {
	limits    Limits
	current   *Batch
	batches   []*Batch
	nextIndex int
}

func newBatchBuilder(limits Limits) *batchBuilder {
	return &batchBuilder{limits: limits.withDefaults()}
}

// measure computes the encoded size of op and rejects it if it can never fit a batch.
func (bb *batchBuilder) measure(op *Operation) error {
	size, err := documentSize(op.Payload)
	if err != nil {
		return err
	}
	if size >= bb.limits.MaxBSONObjectSize {
		return &DocumentTooLargeError{Size: size, Max: bb.limits.MaxBSONObjectSize}
	}
	op.Size = size
	return nil
}

// add appends a measured operation, assigning its original index.
func (bb *batchBuilder) add(op Operation) {
	if bb.needsNewBatch(op) {
		if bb.current != nil {
			bb.batches = append(bb.batches, bb.current)
		}
		bb.current = &Batch{Kind: op.Kind, StartIndex: bb.nextIndex}
	}

	op.OriginalIndex = bb.nextIndex
	bb.nextIndex++

	bb.current.Operations = append(bb.current.Operations, op)
	bb.current.OriginalIndexes = append(bb.current.OriginalIndexes, op.OriginalIndex)
	bb.current.Size += op.Size
}

func (bb *batchBuilder) needsNewBatch(op Operation) bool {
	switch cur := bb.current; {
	case cur == nil:
		return true
	case cur.Kind != op.Kind:
		return true
	case len(cur.Operations)+1 > bb.limits.MaxWriteBatchSize:
		return true
	case cur.Size+op.Size > bb.limits.MaxBSONObjectSize:
		return true
	}
	return false
}

// appendAll measures every op and adds them in order. Nothing is added when any op is
// rejected.
func (bb *batchBuilder) appendAll(ops ...Operation) error {
	for i := range ops {
		if err := bb.measure(&ops[i]); err != nil {
			return err
		}
	}
	for _, op := range ops {
		bb.add(op)
	}
	return nil
}

// len returns the number of operations appended so far.
func (bb *batchBuilder) len() int { return bb.nextIndex }

// seal flushes the current batch and returns every batch in order.
func (bb *batchBuilder) seal() ([]*Batch, error) {
	if bb.current != nil && len(bb.current.Operations) > 0 {
		bb.batches = append(bb.batches, bb.current)
	}
	bb.current = nil

	if len(bb.batches) == 0 {
		return nil, ErrNoOperations
	}
	return bb.batches, nil
}
