// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ikmak/mongo-bulkwrite/bulk/options"
	"github.com/ikmak/mongo-bulkwrite/internal/logger"
)

// BulkOperation accumulates write operations for one collection and executes them once.
//
// A BulkOperation is not safe for concurrent use.
type BulkOperation struct {
	ns        Namespace
	transport Transport

	ordered        bool
	writeConcern   *writeconcern.WriteConcern
	bypass         *bool
	comment        interface{}
	maxConcurrency int
	idGen          IDGenerator

	builder  *batchBuilder
	executed bool

	runID string
	log   *logger.Logger
}

// New creates a BulkOperation writing to ns through t. The limits are the ones negotiated with
// the server; zero values fall back to the defaults.
func New(ns Namespace, t Transport, limits Limits, opts ...*options.BulkWriteOptionsBuilder) (*BulkOperation, error) {
	bwo, err := options.Merge(opts...)
	if err != nil {
		return nil, err
	}

	bo := &BulkOperation{
		ns:             ns,
		transport:      t,
		ordered:        options.DefaultOrdered,
		writeConcern:   bwo.WriteConcern,
		bypass:         bwo.BypassDocumentValidation,
		comment:        bwo.Comment,
		maxConcurrency: options.DefaultMaxConcurrency,
		idGen:          NewObjectID,
		builder:        newBatchBuilder(limits),
		runID:          uuid.New().String(),
	}
	if bwo.Ordered != nil {
		bo.ordered = *bwo.Ordered
	}
	if bwo.MaxConcurrency != nil {
		bo.maxConcurrency = *bwo.MaxConcurrency
	}
	if bo.maxConcurrency < 1 {
		bo.maxConcurrency = 1
	}
	if bwo.IDGenerator != nil {
		bo.idGen = bwo.IDGenerator
	}

	levels := make(map[logger.Component]logger.Level, len(bwo.ComponentLevels))
	for c, l := range bwo.ComponentLevels {
		levels[logger.ParseComponent(string(c))] = logger.ParseLevel(l)
	}
	bo.log = logger.New(bwo.Logger, levels).WithFields(logrus.Fields{
		"run": bo.runID,
		"ns":  ns.FullName(),
	})

	return bo, nil
}

// Ordered reports whether the operation stops at the first write error.
func (bo *BulkOperation) Ordered() bool { return bo.ordered }

// Len returns the number of operations appended so far. An insertMany counts once per
// document.
func (bo *BulkOperation) Len() int { return bo.builder.len() }

// Append normalizes each model and adds it to the operation. An invalid or oversized model is
// rejected and nothing from it is added; models before it remain appended.
func (bo *BulkOperation) Append(models ...WriteModel) error {
	for _, model := range models {
		if model == nil {
			return errors.Wrapf(ErrNilDocument, "model %d", bo.Len())
		}
		ops, wb, err := model.operations(bo.idGen)
		if err != nil {
			return err
		}
		if err = bo.appendOperations(ops, wb); err != nil {
			return err
		}
	}
	return nil
}

// Raw normalizes a loosely typed operation description such as
//
//	{insertOne: {document: {a: 1}}}
//	{updateOne: {filter: {a: 2}, update: {$set: {a: 2}}, upsert: true}}
//	{updateMany: {q: {a: 2}, u: {$set: {a: 3}}}}
//	{deleteOne: {filter: {c: 1}}}
//	{replaceOne: {filter: {c: 3}, replacement: {c: 4}, upsert: true}}
//	{insertMany: [{g: 1}, {g: 2}]}
//
// given as a bson.M, bson.D or map[string]interface{}, and adds it to the operation. Inserted
// documents without an _id are given one in place once the description is accepted.
func (bo *BulkOperation) Raw(desc interface{}) error {
	ops, wb, err := normalizeRaw(desc, bo.idGen)
	if err != nil {
		return err
	}
	return bo.appendOperations(ops, wb)
}

// appendOperations adds ops and then applies their id write-backs. A rejected model leaves the
// caller's documents as they were.
func (bo *BulkOperation) appendOperations(ops []Operation, wb writeBacks) error {
	if bo.executed {
		return ErrAlreadyExecuted
	}

	if err := bo.builder.appendAll(ops...); err != nil {
		return err
	}
	wb.apply()

	bo.log.Print(logger.LevelTrace, logger.ComponentBulk, "appended", logrus.Fields{
		"kind": kindOf(ops),
		"ops":  len(ops),
		"len":  bo.Len(),
	})
	return nil
}

// Execute sends every batch and returns the aggregate result. wc overrides the write concern
// given in the options when it is not nil.
//
// The returned error is ErrNoOperations or ErrAlreadyExecuted when nothing was sent, a
// BulkWriteException when an ordered operation stopped at a write error, or a *TransportError
// when a batch's command failed. In the last two cases the result folded so far is returned as
// well. An unordered operation reports write errors only in the result.
func (bo *BulkOperation) Execute(ctx context.Context, wc *writeconcern.WriteConcern) (*BulkWriteResult, error) {
	if bo.executed {
		return nil, ErrAlreadyExecuted
	}
	bo.executed = true

	if bo.transport == nil {
		return nil, ErrNilTransport
	}
	batches, err := bo.builder.seal()
	if err != nil {
		return nil, err
	}

	if wc == nil {
		wc = bo.writeConcern
	}
	run := &execution{
		op:      bo,
		batches: batches,
		result:  newBulkWriteResult(writeconcern.AckWrite(wc)),
		opts: WriteOptions{
			Ordered:                  bo.ordered,
			WriteConcern:             wc,
			BypassDocumentValidation: bo.bypass,
			Comment:                  bo.comment,
		},
	}
	return run.execute(ctx)
}

// Write appends every model to a new BulkOperation and executes it.
func Write(ctx context.Context, ns Namespace, t Transport, limits Limits, models []WriteModel,
	opts ...*options.BulkWriteOptionsBuilder) (*BulkWriteResult, error) {
	bo, err := New(ns, t, limits, opts...)
	if err != nil {
		return nil, err
	}
	if err = bo.Append(models...); err != nil {
		return nil, err
	}
	return bo.Execute(ctx, nil)
}

func kindOf(ops []Operation) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[0].Kind.String()
}
