// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ikmak/mongo-bulkwrite/internal/logger"
	"github.com/ikmak/mongo-bulkwrite/internal/metrics"
)

// execution is the state of one Execute call. It owns the result until execute returns.
type execution struct {
	op      *BulkOperation
	batches []*Batch
	result  *BulkWriteResult
	opts    WriteOptions

	mu sync.Mutex // guards result while unordered batches are in flight
}

func (e *execution) execute(ctx context.Context) (*BulkWriteResult, error) {
	log := e.op.log
	metrics.Execution(e.op.ordered)
	log.Print(logger.LevelInfo, logger.ComponentBulk, "executing bulk write", logrus.Fields{
		"ordered": e.op.ordered,
		"ops":     e.op.Len(),
		"batches": len(e.batches),
	})
	log.Dump(logger.ComponentBulk, "batch plan", e.batches)

	var err error
	if e.op.ordered {
		err = e.executeOrdered(ctx)
	} else {
		err = e.executeUnordered(ctx)
	}

	res := e.result
	fields := logrus.Fields{
		"nInserted":   res.NInserted,
		"nUpserted":   res.NUpserted,
		"nMatched":    res.NMatched,
		"nModified":   res.NModified,
		"nRemoved":    res.NRemoved,
		"writeErrors": len(res.WriteErrors),
	}
	if err != nil {
		log.Print(logger.LevelError, logger.ComponentBulk, "bulk write failed: "+err.Error(), fields)
	} else {
		log.Print(logger.LevelInfo, logger.ComponentBulk, "bulk write finished", fields)
	}
	return res, err
}

// executeOrdered runs the batches one at a time. A batch is not sent until the previous one
// has been folded, and nothing is sent after a write error or a transport failure.
func (e *execution) executeOrdered(ctx context.Context) error {
	for i, batch := range e.batches {
		reply, err := e.run(ctx, i, batch)
		fatal := mergeBatchResult(true, batch, e.result, err, reply)
		if err != nil {
			return &TransportError{Kind: batch.Kind, Batch: i, Ops: batch.Len(), Err: err}
		}
		if fatal {
			return e.result.exception()
		}
	}
	return nil
}

// executeUnordered sends every batch, up to maxConcurrency at a time, and folds each one as it
// completes. No failure stops the other batches. The first transport failure, by batch
// position, is returned once all batches are folded.
func (e *execution) executeUnordered(ctx context.Context) error {
	errs := make([]error, len(e.batches))

	var g errgroup.Group
	g.SetLimit(e.op.maxConcurrency)
	for i, batch := range e.batches {
		i, batch := i, batch
		g.Go(func() error {
			reply, err := e.run(ctx, i, batch)

			e.mu.Lock()
			mergeBatchResult(false, batch, e.result, err, reply)
			e.mu.Unlock()

			if err != nil {
				errs[i] = &TransportError{Kind: batch.Kind, Batch: i, Ops: batch.Len(), Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	e.result.sortByIndex()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// run sends one batch through the transport.
func (e *execution) run(ctx context.Context, i int, batch *Batch) (*Reply, error) {
	kind := batch.Kind.String()
	log := e.op.log.WithFields(logrus.Fields{
		"batch": i,
		"kind":  kind,
		"ops":   batch.Len(),
		"bytes": batch.Size,
		"start": batch.StartIndex,
	})
	log.Print(logger.LevelDebug, logger.ComponentCommand, "sending write command")
	metrics.BatchDispatched(kind, batch.Len(), batch.Size)

	reply, err := dispatch(ctx, e.op.transport, e.op.ns, batch, e.opts)
	if err != nil {
		metrics.BatchFailed(kind)
		log.Print(logger.LevelError, logger.ComponentCommand, "write command failed: "+err.Error())
		return nil, err
	}

	if reply != nil {
		metrics.WriteErrors(len(reply.WriteErrors), boolToInt(reply.WriteConcernError != nil))
		if len(reply.WriteErrors) > 0 || reply.WriteConcernError != nil {
			log.Print(logger.LevelWarning, logger.ComponentCommand, "write command reported errors", logrus.Fields{
				"writeErrors":       len(reply.WriteErrors),
				"writeConcernError": reply.WriteConcernError != nil,
			})
		}
		log.Print(logger.LevelDebug, logger.ComponentCommand, "write command succeeded", logrus.Fields{
			"n":         reply.N,
			"nModified": reply.NModified,
		})
	}
	return reply, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
