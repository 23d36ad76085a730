// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ikmak/mongo-bulkwrite/bulk"
	"github.com/ikmak/mongo-bulkwrite/bulk/options"
	"github.com/ikmak/mongo-bulkwrite/transport/memtransport"
)

const (
	benchBatchSize = 100

	// smallDocSize is the encoded size of smallDoc with an ObjectID _id.
	smallDocSize = 68
)

var benchNS = bulk.Namespace{DB: "perftest", Collection: "corpus"}

func smallDoc(i int) bson.D {
	return bson.D{
		{Key: "sku", Value: fmt.Sprintf("sku-%08d", i)},
		{Key: "qty", Value: int32(i % 100)},
		{Key: "price", Value: 9.99},
	}
}

func newBench(ordered bool) (*bulk.BulkOperation, *memtransport.Server, error) {
	server := memtransport.New(bulk.Limits{MaxWriteBatchSize: benchBatchSize})
	bo, err := bulk.New(benchNS, server, server.Limits(), options.BulkWrite().SetOrdered(ordered))
	return bo, server, err
}

// BuildSmallInserts normalizes and batches small insert documents.
func BuildSmallInserts(ctx context.Context, tm TimerManager, iters int) error {
	bo, _, err := newBench(true)
	if err != nil {
		return err
	}

	tm.ResetTimer()
	for i := 0; i < iters; i++ {
		if err = bo.Append(bulk.NewInsertOneModel().SetDocument(smallDoc(i))); err != nil {
			return err
		}
	}
	tm.StopTimer()

	if bo.Len() != iters {
		return fmt.Errorf("appended %d operations, want %d", bo.Len(), iters)
	}
	return nil
}

// BuildMixedOperations normalizes loose descriptions of every kind, alternating kinds so that
// batches stay short.
func BuildMixedOperations(ctx context.Context, tm TimerManager, iters int) error {
	bo, _, err := newBench(true)
	if err != nil {
		return err
	}

	tm.ResetTimer()
	for i := 0; i < iters; i++ {
		var desc bson.D
		switch i % 4 {
		case 0:
			desc = bson.D{{Key: "insertOne", Value: bson.D{{Key: "document", Value: smallDoc(i)}}}}
		case 1:
			desc = bson.D{{Key: "updateOne", Value: bson.D{
				{Key: "filter", Value: bson.D{{Key: "sku", Value: fmt.Sprintf("sku-%08d", i-1)}}},
				{Key: "update", Value: bson.D{{Key: "$inc", Value: bson.D{{Key: "qty", Value: int32(1)}}}}},
			}}}
		case 2:
			desc = bson.D{{Key: "replaceOne", Value: bson.D{
				{Key: "q", Value: bson.D{{Key: "sku", Value: fmt.Sprintf("sku-%08d", i-2)}}},
				{Key: "u", Value: smallDoc(i)},
			}}}
		default:
			desc = bson.D{{Key: "deleteOne", Value: bson.D{{Key: "filter", Value: bson.D{{Key: "qty", Value: int32(0)}}}}}}
		}
		if err = bo.Raw(desc); err != nil {
			return err
		}
	}
	tm.StopTimer()

	return nil
}

func executeInserts(ctx context.Context, tm TimerManager, iters int, ordered bool) error {
	tm.StopTimer()
	bo, server, err := newBench(ordered)
	if err != nil {
		return err
	}
	for i := 0; i < iters; i++ {
		if err = bo.Append(bulk.NewInsertOneModel().SetDocument(smallDoc(i))); err != nil {
			return err
		}
	}

	tm.ResetTimer()
	tm.StartTimer()
	res, err := bo.Execute(ctx, nil)
	tm.StopTimer()
	if err != nil {
		return err
	}

	if res.NInserted != int64(iters) {
		return fmt.Errorf("inserted %d documents, want %d", res.NInserted, iters)
	}
	if want := (iters + benchBatchSize - 1) / benchBatchSize; len(server.Commands()) != want {
		return fmt.Errorf("sent %d commands, want %d", len(server.Commands()), want)
	}
	return nil
}

// ExecuteOrderedInserts executes small inserts one batch at a time.
func ExecuteOrderedInserts(ctx context.Context, tm TimerManager, iters int) error {
	return executeInserts(ctx, tm, iters, true)
}

// ExecuteUnorderedInserts executes small inserts with concurrent batches.
func ExecuteUnorderedInserts(ctx context.Context, tm TimerManager, iters int) error {
	return executeInserts(ctx, tm, iters, false)
}

// RunAll runs every case and returns their results. When trials is positive each case runs
// exactly that many trials instead of for its standard runtime. The error lists the cases that
// failed.
func RunAll(ctx context.Context, w io.Writer, trials int) ([]*BenchResult, error) {
	var results []*BenchResult
	var failed []string
	for _, c := range getAllCases() {
		if trials > 0 {
			c.Runtime = 0
			c.MinTrials = trials
		}
		res := c.Run(ctx, w)
		if res.HasErrors() {
			failed = append(failed, fmt.Sprintf("%s: %s", res.Name, strings.Join(res.errReport(), "; ")))
		}
		results = append(results, res)
	}
	if len(failed) > 0 {
		return results, errors.New(strings.Join(failed, "\n"))
	}
	return results, nil
}
