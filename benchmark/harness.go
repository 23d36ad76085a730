// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package benchmark measures batch building and execution of bulk writes against the in-memory
// transport.
package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	ExecutionTimeout = 5 * time.Minute
	StandardRuntime  = time.Minute
	MinimumRuntime   = 10 * time.Second
	MinIterations    = 100

	ten         = 10
	hundred     = ten * ten
	thousand    = ten * hundred
	tenThousand = ten * thousand
)

// TimerManager is the part of testing.B a case uses to exclude setup from its timing.
type TimerManager interface {
	ResetTimer()
	StartTimer()
	StopTimer()
}

type noopTimer struct{}

func (noopTimer) ResetTimer() {}
func (noopTimer) StartTimer() {}
func (noopTimer) StopTimer()  {}

type BenchCase func(context.Context, TimerManager, int) error
type BenchFunction func(*testing.B)

func WrapCase(bench BenchCase) BenchFunction {
	name := getName(bench)
	return func(b *testing.B) {
		ctx := context.Background()
		b.ReportAllocs()
		b.ResetTimer()
		err := bench(ctx, b, b.N)
		require.NoError(b, err, "case='%s'", name)
	}
}

func getAllCases() []*CaseDefinition {
	return []*CaseDefinition{
		{
			Bench:   BuildSmallInserts,
			Count:   tenThousand,
			Size:    smallDocSize * tenThousand,
			Runtime: MinimumRuntime,
		},
		{
			Bench:   BuildMixedOperations,
			Count:   tenThousand,
			Size:    -1,
			Runtime: MinimumRuntime,
		},
		{
			Bench:   ExecuteOrderedInserts,
			Count:   tenThousand,
			Size:    smallDocSize * tenThousand,
			Runtime: StandardRuntime,
		},
		{
			Bench:   ExecuteUnorderedInserts,
			Count:   tenThousand,
			Size:    smallDocSize * tenThousand,
			Runtime: StandardRuntime,
		},
	}
}
