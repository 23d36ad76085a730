// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package benchmark

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func BenchmarkBuildSmallInserts(b *testing.B)       { WrapCase(BuildSmallInserts)(b) }
func BenchmarkBuildMixedOperations(b *testing.B)    { WrapCase(BuildMixedOperations)(b) }
func BenchmarkExecuteOrderedInserts(b *testing.B)   { WrapCase(ExecuteOrderedInserts)(b) }
func BenchmarkExecuteUnorderedInserts(b *testing.B) { WrapCase(ExecuteUnorderedInserts)(b) }

func TestCases(t *testing.T) {
	for _, c := range getAllCases() {
		t.Run(c.Name(), func(t *testing.T) {
			require.NoError(t, c.Bench(context.Background(), noopTimer{}, 250))
		})
	}
}

func TestCaseDefinitionRun(t *testing.T) {
	var buf bytes.Buffer
	c := &CaseDefinition{Bench: ExecuteOrderedInserts, Count: 200, Size: 200 * smallDocSize, MinTrials: 3}
	res := c.Run(context.Background(), &buf)

	assert.Equal(t, "ExecuteOrderedInserts", res.Name)
	assert.GreaterOrEqual(t, res.Trials, 3)
	assert.False(t, res.HasErrors())
	assert.Contains(t, buf.String(), "--- PASS: ExecuteOrderedInserts")

	perf, err := res.PerfFormat()
	require.NoError(t, err)
	assert.Len(t, perf, 2)
}

func TestRunAll(t *testing.T) {
	var buf bytes.Buffer
	results, err := RunAll(context.Background(), &buf, 1)
	require.NoError(t, err)
	require.Len(t, results, len(getAllCases()))
	for _, res := range results {
		assert.Equal(t, 1, res.Trials, res.Name)
		assert.Contains(t, buf.String(), "--- PASS: "+res.Name)
	}
}

func TestBenchResultErrors(t *testing.T) {
	res := &BenchResult{
		Name: "failing",
		Raw: []Result{
			{Duration: time.Millisecond},
			{Duration: time.Millisecond, Error: errors.New("boom")},
		},
	}
	assert.True(t, res.HasErrors())
	assert.Equal(t, []string{"boom"}, res.errReport())

	_, err := (&BenchResult{}).PerfFormat()
	assert.Error(t, err)
}
