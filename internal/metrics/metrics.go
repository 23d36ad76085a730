// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package metrics holds the process-wide counters of bulk write activity.
package metrics

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	executionsOrdered   = metrics.NewCounter(`bulkwrite_executions_total{mode="ordered"}`)
	executionsUnordered = metrics.NewCounter(`bulkwrite_executions_total{mode="unordered"}`)

	writeErrors        = metrics.NewCounter(`bulkwrite_write_errors_total`)
	writeConcernErrors = metrics.NewCounter(`bulkwrite_write_concern_errors_total`)

	batchOperations = metrics.NewHistogram(`bulkwrite_batch_operations`)
	batchBytes      = metrics.NewHistogram(`bulkwrite_batch_bytes`)
)

// Execution records the start of a bulk operation.
func Execution(ordered bool) {
	if ordered {
		executionsOrdered.Inc()
		return
	}
	executionsUnordered.Inc()
}

// BatchDispatched records a write command sent for a batch.
func BatchDispatched(kind string, ops, bytes int) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`bulkwrite_batches_total{kind=%q}`, kind)).Inc()
	metrics.GetOrCreateCounter(fmt.Sprintf(`bulkwrite_operations_total{kind=%q}`, kind)).Add(ops)
	batchOperations.Update(float64(ops))
	batchBytes.Update(float64(bytes))
}

// BatchFailed records a batch whose command produced no reply.
func BatchFailed(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`bulkwrite_transport_errors_total{kind=%q}`, kind)).Inc()
}

// WriteErrors records write errors and write concern errors reported for a batch.
func WriteErrors(n, wce int) {
	if n > 0 {
		writeErrors.Add(n)
	}
	if wce > 0 {
		writeConcernErrors.Add(wce)
	}
}

// WritePrometheus writes every counter in the Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
