// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritePrometheus(t *testing.T) {
	Execution(true)
	Execution(false)
	BatchDispatched("insert", 3, 120)
	BatchFailed("update")
	WriteErrors(2, 1)

	var buf bytes.Buffer
	WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `bulkwrite_executions_total{mode="ordered"}`)
	assert.Contains(t, out, `bulkwrite_batches_total{kind="insert"}`)
	assert.Contains(t, out, `bulkwrite_operations_total{kind="insert"}`)
	assert.Contains(t, out, `bulkwrite_transport_errors_total{kind="update"}`)
	assert.Contains(t, out, `bulkwrite_write_errors_total`)
	assert.Contains(t, out, `bulkwrite_batch_operations_bucket`)
}
