// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package options defines the options for bulk write operations.
package options

import (
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// DefaultOrdered is the default value for the Ordered option in BulkWriteOptions.
var DefaultOrdered = true

// DefaultMaxConcurrency is the default number of batches an unordered bulk write keeps in
// flight at once.
var DefaultMaxConcurrency = 4

// LogComponent names a part of a bulk write that is logged at its own level.
type LogComponent string

// These constants are the components a log level can be set for.
const (
	LogComponentAll     LogComponent = "all"
	LogComponentBulk    LogComponent = "bulk"
	LogComponentCommand LogComponent = "command"
)

// BulkWriteOptions represents arguments that can be used to configure a
// bulk write operation.
//
// See corresponding setter methods for documentation.
type BulkWriteOptions struct {
	BypassDocumentValidation *bool
	Comment                  interface{}
	Ordered                  *bool
	WriteConcern             *writeconcern.WriteConcern
	MaxConcurrency           *int
	IDGenerator              func() interface{}
	Logger                   *logrus.Logger
	ComponentLevels          map[LogComponent]string
}

// BulkWriteOptionsBuilder contains options to configure bulk write operations.
// Each option can be set through setter functions. See documentation for each
// setter function for an explanation of the option.
type BulkWriteOptionsBuilder struct {
	Opts []func(*BulkWriteOptions) error
}

// BulkWrite creates a new *BulkWriteOptionsBuilder instance.
func BulkWrite() *BulkWriteOptionsBuilder {
	opts := &BulkWriteOptionsBuilder{}
	opts = opts.SetOrdered(DefaultOrdered)

	return opts
}

// List returns a list of BulkWriteOptions setter functions.
func (b *BulkWriteOptionsBuilder) List() []func(*BulkWriteOptions) error {
	return b.Opts
}

// SetComment sets the value for the Comment field. Specifies a string or document that will be
// included with every write command sent by the operation. The default value is nil, which
// means that no comment will be sent.
func (b *BulkWriteOptionsBuilder) SetComment(comment interface{}) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.Comment = comment

		return nil
	})

	return b
}

// SetOrdered sets the value for the Ordered field. If true, no writes will be executed after one
// fails. The default value is true.
func (b *BulkWriteOptionsBuilder) SetOrdered(ordered bool) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.Ordered = &ordered

		return nil
	})

	return b
}

// SetBypassDocumentValidation sets the value for the BypassDocumentValidation field. If true,
// writes executed as part of the operation will opt out of document-level validation on the
// server. The default value is false.
func (b *BulkWriteOptionsBuilder) SetBypassDocumentValidation(bypass bool) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.BypassDocumentValidation = &bypass

		return nil
	})

	return b
}

// SetWriteConcern sets the write concern sent with every write command. A write concern passed
// to Execute takes precedence.
func (b *BulkWriteOptionsBuilder) SetWriteConcern(wc *writeconcern.WriteConcern) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.WriteConcern = wc

		return nil
	})

	return b
}

// SetMaxConcurrency sets the number of batches an unordered bulk write may have in flight at
// once. Values below 1 are treated as 1. Ordered bulk writes always run one batch at a time.
func (b *BulkWriteOptionsBuilder) SetMaxConcurrency(n int) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.MaxConcurrency = &n

		return nil
	})

	return b
}

// SetIDGenerator sets the function used to generate the _id of inserted documents that have
// none. The default generates an ObjectID.
func (b *BulkWriteOptionsBuilder) SetIDGenerator(gen func() interface{}) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.IDGenerator = gen

		return nil
	})

	return b
}

// SetLogger sets the logrus logger the operation logs to. The default is the logrus standard
// logger.
func (b *BulkWriteOptionsBuilder) SetLogger(l *logrus.Logger) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		opts.Logger = l

		return nil
	})

	return b
}

// SetComponentLevel sets the level a component logs at: one of off, error, warn, info, debug or
// trace. Levels set here take precedence over the BULKWRITE_LOG_* environment variables. A level
// for LogComponentAll applies to every component without a level of its own.
func (b *BulkWriteOptionsBuilder) SetComponentLevel(component LogComponent, level string) *BulkWriteOptionsBuilder {
	b.Opts = append(b.Opts, func(opts *BulkWriteOptions) error {
		if opts.ComponentLevels == nil {
			opts.ComponentLevels = make(map[LogComponent]string)
		}
		opts.ComponentLevels[component] = level

		return nil
	})

	return b
}

// Merge applies every builder in order and returns the resulting options. Later builders
// override earlier ones.
func Merge(builders ...*BulkWriteOptionsBuilder) (*BulkWriteOptions, error) {
	opts := &BulkWriteOptions{}
	for _, b := range builders {
		if b == nil {
			continue
		}
		for _, set := range b.Opts {
			if set == nil {
				continue
			}
			if err := set(opts); err != nil {
				return nil, err
			}
		}
	}

	return opts, nil
}
