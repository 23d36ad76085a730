// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongotransport sends bulk write batches to a MongoDB deployment as insert, update
// and delete commands.
package mongotransport

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ikmak/mongo-bulkwrite/bulk"
)

// Runner runs a command against a database and returns the raw reply.
type Runner interface {
	RunCommand(ctx context.Context, db string, cmd bson.D) (bson.Raw, error)
}

type clientRunner struct {
	client *mongo.Client
}

func (r clientRunner) RunCommand(ctx context.Context, db string, cmd bson.D) (bson.Raw, error) {
	raw, err := r.client.Database(db).RunCommand(ctx, cmd).DecodeBytes()
	if err == nil || len(raw) > 0 {
		return raw, nil
	}

	// A failed command still carries a reply; DecodeReply turns it into a CommandError.
	var ce mongo.CommandError
	if errors.As(err, &ce) && len(ce.Raw) > 0 {
		return ce.Raw, nil
	}
	return nil, err
}

// Transport is a bulk.Transport backed by a Runner.
type Transport struct {
	runner Runner
}

var _ bulk.Transport = (*Transport)(nil)

// New returns a Transport that runs commands through client.
func New(client *mongo.Client) *Transport {
	return &Transport{runner: clientRunner{client: client}}
}

// NewWithRunner returns a Transport that runs commands through r.
func NewWithRunner(r Runner) *Transport {
	return &Transport{runner: r}
}

// Insert implements bulk.Transport.
func (t *Transport) Insert(ctx context.Context, ns bulk.Namespace, documents []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	return t.write(ctx, bulk.InsertKind, ns, documents, opts)
}

// Update implements bulk.Transport.
func (t *Transport) Update(ctx context.Context, ns bulk.Namespace, updates []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	return t.write(ctx, bulk.UpdateKind, ns, updates, opts)
}

// Delete implements bulk.Transport.
func (t *Transport) Delete(ctx context.Context, ns bulk.Namespace, deletes []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	return t.write(ctx, bulk.DeleteKind, ns, deletes, opts)
}

func (t *Transport) write(ctx context.Context, kind bulk.Kind, ns bulk.Namespace, docs []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	cmd, err := BuildCommand(kind, ns, docs, opts)
	if err != nil {
		return nil, err
	}
	raw, err := t.runner.RunCommand(ctx, ns.DB, cmd)
	if err != nil {
		return nil, err
	}
	return bulk.DecodeReply(raw)
}

// BuildCommand returns the write command for one batch.
func BuildCommand(kind bulk.Kind, ns bulk.Namespace, docs []bson.D, opts bulk.WriteOptions) (bson.D, error) {
	var field string
	switch kind {
	case bulk.InsertKind:
		field = "documents"
	case bulk.UpdateKind:
		field = "updates"
	case bulk.DeleteKind:
		field = "deletes"
	default:
		return nil, pkgerrors.Errorf("unknown write command kind %d", kind)
	}

	arr := make(bson.A, len(docs))
	for i, d := range docs {
		arr[i] = d
	}

	cmd := bson.D{
		{Key: kind.String(), Value: ns.Collection},
		{Key: field, Value: arr},
		{Key: "ordered", Value: opts.Ordered},
	}

	if opts.WriteConcern != nil {
		t, data, err := opts.WriteConcern.MarshalBSONValue()
		switch {
		case errors.Is(err, writeconcern.ErrEmptyWriteConcern):
		case err != nil:
			return nil, pkgerrors.Wrap(err, "encoding write concern")
		default:
			cmd = append(cmd, bson.E{Key: "writeConcern", Value: bson.RawValue{Type: t, Value: data}})
		}
	}
	if opts.BypassDocumentValidation != nil && kind != bulk.DeleteKind {
		cmd = append(cmd, bson.E{Key: "bypassDocumentValidation", Value: *opts.BypassDocumentValidation})
	}
	if opts.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: opts.Comment})
	}
	return cmd, nil
}

type helloReply struct {
	MaxBSONObjectSize int `bson:"maxBsonObjectSize"`
	MaxWriteBatchSize int `bson:"maxWriteBatchSize"`
}

// Limits asks the server for its batch limits. Limits it does not report are left at zero,
// which a bulk operation treats as the default.
func (t *Transport) Limits(ctx context.Context) (bulk.Limits, error) {
	raw, err := t.runner.RunCommand(ctx, "admin", bson.D{{Key: "hello", Value: 1}})
	if err != nil {
		return bulk.Limits{}, pkgerrors.Wrap(err, "running hello")
	}
	var hr helloReply
	if err = bson.Unmarshal(raw, &hr); err != nil {
		return bulk.Limits{}, pkgerrors.Wrap(err, "decoding hello reply")
	}
	return bulk.Limits{MaxBSONObjectSize: hr.MaxBSONObjectSize, MaxWriteBatchSize: hr.MaxWriteBatchSize}, nil
}
