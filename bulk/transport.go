// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// WriteOptions are forwarded with every write command.
type WriteOptions struct {
	Ordered                  bool
	WriteConcern             *writeconcern.WriteConcern
	BypassDocumentValidation *bool
	Comment                  interface{}
}

// Transport sends one write command and returns the server's reply. An error means the
// command produced no usable reply: a network fault, a protocol error or a failed command.
// Write errors for individual documents are reported in the Reply.
//
// A Transport may be called concurrently by an unordered bulk operation.
type Transport interface {
	Insert(ctx context.Context, ns Namespace, documents []bson.D, opts WriteOptions) (*Reply, error)
	Update(ctx context.Context, ns Namespace, updates []bson.D, opts WriteOptions) (*Reply, error)
	Delete(ctx context.Context, ns Namespace, deletes []bson.D, opts WriteOptions) (*Reply, error)
}

// Reply is the reply to an insert, update or delete command.
type Reply struct {
	N                 int64              `bson:"n"`
	NModified         int64              `bson:"nModified"`
	Upserted          []ReplyUpsert      `bson:"upserted,omitempty"`
	WriteErrors       []WriteError       `bson:"writeErrors,omitempty"`
	WriteConcernError *WriteConcernError `bson:"writeConcernError,omitempty"`
}

// ReplyUpsert is one entry of an update reply's upserted array. Index is relative to the batch.
type ReplyUpsert struct {
	Index int         `bson:"index"`
	ID    interface{} `bson:"_id"`
}

type commandReply struct {
	OK       float64 `bson:"ok"`
	Code     int32   `bson:"code"`
	CodeName string  `bson:"codeName"`
	ErrMsg   string  `bson:"errmsg"`
	Reply    `bson:",inline"`
}

// DecodeReply decodes a raw write command reply. A reply with ok: 0 is returned as a
// CommandError.
func DecodeReply(raw bson.Raw) (*Reply, error) {
	var cr commandReply
	if err := bson.Unmarshal(raw, &cr); err != nil {
		return nil, errors.Wrap(err, "decoding write command reply")
	}
	if cr.OK == 0 {
		return nil, CommandError{Code: cr.Code, Message: cr.ErrMsg, Name: cr.CodeName}
	}
	return &cr.Reply, nil
}

func dispatch(ctx context.Context, t Transport, ns Namespace, b *Batch, opts WriteOptions) (*Reply, error) {
	docs := b.Documents()
	switch b.Kind {
	case InsertKind:
		return t.Insert(ctx, ns, docs, opts)
	case UpdateKind:
		return t.Update(ctx, ns, docs, opts)
	case DeleteKind:
		return t.Delete(ctx, ns, docs, opts)
	}
	return nil, errors.Errorf("unknown batch kind %d", b.Kind)
}
