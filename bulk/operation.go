// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind is the write command an operation or a batch is sent with.
type Kind int

// These constants are the kinds of write commands.
const (
	InsertKind Kind = iota + 1
	UpdateKind
	DeleteKind
)

// String returns the command name for the kind.
func (k Kind) String() string {
	switch k {
	case InsertKind:
		return "insert"
	case UpdateKind:
		return "update"
	case DeleteKind:
		return "delete"
	}
	return "unknown"
}

// IDGenerator produces the _id of documents inserted without one.
type IDGenerator func() interface{}

// NewObjectID is the default IDGenerator.
func NewObjectID() interface{} { return primitive.NewObjectID() }

// Operation is a normalized write. Its Payload is the document as it will appear in the
// command's documents, updates or deletes array.
type Operation struct {
	Kind          Kind   `bson:"kind"`
	Payload       bson.D `bson:"payload"`
	OriginalIndex int    `bson:"index"`
	Size          int    `bson:"-"`

	// InsertedID is the _id of an insert, whether it was supplied or generated.
	InsertedID interface{} `bson:"-"`
}

// writeBacks are the _id assignments to a caller's documents. They are applied only after every
// operation normalized alongside them has been accepted.
type writeBacks []func()

func (w writeBacks) apply() {
	for _, f := range w {
		if f != nil {
			f()
		}
	}
}

func newInsert(doc bson.D, id interface{}) Operation {
	return Operation{Kind: InsertKind, Payload: doc, InsertedID: id}
}

func newUpdate(filter, update interface{}, arrayFilters []interface{}, multi, upsert, replace bool) (Operation, error) {
	q, err := transformDocument(filter)
	if err != nil {
		return Operation{}, errors.Wrap(err, "filter")
	}
	u, err := transformDocument(update)
	if err != nil {
		return Operation{}, errors.Wrap(err, "update")
	}
	if replace {
		err = ensureNoDollarKey(u)
	} else {
		err = ensureDollarKey(u)
	}
	if err != nil {
		return Operation{}, err
	}

	doc := bson.D{
		{Key: "q", Value: q},
		{Key: "u", Value: u},
		{Key: "multi", Value: multi},
	}
	if len(arrayFilters) > 0 {
		arr := make(bson.A, 0, len(arrayFilters))
		for _, f := range arrayFilters {
			d, err := transformDocument(f)
			if err != nil {
				return Operation{}, errors.Wrap(err, "arrayFilters")
			}
			arr = append(arr, d)
		}
		doc = append(doc, bson.E{Key: "arrayFilters", Value: arr})
	}
	if upsert {
		doc = append(doc, bson.E{Key: "upsert", Value: true})
	}

	return Operation{Kind: UpdateKind, Payload: doc}, nil
}

func newDelete(filter interface{}, many bool) (Operation, error) {
	q, err := transformDocument(filter)
	if err != nil {
		return Operation{}, errors.Wrap(err, "filter")
	}

	var limit int32 = 1
	if many {
		limit = 0
	}

	return Operation{Kind: DeleteKind, Payload: bson.D{
		{Key: "q", Value: q},
		{Key: "limit", Value: limit},
	}}, nil
}

// transformDocument converts anything the bson package can marshal into a bson.D.
func transformDocument(document interface{}) (bson.D, error) {
	switch t := document.(type) {
	case nil:
		return nil, ErrNilDocument
	case bson.D:
		return t, nil
	case bson.Raw:
		var d bson.D
		err := bson.Unmarshal(t, &d)
		return d, err
	case []byte:
		var d bson.D
		err := bson.Unmarshal(t, &d)
		return d, err
	}
	if isArray(document) {
		return nil, ErrArrayDocument
	}

	b, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err = bson.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// ensureID returns doc with an _id as its first element when it has none, along with the id.
func ensureID(doc bson.D, gen IDGenerator) (bson.D, interface{}) {
	for _, e := range doc {
		if e.Key == "_id" {
			return doc, e.Value
		}
	}

	id := gen()
	out := make(bson.D, 0, len(doc)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	return append(out, doc...), id
}

func ensureDollarKey(doc bson.D) error {
	if len(doc) == 0 || !strings.HasPrefix(doc[0].Key, "$") {
		return ErrUpdateDocument
	}
	return nil
}

func ensureNoDollarKey(doc bson.D) error {
	for _, e := range doc {
		if strings.HasPrefix(e.Key, "$") {
			return ErrReplacementDocument
		}
	}
	return nil
}

func documentSize(doc bson.D) (int, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// isArray reports whether v is a list of values rather than a document.
func isArray(v interface{}) bool {
	switch v.(type) {
	case nil, bson.D, bson.Raw, []byte:
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
