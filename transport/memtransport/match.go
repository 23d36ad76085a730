// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package memtransport

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ikmak/mongo-bulkwrite/bulk"
)

// Server error codes reported as write errors.
const (
	BadValueCode     = 2
	FailedToParse    = 9
	ImmutableIDCode  = 66
	TypeMismatchCode = 14
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string { return e.msg }

func newCodedError(code int, format string, args ...interface{}) error {
	return codedError{code: code, msg: fmt.Sprintf(format, args...)}
}

func codeOf(err error) int {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return BadValueCode
}

func lookup(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func set(doc bson.D, key string, v interface{}) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = v
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: v})
}

func unset(doc bson.D, key string) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			return append(doc[:i:i], doc[i+1:]...)
		}
	}
	return doc
}

func copyDoc(doc bson.D) bson.D {
	return append(bson.D(nil), doc...)
}

// asDoc converts the document forms found in command payloads into a bson.D.
func asDoc(v interface{}) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		d := make(bson.D, 0, len(t))
		for k, v := range t {
			d = append(d, bson.E{Key: k, Value: v})
		}
		return d, true
	case map[string]interface{}:
		return asDoc(bson.M(t))
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(t, &d); err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func filterOf(stmt bson.D) (bson.D, error) {
	q, ok := lookup(stmt, "q")
	if !ok {
		return nil, newCodedError(FailedToParse, "missing q in write statement")
	}
	filter, ok := asDoc(q)
	if !ok {
		return nil, newCodedError(TypeMismatchCode, "q must be a document")
	}
	return filter, nil
}

// matches reports whether every field of filter equals the same field of doc. Operator
// expressions are not evaluated; only $eq is understood.
func matches(doc, filter bson.D) bool {
	for _, f := range filter {
		want := f.Value
		if expr, ok := asDoc(want); ok && len(expr) == 1 && expr[0].Key == "$eq" {
			want = expr[0].Value
		}
		got, ok := lookup(doc, f.Key)
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) == toFloat(b)
	}
	if da, ok := asDoc(a); ok {
		db, ok := asDoc(b)
		if !ok || len(da) != len(db) {
			return false
		}
		for i := range da {
			if da[i].Key != db[i].Key || !valuesEqual(da[i].Value, db[i].Value) {
				return false
			}
		}
		return true
	}
	if oa, ok := a.(primitive.ObjectID); ok {
		ob, ok := b.(primitive.ObjectID)
		return ok && oa == ob
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32, float32, float64:
		return true
	}
	return false
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// applyUpdate runs one update statement against coll and folds its outcome into reply.
func applyUpdate(coll []bson.D, index int, stmt bson.D, reply *bulk.Reply) ([]bson.D, error) {
	filter, err := filterOf(stmt)
	if err != nil {
		return coll, err
	}
	u, ok := lookup(stmt, "u")
	if !ok {
		return coll, newCodedError(FailedToParse, "missing u in update statement")
	}
	update, ok := asDoc(u)
	if !ok {
		return coll, newCodedError(TypeMismatchCode, "u must be a document")
	}
	multi, _ := lookup(stmt, "multi")
	upsert, _ := lookup(stmt, "upsert")
	replace := len(update) == 0 || !strings.HasPrefix(update[0].Key, "$")

	matched := int64(0)
	for i, doc := range coll {
		if !matches(doc, filter) {
			continue
		}
		next, err := apply(doc, update, replace)
		if err != nil {
			return coll, err
		}
		matched++
		if !valuesEqual(doc, next) {
			coll[i] = next
			reply.NModified++
		}
		if m, _ := multi.(bool); !m {
			break
		}
	}
	if matched > 0 {
		reply.N += matched
		return coll, nil
	}

	if up, _ := upsert.(bool); !up {
		return coll, nil
	}

	var seed bson.D
	if !replace {
		for _, f := range filter {
			if strings.HasPrefix(f.Key, "$") {
				continue
			}
			if expr, ok := asDoc(f.Value); ok && len(expr) > 0 && strings.HasPrefix(expr[0].Key, "$") {
				continue
			}
			seed = append(seed, f)
		}
	} else if id, ok := lookup(filter, "_id"); ok {
		seed = bson.D{{Key: "_id", Value: id}}
	}
	doc, err := apply(seed, update, replace)
	if err != nil {
		return coll, err
	}
	id, ok := lookup(doc, "_id")
	if !ok {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}
	coll = append(coll, doc)
	reply.N++
	reply.Upserted = append(reply.Upserted, bulk.ReplyUpsert{Index: index, ID: id})
	return coll, nil
}

// apply returns a modified copy of doc.
func apply(doc, update bson.D, replace bool) (bson.D, error) {
	id, hasID := lookup(doc, "_id")
	if replace {
		if newID, ok := lookup(update, "_id"); ok && hasID && !valuesEqual(id, newID) {
			return nil, newCodedError(ImmutableIDCode, "the (immutable) field '_id' was found to have been altered")
		}
		out := make(bson.D, 0, len(update)+1)
		if hasID {
			out = append(out, bson.E{Key: "_id", Value: id})
		}
		for _, e := range update {
			if e.Key != "_id" {
				out = append(out, e)
			}
		}
		return out, nil
	}

	out := copyDoc(doc)
	for _, op := range update {
		fields, ok := asDoc(op.Value)
		if !ok {
			return nil, newCodedError(FailedToParse, "modifiers for %s must be a document", op.Key)
		}
		for _, f := range fields {
			if f.Key == "_id" {
				return nil, newCodedError(ImmutableIDCode, "performing an update on the path '_id' would modify the immutable field '_id'")
			}
			switch op.Key {
			case "$set":
				out = set(out, f.Key, f.Value)
			case "$unset":
				out = unset(out, f.Key)
			case "$inc":
				if !isNumber(f.Value) {
					return nil, newCodedError(TypeMismatchCode, "cannot increment with non-numeric argument: {%s: %v}", f.Key, f.Value)
				}
				cur, ok := lookup(out, f.Key)
				if !ok {
					out = set(out, f.Key, f.Value)
					continue
				}
				if !isNumber(cur) {
					return nil, newCodedError(TypeMismatchCode, "cannot apply $inc to a value of non-numeric type")
				}
				out = set(out, f.Key, increment(cur, f.Value))
			default:
				return nil, newCodedError(FailedToParse, "unknown modifier: %s", op.Key)
			}
		}
	}
	return out, nil
}

func increment(cur, by interface{}) interface{} {
	switch c := cur.(type) {
	case int32:
		if b, ok := by.(int32); ok {
			return c + b
		}
	case int64:
		switch b := by.(type) {
		case int32:
			return c + int64(b)
		case int64:
			return c + b
		}
	case int:
		if b, ok := by.(int); ok {
			return c + b
		}
	}
	return toFloat(cur) + toFloat(by)
}
