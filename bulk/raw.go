// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"reflect"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// rawDoc is a loosely typed document from an operation description. Values written with set
// are visible to the caller that owns the underlying map or slice.
type rawDoc interface {
	keys() []string
	lookup(key string) (interface{}, bool)
	set(key string, v interface{})
}

type mapDoc map[string]interface{}

func (m mapDoc) keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (m mapDoc) lookup(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapDoc) set(key string, v interface{}) { m[key] = v }

type sliceDoc primitive.D

func (d sliceDoc) keys() []string {
	out := make([]string, 0, len(d))
	for _, e := range d {
		out = append(out, e.Key)
	}
	return out
}

func (d sliceDoc) lookup(key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// set only replaces existing elements, which share the caller's backing array.
func (d sliceDoc) set(key string, v interface{}) {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = v
			return
		}
	}
}

func asRawDoc(v interface{}) (rawDoc, bool) {
	switch t := v.(type) {
	case primitive.M:
		return mapDoc(t), true
	case map[string]interface{}:
		return mapDoc(t), true
	case primitive.D:
		return sliceDoc(t), true
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(t, &d); err != nil {
			return nil, false
		}
		return sliceDoc(d), true
	}
	return nil, false
}

// normalizeRaw converts one operation description into canonical operations. Both the
// legacy shapes (q, u, multi, limit) and the CRUD shapes (filter, update, replacement,
// upsert) are accepted. Inserted documents without an _id receive one; the returned writeBacks
// store it into the description and must only be applied once the operations are accepted.
func normalizeRaw(desc interface{}, gen IDGenerator) ([]Operation, writeBacks, error) {
	top, ok := asRawDoc(desc)
	if !ok {
		return nil, nil, ErrUnsupportedOperation
	}
	keys := top.keys()
	if len(keys) != 1 {
		return nil, nil, ErrUnsupportedOperation
	}
	name := keys[0]
	val, _ := top.lookup(name)

	switch name {
	case "insertOne":
		return rawInsertOne(top, name, val, gen)
	case "insertMany":
		return rawInsertMany(val, gen)
	case "updateOne", "updateMany", "replaceOne":
		body, ok := asRawDoc(val)
		if !ok {
			return nil, nil, ErrUnsupportedOperation
		}
		op, err := rawUpdate(name, body)
		if err != nil {
			return nil, nil, err
		}
		return []Operation{op}, nil, nil
	case "deleteOne", "deleteMany", "removeOne", "removeMany":
		body, ok := asRawDoc(val)
		if !ok {
			return nil, nil, ErrUnsupportedOperation
		}
		query, ok := body.lookup("q")
		if !ok {
			if query, ok = body.lookup("filter"); !ok {
				return nil, nil, ErrUnsupportedOperation
			}
		}
		op, err := newDelete(query, name == "deleteMany" || name == "removeMany")
		if err != nil {
			return nil, nil, err
		}
		return []Operation{op}, nil, nil
	}

	return nil, nil, ErrUnsupportedOperation
}

func rawInsertOne(top rawDoc, name string, val interface{}, gen IDGenerator) ([]Operation, writeBacks, error) {
	if isArray(val) {
		return nil, nil, ErrArrayDocument
	}

	parent, key, doc := top, name, val
	if body, ok := asRawDoc(val); ok {
		if d, ok := body.lookup("document"); ok {
			if isArray(d) {
				return nil, nil, ErrArrayDocument
			}
			parent, key, doc = body, "document", d
		}
	}

	payload, id, wb, err := ensureRawID(doc, gen, func(stored interface{}) { parent.set(key, stored) })
	if err != nil {
		return nil, nil, err
	}
	return []Operation{newInsert(payload, id)}, writeBacks{wb}, nil
}

func rawInsertMany(val interface{}, gen IDGenerator) ([]Operation, writeBacks, error) {
	if !isArray(val) {
		return nil, nil, ErrUnsupportedOperation
	}
	rv := reflect.ValueOf(val)
	if rv.Len() == 0 {
		return nil, nil, errors.New("insertMany requires at least one document")
	}

	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if elem == nil {
			return nil, nil, errors.Wrapf(ErrNilDocument, "document %d", i)
		}
		if isArray(elem) {
			return nil, nil, errors.Wrapf(ErrArrayDocument, "document %d", i)
		}
	}

	ops := make([]Operation, 0, rv.Len())
	wbs := make(writeBacks, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		slot := rv.Index(i)
		payload, id, wb, err := ensureRawID(slot.Interface(), gen, func(stored interface{}) {
			sv := reflect.ValueOf(stored)
			if slot.CanSet() && sv.Type().AssignableTo(slot.Type()) {
				slot.Set(sv)
			}
		})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "document %d", i)
		}
		ops = append(ops, newInsert(payload, id))
		wbs = append(wbs, wb)
	}
	return ops, wbs, nil
}

// ensureRawID returns the insert payload for doc with an _id as its first element. doc itself
// is left untouched. When an _id was generated, the returned func records it in the caller's
// document: maps get the key, documents held as a bson.D are replaced through store.
func ensureRawID(doc interface{}, gen IDGenerator, store func(stored interface{})) (payload bson.D, id interface{}, wb func(), err error) {
	switch t := doc.(type) {
	case primitive.M:
		return ensureMapID(t, gen)
	case map[string]interface{}:
		return ensureMapID(t, gen)
	case primitive.D:
		payload, id = ensureID(t, gen)
		if len(payload) != len(t) {
			wb = func() { store(payload) }
		}
		return payload, id, wb, nil
	}

	payload, err = transformDocument(doc)
	if err != nil {
		return nil, nil, nil, err
	}
	payload, id = ensureID(payload, gen)
	return payload, id, nil, nil
}

func ensureMapID(m map[string]interface{}, gen IDGenerator) (bson.D, interface{}, func(), error) {
	payload, err := transformDocument(m)
	if err != nil {
		return nil, nil, nil, err
	}
	if id, ok := m["_id"]; ok {
		return moveIDFirst(payload), id, nil, nil
	}
	payload, id := ensureID(payload, gen)
	return payload, id, func() { m["_id"] = id }, nil
}

func moveIDFirst(doc bson.D) bson.D {
	for i, e := range doc {
		if e.Key != "_id" {
			continue
		}
		if i == 0 {
			return doc
		}
		out := make(bson.D, 0, len(doc))
		out = append(out, e)
		out = append(out, doc[:i]...)
		return append(out, doc[i+1:]...)
	}
	return doc
}

func rawUpdate(name string, body rawDoc) (Operation, error) {
	multi := name == "updateMany"
	replace := name == "replaceOne"

	var filter, update interface{}
	var ok bool
	if filter, ok = body.lookup("q"); ok {
		if update, ok = body.lookup("u"); !ok {
			return Operation{}, ErrUnsupportedOperation
		}
	} else {
		if filter, ok = body.lookup("filter"); !ok {
			return Operation{}, ErrUnsupportedOperation
		}
		field := "update"
		if replace {
			field = "replacement"
		}
		if update, ok = body.lookup(field); !ok {
			return Operation{}, ErrUnsupportedOperation
		}
	}

	var upsert bool
	if v, ok := body.lookup("upsert"); ok {
		upsert, _ = v.(bool)
	}

	var arrayFilters []interface{}
	if v, ok := body.lookup("arrayFilters"); ok && isArray(v) {
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			arrayFilters = append(arrayFilters, rv.Index(i).Interface())
		}
	}

	return newUpdate(filter, update, arrayFilters, multi, upsert, replace)
}
