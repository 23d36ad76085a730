// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// WriteModel is the interface satisfied by all models for bulk writes.
type WriteModel interface {
	operations(gen IDGenerator) ([]Operation, writeBacks, error)
}

// InsertOneModel is the write model for insert operations.
type InsertOneModel struct {
	Document interface{}
}

// NewInsertOneModel creates a new InsertOneModel.
func NewInsertOneModel() *InsertOneModel {
	return &InsertOneModel{}
}

// SetDocument sets the document to insert. If the document has no _id, one is generated when
// the model is appended and Document is replaced with a bson.D carrying it.
func (iom *InsertOneModel) SetDocument(doc interface{}) *InsertOneModel {
	iom.Document = doc
	return iom
}

func (iom *InsertOneModel) operations(gen IDGenerator) ([]Operation, writeBacks, error) {
	doc, err := transformDocument(iom.Document)
	if err != nil {
		return nil, nil, err
	}
	doc, id := ensureID(doc, gen)
	return []Operation{newInsert(doc, id)}, writeBacks{func() { iom.Document = doc }}, nil
}

// InsertManyModel expands into one insert operation per document.
type InsertManyModel struct {
	Documents []interface{}
}

// NewInsertManyModel creates a new InsertManyModel.
func NewInsertManyModel() *InsertManyModel {
	return &InsertManyModel{}
}

// SetDocuments sets the documents to insert. Documents without an _id are replaced with a
// bson.D carrying the generated one.
func (imm *InsertManyModel) SetDocuments(docs ...interface{}) *InsertManyModel {
	imm.Documents = docs
	return imm
}

func (imm *InsertManyModel) operations(gen IDGenerator) ([]Operation, writeBacks, error) {
	if len(imm.Documents) == 0 {
		return nil, nil, errors.New("insertMany requires at least one document")
	}

	docs := make([]bson.D, len(imm.Documents))
	for i, d := range imm.Documents {
		doc, err := transformDocument(d)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "document %d", i)
		}
		docs[i] = doc
	}

	ops := make([]Operation, len(docs))
	for i, doc := range docs {
		doc, id := ensureID(doc, gen)
		ops[i] = newInsert(doc, id)
	}
	wb := writeBacks{func() {
		for i, op := range ops {
			imm.Documents[i] = op.Payload
		}
	}}
	return ops, wb, nil
}

// DeleteOneModel is the write model for delete operations.
type DeleteOneModel struct {
	Filter interface{}
}

// NewDeleteOneModel creates a new DeleteOneModel.
func NewDeleteOneModel() *DeleteOneModel {
	return &DeleteOneModel{}
}

// SetFilter sets the filter for the DeleteOneModel.
func (dom *DeleteOneModel) SetFilter(filter interface{}) *DeleteOneModel {
	dom.Filter = filter
	return dom
}

func (dom *DeleteOneModel) operations(IDGenerator) ([]Operation, writeBacks, error) {
	op, err := newDelete(dom.Filter, false)
	if err != nil {
		return nil, nil, err
	}
	return []Operation{op}, nil, nil
}

// DeleteManyModel is the write model for deleteMany operations.
type DeleteManyModel struct {
	Filter interface{}
}

// NewDeleteManyModel creates a new DeleteManyModel.
func NewDeleteManyModel() *DeleteManyModel {
	return &DeleteManyModel{}
}

// SetFilter sets the filter for the DeleteManyModel.
func (dmm *DeleteManyModel) SetFilter(filter interface{}) *DeleteManyModel {
	dmm.Filter = filter
	return dmm
}

func (dmm *DeleteManyModel) operations(IDGenerator) ([]Operation, writeBacks, error) {
	op, err := newDelete(dmm.Filter, true)
	if err != nil {
		return nil, nil, err
	}
	return []Operation{op}, nil, nil
}

// ReplaceOneModel is the write model for replace operations.
type ReplaceOneModel struct {
	Filter      interface{}
	Replacement interface{}
	Upsert      *bool
}

// NewReplaceOneModel creates a new ReplaceOneModel.
func NewReplaceOneModel() *ReplaceOneModel {
	return &ReplaceOneModel{}
}

// SetFilter sets the filter for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetFilter(filter interface{}) *ReplaceOneModel {
	rom.Filter = filter
	return rom
}

// SetReplacement sets the replacement document for the ReplaceOneModel.
func (rom *ReplaceOneModel) SetReplacement(rep interface{}) *ReplaceOneModel {
	rom.Replacement = rep
	return rom
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (rom *ReplaceOneModel) SetUpsert(upsert bool) *ReplaceOneModel {
	rom.Upsert = &upsert
	return rom
}

func (rom *ReplaceOneModel) operations(IDGenerator) ([]Operation, writeBacks, error) {
	op, err := newUpdate(rom.Filter, rom.Replacement, nil, false, isTrue(rom.Upsert), true)
	if err != nil {
		return nil, nil, err
	}
	return []Operation{op}, nil, nil
}

// UpdateOneModel is the write model for update operations.
type UpdateOneModel struct {
	Filter       interface{}
	Update       interface{}
	ArrayFilters []interface{}
	Upsert       *bool
}

// NewUpdateOneModel creates a new UpdateOneModel.
func NewUpdateOneModel() *UpdateOneModel {
	return &UpdateOneModel{}
}

// SetFilter sets the filter for the UpdateOneModel.
func (uom *UpdateOneModel) SetFilter(filter interface{}) *UpdateOneModel {
	uom.Filter = filter
	return uom
}

// SetUpdate sets the update document for the UpdateOneModel.
func (uom *UpdateOneModel) SetUpdate(update interface{}) *UpdateOneModel {
	uom.Update = update
	return uom
}

// SetArrayFilters specifies a set of filters specifying to which array elements an update should apply.
func (uom *UpdateOneModel) SetArrayFilters(filters ...interface{}) *UpdateOneModel {
	uom.ArrayFilters = filters
	return uom
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (uom *UpdateOneModel) SetUpsert(upsert bool) *UpdateOneModel {
	uom.Upsert = &upsert
	return uom
}

func (uom *UpdateOneModel) operations(IDGenerator) ([]Operation, writeBacks, error) {
	op, err := newUpdate(uom.Filter, uom.Update, uom.ArrayFilters, false, isTrue(uom.Upsert), false)
	if err != nil {
		return nil, nil, err
	}
	return []Operation{op}, nil, nil
}

// UpdateManyModel is the write model for updateMany operations.
type UpdateManyModel struct {
	Filter       interface{}
	Update       interface{}
	ArrayFilters []interface{}
	Upsert       *bool
}

// NewUpdateManyModel creates a new UpdateManyModel.
func NewUpdateManyModel() *UpdateManyModel {
	return &UpdateManyModel{}
}

// SetFilter sets the filter for the UpdateManyModel.
func (umm *UpdateManyModel) SetFilter(filter interface{}) *UpdateManyModel {
	umm.Filter = filter
	return umm
}

// SetUpdate sets the update document for the UpdateManyModel.
func (umm *UpdateManyModel) SetUpdate(update interface{}) *UpdateManyModel {
	umm.Update = update
	return umm
}

// SetArrayFilters specifies a set of filters specifying to which array elements an update should apply.
func (umm *UpdateManyModel) SetArrayFilters(filters ...interface{}) *UpdateManyModel {
	umm.ArrayFilters = filters
	return umm
}

// SetUpsert specifies if a new document should be created if no document matches the query.
func (umm *UpdateManyModel) SetUpsert(upsert bool) *UpdateManyModel {
	umm.Upsert = &upsert
	return umm
}

func (umm *UpdateManyModel) operations(IDGenerator) ([]Operation, writeBacks, error) {
	op, err := newUpdate(umm.Filter, umm.Update, umm.ArrayFilters, true, isTrue(umm.Upsert), false)
	if err != nil {
		return nil, nil, err
	}
	return []Operation{op}, nil, nil
}

func isTrue(b *bool) bool { return b != nil && *b }
