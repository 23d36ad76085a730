// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package memtransport is a bulk.Transport that applies write commands to in-memory
// collections. It follows the server's reply format and supports equality filters and the
// $set, $unset and $inc update operators.
package memtransport

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ikmak/mongo-bulkwrite/bulk"
)

// DuplicateKeyCode is the code of the write error reported for a duplicate _id.
const DuplicateKeyCode = 11000

// Command is a write command received by the Server.
type Command struct {
	Kind         bulk.Kind
	NS           string
	Documents    int
	Ordered      bool
	WriteConcern *writeconcern.WriteConcern
}

// Server holds the in-memory collections. It is safe for concurrent use.
type Server struct {
	mu          sync.Mutex
	collections map[string][]bson.D
	limits      bulk.Limits
	failures    map[bulk.Kind][]error
	wce         *bulk.WriteConcernError
	commands    []Command
}

var _ bulk.Transport = (*Server)(nil)

// New creates an empty Server advertising the given limits.
func New(limits bulk.Limits) *Server {
	return &Server{
		collections: make(map[string][]bson.D),
		limits:      limits,
		failures:    make(map[bulk.Kind][]error),
	}
}

// Limits returns the limits the Server advertises.
func (s *Server) Limits() bulk.Limits { return s.limits }

// FailNext makes the next command of the given kind fail with err before any document is
// applied. Calls queue up.
func (s *Server) FailNext(kind bulk.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] = append(s.failures[kind], err)
}

// SetWriteConcernError attaches wce to the reply of every following command. nil clears it.
func (s *Server) SetWriteConcernError(wce *bulk.WriteConcernError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wce = wce
}

// Commands returns the commands received so far, in arrival order.
func (s *Server) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.commands...)
}

// Documents returns a copy of the documents in ns, in insertion order.
func (s *Server) Documents(ns bulk.Namespace) []bson.D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bson.D(nil), s.collections[ns.FullName()]...)
}

// Seed inserts documents into ns without going through a command.
func (s *Server) Seed(ns bulk.Namespace, docs ...bson.D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[ns.FullName()] = append(s.collections[ns.FullName()], docs...)
}

// begin records the command and returns the injected failure for it, if any.
func (s *Server) begin(kind bulk.Kind, ns bulk.Namespace, n int, opts bulk.WriteOptions) error {
	s.commands = append(s.commands, Command{
		Kind:         kind,
		NS:           ns.FullName(),
		Documents:    n,
		Ordered:      opts.Ordered,
		WriteConcern: opts.WriteConcern,
	})
	if q := s.failures[kind]; len(q) > 0 {
		s.failures[kind] = q[1:]
		return q[0]
	}
	return nil
}

func (s *Server) finish(reply *bulk.Reply) *bulk.Reply {
	if s.wce != nil {
		wce := *s.wce
		reply.WriteConcernError = &wce
	}
	return reply
}

// Insert implements bulk.Transport.
func (s *Server) Insert(ctx context.Context, ns bulk.Namespace, documents []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(bulk.InsertKind, ns, len(documents), opts); err != nil {
		return nil, err
	}

	coll := s.collections[ns.FullName()]
	reply := &bulk.Reply{}
	for i, doc := range documents {
		id, ok := lookup(doc, "_id")
		if !ok {
			id = primitive.NewObjectID()
			doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
		}
		if findByID(coll, id) >= 0 {
			reply.WriteErrors = append(reply.WriteErrors, bulk.WriteError{
				Index:   i,
				Code:    DuplicateKeyCode,
				Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %v }", ns.FullName(), id),
			})
			if opts.Ordered {
				break
			}
			continue
		}
		coll = append(coll, copyDoc(doc))
		reply.N++
	}
	s.collections[ns.FullName()] = coll

	return s.finish(reply), nil
}

// Update implements bulk.Transport.
func (s *Server) Update(ctx context.Context, ns bulk.Namespace, updates []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(bulk.UpdateKind, ns, len(updates), opts); err != nil {
		return nil, err
	}

	coll := s.collections[ns.FullName()]
	reply := &bulk.Reply{}
	for i, stmt := range updates {
		var err error
		coll, err = applyUpdate(coll, i, stmt, reply)
		if err != nil {
			reply.WriteErrors = append(reply.WriteErrors, bulk.WriteError{Index: i, Code: codeOf(err), Message: err.Error()})
			if opts.Ordered {
				break
			}
		}
	}
	s.collections[ns.FullName()] = coll

	return s.finish(reply), nil
}

// Delete implements bulk.Transport.
func (s *Server) Delete(ctx context.Context, ns bulk.Namespace, deletes []bson.D, opts bulk.WriteOptions) (*bulk.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(bulk.DeleteKind, ns, len(deletes), opts); err != nil {
		return nil, err
	}

	coll := s.collections[ns.FullName()]
	reply := &bulk.Reply{}
	for i, stmt := range deletes {
		filter, err := filterOf(stmt)
		if err != nil {
			reply.WriteErrors = append(reply.WriteErrors, bulk.WriteError{Index: i, Code: codeOf(err), Message: err.Error()})
			if opts.Ordered {
				break
			}
			continue
		}
		limit, _ := lookup(stmt, "limit")
		one := toFloat(limit) == 1

		kept := coll[:0:0]
		removed := int64(0)
		for _, doc := range coll {
			if (!one || removed == 0) && matches(doc, filter) {
				removed++
				continue
			}
			kept = append(kept, doc)
		}
		coll = kept
		reply.N += removed
	}
	s.collections[ns.FullName()] = coll

	return s.finish(reply), nil
}

func findByID(coll []bson.D, id interface{}) int {
	for i, doc := range coll {
		if v, ok := lookup(doc, "_id"); ok && valuesEqual(v, id) {
			return i
		}
	}
	return -1
}
