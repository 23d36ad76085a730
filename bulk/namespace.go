// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"errors"
	"strings"
)

// Namespace identifies the collection a bulk operation writes to.
type Namespace struct {
	DB         string
	Collection string
}

// ParseNamespace parses a namespace string into a Namespace.
//
// The namespace string must contain at least one ".", the first of which is the separator
// between the database and collection names. After the namespace string is split,
// the rules in NewNamespace are applied.
func ParseNamespace(fullName string) (Namespace, error) {
	idx := strings.Index(fullName, ".")
	if idx == -1 {
		return Namespace{}, errors.New("namespace must contain a '.'")
	}

	return NewNamespace(fullName[:idx], fullName[idx+1:])
}

// NewNamespace creates a Namespace from the given database and collection names.
//
// Neither can be empty, and the database name may not contain a "." or " " character.
func NewNamespace(db, collection string) (Namespace, error) {
	switch {
	case collection == "":
		return Namespace{}, errors.New("collection name cannot be empty")
	case db == "":
		return Namespace{}, errors.New("database name cannot be empty")
	case strings.Contains(db, " "):
		return Namespace{}, errors.New("database name cannot contain ' '")
	case strings.Contains(db, "."):
		return Namespace{}, errors.New("database name cannot contain '.'")
	}

	return Namespace{DB: db, Collection: collection}, nil
}

// FullName returns the database and collection names joined by a ".".
func (ns Namespace) FullName() string {
	return ns.DB + "." + ns.Collection
}

func (ns Namespace) String() string { return ns.FullName() }
