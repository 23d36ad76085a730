// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bulk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNamespace(t *testing.T) {
	ns, err := NewNamespace("shop", "orders.archive")
	require.NoError(t, err)
	require.Equal(t, Namespace{DB: "shop", Collection: "orders.archive"}, ns)
	require.Equal(t, "shop.orders.archive", ns.FullName())
	require.Equal(t, ns.FullName(), ns.String())

	for _, tc := range [][2]string{
		{"orders.archive", "shop"},
		{"sh op", "orders"},
		{"shop", ""},
		{"", "orders"},
	} {
		_, err = NewNamespace(tc[0], tc[1])
		require.Error(t, err, "%q %q", tc[0], tc[1])
	}
}

func TestParseNamespace(t *testing.T) {
	ns, err := ParseNamespace("shop.orders.archive")
	require.NoError(t, err)
	require.Equal(t, "shop", ns.DB)
	require.Equal(t, "orders.archive", ns.Collection)

	for _, s := range []string{"shop", ".orders", "shop.", "sh op.orders"} {
		_, err = ParseNamespace(s)
		require.Error(t, err, s)
	}
}
