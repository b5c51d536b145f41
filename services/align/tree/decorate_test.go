// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Input[string] {
	// r
	// ├── a
	// │   ├── c
	// │   └── d
	// └── b
	return N("r", N("a", N("c"), N("d")), N("b"))
}

func TestDecorate_PostOrderIndices(t *testing.T) {
	tr, err := Decorate(sample())
	require.NoError(t, err)

	labels := make([]string, 0, tr.Size())
	for _, n := range tr.PostOrder() {
		labels = append(labels, n.Label)
	}
	assert.Equal(t, []string{"c", "d", "a", "b", "r"}, labels)

	for i, n := range tr.PostOrder() {
		assert.Equal(t, uint32(i), n.Index)
		for _, c := range n.Children {
			assert.Less(t, c.Index, n.Index, "child %s must precede %s", c.Label, n.Label)
		}
	}
}

func TestDecorate_DepthDegreeSiblingBits(t *testing.T) {
	tr := MustDecorate(sample())
	root := tr.Root()

	assert.True(t, root.IsRoot())
	assert.Equal(t, uint16(0), root.Depth)
	assert.Equal(t, uint8(2), root.Degree)
	assert.Equal(t, uint32(0b11), root.ChildMask())

	a, b := root.Children[0], root.Children[1]
	assert.Equal(t, uint32(1), a.SiblingBit)
	assert.Equal(t, uint32(2), b.SiblingBit)
	assert.Equal(t, uint16(1), a.Depth)
	assert.True(t, b.IsLeaf())

	c := a.Children[0]
	assert.Equal(t, uint16(2), c.Depth)
	assert.Same(t, a, c.Parent)
	assert.Same(t, root, c.Ancestor(2))
	assert.Nil(t, c.Ancestor(3))

	assert.Equal(t, 2, tr.Height(root))
	assert.Equal(t, 1, tr.Height(a))
	assert.Equal(t, 0, tr.Height(b))
	assert.Equal(t, 2, tr.MaxDegree())
	assert.Equal(t, 2, tr.MaxDepth())
}

func TestNode_Path(t *testing.T) {
	tr := MustDecorate(sample())
	c := tr.Root().Children[0].Children[0]

	path := c.Path(2)
	require.Len(t, path, 3)
	assert.Equal(t, "c", path[0].Label)
	assert.Equal(t, "a", path[1].Label)
	assert.Equal(t, "r", path[2].Label)

	assert.Nil(t, c.Path(3))
}

func TestNode_ChildrenOf(t *testing.T) {
	tr := MustDecorate(N("r", N("x"), N("y"), N("z")))
	got := tr.Root().ChildrenOf(0b101)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Label)
	assert.Equal(t, "z", got[1].Label)
}

func TestDecorate_Errors(t *testing.T) {
	t.Run("nil root", func(t *testing.T) {
		_, err := Decorate[string](nil)
		assert.ErrorIs(t, err, ErrEmptyTree)
	})

	t.Run("degree too large", func(t *testing.T) {
		wide := N("root")
		for i := 0; i <= MaxDegree; i++ {
			wide.Children = append(wide.Children, N(fmt.Sprint(i)))
		}
		_, err := Decorate(wide)
		assert.ErrorIs(t, err, ErrDegreeTooLarge)
	})

	t.Run("shared subtree", func(t *testing.T) {
		shared := N("s")
		_, err := Decorate(N("r", shared, shared))
		assert.ErrorIs(t, err, ErrCycle)
	})

	t.Run("nil child", func(t *testing.T) {
		_, err := Decorate(&Input[string]{Label: "r", Children: []*Input[string]{nil}})
		assert.ErrorIs(t, err, ErrEmptyTree)
	})
}

func TestDecorate_DeepChainIsIterative(t *testing.T) {
	root := N(0)
	cur := root
	for i := 1; i < 50000; i++ {
		next := N(i)
		cur.Children = []*Input[int]{next}
		cur = next
	}
	tr, err := Decorate(root)
	require.NoError(t, err)
	assert.Equal(t, 50000, tr.Size())
	assert.Equal(t, 49999, tr.MaxDepth())
	assert.Equal(t, 49999, tr.Height(tr.Root()))
}

func TestFingerprint(t *testing.T) {
	id := func(s string) string { return s }

	a := Fingerprint(MustDecorate(sample()), id)
	b := Fingerprint(MustDecorate(sample()), id)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := Fingerprint(MustDecorate(N("r", N("a", N("c"), N("d")), N("e"))), id)
	assert.NotEqual(t, a, other)

	reshaped := Fingerprint(MustDecorate(N("r", N("a", N("c")), N("d"), N("b"))), id)
	assert.NotEqual(t, a, reshaped)
}
