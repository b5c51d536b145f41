// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ftalign/services/align"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

var _ align.Scoring[string] = (*Equality[string])(nil)

func TestEquality_Costs(t *testing.T) {
	e := New[string](DefaultWeights())

	assert.Equal(t, float32(1), e.Match("C6H6", "C6H6"))
	assert.Equal(t, float32(-0.5), e.Match("C6H6", "C5H5"))
	assert.Equal(t, float32(-0.25), e.DeleteLeft("x"))
	assert.Equal(t, float32(-0.25), e.DeleteRight("x"))
	assert.True(t, e.IsScoringVertices())
	assert.Equal(t, float32(1), e.ScoreVertices("a", "a"))
}

func TestEquality_Join(t *testing.T) {
	e := New[string](DefaultWeights())

	assert.Equal(t, float32(0.75), e.Join([]string{"c", "x", "r"}, []string{"c", "r"}, 1, 0))
	assert.Equal(t, float32(0.5), e.Join([]string{"c", "x", "r"}, []string{"c", "y", "r"}, 1, 1))
	assert.Equal(t, float32(-0.75), e.Join([]string{"c", "x", "r"}, []string{"d", "r"}, 1, 0))
	assert.Equal(t, float32(-0.5), e.Join(nil, []string{"d"}, 0, 0))
}

func TestWeights_ID(t *testing.T) {
	a := DefaultWeights()
	b := DefaultWeights()
	assert.Equal(t, a.ID(), b.ID())

	b.JoinPerEdge = -1
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestEquality_AlignsJoinedChain(t *testing.T) {
	left := tree.MustDecorate(tree.N("r", tree.N("x", tree.N("c"))))
	right := tree.MustDecorate(tree.N("r", tree.N("c")))

	cfg := align.DefaultConfig()
	al, err := align.New[string](New[string](DefaultWeights()), cfg)
	require.NoError(t, err)

	res, err := al.Align(context.Background(), left, right)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, res.Score, 1e-6)

	ops, err := res.Operations(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, align.OpMatchVertices, ops[0].Kind)
	assert.Equal(t, align.OpInnerJoinLeft, ops[1].Kind)
	assert.Equal(t, "x", ops[1].Left[0].Label)
	assert.Equal(t, align.OpJoin, ops[2].Kind)
	assert.Equal(t, 1, ops[2].L)
	assert.Equal(t, 0, ops[2].R)
}
