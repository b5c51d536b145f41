// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring provides a reference cost model for the alignment engine.
//
// Equality scores vertices by label equality only: a fixed reward when two
// labels are equal and a fixed penalty otherwise, constant deletion costs
// and a per-edge penalty for joins. It carries no chemistry.
package scoring

import (
	"fmt"
)

// Weights are the parameters of the Equality scoring.
type Weights struct {
	// Match is the score of aligning two equal labels.
	Match float32 `yaml:"match" json:"match" validate:"gt=0"`

	// Mismatch is the score of aligning two different labels.
	Mismatch float32 `yaml:"mismatch" json:"mismatch" validate:"lte=0"`

	// DeleteLeft and DeleteRight are the costs of removing a vertex.
	DeleteLeft  float32 `yaml:"delete_left" json:"delete_left" validate:"lte=0"`
	DeleteRight float32 `yaml:"delete_right" json:"delete_right" validate:"lte=0"`

	// JoinPerEdge is added once for every intermediate vertex of a join.
	JoinPerEdge float32 `yaml:"join_per_edge" json:"join_per_edge" validate:"lte=0"`

	// ScoreVertices adds the label score of the pair the alignment is
	// rooted at.
	ScoreVertices bool `yaml:"score_vertices" json:"score_vertices"`
}

// DefaultWeights returns the weights used when no configuration is given.
func DefaultWeights() Weights {
	return Weights{
		Match:         1,
		Mismatch:      -0.5,
		DeleteLeft:    -0.25,
		DeleteRight:   -0.25,
		JoinPerEdge:   -0.25,
		ScoreVertices: true,
	}
}

// ID returns a stable identifier of the weights, used in cache keys.
func (w Weights) ID() string {
	return fmt.Sprintf("equality/m=%g/x=%g/dl=%g/dr=%g/j=%g/v=%t",
		w.Match, w.Mismatch, w.DeleteLeft, w.DeleteRight, w.JoinPerEdge, w.ScoreVertices)
}

// Equality scores comparable labels by equality.
//
// Thread Safety: Immutable, safe for concurrent use.
type Equality[T comparable] struct {
	w Weights
}

// New creates an Equality scoring with the given weights.
func New[T comparable](w Weights) *Equality[T] {
	return &Equality[T]{w: w}
}

// Weights returns the weights.
func (e *Equality[T]) Weights() Weights { return e.w }

// Match returns Weights.Match for equal labels and Weights.Mismatch otherwise.
func (e *Equality[T]) Match(a, b T) float32 {
	if a == b {
		return e.w.Match
	}
	return e.w.Mismatch
}

// DeleteLeft returns Weights.DeleteLeft.
func (e *Equality[T]) DeleteLeft(T) float32 { return e.w.DeleteLeft }

// DeleteRight returns Weights.DeleteRight.
func (e *Equality[T]) DeleteRight(T) float32 { return e.w.DeleteRight }

// Join scores the endpoints like a match and charges JoinPerEdge for each
// of the l+r intermediate vertices.
func (e *Equality[T]) Join(left, right []T, l, r int) float32 {
	if len(left) == 0 || len(right) == 0 {
		return e.w.Mismatch
	}
	return e.Match(left[0], right[0]) + e.w.JoinPerEdge*float32(l+r)
}

// ScoreVertices scores the root pair like a match.
func (e *Equality[T]) ScoreVertices(a, b T) float32 { return e.Match(a, b) }

// IsScoringVertices returns Weights.ScoreVertices.
func (e *Equality[T]) IsScoringVertices() bool { return e.w.ScoreVertices }
