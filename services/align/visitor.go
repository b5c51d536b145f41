// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package align

import (
	"fmt"

	"github.com/AleutianAI/ftalign/services/align/tree"
)

// Backtrace receives the operations of a reconstructed alignment.
//
// Costs are the values the Scoring function returned for the operation.
// The sum of all costs passed to MatchVertices, Match, DeleteLeft,
// DeleteRight and Join equals the alignment score.
type Backtrace[T any] interface {
	// MatchVertices reports the pair the alignment is rooted at.
	MatchVertices(bonus float32, a, b *tree.Node[T])

	// Match reports vertex a aligned with vertex b.
	Match(cost float32, a, b *tree.Node[T])

	// DeleteLeft reports left vertex a removed.
	DeleteLeft(cost float32, a *tree.Node[T])

	// DeleteRight reports right vertex b removed.
	DeleteRight(cost float32, b *tree.Node[T])

	// Join reports a left path collapsed onto a right path. Both paths run
	// from the aligned endpoint up to the top vertex.
	Join(cost float32, left, right []*tree.Node[T], l, r int)

	// InnerJoinLeft reports left vertex a used as an intermediate join vertex.
	InnerJoinLeft(a *tree.Node[T])

	// InnerJoinRight reports right vertex b used as an intermediate join vertex.
	InnerJoinRight(b *tree.Node[T])
}

// OpKind identifies a backtrace operation.
type OpKind uint8

const (
	OpMatchVertices OpKind = iota
	OpMatch
	OpDeleteLeft
	OpDeleteRight
	OpJoin
	OpInnerJoinLeft
	OpInnerJoinRight
)

// String implements fmt.Stringer.
func (k OpKind) String() string {
	switch k {
	case OpMatchVertices:
		return "matchVertices"
	case OpMatch:
		return "match"
	case OpDeleteLeft:
		return "deleteLeft"
	case OpDeleteRight:
		return "deleteRight"
	case OpJoin:
		return "join"
	case OpInnerJoinLeft:
		return "innerJoinLeft"
	case OpInnerJoinRight:
		return "innerJoinRight"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Operation is one recorded backtrace callback.
//
// Left and Right hold the vertices involved: one each for matches, one on a
// single side for deletions and inner joins, and the full paths for joins.
type Operation[T any] struct {
	Kind  OpKind
	Cost  float32
	Left  []*tree.Node[T]
	Right []*tree.Node[T]
	L, R  int
}

// Recorder is a Backtrace that appends every callback to Ops.
type Recorder[T any] struct {
	Ops []Operation[T]
}

// MatchVertices implements Backtrace.
func (r *Recorder[T]) MatchVertices(bonus float32, a, b *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpMatchVertices, Cost: bonus, Left: one(a), Right: one(b)})
}

// Match implements Backtrace.
func (r *Recorder[T]) Match(cost float32, a, b *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpMatch, Cost: cost, Left: one(a), Right: one(b)})
}

// DeleteLeft implements Backtrace.
func (r *Recorder[T]) DeleteLeft(cost float32, a *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpDeleteLeft, Cost: cost, Left: one(a)})
}

// DeleteRight implements Backtrace.
func (r *Recorder[T]) DeleteRight(cost float32, b *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpDeleteRight, Cost: cost, Right: one(b)})
}

// Join implements Backtrace.
func (r *Recorder[T]) Join(cost float32, left, right []*tree.Node[T], l, rr int) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpJoin, Cost: cost, Left: left, Right: right, L: l, R: rr})
}

// InnerJoinLeft implements Backtrace.
func (r *Recorder[T]) InnerJoinLeft(a *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpInnerJoinLeft, Left: one(a)})
}

// InnerJoinRight implements Backtrace.
func (r *Recorder[T]) InnerJoinRight(b *tree.Node[T]) {
	r.Ops = append(r.Ops, Operation[T]{Kind: OpInnerJoinRight, Right: one(b)})
}

// Total returns the sum of all recorded costs.
func (r *Recorder[T]) Total() float64 {
	var sum float64
	for _, op := range r.Ops {
		sum += float64(op.Cost)
	}
	return sum
}

// Count returns how many operations of kind k were recorded.
func (r *Recorder[T]) Count(k OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

func one[T any](n *tree.Node[T]) []*tree.Node[T] {
	return []*tree.Node[T]{n}
}
