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
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/ftalign/services/align/table"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// Stats describes the work done by one Align call.
type Stats struct {
	// Tables is the number of vertex-pair tables built.
	Tables int

	// Cells is the number of stored base cells over all tables.
	Cells int

	// JoinTables and JoinCells count non-empty join tables and their cells.
	JoinTables int
	JoinCells  int

	// DenseMaps and SparseMaps count the representations chosen.
	DenseMaps  int
	SparseMaps int

	// Writes is the number of successful put-if-greater writes.
	Writes int

	Workers  int
	Duration time.Duration
}

// Alignment is the result of Aligner.Align.
//
// It owns the finished tables, so the optimum can be replayed any number of
// times with Backtrace.
type Alignment[T any] struct {
	// RunID identifies the Align call in logs and traces.
	RunID uuid.UUID

	// Score is the optimal alignment score, including the vertex score of
	// the optimum pair when vertex scoring is on.
	Score float32

	// Left and Right are the optimum pair. Both are nil for an empty
	// alignment.
	Left  *tree.Node[T]
	Right *tree.Node[T]

	left, right *tree.Tree[T]
	index       *table.Index
	scoring     Scoring[T]
	maxJoins    int
	stats       Stats
}

// Empty reports whether no pair scored above 0.
func (a *Alignment[T]) Empty() bool { return a.Left == nil }

// Stats returns construction statistics.
func (a *Alignment[T]) Stats() Stats { return a.stats }

// Trees returns the aligned trees.
func (a *Alignment[T]) Trees() (left, right *tree.Tree[T]) { return a.left, a.right }

// Table returns the finished table of (u, v), or table.Empty.
func (a *Alignment[T]) Table(u, v *tree.Node[T]) *table.Table {
	if u == nil || v == nil {
		return table.Empty
	}
	return a.index.At(u.Index, v.Index)
}

// SubtreeScore returns the best score of aligning the children of u with
// the children of v, without the vertex score of (u, v) itself.
func (a *Alignment[T]) SubtreeScore(u, v *tree.Node[T]) float32 {
	return a.Table(u, v).Score
}

// Operations replays the optimum and returns the recorded operations.
func (a *Alignment[T]) Operations(ctx context.Context) ([]Operation[T], error) {
	rec := &Recorder[T]{}
	if err := a.Backtrace(ctx, rec); err != nil {
		return nil, err
	}
	return rec.Ops, nil
}
