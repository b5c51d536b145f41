// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package table holds the per-vertex-pair DP tables of the alignment engine.
//
// A Table for the pair (u, v) maps pairs of children subsets (A of u, B of v)
// to the best score of aligning exactly those child subtrees against each
// other. Auxiliary aggregate maps let the tables of ancestor pairs consume a
// whole table in one lookup instead of rescanning every subset.
//
// # Keys
//
// A SubsetPair (A, B) is packed as A | B<<deg(u). Aggregate maps are keyed by
// the bare subset.
//
// # Thread Safety
//
// A Table is written by exactly one goroutine while it is built and is
// read-only afterwards.
package table

// SubsetPair is a pair of children bitmasks.
type SubsetPair struct {
	A uint32
	B uint32
}

// Key packs a subset pair for a table whose left vertex has degree degU.
func Key(a, b uint32, degU uint8) uint64 {
	return uint64(a) | uint64(b)<<degU
}

// Split unpacks a key produced by Key.
func Split(key uint64, degU uint8) (a, b uint32) {
	return uint32(key & (uint64(1)<<degU - 1)), uint32(key >> degU)
}

// JoinTable records alignments that contain exactly one pending join block.
type JoinTable struct {
	// Data maps packed (A, B) to scores.
	Data SubsetMap

	// MaxJoinLeft maps B to max over A of Data[A, B]. Nil when l == 0.
	MaxJoinLeft SubsetMap

	// MaxJoinRight maps A to max over B of Data[A, B]. Nil when r == 0.
	MaxJoinRight SubsetMap
}

var emptyJoin = &JoinTable{
	Data:         emptyMap{},
	MaxJoinLeft:  emptyMap{},
	MaxJoinRight: emptyMap{},
}

// Table is the DP table for one vertex pair.
type Table struct {
	// Data maps packed (A, B) to the best score of aligning exactly the
	// child subtrees A against B.
	Data SubsetMap

	// MaxLeft maps B to deleteLeft(u) + max over A of Data[A, B].
	MaxLeft SubsetMap

	// MaxRight maps A to deleteRight(v) + max over B of Data[A, B].
	MaxRight SubsetMap

	// Score is the largest value in Data, 0 when Data is empty.
	Score float32

	// ScoreKey is the first key in creation order whose value is Score.
	ScoreKey uint64

	degU, degV uint8
	maxL, maxR int
	mode       StorageMode
	joins      []*JoinTable
}

// Empty is the shared immutable table with score 0 and no entries.
var Empty = &Table{
	Data:     emptyMap{},
	MaxLeft:  emptyMap{},
	MaxRight: emptyMap{},
}

// New creates an unfinished table for a pair with the given degrees.
//
// Inputs:
//   - degU, degV: Degrees of u and v.
//   - maxL, maxR: Join depth bounds L and R for the pair. Join tables exist
//     for 0 <= l <= maxL, 0 <= r <= maxR, (l, r) != (0, 0).
//   - mode: Storage selection for every map of the table.
//
// Outputs:
//   - *Table: Table with empty maps and no join tables. When u or v is a
//     leaf no join slots are allocated.
func New(degU, degV uint8, maxL, maxR int, mode StorageMode) *Table {
	var joins []*JoinTable
	if degU > 0 && degV > 0 {
		joins = make([]*JoinTable, (maxL+1)*(maxR+1))
	}
	return &Table{
		Data:     NewSubsetMap(int(degU)+int(degV), mode),
		MaxLeft:  NewSubsetMap(int(degV), mode),
		MaxRight: NewSubsetMap(int(degU), mode),
		degU:     degU,
		degV:     degV,
		maxL:     maxL,
		maxR:     maxR,
		mode:     mode,
		joins:    joins,
	}
}

// Key packs (a, b) for this table.
func (t *Table) Key(a, b uint32) uint64 { return Key(a, b, t.degU) }

// Split unpacks a key of this table.
func (t *Table) Split(key uint64) (a, b uint32) { return Split(key, t.degU) }

// Degrees returns deg(u) and deg(v).
func (t *Table) Degrees() (degU, degV uint8) { return t.degU, t.degV }

// JoinBounds returns L and R.
func (t *Table) JoinBounds() (maxL, maxR int) { return t.maxL, t.maxR }

// IsEmpty reports whether t is the shared Empty table.
func (t *Table) IsEmpty() bool { return t == Empty }

// NewJoin creates the maps for a join table at (l, r).
//
// The result is not attached to t; pass it to SetJoin once it is finished.
// Returns nil if (l, r) is (0, 0) or out of bounds.
func (t *Table) NewJoin(l, r int) *JoinTable {
	if !t.joinInRange(l, r) {
		return nil
	}
	jt := &JoinTable{Data: NewSubsetMap(int(t.degU)+int(t.degV), t.mode)}
	if l > 0 {
		jt.MaxJoinLeft = NewSubsetMap(int(t.degV), t.mode)
	}
	if r > 0 {
		jt.MaxJoinRight = NewSubsetMap(int(t.degU), t.mode)
	}
	return jt
}

// SetJoin attaches a finished join table. Tables with no entries are not
// stored; JoinAt reports them as empty.
func (t *Table) SetJoin(l, r int, jt *JoinTable) {
	if jt == nil || !t.joinInRange(l, r) || jt.Data.Len() == 0 {
		return
	}
	t.joins[l*(t.maxR+1)+r] = jt
}

// JoinAt returns the join table at (l, r).
//
// Never returns nil: absent, empty or out-of-range tables are reported as a
// shared empty join table whose maps are all empty.
func (t *Table) JoinAt(l, r int) *JoinTable {
	if !t.joinInRange(l, r) {
		return emptyJoin
	}
	if jt := t.joins[l*(t.maxR+1)+r]; jt != nil {
		return jt
	}
	return emptyJoin
}

func (t *Table) joinInRange(l, r int) bool {
	return l >= 0 && r >= 0 && l <= t.maxL && r <= t.maxR && (l != 0 || r != 0) && t.joins != nil
}

// Finish computes MaxLeft, MaxRight, Score and ScoreKey from Data.
//
// deleteLeft and deleteRight are the deletion costs of u and v.
func (t *Table) Finish(deleteLeft, deleteRight float32) {
	t.Score, t.ScoreKey = 0, 0
	t.Data.Range(func(key uint64, v float32) bool {
		a, b := t.Split(key)
		t.MaxLeft.PutIfGreater(uint64(b), deleteLeft+v)
		t.MaxRight.PutIfGreater(uint64(a), deleteRight+v)
		if v > t.Score {
			t.Score, t.ScoreKey = v, key
		}
		return true
	})
}

// FinishJoin computes the MaxJoinLeft and MaxJoinRight aggregates of jt.
func (t *Table) FinishJoin(jt *JoinTable) {
	jt.Data.Range(func(key uint64, v float32) bool {
		a, b := t.Split(key)
		if jt.MaxJoinLeft != nil {
			jt.MaxJoinLeft.PutIfGreater(uint64(b), v)
		}
		if jt.MaxJoinRight != nil {
			jt.MaxJoinRight.PutIfGreater(uint64(a), v)
		}
		return true
	})
}

// Footprint summarizes the storage held by a table.
type Footprint struct {
	Cells      int
	JoinTables int
	JoinCells  int
	Dense      int
	Sparse     int
}

// Footprint counts stored entries and map representations.
func (t *Table) Footprint() Footprint {
	var fp Footprint
	count := func(m SubsetMap) {
		if m == nil {
			return
		}
		switch m.Kind() {
		case KindDense:
			fp.Dense++
		case KindSparse:
			fp.Sparse++
		}
	}
	fp.Cells = t.Data.Len()
	count(t.Data)
	count(t.MaxLeft)
	count(t.MaxRight)
	for _, jt := range t.joins {
		if jt == nil {
			continue
		}
		fp.JoinTables++
		fp.JoinCells += jt.Data.Len()
		count(jt.Data)
		count(jt.MaxJoinLeft)
		count(jt.MaxJoinRight)
	}
	return fp
}
