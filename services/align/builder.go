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
	"math/bits"

	"github.com/AleutianAI/ftalign/services/align/table"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// testHookCellWrite, when set, observes every successful cell write.
var testHookCellWrite func(key uint64, prev, next float32)

// buildCounters accumulates per-row construction statistics.
type buildCounters struct {
	tables     int
	cells      int
	joinTables int
	joinCells  int
	dense      int
	sparse     int
	writes     int
}

func (c *buildCounters) add(o buildCounters) {
	c.tables += o.tables
	c.cells += o.cells
	c.joinTables += o.joinTables
	c.joinCells += o.joinCells
	c.dense += o.dense
	c.sparse += o.sparse
	c.writes += o.writes
}

// buildPair constructs and finishes the table of (u, v).
//
// Description:
//
//	The pre-join phase builds every Join[l][r] table of the pair, seeded
//	with pending join blocks and extended by ordinary blocks other than
//	fresh joins. The main
//	phase then expands the empty cell with ordinary blocks. Both phases
//	read only tables of strict descendant pairs.
//
// Thread Safety: Writes only the returned table.
func buildPair[T any](p *pair[T], mode table.StorageMode, counters *buildCounters) *table.Table {
	u, v := p.u, p.v
	maxL, maxR := p.joinBounds()
	t := table.New(u.Degree, v.Degree, maxL, maxR, mode)

	ordinary := p.ordinaryBlocks()
	inJoin := joinExtension(ordinary)

	for l := maxL; l >= 0; l-- {
		for r := maxR; r >= 0; r-- {
			if l == 0 && r == 0 {
				continue
			}
			pending := p.pendingBlocks(l, r)
			if len(pending) == 0 {
				continue
			}
			jt := t.NewJoin(l, r)
			counters.writes += expand(jt.Data, u.Degree, v.Degree, pending, inJoin)
			t.FinishJoin(jt)
			t.SetJoin(l, r, jt)
		}
	}

	counters.writes += expand(t.Data, u.Degree, v.Degree, ordinary, ordinary)
	t.Finish(p.scoring.DeleteLeft(u.Label), p.scoring.DeleteRight(v.Label))

	fp := t.Footprint()
	counters.tables++
	counters.cells += fp.Cells
	counters.joinTables += fp.JoinTables
	counters.joinCells += fp.JoinCells
	counters.dense += fp.Dense
	counters.sparse += fp.Sparse
	return t
}

// expand runs frontier expansion over m.
//
// Description:
//
//	Seeds are applied to the empty cell. Every created cell is queued in the
//	bucket of its size |A|+|B|; buckets are drained from the smallest, and
//	each popped cell is extended by every disjoint block in extend. Blocks
//	consume at least one child per side, so a cell can only be written while
//	smaller buckets are drained and is final once its own bucket is reached.
//	A cell that improves after being queued is not queued again.
//
// Outputs:
//   - int: Number of successful writes.
func expand(m table.SubsetMap, degU, degV uint8, seeds, extend []block) int {
	width := int(degU) + int(degV)
	if width == 0 {
		return 0
	}
	buckets := make([][]uint64, width)
	writes := 0

	put := func(a, b uint32, val float32) {
		key := table.Key(a, b, degU)
		var prev float32
		if testHookCellWrite != nil {
			prev, _ = m.Get(key)
		}
		improved, created := m.PutIfGreater(key, val)
		if !improved {
			return
		}
		writes++
		if testHookCellWrite != nil {
			testHookCellWrite(key, prev, val)
		}
		if created {
			size := bits.OnesCount32(a) + bits.OnesCount32(b)
			buckets[size-1] = append(buckets[size-1], key)
		}
	}

	for _, x := range seeds {
		put(x.a, x.b, x.value)
	}

	for k := range buckets {
		for i := 0; i < len(buckets[k]); i++ {
			key := buckets[k][i]
			cur, _ := m.Get(key)
			a, b := table.Split(key, degU)
			for _, x := range extend {
				if x.a&a != 0 || x.b&b != 0 {
					continue
				}
				put(a|x.a, b|x.b, cur+x.value)
			}
		}
		buckets[k] = nil
	}
	return writes
}

// buildRow builds the tables of u against every right vertex and returns
// the row's best candidate.
func buildRow[T any](
	u *tree.Node[T],
	right *tree.Tree[T],
	index *table.Index,
	scoring Scoring[T],
	cfg Config,
	counters *buildCounters,
) candidate[T] {
	best := candidate[T]{}
	vertices := scoring.IsScoringVertices()
	for _, v := range right.PostOrder() {
		p := &pair[T]{u: u, v: v, index: index, scoring: scoring, maxJoins: cfg.MaxJoins}
		t := buildPair(p, cfg.Storage, counters)
		index.Set(u.Index, v.Index, t)

		score := t.Score
		if vertices {
			score += scoring.ScoreVertices(u.Label, v.Label)
		}
		if score > best.score {
			best = candidate[T]{score: score, left: u, right: v}
		}
	}
	return best
}

// candidate is a possible optimum: the pair (left, right) and its score.
// A zero candidate means no pair scores above 0.
type candidate[T any] struct {
	score float32
	left  *tree.Node[T]
	right *tree.Node[T]
}
