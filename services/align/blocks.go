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
	"github.com/AleutianAI/ftalign/services/align/table"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// blockKind enumerates the ways a group of children can be consumed.
type blockKind uint8

const (
	// Ordinary blocks, usable in every table of a pair.
	blockFreshJoinLeft blockKind = iota
	blockFreshJoinRight
	blockMatch
	blockDeleteLeft
	blockDeleteRight

	// Pending blocks, the single join block of a join table.
	blockDirectJoin
	blockInnerJoinLeft
	blockInnerJoinRight
)

// block consumes the children a of u and b of v for value.
//
// left and right are the child indexes the block is anchored at; -1 on the
// side where the block consumes a stored subset.
type block struct {
	kind  blockKind
	left  int
	right int
	a, b  uint32
	value float32
}

// pair gives access to everything a table of (u, v) depends on.
type pair[T any] struct {
	u, v     *tree.Node[T]
	index    *table.Index
	scoring  Scoring[T]
	maxJoins int
}

// at returns the table for (a, b).
func (p *pair[T]) at(a, b *tree.Node[T]) *table.Table {
	return p.index.At(a.Index, b.Index)
}

// joinBounds returns L and R for the pair.
func (p *pair[T]) joinBounds() (int, int) {
	return min(p.maxJoins, int(p.u.Depth)), min(p.maxJoins, int(p.v.Depth))
}

// ordinaryBlocks lists every block with a positive value, in a fixed order:
// fresh joins left, fresh joins right, matches, left deletions, right
// deletions. Construction and backtrace both rely on this order.
func (p *pair[T]) ordinaryBlocks() []block {
	u, v := p.u, p.v
	if u.Degree == 0 || v.Degree == 0 {
		return nil
	}
	var out []block

	if p.maxJoins >= 1 {
		for i, a := range u.Children {
			p.at(a, v).JoinAt(1, 0).MaxJoinLeft.Range(func(bs uint64, val float32) bool {
				out = append(out, block{kind: blockFreshJoinLeft, left: i, right: -1, a: a.SiblingBit, b: uint32(bs), value: val})
				return true
			})
		}
		for j, b := range v.Children {
			p.at(u, b).JoinAt(0, 1).MaxJoinRight.Range(func(as uint64, val float32) bool {
				out = append(out, block{kind: blockFreshJoinRight, left: -1, right: j, a: uint32(as), b: b.SiblingBit, value: val})
				return true
			})
		}
	}

	for i, a := range u.Children {
		for j, b := range v.Children {
			val := p.matchValue(a, b)
			if val > 0 {
				out = append(out, block{kind: blockMatch, left: i, right: j, a: a.SiblingBit, b: b.SiblingBit, value: val})
			}
		}
	}

	for i, a := range u.Children {
		p.at(a, v).MaxLeft.Range(func(bs uint64, val float32) bool {
			out = append(out, block{kind: blockDeleteLeft, left: i, right: -1, a: a.SiblingBit, b: uint32(bs), value: val})
			return true
		})
	}
	for j, b := range v.Children {
		p.at(u, b).MaxRight.Range(func(as uint64, val float32) bool {
			out = append(out, block{kind: blockDeleteRight, left: -1, right: j, a: uint32(as), b: b.SiblingBit, value: val})
			return true
		})
	}
	return out
}

// joinExtension filters the fresh joins out of ordinary. A join table
// already carries its one pending join; deeper joins along the same path
// come only from the inner join blocks, which respect maxJoins.
func joinExtension(ordinary []block) []block {
	out := make([]block, 0, len(ordinary))
	for _, x := range ordinary {
		if x.kind != blockFreshJoinLeft && x.kind != blockFreshJoinRight {
			out = append(out, x)
		}
	}
	return out
}

// pendingBlocks lists the positive join blocks that seed Join[l][r]:
// direct joins, then inner joins left, then inner joins right.
func (p *pair[T]) pendingBlocks(l, r int) []block {
	u, v := p.u, p.v
	if u.Degree == 0 || v.Degree == 0 {
		return nil
	}
	var out []block

	for i, a := range u.Children {
		for j, b := range v.Children {
			val := p.directJoinCost(a, b, l, r) + p.at(a, b).Score
			if val > 0 {
				out = append(out, block{kind: blockDirectJoin, left: i, right: j, a: a.SiblingBit, b: b.SiblingBit, value: val})
			}
		}
	}

	if l+1 <= p.maxJoins {
		for i, a := range u.Children {
			p.at(a, v).JoinAt(l+1, r).MaxJoinLeft.Range(func(bs uint64, val float32) bool {
				out = append(out, block{kind: blockInnerJoinLeft, left: i, right: -1, a: a.SiblingBit, b: uint32(bs), value: val})
				return true
			})
		}
	}
	if r+1 <= p.maxJoins {
		for j, b := range v.Children {
			p.at(u, b).JoinAt(l, r+1).MaxJoinRight.Range(func(as uint64, val float32) bool {
				out = append(out, block{kind: blockInnerJoinRight, left: -1, right: j, a: uint32(as), b: b.SiblingBit, value: val})
				return true
			})
		}
	}
	return out
}

// matchValue is the value of matching child a with child b.
func (p *pair[T]) matchValue(a, b *tree.Node[T]) float32 {
	return p.at(a, b).Score + p.scoring.Match(a.Label, b.Label)
}

// directJoinCost scores the join whose endpoints are a and b, with u being
// l and v being r edges below the tops.
func (p *pair[T]) directJoinCost(a, b *tree.Node[T], l, r int) float32 {
	return p.scoring.Join(labels(a.Path(l+1)), labels(b.Path(r+1)), l, r)
}

func labels[T any](path []*tree.Node[T]) []T {
	out := make([]T, len(path))
	for i, n := range path {
		out[i] = n.Label
	}
	return out
}
