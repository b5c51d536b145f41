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
	"math/rand"

	"github.com/AleutianAI/ftalign/services/align/tree"
)

// matrixScoring scores small integer labels from fixed tables.
type matrixScoring struct {
	match       [][]float32
	deleteLeft  []float32
	deleteRight []float32
	joinPerEdge float32
	vertices    bool
}

func (s *matrixScoring) Match(a, b int) float32   { return s.match[a][b] }
func (s *matrixScoring) DeleteLeft(a int) float32  { return s.deleteLeft[a] }
func (s *matrixScoring) DeleteRight(b int) float32 { return s.deleteRight[b] }

func (s *matrixScoring) Join(left, right []int, l, r int) float32 {
	return s.match[left[0]][right[0]] + s.joinPerEdge*float32(l+r)
}

func (s *matrixScoring) ScoreVertices(a, b int) float32 { return s.match[a][b] }
func (s *matrixScoring) IsScoringVertices() bool        { return s.vertices }

// randomScoring draws match scores in [-1, 2) and deletion costs in
// [-1, 0) for labels 0..labels-1.
func randomScoring(rng *rand.Rand, labels int, vertices bool) *matrixScoring {
	s := &matrixScoring{
		match:       make([][]float32, labels),
		deleteLeft:  make([]float32, labels),
		deleteRight: make([]float32, labels),
		joinPerEdge: -0.2,
		vertices:    vertices,
	}
	for i := range s.match {
		s.match[i] = make([]float32, labels)
		for j := range s.match[i] {
			s.match[i][j] = float32(rng.Intn(12)-4) / 4
		}
		s.deleteLeft[i] = -float32(rng.Intn(4)+1) / 4
		s.deleteRight[i] = -float32(rng.Intn(4)+1) / 4
	}
	return s
}

// floatScoring is randomScoring with costs that are not multiples of a
// power of two, so float32 sums round.
func floatScoring(rng *rand.Rand, labels int, vertices bool) *matrixScoring {
	s := &matrixScoring{
		match:       make([][]float32, labels),
		deleteLeft:  make([]float32, labels),
		deleteRight: make([]float32, labels),
		joinPerEdge: -rng.Float32() * 0.5,
		vertices:    vertices,
	}
	for i := range s.match {
		s.match[i] = make([]float32, labels)
		for j := range s.match[i] {
			s.match[i][j] = rng.Float32()*3 - 1
		}
		s.deleteLeft[i] = -(rng.Float32()*0.9 + 0.1)
		s.deleteRight[i] = -(rng.Float32()*0.9 + 0.1)
	}
	return s
}

// randomTree builds a tree of n vertices with degree at most maxDegree and
// labels in 0..labels-1.
func randomTree(rng *rand.Rand, n, maxDegree, labels int) *tree.Tree[int] {
	nodes := []*tree.Input[int]{tree.N(rng.Intn(labels))}
	for len(nodes) < n {
		parent := nodes[rng.Intn(len(nodes))]
		if len(parent.Children) >= maxDegree {
			continue
		}
		child := tree.N(rng.Intn(labels))
		parent.Children = append(parent.Children, child)
		nodes = append(nodes, child)
	}
	return tree.MustDecorate(nodes[0])
}

// referenceDP is an exhaustive memoized tree alignment with match and
// deletion operations only. Children may be left unaligned at no cost.
type referenceDP struct {
	sc   Scoring[int]
	memo map[refKey]float32
}

type refKey struct {
	u, v *tree.Node[int]
	a, b uint32
}

func newReferenceDP(sc Scoring[int]) *referenceDP {
	return &referenceDP{sc: sc, memo: make(map[refKey]float32)}
}

// score is the best alignment of the children of u with the children of v.
func (r *referenceDP) score(u, v *tree.Node[int]) float32 {
	return r.subsets(u, v, u.ChildMask(), v.ChildMask())
}

// optimum returns the best score over all pairs.
func (r *referenceDP) optimum(left, right *tree.Tree[int]) float32 {
	var best float32
	for _, u := range left.PostOrder() {
		for _, v := range right.PostOrder() {
			s := r.score(u, v)
			if r.sc.IsScoringVertices() {
				s += r.sc.ScoreVertices(u.Label, v.Label)
			}
			best = max(best, s)
		}
	}
	return best
}

// subsets aligns the children A of u with the children B of v.
func (r *referenceDP) subsets(u, v *tree.Node[int], A, B uint32) float32 {
	if A == 0 || B == 0 {
		return 0
	}
	key := refKey{u, v, A, B}
	if s, ok := r.memo[key]; ok {
		return s
	}

	i := bits.TrailingZeros32(A)
	a := u.Children[i]
	rest := A &^ (1 << i)

	// a stays unaligned.
	best := r.subsets(u, v, rest, B)

	for j, b := range v.Children {
		bit := uint32(1) << j
		if B&bit == 0 {
			continue
		}
		match := r.score(a, b) + r.sc.Match(a.Label, b.Label) + r.subsets(u, v, rest, B&^bit)
		best = max(best, match)

		// b deleted, its children aligned against a and other children in A.
		for sub := rest; ; sub = (sub - 1) & rest {
			as := sub | 1<<i
			del := r.sc.DeleteRight(b.Label) + r.subsets(u, b, as, b.ChildMask()) + r.subsets(u, v, A&^as, B&^bit)
			best = max(best, del)
			if sub == 0 {
				break
			}
		}
	}

	// a deleted, its children aligned against a nonempty subset of B.
	for bs := B; bs != 0; bs = (bs - 1) & B {
		del := r.sc.DeleteLeft(a.Label) + r.subsets(a, v, a.ChildMask(), bs) + r.subsets(u, v, rest, B&^bs)
		best = max(best, del)
	}

	r.memo[key] = best
	return best
}

// discard is a Backtrace that ignores every callback.
type discard[T any] struct{}

func (discard[T]) MatchVertices(float32, *tree.Node[T], *tree.Node[T])      {}
func (discard[T]) Match(float32, *tree.Node[T], *tree.Node[T])              {}
func (discard[T]) DeleteLeft(float32, *tree.Node[T])                        {}
func (discard[T]) DeleteRight(float32, *tree.Node[T])                       {}
func (discard[T]) Join(float32, []*tree.Node[T], []*tree.Node[T], int, int) {}
func (discard[T]) InnerJoinLeft(*tree.Node[T])                              {}
func (discard[T]) InnerJoinRight(*tree.Node[T])                             {}
