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
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ftalign/services/align/tree"
)

// backtraceEpsilon is the relative tolerance used when a recomputed value
// is compared with a stored one.
const backtraceEpsilon = 1e-6

// cancelCheckInterval is how many trace items are replayed between
// context checks.
const cancelCheckInterval = 256

// near reports |got - want| < epsilon * max(1, |want|).
func near(got, want float32) bool {
	d := math.Abs(float64(got) - float64(want))
	return d < backtraceEpsilon*math.Max(1, math.Abs(float64(want)))
}

// traceItem is a pending obligation: explain the value stored at (a, b) in
// Join[l][r] of (u, v), or in its base Data when l == r == 0.
type traceItem[T any] struct {
	u, v *tree.Node[T]
	a, b uint32
	l, r int
}

// replayer walks the finished tables with a private LIFO queue.
type replayer[T any] struct {
	al      *Alignment[T]
	visitor Backtrace[T]
	queue   []traceItem[T]
	ops     int
}

// Backtrace replays the operations that realize the optimum.
//
// Description:
//
//	Starts at the optimum pair, emitting MatchVertices first when vertex
//	scoring is on, and then explains every recorded cell by the first block
//	(in a fixed order) whose recomputed value, added to the stored value of
//	the remaining subsets, equals the cell within a relative epsilon of
//	1e-6. Join cells try their pending join block first: direct join, inner
//	join left, inner join right. Every cell is then tried against fresh
//	joins left and right (base cells only), matches, and deletions left
//	and right.
//
//	The visitor sees each operation exactly once. Costs passed to the
//	visitor sum to a.Score.
//
// Inputs:
//   - ctx: Context for cancellation and tracing. Must not be nil.
//   - visitor: Receives operations. Must not be nil.
//
// Outputs:
//   - error: ErrNilContext, ErrNilVisitor or the context's error.
//
// Panics with ErrInconsistentTables if a recorded value cannot be
// re-derived, which means the tables were corrupted.
//
// Thread Safety: Safe for concurrent use with distinct visitors.
func (a *Alignment[T]) Backtrace(ctx context.Context, visitor Backtrace[T]) error {
	if ctx == nil {
		return ErrNilContext
	}
	if visitor == nil {
		return ErrNilVisitor
	}

	ctx, span := tracer.Start(ctx, "align.Alignment.Backtrace",
		trace.WithAttributes(
			attribute.String("align.run_id", a.RunID.String()),
			attribute.Float64("align.score", float64(a.Score)),
		),
	)
	defer span.End()
	start := time.Now()

	rp := &replayer[T]{al: a, visitor: visitor}
	if !a.Empty() {
		if a.scoring.IsScoringVertices() {
			visitor.MatchVertices(a.scoring.ScoreVertices(a.Left.Label, a.Right.Label), a.Left, a.Right)
			rp.ops++
		}
		rp.pushSubtree(a.Left, a.Right)

		for steps := 0; len(rp.queue) > 0; steps++ {
			if steps%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return err
				}
			}
			it := rp.queue[len(rp.queue)-1]
			rp.queue = rp.queue[:len(rp.queue)-1]
			rp.step(it)
		}
	}

	span.SetAttributes(attribute.Int("align.operations", rp.ops))
	span.SetStatus(codes.Ok, "")
	recordBacktraceMetrics(ctx, time.Since(start), rp.ops)
	return nil
}

func (rp *replayer[T]) pair(u, v *tree.Node[T]) *pair[T] {
	return &pair[T]{u: u, v: v, index: rp.al.index, scoring: rp.al.scoring, maxJoins: rp.al.maxJoins}
}

func (rp *replayer[T]) push(it traceItem[T]) {
	rp.queue = append(rp.queue, it)
}

// step explains one cell and queues its sub-derivations.
func (rp *replayer[T]) step(it traceItem[T]) {
	p := rp.pair(it.u, it.v)
	t := p.at(it.u, it.v)
	inJoin := it.l != 0 || it.r != 0

	m := t.Data
	if inJoin {
		m = t.JoinAt(it.l, it.r).Data
	}
	target, ok := m.Get(t.Key(it.a, it.b))
	if !ok {
		rp.fail(it, 0, "cell not stored")
	}

	if inJoin {
		for _, x := range p.pendingBlocks(it.l, it.r) {
			if x.a == it.a && x.b == it.b && near(x.value, target) {
				rp.emitPending(p, it, x)
				return
			}
		}
	}

	extend := p.ordinaryBlocks()
	if inJoin {
		extend = joinExtension(extend)
	}
	for _, x := range extend {
		if x.a&^it.a != 0 || x.b&^it.b != 0 {
			continue
		}
		ra, rb := it.a&^x.a, it.b&^x.b

		var rest float32
		switch {
		case ra != 0 || rb != 0:
			v, ok := m.Get(t.Key(ra, rb))
			if !ok {
				continue
			}
			rest = v
		case inJoin:
			// A join cell always contains its pending block.
			continue
		}

		if near(rest+x.value, target) {
			if ra != 0 || rb != 0 {
				rp.push(traceItem[T]{u: it.u, v: it.v, a: ra, b: rb, l: it.l, r: it.r})
			}
			rp.emitOrdinary(p, x)
			return
		}
	}

	rp.fail(it, target, "no block explains cell")
}

// emitOrdinary reports an ordinary block and queues its sub-derivation.
func (rp *replayer[T]) emitOrdinary(p *pair[T], x block) {
	u, v := p.u, p.v
	sc := rp.al.scoring
	rp.ops++

	switch x.kind {
	case blockFreshJoinLeft:
		a := u.Children[x.left]
		rp.visitor.InnerJoinLeft(a)
		rp.pushJoinLeft(a, v, 1, 0, x.b, x.value)

	case blockFreshJoinRight:
		b := v.Children[x.right]
		rp.visitor.InnerJoinRight(b)
		rp.pushJoinRight(u, b, 0, 1, x.a, x.value)

	case blockMatch:
		a, b := u.Children[x.left], v.Children[x.right]
		rp.visitor.Match(sc.Match(a.Label, b.Label), a, b)
		rp.pushSubtree(a, b)

	case blockDeleteLeft:
		a := u.Children[x.left]
		cost := sc.DeleteLeft(a.Label)
		rp.visitor.DeleteLeft(cost, a)
		rp.pushDeletedLeft(a, v, cost, x.b, x.value)

	case blockDeleteRight:
		b := v.Children[x.right]
		cost := sc.DeleteRight(b.Label)
		rp.visitor.DeleteRight(cost, b)
		rp.pushDeletedRight(u, b, cost, x.a, x.value)

	default:
		panic(fmt.Errorf("%w: unexpected ordinary block kind %d", ErrInconsistentTables, x.kind))
	}
}

// emitPending reports the pending join block of a join cell.
func (rp *replayer[T]) emitPending(p *pair[T], it traceItem[T], x block) {
	u, v := p.u, p.v
	rp.ops++

	switch x.kind {
	case blockDirectJoin:
		a, b := u.Children[x.left], v.Children[x.right]
		left, right := a.Path(it.l+1), b.Path(it.r+1)
		rp.visitor.Join(p.directJoinCost(a, b, it.l, it.r), left, right, it.l, it.r)
		rp.pushSubtree(a, b)

	case blockInnerJoinLeft:
		a := u.Children[x.left]
		rp.visitor.InnerJoinLeft(a)
		rp.pushJoinLeft(a, v, it.l+1, it.r, x.b, x.value)

	case blockInnerJoinRight:
		b := v.Children[x.right]
		rp.visitor.InnerJoinRight(b)
		rp.pushJoinRight(u, b, it.l, it.r+1, x.a, x.value)

	default:
		panic(fmt.Errorf("%w: unexpected pending block kind %d", ErrInconsistentTables, x.kind))
	}
}

// pushSubtree queues the best cell of (a, b), if it has any.
func (rp *replayer[T]) pushSubtree(a, b *tree.Node[T]) {
	t := rp.al.index.At(a.Index, b.Index)
	if t.Score <= 0 {
		return
	}
	sa, sb := t.Split(t.ScoreKey)
	rp.push(traceItem[T]{u: a, v: b, a: sa, b: sb})
}

// pushJoinLeft queues the cell of Join[l][r] of (a, v) with right subset bs
// whose value is want. It is the argmax behind a MaxJoinLeft entry.
func (rp *replayer[T]) pushJoinLeft(a, v *tree.Node[T], l, r int, bs uint32, want float32) {
	t := rp.al.index.At(a.Index, v.Index)
	found := false
	t.JoinAt(l, r).Data.Range(func(key uint64, val float32) bool {
		ka, kb := t.Split(key)
		if kb == bs && near(val, want) {
			rp.push(traceItem[T]{u: a, v: v, a: ka, b: kb, l: l, r: r})
			found = true
			return false
		}
		return true
	})
	if !found {
		rp.fail(traceItem[T]{u: a, v: v, b: bs, l: l, r: r}, want, "no join cell behind MaxJoinLeft")
	}
}

// pushJoinRight is pushJoinLeft for a MaxJoinRight entry of (u, b).
func (rp *replayer[T]) pushJoinRight(u, b *tree.Node[T], l, r int, as uint32, want float32) {
	t := rp.al.index.At(u.Index, b.Index)
	found := false
	t.JoinAt(l, r).Data.Range(func(key uint64, val float32) bool {
		ka, kb := t.Split(key)
		if ka == as && near(val, want) {
			rp.push(traceItem[T]{u: u, v: b, a: ka, b: kb, l: l, r: r})
			found = true
			return false
		}
		return true
	})
	if !found {
		rp.fail(traceItem[T]{u: u, v: b, a: as, l: l, r: r}, want, "no join cell behind MaxJoinRight")
	}
}

// pushDeletedLeft queues the cell of (a, v) behind a MaxLeft entry.
func (rp *replayer[T]) pushDeletedLeft(a, v *tree.Node[T], cost float32, bs uint32, want float32) {
	t := rp.al.index.At(a.Index, v.Index)
	found := false
	t.Data.Range(func(key uint64, val float32) bool {
		ka, kb := t.Split(key)
		if kb == bs && near(cost+val, want) {
			rp.push(traceItem[T]{u: a, v: v, a: ka, b: kb})
			found = true
			return false
		}
		return true
	})
	if !found {
		rp.fail(traceItem[T]{u: a, v: v, b: bs}, want, "no cell behind MaxLeft")
	}
}

// pushDeletedRight queues the cell of (u, b) behind a MaxRight entry.
func (rp *replayer[T]) pushDeletedRight(u, b *tree.Node[T], cost float32, as uint32, want float32) {
	t := rp.al.index.At(u.Index, b.Index)
	found := false
	t.Data.Range(func(key uint64, val float32) bool {
		ka, kb := t.Split(key)
		if ka == as && near(cost+val, want) {
			rp.push(traceItem[T]{u: u, v: b, a: ka, b: kb})
			found = true
			return false
		}
		return true
	})
	if !found {
		rp.fail(traceItem[T]{u: u, v: b, a: as}, want, "no cell behind MaxRight")
	}
}

func (rp *replayer[T]) fail(it traceItem[T], target float32, reason string) {
	panic(fmt.Errorf("%w: %s at pair (%d,%d) subsets (%b,%b) join (%d,%d) target %g",
		ErrInconsistentTables, reason, it.u.Index, it.v.Index, it.a, it.b, it.l, it.r, target))
}
