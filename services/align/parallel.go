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
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/ftalign/services/align/table"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// alignParallel builds rows level by level, grouped by subtree height.
//
// Description:
//
//	The table of (u, v) reads rows of u's children only, and every child has
//	a strictly lower height than u. Rows of one height are therefore
//	independent and are built concurrently, each goroutine writing only its
//	own row of the index. Levels are separated by errgroup.Wait, which also
//	publishes the finished rows to the next level.
//
//	Row candidates are reduced in post-order after the last level, giving
//	the same optimum as the sequential driver.
//
// Thread Safety: Scoring must be safe for concurrent use.
func alignParallel[T any](
	ctx context.Context,
	left, right *tree.Tree[T],
	index *table.Index,
	scoring Scoring[T],
	cfg Config,
	workers int,
	logger *slog.Logger,
) (candidate[T], buildCounters, error) {
	levels := heightLevels(left)
	rows := make([]candidate[T], left.Size())
	rowCounters := make([]buildCounters, left.Size())

	var counters buildCounters
	for h, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, u := range level {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[u.Index] = buildRow(u, right, index, scoring, cfg, &rowCounters[u.Index])
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			for i := range rowCounters {
				counters.add(rowCounters[i])
			}
			return candidate[T]{}, counters, err
		}

		logger.Debug("height level built",
			slog.Int("height", h),
			slog.Int("rows", len(level)),
		)
	}

	var best candidate[T]
	for i := range rows {
		counters.add(rowCounters[i])
		if rows[i].score > best.score {
			best = rows[i]
		}
	}
	return best, counters, nil
}

// heightLevels groups the vertices of t by subtree height, each group in
// post-order.
func heightLevels[T any](t *tree.Tree[T]) [][]*tree.Node[T] {
	height := t.Height(t.Root())
	levels := make([][]*tree.Node[T], height+1)
	for _, n := range t.PostOrder() {
		h := t.Height(n)
		levels[h] = append(levels[h], n)
	}
	return levels
}
