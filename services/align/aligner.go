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
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ftalign/services/align/table"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// Aligner aligns pairs of trees with a fixed scoring function and config.
//
// Thread Safety: Safe for concurrent use.
type Aligner[T any] struct {
	scoring Scoring[T]
	cfg     Config
}

// New creates an Aligner.
//
// Description:
//
//	Validates the configuration eagerly so an invalid MaxJoins is rejected
//	before any table is built.
//
// Inputs:
//   - scoring: Cost model. Must not be nil.
//   - cfg: Run configuration. See Config.Validate.
//
// Outputs:
//   - *Aligner[T]: Ready to use aligner.
//   - error: ErrNilScoring, ErrInvalidMaxJoins, ErrInvalidWorkers or
//     table.ErrUnknownStorageMode.
func New[T any](scoring Scoring[T], cfg Config) (*Aligner[T], error) {
	if scoring == nil {
		return nil, ErrNilScoring
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aligner[T]{scoring: scoring, cfg: cfg}, nil
}

// Config returns the aligner's configuration.
func (al *Aligner[T]) Config() Config { return al.cfg }

// Align builds the tables of every vertex pair and locates the optimum.
//
// Description:
//
//	Visits u in post-order and, for each u, v in post-order, so the tables
//	of all descendant pairs are complete before they are read. With
//	Config.Workers > 1 rows of equal subtree height are built concurrently;
//	the result is identical to the sequential run.
//
//	The optimum is the first pair, in (u, v) visiting order, with the
//	strictly largest Score plus ScoreVertices (when vertex scoring is on).
//	If no pair scores above 0 the alignment is empty and scores 0.
//
// Inputs:
//   - ctx: Context for cancellation and tracing. Must not be nil. Checked
//     between rows.
//   - left, right: Decorated trees. Must not be nil.
//
// Outputs:
//   - *Alignment[T]: Finished tables and the optimum. Never nil on success.
//   - error: ErrNilContext, ErrNilTree, table.ErrDenseTooLarge or the
//     context's error.
//
// Thread Safety: Safe for concurrent use.
func (al *Aligner[T]) Align(ctx context.Context, left, right *tree.Tree[T]) (*Alignment[T], error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if left == nil || right == nil {
		return nil, ErrNilTree
	}
	if al.cfg.Storage == table.StorageDense {
		if width := left.MaxDegree() + right.MaxDegree(); uint64(1)<<width >= table.HugeThreshold {
			return nil, fmt.Errorf("%w: degrees %d+%d", table.ErrDenseTooLarge, left.MaxDegree(), right.MaxDegree())
		}
	}

	runID := uuid.New()
	workers := max(al.cfg.Workers, 1)
	logger := al.cfg.logger().With(slog.String("run_id", runID.String()))

	ctx, span := tracer.Start(ctx, "align.Aligner.Align",
		trace.WithAttributes(
			attribute.String("align.run_id", runID.String()),
			attribute.Int("align.left_size", left.Size()),
			attribute.Int("align.right_size", right.Size()),
			attribute.Int("align.max_joins", al.cfg.MaxJoins),
			attribute.Int("align.workers", workers),
			attribute.String("align.storage", al.cfg.Storage.String()),
		),
	)
	defer span.End()

	start := time.Now()
	index := table.NewIndex(left.Size(), right.Size())

	var (
		best     candidate[T]
		counters buildCounters
		err      error
	)
	if workers > 1 {
		best, counters, err = alignParallel(ctx, left, right, index, al.scoring, al.cfg, workers, logger)
	} else {
		best, counters, err = alignSequential(ctx, left, right, index, al.scoring, al.cfg)
	}
	duration := time.Since(start)

	stats := Stats{
		Tables:     counters.tables,
		Cells:      counters.cells,
		JoinTables: counters.joinTables,
		JoinCells:  counters.joinCells,
		DenseMaps:  counters.dense,
		SparseMaps: counters.sparse,
		Writes:     counters.writes,
		Workers:    workers,
		Duration:   duration,
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAlignMetrics(ctx, duration, stats, false)
		logger.Debug("alignment aborted",
			slog.String("error", err.Error()),
			slog.Int("tables", stats.Tables),
		)
		return nil, err
	}

	result := &Alignment[T]{
		RunID:    runID,
		Score:    best.score,
		Left:     best.left,
		Right:    best.right,
		left:     left,
		right:    right,
		index:    index,
		scoring:  al.scoring,
		maxJoins: al.cfg.MaxJoins,
		stats:    stats,
	}

	span.SetAttributes(
		attribute.Float64("align.score", float64(best.score)),
		attribute.Int("align.tables", stats.Tables),
		attribute.Int("align.cells", stats.Cells),
		attribute.Int("align.join_tables", stats.JoinTables),
	)
	span.SetStatus(codes.Ok, "")
	recordAlignMetrics(ctx, duration, stats, true)

	logger.Debug("alignment completed",
		slog.Float64("score", float64(best.score)),
		slog.Int("tables", stats.Tables),
		slog.Int("cells", stats.Cells),
		slog.Int("join_cells", stats.JoinCells),
		slog.Int("writes", stats.Writes),
		slog.Duration("duration", duration),
	)
	return result, nil
}

// alignSequential builds all rows in post-order on the calling goroutine.
func alignSequential[T any](
	ctx context.Context,
	left, right *tree.Tree[T],
	index *table.Index,
	scoring Scoring[T],
	cfg Config,
) (candidate[T], buildCounters, error) {
	var (
		best     candidate[T]
		counters buildCounters
	)
	for _, u := range left.PostOrder() {
		if err := ctx.Err(); err != nil {
			return candidate[T]{}, counters, err
		}
		row := buildRow(u, right, index, scoring, cfg, &counters)
		if row.score > best.score {
			best = row
		}
	}
	return best, counters, nil
}
