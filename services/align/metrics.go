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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for alignment runs.
var (
	tracer = otel.Tracer("ftalign.align")
	meter  = otel.Meter("ftalign.align")
)

var (
	alignLatency     metric.Float64Histogram
	alignTotal       metric.Int64Counter
	tablesBuilt      metric.Int64Counter
	cellsWritten     metric.Int64Counter
	backtraceLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		alignLatency, err = meter.Float64Histogram(
			"align_duration_seconds",
			metric.WithDescription("Duration of table construction per alignment"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		alignTotal, err = meter.Int64Counter(
			"align_total",
			metric.WithDescription("Total number of alignment runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		tablesBuilt, err = meter.Int64Counter(
			"align_tables_built_total",
			metric.WithDescription("Total number of vertex-pair tables built"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cellsWritten, err = meter.Int64Counter(
			"align_cell_writes_total",
			metric.WithDescription("Total number of successful put-if-greater writes"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		backtraceLatency, err = meter.Float64Histogram(
			"align_backtrace_duration_seconds",
			metric.WithDescription("Duration of backtrace replays"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAlignMetrics records metrics for one Align call.
func recordAlignMetrics(ctx context.Context, duration time.Duration, st Stats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("parallel", st.Workers > 1),
	)
	alignLatency.Record(ctx, duration.Seconds(), attrs)
	alignTotal.Add(ctx, 1, attrs)

	if success {
		tablesBuilt.Add(ctx, int64(st.Tables))
		cellsWritten.Add(ctx, int64(st.Writes))
	}
}

// recordBacktraceMetrics records metrics for one backtrace replay.
func recordBacktraceMetrics(ctx context.Context, duration time.Duration, operations int) {
	if err := initMetrics(); err != nil {
		return
	}
	backtraceLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("empty", operations == 0)),
	)
}
