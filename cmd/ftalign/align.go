// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ftalign/pkg/logging"
	"github.com/AleutianAI/ftalign/services/align"
	"github.com/AleutianAI/ftalign/services/align/config"
	"github.com/AleutianAI/ftalign/services/align/scoring"
	"github.com/AleutianAI/ftalign/services/align/storage/badger"
	"github.com/AleutianAI/ftalign/services/align/telemetry"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

var tracer = otel.Tracer("ftalign.cmd")

func newAlignCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align LEFT RIGHT",
		Short: "Align two trees and print the optimal score",
		Long: `Aligns the tree in LEFT against the tree in RIGHT and prints the optimum.

With --trace the optimal alignment is replayed and every operation is listed.
With a cache directory (--cache-dir or cache.dir) results are stored keyed by
the fingerprints of both trees, the join budget and the scoring weights.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(cmd, opts, args[0], args[1])
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.maxJoins, "max-joins", "j", 0, "override align.max_joins")
	f.IntVarP(&opts.workers, "workers", "w", 0, "override align.workers")
	f.StringVar(&opts.storage, "storage", "", "override align.storage (auto, sparse, dense)")
	f.BoolVarP(&opts.trace, "trace", "t", false, "list the operations of the optimal alignment")
	f.BoolVar(&opts.json, "json", false, "print JSON")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "enable the result cache in this directory")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	return cmd
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.File) error {
	flags := cmd.Flags()
	if flags.Changed("max-joins") {
		cfg.Align.MaxJoins = opts.maxJoins
	}
	if flags.Changed("workers") {
		cfg.Align.Workers = opts.workers
	}
	if flags.Changed("storage") {
		cfg.Align.Storage = opts.storage
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.cacheDir != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.InMemory = false
		cfg.Cache.Dir = opts.cacheDir
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}
	return cfg.Validate()
}

func runAlign(cmd *cobra.Command, opts *options, leftPath, rightPath string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	logCfg, err := cfg.LoggingConfig("ftalign")
	if err != nil {
		return err
	}
	logCfg.Writer = cmd.ErrOrStderr()
	logger := logging.New(logCfg)
	defer logger.Close()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		TraceExporter:  cfg.Telemetry.Traces,
		MetricExporter: cfg.Telemetry.Metrics,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdown(context.Background()); serr != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", serr.Error()))
		}
	}()

	ctx, span := tracer.Start(ctx, "ftalign.align")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	left, err := loadTree(leftPath)
	if err != nil {
		return err
	}
	right, err := loadTree(rightPath)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int("ftalign.left_size", left.Size()),
		attribute.Int("ftalign.right_size", right.Size()),
	)

	alignCfg, err := cfg.AlignConfig(logger.Slog())
	if err != nil {
		return err
	}
	scorer := scoring.New[string](cfg.Scoring)

	store, closeStore, err := openCache(cfg.Cache, logger.Slog())
	if err != nil {
		return err
	}
	defer closeStore()

	key := badger.Key{
		Left:     tree.Fingerprint(left, identity),
		Right:    tree.Fingerprint(right, identity),
		MaxJoins: alignCfg.MaxJoins,
		Scoring:  cfg.Scoring.ID(),
	}

	// A cached record has no tables to replay, so --trace always recomputes.
	if store != nil && !opts.trace {
		cached, ok, err := store.Get(ctx, key)
		if err != nil {
			logger.Warn("result cache read failed", slog.String("error", err.Error()))
		} else if ok {
			logger.Debug("result cache hit", slog.Float64("score", float64(cached.Score)))
			span.SetAttributes(attribute.Bool("ftalign.cached", true))
			return render(cmd.OutOrStdout(), opts.json, reportFromCache(cached, left, right))
		}
	}

	aligner, err := align.New[string](scorer, alignCfg)
	if err != nil {
		return err
	}
	result, err := aligner.Align(ctx, left, right)
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}

	var ops []align.Operation[string]
	if opts.trace {
		if ops, err = result.Operations(ctx); err != nil {
			return fmt.Errorf("backtrace: %w", err)
		}
	}

	if store != nil {
		if err := store.Put(ctx, key, badger.ResultOf(result)); err != nil {
			logger.Warn("result cache write failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("alignment finished",
		slog.String("run_id", result.RunID.String()),
		slog.Float64("score", float64(result.Score)),
		slog.Int("tables", result.Stats().Tables),
		slog.Duration("duration", result.Stats().Duration),
	)
	return render(cmd.OutOrStdout(), opts.json, reportFromAlignment(result, ops))
}

// openCache opens the result store described by the cache section. The
// returned store is nil when caching is disabled; close is never nil.
func openCache(sec config.CacheSection, logger *slog.Logger) (*badger.ResultStore, func(), error) {
	if !sec.Enabled {
		return nil, func() {}, nil
	}
	dbCfg := badger.DefaultConfig()
	dbCfg.Path = sec.Dir
	dbCfg.InMemory = sec.InMemory
	dbCfg.Logger = logger
	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open result cache: %w", err)
	}
	store, err := badger.NewResultStore(db, sec.TTL)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close result cache", slog.String("error", err.Error()))
		}
	}, nil
}
