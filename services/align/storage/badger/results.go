// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ftalign/services/align"
)

// keyPrefix versions the record layout.
const keyPrefix = "ftalign/result/v1/"

var (
	// ErrNilDB is returned by NewResultStore.
	ErrNilDB = errors.New("db must not be nil")

	// ErrNilContext is returned by ResultStore methods.
	ErrNilContext = errors.New("ctx must not be nil")
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftalign_cache_lookups_total",
		Help: "Result cache lookups by outcome",
	}, []string{"result"})

	cacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftalign_cache_writes_total",
		Help: "Result cache writes by outcome",
	}, []string{"result"})
)

var tracer = otel.Tracer("ftalign.storage.badger")

// Key identifies an alignment run.
type Key struct {
	// Left and Right are tree fingerprints (see tree.Fingerprint).
	Left  string
	Right string

	MaxJoins int

	// Scoring identifies the cost model and its parameters.
	Scoring string
}

func (k Key) bytes() []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%d/%s", keyPrefix, k.Left, k.Right, k.MaxJoins, k.Scoring))
}

// Result is the stored summary of an alignment.
type Result struct {
	Score float32 `json:"score"`

	// Left and Right are the post-order indices of the optimum pair, -1 for
	// an empty alignment.
	Left  int `json:"left"`
	Right int `json:"right"`

	Tables     int       `json:"tables"`
	Cells      int       `json:"cells"`
	JoinTables int       `json:"join_tables"`
	Writes     int       `json:"writes"`
	StoredAt   time.Time `json:"stored_at"`
}

// ResultOf summarizes an alignment for storage.
func ResultOf[T any](a *align.Alignment[T]) Result {
	st := a.Stats()
	r := Result{
		Score:      a.Score,
		Left:       -1,
		Right:      -1,
		Tables:     st.Tables,
		Cells:      st.Cells,
		JoinTables: st.JoinTables,
		Writes:     st.Writes,
	}
	if !a.Empty() {
		r.Left = int(a.Left.Index)
		r.Right = int(a.Right.Index)
	}
	return r
}

// ResultStore caches alignment results.
//
// Thread Safety: Safe for concurrent use.
type ResultStore struct {
	db  *DB
	ttl time.Duration
}

// NewResultStore wraps db. A positive ttl expires records after that long.
func NewResultStore(db *DB, ttl time.Duration) (*ResultStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &ResultStore{db: db, ttl: ttl}, nil
}

// Get looks up a stored result.
//
// Outputs:
//   - Result: The stored record when found.
//   - bool: Whether the key was present.
//   - error: Context, read or decode error. A miss is not an error.
func (s *ResultStore) Get(ctx context.Context, key Key) (Result, bool, error) {
	if ctx == nil {
		return Result{}, false, ErrNilContext
	}
	ctx, span := tracer.Start(ctx, "badger.ResultStore.Get", trace.WithAttributes(
		attribute.Int("max_joins", key.MaxJoins),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Result{}, false, s.fail(span, cacheLookups, err)
	}

	var r Result
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.bytes())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		cacheLookups.WithLabelValues("miss").Inc()
		span.SetAttributes(attribute.Bool("hit", false))
		span.SetStatus(codes.Ok, "")
		return Result{}, false, nil
	case err != nil:
		return Result{}, false, s.fail(span, cacheLookups, fmt.Errorf("read result: %w", err))
	}

	cacheLookups.WithLabelValues("hit").Inc()
	span.SetAttributes(attribute.Bool("hit", true))
	span.SetStatus(codes.Ok, "")
	return r, true, nil
}

// Put stores r under key, replacing any previous record. StoredAt is set
// to the current time.
func (s *ResultStore) Put(ctx context.Context, key Key, r Result) error {
	if ctx == nil {
		return ErrNilContext
	}
	ctx, span := tracer.Start(ctx, "badger.ResultStore.Put")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return s.fail(span, cacheWrites, err)
	}

	r.StoredAt = time.Now().UTC()
	val, err := json.Marshal(r)
	if err != nil {
		return s.fail(span, cacheWrites, fmt.Errorf("encode result: %w", err))
	}
	err = s.db.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key.bytes(), val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return s.fail(span, cacheWrites, fmt.Errorf("write result: %w", err))
	}
	cacheWrites.WithLabelValues("ok").Inc()
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *ResultStore) fail(span trace.Span, counter *prometheus.CounterVec, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	counter.WithLabelValues("error").Inc()
	return err
}
