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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ftalign/services/align"
	"github.com/AleutianAI/ftalign/services/align/scoring"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

func openStore(t *testing.T, ttl time.Duration) *ResultStore {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewResultStore(db, ttl)
	require.NoError(t, err)
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestOpen_OnDiskWithGC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = time.Millisecond

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.False(t, db.InMemory())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "close is idempotent")
}

func TestNewResultStore_NilDB(t *testing.T) {
	_, err := NewResultStore(nil, 0)
	assert.ErrorIs(t, err, ErrNilDB)
}

func TestResultStore_MissThenHit(t *testing.T) {
	store := openStore(t, 0)
	ctx := context.Background()
	key := Key{Left: "aa", Right: "bb", MaxJoins: 1, Scoring: "equality/test"}

	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, misses+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))

	want := Result{Score: 2.5, Left: 3, Right: 4, Tables: 10, Cells: 7}
	require.NoError(t, store.Put(ctx, key, want))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, want.Left, got.Left)
	assert.Equal(t, want.Right, got.Right)
	assert.Equal(t, want.Tables, got.Tables)
	assert.False(t, got.StoredAt.IsZero())
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
}

func TestResultStore_KeysAreDistinct(t *testing.T) {
	store := openStore(t, 0)
	ctx := context.Background()
	base := Key{Left: "aa", Right: "bb", MaxJoins: 1, Scoring: "s"}
	require.NoError(t, store.Put(ctx, base, Result{Score: 1}))

	for _, k := range []Key{
		{Left: "bb", Right: "aa", MaxJoins: 1, Scoring: "s"},
		{Left: "aa", Right: "bb", MaxJoins: 2, Scoring: "s"},
		{Left: "aa", Right: "bb", MaxJoins: 1, Scoring: "t"},
	} {
		_, ok, err := store.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, "%+v", k)
	}
}

func TestResultStore_Context(t *testing.T) {
	store := openStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.Get(ctx, Key{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Put(ctx, Key{}, Result{}), context.Canceled)

	//nolint:staticcheck // nil context is the case under test
	_, _, err = store.Get(nil, Key{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestResultOf(t *testing.T) {
	left := tree.MustDecorate(tree.N("r", tree.N("a"), tree.N("b")))
	right := tree.MustDecorate(tree.N("r", tree.N("a"), tree.N("b")))

	al, err := align.New[string](scoring.New[string](scoring.DefaultWeights()), align.DefaultConfig())
	require.NoError(t, err)
	res, err := al.Align(context.Background(), left, right)
	require.NoError(t, err)

	r := ResultOf(res)
	assert.Equal(t, res.Score, r.Score)
	assert.Equal(t, int(res.Left.Index), r.Left)
	assert.Equal(t, int(res.Right.Index), r.Right)
	assert.Equal(t, res.Stats().Tables, r.Tables)

	store := openStore(t, time.Hour)
	key := Key{
		Left:     tree.Fingerprint(left, func(s string) string { return s }),
		Right:    tree.Fingerprint(right, func(s string) string { return s }),
		MaxJoins: 1,
		Scoring:  scoring.DefaultWeights().ID(),
	}
	require.NoError(t, store.Put(context.Background(), key, r))
	got, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r.Score, got.Score)
}

func TestResultOf_Empty(t *testing.T) {
	w := scoring.DefaultWeights()
	w.ScoreVertices = false
	left := tree.MustDecorate(tree.N("x"))
	right := tree.MustDecorate(tree.N("y"))

	al, err := align.New[string](scoring.New[string](w), align.DefaultConfig())
	require.NoError(t, err)
	res, err := al.Align(context.Background(), left, right)
	require.NoError(t, err)
	require.True(t, res.Empty())

	r := ResultOf(res)
	assert.Equal(t, -1, r.Left)
	assert.Equal(t, -1, r.Right)
	assert.Equal(t, float32(0), r.Score)
}
