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
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ftalign/services/align/config"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func runJSON(t *testing.T, args ...string) report {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err)
	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

func fixture(name string) string { return filepath.Join("testdata", name) }

func TestAlign_Benzene(t *testing.T) {
	r := runJSON(t, "align", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))

	assert.Equal(t, float32(2.75), r.Score)
	assert.False(t, r.Empty)
	assert.False(t, r.Cached)
	require.NotNil(t, r.Left)
	require.NotNil(t, r.Right)
	assert.Equal(t, "C6H6", r.Left.Label)
	assert.Equal(t, "C6H6", r.Right.Label)
	assert.NotEmpty(t, r.RunID)
	require.NotNil(t, r.Stats)
	assert.Equal(t, 4*3, r.Stats.Tables, "one table per vertex pair")
}

func TestAlign_NoJoinsSameScore(t *testing.T) {
	r := runJSON(t, "align", "--max-joins", "0", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))
	assert.Equal(t, float32(2.75), r.Score, "deleting C6H5 scores the same as joining through it")
	assert.Zero(t, r.Stats.JoinTables)
}

func TestAlign_TraceSumsToScore(t *testing.T) {
	r := runJSON(t, "align", "--trace", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))

	require.NotEmpty(t, r.Operations)
	assert.Equal(t, "matchVertices", r.Operations[0].Kind)
	var sum float64
	for _, op := range r.Operations {
		sum += float64(op.Cost)
	}
	assert.InDelta(t, 2.75, sum, 1e-6)
}

func TestAlign_ParallelMatchesSequential(t *testing.T) {
	seq := runJSON(t, "align", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))
	par := runJSON(t, "align", "--workers", "4", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))
	assert.Equal(t, seq.Score, par.Score)
	assert.Equal(t, seq.Left, par.Left)
	assert.Equal(t, seq.Right, par.Right)
	assert.Equal(t, 4, par.Stats.Workers)
}

func TestAlign_Cache(t *testing.T) {
	dir := t.TempDir()
	args := []string{"align", "--cache-dir", dir, fixture("benzene_left.yaml"), fixture("benzene_right.yaml")}

	first := runJSON(t, args...)
	assert.False(t, first.Cached)

	second := runJSON(t, args...)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Left, second.Left)
	assert.Equal(t, first.Right, second.Right)

	third := runJSON(t, append(args, "--no-cache")...)
	assert.False(t, third.Cached)

	other := runJSON(t, "align", "--cache-dir", dir, "--max-joins", "2", fixture("benzene_left.yaml"), fixture("benzene_right.yaml"))
	assert.False(t, other.Cached, "join budget is part of the key")
}

func TestAlign_PlainText(t *testing.T) {
	out, err := run(t, "align", "--max-joins", "0", fixture("wide.yaml"), fixture("wide.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "score\t4\n")
	assert.Contains(t, out, "left\troot (#3)\n")
	assert.Contains(t, out, "cached\tfalse\n")
}

func TestAlign_Errors(t *testing.T) {
	_, err := run(t, "align", fixture("benzene_left.yaml"))
	assert.Error(t, err, "two trees are required")

	_, err = run(t, "align", fixture("missing.yaml"), fixture("wide.yaml"))
	assert.Error(t, err)

	_, err = run(t, "align", fixture("broken.yaml"), fixture("wide.yaml"))
	assert.ErrorContains(t, err, "decode tree")

	_, err = run(t, "align", "--max-joins", "70000", fixture("wide.yaml"), fixture("wide.yaml"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadTree(t *testing.T) {
	tr, err := loadTree(fixture("benzene_left.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Size())
	assert.Equal(t, "C6H6", tr.Root().Label)
	assert.Equal(t, 2, tr.MaxDepth())

	again, err := loadTree(fixture("benzene_left.yaml"))
	require.NoError(t, err)
	assert.Equal(t, tree.Fingerprint(tr, identity), tree.Fingerprint(again, identity))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ftalign dev (none)\n", out)
}
