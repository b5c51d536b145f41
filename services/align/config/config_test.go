// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ftalign/pkg/logging"
	"github.com/AleutianAI/ftalign/services/align/scoring"
	"github.com/AleutianAI/ftalign/services/align/table"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ftalign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	f := Default()
	assert.Equal(t, 1, f.Align.MaxJoins)
	assert.Equal(t, 1, f.Align.Workers)
	assert.Equal(t, "auto", f.Align.Storage)
	assert.Equal(t, scoring.DefaultWeights(), f.Scoring)
	assert.Equal(t, "info", f.Logging.Level)
	assert.Equal(t, "ftalign", f.Telemetry.ServiceName)
	assert.Equal(t, "none", f.Telemetry.Traces)
	assert.False(t, f.Cache.Enabled)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	before := testutil.ToFloat64(configLoads.WithLabelValues("embedded", "ok"))

	f, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), f)

	assert.Equal(t, before+1, testutil.ToFloat64(configLoads.WithLabelValues("embedded", "ok")))
}

func TestLoad_OverlayKeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
align:
  max_joins: 3
  storage: sparse
scoring:
  match: 2
cache:
  enabled: true
  in_memory: true
  ttl: 90s
`)
	f, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, f.Align.MaxJoins)
	assert.Equal(t, 1, f.Align.Workers, "unset key keeps default")
	assert.Equal(t, "sparse", f.Align.Storage)
	assert.Equal(t, float32(2), f.Scoring.Match)
	assert.Equal(t, float32(-0.5), f.Scoring.Mismatch)
	assert.True(t, f.Cache.InMemory)
	assert.Equal(t, 90*time.Second, f.Cache.TTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative joins", "align:\n  max_joins: -1\n"},
		{"joins over uint16", "align:\n  max_joins: 70000\n"},
		{"unknown storage", "align:\n  storage: mmap\n"},
		{"positive delete", "scoring:\n  delete_left: 0.5\n"},
		{"zero match", "scoring:\n  match: 0\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad exporter", "telemetry:\n  traces: zipkin\n"},
		{"otlp without endpoint", "telemetry:\n  traces: otlp\n  otlp_endpoint: \"\"\n"},
		{"disk cache without dir", "cache:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(configLoads.WithLabelValues("file", "error"))
			_, err := Load(context.Background(), writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, before+1, testutil.ToFloat64(configLoads.WithLabelValues("file", "error")))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Load(nil, "")
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(context.Background(), writeConfig(t, "align: [unclosed"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)

	big := make([]byte, MaxFileSize+1)
	path := filepath.Join(t.TempDir(), "big.yaml")
	require.NoError(t, os.WriteFile(path, big, 0o600))
	_, err = Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAlignConfig(t *testing.T) {
	f := Default()
	f.Align.MaxJoins = 2
	f.Align.Workers = 4
	f.Align.Storage = "dense"

	cfg, err := f.AlignConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxJoins)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, table.StorageDense, cfg.Storage)

	f.Align.Storage = "mmap"
	_, err = f.AlignConfig(nil)
	assert.ErrorIs(t, err, table.ErrUnknownStorageMode)
}

func TestLoggingConfig(t *testing.T) {
	f := Default()
	f.Logging.Level = "debug"
	f.Logging.Format = "json"

	cfg, err := f.LoggingConfig("ftalign")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, cfg.Level)
	assert.Equal(t, logging.FormatJSON, cfg.Format)
	assert.Equal(t, "ftalign", cfg.Service)
}
