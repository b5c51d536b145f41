// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads ftalign configuration from YAML.
//
// An embedded default.yaml supplies every value. A user file is decoded on
// top of the defaults, so it only needs the keys it changes. The merged
// result is validated with go-playground/validator before it is returned.
//
// Thread Safety:
//
//	Load is safe for concurrent use. A returned File is not modified by this
//	package.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/ftalign/pkg/logging"
	"github.com/AleutianAI/ftalign/services/align"
	"github.com/AleutianAI/ftalign/services/align/scoring"
	"github.com/AleutianAI/ftalign/services/align/table"
)

// MaxFileSize is the largest configuration file Load accepts.
const MaxFileSize = 1024 * 1024

//go:embed default.yaml
var defaultYAML []byte

var (
	// ErrNilContext is returned when Load is called with a nil context.
	ErrNilContext = errors.New("ctx must not be nil")

	// ErrFileTooLarge is returned for files above MaxFileSize.
	ErrFileTooLarge = errors.New("config file too large")

	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("invalid config")
)

// =============================================================================
// Metrics and tracing
// =============================================================================

var (
	configLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftalign_config_loads_total",
		Help: "Configuration loads by source and result",
	}, []string{"source", "result"})

	configLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ftalign_config_load_duration_seconds",
		Help:    "Duration of configuration loading",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05},
	})
)

var tracer = otel.Tracer("ftalign.config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// Types
// =============================================================================

// File is the root of the configuration document.
type File struct {
	Align     AlignSection     `yaml:"align"`
	Scoring   scoring.Weights  `yaml:"scoring"`
	Logging   LoggingSection   `yaml:"logging"`
	Telemetry TelemetrySection `yaml:"telemetry"`
	Cache     CacheSection     `yaml:"cache"`
}

// AlignSection configures the alignment engine.
type AlignSection struct {
	MaxJoins int    `yaml:"max_joins" validate:"gte=0,lte=65535"`
	Workers  int    `yaml:"workers" validate:"gte=0"`
	Storage  string `yaml:"storage" validate:"oneof=auto sparse dense"`
}

// LoggingSection configures pkg/logging.
type LoggingSection struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
	Dir    string `yaml:"dir"`
}

// TelemetrySection selects exporters for traces and metrics.
type TelemetrySection struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	Traces         string `yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics        string `yaml:"metrics" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=Traces otlp"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// CacheSection configures the persistent result cache.
type CacheSection struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir" validate:"required_if=Enabled true InMemory false"`
	InMemory bool          `yaml:"in_memory"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded configuration.
func Default() *File {
	f, err := parse(defaultYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return f
}

// Load reads the configuration at path merged over the embedded defaults.
//
// Description:
//
//	An empty path returns the defaults. The file is decoded on top of the
//	defaults, so absent keys keep their default values. The result is
//	validated.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - path: YAML file path, or "".
//
// Outputs:
//   - *File: The merged configuration. Nil on error.
//   - error: ErrNilContext, ErrFileTooLarge, an I/O or YAML error, or
//     ErrInvalid wrapping the validator's report.
//
// Thread Safety: Safe for concurrent use.
func Load(ctx context.Context, path string) (*File, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	ctx, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	start := time.Now()
	defer func() { configLoadDuration.Observe(time.Since(start).Seconds()) }()

	source := "embedded"
	var overlay []byte
	if path != "" {
		source = "file"
		data, err := readFile(path)
		if err != nil {
			return nil, loadFailed(span, source, err)
		}
		overlay = data
	}
	span.SetAttributes(attribute.String("source", source), attribute.Int("yaml_size", len(overlay)))

	f, err := parse(defaultYAML, overlay)
	if err != nil {
		return nil, loadFailed(span, source, err)
	}

	configLoads.WithLabelValues(source, "ok").Inc()
	span.SetStatus(codes.Ok, "")
	slog.DebugContext(ctx, "config loaded",
		slog.String("source", source),
		slog.Int("max_joins", f.Align.MaxJoins),
		slog.String("storage", f.Align.Storage))
	return f, nil
}

func loadFailed(span trace.Span, source string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "config load failed")
	configLoads.WithLabelValues(source, "error").Inc()
	return err
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func parse(base, overlay []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(base, &f); err != nil {
		return nil, fmt.Errorf("decode default config: %w", err)
	}
	if len(overlay) > 0 {
		if err := yaml.Unmarshal(overlay, &f); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// AlignConfig converts the align section into an engine configuration.
func (f *File) AlignConfig(logger *slog.Logger) (align.Config, error) {
	mode, err := table.ParseStorageMode(f.Align.Storage)
	if err != nil {
		return align.Config{}, err
	}
	cfg := align.Config{
		MaxJoins: f.Align.MaxJoins,
		Workers:  f.Align.Workers,
		Storage:  mode,
		Logger:   logger,
	}
	if err := cfg.Validate(); err != nil {
		return align.Config{}, err
	}
	return cfg, nil
}

// LoggingConfig converts the logging section for pkg/logging.
func (f *File) LoggingConfig(service string) (logging.Config, error) {
	level, err := logging.ParseLevel(f.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	format, err := logging.ParseFormat(f.Logging.Format)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		Service: service,
		Format:  format,
		LogDir:  f.Logging.Dir,
	}, nil
}
