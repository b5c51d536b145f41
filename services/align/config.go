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
	"fmt"
	"log/slog"
	"math"

	"github.com/AleutianAI/ftalign/services/align/table"
)

// Config controls an alignment run.
type Config struct {
	// MaxJoins bounds the number of intermediate vertices a join may
	// collapse on either side. 0 disables joins. Must fit in uint16.
	MaxJoins int

	// Workers is the number of goroutines building tables. 0 and 1 select
	// the sequential driver.
	Workers int

	// Storage selects the SubsetMap representation.
	Storage table.StorageMode

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a sequential configuration allowing single joins.
func DefaultConfig() Config {
	return Config{
		MaxJoins: 1,
		Workers:  1,
		Storage:  table.StorageAuto,
	}
}

// Validate checks the configuration.
//
// Outputs:
//   - error: ErrInvalidMaxJoins or ErrInvalidWorkers, wrapped with the value.
func (c Config) Validate() error {
	if c.MaxJoins < 0 || c.MaxJoins > math.MaxUint16 {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidMaxJoins, c.MaxJoins, math.MaxUint16)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	switch c.Storage {
	case table.StorageAuto, table.StorageSparse, table.StorageDense:
	default:
		return fmt.Errorf("%w: %d", table.ErrUnknownStorageMode, c.Storage)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
