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

import "errors"

// Sentinel errors for alignment operations.
var (
	// ErrInvalidMaxJoins is returned when MaxJoins is negative or does not
	// fit in 16 bits.
	ErrInvalidMaxJoins = errors.New("max joins out of range")

	// ErrInvalidWorkers is returned when Workers is negative.
	ErrInvalidWorkers = errors.New("workers must not be negative")

	// ErrNilTree is returned when either input tree is nil.
	ErrNilTree = errors.New("tree must not be nil")

	// ErrNilScoring is returned when New is called without a scoring function.
	ErrNilScoring = errors.New("scoring must not be nil")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilVisitor is returned when Backtrace is called with a nil visitor.
	ErrNilVisitor = errors.New("backtrace visitor must not be nil")

	// ErrInconsistentTables is raised with panic when the backtrace cannot
	// re-derive a recorded score from the finished tables. It indicates a bug
	// in table construction, never bad input.
	ErrInconsistentTables = errors.New("tables inconsistent with recorded score")
)
