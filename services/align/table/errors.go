// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package table

import "errors"

// Sentinel errors. All of them except ErrUnknownStorageMode signal internal
// consistency failures and are raised with panic.
var (
	// ErrSubsetOutOfRange is raised when a key does not fit the map's width.
	ErrSubsetOutOfRange = errors.New("subset key out of range")

	// ErrDenseTooLarge is raised when dense storage is forced for a map at or
	// above HugeThreshold cells.
	ErrDenseTooLarge = errors.New("dense storage requested for huge map")

	// ErrImmutable is raised on a write to the shared empty table.
	ErrImmutable = errors.New("write to immutable empty table")

	// ErrUnknownStorageMode is returned by ParseStorageMode.
	ErrUnknownStorageMode = errors.New("unknown storage mode")
)
