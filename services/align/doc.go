// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package align computes optimal alignments between two decorated trees.
//
// The engine fills one DP table per vertex pair (u, v), visiting u in
// post-order and, for every u, v in post-order. Each table records, for
// every pair of children subsets (A of u, B of v), the best score of
// aligning exactly those child subtrees, built from blocks:
//
//   - match: a child a matched to a child b, plus the best alignment below
//     (a, b)
//   - deleteLeft / deleteRight: a child removed while its own children align
//     against a subset of the other side
//   - join: a path of up to MaxJoins vertices on one side collapsed onto a
//     path on the other side
//
// Scores only ever grow through put-if-greater writes, and only strictly
// positive values are recorded. Cells are expanded in non-decreasing order
// of |A|+|B| so every cell is final before it is extended.
//
// The tables carry no provenance. Alignment.Backtrace re-derives the
// operations behind the optimum by recomputing candidate blocks against the
// finished tables.
//
// # Thread Safety
//
// An Aligner is immutable and safe for concurrent use. An Alignment is
// read-only and its Backtrace may be called from multiple goroutines.
package align
