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

// Scoring supplies the costs of alignment operations.
//
// Description:
//
//	All costs may be negative (penalty) or positive (bonus). The engine only
//	records strictly positive cumulative scores, so an operation that never
//	produces a positive total is effectively never chosen.
//
// Thread Safety: Implementations must be safe for concurrent use when
// Config.Workers > 1.
type Scoring[T any] interface {
	// Match scores aligning vertex a with vertex b.
	Match(a, b T) float32

	// DeleteLeft scores removing a left vertex while its children stay aligned.
	DeleteLeft(a T) float32

	// DeleteRight scores removing a right vertex while its children stay aligned.
	DeleteRight(b T) float32

	// Join scores collapsing a left path onto a right path.
	//
	// left is [endpoint, l intermediate vertices, top] (length l+2) and right
	// likewise with r intermediate vertices. The endpoints are aligned with
	// each other, the tops are the vertices whose children the join serves.
	Join(left, right []T, l, r int) float32

	// ScoreVertices scores the pair at which the alignment is rooted.
	// Only consulted when IsScoringVertices reports true.
	ScoreVertices(a, b T) float32

	// IsScoringVertices reports whether ScoreVertices contributes to scores.
	IsScoringVertices() bool
}
