// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint returns a stable hex digest of the tree's shape and labels.
//
// Two trees have the same fingerprint iff they have the same post-order
// sequence of (degree, encoded label). encode must be deterministic.
func Fingerprint[T any](t *Tree[T], encode func(T) string) string {
	h := sha256.New()
	var buf [5]byte
	for _, n := range t.postOrder {
		label := encode(n.Label)
		buf[0] = n.Degree
		binary.BigEndian.PutUint32(buf[1:], uint32(len(label)))
		h.Write(buf[:])
		h.Write([]byte(label))
	}
	return hex.EncodeToString(h.Sum(nil))
}
