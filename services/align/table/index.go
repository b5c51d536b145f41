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

// Index maps (u.Index, v.Index) to the pair's Table.
//
// Description:
//
//	Tables are stored in a flat slice at u + v*leftSize. Lookups outside the
//	grid, and slots that have not been written, return Empty. This is how the
//	virtual parent of a root is represented.
//
// Thread Safety: Set must not be called concurrently for the same slot.
// Concurrent Set calls for distinct slots and At calls for slots that are
// complete are safe.
type Index struct {
	tables    []*Table
	leftSize  int
	rightSize int
}

// NewIndex creates an index for trees of the given sizes.
func NewIndex(leftSize, rightSize int) *Index {
	return &Index{
		tables:    make([]*Table, leftSize*rightSize),
		leftSize:  leftSize,
		rightSize: rightSize,
	}
}

// Size returns the tree sizes the index was built for.
func (ix *Index) Size() (leftSize, rightSize int) { return ix.leftSize, ix.rightSize }

// At returns the table for (u, v), or Empty.
func (ix *Index) At(u, v uint32) *Table {
	if int(u) >= ix.leftSize || int(v) >= ix.rightSize {
		return Empty
	}
	if t := ix.tables[int(u)+int(v)*ix.leftSize]; t != nil {
		return t
	}
	return Empty
}

// Set stores the table for (u, v). Out-of-range coordinates are ignored.
func (ix *Index) Set(u, v uint32, t *Table) {
	if int(u) >= ix.leftSize || int(v) >= ix.rightSize {
		return
	}
	ix.tables[int(u)+int(v)*ix.leftSize] = t
}

// Range calls fn for every stored table in (v outer, u inner) slot order
// until fn returns false.
func (ix *Index) Range(fn func(u, v uint32, t *Table) bool) {
	for i, t := range ix.tables {
		if t == nil {
			continue
		}
		if !fn(uint32(i%ix.leftSize), uint32(i/ix.leftSize), t) {
			return
		}
	}
}
