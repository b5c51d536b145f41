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

import (
	"fmt"
)

// HugeThreshold is the combinatorial size at which the automatic storage
// selection switches from a dense array to a hash map.
const HugeThreshold = 1 << 18

// maxInitialCapacity caps the initial slot count of sparse maps.
const maxInitialCapacity = 1024

// StorageKind identifies the representation backing a SubsetMap.
type StorageKind uint8

const (
	// KindEmpty is the shared immutable map of the empty table.
	KindEmpty StorageKind = iota

	// KindDense is a flat []float32 indexed by packed key.
	KindDense

	// KindSparse is a hash map from packed key to value.
	KindSparse
)

// String implements fmt.Stringer.
func (k StorageKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	default:
		return fmt.Sprintf("StorageKind(%d)", uint8(k))
	}
}

// StorageMode selects how NewSubsetMap picks a representation.
type StorageMode uint8

const (
	// StorageAuto uses dense storage below HugeThreshold and sparse above.
	StorageAuto StorageMode = iota

	// StorageSparse forces hash maps everywhere.
	StorageSparse

	// StorageDense forces dense arrays. Sizes at or above HugeThreshold
	// are rejected.
	StorageDense
)

// String implements fmt.Stringer.
func (m StorageMode) String() string {
	switch m {
	case StorageAuto:
		return "auto"
	case StorageSparse:
		return "sparse"
	case StorageDense:
		return "dense"
	default:
		return fmt.Sprintf("StorageMode(%d)", uint8(m))
	}
}

// ParseStorageMode parses "auto", "sparse" or "dense". The empty string is auto.
func ParseStorageMode(s string) (StorageMode, error) {
	switch s {
	case "", "auto":
		return StorageAuto, nil
	case "sparse":
		return StorageSparse, nil
	case "dense":
		return StorageDense, nil
	default:
		return StorageAuto, fmt.Errorf("%w: %q", ErrUnknownStorageMode, s)
	}
}

// SubsetMap maps packed subset keys to scores.
//
// Description:
//
//	Only strictly positive values are stored and an absent key reads as 0.
//	Every write goes through PutIfGreater, so a stored value never decreases.
//	Range visits entries in the order they were first created, which makes
//	every consumer of the map deterministic regardless of representation.
//
// Thread Safety: Not safe for concurrent writes. Concurrent reads are safe
// once writing has finished.
type SubsetMap interface {
	// Get returns the stored value and whether the key is present.
	Get(key uint64) (float32, bool)

	// PutIfGreater stores v if it is strictly greater than the current value
	// (0 when absent). created reports whether the key was absent before.
	PutIfGreater(key uint64, v float32) (improved, created bool)

	// Len returns the number of stored keys.
	Len() int

	// Range calls fn for every entry in creation order until fn returns false.
	Range(fn func(key uint64, v float32) bool)

	// Kind returns the backing representation.
	Kind() StorageKind
}

// NewSubsetMap creates a map for keys of the given bit width.
//
// Inputs:
//   - bits: Number of key bits. Keys must be < 1<<bits. Must be in [0, 62].
//   - mode: Storage selection.
//
// Outputs:
//   - SubsetMap: Dense or sparse map, never nil.
//
// Panics with ErrDenseTooLarge if mode is StorageDense and the size is at or
// above HugeThreshold, and with ErrSubsetOutOfRange if bits is outside [0, 62].
func NewSubsetMap(bits int, mode StorageMode) SubsetMap {
	if bits < 0 || bits > 62 {
		panic(fmt.Errorf("%w: %d key bits", ErrSubsetOutOfRange, bits))
	}
	size := uint64(1) << bits

	switch mode {
	case StorageDense:
		if size >= HugeThreshold {
			panic(fmt.Errorf("%w: 2^%d cells", ErrDenseTooLarge, bits))
		}
		return newDense(int(size))
	case StorageSparse:
		if size >= HugeThreshold {
			return newSparse(bits, hugeCapacity(size))
		}
		return newSparse(bits, smallCapacity(size))
	default:
		if size >= HugeThreshold {
			return newSparse(bits, hugeCapacity(size))
		}
		return newDense(int(size))
	}
}

// hugeCapacity is 5% of the cells, capped.
func hugeCapacity(size uint64) int {
	return int(min(size/20, maxInitialCapacity))
}

// smallCapacity is 20% of the cells plus two, capped.
func smallCapacity(size uint64) int {
	return int(min(size/5+2, maxInitialCapacity))
}

// =============================================================================
// Dense
// =============================================================================

// denseMap stores values in a flat slice; 0 marks an absent slot.
type denseMap struct {
	values []float32
	keys   []uint64
}

func newDense(size int) *denseMap {
	return &denseMap{values: make([]float32, size)}
}

func (m *denseMap) Get(key uint64) (float32, bool) {
	if key >= uint64(len(m.values)) {
		panic(fmt.Errorf("%w: key %d, size %d", ErrSubsetOutOfRange, key, len(m.values)))
	}
	v := m.values[key]
	return v, v > 0
}

func (m *denseMap) PutIfGreater(key uint64, v float32) (bool, bool) {
	if key >= uint64(len(m.values)) {
		panic(fmt.Errorf("%w: key %d, size %d", ErrSubsetOutOfRange, key, len(m.values)))
	}
	cur := m.values[key]
	if !(v > cur) {
		return false, false
	}
	m.values[key] = v
	if cur == 0 {
		m.keys = append(m.keys, key)
		return true, true
	}
	return true, false
}

func (m *denseMap) Len() int { return len(m.keys) }

func (m *denseMap) Range(fn func(key uint64, v float32) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

func (m *denseMap) Kind() StorageKind { return KindDense }

// =============================================================================
// Sparse
// =============================================================================

// sparseMap stores values in a Go map plus a creation-order key log.
type sparseMap struct {
	bits   int
	values map[uint64]float32
	keys   []uint64
}

func newSparse(bits, capacity int) *sparseMap {
	return &sparseMap{
		bits:   bits,
		values: make(map[uint64]float32, capacity),
		keys:   make([]uint64, 0, capacity),
	}
}

func (m *sparseMap) check(key uint64) {
	if key>>m.bits != 0 {
		panic(fmt.Errorf("%w: key %d, %d bits", ErrSubsetOutOfRange, key, m.bits))
	}
}

func (m *sparseMap) Get(key uint64) (float32, bool) {
	m.check(key)
	v, ok := m.values[key]
	return v, ok
}

func (m *sparseMap) PutIfGreater(key uint64, v float32) (bool, bool) {
	m.check(key)
	cur, ok := m.values[key]
	if !(v > cur) {
		return false, false
	}
	m.values[key] = v
	if !ok {
		m.keys = append(m.keys, key)
		return true, true
	}
	return true, false
}

func (m *sparseMap) Len() int { return len(m.keys) }

func (m *sparseMap) Range(fn func(key uint64, v float32) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

func (m *sparseMap) Kind() StorageKind { return KindSparse }

// =============================================================================
// Empty
// =============================================================================

// emptyMap backs the shared Empty table. Reads return absent, writes panic.
type emptyMap struct{}

func (emptyMap) Get(uint64) (float32, bool) { return 0, false }

func (emptyMap) PutIfGreater(uint64, float32) (bool, bool) {
	panic(ErrImmutable)
}

func (emptyMap) Len() int { return 0 }

func (emptyMap) Range(func(uint64, float32) bool) {}

func (emptyMap) Kind() StorageKind { return KindEmpty }
