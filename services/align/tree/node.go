// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree provides decorated rooted trees for the alignment engine.
//
// A decorated tree is an immutable rooted tree whose nodes carry the
// bookkeeping the alignment DP needs: a post-order index unique within the
// tree, the depth below the root, the number of children, and a sibling bit
// that identifies the node inside its parent's children bitmask.
//
// # Invariants
//
//   - Post-order index: every node's index is greater than the index of any
//     of its descendants. Iterating nodes by index is a linear extension
//     of the ancestor relation.
//   - Children bits: child i of a node has SiblingBit == 1<<i, so the set of
//     all children of a node is (1<<Degree)-1.
//   - Degree <= MaxDegree (31), so a uint32 encodes any subset of children.
//
// # Thread Safety
//
// Trees are read-only after Decorate returns and are safe for concurrent use.
package tree

// MaxDegree is the largest number of children a decorated node may have.
//
// Subsets of children are encoded as uint32 bitmasks; bit 31 is kept free so
// (1<<Degree)-1 never overflows.
const MaxDegree = 31

// Node is a vertex in a decorated tree.
//
// Nodes are created by Decorate and must not be mutated afterwards.
type Node[T any] struct {
	// Index is the post-order index, unique within the owning tree.
	Index uint32

	// Depth is the number of edges between the node and the root.
	Depth uint16

	// Degree is the number of children.
	Degree uint8

	// SiblingBit has exactly one bit set: 1<<position among siblings.
	// The root has SiblingBit 1.
	SiblingBit uint32

	// Label is the opaque payload handed to the scoring function.
	Label T

	// Parent is nil for the root.
	Parent *Node[T]

	// Children in sibling order.
	Children []*Node[T]
}

// IsRoot reports whether the node has no parent.
func (n *Node[T]) IsRoot() bool {
	return n.Parent == nil
}

// IsLeaf reports whether the node has no children.
func (n *Node[T]) IsLeaf() bool {
	return n.Degree == 0
}

// ChildMask returns the bitmask naming all children of n.
func (n *Node[T]) ChildMask() uint32 {
	return uint32(1)<<n.Degree - 1
}

// Ancestor returns the k-th ancestor of n (k=0 is n itself), or nil when the
// tree is not that deep above n.
func (n *Node[T]) Ancestor(k int) *Node[T] {
	cur := n
	for i := 0; i < k && cur != nil; i++ {
		cur = cur.Parent
	}
	return cur
}

// Path returns n followed by its first k ancestors: [n, parent, ..., k-th ancestor].
//
// Returns nil if n has fewer than k ancestors.
func (n *Node[T]) Path(k int) []*Node[T] {
	if int(n.Depth) < k {
		return nil
	}
	path := make([]*Node[T], 0, k+1)
	for cur, i := n, 0; i <= k; i++ {
		path = append(path, cur)
		cur = cur.Parent
	}
	return path
}

// ChildrenOf returns the children of n named by mask, in sibling order.
func (n *Node[T]) ChildrenOf(mask uint32) []*Node[T] {
	out := make([]*Node[T], 0, n.Degree)
	for i, c := range n.Children {
		if mask&(uint32(1)<<i) != 0 {
			out = append(out, c)
		}
	}
	return out
}
