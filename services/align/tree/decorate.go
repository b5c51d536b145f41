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
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for tree decoration.
var (
	// ErrEmptyTree is returned when Decorate is given a nil root.
	ErrEmptyTree = errors.New("tree has no root")

	// ErrDegreeTooLarge is returned when a node has more than MaxDegree children.
	ErrDegreeTooLarge = errors.New("node degree exceeds bitmask width")

	// ErrTooDeep is returned when a node's depth does not fit in uint16.
	ErrTooDeep = errors.New("tree depth exceeds limit")

	// ErrCycle is returned when an input node is reachable twice, which means
	// the input is a DAG or cyclic graph rather than a tree.
	ErrCycle = errors.New("input is not a tree")
)

// Input is an undecorated tree node, the form external parsers produce.
type Input[T any] struct {
	Label    T           `yaml:"label" json:"label"`
	Children []*Input[T] `yaml:"children,omitempty" json:"children,omitempty"`
}

// N builds an Input node. It keeps fixtures short:
//
//	tree.N("C6H6", tree.N("C6H5"), tree.N("C5H5"))
func N[T any](label T, children ...*Input[T]) *Input[T] {
	return &Input[T]{Label: label, Children: children}
}

// Tree is a decorated tree.
type Tree[T any] struct {
	root      *Node[T]
	postOrder []*Node[T]
	heights   []uint16
	maxDegree int
	maxDepth  int
}

// Root returns the root node.
func (t *Tree[T]) Root() *Node[T] { return t.root }

// Size returns the number of nodes.
func (t *Tree[T]) Size() int { return len(t.postOrder) }

// PostOrder returns the nodes ordered by Index. The slice must not be modified.
func (t *Tree[T]) PostOrder() []*Node[T] { return t.postOrder }

// Node returns the node with the given post-order index, or nil.
func (t *Tree[T]) Node(index uint32) *Node[T] {
	if int(index) >= len(t.postOrder) {
		return nil
	}
	return t.postOrder[index]
}

// Height returns the height of the subtree rooted at n (0 for leaves).
func (t *Tree[T]) Height(n *Node[T]) int { return int(t.heights[n.Index]) }

// MaxDegree returns the largest degree of any node.
func (t *Tree[T]) MaxDegree() int { return t.maxDegree }

// MaxDepth returns the depth of the deepest node.
func (t *Tree[T]) MaxDepth() int { return t.maxDepth }

// Decorate builds a decorated tree from an input tree.
//
// Description:
//
//	Walks the input iteratively (no recursion, so deep fragmentation chains
//	cannot overflow the stack) and assigns post-order index, depth, degree
//	and sibling bit to every node.
//
// Inputs:
//   - root: Input root. Must not be nil.
//
// Outputs:
//   - *Tree[T]: The decorated tree. Never nil on success.
//   - error: ErrEmptyTree, ErrDegreeTooLarge, ErrTooDeep or ErrCycle.
//
// Thread Safety: Safe for concurrent use with different inputs.
func Decorate[T any](root *Input[T]) (*Tree[T], error) {
	if root == nil {
		return nil, ErrEmptyTree
	}

	type frame struct {
		in   *Input[T]
		node *Node[T]
		next int
	}

	seen := make(map[*Input[T]]struct{})
	t := &Tree[T]{}

	newNode := func(in *Input[T], parent *Node[T], position int) (*Node[T], error) {
		if _, dup := seen[in]; dup {
			return nil, ErrCycle
		}
		seen[in] = struct{}{}
		if len(in.Children) > MaxDegree {
			return nil, fmt.Errorf("%w: %d children", ErrDegreeTooLarge, len(in.Children))
		}
		n := &Node[T]{
			Label:      in.Label,
			Parent:     parent,
			Degree:     uint8(len(in.Children)),
			SiblingBit: uint32(1) << position,
			Children:   make([]*Node[T], 0, len(in.Children)),
		}
		if parent != nil {
			if parent.Depth == math.MaxUint16 {
				return nil, ErrTooDeep
			}
			n.Depth = parent.Depth + 1
		}
		return n, nil
	}

	rootNode, err := newNode(root, nil, 0)
	if err != nil {
		return nil, err
	}
	stack := []frame{{in: root, node: rootNode}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.in.Children) {
			childIn := top.in.Children[top.next]
			if childIn == nil {
				return nil, fmt.Errorf("%w: nil child", ErrEmptyTree)
			}
			child, err := newNode(childIn, top.node, top.next)
			if err != nil {
				return nil, err
			}
			top.node.Children = append(top.node.Children, child)
			top.next++
			stack = append(stack, frame{in: childIn, node: child})
			continue
		}

		// All children finished: emit in post-order.
		n := top.node
		n.Index = uint32(len(t.postOrder))
		t.postOrder = append(t.postOrder, n)

		var h uint16
		for _, c := range n.Children {
			if ch := t.heights[c.Index] + 1; ch > h {
				h = ch
			}
		}
		t.heights = append(t.heights, h)

		if int(n.Degree) > t.maxDegree {
			t.maxDegree = int(n.Degree)
		}
		if int(n.Depth) > t.maxDepth {
			t.maxDepth = int(n.Depth)
		}
		stack = stack[:len(stack)-1]
	}

	t.root = rootNode
	return t, nil
}

// MustDecorate is Decorate for fixtures; it panics on error.
func MustDecorate[T any](root *Input[T]) *Tree[T] {
	t, err := Decorate(root)
	if err != nil {
		panic(err)
	}
	return t
}
