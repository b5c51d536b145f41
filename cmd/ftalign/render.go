// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/ftalign/pkg/ux"
	"github.com/AleutianAI/ftalign/services/align"
	"github.com/AleutianAI/ftalign/services/align/storage/badger"
	"github.com/AleutianAI/ftalign/services/align/tree"
)

// report is the printable result of one align command.
type report struct {
	Score      float32      `json:"score"`
	Empty      bool         `json:"empty"`
	Left       *vertexRef   `json:"left,omitempty"`
	Right      *vertexRef   `json:"right,omitempty"`
	Cached     bool         `json:"cached"`
	RunID      string       `json:"run_id,omitempty"`
	Stats      *statsReport `json:"stats,omitempty"`
	Operations []opReport   `json:"operations,omitempty"`
}

type vertexRef struct {
	Index uint32 `json:"index"`
	Label string `json:"label"`
}

type statsReport struct {
	Tables     int    `json:"tables"`
	Cells      int    `json:"cells"`
	JoinTables int    `json:"join_tables"`
	Writes     int    `json:"writes"`
	DenseMaps  int    `json:"dense_maps"`
	SparseMaps int    `json:"sparse_maps"`
	Workers    int    `json:"workers,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

type opReport struct {
	Kind  string   `json:"kind"`
	Cost  float32  `json:"cost"`
	Left  []string `json:"left,omitempty"`
	Right []string `json:"right,omitempty"`
	L     int      `json:"l,omitempty"`
	R     int      `json:"r,omitempty"`
}

func ref(n *tree.Node[string]) *vertexRef {
	if n == nil {
		return nil
	}
	return &vertexRef{Index: n.Index, Label: n.Label}
}

func labels(nodes []*tree.Node[string]) []string {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func reportFromAlignment(a *align.Alignment[string], ops []align.Operation[string]) report {
	st := a.Stats()
	r := report{
		Score: a.Score,
		Empty: a.Empty(),
		Left:  ref(a.Left),
		Right: ref(a.Right),
		RunID: a.RunID.String(),
		Stats: &statsReport{
			Tables:     st.Tables,
			Cells:      st.Cells,
			JoinTables: st.JoinTables,
			Writes:     st.Writes,
			DenseMaps:  st.DenseMaps,
			SparseMaps: st.SparseMaps,
			Workers:    st.Workers,
			Duration:   st.Duration.Round(time.Microsecond).String(),
		},
	}
	for _, op := range ops {
		r.Operations = append(r.Operations, opReport{
			Kind:  op.Kind.String(),
			Cost:  op.Cost,
			Left:  labels(op.Left),
			Right: labels(op.Right),
			L:     op.L,
			R:     op.R,
		})
	}
	return r
}

func reportFromCache(c badger.Result, left, right *tree.Tree[string]) report {
	r := report{
		Score:  c.Score,
		Empty:  c.Left < 0,
		Cached: true,
		Stats: &statsReport{
			Tables:     c.Tables,
			Cells:      c.Cells,
			JoinTables: c.JoinTables,
			Writes:     c.Writes,
		},
	}
	if c.Left >= 0 && c.Right >= 0 {
		r.Left = ref(left.Node(uint32(c.Left)))
		r.Right = ref(right.Node(uint32(c.Right)))
	}
	return r
}

// render prints r as JSON or, on a terminal, as styled text. Non-terminal
// writers get the undecorated text form.
func render(w io.Writer, asJSON bool, r report) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	out := ux.NewOutput(w, !isTerminal(w))
	out.Title("Alignment")
	out.Field("score", formatCost(r.Score))
	if r.Empty {
		out.Warning("no pair of vertices aligns with a positive score")
	} else {
		out.Field("left", fmt.Sprintf("%s (#%d)", r.Left.Label, r.Left.Index))
		out.Field("right", fmt.Sprintf("%s (#%d)", r.Right.Label, r.Right.Index))
	}
	out.Field("cached", r.Cached)

	if len(r.Operations) > 0 {
		rows := make([][]string, 0, len(r.Operations))
		for _, op := range r.Operations {
			rows = append(rows, []string{op.Kind, formatCost(op.Cost), side(op.Left, op.L), side(op.Right, op.R)})
		}
		out.Table([]string{"operation", "cost", "left", "right"}, rows)
	}

	if st := r.Stats; st != nil && !out.Plain() {
		out.Box("Tables", fmt.Sprintf("pairs %d  cells %d  join tables %d  writes %d",
			st.Tables, st.Cells, st.JoinTables, st.Writes))
	}
	return nil
}

func side(path []string, depth int) string {
	s := strings.Join(path, " "+string(ux.IconArrow)+" ")
	if depth > 0 {
		s += " [" + strconv.Itoa(depth) + "]"
	}
	return s
}

func formatCost(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
