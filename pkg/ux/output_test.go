// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput_Plain(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf, true)
	assert.True(t, o.Plain())

	o.Title("ignored")
	o.Muted("ignored")
	o.Field("score", 1.5)
	o.Success("done")
	o.Error("bad")
	o.Table([]string{"op", "cost"}, [][]string{{"match", "1"}, {"delete", "-0.25"}})

	want := "score\t1.5\n" +
		"OK: done\n" +
		"ERROR: bad\n" +
		"op\tcost\n" +
		"match\t1\n" +
		"delete\t-0.25\n"
	assert.Equal(t, want, buf.String())
}

func TestOutput_Styled(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf, false)

	o.Title("Alignment")
	o.Field("score", 2)
	o.Warning("empty alignment")
	o.Table([]string{"op"}, [][]string{{"match"}})
	o.Box("Stats", "tables 4")

	out := buf.String()
	assert.Contains(t, out, "Alignment")
	assert.Contains(t, out, "score: 2")
	assert.Contains(t, out, "⚠")
	assert.Contains(t, out, "match")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "tables 4")
}
