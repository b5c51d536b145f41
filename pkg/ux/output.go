// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the ftalign CLI.
//
// Output renders through a lipgloss renderer bound to its writer, so colors
// are only emitted when the writer is a color-capable terminal. Plain mode
// drops every decoration and prints tab-separated lines for scripts.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

type styles struct {
	title   lipgloss.Style
	key     lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	box     lipgloss.Style
	border  lipgloss.Style
	header  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		key:     r.NewStyle().Foreground(ColorTealPrimary),
		muted:   r.NewStyle().Foreground(ColorSlate),
		success: r.NewStyle().Foreground(ColorTealBright),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
		border: r.NewStyle().Foreground(ColorTealDeep),
		header: r.NewStyle().Bold(true).Foreground(ColorTealPrimary).Padding(0, 1),
	}
}

// Output writes styled or plain text to a writer.
//
// Thread Safety: Not safe for concurrent use.
type Output struct {
	w     io.Writer
	plain bool
	st    styles
}

// NewOutput creates an Output. plain selects undecorated output.
func NewOutput(w io.Writer, plain bool) *Output {
	return &Output{w: w, plain: plain, st: newStyles(lipgloss.NewRenderer(w))}
}

// Plain reports whether decorations are disabled.
func (o *Output) Plain() bool { return o.plain }

// Title prints a heading. Plain output omits it.
func (o *Output) Title(text string) {
	if o.plain {
		return
	}
	fmt.Fprintln(o.w, o.st.title.Render(text))
}

// Field prints a key and value on one line.
func (o *Output) Field(key string, value any) {
	if o.plain {
		fmt.Fprintf(o.w, "%s\t%v\n", key, value)
		return
	}
	fmt.Fprintf(o.w, "%s %v\n", o.st.key.Render(key+":"), value)
}

// Success prints a message with a check mark.
func (o *Output) Success(text string) { o.status(IconSuccess, "OK", o.st.success, text) }

// Warning prints a warning.
func (o *Output) Warning(text string) { o.status(IconWarning, "WARN", o.st.warning, text) }

// Error prints an error.
func (o *Output) Error(text string) { o.status(IconError, "ERROR", o.st.err, text) }

func (o *Output) status(icon Icon, tag string, style lipgloss.Style, text string) {
	if o.plain {
		fmt.Fprintf(o.w, "%s: %s\n", tag, text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", style.Render(string(icon)), style.Render(text))
}

// Muted prints secondary text. Plain output omits it.
func (o *Output) Muted(text string) {
	if o.plain {
		return
	}
	fmt.Fprintln(o.w, o.st.muted.Render(text))
}

// Box prints content in a rounded box under a title.
func (o *Output) Box(title, content string) {
	if o.plain {
		fmt.Fprintf(o.w, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(o.w, o.st.box.Render(o.st.title.Render(title)+"\n"+content))
}

// Table prints rows under a header. Plain output is tab separated.
func (o *Output) Table(header []string, rows [][]string) {
	if o.plain {
		fmt.Fprintln(o.w, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(o.w, strings.Join(row, "\t"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(o.st.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.st.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(header...).
		Rows(rows...)
	fmt.Fprintln(o.w, t.String())
}
