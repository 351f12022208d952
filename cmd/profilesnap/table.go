package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// newTable returns a table that renders to w with the given header.
func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// render prints t as a box table or, with markdown set, as a GitHub table.
func render(t table.Writer, markdown bool) {
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
