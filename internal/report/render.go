package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"podshare/internal/analysis"
)

// Render produces the plain-text report written next to the payload.
func Render(doc Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n\n", doc.Name, strings.Repeat("=", len(doc.Name)))

	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", s.Title, strings.Repeat("-", len(s.Title)), s.Body)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// BreakdownTable renders a breakdown as a console table for interactive
// review.
func BreakdownTable(title string, b analysis.Breakdown) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Value", "Files"})

	for _, g := range b.Groups() {
		t.AppendRow(table.Row{g.Value, g.Count()})
	}
	t.AppendFooter(table.Row{"Total", b.Total()})

	return t.Render()
}
