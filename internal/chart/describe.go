package chart

import (
	"fmt"
	"strings"
)

// Describe renders a plan as plain text for terminals
func Describe(p Plan) string {
	var b strings.Builder

	title := p.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "%s chart: %s\n", p.Type, title)

	if !p.Renderable() {
		fmt.Fprintf(&b, "  %s\n", p.Note)
		return b.String()
	}

	if p.XKey != "" || p.XLabel != "" {
		fmt.Fprintf(&b, "  x: %s\n", label(p.XKey, p.XLabel))
	}
	for _, s := range p.Series {
		line := fmt.Sprintf("  %s: %s (%s axis)", s.Mark, s.Key, s.Axis)
		if s.Stack != "" {
			line += " stacked"
		}
		b.WriteString(line + "\n")
	}

	for _, s := range p.Slices {
		fmt.Fprintf(&b, "  %s: %.0f%%\n", s.Name, s.Percent)
	}

	if len(p.Bubbles) > 0 {
		fmt.Fprintf(&b, "  %d bubbles\n", len(p.Bubbles))
	}

	if box := p.Box; box != nil {
		fmt.Fprintf(&b, "  Min: %.2f  Q1: %.2f  Median: %.2f  Q3: %.2f  Max: %.2f\n",
			box.Min, box.Q1, box.Median, box.Q3, box.Max)
		if box.Outliers > 0 {
			fmt.Fprintf(&b, "  Outliers: %d\n", box.Outliers)
		}
	}

	if m := p.Matrix; m != nil {
		b.WriteString("  " + strings.Join(m.Columns, "\t") + "\n")
		for i, row := range m.Values {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprintf("%.2f", v)
			}
			fmt.Fprintf(&b, "  %s\t%s\n", m.Rows[i], strings.Join(cells, "\t"))
		}
	}

	if p.Layout != LayoutPie && p.Layout != LayoutBoxplot && p.Layout != LayoutHeatmap {
		fmt.Fprintf(&b, "  %d rows\n", p.Rows)
	}
	return b.String()
}
