package chart

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/liliang-cn/orion/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Placeholder notes for charts that cannot be drawn
const (
	NoteNoData         = "No data available for chart"
	NoteMissingY       = "Missing Y axis data"
	NoteNoBoxplot      = "No boxplot data available"
	NoteNoCorrelation  = "No correlation data available"
	noteUnsupportedFmt = "Unsupported chart type: %s"
)

// Layout is the drawing surface a plan targets
type Layout string

const (
	LayoutBar      Layout = "bar"
	LayoutLine     Layout = "line"
	LayoutArea     Layout = "area"
	LayoutScatter  Layout = "scatter"
	LayoutPie      Layout = "pie"
	LayoutComposed Layout = "composed"
	LayoutBoxplot  Layout = "boxplot"
	LayoutHeatmap  Layout = "heatmap"
	LayoutNone     Layout = ""
)

const (
	stackID           = "stack"
	defaultBubbleSize = 10.0
)

// Axis is the y axis a series is drawn against
type Axis string

const (
	AxisLeft  Axis = "left"
	AxisRight Axis = "right"
)

// Palette is cycled through for series, slices and cells
var Palette = []string{
	"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884d8", "#82ca9d",
	"#ff6b6b", "#4ecdc4", "#ffe66d", "#95e1d3", "#f38181", "#aa96da",
}

func color(i int) string { return Palette[i%len(Palette)] }

// Series is one data key drawn on a cartesian layout
type Series struct {
	Key   string `json:"key"`
	Mark  Layout `json:"mark"`
	Axis  Axis   `json:"axis"`
	Stack string `json:"stack,omitempty"`
	Color string `json:"color"`
}

// Slice is one wedge of a pie
type Slice struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// Bubble is one point of a bubble chart
type Bubble struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// BoxSummary is a five-number summary
type BoxSummary struct {
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	Outliers int     `json:"outliers"`
}

// Matrix is a labelled correlation matrix
type Matrix struct {
	Columns []string    `json:"columns"`
	Rows    []string    `json:"rows"`
	Values  [][]float64 `json:"values"`
}

// Plan describes how a chart config maps onto render primitives. A plan with
// a Note is a placeholder and carries nothing else worth drawing.
type Plan struct {
	Type    domain.ChartType `json:"type"`
	Title   string           `json:"title,omitempty"`
	Layout  Layout           `json:"layout"`
	XKey    string           `json:"xKey,omitempty"`
	XLabel  string           `json:"xLabel,omitempty"`
	YLabel  string           `json:"yLabel,omitempty"`
	Y2Label string           `json:"y2Label,omitempty"`
	Series  []Series         `json:"series,omitempty"`
	Slices  []Slice          `json:"slices,omitempty"`
	Bubbles []Bubble         `json:"bubbles,omitempty"`
	Box     *BoxSummary      `json:"box,omitempty"`
	Matrix  *Matrix          `json:"matrix,omitempty"`
	Rows    int              `json:"rows"`
	Note    string           `json:"note,omitempty"`
}

// Renderable reports whether the plan is more than a placeholder
func (p Plan) Renderable() bool {
	return p.Note == ""
}

// BuildAll plans every chart in order
func BuildAll(charts []domain.ChartConfig) []Plan {
	plans := make([]Plan, 0, len(charts))
	for _, c := range charts {
		plans = append(plans, Build(c))
	}
	return plans
}

// Build maps a chart config onto render primitives
func Build(c domain.ChartConfig) Plan {
	p := Plan{Type: c.Type, Title: c.Title, Rows: len(c.Data)}
	if len(c.Data) == 0 {
		return placeholder(p, NoteNoData)
	}

	switch c.Type {
	case domain.ChartBar:
		p.Layout = LayoutBar
		p.XKey = c.X
		p.XLabel = label(c.X, "X Axis")
		p.YLabel = label(c.Y, "Y Axis")
		if c.GroupBy != "" {
			stack := ""
			if c.Stacked {
				stack = stackID
			}
			for i, key := range GroupKeys(c.Data, c.X) {
				p.Series = append(p.Series, Series{Key: key, Mark: LayoutBar, Axis: AxisLeft, Stack: stack, Color: color(i)})
			}
			return p
		}
		if c.Y == "" {
			return placeholder(p, NoteMissingY)
		}
		p.Series = []Series{{Key: c.Y, Mark: LayoutBar, Axis: AxisLeft, Color: color(0)}}

	case domain.ChartLine, domain.ChartArea:
		if c.Y == "" {
			return placeholder(p, NoteMissingY)
		}
		p.Layout = LayoutLine
		if c.Type == domain.ChartArea {
			p.Layout = LayoutArea
		}
		p.XKey = c.X
		p.XLabel = label(c.X, "X Axis")
		p.YLabel = label(c.Y, "Y Axis")
		p.Series = []Series{{Key: c.Y, Mark: p.Layout, Axis: AxisLeft, Color: color(0)}}

	case domain.ChartScatter:
		p.Layout = LayoutScatter
		p.XKey = c.X
		p.XLabel = label(c.X, "X Axis")
		p.YLabel = label(c.Y, "Y Axis")
		p.Series = []Series{{Key: c.Y, Mark: LayoutScatter, Axis: AxisLeft, Color: color(0)}}

	case domain.ChartPie:
		p.Layout = LayoutPie
		p.Slices = slices(c)

	case domain.ChartCombo:
		if c.Y == "" {
			return placeholder(p, NoteMissingY)
		}
		p.Layout = LayoutComposed
		p.XKey = c.X
		p.XLabel = label(c.X, "X Axis")
		p.YLabel = label(c.Y, "Y Axis (Left)")
		p.Y2Label = label(c.Y2, "Y Axis (Right)")
		p.Series = []Series{{Key: c.Y, Mark: LayoutBar, Axis: AxisLeft, Color: color(0)}}
		if c.Y2 != "" {
			p.Series = append(p.Series, Series{Key: c.Y2, Mark: LayoutLine, Axis: AxisRight, Color: color(1)})
		}

	case domain.ChartHistogram:
		p.Layout = LayoutBar
		p.XKey = "bin"
		p.XLabel = label(c.X, "Bin Range")
		p.YLabel = "Frequency"
		p.Series = []Series{{Key: "count", Mark: LayoutBar, Axis: AxisLeft, Color: color(0)}}

	case domain.ChartBoxplot:
		box, ok := boxSummary(c)
		if !ok {
			return placeholder(p, NoteNoBoxplot)
		}
		p.Layout = LayoutBoxplot
		p.Box = box

	case domain.ChartBubble:
		p.Layout = LayoutScatter
		p.XKey = c.X
		p.XLabel = c.X
		p.YLabel = c.Y
		p.Series = []Series{{Key: c.Y, Mark: LayoutScatter, Axis: AxisLeft, Color: color(0)}}
		p.Bubbles = bubbles(c)

	case domain.ChartCorrelation:
		m, ok := correlation(c)
		if !ok {
			return placeholder(p, NoteNoCorrelation)
		}
		p.Layout = LayoutHeatmap
		p.Matrix = m

	default:
		return placeholder(p, fmt.Sprintf(noteUnsupportedFmt, c.Type))
	}
	return p
}

// GroupKeys lists the series keys of pivoted bar data: every key seen in the
// rows except the x key and the reserved x, category and value keys. Keys are
// returned sorted.
func GroupKeys(data []map[string]any, xKey string) []string {
	seen := make(map[string]struct{})
	for _, row := range data {
		for key := range row {
			switch key {
			case "x", "category", "value", xKey:
				continue
			}
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func placeholder(p Plan, note string) Plan {
	p.Layout = LayoutNone
	p.Note = note
	return p
}

func label(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func slices(c domain.ChartConfig) []Slice {
	catKey := label(c.Category, "category")
	valKey := label(c.Value, "value")

	out := make([]Slice, 0, len(c.Data))
	total := 0.0
	for i, row := range c.Data {
		v, _ := number(row[valKey])
		total += v
		out = append(out, Slice{Name: text(row[catKey]), Value: v, Color: color(i)})
	}
	if total != 0 {
		for i := range out {
			out[i].Percent = out[i].Value / total * 100
		}
	}
	return out
}

func bubbles(c domain.ChartConfig) []Bubble {
	zKey := label(c.Z, "z")
	out := make([]Bubble, 0, len(c.Data))
	for _, row := range c.Data {
		x, _ := number(row[c.X])
		y, _ := number(row[c.Y])
		size, ok := number(row[zKey])
		if !ok || size == 0 {
			size = defaultBubbleSize
		}
		out = append(out, Bubble{X: x, Y: y, Radius: math.Sqrt(math.Abs(size)) * 2})
	}
	return out
}

// boxSummary reads a precomputed summary from the first row, or derives one
// from the raw values of the y (or value) column.
func boxSummary(c domain.ChartConfig) (*BoxSummary, bool) {
	first := c.Data[0]
	if _, ok := first["q1"]; ok {
		box := &BoxSummary{}
		box.Min, _ = number(first["min"])
		box.Q1, _ = number(first["q1"])
		box.Median, _ = number(first["median"])
		box.Q3, _ = number(first["q3"])
		box.Max, _ = number(first["max"])
		if outliers, ok := first["outliers"].([]any); ok {
			box.Outliers = len(outliers)
		}
		return box, true
	}

	key := label(c.Y, c.Value)
	if key == "" {
		return nil, false
	}
	values := column(c.Data, key)
	if len(values) == 0 {
		return nil, false
	}
	sort.Float64s(values)

	q1 := stat.Quantile(0.25, stat.Empirical, values, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, values, nil)
	lo, hi := q1-1.5*(q3-q1), q3+1.5*(q3-q1)
	box := &BoxSummary{
		Min:    values[0],
		Q1:     q1,
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		Q3:     q3,
		Max:    values[len(values)-1],
	}
	for _, v := range values {
		if v < lo || v > hi {
			box.Outliers++
		}
	}
	return box, true
}

// correlation reads a precomputed matrix (rows labelled by "column"), or
// computes Pearson coefficients over the named columns of raw rows.
func correlation(c domain.ChartConfig) (*Matrix, bool) {
	if len(c.Columns) == 0 {
		return nil, false
	}
	m := &Matrix{Columns: c.Columns}

	if _, ok := c.Data[0]["column"]; ok {
		for _, row := range c.Data {
			values := make([]float64, len(c.Columns))
			for j, col := range c.Columns {
				values[j], _ = number(row[col])
			}
			m.Rows = append(m.Rows, text(row["column"]))
			m.Values = append(m.Values, values)
		}
		return m, true
	}

	series := make([][]float64, len(c.Columns))
	for i, col := range c.Columns {
		series[i] = aligned(c.Data, col)
	}
	for i, a := range c.Columns {
		values := make([]float64, len(c.Columns))
		for j := range c.Columns {
			values[j] = pearson(series[i], series[j])
		}
		m.Rows = append(m.Rows, a)
		m.Values = append(m.Values, values)
	}
	return m, true
}

func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// column collects the numeric values of key, skipping cells that are not numbers
func column(data []map[string]any, key string) []float64 {
	out := make([]float64, 0, len(data))
	for _, row := range data {
		if v, ok := number(row[key]); ok {
			out = append(out, v)
		}
	}
	return out
}

// aligned collects key for every row, treating non-numbers as zero
func aligned(data []map[string]any, key string) []float64 {
	out := make([]float64, len(data))
	for i, row := range data {
		out[i], _ = number(row[key])
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
