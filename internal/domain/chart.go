package domain

// ChartType enumerates the visualizations the backend may return
type ChartType string

const (
	ChartBar         ChartType = "bar"
	ChartLine        ChartType = "line"
	ChartScatter     ChartType = "scatter"
	ChartPie         ChartType = "pie"
	ChartArea        ChartType = "area"
	ChartCombo       ChartType = "combo"
	ChartHistogram   ChartType = "histogram"
	ChartBoxplot     ChartType = "boxplot"
	ChartBubble      ChartType = "bubble"
	ChartCorrelation ChartType = "correlation"
)

// Valid reports whether t is one of the known chart types
func (t ChartType) Valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartScatter, ChartPie, ChartArea, ChartCombo,
		ChartHistogram, ChartBoxplot, ChartBubble, ChartCorrelation:
		return true
	}
	return false
}

// ChartConfig is a declarative description of one visualization
type ChartConfig struct {
	Type      ChartType        `json:"type"`
	Title     string           `json:"title,omitempty"`
	X         string           `json:"x,omitempty"`
	Y         string           `json:"y,omitempty"`
	Y2        string           `json:"y2,omitempty"` // combo: right axis
	Z         string           `json:"z,omitempty"`  // bubble: size
	Category  string           `json:"category,omitempty"`
	Value     string           `json:"value,omitempty"`
	GroupBy   string           `json:"groupBy,omitempty"`
	Stacked   bool             `json:"stacked,omitempty"`
	Aggregate string           `json:"aggregate,omitempty"` // sum, avg, count, max, min
	Bins      int              `json:"bins,omitempty"`
	Columns   []string         `json:"columns,omitempty"` // correlation
	Data      []map[string]any `json:"data,omitempty"`
}
