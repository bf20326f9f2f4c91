package domain

// ColumnInfo describes one column of an uploaded dataset
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SummaryStats holds per-column statistics. Numeric fields are nil for
// columns where they do not apply.
type SummaryStats struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Mean        *float64 `json:"mean,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	StdDev      *float64 `json:"stdDev,omitempty"`
	UniqueCount *int     `json:"uniqueCount,omitempty"`
	NullCount   int      `json:"nullCount"`
	TotalCount  int      `json:"totalCount"`
}

// DatasetSchema is the backend's structural description of an uploaded file
type DatasetSchema struct {
	FileID   string                  `json:"fileId"`
	FileName string                  `json:"fileName,omitempty"`
	Columns  []ColumnInfo            `json:"columns"`
	Summary  map[string]SummaryStats `json:"summary"`
}

// Normalize makes sure every column has a summary entry, possibly empty.
func (s *DatasetSchema) Normalize() {
	if s.Summary == nil {
		s.Summary = make(map[string]SummaryStats, len(s.Columns))
	}
	for _, col := range s.Columns {
		if _, ok := s.Summary[col.Name]; !ok {
			s.Summary[col.Name] = SummaryStats{}
		}
	}
}

// ColumnNames returns column names in schema order
func (s *DatasetSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		names = append(names, col.Name)
	}
	return names
}
