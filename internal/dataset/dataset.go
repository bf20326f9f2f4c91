package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/liliang-cn/orion/internal/domain"
	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

// Column types reported by Preview
const (
	TypeNumber = "number"
	TypeString = "string"
)

// DefaultPreviewRows is the number of rows returned when no limit is given
const DefaultPreviewRows = 10

var uploadable = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// Supported reports whether a file may be uploaded for analysis
func Supported(name string) bool {
	return uploadable[strings.ToLower(filepath.Ext(name))]
}

// Table is a local preview of a tabular file
type Table struct {
	FileName  string                         `json:"fileName"`
	Columns   []domain.ColumnInfo            `json:"columns"`
	Rows      [][]string                     `json:"rows"`
	TotalRows int                            `json:"totalRows"`
	Summary   map[string]domain.SummaryStats `json:"summary"`
}

// Preview reads a CSV or XLSX file and returns its first limit rows along
// with inferred column types and per-column statistics over all rows.
func Preview(path string, limit int) (*Table, error) {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}

	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: preview not available for %q files", domain.ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", filepath.Base(path))
	}

	header := headerNames(records[0])
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, pad(rec, len(header)))
	}

	t := &Table{
		FileName:  filepath.Base(path),
		Columns:   make([]domain.ColumnInfo, len(header)),
		TotalRows: len(rows),
		Summary:   make(map[string]domain.SummaryStats, len(header)),
	}
	for i, name := range header {
		col := columnValues(rows, i)
		typ := inferType(col)
		t.Columns[i] = domain.ColumnInfo{Name: name, Type: typ}
		t.Summary[name] = summarize(col, typ)
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	t.Rows = rows
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// headerNames trims header cells, names unnamed columns by position and
// suffixes repeated names ("a", "a (2)") so each column has its own summary.
func headerNames(rec []string) []string {
	names := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		name := h
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s (%d)", h, n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func pad(rec []string, n int) []string {
	out := make([]string, n)
	copy(out, rec)
	return out
}

func columnValues(rows [][]string, i int) []string {
	col := make([]string, len(rows))
	for r, row := range rows {
		col[r] = strings.TrimSpace(row[i])
	}
	return col
}

// inferType reports number when every non-empty cell parses as a float
func inferType(col []string) string {
	seen := false
	for _, v := range col {
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return TypeString
		}
		seen = true
	}
	if !seen {
		return TypeString
	}
	return TypeNumber
}

func summarize(col []string, typ string) domain.SummaryStats {
	s := domain.SummaryStats{TotalCount: len(col)}

	distinct := make(map[string]struct{})
	var nums stats.Float64Data
	for _, v := range col {
		if v == "" {
			s.NullCount++
			continue
		}
		distinct[v] = struct{}{}
		if typ == TypeNumber {
			f, _ := strconv.ParseFloat(v, 64)
			nums = append(nums, f)
		}
	}
	unique := len(distinct)
	s.UniqueCount = &unique

	if len(nums) == 0 {
		return s
	}
	s.Min = stat(nums.Min())
	s.Max = stat(nums.Max())
	s.Mean = stat(nums.Mean())
	s.Median = stat(nums.Median())
	if len(nums) > 1 {
		s.StdDev = stat(stats.StandardDeviationSample(nums))
	}
	return s
}

func stat(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &v
}
