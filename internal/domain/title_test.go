package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sales.csv", "Sales"},
		{"report.2024.xlsx", "report.2024"},
		{"noext", "noext"},
		{"trailing.", "trailing."},
		{"dir.v1/file", "dir.v1/file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseName(tt.in), tt.in)
	}
}

func TestUniqueTitle(t *testing.T) {
	assert.Equal(t, "Sales", UniqueTitle("Sales", nil))
	assert.Equal(t, "Sales (1)", UniqueTitle("Sales", []string{"Sales"}))
	assert.Equal(t, "Sales (2)", UniqueTitle(BaseName("Sales.csv"), []string{"Sales", "Sales (1)"}))
	// smallest free suffix, not max+1
	assert.Equal(t, "Sales (1)", UniqueTitle("Sales", []string{"Sales", "Sales (2)"}))
	assert.Equal(t, "Other", UniqueTitle("Other", []string{"Sales", "Sales (1)"}))
}

func TestTitleFromMessage(t *testing.T) {
	short := "average revenue by region"
	assert.Equal(t, short, TitleFromMessage(short))

	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 50), TitleFromMessage(long))

	// counts characters, not bytes
	multi := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50), TitleFromMessage(multi))
}

func TestDatasetSchemaNormalize(t *testing.T) {
	s := DatasetSchema{
		FileID:  "f1",
		Columns: []ColumnInfo{{Name: "region", Type: "string"}, {Name: "sales", Type: "number"}},
		Summary: map[string]SummaryStats{"sales": {TotalCount: 3}},
	}
	s.Normalize()

	assert.Len(t, s.Summary, 2)
	assert.Equal(t, 3, s.Summary["sales"].TotalCount)
	assert.Equal(t, SummaryStats{}, s.Summary["region"])
	assert.Equal(t, []string{"region", "sales"}, s.ColumnNames())
}

func TestChartTypeValid(t *testing.T) {
	assert.True(t, ChartHistogram.Valid())
	assert.True(t, ChartCorrelation.Valid())
	assert.False(t, ChartType("radar").Valid())
}
