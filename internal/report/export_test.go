package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/fintel-group/report-extract/internal/model"
)

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, ExportXLSX(sampleResult(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "平安银行", sheet.Name)
	require.GreaterOrEqual(t, len(sheet.Rows), 2)

	header := sheet.Rows[0]
	assert.Equal(t, "Metric", header.Cells[0].String())

	row := sheet.Rows[1]
	assert.Equal(t, "营业收入", row.Cells[0].String())
	assert.Equal(t, "1500.00", row.Cells[1].String())
	assert.Equal(t, "百万元", row.Cells[6].String())
	assert.Equal(t, "4/4", row.Cells[11].String())
}

func TestExportXLSX_LongEntityNames(t *testing.T) {
	// Two entities sharing a 31-rune prefix must still land on distinct sheets.
	prefix := strings.Repeat("中", 31)
	final := model.FinalResult{
		prefix + "甲": {"营业收入": {Value: "1"}},
		prefix + "乙": {"营业收入": {Value: "2"}},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, ExportXLSX(final, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	names := make(map[string]bool)
	for _, sheet := range f.Sheets {
		assert.LessOrEqual(t, len([]rune(sheet.Name)), 31)
		names[sheet.Name] = true
	}
	assert.Len(t, names, 2)
}

func TestSheetName(t *testing.T) {
	long := strings.Repeat("中", 40)
	got := sheetName(long)
	assert.Len(t, []rune(got), 31)
	assert.Equal(t, "acme", sheetName("acme"))

	used := map[string]bool{}
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)
	assert.NotEqual(t, first, second)
	assert.Len(t, []rune(second), 31)
	assert.Equal(t, strings.Repeat("中", 29)+"~2", second)
}
