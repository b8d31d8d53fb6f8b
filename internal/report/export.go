package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/fintel-group/report-extract/internal/model"
)

var exportHeader = []string{
	"Metric", "Value", "Prior Year", "Two Years Prior", "YoY %", "YoY Delta",
	"Unit", "Fiscal Year", "Type", "Tier", "Confidence", "Votes", "Page",
}

// ExportXLSX writes a pipeline result to an .xlsx workbook, one sheet per
// entity, metrics sorted for stable output.
func ExportXLSX(final model.FinalResult, path string) error {
	f := xlsx.NewFile()

	used := make(map[string]bool)
	for _, entity := range sortedKeys(final) {
		sheet, err := f.AddSheet(uniqueSheetName(entity, used))
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", entity)
		}

		header := sheet.AddRow()
		for _, h := range exportHeader {
			header.AddCell().SetString(h)
		}

		metrics := final[entity]
		for _, metric := range sortedKeys(metrics) {
			rec := metrics[metric]
			row := sheet.AddRow()
			row.AddCell().SetString(metric)
			row.AddCell().SetString(rec.Value)
			row.AddCell().SetString(rec.ValuePriorYear)
			row.AddCell().SetString(rec.ValueTwoYearsAgo)
			row.AddCell().SetString(rec.YoYPct)
			row.AddCell().SetString(rec.YoYDelta)
			row.AddCell().SetString(rec.Unit)
			row.AddCell().SetString(rec.FiscalYear)
			row.AddCell().SetString(rec.RecordType)
			row.AddCell().SetString(string(rec.Tier))
			row.AddCell().SetInt(rec.Confidence)
			row.AddCell().SetString(voteSummary(rec))
			row.AddCell().SetInt(rec.PageID)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

const maxSheetName = 31

// sheetName trims entity names to the xlsx sheet name limit.
func sheetName(entity string) string {
	runes := []rune(entity)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}

// uniqueSheetName disambiguates entities whose trimmed names collide by
// appending ~2, ~3, ... inside the length limit.
func uniqueSheetName(entity string, used map[string]bool) string {
	name := sheetName(entity)
	for i := 2; used[name]; i++ {
		suffix := "~" + strconv.Itoa(i)
		runes := []rune(entity)
		if limit := maxSheetName - len(suffix); len(runes) > limit {
			runes = runes[:limit]
		}
		name = string(runes) + suffix
	}
	used[name] = true
	return name
}

func voteSummary(rec model.MergedRecord) string {
	if rec.GroupSize <= 0 {
		return "-"
	}
	return strconv.Itoa(rec.WinningVotes) + "/" + strconv.Itoa(rec.GroupSize)
}
