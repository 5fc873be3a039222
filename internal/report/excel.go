package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
)

// Workbook sheet names
const (
	SheetSummary  = "Summary"
	SheetRawData  = "Raw Data"
	SheetCampaign = "Campaign Summary"
	SheetPlatform = "Platform Summary"
	SheetDaily    = "Daily Trend"
)

// GenerateExcel writes a workbook with a summary sheet, the raw rows and, when the
// columns allow it, campaign, platform and daily breakdowns
func (g *Generator) GenerateExcel(t *table.Table, name string) (*Artifact, error) {
	if t == nil {
		return nil, errNilTable
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	summary := [][]interface{}{{"Metric", "Value"}}
	for _, m := range SummaryMetrics(ComputeTotals(t)) {
		summary = append(summary, []interface{}{m.Name, m.Value})
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}
	sheets := []string{SheetSummary}

	add := func(sheet string, rows [][]interface{}) error {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		sheets = append(sheets, sheet)
		return writeRows(f, sheet, rows)
	}

	if err := add(SheetRawData, tableRows(t)); err != nil {
		return nil, err
	}
	if campaigns, ok := g.campaignSummary(t); ok {
		if err := add(SheetCampaign, tableRows(campaigns)); err != nil {
			return nil, err
		}
	}
	if platforms, ok := g.platformSummary(t); ok {
		if err := add(SheetPlatform, platformRows(platforms)); err != nil {
			return nil, err
		}
	}
	if daily, ok := g.dailyTrend(t); ok {
		if err := add(SheetDaily, tableRows(daily)); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	filename := g.filename(name, "marketing_report", "xlsx")
	path := filepath.Join(g.dir, filename)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	return g.record(Artifact{Type: TypeExcel, Filename: filename, Path: path, Rows: t.NumRows(), Sheets: sheets}), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// tableRows renders a header row followed by one row per record; numbers stay numeric
func tableRows(t *table.Table) [][]interface{} {
	names := t.ColumnNames()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	rows := [][]interface{}{header}
	for i := 0; i < t.NumRows(); i++ {
		row := make([]interface{}, len(names))
		for j, n := range names {
			row[j] = cellValue(t.Value(i, n))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellValue(v table.Value) interface{} {
	switch v.Kind {
	case table.KindNumber:
		return v.Num
	case table.KindText, table.KindDate:
		return v.String()
	}
	return nil
}

func platformRows(stats []dataset.PlatformStats) [][]interface{} {
	rows := [][]interface{}{{"platform", "spend", "impressions", "clicks", "conversions", "conversion_value", "ctr", "cpc", "cpa", "roas", "spend_share"}}
	opt := func(p *float64) interface{} {
		if p == nil {
			return nil
		}
		return *p
	}
	for _, s := range stats {
		rows = append(rows, []interface{}{
			s.Platform, opt(s.Spend), opt(s.Impressions), opt(s.Clicks), opt(s.Conversions),
			opt(s.ConversionValue), opt(s.CTR), opt(s.CPC), opt(s.CPA), opt(s.ROAS), opt(s.SpendShare),
		})
	}
	return rows
}
