package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(t.TempDir(), func() time.Time { return fixedNow }, internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	return g
}

func sampleTable() *table.Table {
	b := table.NewBuilder("campaign_name", "platform", "date", "spend", "impressions", "clicks", "conversions", "conversion_value")
	b.AppendValues([]table.Value{
		table.Text("A"), table.Text("google_ads"), table.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		table.Number(1000.5), table.Number(10000), table.Number(200), table.Number(10), table.Number(3000),
	})
	b.AppendValues([]table.Value{
		table.Text("B"), table.Text("meta_ads"), table.Date(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)),
		table.Number(234), table.Number(5000), table.Number(50), table.Number(0), table.Null(),
	})
	return b.Build()
}

func TestSummaryMetrics(t *testing.T) {
	got := SummaryMetrics(ComputeTotals(sampleTable()))
	assert.Equal(t, []Metric{
		{"Total Spend", "$1,234.50"},
		{"Total Impressions", "15,000"},
		{"Total Clicks", "250"},
		{"Total Conversions", "10"},
		{"Total Revenue", "$3,000.00"},
		{"Overall CTR", "1.67%"},
		{"Average CPC", "$4.94"},
		{"Average CPA", "$123.45"},
		{"Overall ROAS", "2.43x"},
	}, got)

	assert.Empty(t, SummaryMetrics(Totals{}))
}

func TestGenerateExcel(t *testing.T) {
	g := newGenerator(t)
	a, err := g.GenerateExcel(sampleTable(), "")
	require.NoError(t, err)

	assert.Equal(t, "marketing_report_20240601_120000.xlsx", a.Filename)
	assert.Equal(t, "/api/download/"+a.Filename, a.DownloadURL)
	assert.Equal(t, []string{SheetSummary, SheetRawData, SheetCampaign, SheetPlatform, SheetDaily}, a.Sheets)

	f, err := excelize.OpenFile(a.Path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, a.Sheets, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 10)
	assert.Equal(t, []string{"Total Spend", "$1,234.50"}, summary[1])

	raw, err := f.GetRows(SheetRawData)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, sampleTable().ColumnNames(), raw[0])
	assert.Equal(t, "2024-05-01", raw[1][2])

	campaigns, err := f.GetRows(SheetCampaign)
	require.NoError(t, err)
	require.Len(t, campaigns, 3)
	assert.Equal(t, "A", campaigns[1][0], "highest spend first")

	platforms, err := f.GetRows(SheetPlatform)
	require.NoError(t, err)
	assert.Equal(t, "google_ads", platforms[1][0])

	require.Len(t, g.History(), 1)
	assert.Equal(t, TypeExcel, g.History()[0].Type)
}

func TestGenerateExcelWithoutBreakdownColumns(t *testing.T) {
	b := table.NewBuilder("spend")
	b.AppendValues([]table.Value{table.Number(5)})

	a, err := newGenerator(t).GenerateExcel(b.Build(), "Q2 report!")
	require.NoError(t, err)
	assert.Equal(t, "Q2_report__20240601_120000.xlsx", a.Filename)
	assert.Equal(t, []string{SheetSummary, SheetRawData}, a.Sheets)
}

func TestGenerateHTML(t *testing.T) {
	g := newGenerator(t)
	a, err := g.GenerateHTML(sampleTable(), "weekly", "Acme")
	require.NoError(t, err)

	body, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	doc := string(body)
	assert.Contains(t, doc, "<title>Marketing Performance Report - Acme</title>")
	assert.Contains(t, doc, "<table>")
	assert.Contains(t, doc, "$1,234.50")
	assert.Contains(t, doc, "Acme | Generated on June 01, 2024")
	assert.Contains(t, doc, "google_ads")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))
	assert.Equal(t,
		"campaign_name,platform,date,spend,impressions,clicks,conversions,conversion_value\n"+
			"A,google_ads,2024-05-01,1000.5,10000,200,10,3000\n"+
			"B,meta_ads,2024-05-02,234,5000,50,0,\n",
		buf.String())
}

func TestExportCSVAndResolve(t *testing.T) {
	g := newGenerator(t)
	a, err := g.ExportCSV(sampleTable(), "export")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Rows)

	path, err := g.Resolve(a.Filename)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.Dir(), a.Filename), path)

	_, err = g.Resolve("../secret")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = g.Resolve("missing.csv")
	assert.True(t, core.IsNotFoundError(err))
}

func TestNilTable(t *testing.T) {
	g := newGenerator(t)
	_, err := g.GenerateExcel(nil, "x")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = g.ExportCSV(nil, "x")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
