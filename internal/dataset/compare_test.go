package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

func platformTable(t *testing.T) *table.Table {
	return build(t, []string{"platform", "spend", "impressions", "clicks", "conversions", "conversion_value"},
		[]interface{}{"meta_ads", 100, 10000, 200, 20, 300},
		[]interface{}{"google_ads", 200, 10000, 500, 20, 400},
		[]interface{}{"google_ads", 100, 10000, 100, 10, 200},
		[]interface{}{"tiktok_ads", 100, 5000, 50, 0, 0},
	)
}

func TestComparePlatforms(t *testing.T) {
	res, err := newMerger().ComparePlatforms(platformTable(t))
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalPlatforms)
	require.Len(t, res.PlatformStats, 3)

	google := res.PlatformStats[0]
	assert.Equal(t, "google_ads", google.Platform)
	assert.Equal(t, 300.0, *google.Spend)
	assert.Equal(t, 3.0, *google.CTR)
	assert.Equal(t, 0.5, *google.CPC)
	assert.Equal(t, 15.0, *google.CPM)
	assert.Equal(t, 10.0, *google.CPA)
	assert.Equal(t, 2.0, *google.ROAS)
	assert.Equal(t, 60.0, *google.SpendShare)

	tiktok := res.PlatformStats[2]
	assert.Nil(t, tiktok.CPA, "zero conversions has no CPA")
	assert.Equal(t, 0.0, *tiktok.ROAS)

	assert.Equal(t, []string{"meta_ads", "google_ads", "tiktok_ads"}, res.Rankings[schema.ROAS])
	assert.Equal(t, []string{"google_ads", "meta_ads", "tiktok_ads"}, res.Rankings[schema.CTR])
	assert.Equal(t, []string{"meta_ads", "google_ads", "tiktok_ads"}, res.Rankings[schema.CPA])
}

func TestComparePlatformsToleratesMissingMetrics(t *testing.T) {
	in := build(t, []string{"Channel", "clicks"},
		[]interface{}{"a", 1},
		[]interface{}{nil, 2},
	)
	res, err := newMerger().ComparePlatforms(in)
	require.NoError(t, err)
	require.Len(t, res.PlatformStats, 2)
	assert.Equal(t, "a", res.PlatformStats[0].Platform)
	assert.Equal(t, schema.PlatformUnknown, res.PlatformStats[1].Platform)
	assert.Nil(t, res.PlatformStats[0].Spend)
	assert.Nil(t, res.PlatformStats[0].CTR)
	assert.Nil(t, res.PlatformStats[0].SpendShare)
	assert.Equal(t, 1.0, *res.PlatformStats[0].Clicks)
}

func TestComparePlatformsRequiresPlatformColumn(t *testing.T) {
	_, err := newMerger().ComparePlatforms(build(t, []string{"spend"}, []interface{}{1}))
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
}

func TestCreateUnifiedReport(t *testing.T) {
	google := build(t, []string{"date", "campaign_name", "spend", "clicks", "impressions"},
		[]interface{}{"2024-01-01", "A", 10, 5, 100},
		[]interface{}{"2024-01-03", "B", 20, 15, 100},
	)
	meta := build(t, []string{"date", "campaign_name", "spend", "clicks", "impressions", "platform"},
		[]interface{}{"05-01-2024", "A", 30, 0, 200, "ignored"},
	)

	res, err := newMerger().CreateUnifiedReport([]LabelledTable{{"google_ads", google}, {"meta_ads", meta}})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Data.NumRows())
	assert.Equal(t, "meta_ads", res.Data.Value(2, "platform").Str, "the label overrides any platform column")
	assert.Equal(t, 60.0, res.OverallMetrics[schema.Spend])
	assert.Equal(t, 5.0, res.OverallMetrics[schema.CTR])
	assert.Equal(t, 3.0, res.OverallMetrics[schema.CPC])
	_, hasCPA := res.OverallMetrics[schema.CPA]
	assert.False(t, hasCPA)

	require.NotNil(t, res.DateRange)
	assert.Equal(t, "2024-01-01", res.DateRange.Start)
	assert.Equal(t, "2024-01-05", res.DateRange.End)
	assert.Equal(t, 5, res.DateRange.Days)

	assert.Equal(t, UnifiedSummary{TotalPlatforms: 2, TotalCampaigns: 2, TotalRows: 3}, res.Summary)
	assert.Equal(t, 2, res.PlatformComparison.TotalPlatforms)

	_, err = newMerger().CreateUnifiedReport(nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}
