// Package testkit generates synthetic multi-platform campaign data for demos and tests.
package testkit

import (
	"math/rand"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// CampaignGeneratorConfig configures the campaign data generator
type CampaignGeneratorConfig struct {
	Days      int                 `json:"days"`
	EndDate   time.Time           `json:"end_date"`
	Campaigns map[string][]string `json:"campaigns"` // platform -> campaign names
	Seed      int64               `json:"seed"`
}

// DefaultPlatforms lists the generated platforms in output order
var DefaultPlatforms = []string{"Google Ads", "Meta Ads", "TikTok Ads"}

// DefaultCampaignConfig returns thirty days of data for three platforms ending at end
func DefaultCampaignConfig(end time.Time) CampaignGeneratorConfig {
	return CampaignGeneratorConfig{
		Days:    30,
		EndDate: end,
		Campaigns: map[string][]string{
			"Google Ads": {"Brand_Search", "Competitor_Search", "Display_Retargeting", "YouTube_Awareness"},
			"Meta Ads":   {"Lookalike_1%", "Interest_Targeting", "Retargeting", "Broad_Audience"},
			"TikTok Ads": {"Trend_Jacker", "Creator_Partnership", "Spark_Ads", "In_Feed_Ads"},
		},
		Seed: 42,
	}
}

// CampaignDataGenerator generates daily campaign rows with plausible funnel ratios
type CampaignDataGenerator struct {
	config CampaignGeneratorConfig
	rng    *rand.Rand
}

// NewCampaignDataGenerator creates a generator; equal seeds give equal tables
func NewCampaignDataGenerator(config CampaignGeneratorConfig) *CampaignDataGenerator {
	return &CampaignDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds one row per day, platform and campaign
func (g *CampaignDataGenerator) Generate() *table.Table {
	var (
		dates, platforms, campaigns              []table.Value
		impressions, clicks, spend, convs, value []table.Value
	)

	start := truncateDay(g.config.EndDate).AddDate(0, 0, -g.config.Days)
	for day := 0; day < g.config.Days; day++ {
		date := start.AddDate(0, 0, day)
		for _, platform := range g.platformOrder() {
			for _, campaign := range g.config.Campaigns[platform] {
				imp := 5000 + g.rng.Intn(45001)
				clk := int(float64(imp) * g.uniform(0.005, 0.05))
				sp := schema.Round(float64(clk)*g.uniform(0.5, 3), 2)
				cv := int(float64(clk) * g.uniform(0.01, 0.1))
				val := schema.Round(float64(cv)*g.uniform(20, 100), 2)

				dates = append(dates, table.Text(date.Format(table.DateLayout)))
				platforms = append(platforms, table.Text(platform))
				campaigns = append(campaigns, table.Text(campaign))
				impressions = append(impressions, table.Number(float64(imp)))
				clicks = append(clicks, table.Number(float64(clk)))
				spend = append(spend, table.Number(sp))
				convs = append(convs, table.Number(float64(cv)))
				value = append(value, table.Number(val))
			}
		}
	}

	t, _ := table.FromColumns(
		table.NewColumn(schema.Date, dates),
		table.NewColumn(schema.Platform, platforms),
		table.NewColumn(schema.CampaignName, campaigns),
		table.NewColumn(schema.Impressions, impressions),
		table.NewColumn(schema.Clicks, clicks),
		table.NewColumn(schema.Spend, spend),
		table.NewColumn(schema.Conversions, convs),
		table.NewColumn(schema.ConversionValue, value),
	)
	return t
}

// platformOrder keeps the default platforms first, then any extra ones in map order
func (g *CampaignDataGenerator) platformOrder() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range DefaultPlatforms {
		if _, ok := g.config.Campaigns[p]; ok {
			out = append(out, p)
			seen[p] = true
		}
	}
	for p := range g.config.Campaigns {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}

func (g *CampaignDataGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
