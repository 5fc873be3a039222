// Package schema is the static registry behind normalization: canonical field names with
// their semantic types and known source spellings, platform fingerprints, and the
// USD-anchored currency rate table.
package schema

import "strings"

// SemanticType describes what a canonical field measures
type SemanticType string

const (
	Monetary      SemanticType = "monetary"
	Count         SemanticType = "count"
	RatioPercent  SemanticType = "ratio_percentage"
	RatioMultiple SemanticType = "ratio_multiple"
	Identifier    SemanticType = "identifier"
	CalendarDate  SemanticType = "date"
	CurrencyCode  SemanticType = "currency_code"
)

// Canonical field names
const (
	CampaignName          = "campaign_name"
	AdsetName             = "adset_name"
	AdName                = "ad_name"
	Keyword               = "keyword"
	Date                  = "date"
	Platform              = "platform"
	Country               = "country"
	Device                = "device"
	Currency              = "currency"
	Impressions           = "impressions"
	Reach                 = "reach"
	Frequency             = "frequency"
	Clicks                = "clicks"
	CTR                   = "ctr"
	Engagements           = "engagements"
	Conversions           = "conversions"
	ConversionValue       = "conversion_value"
	Leads                 = "leads"
	Spend                 = "spend"
	CPC                   = "cpc"
	CPM                   = "cpm"
	CPA                   = "cpa"
	ROAS                  = "roas"
	VideoViews            = "video_views"
	VideoCompletions      = "video_completions"
	VideoViewRate         = "video_view_rate"
	QualityScore          = "quality_score"
	SearchImpressionShare = "search_impression_share"
)

// Field is one canonical column definition
type Field struct {
	Name     string
	Type     SemanticType
	Synonyms []string
}

// standardFields is ordered: the first field whose synonyms match a source column wins.
var standardFields = []Field{
	// Identifiers
	{CampaignName, Identifier, []string{"campaign", "campaign name", "campaign_name", "campaignname"}},
	{AdsetName, Identifier, []string{"ad set", "adset", "adset name", "adset_name", "ad group", "adgroup", "adgroup_name"}},
	{AdName, Identifier, []string{"ad", "ad name", "ad_name", "creative", "creative name", "creative_name"}},
	{Keyword, Identifier, []string{"keyword", "keywords", "search term", "search_term"}},

	// Dimensions
	{Date, CalendarDate, []string{"date", "day", "reporting_period", "report_date", "stat_days"}},
	{Platform, Identifier, []string{"platform", "source", "network"}},
	{Country, Identifier, []string{"country", "country_code", "country code"}},
	{Device, Identifier, []string{"device", "device_type", "device type"}},
	{Currency, CurrencyCode, []string{"currency", "currency_code", "currency code"}},

	// Reach & impressions
	{Impressions, Count, []string{"impressions", "imps", "impr"}},
	{Reach, Count, []string{"reach", "unique_users", "unique users"}},
	{Frequency, RatioMultiple, []string{"frequency", "freq"}},

	// Engagement
	{Clicks, Count, []string{"clicks", "click", "link_clicks", "link clicks"}},
	{CTR, RatioPercent, []string{"ctr", "click_through_rate", "click-through rate", "click through rate"}},
	{Engagements, Count, []string{"engagements", "engagement", "total_engagements"}},

	// Conversions
	{Conversions, Count, []string{"conversions", "conv", "converts", "purchases", "completes"}},
	{ConversionValue, Monetary, []string{"conversion_value", "conv value", "conversion value", "revenue", "purchase_value"}},
	{Leads, Count, []string{"leads", "lead", "signups", "sign_ups"}},

	// Cost
	{Spend, Monetary, []string{"spend", "cost", "ad spend", "ad_spend", "amount spent", "amount_spent"}},
	{CPC, Monetary, []string{"cpc", "cost_per_click", "cost per click", "average cpc", "avg cpc"}},
	{CPM, Monetary, []string{"cpm", "cost_per_mille", "cost per mille", "cost per 1000 impressions", "average cpm"}},
	{CPA, Monetary, []string{"cpa", "cost_per_acquisition", "cost per acquisition", "cost per conversion"}},
	{ROAS, RatioMultiple, []string{"roas", "return_on_ad_spend", "return on ad spend"}},

	// Video
	{VideoViews, Count, []string{"video_views", "video views", "video_views_3s", "3-second video views"}},
	{VideoCompletions, Count, []string{"video_completions", "video completions", "100% video views"}},
	{VideoViewRate, RatioPercent, []string{"video_view_rate", "video view rate", "vtr", "vcr"}},

	// Additional
	{QualityScore, RatioMultiple, []string{"quality_score", "quality score", "qs"}},
	{SearchImpressionShare, RatioPercent, []string{"search_impression_share", "search impression share", "sis"}},
}

// Column classes used by the pipeline stages
var (
	// MonetaryColumns are converted between currencies
	MonetaryColumns = []string{Spend, CPC, CPM, CPA, ConversionValue}

	// VolumeColumns are summed on aggregation and default to 0 when missing
	VolumeColumns = []string{Impressions, Clicks, Spend, Conversions, ConversionValue, Reach, VideoViews}

	// TextFillColumns default to the empty string when missing
	TextFillColumns = []string{CampaignName, AdsetName, AdName, Keyword}

	// DedupKeyColumns form the logical row key when present
	DedupKeyColumns = []string{Date, CampaignName, AdsetName, AdName, Platform}

	// CriticalColumns incur an extra completeness penalty when missing values
	CriticalColumns = []string{CampaignName, Date, Spend}
)

// Registry maps canonical names to synonym sets. It is immutable after construction.
type Registry struct {
	fields []Field
	byName map[string]int
	lookup map[string]string
}

// NewRegistry builds the standard registry, merging extra synonyms into a copy of it.
// Extra entries for unknown canonical names become new fields appended after the standard ones.
func NewRegistry(extra map[string][]string) *Registry {
	r := &Registry{byName: make(map[string]int)}
	for _, f := range standardFields {
		syn := make([]string, len(f.Synonyms))
		copy(syn, f.Synonyms)
		r.byName[f.Name] = len(r.fields)
		r.fields = append(r.fields, Field{Name: f.Name, Type: f.Type, Synonyms: syn})
	}

	for _, name := range sortedKeys(extra) {
		if i, ok := r.byName[name]; ok {
			r.fields[i].Synonyms = append(r.fields[i].Synonyms, extra[name]...)
			continue
		}
		r.byName[name] = len(r.fields)
		r.fields = append(r.fields, Field{Name: name, Type: Identifier, Synonyms: append([]string{}, extra[name]...)})
	}

	r.lookup = make(map[string]string)
	for _, f := range r.fields {
		for _, s := range f.Synonyms {
			key := normalizeName(s)
			if _, taken := r.lookup[key]; !taken {
				r.lookup[key] = f.Name
			}
		}
	}
	return r
}

// Default returns the registry without caller synonyms
func Default() *Registry {
	return defaultRegistry
}

var defaultRegistry = NewRegistry(nil)

// Canonical resolves a source column name to its canonical name
func (r *Registry) Canonical(column string) (string, bool) {
	name, ok := r.lookup[normalizeName(column)]
	return name, ok
}

// Field returns the definition of a canonical field
func (r *Registry) Field(name string) (Field, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Fields returns the canonical fields in precedence order
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// NumericColumns lists canonical fields holding numbers, in registry order
func (r *Registry) NumericColumns() []string {
	var out []string
	for _, f := range r.fields {
		switch f.Type {
		case Monetary, Count, RatioPercent, RatioMultiple:
			out = append(out, f.Name)
		}
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
