package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Metric is one labelled headline figure
type Metric struct {
	Name  string `json:"metric"`
	Value string `json:"value"`
}

// money renders $1,234.50
func money(v float64) string { return printer.Sprintf("$%.2f", v) }

// count renders 1,235
func count(v float64) string { return printer.Sprintf("%.0f", v) }

// SummaryMetrics lists the totals that exist and the overall ratios whose inputs are
// both positive
func SummaryMetrics(tot Totals) []Metric {
	var out []Metric
	add := func(name string, p *float64, format func(float64) string) {
		if p != nil {
			out = append(out, Metric{name, format(*p)})
		}
	}
	add("Total Spend", tot.Spend, money)
	add("Total Impressions", tot.Impressions, count)
	add("Total Clicks", tot.Clicks, count)
	add("Total Conversions", tot.Conversions, count)
	add("Total Revenue", tot.Revenue, money)

	spend, impressions, clicks := deref(tot.Spend), deref(tot.Impressions), deref(tot.Clicks)
	conversions, revenue := deref(tot.Conversions), deref(tot.Revenue)
	if clicks > 0 && impressions > 0 {
		out = append(out, Metric{"Overall CTR", printer.Sprintf("%.2f%%", clicks/impressions*100)})
	}
	if spend > 0 && clicks > 0 {
		out = append(out, Metric{"Average CPC", money(spend / clicks)})
	}
	if spend > 0 && conversions > 0 {
		out = append(out, Metric{"Average CPA", money(spend / conversions)})
	}
	if revenue > 0 && spend > 0 {
		out = append(out, Metric{"Overall ROAS", printer.Sprintf("%.2fx", revenue/spend)})
	}
	return out
}
