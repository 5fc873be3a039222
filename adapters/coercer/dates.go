package coercer

import (
	"strings"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// DatePattern pairs a strftime-style name with the Go layout that implements it
type DatePattern struct {
	Name   string
	Layout string
}

// DateCascade is tried in order; a pattern is chosen only when it parses every non-null value
var DateCascade = []DatePattern{
	{"%Y-%m-%d", "2006-1-2"},
	{"%m/%d/%Y", "1/2/2006"},
	{"%d/%m/%Y", "2/1/2006"},
	{"%Y/%m/%d", "2006/1/2"},
	{"%d-%m-%Y", "2-1-2006"},
	{"%m-%d-%Y", "1-2-2006"},
	{"%Y%m%d", "20060102"},
	{"%d %b %Y", "2 Jan 2006"},
	{"%d %B %Y", "2 January 2006"},
	{"%b %d, %Y", "Jan 2, 2006"},
	{"%B %d, %Y", "January 2, 2006"},
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2",
	"20060102",
}

var namedLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Mon, 02 Jan 2006",
	"Monday, January 2, 2006",
}

var monthFirstLayouts = []string{
	"1/2/2006", "1-2-2006", "1.2.2006", "1/2/06", "1-2-06",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
}

var dayFirstLayouts = []string{
	"2/1/2006", "2-1-2006", "2.1.2006", "2/1/06", "2-1-06",
	"2/1/2006 15:04", "2/1/2006 15:04:05",
}

// DateText returns the text a date parser should see for a cell, or false for null cells
func DateText(v table.Value) (string, bool) {
	if v.IsNull() {
		return "", false
	}
	return strings.TrimSpace(v.String()), true
}

// ParseLayout parses s with one layout and truncates the result to a calendar date
func ParseLayout(layout, s string) (time.Time, bool) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(t), true
}

// DetectDateLayout returns the first cascade pattern that parses every non-null value.
// Date cells always qualify. It fails when there are no non-null values.
func DetectDateLayout(values []table.Value) (DatePattern, bool) {
	var texts []string
	for _, v := range values {
		if v.IsDate() {
			continue
		}
		if s, ok := DateText(v); ok {
			texts = append(texts, s)
		}
	}
	if len(texts) == 0 {
		return DatePattern{}, false
	}
	for _, p := range DateCascade {
		all := true
		for _, s := range texts {
			if _, ok := ParseLayout(p.Layout, s); !ok {
				all = false
				break
			}
		}
		if all {
			return p, true
		}
	}
	return DatePattern{}, false
}

// ParseDate parses a single value permissively. The relative order of day and month in
// purely numeric dates follows dayFirst.
func (c *TypeCoercer) ParseDate(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if c.IsNA(s) {
		return time.Time{}, false
	}

	layouts := make([]string, 0, len(isoLayouts)+len(namedLayouts)+2*len(dayFirstLayouts))
	layouts = append(layouts, isoLayouts...)
	if dayFirst {
		layouts = append(layouts, dayFirstLayouts...)
		layouts = append(layouts, monthFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
		layouts = append(layouts, dayFirstLayouts...)
	}
	layouts = append(layouts, namedLayouts...)

	for _, layout := range layouts {
		if t, ok := ParseLayout(layout, s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateValue parses a cell permissively; date cells are truncated and returned as is
func (c *TypeCoercer) ParseDateValue(v table.Value, dayFirst bool) (time.Time, bool) {
	if v.IsDate() {
		return truncateDay(v.Time), true
	}
	s, ok := DateText(v)
	if !ok {
		return time.Time{}, false
	}
	return c.ParseDate(s, dayFirst)
}

// LooksLikeDates reports whether every one of the first limit non-null text cells parses
// as a date. Columns without text cells never qualify.
func (c *TypeCoercer) LooksLikeDates(values []table.Value, limit int) bool {
	checked := 0
	for _, v := range values {
		if !v.IsText() {
			continue
		}
		if _, ok := c.ParseDate(v.Str, c.config.DayFirst); !ok {
			return false
		}
		checked++
		if checked == limit {
			break
		}
	}
	return checked > 0
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
