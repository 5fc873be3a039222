package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// GenerateHTML writes a printable HTML report with headline metrics and a platform table
func (g *Generator) GenerateHTML(t *table.Table, name, client string) (*Artifact, error) {
	if t == nil {
		return nil, errNilTable
	}
	if client == "" {
		client = "Client"
	}
	title := "Marketing Performance Report - " + client

	doc := renderHTML(title, []byte(g.markdown(t, client)))
	filename := g.filename(name, "marketing_report", "html")
	path := filepath.Join(g.dir, filename)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return nil, fmt.Errorf("write html report: %w", err)
	}
	return g.record(Artifact{Type: TypeHTML, Filename: filename, Path: path, Rows: t.NumRows()}), nil
}

// markdown builds the report body
func (g *Generator) markdown(t *table.Table, client string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Marketing Performance Report\n\n%s | Generated on %s\n\n", client, g.clock().Format("January 02, 2006"))

	b.WriteString("## Key Metrics\n\n| Metric | Value |\n|---|---|\n")
	for _, m := range SummaryMetrics(ComputeTotals(t)) {
		fmt.Fprintf(&b, "| %s | %s |\n", m.Name, m.Value)
	}

	if stats, ok := g.platformSummary(t); ok {
		b.WriteString("\n## Platform Performance\n\n| Platform | Spend | Impressions | Clicks | CTR | ROAS |\n|---|---|---|---|---|---|\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escapeCell(s.Platform), money(deref(s.Spend)), count(deref(s.Impressions)), count(deref(s.Clicks)),
				printer.Sprintf("%.2f%%", deref(s.CTR)), printer.Sprintf("%.2fx", deref(s.ROAS)))
		}
	}

	fmt.Fprintf(&b, "\n---\n\nReport covers %d rows.\n", t.NumRows())
	return b.String()
}

func renderHTML(title string, md []byte) []byte {
	// MathJax stays off so currency amounts are not read as inline math
	p := parser.NewWithExtensions(parser.Tables | parser.NoIntraEmphasis | parser.Autolink |
		parser.Strikethrough | parser.SpaceHeadings | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML(md, p, r)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
