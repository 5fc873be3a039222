package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/config"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/ingestion"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/normalize"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/quality"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/report"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/testkit"
)

// pipeline bundles the services every command needs
type pipeline struct {
	config     *config.Config
	logger     *internal.Logger
	ingestion  *ingestion.Service
	normalizer *normalize.Normalizer
	merger     *dataset.Merger
	quality    *quality.Checker
}

func newPipeline() (*pipeline, error) {
	_ = godotenv.Load()
	appConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(appConfig.LogLevel)
	clock := core.SystemClock()
	ingestConfig := ingestion.DefaultConfig()
	ingestConfig.Concurrency = appConfig.Ingestion.Concurrency
	return &pipeline{
		config:     appConfig,
		logger:     logger,
		ingestion:  ingestion.NewService(ingestConfig, clock, logger),
		normalizer: normalize.NewNormalizer(clock, logger),
		merger:     dataset.NewMerger(clock, logger),
		quality:    quality.NewChecker(clock, logger),
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mde-cli",
		Short: "Marketing Data Engine CLI for running the pipeline on local files",
	}

	rootCmd.AddCommand(
		newIngestCmd(),
		newNormalizeCmd(),
		newQualityCmd(),
		newAggregateCmd(),
		newCompareCmd(),
		newMergeCmd(),
		newReportCmd(),
		newSampleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load ingests a local file, normalizing it when asked
func (p *pipeline) load(ctx context.Context, path string, normalized bool) (*table.Table, *ingestion.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	res := p.ingestion.Ingest(ctx, data, filepath.Base(path))
	if !res.Success {
		return nil, nil, fmt.Errorf("%s: %s (%s)", path, res.Error, res.Code)
	}
	if !normalized {
		return res.Data, res.Metadata, nil
	}
	out, _, err := p.normalizer.Normalize(res.Data, normalize.Options{
		Platform:       res.Metadata.Platform,
		TargetCurrency: p.config.Pipeline.TargetCurrency,
	})
	if err != nil {
		return nil, nil, err
	}
	return out, res.Metadata, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable writes a table as CSV when out is set
func writeTable(t *table.Table, out string) error {
	if out == "" {
		return nil
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.WriteCSV(f, t); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", t.NumRows(), out)
	return nil
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Read files and print their metadata and detected platform",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			files := make([]ingestion.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, ingestion.File{Name: filepath.Base(path), Data: data})
			}
			results, err := p.ingestion.IngestMany(cmd.Context(), files)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	var currency, out string
	var synonymsFile string

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a file and print the normalization report",
		Long: `Run the normalization pipeline on one file: canonical column names, date
standardization, numeric cleanup, currency conversion, deduplication, derived metrics
and fill policy.

Example: mde-cli normalize google.csv --currency EUR --out clean.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			raw, meta, err := p.load(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			opts := normalize.Options{Platform: meta.Platform, TargetCurrency: p.config.Pipeline.TargetCurrency}
			if currency != "" {
				opts.TargetCurrency = currency
			}
			if synonymsFile != "" {
				data, err := os.ReadFile(synonymsFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &opts.CustomSynonyms); err != nil {
					return fmt.Errorf("parse %s: %w", synonymsFile, err)
				}
			}
			t, rep, err := p.normalizer.Normalize(raw, opts)
			if err != nil {
				return err
			}
			if err := writeTable(t, out); err != nil {
				return err
			}
			return printJSON(rep)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "Target currency (default from TARGET_CURRENCY)")
	cmd.Flags().StringVar(&synonymsFile, "synonyms", "", "JSON file mapping canonical names to extra source names")
	cmd.Flags().StringVar(&out, "out", "", "Write the normalized table as CSV")
	return cmd
}

func newQualityCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "quality [file]",
		Short: "Score data quality and list statistical and performance anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			t, _, err := p.load(cmd.Context(), args[0], !raw)
			if err != nil {
				return err
			}
			rep, err := p.quality.CheckQuality(t)
			if err != nil {
				return err
			}
			anomalies, err := p.quality.DetectAnomalies(t, nil)
			if err != nil {
				return err
			}
			performance, err := p.quality.DetectPerformanceAnomalies(t)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"quality":     rep,
				"anomalies":   anomalies,
				"performance": performance,
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Check the file as read, without normalizing")
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var by, granularity, out string
	var includePlatform bool

	cmd := &cobra.Command{
		Use:   "aggregate [file]",
		Short: "Aggregate a normalized file by date period or campaign",
		Long: `Aggregate by date (daily, weekly or monthly) or by campaign.

Example: mde-cli aggregate meta.csv --by date --granularity weekly --out weekly.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			t, _, err := p.load(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			switch by {
			case "date":
				agg, err := p.merger.AggregateByDate(t, dataset.Granularity(granularity))
				if err != nil {
					return err
				}
				if err := writeTable(agg.Data, out); err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"summary": agg, "data": agg.Data})
			case "campaign":
				agg, err := p.merger.AggregateByCampaign(t, includePlatform)
				if err != nil {
					return err
				}
				if err := writeTable(agg.Data, out); err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"summary": agg, "data": agg.Data})
			}
			return fmt.Errorf("%w: --by must be date or campaign", core.ErrInvalidInput)
		},
	}

	cmd.Flags().StringVar(&by, "by", "date", "Aggregation key: date|campaign")
	cmd.Flags().StringVar(&granularity, "granularity", "daily", "Date granularity: daily|weekly|monthly")
	cmd.Flags().BoolVar(&includePlatform, "include-platform", false, "Break campaigns down by platform")
	cmd.Flags().StringVar(&out, "out", "", "Write the aggregated table as CSV")
	return cmd
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [file]",
		Short: "Compare platforms in a normalized multi-platform file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			t, _, err := p.load(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			cmp, err := p.merger.ComparePlatforms(t)
			if err != nil {
				return err
			}
			return printJSON(cmp)
		},
	}
}

func newMergeCmd() *cobra.Command {
	var strategy, out string

	cmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Normalize several files and merge them, labelling rows with the detected platform",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			tables := make([]*table.Table, 0, len(args))
			platforms := make([]string, 0, len(args))
			for _, path := range args {
				t, meta, err := p.load(cmd.Context(), path, true)
				if err != nil {
					return err
				}
				tables = append(tables, t)
				platforms = append(platforms, meta.Platform)
			}
			res, err := p.merger.MergeDatasets(tables, dataset.MergeConfig{
				Strategy:  dataset.MergeStrategy(strategy),
				Platforms: platforms,
			})
			if err != nil {
				return err
			}
			if err := writeTable(res.Data, out); err != nil {
				return err
			}
			return printJSON(res.Metadata)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(dataset.AppendMerge), "Merge strategy: append|join")
	cmd.Flags().StringVar(&out, "out", "", "Write the merged table as CSV")
	return cmd
}

func newReportCmd() *cobra.Command {
	var format, name, client, dir string

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Write an Excel, HTML or CSV report for a normalized file",
		Long: `Write a client report into the report directory (REPORT_DIR or --dir).

Example: mde-cli report campaigns.xlsx --format excel --name acme_q2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = p.config.Reports.Dir
			}
			gen, err := report.NewGenerator(dir, core.SystemClock(), p.logger)
			if err != nil {
				return err
			}
			t, _, err := p.load(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			var artifact *report.Artifact
			switch format {
			case report.TypeExcel:
				artifact, err = gen.GenerateExcel(t, name)
			case report.TypeHTML:
				artifact, err = gen.GenerateHTML(t, name, client)
			case report.TypeCSV:
				artifact, err = gen.ExportCSV(t, name)
			default:
				err = fmt.Errorf("%w: unknown report format %q", core.ErrInvalidInput, format)
			}
			if err != nil {
				return err
			}
			return printJSON(artifact)
		},
	}

	cmd.Flags().StringVar(&format, "format", report.TypeExcel, "Report format: excel|html|csv")
	cmd.Flags().StringVar(&name, "name", "marketing_report", "Report name used in the file name")
	cmd.Flags().StringVar(&client, "client", "", "Client name shown in the HTML report")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory")
	return cmd
}

func newSampleCmd() *cobra.Command {
	var days int
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate synthetic multi-platform campaign data as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			genConfig := testkit.DefaultCampaignConfig(time.Now())
			genConfig.Days = days
			genConfig.Seed = seed
			t := testkit.NewCampaignDataGenerator(genConfig).Generate()
			if out == "" {
				return report.WriteCSV(os.Stdout, t)
			}
			return writeTable(t, out)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of days to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic output")
	cmd.Flags().StringVar(&out, "out", "", "Output CSV file (default stdout)")
	return cmd
}
