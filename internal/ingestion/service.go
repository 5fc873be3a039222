// Package ingestion turns uploaded file bytes into tables tagged with a platform guess and
// a dataset profile, and keeps an append-only record of every successful ingestion.
package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/excel"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/errors"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/profiling"
)

// Metadata describes an ingested file
type Metadata struct {
	Source             string                 `json:"source"`
	FileType           excel.FileType         `json:"file_type"`
	Encoding           string                 `json:"encoding,omitempty"`
	Sheet              string                 `json:"sheet,omitempty"`
	Platform           string                 `json:"platform"`
	PlatformConfidence float64                `json:"platform_confidence"`
	Stats              profiling.DatasetStats `json:"stats"`
	IngestedAt         core.Timestamp         `json:"ingested_at"`
}

// Result is the tagged outcome of one ingestion
type Result struct {
	Success  bool         `json:"success"`
	Data     *table.Table `json:"-"`
	Metadata *Metadata    `json:"metadata,omitempty"`
	Error    string       `json:"error,omitempty"`
	Code     string       `json:"code,omitempty"`
}

// Record is one immutable history entry
type Record struct {
	Timestamp  core.Timestamp `json:"timestamp"`
	Source     string         `json:"source"`
	FileType   excel.FileType `json:"file_type"`
	Platform   string         `json:"platform"`
	Confidence float64        `json:"confidence"`
	Rows       int            `json:"rows"`
	Columns    int            `json:"columns"`
}

// File is one input of a batch ingestion
type File struct {
	Name string
	Data []byte
}

// Config holds ingestion settings
type Config struct {
	Reader      excel.ReaderConfig
	Concurrency int // batch fan-out limit
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{Reader: excel.DefaultReaderConfig(), Concurrency: 4}
}

// Service ingests files
type Service struct {
	reader   *excel.DataReader
	profiler *profiling.Profiler
	config   Config
	clock    core.Clock
	logger   *internal.Logger

	mu      sync.Mutex
	history []Record
}

// NewService creates an ingestion service
func NewService(config Config, clock core.Clock, logger *internal.Logger) *Service {
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Service{
		reader:   excel.NewDataReader(config.Reader),
		profiler: profiling.NewProfiler(nil),
		config:   config,
		clock:    clock,
		logger:   logger,
	}
}

// Ingest reads one file. Failures are reported in the result, never as panics.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[Ingestion] panic while reading %s: %v", filename, r)
			result = failure(errors.InternalError(fmt.Sprintf("failed to read %s: %v", filename, r)))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failure(errors.Wrap(err, "ingestion cancelled"))
	}

	decoded, err := s.reader.Read(data, filename)
	if err != nil {
		s.logger.Warn("[Ingestion] %s rejected: %v", filename, err)
		return failure(err)
	}

	platform, confidence := schema.DetectPlatform(decoded.Table.ColumnNames())
	meta := &Metadata{
		Source:             filename,
		FileType:           decoded.FileType,
		Encoding:           decoded.Encoding,
		Sheet:              decoded.Sheet,
		Platform:           platform,
		PlatformConfidence: confidence,
		Stats:              s.profiler.Profile(decoded.Table),
		IngestedAt:         core.NewTimestamp(s.clock()),
	}

	s.mu.Lock()
	s.history = append(s.history, Record{
		Timestamp:  meta.IngestedAt,
		Source:     filename,
		FileType:   decoded.FileType,
		Platform:   platform,
		Confidence: confidence,
		Rows:       decoded.Table.NumRows(),
		Columns:    decoded.Table.NumColumns(),
	})
	s.mu.Unlock()

	s.logger.Info("[Ingestion] %s: %d rows, %d columns, platform=%s (%.2f)",
		filename, decoded.Table.NumRows(), decoded.Table.NumColumns(), platform, confidence)

	return &Result{Success: true, Data: decoded.Table, Metadata: meta}
}

// IngestMany ingests files concurrently. Results keep the input order and each file
// succeeds or fails on its own; the error is non-nil only when ctx is cancelled.
func (s *Service) IngestMany(ctx context.Context, files []File) ([]*Result, error) {
	results := make([]*Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	start := time.Now()
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Ingest(gctx, f.Data, f.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "batch ingestion cancelled")
	}

	s.logger.Debug("[Ingestion] batch of %d files took %s", len(files), time.Since(start))
	return results, nil
}

// History returns a copy of the ingestion history
func (s *Service) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

func failure(err error) *Result {
	return &Result{Success: false, Error: err.Error(), Code: errors.GetCode(err)}
}
