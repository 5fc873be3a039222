package api

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/errors"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/ingestion"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/normalize"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/profiling"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/testkit"
)

// Paging defaults for /api/data/{id}
const (
	DefaultPerPage = 100
	MaxPerPage     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"timestamp":     core.NewTimestamp(s.clock()),
		"stored_tables": s.svc.Store.Len(),
	})
}

// tableView is the preview block shared by upload and transform responses
func tableView(t *table.Table) map[string]any {
	return map[string]any{
		"preview":    t.Slice(0, PreviewRows),
		"columns":    t.ColumnNames(),
		"total_rows": t.NumRows(),
	}
}

func mergeFields(dst map[string]any, src map[string]any) map[string]any {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		return errors.InvalidInput("invalid upload: " + err.Error())
	}
	return nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, err)
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeMessage(w, http.StatusBadRequest, errors.CodeInvalidInput, "no file provided")
		return
	}
	data, err := readPart(files[0])
	if err != nil {
		writeError(w, err)
		return
	}

	res := s.svc.Ingestion.Ingest(r.Context(), data, files[0].Filename)
	if !res.Success {
		writeMessage(w, statusFor(res.Code), res.Code, res.Error)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:    res.Data,
		Source:   res.Metadata.Source,
		Platform: res.Metadata.Platform,
		Kind:     "upload",
	})
	writeSuccess(w, mergeFields(map[string]any{
		"data_id":  handle,
		"metadata": res.Metadata,
	}, tableView(res.Data)))
}

func (s *Server) handleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, err)
		return
	}
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeMessage(w, http.StatusBadRequest, errors.CodeInvalidInput, "no files provided")
		return
	}
	files := make([]ingestion.File, 0, len(parts))
	for _, p := range parts {
		data, err := readPart(p)
		if err != nil {
			writeError(w, err)
			return
		}
		files = append(files, ingestion.File{Name: p.Filename, Data: data})
	}

	results, err := s.svc.Ingestion.IngestMany(r.Context(), files)
	if err != nil {
		writeError(w, err)
		return
	}

	var (
		tables    []*table.Table
		platforms []string
		outcomes  = make([]map[string]any, 0, len(results))
	)
	for i, res := range results {
		outcome := map[string]any{"filename": files[i].Name, "success": res.Success}
		if res.Success {
			tables = append(tables, res.Data)
			platforms = append(platforms, res.Metadata.Platform)
			outcome["platform"] = res.Metadata.Platform
			outcome["rows"] = res.Data.NumRows()
		} else {
			outcome["error"] = res.Error
			outcome["code"] = res.Code
		}
		outcomes = append(outcomes, outcome)
	}
	if len(tables) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "no file could be ingested",
			"code":    errors.CodeInvalidInput,
			"results": outcomes,
		})
		return
	}

	merged, err := s.svc.Merger.MergeDatasets(tables, dataset.MergeConfig{
		Strategy:  dataset.AppendMerge,
		Platforms: platforms,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:  merged.Data,
		Source: strings.Join(platforms, "+"),
		Kind:   "merged",
	})
	writeSuccess(w, mergeFields(map[string]any{
		"data_id":        handle,
		"results":        outcomes,
		"merge_metadata": merged.Metadata,
	}, tableView(merged.Data)))
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	config := testkit.DefaultCampaignConfig(s.clock())
	config.Seed = s.clock().UnixNano()
	data := testkit.NewCampaignDataGenerator(config).Generate()
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:  data,
		Source: "sample",
		Kind:   "sample",
	})
	writeSuccess(w, mergeFields(map[string]any{"data_id": handle}, tableView(data)))
}

type normalizeRequest struct {
	TargetCurrency string              `json:"target_currency"`
	CustomMappings map[string][]string `json:"custom_mappings"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req normalizeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TargetCurrency == "" {
		req.TargetCurrency = s.config.TargetCurrency
	}

	out, rep, err := s.svc.Normalizer.Normalize(stored.Table, normalize.Options{
		Platform:       stored.Platform,
		TargetCurrency: req.TargetCurrency,
		CustomSynonyms: req.CustomMappings,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:    out,
		Source:   stored.Source,
		Platform: stored.Platform,
		Kind:     "normalized",
		Meta:     map[string]string{"parent": stored.Handle.String()},
	})
	writeSuccess(w, mergeFields(map[string]any{
		"data_id": handle,
		"report":  rep,
	}, tableView(out)))
}

type mergeRequest struct {
	DataIDs   []string `json:"data_ids"`
	Strategy  string   `json:"strategy"`
	Platforms []string `json:"platforms"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.DataIDs) < 2 {
		writeMessage(w, http.StatusBadRequest, errors.CodeInvalidInput, "at least two data_ids are required")
		return
	}
	tables := make([]*table.Table, 0, len(req.DataIDs))
	for _, id := range req.DataIDs {
		stored, err := s.getStored(id)
		if err != nil {
			writeError(w, err)
			return
		}
		tables = append(tables, stored.Table)
	}
	strategy := dataset.MergeStrategy(req.Strategy)
	if strategy == "" {
		strategy = dataset.AppendMerge
	}

	res, err := s.svc.Merger.MergeDatasets(tables, dataset.MergeConfig{Strategy: strategy, Platforms: req.Platforms})
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:  res.Data,
		Source: strings.Join(req.DataIDs, "+"),
		Kind:   "merged",
	})
	writeSuccess(w, mergeFields(map[string]any{
		"data_id":  handle,
		"metadata": res.Metadata,
	}, tableView(res.Data)))
}

type unifiedRequest struct {
	Datasets []struct {
		DataID   string `json:"data_id"`
		Platform string `json:"platform"`
	} `json:"datasets"`
}

func (s *Server) handleUnified(w http.ResponseWriter, r *http.Request) {
	var req unifiedRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	labelled := make([]dataset.LabelledTable, 0, len(req.Datasets))
	for _, d := range req.Datasets {
		stored, err := s.getStored(d.DataID)
		if err != nil {
			writeError(w, err)
			return
		}
		platform := d.Platform
		if platform == "" {
			platform = stored.Platform
		}
		labelled = append(labelled, dataset.LabelledTable{Platform: platform, Table: stored.Table})
	}

	rep, err := s.svc.Merger.CreateUnifiedReport(labelled)
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{Table: rep.Data, Source: "unified", Kind: "merged"})
	writeSuccess(w, mergeFields(map[string]any{
		"data_id": handle,
		"report":  rep,
	}, tableView(rep.Data)))
}

func (s *Server) handleAggregateDate(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	granularity := dataset.Granularity(r.URL.Query().Get("granularity"))
	if granularity == "" {
		granularity = dataset.Daily
	}
	agg, err := s.svc.Merger.AggregateByDate(stored.Table, granularity)
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:  agg.Data,
		Source: stored.Source,
		Kind:   "aggregated",
		Meta:   map[string]string{"parent": stored.Handle.String(), "granularity": string(granularity)},
	})
	writeSuccess(w, map[string]any{
		"data_id":      handle,
		"granularity":  agg.Granularity,
		"periods":      agg.Periods,
		"dropped_rows": agg.DroppedRows,
		"data":         agg.Data,
		"columns":      agg.Data.ColumnNames(),
	})
}

func (s *Server) handleAggregateCampaign(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	breakdown := false
	if v := r.URL.Query().Get("include_platform"); v != "" {
		if breakdown, err = strconv.ParseBool(v); err != nil {
			writeMessage(w, http.StatusBadRequest, errors.CodeInvalidInput, "include_platform must be a boolean")
			return
		}
	}
	agg, err := s.svc.Merger.AggregateByCampaign(stored.Table, breakdown)
	if err != nil {
		writeError(w, err)
		return
	}
	handle := s.svc.Store.Put(dataset.StoredTable{
		Table:  agg.Data,
		Source: stored.Source,
		Kind:   "aggregated",
		Meta:   map[string]string{"parent": stored.Handle.String()},
	})
	writeSuccess(w, map[string]any{
		"data_id":         handle,
		"total_campaigns": agg.TotalCampaigns,
		"data":            agg.Data,
		"columns":         agg.Data.ColumnNames(),
	})
}

func (s *Server) handleComparePlatforms(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cmp, err := s.svc.Merger.ComparePlatforms(stored.Table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"comparison": cmp})
}

func (s *Server) handleQualityCheck(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.svc.Quality.CheckQuality(stored.Table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"report": rep})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var columns []string
	if v := r.URL.Query().Get("columns"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}
	statistical, err := s.svc.Quality.DetectAnomalies(stored.Table, columns)
	if err != nil {
		writeError(w, err)
		return
	}
	performance, err := s.svc.Quality.DetectPerformanceAnomalies(stored.Table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"statistical_anomalies": statistical,
		"performance_issues":    performance,
	})
}

type reportRequest struct {
	Name       string `json:"name"`
	ClientName string `json:"client_name"`
}

func (s *Server) parseReportRequest(w http.ResponseWriter, r *http.Request) (*dataset.StoredTable, reportRequest, bool) {
	var req reportRequest
	stored, err := s.lookup(r)
	if err == nil {
		err = readJSON(w, r, &req)
	}
	if err != nil {
		writeError(w, err)
		return nil, req, false
	}
	if req.Name == "" {
		req.Name = "marketing_report"
	}
	return stored, req, true
}

func (s *Server) handleReportExcel(w http.ResponseWriter, r *http.Request) {
	stored, req, ok := s.parseReportRequest(w, r)
	if !ok {
		return
	}
	artifact, err := s.svc.Reports.GenerateExcel(stored.Table, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"report": artifact})
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	stored, req, ok := s.parseReportRequest(w, r)
	if !ok {
		return
	}
	artifact, err := s.svc.Reports.GenerateHTML(stored.Table, req.Name, req.ClientName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"report": artifact})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "export"
	}
	artifact, err := s.svc.Reports.ExportCSV(stored.Table, name)
	if err != nil {
		writeError(w, err)
		return
	}
	serveAttachment(w, r, artifact.Path, artifact.Filename)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := s.svc.Reports.Resolve(filename)
	if err != nil {
		writeError(w, err)
		return
	}
	serveAttachment(w, r, path, filename)
}

func serveAttachment(w http.ResponseWriter, r *http.Request, path, filename string) {
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	tables := s.svc.Store.List()
	writeSuccess(w, map[string]any{"datasets": tables, "count": len(tables)})
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err == nil && page < 1 {
		err = errors.InvalidInput("page must be at least 1")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	perPage, err := queryInt(r, "per_page", DefaultPerPage)
	if err == nil && (perPage < 1 || perPage > MaxPerPage) {
		err = errors.InvalidInput("per_page must be between 1 and " + strconv.Itoa(MaxPerPage))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	total := stored.Table.NumRows()
	writeSuccess(w, map[string]any{
		"data_id":     stored.Handle,
		"total_rows":  total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": int(math.Ceil(float64(total) / float64(perPage))),
		"data":        stored.Table.Slice((page-1)*perPage, perPage),
		"columns":     stored.Table.ColumnNames(),
	})
}

func (s *Server) handleDeleteData(w http.ResponseWriter, r *http.Request) {
	h, err := core.ParseHandle(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !s.svc.Store.Delete(h) {
		writeError(w, core.NewNotFoundError("table", h.String()))
		return
	}
	writeSuccess(w, map[string]any{"message": "data " + h.String() + " deleted"})
}

func (s *Server) handleDataStats(w http.ResponseWriter, r *http.Request) {
	stored, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	profile := profiling.NewProfiler(nil).Profile(stored.Table)
	statistics := make(map[string]profiling.Summary, len(profile.NumericColumns))
	for _, name := range profile.NumericColumns {
		col, _ := stored.Table.Column(name)
		if summary, err := profiling.Summarize(col.Floats()); err == nil {
			statistics[name] = summary
		}
	}
	writeSuccess(w, map[string]any{
		"stats": map[string]any{
			"count":           profile.TotalRows,
			"columns":         profile.TotalColumns,
			"numeric_columns": profile.NumericColumns,
			"statistics":      statistics,
			"profile":         profile,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var history any
	switch kind := chi.URLParam(r, "kind"); kind {
	case "ingestion":
		history = s.svc.Ingestion.History()
	case "normalization":
		history = s.svc.Normalizer.History()
	case "merge":
		history = s.svc.Merger.History()
	case "quality":
		history = s.svc.Quality.Reports()
	case "reports":
		history = s.svc.Reports.History()
	default:
		writeError(w, errors.NotFound(fmt.Sprintf("history %q", kind)))
		return
	}
	writeSuccess(w, map[string]any{"history": history})
}

func (s *Server) getStored(id string) (*dataset.StoredTable, error) {
	h, err := core.ParseHandle(id)
	if err != nil {
		return nil, err
	}
	return s.svc.Store.Get(h)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.InvalidInput(key + " must be an integer")
	}
	return n, nil
}
