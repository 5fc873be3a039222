package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/errors"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/ingestion"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/normalize"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/quality"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/report"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const googleCSV = "Campaign,Ad group,Keyword,Clicks,Impressions,Cost,CTR,Day\n" +
	"Brand,G1,shoes,10,100,5,10,2024-05-01\n" +
	"Generic,G2,boots,20,400,12,5,2024-05-02\n" +
	"Brand,G1,shoes,30,900,9,3.33,2024-05-03\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	logger := internal.NewLogger(internal.LogLevelError)

	reports, err := report.NewGenerator(t.TempDir(), clock, logger)
	require.NoError(t, err)

	srv := NewServer(Services{
		Ingestion:  ingestion.NewService(ingestion.DefaultConfig(), clock, logger),
		Normalizer: normalize.NewNormalizer(clock, logger),
		Merger:     dataset.NewMerger(clock, logger),
		Quality:    quality.NewChecker(clock, logger),
		Reports:    reports,
		Store:      dataset.NewMemoryStore(dataset.DefaultStorageConfig(), clock, logger),
	}, Config{MaxUploadBytes: 1 << 20}, clock, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func get(t *testing.T, ts *httptest.Server, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	return do(t, req)
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func upload(t *testing.T, ts *httptest.Server, path, field string, files map[string]string) response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, req)
}

func uploadGoogle(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := upload(t, ts, "/api/upload", "file", map[string]string{"google.csv": googleCSV})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	return resp.body["data_id"].(string)
}

func sampleID(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := get(t, ts, "/api/sample-data")
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	return resp.body["data_id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/health")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "healthy", resp.body["status"])
	assert.Equal(t, "nosniff", resp.header.Get("X-Content-Type-Options"))
}

func TestUploadAndBrowse(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts, "/api/upload", "file", map[string]string{"google.csv": googleCSV})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.Equal(t, true, resp.body["success"])
	assert.EqualValues(t, 3, resp.body["total_rows"])
	assert.Len(t, resp.body["preview"], 3)
	metadata := resp.body["metadata"].(map[string]any)
	assert.Equal(t, "google_ads", metadata["platform"])
	id := resp.body["data_id"].(string)

	page := get(t, ts, "/api/data/"+id+"?page=2&per_page=2")
	require.Equal(t, http.StatusOK, page.status)
	assert.EqualValues(t, 2, page.body["total_pages"])
	rows := page.body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Brand", rows[0].(map[string]any)["Campaign"])

	list := get(t, ts, "/api/data")
	assert.EqualValues(t, 1, list.body["count"])

	stats := get(t, ts, "/api/data/"+id+"/stats")
	require.Equal(t, http.StatusOK, stats.status)
	block := stats.body["stats"].(map[string]any)
	assert.EqualValues(t, 3, block["count"])
	assert.Contains(t, block["numeric_columns"], "Clicks")
	clicks := block["statistics"].(map[string]any)["Clicks"].(map[string]any)
	assert.EqualValues(t, 20, clicks["mean"])

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/data/"+id, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(t, req).status)

	gone := get(t, ts, "/api/data/"+id)
	assert.Equal(t, http.StatusNotFound, gone.status)
	assert.Equal(t, errors.CodeNotFound, gone.body["code"])
	assert.Equal(t, false, gone.body["success"])
}

func TestUploadFailures(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts, "/api/upload", "other", map[string]string{"google.csv": googleCSV})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, errors.CodeInvalidInput, resp.body["code"])

	resp = upload(t, ts, "/api/upload", "file", map[string]string{"notes.txt": "hello"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, errors.CodeUnsupportedFormat, resp.body["code"])
}

func TestUploadMultipleMerges(t *testing.T) {
	ts := newTestServer(t)
	resp := upload(t, ts, "/api/upload-multiple", "files", map[string]string{
		"google.csv": googleCSV,
		"broken.txt": "nope",
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.EqualValues(t, 3, resp.body["total_rows"])
	assert.Len(t, resp.body["results"], 2)
	assert.Contains(t, resp.body["columns"], "platform")
}

func TestGetDataRejectsBadPaging(t *testing.T) {
	ts := newTestServer(t)
	id := uploadGoogle(t, ts)

	for _, q := range []string{"page=0", "page=x", "per_page=0", "per_page=5000"} {
		resp := get(t, ts, "/api/data/"+id+"?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.status, q)
	}
}

func TestNormalize(t *testing.T) {
	ts := newTestServer(t)
	id := uploadGoogle(t, ts)

	resp := postJSON(t, ts, "/api/normalize/"+id, map[string]any{"target_currency": "USD"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.NotEqual(t, id, resp.body["data_id"])
	assert.Contains(t, resp.body["columns"], "campaign_name")
	assert.Contains(t, resp.body["columns"], "spend")
	rep := resp.body["report"].(map[string]any)
	assert.EqualValues(t, 3, rep["final_rows"])

	// an empty body falls back to the configured currency
	resp = postJSON(t, ts, "/api/normalize/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.status, string(resp.raw))

	resp = postJSON(t, ts, "/api/normalize/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestAnalysisRoutes(t *testing.T) {
	ts := newTestServer(t)
	id := sampleID(t, ts)

	t.Run("quality", func(t *testing.T) {
		resp := get(t, ts, "/api/quality/check/"+id)
		require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
		rep := resp.body["report"].(map[string]any)
		assert.EqualValues(t, 360, rep["total_rows"])
		assert.NotEmpty(t, rep["grade"])
	})

	t.Run("anomalies", func(t *testing.T) {
		resp := get(t, ts, "/api/quality/anomalies/"+id+"?columns=spend,clicks")
		require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
		statistical := resp.body["statistical_anomalies"].(map[string]any)
		assert.ElementsMatch(t, []any{"spend", "clicks"}, statistical["columns_analyzed"])
		assert.Contains(t, resp.body, "performance_issues")
	})

	t.Run("aggregate by date", func(t *testing.T) {
		resp := get(t, ts, "/api/aggregate/date/"+id+"?granularity=weekly")
		require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
		assert.Equal(t, "weekly", resp.body["granularity"])
		assert.Contains(t, resp.body["columns"], "period")
	})

	t.Run("aggregate by campaign", func(t *testing.T) {
		resp := get(t, ts, "/api/aggregate/campaign/"+id+"?include_platform=true")
		require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
		assert.EqualValues(t, 12, resp.body["total_campaigns"])

		resp = get(t, ts, "/api/aggregate/campaign/"+id+"?include_platform=maybe")
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("compare platforms", func(t *testing.T) {
		resp := get(t, ts, "/api/compare/platforms/"+id)
		require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
		cmp := resp.body["comparison"].(map[string]any)
		assert.Len(t, cmp["platform_stats"], 3)
	})

	t.Run("history", func(t *testing.T) {
		resp := get(t, ts, "/api/history/quality")
		require.Equal(t, http.StatusOK, resp.status)
		assert.Len(t, resp.body["history"], 1)

		assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/history/bogus").status)
	})
}

func TestMerge(t *testing.T) {
	ts := newTestServer(t)
	a, b := uploadGoogle(t, ts), uploadGoogle(t, ts)

	resp := postJSON(t, ts, "/api/merge", map[string]any{"data_ids": []string{a}})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = postJSON(t, ts, "/api/merge", map[string]any{
		"data_ids":  []string{a, b},
		"strategy":  "append",
		"platforms": []string{"google_ads", "google_ads"},
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.EqualValues(t, 6, resp.body["total_rows"])

	resp = postJSON(t, ts, "/api/merge", map[string]any{"data_ids": []string{a, "nope"}})
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestUnified(t *testing.T) {
	ts := newTestServer(t)
	a, b := sampleID(t, ts), sampleID(t, ts)

	resp := postJSON(t, ts, "/api/unified", map[string]any{
		"datasets": []map[string]string{
			{"data_id": a, "platform": "first"},
			{"data_id": b, "platform": "second"},
		},
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	rep := resp.body["report"].(map[string]any)
	summary := rep["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_platforms"])
	assert.EqualValues(t, 720, summary["total_rows"])
}

func TestReportsAndDownload(t *testing.T) {
	ts := newTestServer(t)
	id := sampleID(t, ts)

	resp := postJSON(t, ts, "/api/report/excel/"+id, map[string]any{"name": "acme q2"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	artifact := resp.body["report"].(map[string]any)
	assert.Equal(t, "acme_q2_20240601_120000.xlsx", artifact["filename"])

	file := get(t, ts, artifact["download_url"].(string))
	require.Equal(t, http.StatusOK, file.status)
	assert.Contains(t, file.header.Get("Content-Disposition"), "acme_q2_20240601_120000.xlsx")
	assert.NotEmpty(t, file.raw)

	resp = postJSON(t, ts, "/api/report/pdf/"+id, map[string]any{"client_name": "Acme"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	artifact = resp.body["report"].(map[string]any)
	assert.Equal(t, "html", artifact["type"])

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/download/missing.xlsx").status)
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	id := uploadGoogle(t, ts)

	resp := get(t, ts, "/api/export/csv/"+id+"?name=google")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.header.Get("Content-Disposition"), "google_20240601_120000.csv")
	assert.True(t, strings.HasPrefix(string(resp.raw), "Campaign,Ad group,Keyword"), string(resp.raw))
}
