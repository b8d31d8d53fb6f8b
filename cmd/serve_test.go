package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintel-group/report-extract/internal/engine"
	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/oracle"
	"github.com/fintel-group/report-extract/internal/report"
	"github.com/fintel-group/report-extract/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	eng, err := engine.New(engine.Options{
		Oracles: []oracle.Client{
			oracle.NewMock("m1", `[{"metric_name":"营业收入","value":"1500.00","unit":"百万元","fiscal_year":"2024"}]`),
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	proc := report.NewProcessor(st, eng, nil, 1, 4)
	proc.Start(ctx)
	t.Cleanup(func() {
		proc.Stop()
		cancel()
	})

	srv := httptest.NewServer(newRouter(st, proc))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestServeHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeReportFlow(t *testing.T) {
	srv, st := newTestServer(t)

	body := `{"file_name":"annual-2024.json","units":[{"page_id":1,"unit_id":0,"text":"营业收入 1,500.00 百万元"}]}`
	resp, err := http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created model.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	require.Eventually(t, func() bool {
		rep, err := st.GetReport(context.Background(), created.ID)
		return err == nil && rep.Status == model.ReportStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	// Status endpoint
	resp, err = http.Get(srv.URL + "/api/reports/" + created.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Keywords payload
	resp, err = http.Get(srv.URL + "/api/reports/" + created.ID + "/keywords")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var kw struct {
		Status   model.ReportStatus                       `json:"status"`
		Keywords map[string]map[string]model.KeywordEntry `json:"keywords"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&kw))
	assert.Equal(t, model.ReportStatusCompleted, kw.Status)
	assert.Equal(t, "1500.00", kw.Keywords[model.UnknownEntity]["营业收入"].Value)

	// Listing
	resp, err = http.Get(srv.URL + "/api/reports")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []model.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "annual-2024.json", list[0].FileName)
}

func TestServeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(`{"units":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/reports/unknown-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
