package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintel-group/report-extract/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testUnits() []model.TextUnit {
	return []model.TextUnit{
		{PageID: 1, UnitID: 0, Type: model.UnitTypeText, Text: "营业收入 1500 百万元"},
		{PageID: 1, UnitID: 1, Type: model.UnitTypeTable, Text: "净利润 | 300 | 280"},
	}
}

func TestSQLiteStore_ReportLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rep, err := s.CreateReport(ctx, "annual-2024.json", testUnits())
	require.NoError(t, err)
	require.NotEmpty(t, rep.ID)
	assert.Equal(t, model.ReportStatusPending, rep.Status)

	got, err := s.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "annual-2024.json", got.FileName)
	assert.Equal(t, model.ReportStatusPending, got.Status)
	assert.Empty(t, got.Result)

	units, err := s.GetReportUnits(ctx, rep.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "营业收入 1500 百万元", units[0].Text)
	assert.Equal(t, model.UnitTypeTable, units[1].Type)

	require.NoError(t, s.UpdateStatus(ctx, rep.ID, model.ReportStatusProcessing, ""))
	got, err = s.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusProcessing, got.Status)

	result := []byte(`{"平安银行":{"营业收入":{"value":"1500.00"}}}`)
	require.NoError(t, s.SetResult(ctx, rep.ID, result))
	got, err = s.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusCompleted, got.Status)
	assert.JSONEq(t, string(result), string(got.Result))
}

func TestSQLiteStore_FailedJob(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rep, err := s.CreateReport(ctx, "broken.json", testUnits())
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, rep.ID, model.ReportStatusFailed, "engine: no oracles configured"))
	got, err := s.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, got.Status)
	assert.Contains(t, got.Message, "no oracles")
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.GetReport(ctx, "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "err = %v", err)

	assert.Error(t, s.UpdateStatus(ctx, "nope", model.ReportStatusProcessing, ""))
	assert.Error(t, s.SetResult(ctx, "nope", []byte("{}")))
}

func TestSQLiteStore_ListReports(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.CreateReport(ctx, "a.json", testUnits())
	require.NoError(t, err)
	b, err := s.CreateReport(ctx, "b.json", testUnits())
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, b.ID, model.ReportStatusFailed, "x"))

	all, err := s.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := s.ListReports(ctx, ReportFilter{Status: model.ReportStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	limited, err := s.ListReports(ctx, ReportFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
