// Package store persists report jobs and their extraction results in SQLite
// or Postgres behind a common interface.
package store

import (
	"context"

	"github.com/fintel-group/report-extract/internal/model"
)

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Status model.ReportStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for report jobs.
type Store interface {
	// CreateReport inserts a new pending job along with its parsed units.
	CreateReport(ctx context.Context, fileName string, units []model.TextUnit) (*model.Report, error)

	// UpdateStatus moves a job through its lifecycle. The message is stored
	// alongside the status (an error description for failed jobs).
	UpdateStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error

	// SetResult stores the final extraction payload and marks the job
	// completed.
	SetResult(ctx context.Context, reportID string, result []byte) error

	GetReport(ctx context.Context, reportID string) (*model.Report, error)
	GetReportUnits(ctx context.Context, reportID string) ([]model.TextUnit, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
