package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fintel-group/report-extract/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	file_name  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	message    TEXT NOT NULL DEFAULT '',
	units      TEXT NOT NULL,
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateReport(ctx context.Context, fileName string, units []model.TextUnit) (*model.Report, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	unitsJSON, err := json.Marshal(units)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal units")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, file_name, status, message, units, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fileName, string(model.ReportStatusPending), "", string(unitsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert report")
	}

	return &model.Report{
		ID:        id,
		FileName:  fileName,
		Status:    model.ReportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(status), message, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update report status %s", reportID)
	}
	return checkRowsAffected(res, "report", reportID)
}

func (s *SQLiteStore) SetResult(ctx context.Context, reportID string, result []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(result), string(model.ReportStatusCompleted), time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set report result %s", reportID)
	}
	return checkRowsAffected(res, "report", reportID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var r model.Report
	var status string
	var result sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, status, message, result, created_at, updated_at FROM reports WHERE id = ?`,
		reportID,
	).Scan(&r.ID, &r.FileName, &status, &r.Message, &result, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", reportID)
	}

	r.Status = model.ReportStatus(status)
	if result.Valid {
		r.Result = []byte(result.String)
	}
	return &r, nil
}

func (s *SQLiteStore) GetReportUnits(ctx context.Context, reportID string) ([]model.TextUnit, error) {
	var unitsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT units FROM reports WHERE id = ?`,
		reportID,
	).Scan(&unitsJSON)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report units %s", reportID)
	}

	var units []model.TextUnit
	if err := json.Unmarshal([]byte(unitsJSON), &units); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal units %s", reportID)
	}
	return units, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, file_name, status, message, created_at, updated_at FROM reports`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var status string
		if err := rows.Scan(&r.ID, &r.FileName, &status, &r.Message, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		r.Status = model.ReportStatus(status)
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: iterate reports")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
