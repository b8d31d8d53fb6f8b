package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fintel-group/report-extract/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres store testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_report":        `INSERT INTO reports (id, file_name, status, message, units, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_report_status": `UPDATE reports SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
	"set_report_result":    `UPDATE reports SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_report":           `SELECT id, file_name, status, message, result, created_at, updated_at FROM reports WHERE id = $1`,
	"get_report_units":     `SELECT units FROM reports WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	file_name  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	message    TEXT NOT NULL DEFAULT '',
	units      JSONB NOT NULL,
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateReport(ctx context.Context, fileName string, units []model.TextUnit) (*model.Report, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	unitsJSON, err := json.Marshal(units)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal units")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, file_name, status, message, units, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, fileName, string(model.ReportStatusPending), "", unitsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert report")
	}

	return &model.Report{
		ID:        id,
		FileName:  fileName,
		Status:    model.ReportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
		string(status), message, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update report status %s", reportID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (s *PostgresStore) SetResult(ctx context.Context, reportID string, result []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		result, string(model.ReportStatusCompleted), time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set report result %s", reportID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var r model.Report
	var status string
	var result []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, file_name, status, message, result, created_at, updated_at FROM reports WHERE id = $1`,
		reportID,
	).Scan(&r.ID, &r.FileName, &status, &r.Message, &result, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", reportID)
	}

	r.Status = model.ReportStatus(status)
	r.Result = result
	return &r, nil
}

func (s *PostgresStore) GetReportUnits(ctx context.Context, reportID string) ([]model.TextUnit, error) {
	var unitsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT units FROM reports WHERE id = $1`,
		reportID,
	).Scan(&unitsJSON)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report units %s", reportID)
	}

	var units []model.TextUnit
	if err := json.Unmarshal(unitsJSON, &units); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal units %s", reportID)
	}
	return units, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, file_name, status, message, created_at, updated_at FROM reports`
	var args []any
	argn := 0
	if filter.Status != "" {
		argn++
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		argn++
		query += ` LIMIT $` + strconv.Itoa(argn)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argn++
		query += ` OFFSET $` + strconv.Itoa(argn)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var status string
		if err := rows.Scan(&r.ID, &r.FileName, &status, &r.Message, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		r.Status = model.ReportStatus(status)
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: iterate reports")
}

// IsNotFound reports whether err is a missing-row error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
