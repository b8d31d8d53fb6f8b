package model

import "time"

// ReportStatus tracks a report job through its lifecycle.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Report is one submitted extraction job. The parsed units are stored with
// the job so a run is reproducible from the database row alone.
type Report struct {
	ID        string       `json:"report_id"`
	FileName  string       `json:"file_name"`
	Status    ReportStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Result    []byte       `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// KeywordEntry is the per-metric shape served to API consumers, mirroring the
// report front end's keywords payload.
type KeywordEntry struct {
	Value            string `json:"value"`
	ValueLastYear    string `json:"value_lastyear"`
	ValueBefore2Year string `json:"value_before2year"`
	YoY              string `json:"YoY"`
	YoYDelta         string `json:"YoY_D"`
	Unit             string `json:"unit"`
	Year             string `json:"year"`
	Type             string `json:"type"`
	Confidence       int    `json:"confidence"`
	PageID           int    `json:"page_id"`
	UnitID           int    `json:"unit_id"`
}
