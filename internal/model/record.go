package model

// ConfidenceTier is the coarse agreement tier derived from the vote ratio.
type ConfidenceTier string

const (
	TierHigh    ConfidenceTier = "high"
	TierMedium  ConfidenceTier = "medium"
	TierLow     ConfidenceTier = "low"
	TierUnknown ConfidenceTier = "unknown"
)

// MergedRecord is the reconciled result for one (entity, canonical metric)
// vote group: one winning value per field plus the audit trail that lets the
// confidence score be re-derived from the record alone.
type MergedRecord struct {
	EntityTag        string         `json:"entity_tag"`
	MetricName       string         `json:"metric_name"`
	Value            string         `json:"value"`
	ValuePriorYear   string         `json:"value_prior_year,omitempty"`
	ValueTwoYearsAgo string         `json:"value_two_years_prior,omitempty"`
	YoYPct           string         `json:"yoy_pct,omitempty"`
	YoYDelta         string         `json:"yoy_delta,omitempty"`
	Unit             string         `json:"unit,omitempty"`
	FiscalYear       string         `json:"fiscal_year,omitempty"`
	RecordType       string         `json:"record_type,omitempty"`
	Tier             ConfidenceTier `json:"tier"`
	Confidence       int            `json:"confidence"`
	WinningVotes     int            `json:"winning_votes"`
	GroupSize        int            `json:"group_size"`
	Support          []string       `json:"support"`
	Notes            []string       `json:"notes"`
	PageID           int            `json:"page_id"`
	UnitID           int            `json:"unit_id"`
	ChunkIndex       int            `json:"chunk_index"`
}

// VoteRatio returns winning votes over group size, or -1 when the record
// carries no vote statistics (single-source records merged without voting).
func (r MergedRecord) VoteRatio() float64 {
	if r.GroupSize <= 0 {
		return -1
	}
	return float64(r.WinningVotes) / float64(r.GroupSize)
}

// FinalResult maps entity tag -> canonical metric name -> best merged record.
// It is the terminal artifact of a pipeline run.
type FinalResult map[string]map[string]MergedRecord
