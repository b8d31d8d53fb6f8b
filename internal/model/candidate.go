package model

// Candidate is one oracle's claim about one metric, extracted from one chunk.
// All value-bearing fields are kept as strings exactly as the oracle reported
// them; normalization happens only transiently inside field voting.
type Candidate struct {
	OracleID         string `json:"oracle_id"`
	EntityTag        string `json:"entity_tag"`
	MetricName       string `json:"metric_name"`
	OriginalMetric   string `json:"original_metric_name,omitempty"`
	Value            string `json:"value"`
	ValuePriorYear   string `json:"value_prior_year,omitempty"`
	ValueTwoYearsAgo string `json:"value_two_years_prior,omitempty"`
	YoYPct           string `json:"yoy_pct,omitempty"`
	YoYDelta         string `json:"yoy_delta,omitempty"`
	Unit             string `json:"unit,omitempty"`
	FiscalYear       string `json:"fiscal_year,omitempty"`
	RecordType       string `json:"record_type,omitempty"`
	Note             string `json:"note,omitempty"`
	RawResponse      string `json:"raw_response,omitempty"`
	PageID           int    `json:"page_id"`
	UnitID           int    `json:"unit_id"`
	ChunkIndex       int    `json:"chunk_index"`
	FromVerification bool   `json:"from_verification,omitempty"`
}

// Valid reports whether the candidate can participate in merging. Candidates
// with no metric name or no entity tag are silently dropped during grouping;
// whole-document runs tag their subject UnknownEntity, never the empty string.
func (c Candidate) Valid() bool {
	return c.MetricName != "" && c.EntityTag != ""
}
