// Package report turns pipeline results into the payloads consumers see:
// the keywords JSON served by the API and the spreadsheet export, plus the
// background processor that runs queued report jobs.
package report

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/fintel-group/report-extract/internal/model"
)

// KeywordsPayload is the API response shape: entity -> metric -> entry.
type KeywordsPayload map[string]map[string]model.KeywordEntry

// BuildKeywords flattens a pipeline result into the keywords payload.
func BuildKeywords(final model.FinalResult) KeywordsPayload {
	out := make(KeywordsPayload, len(final))
	for entity, metrics := range final {
		entries := make(map[string]model.KeywordEntry, len(metrics))
		for metric, rec := range metrics {
			entries[metric] = model.KeywordEntry{
				Value:            rec.Value,
				ValueLastYear:    rec.ValuePriorYear,
				ValueBefore2Year: rec.ValueTwoYearsAgo,
				YoY:              rec.YoYPct,
				YoYDelta:         rec.YoYDelta,
				Unit:             rec.Unit,
				Year:             rec.FiscalYear,
				Type:             rec.RecordType,
				Confidence:       rec.Confidence,
				PageID:           rec.PageID,
				UnitID:           rec.UnitID,
			}
		}
		out[entity] = entries
	}
	return out
}

// MarshalResult serializes a pipeline result for storage.
func MarshalResult(final model.FinalResult) ([]byte, error) {
	data, err := json.Marshal(final)
	return data, eris.Wrap(err, "report: marshal result")
}

// UnmarshalResult restores a stored pipeline result.
func UnmarshalResult(data []byte) (model.FinalResult, error) {
	var final model.FinalResult
	if err := json.Unmarshal(data, &final); err != nil {
		return nil, eris.Wrap(err, "report: unmarshal result")
	}
	return final, nil
}

// sortedKeys returns map keys in lexical order for stable export output.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
