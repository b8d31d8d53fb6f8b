package engine

import (
	"github.com/fintel-group/report-extract/internal/model"
)

// aggregate selects, per entity and canonical metric, the single best merged
// record: highest confidence wins, exact ties go to the record with more
// supporting votes, and remaining ties keep the record encountered first.
// Input order is the stable chunk order, so "first encountered" is
// reproducible across runs.
func aggregate(records []model.MergedRecord) model.FinalResult {
	final := make(model.FinalResult)

	for _, rec := range records {
		metrics, ok := final[rec.EntityTag]
		if !ok {
			metrics = make(map[string]model.MergedRecord)
			final[rec.EntityTag] = metrics
		}

		cur, exists := metrics[rec.MetricName]
		if !exists || betterRecord(rec, cur) {
			metrics[rec.MetricName] = rec
		}
	}

	return final
}

// betterRecord reports whether candidate should replace incumbent.
func betterRecord(candidate, incumbent model.MergedRecord) bool {
	if candidate.Confidence != incumbent.Confidence {
		return candidate.Confidence > incumbent.Confidence
	}
	return len(candidate.Support) > len(incumbent.Support)
}
