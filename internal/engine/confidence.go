package engine

import (
	"github.com/fintel-group/report-extract/internal/model"
)

// tierBase maps agreement tiers to base scores used when a record carries no
// vote statistics (single-source records).
var tierBase = map[model.ConfidenceTier]int{
	model.TierHigh:   90,
	model.TierMedium: 65,
	model.TierLow:    40,
}

// scoreConfidence maps a merged record to an integer confidence in [0,100].
// The function is pure: it reads only the record itself, so any stored record
// can have its score re-derived without the original candidates.
//
// Base score comes from the vote ratio when the record has one, otherwise
// from the tier. Completeness earns small bonuses; an empty value or a lone
// supporter is penalized. The result is always clamped to [0,100].
func scoreConfidence(rec model.MergedRecord) int {
	base, ok := tierBase[rec.Tier]
	if !ok {
		base = 50
	}

	if ratio := rec.VoteRatio(); ratio >= 0 {
		switch {
		case ratio >= 1.0:
			base = 100
		case ratio >= 0.8:
			base = 85 + int((ratio-0.8)*50) // 85-95
		case ratio >= 0.6:
			base = 70 + int((ratio-0.6)*75) // 70-85
		case ratio >= 0.5:
			base = 55 + int((ratio-0.5)*150) // 55-70
		default:
			base = 30 + int(ratio*50) // 30-55
		}
	}

	bonus := 0
	if rec.Unit != "" {
		bonus += 5
	}
	if rec.FiscalYear != "" {
		bonus += 5
	}
	if len(rec.Support) >= 3 {
		bonus += 5
	}

	penalty := 0
	if rec.Value == "" {
		penalty = 30
	} else if len(rec.Support) == 1 {
		penalty = 20
	}

	return clamp(base+bonus-penalty, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
