package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/fintel-group/report-extract/internal/model"
)

// voteGroup is the set of candidates sharing (entity, canonical metric).
type voteGroup struct {
	entity     string
	metric     string
	candidates []model.Candidate
}

// groupCandidates buckets valid candidates by (entity, canonical metric),
// preserving first-seen order of both groups and members. Invalid candidates
// (missing entity or metric) are silently dropped.
func groupCandidates(candidates []model.Candidate) []voteGroup {
	index := make(map[[2]string]int)
	var groups []voteGroup

	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		key := [2]string{c.EntityTag, c.MetricName}
		if i, ok := index[key]; ok {
			groups[i].candidates = append(groups[i].candidates, c)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, voteGroup{
			entity:     c.EntityTag,
			metric:     c.MetricName,
			candidates: []model.Candidate{c},
		})
	}
	return groups
}

// votedFields are the value-bearing fields voted independently per group.
var votedFields = []struct {
	name string
	get  func(*model.Candidate) string
	set  func(*model.MergedRecord, string)
}{
	{"value", func(c *model.Candidate) string { return c.Value }, func(r *model.MergedRecord, v string) { r.Value = v }},
	{"value_prior_year", func(c *model.Candidate) string { return c.ValuePriorYear }, func(r *model.MergedRecord, v string) { r.ValuePriorYear = v }},
	{"value_two_years_prior", func(c *model.Candidate) string { return c.ValueTwoYearsAgo }, func(r *model.MergedRecord, v string) { r.ValueTwoYearsAgo = v }},
	{"yoy_pct", func(c *model.Candidate) string { return c.YoYPct }, func(r *model.MergedRecord, v string) { r.YoYPct = v }},
	{"yoy_delta", func(c *model.Candidate) string { return c.YoYDelta }, func(r *model.MergedRecord, v string) { r.YoYDelta = v }},
	{"unit", func(c *model.Candidate) string { return c.Unit }, func(r *model.MergedRecord, v string) { r.Unit = v }},
	{"fiscal_year", func(c *model.Candidate) string { return c.FiscalYear }, func(r *model.MergedRecord, v string) { r.FiscalYear = v }},
	{"record_type", func(c *model.Candidate) string { return c.RecordType }, func(r *model.MergedRecord, v string) { r.RecordType = v }},
}

// voteMerge reconciles one vote group into a single merged record. Fields are
// voted independently; the group's overall agreement is judged on the value
// field alone. Tie-breaks use first-seen order within the group's stable
// insertion order, so the result is invariant to permutations of an unordered
// candidate multiset only up to that declared order.
func voteMerge(g voteGroup) model.MergedRecord {
	first := g.candidates[0]
	rec := model.MergedRecord{
		EntityTag:  g.entity,
		MetricName: g.metric,
		PageID:     first.PageID,
		UnitID:     first.UnitID,
		ChunkIndex: first.ChunkIndex,
	}
	for _, c := range g.candidates {
		rec.Support = append(rec.Support, c.OracleID)
	}

	// Single source: nothing to vote on. Medium-tier base, low when even the
	// one claim carries no value.
	if len(g.candidates) == 1 {
		rec.Value = first.Value
		rec.ValuePriorYear = first.ValuePriorYear
		rec.ValueTwoYearsAgo = first.ValueTwoYearsAgo
		rec.YoYPct = first.YoYPct
		rec.YoYDelta = first.YoYDelta
		rec.Unit = first.Unit
		rec.FiscalYear = first.FiscalYear
		rec.RecordType = first.RecordType
		rec.Tier = model.TierMedium
		if first.Value == "" {
			rec.Tier = model.TierLow
		}
		rec.Notes = []string{}
		warnUnitCollision(g)
		return rec
	}

	var valueTally *fieldTally
	for _, f := range votedFields {
		tally := tallyField(g.candidates, f.get)
		f.set(&rec, tally.winnerRaw)
		if f.name == "value" {
			valueTally = tally
		}
	}

	rec.WinningVotes = valueTally.winnerCount
	rec.GroupSize = len(g.candidates)

	ratio := float64(rec.WinningVotes) / float64(rec.GroupSize)
	switch {
	case ratio >= 0.8:
		rec.Tier = model.TierHigh
	case ratio >= 0.5:
		rec.Tier = model.TierMedium
	default:
		rec.Tier = model.TierLow
	}

	rec.Notes = []string{
		fmt.Sprintf("%d/%d oracles support this value", rec.WinningVotes, rec.GroupSize),
	}
	if len(valueTally.order) > 1 {
		rec.Notes = append(rec.Notes, "vote breakdown: "+valueTally.breakdown())
	}

	warnUnitCollision(g)
	return rec
}

// fieldTally holds vote counts for one field across a group.
type fieldTally struct {
	counts      map[string]int
	rawByKey    map[string]string // normalized key → first-seen raw value
	order       []string          // normalized keys in first-seen order
	winnerRaw   string
	winnerCount int
}

// tallyField votes one field: occurrences of each distinct non-empty
// normalized value are counted, the most frequent wins, and frequency ties go
// to the value seen first. The winner is reported in its first-seen raw
// spelling.
func tallyField(candidates []model.Candidate, get func(*model.Candidate) string) *fieldTally {
	t := &fieldTally{
		counts:   make(map[string]int),
		rawByKey: make(map[string]string),
	}

	for i := range candidates {
		raw := get(&candidates[i])
		key := normalizeFieldValue(raw)
		if key == "" {
			continue
		}
		if _, seen := t.counts[key]; !seen {
			t.order = append(t.order, key)
			t.rawByKey[key] = raw
		}
		t.counts[key]++
	}

	for _, key := range t.order {
		if t.counts[key] > t.winnerCount {
			t.winnerCount = t.counts[key]
			t.winnerRaw = t.rawByKey[key]
		}
	}
	return t
}

// breakdown renders the full tally in first-seen order, e.g. "250=2; 260=2".
func (t *fieldTally) breakdown() string {
	parts := make([]string, 0, len(t.order))
	for _, key := range t.order {
		parts = append(parts, fmt.Sprintf("%s=%d", t.rawByKey[key], t.counts[key]))
	}
	return strings.Join(parts, "; ")
}

// normalizeFieldValue canonicalizes a field value for vote counting. Values
// that look numeric are reduced to sign, digits and one decimal point with
// thousands separators stripped; full-width CJK digits and punctuation are
// folded to their ASCII forms first. Non-numeric values vote on their trimmed
// text.
func normalizeFieldValue(v string) string {
	v = strings.TrimSpace(width.Narrow.String(v))
	if v == "" {
		return ""
	}
	if !looksNumeric(v) {
		return v
	}

	var b strings.Builder
	dotSeen := false
	for i, r := range v {
		switch {
		case r == '+' || r == '-':
			if i == 0 {
				b.WriteRune(r)
			}
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dotSeen:
			dotSeen = true
			b.WriteRune(r)
		}
		// Thousands separators and any trailing symbols drop out.
	}
	return b.String()
}

// looksNumeric reports whether the value is a number possibly decorated with
// separators, a sign, or a trailing percent sign.
func looksNumeric(v string) bool {
	digits := 0
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-':
			if i != 0 {
				return false
			}
		case r == ',' || r == '.':
		case r == '%' && i == len(v)-1:
		default:
			return false
		}
	}
	return digits > 0
}

// warnUnitCollision flags groups whose candidates disagree on the unit:
// synonym clustering may have over-merged two genuinely different metrics.
func warnUnitCollision(g voteGroup) {
	seen := make(map[string]bool)
	var units []string
	for _, c := range g.candidates {
		u := strings.TrimSpace(c.Unit)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		units = append(units, u)
	}
	if len(units) > 1 {
		zap.L().Warn("vote: divergent units under one canonical metric",
			zap.String("entity", g.entity),
			zap.String("metric", g.metric),
			zap.Strings("units", units))
	}
}
