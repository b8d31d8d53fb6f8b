package engine

import (
	"context"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fintel-group/report-extract/internal/model"
)

// Mapping maps raw metric names to canonical names. Applying a mapping twice
// yields the same result as applying it once: normalizeMapping pins every
// canonical target to itself.
type Mapping map[string]string

// Canonical returns the canonical name for a raw name, defaulting to the raw
// name itself when the mapping has no entry.
func (m Mapping) Canonical(name string) string {
	if canonical, ok := m[name]; ok && canonical != "" {
		return canonical
	}
	return name
}

// Apply rewrites every candidate's metric name through the mapping, keeping
// the pre-mapping name for traceability. Already-canonical candidates pass
// through unchanged.
func (m Mapping) Apply(candidates []model.Candidate) {
	for i := range candidates {
		raw := candidates[i].MetricName
		canonical := m.Canonical(raw)
		if candidates[i].OriginalMetric == "" {
			candidates[i].OriginalMetric = raw
		}
		candidates[i].MetricName = canonical
	}
}

// normalizeMapping removes empty entries and pins canonical targets to
// themselves so chained entries (a→b, b→c) cannot make application
// non-idempotent.
func normalizeMapping(m Mapping) Mapping {
	out := make(Mapping, len(m))
	for raw, canonical := range m {
		if raw == "" || canonical == "" {
			continue
		}
		out[raw] = canonical
	}
	for _, canonical := range out {
		out[canonical] = canonical
	}
	return out
}

// LoadAliases reads a static raw→canonical alias map from a YAML file. The
// file is optional curated knowledge layered under the oracle mapping.
func LoadAliases(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "canonical: read aliases %s", path)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "canonical: parse aliases %s", path)
	}
	return normalizeMapping(m), nil
}

// buildMapping asks the canonicalizer oracle to cluster the distinct metric
// names observed in a run. Degrades to the identity mapping (merged with any
// static aliases) when no oracle is configured or the call fails: synonyms
// then simply stay unmerged.
func (e *Engine) buildMapping(ctx context.Context, candidates []model.Candidate) Mapping {
	merged := make(Mapping, len(e.opts.Aliases))
	for raw, canonical := range e.opts.Aliases {
		merged[raw] = canonical
	}

	names := distinctMetricNames(candidates)
	client := e.canonicalizer()
	if client == nil || len(names) < 2 {
		return normalizeMapping(merged)
	}

	raw, err := client.Call(ctx, buildCanonicalPrompt(names), e.opts.MaxOutputTokens, e.opts.Temperature)
	if err != nil {
		zap.L().Warn("canonicalization call failed, keeping raw names",
			zap.String("oracle", client.ID()),
			zap.Error(err))
		return normalizeMapping(merged)
	}

	clustered := parseMapping(raw)
	if clustered == nil {
		zap.L().Warn("canonicalization response unparseable, keeping raw names",
			zap.String("oracle", client.ID()))
		return normalizeMapping(merged)
	}

	// Static aliases win over the oracle's clustering.
	for name, canonical := range clustered {
		if _, ok := merged[name]; !ok {
			merged[name] = canonical
		}
	}
	return normalizeMapping(merged)
}

// parseMapping recovers a string→string mapping from oracle text, using the
// same lenient ladder as candidate parsing. Non-string values are dropped.
func parseMapping(raw string) Mapping {
	objs := parseObjects(raw)
	if len(objs) == 0 {
		return nil
	}
	obj, ok := objs[0].(map[string]any)
	if !ok {
		return nil
	}

	m := make(Mapping, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok && s != "" {
			m[k] = s
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// distinctMetricNames returns the sorted set of non-empty metric names, so
// the canonicalization prompt is identical across runs over the same data.
func distinctMetricNames(candidates []model.Candidate) []string {
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.MetricName != "" {
			seen[c.MetricName] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
