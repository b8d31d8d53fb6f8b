package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/model"
)

// parseCandidates recovers a candidate list from raw oracle text. Oracle
// output is untrusted: it may be wrapped in prose or markdown fences, use
// smart quotes or unquoted keys, carry trailing commas, or be a bare object
// instead of an array. The parse ladder is strict JSON, then fence/bracket
// cleanup, then json-repair, then hjson. It never returns an error; on total
// failure the result is simply empty.
func parseCandidates(raw string) []model.Candidate {
	objs := parseObjects(raw)
	if objs == nil {
		return nil
	}

	candidates := make([]model.Candidate, 0, len(objs))
	for _, obj := range objs {
		m, ok := obj.(map[string]any)
		if !ok {
			continue // non-object array entries are skipped
		}
		candidates = append(candidates, coerceCandidate(m, raw))
	}
	return candidates
}

// parseObjects extracts a slice of decoded JSON values from raw text. A
// top-level object is treated as a single-element array (legacy one-metric
// responses). Returns nil when nothing parseable is found.
func parseObjects(raw string) []any {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil
	}

	if objs := decodeLoose(cleaned); objs != nil {
		return objs
	}

	// Self-repairing pass for structurally broken output.
	if repaired, err := jsonrepair.RepairJSON(cleaned); err == nil {
		if objs := decodeLoose(repaired); objs != nil {
			return objs
		}
	}

	// Hjson tolerates unquoted keys/strings and comments.
	var loose any
	if err := hjson.Unmarshal([]byte(cleaned), &loose); err == nil {
		switch v := loose.(type) {
		case []any:
			return v
		case map[string]any:
			return []any{v}
		}
	}

	zap.L().Debug("normalize: unparseable oracle output",
		zap.Int("raw_len", len(raw)))
	return nil
}

// decodeLoose tries strict JSON decoding as array first, then as object.
func decodeLoose(text string) []any {
	var arr []any
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return []any{obj}
	}
	return nil
}

// cleanJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON array or object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Keep the outermost JSON structure: whichever bracket opens first wins,
	// so an object containing arrays is not sliced down to its inner array.
	arrStart := strings.Index(text, "[")
	objStart := strings.Index(text, "{")

	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return strings.TrimSpace(text[arrStart : end+1])
		}
	}
	if objStart >= 0 {
		if end := strings.LastIndex(text, "}"); end > objStart {
			return strings.TrimSpace(text[objStart : end+1])
		}
	}

	return strings.TrimSpace(text)
}

// coerceCandidate maps one decoded object onto the candidate field set,
// defaulting missing fields to the empty string.
func coerceCandidate(m map[string]any, raw string) model.Candidate {
	return model.Candidate{
		MetricName:       fieldString(m, "metric_name", "metric"),
		Value:            fieldString(m, "value"),
		ValuePriorYear:   fieldString(m, "value_prior_year", "value_lastyear"),
		ValueTwoYearsAgo: fieldString(m, "value_two_years_prior", "value_before2year"),
		YoYPct:           fieldString(m, "yoy_pct", "YoY"),
		YoYDelta:         fieldString(m, "yoy_delta", "YoY_D"),
		Unit:             fieldString(m, "unit"),
		FiscalYear:       fieldString(m, "fiscal_year", "year"),
		RecordType:       fieldString(m, "record_type", "type"),
		Note:             fieldString(m, "note"),
		RawResponse:      raw,
	}
}

// fieldString reads the first present key as a string, stringifying numbers
// and booleans the way the oracles sometimes emit them.
func fieldString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			if t == float64(int64(t)) {
				return fmt.Sprintf("%d", int64(t))
			}
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
		case json.Number:
			return t.String()
		case bool:
			return fmt.Sprintf("%t", t)
		}
	}
	return ""
}
