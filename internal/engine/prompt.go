package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fintel-group/report-extract/internal/model"
)

// defaultMaxPromptChars bounds the document text embedded in one prompt.
// Longer chunks are truncated from the middle, keeping head and tail.
const defaultMaxPromptChars = 3500

const extractPrompt = `You are a financial analyst extracting metrics from an annual report excerpt.

Report excerpt:
%s

Find every financial metric stated in the excerpt (revenue, profit, bond face value, interest rate, balances, ratios, ...). Return a JSON array where each element is an object with these string fields:
{"metric_name": "", "value": "", "value_prior_year": "", "value_two_years_prior": "", "yoy_pct": "", "yoy_delta": "", "unit": "", "fiscal_year": "", "record_type": "", "note": ""}

record_type is "actual" for reported figures and "forecast" for guidance. Leave fields you cannot find as empty strings. If the excerpt states no metrics, return []. Return only JSON.`

const extractTargetedPrompt = `You are a financial analyst extracting specific metrics from an annual report excerpt.

Target metrics: %s

Report excerpt:
%s

For each target metric stated in the excerpt, emit an object with these string fields:
{"metric_name": "", "value": "", "value_prior_year": "", "value_two_years_prior": "", "yoy_pct": "", "yoy_delta": "", "unit": "", "fiscal_year": "", "record_type": "", "note": ""}

Return a JSON array of those objects, [] if none of the targets appear. Return only JSON.`

const verifyPrompt = `You are auditing a first-pass metric extraction for omissions.

Report excerpt:
%s

Metrics already extracted:
%s

List any financial metrics stated in the excerpt but missing from the list above. Return a JSON object:
{"missing_metrics": [{"metric_name": "", "value": "", "value_prior_year": "", "value_two_years_prior": "", "yoy_pct": "", "yoy_delta": "", "unit": "", "fiscal_year": "", "record_type": "", "note": ""}]}

If nothing was missed, return {"missing_metrics": []}. Return only JSON.`

const canonicalPrompt = `You are standardizing financial metric names that different extractors produced for the same report.

Raw names:
%s

Return a JSON object mapping every raw name to a canonical name, merging synonyms under one label. Rules:
- Prefer the shorter, more generic name of a synonym pair.
- Strip parenthetical qualifiers unless they distinguish genuinely different quantities (period-start vs period-end balances stay separate).
- Treat different reporting-basis qualifiers (consolidated vs standalone) as the same metric.
- A name with no synonyms maps to itself.

Return only the JSON object.`

// truncateText bounds text to maxChars by keeping the head and tail halves
// around a truncation marker, so both opening context and closing figures
// survive.
func truncateText(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	half := maxChars / 2
	return string(runes[:half]) + "\n...<truncated>...\n" + string(runes[len(runes)-half:])
}

// buildExtractPrompt renders the extraction prompt for one chunk. With no
// target metrics the oracle is asked for every metric it can find; otherwise
// the prompt is restricted to the named metrics.
func buildExtractPrompt(chunk model.Chunk, metrics []string, maxChars int) string {
	text := truncateText(chunk.Text(), maxChars)
	if len(metrics) == 0 {
		return fmt.Sprintf(extractPrompt, text)
	}
	return fmt.Sprintf(extractTargetedPrompt, strings.Join(metrics, ", "), text)
}

// buildVerifyPrompt renders the omission-audit prompt for one chunk and its
// first-round candidates.
func buildVerifyPrompt(chunk model.Chunk, found []model.Candidate, maxChars int) string {
	summaries := make([]map[string]string, 0, len(found))
	for _, c := range found {
		summaries = append(summaries, map[string]string{
			"metric_name": c.MetricName,
			"value":       c.Value,
			"unit":        c.Unit,
			"fiscal_year": c.FiscalYear,
		})
	}
	extracted, err := json.Marshal(summaries)
	if err != nil {
		extracted = []byte("[]")
	}
	return fmt.Sprintf(verifyPrompt, truncateText(chunk.Text(), maxChars), string(extracted))
}

// buildCanonicalPrompt renders the name-clustering prompt for the distinct
// metric names seen in a run.
func buildCanonicalPrompt(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return fmt.Sprintf(canonicalPrompt, strings.TrimRight(b.String(), "\n"))
}
