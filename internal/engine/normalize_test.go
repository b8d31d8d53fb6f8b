package engine

import (
	"testing"
)

func TestParseCandidates(t *testing.T) {
	t.Run("strict json array", func(t *testing.T) {
		raw := `[{"metric_name":"营业收入","value":"1500.00","unit":"百万元","fiscal_year":"2024"}]`
		cands := parseCandidates(raw)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		c := cands[0]
		if c.MetricName != "营业收入" || c.Value != "1500.00" || c.Unit != "百万元" || c.FiscalYear != "2024" {
			t.Errorf("unexpected candidate: %+v", c)
		}
		if c.RawResponse != raw {
			t.Errorf("raw response not preserved")
		}
	})

	t.Run("markdown fenced array", func(t *testing.T) {
		raw := "```json\n[{\"metric_name\":\"revenue\",\"value\":\"12\"}]\n```"
		cands := parseCandidates(raw)
		if len(cands) != 1 || cands[0].MetricName != "revenue" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("array wrapped in prose", func(t *testing.T) {
		raw := `Sure, here are the metrics I found:

[{"metric_name": "net profit", "value": "88"}]

Let me know if you need anything else.`
		cands := parseCandidates(raw)
		if len(cands) != 1 || cands[0].MetricName != "net profit" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("single object treated as one-element array", func(t *testing.T) {
		cands := parseCandidates(`{"metric_name":"debt ratio","value":"45%"}`)
		if len(cands) != 1 || cands[0].Value != "45%" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("trailing comma repaired", func(t *testing.T) {
		cands := parseCandidates(`[{"metric_name":"revenue","value":"10",}]`)
		if len(cands) != 1 || cands[0].Value != "10" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("unquoted keys recovered", func(t *testing.T) {
		cands := parseCandidates(`[{metric_name: "revenue", value: "10"}]`)
		if len(cands) != 1 || cands[0].MetricName != "revenue" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("numeric and null field values coerced", func(t *testing.T) {
		cands := parseCandidates(`[{"metric_name":"revenue","value":1500.5,"fiscal_year":2024,"unit":null}]`)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates", len(cands))
		}
		if cands[0].Value != "1500.5" {
			t.Errorf("value = %q, want 1500.5", cands[0].Value)
		}
		if cands[0].FiscalYear != "2024" {
			t.Errorf("fiscal_year = %q, want 2024", cands[0].FiscalYear)
		}
		if cands[0].Unit != "" {
			t.Errorf("unit = %q, want empty", cands[0].Unit)
		}
	})

	t.Run("legacy field names accepted", func(t *testing.T) {
		cands := parseCandidates(`[{"metric":"营收","value":"100","value_lastyear":"90","value_before2year":"80","YoY":"11.1","YoY_D":"10","year":"2024","type":"actual"}]`)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates", len(cands))
		}
		c := cands[0]
		if c.MetricName != "营收" || c.ValuePriorYear != "90" || c.ValueTwoYearsAgo != "80" {
			t.Errorf("legacy values not mapped: %+v", c)
		}
		if c.YoYPct != "11.1" || c.YoYDelta != "10" || c.FiscalYear != "2024" || c.RecordType != "actual" {
			t.Errorf("legacy derived fields not mapped: %+v", c)
		}
	})

	t.Run("non-object entries skipped", func(t *testing.T) {
		cands := parseCandidates(`["just a string", {"metric_name":"revenue","value":"1"}, 42]`)
		if len(cands) != 1 || cands[0].MetricName != "revenue" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("empty array", func(t *testing.T) {
		if cands := parseCandidates("[]"); len(cands) != 0 {
			t.Fatalf("got %+v, want none", cands)
		}
	})

	t.Run("pure prose yields nothing", func(t *testing.T) {
		if cands := parseCandidates("I could not find any metrics in this text."); len(cands) != 0 {
			t.Fatalf("got %+v, want none", cands)
		}
	})

	t.Run("garbage yields nothing", func(t *testing.T) {
		if cands := parseCandidates("%%%###!!!"); cands != nil {
			t.Fatalf("got %+v, want nil", cands)
		}
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		if cands := parseCandidates(""); cands != nil {
			t.Fatalf("got %+v, want nil", cands)
		}
	})
}

func TestCleanJSON(t *testing.T) {
	t.Run("object containing array keeps the object", func(t *testing.T) {
		raw := `{"missing_metrics": [{"metric_name": "roe"}]}`
		got := cleanJSON("noise before " + raw + " noise after")
		if got != raw {
			t.Fatalf("got %q, want %q", got, raw)
		}
	})

	t.Run("array before object keeps the array", func(t *testing.T) {
		got := cleanJSON(`[{"a":1}] trailing`)
		if got != `[{"a":1}]` {
			t.Fatalf("got %q", got)
		}
	})
}

func TestParseMissingMetrics(t *testing.T) {
	t.Run("wrapper object", func(t *testing.T) {
		cands := parseMissingMetrics(`{"missing_metrics":[{"metric_name":"roe","value":"12%"}]}`)
		if len(cands) != 1 || cands[0].MetricName != "roe" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("empty wrapper", func(t *testing.T) {
		if cands := parseMissingMetrics(`{"missing_metrics":[]}`); len(cands) != 0 {
			t.Fatalf("got %+v, want none", cands)
		}
	})

	t.Run("bare array accepted", func(t *testing.T) {
		cands := parseMissingMetrics(`[{"metric_name":"roa","value":"8%"}]`)
		if len(cands) != 1 || cands[0].MetricName != "roa" {
			t.Fatalf("got %+v", cands)
		}
	})

	t.Run("unparseable yields nothing", func(t *testing.T) {
		if cands := parseMissingMetrics("nothing missing!"); len(cands) != 0 {
			t.Fatalf("got %+v, want none", cands)
		}
	})
}
