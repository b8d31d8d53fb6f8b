package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/oracle"
)

func reportUnits() []model.TextUnit {
	return []model.TextUnit{
		{PageID: 1, UnitID: 0, Text: "平安银行 2024年年度报告"},
		{PageID: 1, UnitID: 1, Text: "营业收入 1,500.00 百万元，上年 1,350.00 百万元"},
	}
}

func TestEngineNew(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoOracles) {
		t.Fatalf("err = %v, want ErrNoOracles", err)
	}

	eng, err := New(Options{Oracles: []oracle.Client{oracle.NewMock("m1")}})
	if err != nil {
		t.Fatal(err)
	}
	if eng.opts.WindowSize != 8 || eng.opts.Concurrency != 6 {
		t.Errorf("defaults not applied: %+v", eng.opts)
	}
}

func TestEngineRun(t *testing.T) {
	resp := func(metric, value string) string {
		return `[{"metric_name":"` + metric + `","value":"` + value + `","unit":"百万元","fiscal_year":"2024"}]`
	}

	t.Run("majority consensus across oracles", func(t *testing.T) {
		eng, err := New(Options{
			Oracles: []oracle.Client{
				oracle.NewMock("m1", resp("营业收入", "1500.00")),
				oracle.NewMock("m2", resp("营业收入", "1500.00")),
				oracle.NewMock("m3", resp("营业收入", "1600")),
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		final, err := eng.Run(context.Background(), map[string][]model.TextUnit{
			"平安银行": reportUnits(),
		})
		if err != nil {
			t.Fatal(err)
		}

		rec, ok := final["平安银行"]["营业收入"]
		if !ok {
			t.Fatalf("metric missing from result: %+v", final)
		}
		if rec.Value != "1500.00" {
			t.Errorf("value = %q, want majority 1500.00", rec.Value)
		}
		if rec.WinningVotes != 2 || rec.GroupSize != 3 {
			t.Errorf("votes = %d/%d, want 2/3", rec.WinningVotes, rec.GroupSize)
		}
		if rec.Tier != model.TierMedium {
			t.Errorf("tier = %s, want medium", rec.Tier)
		}
		if rec.Confidence <= 0 || rec.Confidence > 100 {
			t.Errorf("confidence = %d out of range", rec.Confidence)
		}
		if len(rec.Support) != 3 {
			t.Errorf("support = %v, want all three oracles", rec.Support)
		}
		if rec.PageID != 1 || rec.UnitID != 0 {
			t.Errorf("provenance = (%d,%d), want chunk start (1,0)", rec.PageID, rec.UnitID)
		}
	})

	t.Run("synonyms merged under one canonical name", func(t *testing.T) {
		eng, err := New(Options{
			Oracles: []oracle.Client{
				oracle.NewMock("m1", resp("营收", "1500.00")),
				oracle.NewMock("m2", resp("营业收入", "1500.00")),
			},
			Canonicalizer: oracle.NewMock("canon",
				`{"营收": "营业收入", "营业收入": "营业收入"}`),
		})
		if err != nil {
			t.Fatal(err)
		}

		final, err := eng.Run(context.Background(), map[string][]model.TextUnit{
			"平安银行": reportUnits(),
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(final["平安银行"]) != 1 {
			t.Fatalf("got %d metrics, want synonyms merged into 1: %+v", len(final["平安银行"]), final)
		}
		rec := final["平安银行"]["营业收入"]
		if rec.WinningVotes != 2 || rec.GroupSize != 2 {
			t.Errorf("votes = %d/%d, want 2/2 after merge", rec.WinningVotes, rec.GroupSize)
		}
	})

	t.Run("failing oracle degrades confidence, not availability", func(t *testing.T) {
		eng, err := New(Options{
			Oracles: []oracle.Client{
				oracle.NewMock("m1", resp("营业收入", "1500.00")),
				oracle.NewFailingMock("m2", context.DeadlineExceeded),
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		final, err := eng.Run(context.Background(), map[string][]model.TextUnit{
			"平安银行": reportUnits(),
		})
		if err != nil {
			t.Fatalf("run failed on partial oracle outage: %v", err)
		}

		rec, ok := final["平安银行"]["营业收入"]
		if !ok {
			t.Fatalf("surviving oracle's candidate lost: %+v", final)
		}
		if len(rec.Support) != 1 || rec.Support[0] != "m1" {
			t.Errorf("support = %v, want [m1]", rec.Support)
		}
	})

	t.Run("verification supplements missed metrics", func(t *testing.T) {
		eng, err := New(Options{
			EnableVerification: true,
			Oracles: []oracle.Client{
				oracle.NewMock("m1", resp("revenue", "100")),
			},
			Verifier: oracle.NewMock("ver",
				`{"missing_metrics":[{"metric_name":"net profit","value":"50"}]}`),
			Canonicalizer: oracle.NewMock("canon",
				`{"revenue": "revenue", "net profit": "net profit"}`),
		})
		if err != nil {
			t.Fatal(err)
		}

		final, err := eng.Run(context.Background(), map[string][]model.TextUnit{
			"acme": reportUnits(),
		})
		if err != nil {
			t.Fatal(err)
		}

		if _, ok := final["acme"]["revenue"]; !ok {
			t.Errorf("first-round metric missing: %+v", final)
		}
		sup, ok := final["acme"]["net profit"]
		if !ok {
			t.Fatalf("verification supplement missing: %+v", final)
		}
		if len(sup.Support) != 1 || sup.Support[0] != "ver-verify" {
			t.Errorf("supplement support = %v, want [ver-verify]", sup.Support)
		}
	})

	t.Run("two runs over the same input agree", func(t *testing.T) {
		newEngine := func() *Engine {
			eng, err := New(Options{
				WindowSize: 1,
				Oracles: []oracle.Client{
					oracle.NewMock("m1", resp("营业收入", "1500.00")),
					oracle.NewMock("m2", resp("营业收入", "1500.00")),
					oracle.NewMock("m3", resp("营业收入", "1600")),
				},
			})
			if err != nil {
				t.Fatal(err)
			}
			return eng
		}

		input := map[string][]model.TextUnit{"平安银行": reportUnits()}
		a, err := newEngine().Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		b, err := newEngine().Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}

		ra, rb := a["平安银行"]["营业收入"], b["平安银行"]["营业收入"]
		if ra.Value != rb.Value || ra.Confidence != rb.Confidence || ra.WinningVotes != rb.WinningVotes {
			t.Errorf("runs disagree:\n%+v\n%+v", ra, rb)
		}
	})

	t.Run("canceled context aborts the run", func(t *testing.T) {
		eng, err := New(Options{
			Oracles: []oracle.Client{oracle.NewMock("m1", resp("revenue", "1"))},
		})
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := eng.Run(ctx, map[string][]model.TextUnit{"acme": reportUnits()}); err == nil {
			t.Fatal("expected error from canceled context")
		}
	})

	t.Run("entity with no units contributes nothing", func(t *testing.T) {
		eng, err := New(Options{
			Oracles: []oracle.Client{oracle.NewMock("m1", resp("revenue", "1"))},
		})
		if err != nil {
			t.Fatal(err)
		}

		final, err := eng.Run(context.Background(), map[string][]model.TextUnit{
			"empty": nil,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(final) != 0 {
			t.Fatalf("got %+v, want empty result", final)
		}
	})
}
