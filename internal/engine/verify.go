package engine

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fintel-group/report-extract/internal/model"
)

// verifySuffix tags candidates contributed by the verification round.
const verifySuffix = "-verify"

// runVerificationRound re-presents each productive chunk plus its first-round
// candidates to the designated verifier oracle and collects any metrics it
// flags as omitted. One call per chunk, concurrent across chunks only; a
// failed or malformed verification yields zero supplements and never touches
// the first round's output.
func (e *Engine) runVerificationRound(ctx context.Context, entity string, chunks []model.Chunk, firstRound []model.Candidate) []model.Candidate {
	verifier := e.verifier()
	if verifier == nil {
		return nil
	}

	log := zap.L().With(zap.String("entity", entity), zap.String("verifier", verifier.ID()))

	byChunk := make(map[int][]model.Candidate)
	for _, c := range firstRound {
		byChunk[c.ChunkIndex] = append(byChunk[c.ChunkIndex], c)
	}

	var (
		mu      sync.Mutex
		results []taskResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for _, chunk := range chunks {
		found := byChunk[chunk.Index]
		if len(found) == 0 {
			continue // nothing to audit
		}

		g.Go(func() error {
			prompt := buildVerifyPrompt(chunk, found, e.opts.MaxPromptChars)

			raw, err := verifier.Call(gctx, prompt, e.opts.MaxOutputTokens, e.opts.Temperature)
			if err != nil {
				log.Warn("verification call failed",
					zap.Int("chunk", chunk.Index),
					zap.Error(err))
				return nil
			}

			cands := parseMissingMetrics(raw)
			pageID, unitID := chunk.FirstPosition()
			for i := range cands {
				cands[i].OracleID = verifier.ID() + verifySuffix
				cands[i].EntityTag = entity
				cands[i].ChunkIndex = chunk.Index
				cands[i].PageID = pageID
				cands[i].UnitID = unitID
				cands[i].FromVerification = true
			}

			mu.Lock()
			results = append(results, taskResult{chunkIndex: chunk.Index, candidates: cands})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("verification round interrupted", zap.Error(err))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].chunkIndex < results[j].chunkIndex
	})

	var out []model.Candidate
	for _, r := range results {
		out = append(out, r.candidates...)
	}

	log.Info("verification round complete", zap.Int("supplements", len(out)))
	return out
}

// parseMissingMetrics recovers supplementary candidates from a verification
// response. The expected shape is {"missing_metrics": [...]}; a bare array is
// accepted too. Same defensive contract as parseCandidates: never errors.
func parseMissingMetrics(raw string) []model.Candidate {
	objs := parseObjects(raw)
	if len(objs) == 0 {
		return nil
	}

	// Wrapper object: unwrap the missing_metrics array.
	if m, ok := objs[0].(map[string]any); ok {
		if inner, ok := m["missing_metrics"]; ok {
			arr, ok := inner.([]any)
			if !ok {
				return nil
			}
			var out []model.Candidate
			for _, item := range arr {
				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				out = append(out, coerceCandidate(obj, raw))
			}
			return out
		}
	}

	// Bare array of metric objects.
	return parseCandidates(raw)
}
