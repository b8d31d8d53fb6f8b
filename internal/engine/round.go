package engine

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fintel-group/report-extract/internal/model"
)

// taskResult carries one task's candidates together with its stable position
// in the fan-out order, so results can be re-sorted deterministically after
// concurrent completion.
type taskResult struct {
	chunkIndex int
	oracleIdx  int
	candidates []model.Candidate
}

// runExtractionRound fans every chunk out to every oracle on a bounded worker
// pool and collects the surviving candidates. A failing oracle call is logged
// and contributes zero candidates; it never aborts sibling tasks. The
// returned slice is ordered by (chunk index, oracle position) regardless of
// completion order, so downstream first-seen tie-breaks are reproducible.
func (e *Engine) runExtractionRound(ctx context.Context, entity string, chunks []model.Chunk) []model.Candidate {
	log := zap.L().With(zap.String("entity", entity))

	var (
		mu      sync.Mutex
		results []taskResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for _, chunk := range chunks {
		for oi, client := range e.opts.Oracles {
			g.Go(func() error {
				prompt := buildExtractPrompt(chunk, e.opts.TargetMetrics, e.opts.MaxPromptChars)

				raw, err := client.Call(gctx, prompt, e.opts.MaxOutputTokens, e.opts.Temperature)
				if err != nil {
					log.Warn("extraction call failed",
						zap.String("oracle", client.ID()),
						zap.Int("chunk", chunk.Index),
						zap.Error(err))
					return nil // absorbed: zero candidates
				}

				cands := parseCandidates(raw)
				pageID, unitID := chunk.FirstPosition()
				for i := range cands {
					cands[i].OracleID = client.ID()
					cands[i].EntityTag = entity
					cands[i].ChunkIndex = chunk.Index
					cands[i].PageID = pageID
					cands[i].UnitID = unitID
				}

				mu.Lock()
				results = append(results, taskResult{
					chunkIndex: chunk.Index,
					oracleIdx:  oi,
					candidates: cands,
				})
				mu.Unlock()
				return nil
			})
		}
	}

	// Task errors are absorbed above; Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		log.Warn("extraction round interrupted", zap.Error(err))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].chunkIndex != results[j].chunkIndex {
			return results[i].chunkIndex < results[j].chunkIndex
		}
		return results[i].oracleIdx < results[j].oracleIdx
	})

	var out []model.Candidate
	for _, r := range results {
		out = append(out, r.candidates...)
	}

	log.Info("extraction round complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("oracles", len(e.opts.Oracles)),
		zap.Int("candidates", len(out)))

	return out
}
