package engine

import (
	"github.com/fintel-group/report-extract/internal/model"
)

// BuildChunks groups ordered text units into overlapping windows of size
// window, each consecutive window sharing overlap units with its predecessor.
// The final chunk may be shorter than window; chunks are never empty.
func BuildChunks(units []model.TextUnit, window, overlap int) []model.Chunk {
	if len(units) == 0 {
		return nil
	}
	if window < 1 {
		window = 1
	}

	var chunks []model.Chunk
	for i := 0; i < len(units); {
		end := i + window
		if end > len(units) {
			end = len(units)
		}
		chunks = append(chunks, model.Chunk{
			Index: len(chunks),
			Units: units[i:end],
		})

		// The window reached the end: every unit is covered.
		if end == len(units) {
			break
		}
		// overlap >= window would never advance; emit one chunk and stop.
		if overlap >= window {
			break
		}
		i += window - overlap
	}
	return chunks
}
