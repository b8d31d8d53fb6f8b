// Package oracle defines the capability interface the extraction engine uses
// to talk to text-understanding models, plus the concrete adapters. Provider
// authentication and request shaping live entirely behind Client; the engine
// only ever sees an ID and a Call.
package oracle

import "context"

// Client is a single-operation oracle: prompt in, raw text out. Calls either
// return the full response text or fail with a transport/timeout error; there
// is no streaming and no partial output. Implementations must be safe for
// concurrent use, as one client is shared across all pipeline workers.
type Client interface {
	// ID identifies the oracle in provenance records (e.g. "qwen3-max").
	ID() string

	// Call sends one prompt and returns the raw response text.
	Call(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}
