package oracle

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fintel-group/report-extract/pkg/chatapi"
)

// ChatOracle adapts an OpenAI-compatible chat endpoint to the Client
// capability. One ChatOracle binds one model on one endpoint.
type ChatOracle struct {
	id     string
	model  string
	client chatapi.Client
}

// NewChat wraps a chatapi client as an oracle. The id is used in provenance
// and should be stable across runs (conventionally the model name).
func NewChat(id, model string, client chatapi.Client) *ChatOracle {
	return &ChatOracle{id: id, model: model, client: client}
}

func (o *ChatOracle) ID() string { return o.id }

func (o *ChatOracle) Call(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := o.client.ChatCompletion(ctx, chatapi.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []chatapi.Message{{Role: "user", Content: prompt}},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", eris.Wrapf(err, "oracle %s: chat completion", o.id)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Errorf("oracle %s: empty choices in response", o.id)
	}
	return resp.Choices[0].Message.Content, nil
}
