package oracle

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// AnthropicOracle adapts the Anthropic Messages API to the Client capability.
type AnthropicOracle struct {
	id     string
	model  string
	client sdk.Client
}

// NewAnthropic creates an oracle backed by the official Anthropic SDK.
func NewAnthropic(id, model, apiKey string) *AnthropicOracle {
	return &AnthropicOracle{
		id:     id,
		model:  model,
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (o *AnthropicOracle) ID() string { return o.id }

func (o *AnthropicOracle) Call(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	msg, err := o.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(o.model),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrapf(err, "oracle %s: create message", o.id)
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
