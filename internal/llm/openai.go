// Package llm adapts the OpenAI API to the drafter and embedding boundaries.
package llm

import (
	"context"
	"fmt"
	"strings"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/marketstate"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/trace"
)

const draftSystemPrompt = `You are a swing-trading analyst. Given a market snapshot and excerpts from trading literature, propose exactly one JSON object and nothing else:
{"action": "BUY"|"SELL"|"HOLD", "confidence": 0-100, "entry_price": number, "target_price": number, "stop_loss": number, "holding_period_days": integer, "reasoning": string, "citations": [fragment ids]}
Cite only the fragment ids you were given. If the excerpts do not support a directional trade, answer HOLD with an empty citations list.`

// Client calls OpenAI for draft generation and query embeddings. Its output
// is untrusted text; validation happens in the draft package.
type Client struct {
	api        openai.Client
	tracer     trace.Tracer
	model      string
	embedModel string
}

func NewClient(tracer trace.Tracer, apiKey, model, embedModel string) *Client {
	return &Client{
		api:        openai.NewClient(option.WithAPIKey(apiKey)),
		tracer:     tracer,
		model:      model,
		embedModel: embedModel,
	}
}

// Draft asks the chat model for a signal proposal and returns its raw text.
func (c *Client) Draft(ctx context.Context, prompt domain.PromptContext) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.draft")
	defer span.End()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(draftSystemPrompt),
			openai.UserMessage(renderPrompt(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a retrieval query.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, span := c.tracer.Start(ctx, "llm.embed")
	defer span.End()

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}

func renderPrompt(prompt domain.PromptContext) string {
	var b strings.Builder
	b.WriteString("Market snapshot:\n")
	b.WriteString(marketstate.Describe(prompt.State))
	b.WriteString("\nKnowledge excerpts:\n")
	if len(prompt.Fragments) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, f := range prompt.Fragments {
		fmt.Fprintf(&b, "[%s] %s: %s", f.Fragment.ID, f.Fragment.SourceTitle, f.Fragment.Text)
		if f.Fragment.Chapter != "" {
			fmt.Fprintf(&b, " (chapter %s, p.%d)", f.Fragment.Chapter, f.Fragment.Page)
		}
		b.WriteString("\n")
	}
	return b.String()
}
