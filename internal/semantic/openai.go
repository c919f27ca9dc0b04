package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/ghmbegerez/converge/internal/cerr"
)

// OpenAIProvider implements EmbeddingProvider over the OpenAI embeddings
// API, grounded on jinterlante1206-AleutianLocal/services/llm's
// sashabaranov/go-openai client construction (API key from env, secret
// file fallback) retargeted from chat completions to embeddings.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

const embedMaxElapsed = 10 * time.Second

// NewOpenAIProvider constructs an OpenAIProvider. model defaults to
// openai.SmallEmbedding3 when empty.
func NewOpenAIProvider(apiKey string, model openai.EmbeddingModel) *OpenAIProvider {
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Embed requests embeddings for texts, retrying transient API failures with
// exponential backoff the way internal/store/dolt retries a cold connect.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, ErrEmpty
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = embedMaxElapsed

	var resp openai.EmbeddingResponse
	err := backoff.Retry(func() error {
		var apiErr error
		resp, apiErr = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: p.model,
		})
		return apiErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, cerr.New(cerr.KindSemantic, true, fmt.Errorf("openai embeddings: %w", err))
	}

	out := make([]Vector, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = Vector(d.Embedding)
	}
	return out, nil
}
