package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const defaultEmbedModel = "embed-english-v3.0"

// CohereEmbedder produces embeddings through the Cohere Embed API.
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbedder builds an embedder from an API key. An empty model
// falls back to the default english v3 model.
func NewCohereEmbedder(apiKey, model string) (*CohereEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("index.cohere_api_key is required")
	}
	if model == "" {
		model = defaultEmbedModel
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &CohereEmbedder{client: client, model: model}, nil
}

// Model reports the model name embeddings were produced with.
func (c *CohereEmbedder) Model() string { return c.model }

// Embed requests float embeddings for the given texts.
func (c *CohereEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("cohere embed returned %d vectors for %d texts", len(floats), len(texts))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}

var _ Embedder = (*CohereEmbedder)(nil)
