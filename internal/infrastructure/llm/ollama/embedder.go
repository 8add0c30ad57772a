package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	req := embedRequest{Model: e.client.embedModel, Input: texts}
	if err := e.client.postJSON(ctx, "/api/embed", req, &resp, "embed"); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "ollama embed",
			fmt.Errorf("got %d vectors for %d inputs", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ollama embed query", fmt.Errorf("empty text"))
	}
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "ollama embed query", fmt.Errorf("empty vector"))
	}
	return vectors[0], nil
}
