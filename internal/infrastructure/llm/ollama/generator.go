package ollama

import (
	"context"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

const (
	answerTemperature   = 0.2
	classifyTemperature = 0.0
)

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generator answers legal questions and serves the clarity classifier.
type Generator struct {
	client  *Client
	catalog *domain.Catalog
}

func NewGenerator(client *Client, catalog *domain.Catalog) *Generator {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &Generator{client: client, catalog: catalog}
}

func (g *Generator) GenerateAnswer(ctx context.Context, req domain.AnswerRequest) (string, error) {
	return g.client.generate(ctx, generateRequest{
		Model:   g.client.genModel,
		Prompt:  buildAnswerPrompt(req, g.catalog),
		Options: generateOptions{Temperature: answerTemperature},
	})
}

// GenerateJSONFromPrompt asks for a JSON object with deterministic sampling.
func (g *Generator) GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error) {
	return g.client.generate(ctx, generateRequest{
		Model:   g.client.genModel,
		Prompt:  prompt,
		Format:  "json",
		Options: generateOptions{Temperature: classifyTemperature},
	})
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	var resp generateResponse
	if err := c.postJSON(ctx, "/api/generate", req, &resp, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}
