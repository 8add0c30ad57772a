package ollama

import (
	"net/http"
	"strings"
	"time"

	"github.com/junozone1110/faqbot-1/internal/infrastructure/resilience"
)

// Client talks to one Ollama server for both generation and embeddings.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds an Ollama client. executor may be nil.
func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}
