package ports

import (
	"context"
	"io"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// ChunkStore serves the read-only indexed corpus. An empty domainID
// returns the whole corpus.
type ChunkStore interface {
	GetPool(ctx context.Context, domainID string) ([]domain.Chunk, error)
}

// ChunkWriter replaces every chunk of one source document.
type ChunkWriter interface {
	ReplaceSource(ctx context.Context, source string, chunks []domain.Chunk) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ReasoningClient returns raw JSON text for a structured prompt.
type ReasoningClient interface {
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, req domain.AnswerRequest) (string, error)
}

// SessionStore persists thread sessions. Active returns the most recent
// session of a thread or domain.ErrSessionNotFound.
type SessionStore interface {
	Active(ctx context.Context, threadKey string) (*domain.ThreadSession, error)
	Get(ctx context.Context, key string) (*domain.ThreadSession, error)
	Save(ctx context.Context, session *domain.ThreadSession) error
	ListIdle(ctx context.Context, cutoff time.Time) ([]domain.ThreadSession, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.SourceDocument) (string, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}
