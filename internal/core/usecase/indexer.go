package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

const defaultEmbedBatchSize = 64

// IndexCorpusUseCase rebuilds the chunk store from every document in storage.
type IndexCorpusUseCase struct {
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	writer    ports.ChunkWriter
	catalog   *domain.Catalog
	batchSize int
	logger    *slog.Logger
}

func NewIndexCorpusUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	writer ports.ChunkWriter,
	catalog *domain.Catalog,
	batchSize int,
	logger *slog.Logger,
) *IndexCorpusUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexCorpusUseCase{
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		writer:    writer,
		catalog:   catalog,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexAll indexes documents in key order. Documents that cannot be
// extracted are skipped and reported; embedding or write failures abort.
func (uc *IndexCorpusUseCase) IndexAll(ctx context.Context) (domain.IndexReport, error) {
	keys, err := uc.storage.List(ctx)
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("list source documents: %w", err)
	}
	sort.Strings(keys)

	report := domain.IndexReport{}
	ordinal := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc := domain.SourceDocument{Key: key, Name: filepath.Base(key)}

		text, err := uc.extractText(ctx, doc)
		if err != nil {
			uc.logger.Warn("index_document_skipped", "document", doc.Name, "error", err)
			report.Skipped = append(report.Skipped, doc.Name)
			continue
		}

		parts, err := uc.chunk(text)
		if err != nil {
			uc.logger.Warn("index_document_skipped", "document", doc.Name, "error", err)
			report.Skipped = append(report.Skipped, doc.Name)
			continue
		}

		vectors, err := uc.embed(ctx, parts)
		if err != nil {
			return report, fmt.Errorf("index %s: %w", doc.Name, err)
		}

		tags := uc.catalog.TagsForSource(doc.Name)
		if len(tags) == 0 {
			report.Untagged = append(report.Untagged, doc.Name)
		}

		chunks := make([]domain.Chunk, 0, len(parts))
		for i, part := range parts {
			terms, length := TermFrequencies(part)
			c := domain.Chunk{
				ID:      uuid.NewString(),
				Ordinal: ordinal,
				Text:    part,
				Source:  doc.Name,
				Domains: tags,
				Terms:   terms,
				Length:  length,
			}
			if vectors != nil {
				c.Embedding = vectors[i]
			}
			chunks = append(chunks, c)
			ordinal++
		}

		if err := uc.writer.ReplaceSource(ctx, doc.Name, chunks); err != nil {
			return report, fmt.Errorf("write chunks for %s: %w", doc.Name, err)
		}
		report.Documents++
		report.Chunks += len(chunks)
		uc.logger.Info("index_document_done", "document", doc.Name, "chunks", len(chunks), "domains", tags)
	}
	return report, nil
}

func (uc *IndexCorpusUseCase) extractText(ctx context.Context, doc domain.SourceDocument) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *IndexCorpusUseCase) chunk(text string) ([]string, error) {
	parts := uc.chunker.Split(text)
	if len(parts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return parts, nil
}

// embed returns nil vectors when no embedder is configured.
func (uc *IndexCorpusUseCase) embed(ctx context.Context, parts []string) ([][]float32, error) {
	if uc.embedder == nil {
		return nil, nil
	}
	out := make([][]float32, 0, len(parts))
	for start := 0; start < len(parts); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(parts) {
			end = len(parts)
		}
		vectors, err := uc.embedder.Embed(ctx, parts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != end-start {
			return nil, domain.WrapError(
				domain.ErrEmbeddingProvider,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), end-start),
			)
		}
		out = append(out, vectors...)
	}
	return out, nil
}
