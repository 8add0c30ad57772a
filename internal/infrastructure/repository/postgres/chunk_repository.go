package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

const selectChunks = `
SELECT id, ordinal, source, text, domains, embedding, terms, length
FROM chunks`

// GetPool returns the chunks tagged with domainID in ingestion order.
// An empty domainID returns every chunk.
func (r *ChunkRepository) GetPool(ctx context.Context, domainID string) ([]domain.Chunk, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if domainID == "" {
		rows, err = r.db.QueryContext(ctx, selectChunks+`
ORDER BY ordinal ASC`)
	} else {
		rows, err = r.db.QueryContext(ctx, selectChunks+`
WHERE domains @> jsonb_build_array($1::text)
ORDER BY ordinal ASC`, domainID)
	}
	if err != nil {
		return nil, fmt.Errorf("query chunk pool: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk pool: %w", err)
	}
	return out, nil
}

// ReplaceSource deletes the previous chunks of source and inserts chunks
// in one transaction.
func (r *ChunkRepository) ReplaceSource(ctx context.Context, source string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace source tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = $1`, source); err != nil {
		return fmt.Errorf("delete source chunks: %w", err)
	}

	for _, c := range chunks {
		domainsJSON, err := json.Marshal(nonNilStrings(c.Domains))
		if err != nil {
			return fmt.Errorf("marshal domains: %w", err)
		}
		var embeddingJSON []byte
		if len(c.Embedding) > 0 {
			if embeddingJSON, err = json.Marshal(c.Embedding); err != nil {
				return fmt.Errorf("marshal embedding: %w", err)
			}
		}
		terms := c.Terms
		if terms == nil {
			terms = map[string]int{}
		}
		termsJSON, err := json.Marshal(terms)
		if err != nil {
			return fmt.Errorf("marshal terms: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO chunks (id, ordinal, source, text, domains, embedding, terms, length)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, c.ID, c.Ordinal, source, c.Text, domainsJSON, nullableJSON(embeddingJSON), termsJSON, c.Length)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace source tx: %w", err)
	}
	return nil
}

func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var (
		c            domain.Chunk
		domainsRaw   []byte
		embeddingRaw []byte
		termsRaw     []byte
	)
	if err := rows.Scan(&c.ID, &c.Ordinal, &c.Source, &c.Text, &domainsRaw, &embeddingRaw, &termsRaw, &c.Length); err != nil {
		return domain.Chunk{}, fmt.Errorf("scan chunk: %w", err)
	}
	if err := json.Unmarshal(domainsRaw, &c.Domains); err != nil {
		return domain.Chunk{}, fmt.Errorf("unmarshal domains of %s: %w", c.ID, err)
	}
	if len(embeddingRaw) > 0 {
		if err := json.Unmarshal(embeddingRaw, &c.Embedding); err != nil {
			return domain.Chunk{}, fmt.Errorf("unmarshal embedding of %s: %w", c.ID, err)
		}
	}
	if len(termsRaw) > 0 {
		if err := json.Unmarshal(termsRaw, &c.Terms); err != nil {
			return domain.Chunk{}, fmt.Errorf("unmarshal terms of %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
