package ports

import (
	"context"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// MessageHandler is the inbound contract of the conversation engine.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage) (domain.OutboundAction, error)
}

// SessionReader exposes session snapshots for inspection.
type SessionReader interface {
	Session(ctx context.Context, key string) (*domain.ThreadSession, error)
}

// SessionSweeper expires sessions idle past their deadline.
type SessionSweeper interface {
	ExpireIdle(ctx context.Context, now time.Time) (int, error)
}

// CorpusIndexer builds the chunk store from source documents.
type CorpusIndexer interface {
	IndexAll(ctx context.Context) (domain.IndexReport, error)
}
