package usecase

import (
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// EngineObserver receives engine events for metrics.
type EngineObserver interface {
	RecordAction(kind domain.ActionKind, errKind domain.ErrorKind)
	RecordClarity(outcome domain.ClarityOutcome, forced bool, fallbackReason string)
	RecordRetrieval(duration time.Duration, poolSize int, degraded bool)
	RecordTransition(from, to domain.SessionStatus)
}

type noopObserver struct{}

func (noopObserver) RecordAction(domain.ActionKind, domain.ErrorKind) {}
func (noopObserver) RecordClarity(domain.ClarityOutcome, bool, string) {}
func (noopObserver) RecordRetrieval(time.Duration, int, bool) {}
func (noopObserver) RecordTransition(domain.SessionStatus, domain.SessionStatus) {}
