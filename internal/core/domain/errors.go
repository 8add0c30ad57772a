package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDomain         = errors.New("invalid domain")
	ErrEmptyPool             = errors.New("no documents indexed for domain")
	ErrEmbeddingProvider     = errors.New("embedding provider failure")
	ErrClassificationParse   = errors.New("classification parse failure")
	ErrAnswerGeneration      = errors.New("answer generation failure")
	ErrSessionExpired        = errors.New("session expired")
	ErrSessionNotFound       = errors.New("session not found")
	ErrInternalInconsistency = errors.New("internal inconsistency")
	ErrInvalidInput          = errors.New("invalid input")
	ErrTemporary             = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorKindOf maps an error to the kind reported to the transport.
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrInvalidDomain):
		return ErrorKindInvalidDomain
	case IsKind(err, ErrEmptyPool):
		return ErrorKindEmptyPool
	case IsKind(err, ErrAnswerGeneration):
		return ErrorKindAnswerUnavailable
	case IsKind(err, ErrInvalidInput):
		return ErrorKindInvalidInput
	case IsKind(err, ErrTemporary):
		return ErrorKindTemporary
	default:
		return ErrorKindInternalInconsistency
	}
}
