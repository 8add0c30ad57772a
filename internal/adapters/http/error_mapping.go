package httpadapter

import (
	"net/http"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type errorResponse struct {
	Error     string           `json:"error"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
}

// statusForError maps engine failures onto HTTP statuses. Reportable
// outcomes such as an empty pool come back as actions with a nil error.
func statusForError(err error) int {
	if domain.IsKind(err, domain.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	switch domain.ErrorKindOf(err) {
	case domain.ErrorKindInvalidInput, domain.ErrorKindInvalidDomain:
		return http.StatusBadRequest
	case domain.ErrorKindTemporary:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		resp.ErrorKind = domain.ErrorKindOf(err)
	}
	writeJSON(w, statusForError(err), resp)
}
