package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
	"github.com/junozone1110/faqbot-1/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	handler  ports.MessageHandler
	sessions ports.SessionReader
	catalog  *domain.Catalog
	metrics  *metrics.HTTPServerMetrics
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
}

func NewRouter(
	handler ports.MessageHandler,
	sessions ports.SessionReader,
	catalog *domain.Catalog,
	opts RouterOptions,
) *Router {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}
	return &Router{
		handler:  handler,
		sessions: sessions,
		catalog:  catalog,
		metrics:  opts.Metrics,
		limiter:  limiter,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/messages", rt.postMessage)
	mux.HandleFunc("GET /v1/domains", rt.listDomains)
	mux.HandleFunc("GET /v1/sessions/{session_key}", rt.getSession)

	var onLimited func(string)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		onLimited = func(path string) { rt.metrics.RecordRateLimited(serviceName, path) }
	}

	var h http.Handler = rateLimitMiddleware(mux, rt.limiter, onLimited)
	if rt.metrics != nil {
		h = rt.metrics.Middleware(serviceName, h)
	}
	h = accessLogMiddleware(rt.logger, h)
	return requestIDMiddleware(h)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	ThreadKey      string `json:"thread_key"`
	MessageTS      string `json:"message_ts"`
	Text           string `json:"text"`
	SelectedDomain string `json:"selected_domain"`
}

// postMessage returns the engine action. Reportable outcomes such as an
// empty pool are 200 responses carrying a report_error action.
func (rt *Router) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json", ErrorKind: domain.ErrorKindInvalidInput})
		return
	}
	if strings.TrimSpace(req.ThreadKey) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "thread_key is required", ErrorKind: domain.ErrorKindInvalidInput})
		return
	}

	action, err := rt.handler.HandleMessage(r.Context(), domain.InboundMessage{
		ThreadKey:      req.ThreadKey,
		MessageTS:      req.MessageTS,
		Text:           req.Text,
		SelectedDomain: req.SelectedDomain,
	})
	if err != nil {
		rt.logger.Warn("handle_message_failed",
			"request_id", requestIDFromContext(r.Context()),
			"thread_key", req.ThreadKey,
			"error", err,
		)
		writeJSON(w, statusForError(err), action)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (rt *Router) listDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": rt.catalog.Domains()})
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("session_key"))
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session key is required", ErrorKind: domain.ErrorKindInvalidInput})
		return
	}

	sess, err := rt.sessions.Session(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
