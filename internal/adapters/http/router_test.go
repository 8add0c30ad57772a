package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/observability/metrics"
)

type engineFake struct {
	got    domain.InboundMessage
	action domain.OutboundAction
	err    error
}

func (f *engineFake) HandleMessage(_ context.Context, msg domain.InboundMessage) (domain.OutboundAction, error) {
	f.got = msg
	return f.action, f.err
}

type sessionsFake struct {
	sessions map[string]domain.ThreadSession
}

func (f sessionsFake) Session(_ context.Context, key string) (*domain.ThreadSession, error) {
	s, ok := f.sessions[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "session", errors.New(key))
	}
	return &s, nil
}

func newTestHandler(engine *engineFake, opts RouterOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := sessionsFake{sessions: map[string]domain.ThreadSession{
		"C1:100#100": {Key: "C1:100#100", ThreadKey: "C1:100", Status: domain.StatusAwaitingClarification, Round: 1},
	}}
	return NewRouter(engine, sessions, domain.DefaultCatalog(), opts).Handler()
}

func postMessage(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestPostMessageReturnsEngineAction(t *testing.T) {
	engine := &engineFake{action: domain.OutboundAction{
		Kind:      domain.ActionAskClarification,
		ThreadKey: "C1:100",
		Questions: []string{"景品の提供方法は?"},
	}}
	res := postMessage(t, newTestHandler(engine, RouterOptions{}), `{"thread_key":"C1:100","message_ts":"101","text":"キャンペーンです","selected_domain":"keihyouhou"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if engine.got.MessageTS != "101" || engine.got.SelectedDomain != "keihyouhou" || engine.got.Text != "キャンペーンです" {
		t.Fatalf("unexpected inbound message %+v", engine.got)
	}
	var action domain.OutboundAction
	if err := json.NewDecoder(res.Body).Decode(&action); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if action.Kind != domain.ActionAskClarification || len(action.Questions) != 1 {
		t.Fatalf("unexpected action %+v", action)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestPostMessageReportableOutcomeIs200(t *testing.T) {
	engine := &engineFake{action: domain.OutboundAction{Kind: domain.ActionReportError, ErrorKind: domain.ErrorKindEmptyPool}}
	res := postMessage(t, newTestHandler(engine, RouterOptions{}), `{"thread_key":"C1:100","text":"q"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for reportable outcome, got %d", res.Code)
	}
}

func TestPostMessageMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: domain.WrapError(domain.ErrInvalidInput, "handle", errors.New("empty")), want: http.StatusBadRequest},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "save", errors.New("db")), want: http.StatusServiceUnavailable},
		{name: "internal", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &engineFake{
				action: domain.OutboundAction{Kind: domain.ActionReportError, ErrorKind: domain.ErrorKindOf(tc.err)},
				err:    tc.err,
			}
			res := postMessage(t, newTestHandler(engine, RouterOptions{}), `{"thread_key":"C1:100","text":"q"}`)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			var action domain.OutboundAction
			_ = json.NewDecoder(res.Body).Decode(&action)
			if action.Kind != domain.ActionReportError {
				t.Fatalf("expected report_error body, got %+v", action)
			}
		})
	}
}

func TestPostMessageRejectsBadRequests(t *testing.T) {
	engine := &engineFake{}
	h := newTestHandler(engine, RouterOptions{})

	if res := postMessage(t, h, `{"thread_key":`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}
	if res := postMessage(t, h, `{"text":"q"}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing thread key, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /v1/messages, got %d", res.Code)
	}
}

func TestListDomainsHidesQueryExpansion(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/domains", nil)
	res := httptest.NewRecorder()
	newTestHandler(&engineFake{}, RouterOptions{}).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, `"id":"keihyouhou"`) || strings.Contains(body, "適用除外") {
		t.Fatalf("unexpected domains body %s", body)
	}
}

func TestGetSessionDecodesEscapedKey(t *testing.T) {
	h := newTestHandler(&engineFake{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/C1:100%23100", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var sess domain.ThreadSession
	if err := json.NewDecoder(res.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Status != domain.StatusAwaitingClarification || sess.Round != 1 {
		t.Fatalf("unexpected session %+v", sess)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	res = httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	m := metrics.NewHTTPServerMetrics(serviceName)
	h := newTestHandler(&engineFake{}, RouterOptions{RateLimitRPS: 1, RateLimitBurst: 1, Metrics: m})

	res1 := httptest.NewRecorder()
	h.ServeHTTP(res1, httptest.NewRequest(http.MethodGet, "/v1/domains", nil))
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := httptest.NewRecorder()
	h.ServeHTTP(res2, httptest.NewRequest(http.MethodGet, "/v1/domains", nil))
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	res3 := httptest.NewRecorder()
	h.ServeHTTP(res3, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res3.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter, got %d", res3.Code)
	}

	res4 := httptest.NewRecorder()
	h.ServeHTTP(res4, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !bytes.Contains(res4.Body.Bytes(), []byte("faqbot_http_rate_limited_total")) {
		t.Fatalf("expected rate limited counter in metrics:\n%s", res4.Body.String())
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	newTestHandler(&engineFake{}, RouterOptions{}).ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
