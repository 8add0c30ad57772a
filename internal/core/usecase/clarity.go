package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

const (
	fallbackClassifierError   = "classifier_error"
	fallbackClassifierTimeout = "classifier_timeout"
	fallbackMalformedOutput   = "malformed_output"
)

// ClarityClassifier decides whether the accumulated question can be answered.
// It owns the prompt, the round budget and validation of the model output.
type ClarityClassifier struct {
	client   ports.ReasoningClient
	policy   domain.ClarificationPolicy
	observer EngineObserver
	logger   *slog.Logger
}

func NewClarityClassifier(
	client ports.ReasoningClient,
	policy domain.ClarificationPolicy,
	observer EngineObserver,
	logger *slog.Logger,
) *ClarityClassifier {
	defaults := domain.DefaultClarificationPolicy()
	if policy.MaxRounds <= 0 {
		policy.MaxRounds = defaults.MaxRounds
	}
	if policy.MaxFollowUps <= 0 {
		policy.MaxFollowUps = defaults.MaxFollowUps
	}
	if policy.RoundLimit == "" {
		policy.RoundLimit = defaults.RoundLimit
	}
	if policy.ClassifyTimeout <= 0 {
		policy.ClassifyTimeout = defaults.ClassifyTimeout
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClarityClassifier{
		client:   client,
		policy:   policy,
		observer: observer,
		logger:   logger,
	}
}

// Classify never returns an error: failures become a best-effort Ready
// verdict with FallbackReason and Cause set.
func (c *ClarityClassifier) Classify(ctx context.Context, req domain.ClarityRequest) domain.ClarityVerdict {
	verdict := c.classify(ctx, req)
	c.observer.RecordClarity(verdict.Outcome, verdict.Forced, verdict.FallbackReason)
	return verdict
}

func (c *ClarityClassifier) classify(ctx context.Context, req domain.ClarityRequest) domain.ClarityVerdict {
	if req.Round >= c.policy.MaxRounds {
		outcome := domain.ClarityReady
		if c.policy.RoundLimit == domain.RoundLimitAbandon {
			outcome = domain.ClarityExhausted
		}
		return domain.ClarityVerdict{
			Outcome:          outcome,
			Forced:           true,
			CombinedQuestion: joinContext(req),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.policy.ClassifyTimeout)
	defer cancel()

	raw, err := c.client.GenerateJSONFromPrompt(callCtx, buildClarityPrompt(req, c.policy.MaxFollowUps))
	if err != nil {
		reason := fallbackClassifierError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = fallbackClassifierTimeout
		}
		return c.fallback(req, reason, err)
	}

	verdict, err := parseClarityVerdict(raw, c.policy.MaxFollowUps)
	if err != nil {
		return c.fallback(req, fallbackMalformedOutput, err)
	}
	if verdict.CombinedQuestion == "" {
		verdict.CombinedQuestion = joinContext(req)
	}
	return verdict
}

func (c *ClarityClassifier) fallback(req domain.ClarityRequest, reason string, cause error) domain.ClarityVerdict {
	c.logger.Warn("clarity_fallback", "domain", req.Domain.ID, "round", req.Round, "reason", reason, "error", cause)
	return domain.ClarityVerdict{
		Outcome:          domain.ClarityReady,
		CombinedQuestion: joinContext(req),
		FallbackReason:   reason,
		Cause:            cause,
	}
}

type clarityPayload struct {
	Ready            *bool    `json:"ready"`
	FollowUps        []string `json:"follow_ups"`
	MissingAspects   []string `json:"missing_aspects"`
	CombinedQuestion string   `json:"combined_question"`
}

func parseClarityVerdict(raw string, maxFollowUps int) (domain.ClarityVerdict, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ClarityVerdict{}, domain.WrapError(domain.ErrClassificationParse, "parse clarity verdict", errors.New("empty classifier response"))
	}

	var payload clarityPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.ClarityVerdict{}, domain.WrapError(domain.ErrClassificationParse, "parse clarity verdict", fmt.Errorf("unmarshal classifier json: %w", err))
	}
	if payload.Ready == nil {
		return domain.ClarityVerdict{}, domain.WrapError(domain.ErrClassificationParse, "parse clarity verdict", errors.New("missing ready field"))
	}

	verdict := domain.ClarityVerdict{
		MissingAspects:   cleanStrings(payload.MissingAspects, 0),
		CombinedQuestion: strings.TrimSpace(payload.CombinedQuestion),
	}
	if *payload.Ready {
		verdict.Outcome = domain.ClarityReady
		return verdict, nil
	}

	verdict.FollowUps = cleanStrings(payload.FollowUps, maxFollowUps)
	if len(verdict.FollowUps) == 0 {
		return domain.ClarityVerdict{}, domain.WrapError(domain.ErrClassificationParse, "parse clarity verdict", errors.New("not ready without follow-up questions"))
	}
	verdict.Outcome = domain.ClarityNeedsClarification
	return verdict, nil
}

func buildClarityPrompt(req domain.ClarityRequest, maxFollowUps int) string {
	var b strings.Builder
	b.WriteString("You are a legal assistant deciding whether a user's question about ")
	b.WriteString(req.Domain.Label)
	b.WriteString(" is specific enough to answer from statutes and FAQ material.\n")
	b.WriteString("Consider the whole conversation below, not only the last message.\n")
	b.WriteString("Reply with one JSON object and nothing else:\n")
	b.WriteString(`{"ready": true|false, "follow_ups": ["..."], "missing_aspects": ["..."], "combined_question": "..."}`)
	b.WriteString("\nRules:\n")
	b.WriteString("- ready=true when the facts needed for a grounded answer are present.\n")
	fmt.Fprintf(&b, "- when ready=false, ask at most %d short follow-up questions in the user's language.\n", maxFollowUps)
	b.WriteString("- combined_question restates the question with every clarification merged in.\n")
	fmt.Fprintf(&b, "Clarification round: %d\n\n", req.Round)

	b.WriteString("Original question:\n")
	b.WriteString(strings.TrimSpace(req.Question))
	b.WriteString("\n")
	if len(req.History) > 0 {
		b.WriteString("\nClarifications so far:\n")
		for i, turn := range req.History {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(turn))
		}
	}
	return b.String()
}

func joinContext(req domain.ClarityRequest) string {
	parts := make([]string, 0, len(req.History)+1)
	if q := strings.TrimSpace(req.Question); q != "" {
		parts = append(parts, q)
	}
	for _, turn := range req.History {
		if turn = strings.TrimSpace(turn); turn != "" {
			parts = append(parts, turn)
		}
	}
	return strings.Join(parts, "\n")
}

func cleanStrings(values []string, limit int) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
