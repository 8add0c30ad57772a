package domain

// InboundMessage is one user message addressed to a conversation thread.
type InboundMessage struct {
	ThreadKey      string `json:"thread_key"`
	MessageTS      string `json:"message_ts"`
	Text           string `json:"text"`
	SelectedDomain string `json:"selected_domain,omitempty"`
}

type ActionKind string

const (
	ActionAskDomainSelection ActionKind = "ask_domain_selection"
	ActionAskClarification   ActionKind = "ask_clarification"
	ActionDeliverAnswer      ActionKind = "deliver_answer"
	ActionReportError        ActionKind = "report_error"
)

// ErrorKind is the user-reportable failure class carried by report_error.
type ErrorKind string

const (
	ErrorKindInvalidDomain         ErrorKind = "invalid_domain"
	ErrorKindEmptyPool             ErrorKind = "empty_pool"
	ErrorKindAnswerUnavailable     ErrorKind = "answer_unavailable"
	ErrorKindUnableToClarify       ErrorKind = "unable_to_clarify"
	ErrorKindInvalidInput          ErrorKind = "invalid_input"
	ErrorKindTemporary             ErrorKind = "temporary"
	ErrorKindInternalInconsistency ErrorKind = "internal_inconsistency"
)

// OutboundAction is what the engine asks the transport to do next.
type OutboundAction struct {
	Kind       ActionKind    `json:"kind"`
	SessionKey string        `json:"session_key"`
	ThreadKey  string        `json:"thread_key"`
	Domains    []LegalDomain `json:"domains,omitempty"`
	Questions  []string      `json:"questions,omitempty"`
	Text       string        `json:"text,omitempty"`
	Sources    []SourceRef   `json:"sources,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Message    string        `json:"message,omitempty"`
	Degraded   bool          `json:"degraded,omitempty"`
	BestEffort bool          `json:"best_effort,omitempty"`
}
