package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

const defaultMessageTimeout = 3 * time.Minute

type ActionPublisher interface {
	PublishAction(ctx context.Context, action domain.OutboundAction) error
}

type Recorder interface {
	StartMessage()
	FinishMessage(service string, duration time.Duration, err error)
	SetQueueDepth(depth int)
	RecordPublishFailure(service string)
}

// Worker feeds inbound chat messages to the engine, one message per thread
// at a time, and publishes every resulting action.
type Worker struct {
	handler    ports.MessageHandler
	publisher  ActionPublisher
	dispatcher *Dispatcher
	metrics    Recorder
	service    string
	timeout    time.Duration
	logger     *slog.Logger
}

type WorkerOptions struct {
	Service        string
	MaxActive      int
	MessageTimeout time.Duration
	Metrics        Recorder
	Logger         *slog.Logger
}

func NewWorker(handler ports.MessageHandler, publisher ActionPublisher, opts WorkerOptions) *Worker {
	if opts.Service == "" {
		opts.Service = "bot"
	}
	if opts.MessageTimeout <= 0 {
		opts.MessageTimeout = defaultMessageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	w := &Worker{
		handler:   handler,
		publisher: publisher,
		metrics:   opts.Metrics,
		service:   opts.Service,
		timeout:   opts.MessageTimeout,
		logger:    opts.Logger,
	}
	var onDepth func(int)
	if opts.Metrics != nil {
		onDepth = opts.Metrics.SetQueueDepth
	}
	w.dispatcher = NewDispatcher(opts.MaxActive, onDepth)
	return w
}

// Enqueue schedules msg behind earlier messages of the same thread.
func (w *Worker) Enqueue(ctx context.Context, msg domain.InboundMessage) {
	w.dispatcher.Submit(msg.ThreadKey, func() {
		_ = w.Process(ctx, msg)
	})
}

// Drain waits for every enqueued message to finish.
func (w *Worker) Drain() {
	w.dispatcher.Wait()
}

// Process handles one message synchronously and publishes its action.
// The returned error is the engine or publish error, already logged.
func (w *Worker) Process(ctx context.Context, msg domain.InboundMessage) error {
	start := time.Now()
	if w.metrics != nil {
		w.metrics.StartMessage()
	}

	handleCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	action, err := w.handler.HandleMessage(handleCtx, msg)
	if err != nil {
		w.logger.Warn("message_failed",
			"thread_key", msg.ThreadKey,
			"message_ts", msg.MessageTS,
			"error_kind", string(domain.ErrorKindOf(err)),
			"error", err,
		)
	}
	if action.Kind != "" {
		if action.ThreadKey == "" {
			action.ThreadKey = msg.ThreadKey
		}
		if pubErr := w.publisher.PublishAction(ctx, action); pubErr != nil {
			w.logger.Error("action_publish_failed", "thread_key", msg.ThreadKey, "kind", string(action.Kind), "error", pubErr)
			if w.metrics != nil {
				w.metrics.RecordPublishFailure(w.service)
			}
			if err == nil {
				err = pubErr
			}
		}
	}

	if w.metrics != nil {
		w.metrics.FinishMessage(w.service, time.Since(start), err)
	}
	w.logger.Info("message_processed",
		"thread_key", msg.ThreadKey,
		"kind", string(action.Kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}
