// Package assistant runs one utterance through the whole pipeline:
// prompt, completion, command dispatch, sanitizing and the context log.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"glados/internal/metrics"
	"glados/internal/nlu"
	"glados/internal/speech"
	"glados/pkg/protocol"
)

type PromptBuilder interface {
	Build(ctx context.Context) string
}

type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, directives []protocol.Directive)
}

type ContextLog interface {
	Append(utterance, reply string)
}

type Assistant struct {
	prompt     PromptBuilder
	completer  Completer
	dispatcher Dispatcher
	history    ContextLog
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(prompt PromptBuilder, completer Completer, dispatcher Dispatcher, history ContextLog, m *metrics.Metrics, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		prompt:     prompt,
		completer:  completer,
		dispatcher: dispatcher,
		history:    history,
		metrics:    m,
		logger:     logger,
	}
}

// Handle answers one utterance. It always returns text for the caller; a
// failed completion yields its "Ошибка: ..." reply.
//
// Commands are extracted from the untouched reply and dispatched before
// the reply is sanitized, since sanitizing removes the tags.
func (a *Assistant) Handle(ctx context.Context, source, utterance string) string {
	start := time.Now()
	logger := loggerFrom(ctx, a.logger)

	// once started, a request runs to the end even if the caller leaves
	ctx = context.WithoutCancel(ctx)

	systemPrompt := a.prompt.Build(ctx)

	raw, err := a.completer.Complete(ctx, systemPrompt, utterance)
	if err != nil {
		kind := "unknown"
		var cerr *nlu.Error
		if errors.As(err, &cerr) {
			kind = cerr.Kind.String()
		}
		a.metrics.CompletionError(kind)
		a.metrics.ObserveRequest(source, "error", time.Since(start))
		logger.Error("completion failed", "kind", kind, "err", err)
		return nlu.ReplyText(err)
	}
	logger.Debug("raw reply", "text", raw)

	directives, skipped := protocol.Directives(raw)
	for _, payload := range skipped {
		logger.Warn("skipping malformed command", "payload", payload)
		a.metrics.Directive(false)
	}
	if n := len(directives) + len(skipped); n > 0 {
		logger.Info("found command tags in reply", "count", n, "parsed", len(directives))
	}
	for i, d := range directives {
		logger.Info("parsed command", "index", i+1, "device_id", d.DeviceID, "value", d.Value)
		a.metrics.Directive(true)
	}
	a.dispatcher.Dispatch(ctx, directives)

	reply := speech.Sanitize(raw)
	logger.Info("reply ready", "text", reply)

	a.history.Append(utterance, reply)

	a.metrics.ObserveRequest(source, "ok", time.Since(start))
	return reply
}

type loggerKey struct{}

// WithLogger attaches a request-scoped logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return fallback
}
