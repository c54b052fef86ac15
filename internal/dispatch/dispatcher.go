// Package dispatch delivers parsed directives to the smart-home backends.
// Delivery is fire-and-forget: failures are logged and counted, never
// returned to the request.
package dispatch

import (
	"context"
	"log/slog"

	"glados/internal/metrics"
	"glados/pkg/protocol"
)

// Sink is one backend that accepts directives.
type Sink interface {
	Name() string
	Send(ctx context.Context, d protocol.Directive) error
}

type Dispatcher struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(logger *slog.Logger, m *metrics.Metrics, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sinks:   sinks,
		logger:  logger.With("component", "dispatch"),
		metrics: m,
	}
}

func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}

// Dispatch sends every directive, in order, once to each sink.
func (d *Dispatcher) Dispatch(ctx context.Context, directives []protocol.Directive) {
	if len(directives) > 0 && len(d.sinks) == 0 {
		d.logger.Warn("no dispatch sinks configured, dropping directives", "count", len(directives))
		return
	}

	for i, dir := range directives {
		for _, sink := range d.sinks {
			if err := sink.Send(ctx, dir); err != nil {
				d.logger.Error("dispatch failed",
					"sink", sink.Name(), "index", i+1, "device_id", dir.DeviceID, "value", dir.Value, "err", err)
				d.metrics.DispatchFailure(sink.Name())
				continue
			}
			d.logger.Info("dispatched", "sink", sink.Name(), "index", i+1, "device_id", dir.DeviceID, "value", dir.Value)
		}
	}
}
