package dispatch

import (
	"context"
	"log/slog"

	"glados/pkg/protocol"
)

// Transmitter writes one frame to the device bus.
type Transmitter interface {
	Transmit(m protocol.Message) error
}

// BusSink writes <device_id>:SET:VALUE:<value>:<shard> frames to the
// websocket device bus. Acknowledgements arrive asynchronously and are only
// logged (see LogAck).
type BusSink struct {
	bus Transmitter
}

func NewBusSink(bus Transmitter) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) Name() string {
	return "bus"
}

func (s *BusSink) Send(_ context.Context, d protocol.Directive) error {
	return s.bus.Transmit(protocol.SetMessage(d))
}

// LogAck is an EmitOut callback for frames coming back from devices.
func LogAck(logger *slog.Logger) func(*protocol.Message) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(m *protocol.Message) {
		if m.Ok() {
			logger.Debug("device acknowledged", "from", m.From, "frame", m.String())
			return
		}
		logger.Warn("device reported", "from", m.From, "frame", m.String())
	}
}
