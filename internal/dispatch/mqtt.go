package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"glados/pkg/protocol"
)

const mqttPublishTimeout = 5 * time.Second

type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// MQTTSink publishes each directive's value to <prefix>/<device_id>/set.
type MQTTSink struct {
	cfg    MQTTConfig
	cm     *autopaho.ConnectionManager
	logger *slog.Logger
}

// NewMQTTSink starts a background connection to the broker. The connection
// is retried by autopaho until ctx is cancelled.
func NewMQTTSink(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*MQTTSink, error) {
	brokerURL, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("parse mqtt broker URL: %w", err)
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "glados"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "glados-dispatch"
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt")

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: cfg.Username,
		ConnectPassword: []byte(cfg.Password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			logger.Info("mqtt connected to broker", "broker", cfg.Broker)
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &MQTTSink{cfg: cfg, cm: cm, logger: logger}, nil
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) Topic(d protocol.Directive) string {
	return strings.TrimSuffix(s.cfg.TopicPrefix, "/") + "/" + d.DeviceID + "/set"
}

func (s *MQTTSink) Send(ctx context.Context, d protocol.Directive) error {
	ctx, cancel := context.WithTimeout(ctx, mqttPublishTimeout)
	defer cancel()

	if _, err := s.cm.Publish(ctx, &paho.Publish{
		Topic:   s.Topic(d),
		Payload: []byte(d.Value),
		QoS:     0,
	}); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// AwaitConnection blocks until the broker connection is up or ctx expires.
func (s *MQTTSink) AwaitConnection(ctx context.Context) error {
	return s.cm.AwaitConnection(ctx)
}

func (s *MQTTSink) Close(ctx context.Context) error {
	return s.cm.Disconnect(ctx)
}
