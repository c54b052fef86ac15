package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"glados/pkg/protocol"
)

const DefaultHTTPTimeout = 10 * time.Second

type commandEnvelope struct {
	Command protocol.Directive `json:"command"`
}

// HTTPSink posts {"command": {"device_id": ..., "value": ...}} to a URL.
// Certificates are not verified and the response is not inspected.
type HTTPSink struct {
	url    string
	client *http.Client
}

func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &HTTPSink{
		url: url,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

func (s *HTTPSink) Name() string {
	return "http"
}

func (s *HTTPSink) Send(ctx context.Context, d protocol.Directive) error {
	payload, err := json.Marshal(commandEnvelope{Command: d})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
