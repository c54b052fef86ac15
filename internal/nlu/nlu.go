package nlu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1/"
	DefaultModel     = "openai/gpt-oss-120b"
	DefaultMaxTokens = 4096
	DefaultTimeout   = 300 * time.Second

	temperature = 0.8
	topP        = 0.95
)

type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int64
	ReasoningEffort string
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// Gateway sends one utterance with its system prompt to an
// OpenAI-compatible chat completion endpoint. It never retries.
type Gateway struct {
	client    openai.Client
	model     string
	maxTokens int64
	reasoning string
	timeout   time.Duration
	logger    *log.Logger
}

func NewGateway(cfg Config, logger *log.Logger) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Gateway{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		reasoning: cfg.ReasoningEffort,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "nlu"),
	}
}

func (g *Gateway) Model() string {
	return g.model
}

// Complete returns the raw assistant text. Failures are always *Error.
func (g *Gateway) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userText),
		},
		Model:               g.model,
		Temperature:         openai.Float(temperature),
		TopP:                openai.Float(topP),
		MaxCompletionTokens: openai.Int(g.maxTokens),
	}
	if g.reasoning != "" {
		params.ReasoningEffort = openai.ReasoningEffort(g.reasoning)
	}

	var raw rawResponse
	resp, err := g.client.Chat.Completions.New(ctx, params, option.WithMiddleware(raw.capture))
	if err != nil {
		cerr := classify(err, raw)
		g.logger.Error("Chat completion failed", "kind", cerr.Kind, "status", cerr.Status, "err", err)
		return "", cerr
	}

	g.logger.Info("Chat completion response", "status", raw.status, "model", resp.Model, "choices", len(resp.Choices))
	g.logger.Debug("Chat completion raw", "data", resp.RawJSON())

	if len(resp.Choices) == 0 || !resp.Choices[0].Message.JSON.Content.Valid() {
		g.logger.Error("No answer in chat completion response")
		return "", &Error{Kind: KindNoAnswer, Status: raw.status}
	}

	return resp.Choices[0].Message.Content, nil
}

// rawResponse keeps the status and, for failures, the body of the last
// HTTP exchange so the provider's own error text survives SDK decoding.
type rawResponse struct {
	status int
	body   []byte
}

func (r *rawResponse) capture(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	res, err := next(req)
	if err != nil || res == nil {
		return res, err
	}

	r.status = res.StatusCode
	if res.StatusCode < http.StatusBadRequest {
		return res, nil
	}

	body, rerr := io.ReadAll(res.Body)
	res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(body))
	if rerr == nil {
		r.body = body
	}
	return res, nil
}

func classify(err error, raw rawResponse) *Error {
	status, body := raw.status, raw.body

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		status = apierr.StatusCode
		if len(body) == 0 {
			body = []byte(apierr.RawJSON())
		}
	}

	switch {
	case status == 0:
		return &Error{Kind: KindTransport, Err: err}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Detail: strings.TrimSpace(string(body))}
	case status < http.StatusBadRequest:
		// 2xx whose body could not be decoded as a completion
		return &Error{Kind: KindNoAnswer, Status: status, Err: err}
	}

	detail := providerMessage(body)
	if detail == "" {
		detail = fmt.Sprintf("provider API error: %d - %s", status, strings.TrimSpace(string(body)))
	}
	return &Error{Kind: KindStatus, Status: status, Detail: detail}
}

// providerMessage digs the human-readable message out of an error body:
// {"error": {"message": "..."}} or {"error": "..."}.
func providerMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	e := gjson.GetBytes(body, "error")
	if e.Type == gjson.String {
		return e.Str
	}
	return e.Get("message").String()
}
