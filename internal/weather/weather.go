// Package weather fetches the current weather for the system prompt.
package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultURL     = "https://api.openweathermap.org/data/2.5/weather"
	DefaultTimeout = 8 * time.Second
)

// Client queries an OpenWeatherMap-compatible endpoint. Every failure is
// reported as an absent summary.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With("component", "weather"),
	}
}

// Summary returns a short phrase such as "13°C, пасмурно, влажность 81%,
// ветер 3.5 м/с", or false when nothing usable came back.
func (c *Client) Summary(ctx context.Context, city, apiKey string) (string, bool) {
	body, err := c.fetch(ctx, city, apiKey)
	if err != nil {
		c.logger.Error("weather request failed", "city", city, "err", err)
		return "", false
	}

	summary, err := compose(body)
	if err != nil {
		c.logger.Error("weather parse failed", "city", city, "err", err)
		return "", false
	}
	return summary, true
}

func (c *Client) fetch(ctx context.Context, city, apiKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", apiKey)
	q.Set("units", "metric")
	q.Set("lang", "ru")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.logger.Info("weather response", "city", city, "status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func compose(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("malformed body")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return "", fmt.Errorf("body is not an object")
	}

	var parts []string
	if t := doc.Get("main.temp"); t.Type == gjson.Number {
		parts = append(parts, fmt.Sprintf("%d°C", int(math.RoundToEven(t.Float()))))
	}
	if d := doc.Get("weather.0.description"); d.Type == gjson.String && d.Str != "" {
		parts = append(parts, d.Str)
	}
	if h := doc.Get("main.humidity"); h.Type == gjson.Number {
		parts = append(parts, fmt.Sprintf("влажность %d%%", int(math.RoundToEven(h.Float()))))
	}
	if w := doc.Get("wind.speed"); w.Type == gjson.Number {
		parts = append(parts, "ветер "+formatWind(w.Float())+" м/с")
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no weather fields")
	}
	return strings.Join(parts, ", "), nil
}

// formatWind rounds to the nearest half and drops a trailing ".0".
func formatWind(speed float64) string {
	return strconv.FormatFloat(math.RoundToEven(speed*2)/2, 'f', -1, 64)
}
