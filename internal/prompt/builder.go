// Package prompt assembles the system prompt sent with every utterance.
package prompt

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"glados/internal/metrics"
)

// WeatherSource returns a short weather phrase, or false when there is none.
type WeatherSource interface {
	Summary(ctx context.Context, city, apiKey string) (string, bool)
}

// HistorySource returns the recent conversation, or "" when there is none.
type HistorySource interface {
	Recent() string
}

type Options struct {
	Template string
	City     string
	APIKey   string
	Weather  WeatherSource
	History  HistorySource
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Builder struct {
	template string
	city     string
	apiKey   string
	weather  WeatherSource
	history  HistorySource
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewBuilder(opts Options) *Builder {
	b := &Builder{
		template: opts.Template,
		city:     opts.City,
		apiKey:   opts.APIKey,
		weather:  opts.Weather,
		history:  opts.History,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "prompt")
	return b
}

// Build renders the system prompt. It always succeeds; a missing weather
// summary only drops the weather line.
func (b *Builder) Build(ctx context.Context) string {
	now := b.now().In(b.loc)

	var sb strings.Builder
	sb.WriteString("Сейчас (дата и время): ")
	sb.WriteString(now.Format("2006-01-02, 15:04"))
	sb.WriteString(", ")
	sb.WriteString(now.Weekday().String())
	sb.WriteString(".\n")

	if summary, ok := b.weatherSummary(ctx); ok {
		sb.WriteString("Погода в ")
		sb.WriteString(b.city)
		sb.WriteString(": ")
		sb.WriteString(summary)
		sb.WriteString(".\n")
	}

	if b.history != nil {
		if recent := strings.TrimSpace(b.history.Recent()); recent != "" {
			sb.WriteString("Недавний разговор:\n")
			sb.WriteString(recent)
			sb.WriteString("\n")
		}
	}

	prefix := sb.String()
	if !strings.Contains(b.template, Placeholder) {
		return prefix + b.template
	}
	return strings.ReplaceAll(b.template, Placeholder, prefix)
}

func (b *Builder) weatherSummary(ctx context.Context) (string, bool) {
	if b.weather == nil {
		return "", false
	}
	if b.apiKey == "" {
		b.logger.Debug("weather api key not set, skipping weather")
		return "", false
	}
	summary, ok := b.weather.Summary(ctx, b.city, b.apiKey)
	if !ok {
		b.metrics.WeatherMiss()
	}
	return summary, ok
}
