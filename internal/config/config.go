// Package config holds the process configuration, read once from the
// environment at start and passed explicitly into every component.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultPort           = 8081
	DefaultModel          = "openai/gpt-oss-120b"
	DefaultCompletionURL  = "https://api.groq.com/openai/v1/"
	DefaultWeatherURL     = "https://api.openweathermap.org/data/2.5/weather"
	DefaultWeatherCity    = "Moscow"
	DefaultReasoning      = "medium"
	DefaultSocketPath     = "/tmp/glados.sock"
	DefaultMQTTPrefix     = "glados"
	DefaultBusShard       = "glados"
	appDirName            = "glados"
	promptFileName        = "system_prompt.md"
	contextLogFileName    = "context.log"
	defaultFallbackAppDir = ".glados"
)

type Config struct {
	Port int

	APIKey          string
	Model           string
	CompletionURL   string
	ReasoningEffort string

	WeatherAPIKey string
	WeatherCity   string
	WeatherURL    string
	Timezone      string

	DispatchURL string

	PromptPath      string
	ContextLogPath  string
	ContextInPrompt bool

	SocketPath  string
	MetricsAddr string
	ProxyAddr   string

	MQTTBroker      string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	BusURL   string
	BusShard string
}

// Load reads the configuration from the process environment.
func Load() Config {
	dataDir := defaultDataDir()

	cfg := Config{
		Port: envInt("PORT", DefaultPort),

		APIKey:          os.Getenv("GROQ_API_KEY"),
		Model:           envString("GROQ_MODEL", DefaultModel),
		CompletionURL:   envString("GROQ_BASE_URL", DefaultCompletionURL),
		ReasoningEffort: envString("REASONING_EFFORT", DefaultReasoning),

		WeatherAPIKey: os.Getenv("WEATHER_API_KEY"),
		WeatherCity:   envString("WEATHER_CITY", DefaultWeatherCity),
		WeatherURL:    envString("WEATHER_URL", DefaultWeatherURL),
		Timezone:      os.Getenv("TIMEZONE"),

		DispatchURL: envString("DISPATCH_URL", os.Getenv("TTS_URL")),

		PromptPath:      envString("PROMPT_PATH", filepath.Join(dataDir, promptFileName)),
		ContextLogPath:  envString("CONTEXT_LOG_PATH", filepath.Join(dataDir, contextLogFileName)),
		ContextInPrompt: envBool("CONTEXT_IN_PROMPT", false),

		SocketPath:  envString("SOCKET_PATH", DefaultSocketPath),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		ProxyAddr:   os.Getenv("PROXY_ADDR"),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: envString("MQTT_TOPIC_PREFIX", DefaultMQTTPrefix),

		BusURL:   os.Getenv("BUS_URL"),
		BusShard: envString("BUS_SHARD", DefaultBusShard),
	}

	return cfg
}

func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("GROQ_API_KEY not set"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT out of range"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("GROQ_MODEL is empty"))
	}
	return errors.Join(errs...)
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// defaultDataDir is the per-install directory for the prompt template and
// the context log.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	return defaultFallbackAppDir
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
