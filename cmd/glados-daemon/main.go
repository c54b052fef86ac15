package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"glados/internal/assistant"
	"glados/internal/config"
	"glados/internal/dispatch"
	"glados/internal/history"
	"glados/internal/ipc"
	"glados/internal/metrics"
	"glados/internal/nlu"
	"glados/internal/prompt"
	"glados/internal/proxy"
	"glados/internal/server"
	"glados/internal/weather"
	"glados/pkg/protocol"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the language model")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	port := cli.Int("port", 0, "HTTP port, overrides PORT")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.DateTime,
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg := config.Load()
	if *proxyAddr != "" {
		cfg.ProxyAddr = *proxyAddr
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("Daemon stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func run(ctx context.Context, cfg config.Config) error {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Warn("Unknown timezone, using local time", "tz", cfg.Timezone, "err", err)
		} else {
			loc = l
		}
	}

	var llmClient *http.Client
	if cfg.ProxyAddr != "" {
		c, err := proxy.NewSocksClient(cfg.ProxyAddr, nlu.DefaultTimeout)
		if err != nil {
			return err
		}
		llmClient = c
		log.Debug("Loaded proxy", "proxy", cfg.ProxyAddr)
	}

	template, err := prompt.LoadTemplate(cfg.PromptPath)
	if err != nil {
		log.Warn("Prompt template unavailable, using the built-in one", "path", cfg.PromptPath, "err", err)
		template = prompt.DefaultTemplate()
	}

	m := metrics.New()
	contextLog := history.New(cfg.ContextLogPath, nil)

	opts := prompt.Options{
		Template: template,
		City:     cfg.WeatherCity,
		APIKey:   cfg.WeatherAPIKey,
		Weather:  weather.NewClient(cfg.WeatherURL, nil, nil),
		Location: loc,
		Metrics:  m,
	}
	if cfg.ContextInPrompt {
		opts.History = contextLog
	}
	if cfg.WeatherAPIKey == "" {
		log.Warn("WEATHER_API_KEY not set, prompts go out without weather")
	}

	gateway := nlu.NewGateway(nlu.Config{
		BaseURL:         cfg.CompletionURL,
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		ReasoningEffort: cfg.ReasoningEffort,
		HTTPClient:      llmClient,
	}, nil)

	sinks, closeSinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	a := assistant.New(
		prompt.NewBuilder(opts),
		gateway,
		dispatch.New(nil, m, sinks...),
		contextLog,
		m,
		nil,
	)

	ctl, err := ipc.StartServer(cfg.SocketPath, func(msg ipc.ControlMessage) ipc.ControlReply {
		switch msg.Cmd {
		case "ping":
			return ipc.ControlReply{Text: "pong"}
		case "ask":
			return ipc.ControlReply{Text: a.Handle(ctx, "ipc", msg.Text)}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.ControlReply{Error: "unknown command: " + msg.Cmd}
		}
	})
	if err != nil {
		log.Warn("Control socket disabled", "path", cfg.SocketPath, "err", err)
	} else {
		defer ctl.Close()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			log.Info("Serving metrics", "addr", cfg.MetricsAddr)
			if err := m.Serve(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics listener failed", "err", err)
			}
		}()
	}

	log.Info("Boot up - successful", "addr", cfg.ListenAddr(), "model", gateway.Model(), "sinks", len(sinks))
	return server.New(a, nil).ListenAndServe(ctx, cfg.ListenAddr())
}

// buildSinks wires every configured dispatch target. The returned func
// releases their connections.
func buildSinks(ctx context.Context, cfg config.Config) ([]dispatch.Sink, func(), error) {
	var sinks []dispatch.Sink
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DispatchURL != "" {
		sinks = append(sinks, dispatch.NewHTTPSink(cfg.DispatchURL, dispatch.DefaultHTTPTimeout))
	} else {
		log.Warn("DISPATCH_URL not set, directives will not reach the home backend")
	}

	if cfg.MQTTBroker != "" {
		mq, err := dispatch.NewMQTTSink(ctx, dispatch.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, nil)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, mq)
		closers = append(closers, func() {
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = mq.Close(shutdown)
		})
	}

	if cfg.BusURL != "" {
		ptcl, err := protocol.NewProtocol(protocol.PtclConfig{
			Shard:   cfg.BusShard,
			Url:     cfg.BusURL,
			Reconn:  2,
			Timeout: 5 * time.Second,
			EmitOut: dispatch.LogAck(nil),
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		go ptcl.Run()
		sinks = append(sinks, dispatch.NewBusSink(ptcl))
		closers = append(closers, func() { _ = ptcl.Close() })
	}

	return sinks, closeAll, nil
}
