// Command stream-herald watches a single creator and forwards alerts to a
// Telegram chat. It:
//   - Loads configuration and initializes structured logging.
//   - Logs the Telegram bot in (fatal on failure).
//   - Starts the live-connection supervisor and the upload poller.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/stream-herald/config"
	"github.com/onnwee/stream-herald/eventsub"
	"github.com/onnwee/stream-herald/live"
	"github.com/onnwee/stream-herald/notify"
	"github.com/onnwee/stream-herald/server"
	"github.com/onnwee/stream-herald/status"
	"github.com/onnwee/stream-herald/telemetry"
	"github.com/onnwee/stream-herald/twitchapi"
	"github.com/onnwee/stream-herald/uploads"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config: any missing required value is fatal, before any network call.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("stream-herald", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Telegram login. Failure here is fatal: without a sink there is nothing
	// for the watchers to do.
	sink, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, slog.Default())
	if err != nil {
		slog.Error("telegram login failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := status.NewTracker()

	tokens := &twitchapi.TokenSource{
		ClientID:       cfg.TwitchClientID,
		ClientSecret:   cfg.TwitchClientSecret,
		TokenURL:       cfg.TokenURL,
		SignServiceURL: cfg.SignServiceURL,
	}
	helix := &twitchapi.HelixClient{
		AppTokenSource: tokens,
		ClientID:       cfg.TwitchClientID,
		BaseURL:        cfg.HelixURL,
	}

	supervisor := &live.Supervisor{
		Connector: live.NewConnector(&eventsub.Client{
			WSURL:   cfg.EventSubWSURL,
			Creator: cfg.Creator,
			Helix:   helix,
		}),
		Sink:       sink,
		Status:     st,
		Creator:    cfg.Creator,
		BaseURL:    cfg.ProfileBaseURL,
		RetryDelay: cfg.ReconnectDelay,
	}
	go supervisor.Run(ctx)

	if cfg.UploadCheckEnabled {
		poller := &uploads.Poller{
			ProfileURL: cfg.ProfileURL(),
			Creator:    cfg.Creator,
			Sink:       sink,
			Status:     st,
			Interval:   cfg.UploadCheckInterval,
		}
		go poller.Run(ctx)
	} else {
		slog.Info("upload check disabled")
	}

	server.Start(ctx, cfg.HTTPAddr, server.NewMux(st))
}
