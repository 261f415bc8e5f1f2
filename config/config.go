// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup; required
// credentials are checked separately via Validate so tests can load partial configs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram (notification sink)
	TelegramToken  string
	TelegramChatID string

	// Creator being watched
	Creator string

	// Twitch API (EventSub subscribe auth via client credentials)
	TwitchClientID     string
	TwitchClientSecret string

	// Optional token broker used instead of the client-credentials grant
	// when that grant is blocked for the deployment.
	SignServiceURL string

	// Upload poller
	UploadCheckEnabled  bool
	UploadCheckInterval time.Duration

	// Live connector
	ReconnectDelay time.Duration

	// Endpoint overrides (tests, proxies). Defaults point at Twitch.
	EventSubWSURL  string
	HelixURL       string
	TokenURL       string
	ProfileBaseURL string

	// Observability HTTP server
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail when credentials
// are missing; call Validate before doing any network work.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.Creator = os.Getenv("TWITCH_CREATOR")

	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.SignServiceURL = os.Getenv("SIGN_SERVICE_URL")

	cfg.UploadCheckEnabled = true
	if v := os.Getenv("UPLOAD_CHECK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPLOAD_CHECK_ENABLED (bool): %w", err)
		}
		cfg.UploadCheckEnabled = b
	}

	cfg.UploadCheckInterval = 300 * time.Second
	if v := os.Getenv("UPLOAD_CHECK_INTERVAL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid UPLOAD_CHECK_INTERVAL (seconds): %q", v)
		}
		cfg.UploadCheckInterval = time.Duration(secs) * time.Second
	}

	cfg.ReconnectDelay = 30 * time.Second
	if v := os.Getenv("RECONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RECONNECT_DELAY (duration): %q", v)
		}
		cfg.ReconnectDelay = d
	}

	cfg.EventSubWSURL = os.Getenv("EVENTSUB_WS_URL")
	if cfg.EventSubWSURL == "" {
		cfg.EventSubWSURL = "wss://eventsub.wss.twitch.tv/ws"
	}
	cfg.HelixURL = os.Getenv("HELIX_URL")
	if cfg.HelixURL == "" {
		cfg.HelixURL = "https://api.twitch.tv/helix"
	}
	cfg.TokenURL = os.Getenv("TWITCH_TOKEN_URL")
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://id.twitch.tv/oauth2/token"
	}
	cfg.ProfileBaseURL = os.Getenv("PROFILE_BASE_URL")
	if cfg.ProfileBaseURL == "" {
		cfg.ProfileBaseURL = "https://www.twitch.tv"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks the values the daemon cannot run without. It is called at boot,
// before any network activity; a non-nil error is fatal.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("missing required env TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("missing required env TELEGRAM_CHAT_ID")
	}
	if c.Creator == "" {
		return fmt.Errorf("missing required env TWITCH_CREATOR")
	}
	return nil
}

// ProfileURL returns the public videos page for the watched creator.
func (c *Config) ProfileURL() string {
	return c.ProfileBaseURL + "/" + c.Creator + "/videos"
}
