package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/onnwee/stream-herald/telemetry"
)

// Telegram sends alerts to a single configured chat. The chat is resolved from
// the configured identifier on every send, so a temporarily unresolvable chat
// only costs the current alert.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
	log    *slog.Logger
}

// NewTelegram logs the bot in (telebot performs getMe inside NewBot). A login
// failure is returned to the caller, which treats it as fatal at boot.
func NewTelegram(token, chatID string, log *slog.Logger) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be the numeric chat id: %w", err)
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("telegram login ok", slog.String("bot", bot.Me.Username))
	return &Telegram{bot: bot, chatID: id, log: log}, nil
}

// Notify delivers one alert. An unresolvable chat is a logged skip; a send
// failure is logged and counted. Neither is returned as an error, because no
// caller has anything useful to do with one.
func (t *Telegram) Notify(ctx context.Context, p Payload) error {
	_, span := telemetry.StartSpan(ctx, "notify", "telegram.send")
	defer span.End()

	chat, err := t.bot.ChatByID(t.chatID)
	if err != nil {
		t.log.Warn("telegram chat unresolvable; skipping alert",
			slog.Int64("chat", t.chatID),
			slog.String("kind", p.Kind.String()),
			slog.Any("err", err))
		telemetry.NotifyFailures.Inc()
		telemetry.RecordError(span, err)
		return nil
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: false,
	}
	// Upload alerts are routine; only a stream going live should ping the room.
	if p.Kind == KindUpload {
		opts.DisableNotification = true
	}

	telemetry.TimeFunc(telemetry.NotifyDuration, func() {
		_, err = t.bot.Send(chat, Format(p), opts)
	})
	if err != nil {
		t.log.Error("telegram send failed",
			slog.String("kind", p.Kind.String()),
			slog.Any("err", err))
		telemetry.NotifyFailures.Inc()
		telemetry.RecordError(span, err)
		return nil
	}
	t.log.Info("alert delivered", slog.String("kind", p.Kind.String()), slog.String("title", p.Title))
	return nil
}
