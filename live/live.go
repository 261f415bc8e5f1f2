// Package live supervises the push connection to the streaming platform and
// turns its signals into chat alerts. It owns the connection handle and the
// connected flag: one goroutine runs the whole connect/consume/retry cycle, so
// at most one session exists and at most one reconnect is pending at a time.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/stream-herald/eventsub"
	"github.com/onnwee/stream-herald/notify"
	"github.com/onnwee/stream-herald/status"
	"github.com/onnwee/stream-herald/telemetry"
)

// Session is the connection handle the supervisor owns.
type Session interface {
	Events() <-chan eventsub.Event
	Close() error
}

// Connector dials new sessions.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// NewConnector wraps the eventsub client in the Connector interface.
func NewConnector(c *eventsub.Client) Connector {
	return clientConnector{c}
}

type clientConnector struct {
	c *eventsub.Client
}

func (cc clientConnector) Connect(ctx context.Context) (Session, error) {
	s, err := cc.c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Supervisor struct {
	Connector Connector
	Sink      notify.Notifier
	Status    *status.Tracker
	Creator   string
	// BaseURL is the platform base used to build the creator link in alerts.
	BaseURL string
	// RetryDelay is the fixed pause between connect attempts. No backoff,
	// no ceiling: the observed behavior of the service being replaced.
	RetryDelay time.Duration
	Log        *slog.Logger

	session Session
}

func (s *Supervisor) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Run drives the connection lifecycle until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	delay := s.RetryDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	s.log().Info("live supervisor started", slog.String("creator", s.Creator), slog.Duration("retry_delay", delay))
	for {
		if ctx.Err() != nil {
			return
		}
		// Tear down any previous handle before dialing again. Close errors
		// are swallowed; the old socket may already be dead.
		if s.session != nil {
			_ = s.session.Close()
			s.session = nil
		}
		telemetry.ConnectAttempts.Inc()
		sess, err := s.Connector.Connect(ctx)
		if err != nil {
			s.setConnected(false)
			telemetry.ConnectFailures.Inc()
			if ctx.Err() != nil {
				return
			}
			s.log().Warn("live connect failed; will retry",
				slog.Any("err", err),
				slog.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		s.session = sess
		s.setConnected(true)
		s.consume(ctx, sess)
		// Session gone: remote closed the socket or ctx cancelled. Re-dial
		// after the same fixed pause as the failure path.
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		s.log().Warn("live session ended; will reconnect", slog.Duration("retry_in", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Supervisor) consume(ctx context.Context, sess Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.Events():
			if !ok {
				return
			}
			s.dispatch(ctx, ev)
		}
	}
}

// dispatch routes one semantic signal. Stream-ended deliberately does not
// reconnect: the session itself is still open and keeps emitting events.
func (s *Supervisor) dispatch(ctx context.Context, ev eventsub.Event) {
	switch ev.Kind {
	case eventsub.StreamBegan:
		s.Status.SetStreamTitle(ev.Title)
		at := ev.StartedAt
		if at.IsZero() {
			at = time.Now()
		}
		p := notify.Payload{
			Kind:  notify.KindLive,
			Title: fmt.Sprintf("%s is live!", s.Creator),
			URL:   s.creatorURL(),
			Body:  ev.Title,
			At:    at,
		}
		if err := s.Sink.Notify(ctx, p); err != nil {
			s.log().Error("live alert delivery failed", slog.Any("err", err))
			return
		}
		telemetry.LiveNotifications.Inc()
		s.Status.CountLiveNotification()
	case eventsub.StreamEnded:
		s.setConnected(false)
		s.log().Info("stream ended", slog.String("creator", s.Creator))
	case eventsub.StreamUpdated:
		s.Status.SetStreamTitle(ev.Title)
		s.log().Debug("stream updated",
			slog.String("title", ev.Title),
			slog.String("category", ev.Category))
	case eventsub.TransportError:
		telemetry.TransportErrors.Inc()
		s.log().Warn("transport error on live session", slog.Any("err", ev.Err))
	}
}

func (s *Supervisor) setConnected(v bool) {
	s.Status.SetConnected(v)
	telemetry.UpdateConnectedGauge(v)
}

func (s *Supervisor) creatorURL() string {
	base := s.BaseURL
	if base == "" {
		base = "https://www.twitch.tv"
	}
	return base + "/" + s.Creator
}
