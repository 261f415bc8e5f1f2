// Package eventsub implements the live push connection: a Twitch EventSub
// websocket session subscribed to stream.online, stream.offline, and
// channel.update for a single creator. Incoming frames are translated into an
// enumerated Event consumed by the live supervisor, so the supervisor's state
// machine does not depend on any event-emitter mechanics.
package eventsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/onnwee/stream-herald/twitchapi"
)

// Kind enumerates the semantic signals a live session can produce.
type Kind int

const (
	StreamBegan Kind = iota
	StreamEnded
	StreamUpdated
	TransportError
)

func (k Kind) String() string {
	switch k {
	case StreamBegan:
		return "stream_began"
	case StreamEnded:
		return "stream_ended"
	case StreamUpdated:
		return "stream_updated"
	case TransportError:
		return "transport_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Event struct {
	Kind      Kind
	Title     string
	Category  string
	StartedAt time.Time
	Err       error
}

var subscriptionTypes = []string{"stream.online", "stream.offline", "channel.update"}

// Client dials new live sessions. One Connect call produces at most one Session.
type Client struct {
	WSURL      string
	Creator    string
	Helix      *twitchapi.HelixClient
	HTTPClient *http.Client
	Log        *slog.Logger

	// HandshakeTimeout bounds the wait for the welcome frame. Default 15s.
	HandshakeTimeout time.Duration
}

func (c *Client) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Connect dials the gateway, waits for the session welcome, and creates the
// three EventSub subscriptions. On any failure the socket is closed and an
// error returned; the caller owns retry policy.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	if c.Creator == "" {
		return nil, fmt.Errorf("creator handle required")
	}
	userID, err := c.Helix.GetUserID(ctx, c.Creator)
	if err != nil {
		return nil, fmt.Errorf("resolve creator %q: %w", c.Creator, err)
	}

	conn, _, err := websocket.Dial(ctx, c.WSURL, &websocket.DialOptions{ //nolint:bodyclose // websocket.Dial closes the response body internally
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	timeout := c.HandshakeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	sessionID, err := readWelcome(hctx, conn)
	cancel()
	if err != nil {
		conn.Close(websocket.StatusInternalError, "welcome failed")
		return nil, err
	}

	for _, st := range subscriptionTypes {
		if err := c.Helix.SubscribeEventSub(ctx, st, userID, sessionID); err != nil {
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return nil, err
		}
	}
	c.log().Info("live session established",
		slog.String("creator", c.Creator),
		slog.String("session_id", sessionID))

	s := &Session{
		id:     sessionID,
		conn:   conn,
		events: make(chan Event, 8),
		log:    c.log(),
	}
	go s.readLoop(ctx)
	return s, nil
}

func readWelcome(ctx context.Context, conn *websocket.Conn) (string, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read welcome: %w", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("decode welcome: %w", err)
	}
	if f.Metadata.MessageType != "session_welcome" || f.Payload.Session.ID == "" {
		return "", fmt.Errorf("unexpected first frame %q", f.Metadata.MessageType)
	}
	return f.Payload.Session.ID, nil
}

// Session is one live push connection. Events() closes when the connection is
// gone for good (read error or remote close); the supervisor then re-dials.
type Session struct {
	id     string
	conn   *websocket.Conn
	events chan Event
	log    *slog.Logger

	closeOnce sync.Once
}

func (s *Session) ID() string { return s.id }

func (s *Session) Events() <-chan Event { return s.events }

// Close tears the socket down. Safe to call more than once; errors from an
// already-dead socket are not interesting to callers.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(websocket.StatusNormalClosure, "closing"); err != nil {
			s.log.Debug("session close", slog.Any("err", err))
		}
	})
	return nil
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.events)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("live session read failed", slog.Any("err", err), slog.String("session_id", s.id))
			}
			return
		}
		ev, ok := parseFrame(data)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// frame is the EventSub websocket envelope (the fields we care about).
type frame struct {
	Metadata struct {
		MessageType      string `json:"message_type"`
		SubscriptionType string `json:"subscription_type"`
	} `json:"metadata"`
	Payload struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Subscription struct {
			Type string `json:"type"`
		} `json:"subscription"`
		Event struct {
			Title        string `json:"title"`
			CategoryName string `json:"category_name"`
			StartedAt    string `json:"started_at"`
		} `json:"event"`
	} `json:"payload"`
}

func parseFrame(data []byte) (Event, bool) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{Kind: TransportError, Err: fmt.Errorf("decode frame: %w", err)}, true
	}
	switch f.Metadata.MessageType {
	case "session_keepalive":
		return Event{}, false
	case "revocation":
		return Event{Kind: TransportError, Err: fmt.Errorf("subscription %s revoked", f.Payload.Subscription.Type)}, true
	case "notification":
		subType := f.Metadata.SubscriptionType
		if subType == "" {
			subType = f.Payload.Subscription.Type
		}
		switch subType {
		case "stream.online":
			started, _ := time.Parse(time.RFC3339, f.Payload.Event.StartedAt)
			return Event{Kind: StreamBegan, Title: f.Payload.Event.Title, StartedAt: started}, true
		case "stream.offline":
			return Event{Kind: StreamEnded}, true
		case "channel.update":
			return Event{Kind: StreamUpdated, Title: f.Payload.Event.Title, Category: f.Payload.Event.CategoryName}, true
		default:
			return Event{Kind: TransportError, Err: fmt.Errorf("unknown subscription type %q", subType)}, true
		}
	default:
		// session_reconnect and anything newer: not actionable here. The
		// remote will close the socket and the supervisor re-dials.
		if !strings.HasPrefix(f.Metadata.MessageType, "session_") {
			return Event{Kind: TransportError, Err: fmt.Errorf("unknown message type %q", f.Metadata.MessageType)}, true
		}
		return Event{}, false
	}
}
