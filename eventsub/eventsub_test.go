package eventsub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/onnwee/stream-herald/testutil"
	"github.com/onnwee/stream-herald/twitchapi"
)

const welcomeFrame = `{"metadata":{"message_type":"session_welcome"},"payload":{"session":{"id":"sess-1","status":"connected"}}}`

// newGatewayServer runs a websocket endpoint that sends the welcome frame and
// then every frame received on the returned channel, closing normally when the
// channel is drained via the returned stop func (idempotent, also run on
// cleanup so handlers never outlive the test).
func newGatewayServer(t *testing.T) (*httptest.Server, chan string, func()) {
	t.Helper()
	frames := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		if err := c.Write(ctx, websocket.MessageText, []byte(welcomeFrame)); err != nil {
			return
		}
		for f := range frames {
			if err := c.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		c.Close(websocket.StatusNormalClosure, "done")
	}))
	stop := sync.OnceFunc(func() { close(frames) })
	t.Cleanup(srv.Close)
	t.Cleanup(stop)
	return srv, frames, stop
}

func newTestClient(t *testing.T, wsURL string) (*Client, *[]string) {
	t.Helper()
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("tok", 3600)
	mock.MockUserResponse("42", "somecreator")
	var subs []string
	mock.MockSubscribeResponse(&subs)
	return &Client{
		WSURL:   wsURL,
		Creator: "somecreator",
		Helix: &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: "cid", ClientSecret: "sec", TokenURL: mock.URL + "/oauth2/token"},
			ClientID:       "cid",
			BaseURL:        mock.URL,
		},
	}, &subs
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recvEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if !ok {
			t.Fatal("events channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestConnectSubscribesAndTranslatesEvents(t *testing.T) {
	srv, frames, _ := newGatewayServer(t)
	client, subs := newTestClient(t, wsURL(srv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess, err := client.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer sess.Close()

	if sess.ID() != "sess-1" {
		t.Errorf("session id = %q, want sess-1", sess.ID())
	}
	if len(*subs) != 3 {
		t.Fatalf("subscriptions created = %v, want 3", *subs)
	}

	frames <- `{"metadata":{"message_type":"session_keepalive"},"payload":{}}`
	frames <- `{"metadata":{"message_type":"notification","subscription_type":"stream.online"},"payload":{"event":{"started_at":"2026-08-29T10:00:00Z"}}}`
	ev := recvEvent(t, sess)
	if ev.Kind != StreamBegan {
		t.Fatalf("kind = %v, want StreamBegan (keepalive must be skipped)", ev.Kind)
	}
	if ev.StartedAt.IsZero() {
		t.Error("expected started_at to be parsed")
	}

	frames <- `{"metadata":{"message_type":"notification","subscription_type":"channel.update"},"payload":{"event":{"title":"new title","category_name":"Art"}}}`
	ev = recvEvent(t, sess)
	if ev.Kind != StreamUpdated || ev.Title != "new title" || ev.Category != "Art" {
		t.Errorf("update event = %+v", ev)
	}

	frames <- `{"metadata":{"message_type":"notification","subscription_type":"stream.offline"},"payload":{}}`
	if ev = recvEvent(t, sess); ev.Kind != StreamEnded {
		t.Errorf("kind = %v, want StreamEnded", ev.Kind)
	}

	frames <- `{"metadata":{"message_type":"revocation"},"payload":{"subscription":{"type":"stream.online"}}}`
	ev = recvEvent(t, sess)
	if ev.Kind != TransportError || ev.Err == nil {
		t.Errorf("revocation should surface as TransportError with err, got %+v", ev)
	}
}

func TestEventsChannelClosesWhenServerCloses(t *testing.T) {
	srv, _, stop := newGatewayServer(t)
	client, _ := newTestClient(t, wsURL(srv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess, err := client.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer sess.Close()

	stop()
	select {
	case _, ok := <-sess.Events():
		if ok {
			t.Error("expected closed channel, got event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after remote close")
	}
}

func TestConnectFailsOnBadWelcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = c.Write(r.Context(), websocket.MessageText, []byte(`{"metadata":{"message_type":"session_keepalive"},"payload":{}}`)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	client, _ := newTestClient(t, wsURL(srv))
	client.HandshakeTimeout = time.Second

	if _, err := client.Connect(context.Background()); err == nil {
		t.Error("expected error when first frame is not session_welcome")
	}
}

func TestConnectRequiresCreator(t *testing.T) {
	client := &Client{}
	if _, err := client.Connect(context.Background()); err == nil {
		t.Error("expected error for empty creator")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	srv, _, _ := newGatewayServer(t)
	client, _ := newTestClient(t, wsURL(srv))

	sess, err := client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
