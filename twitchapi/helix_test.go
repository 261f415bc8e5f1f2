package twitchapi

import (
	"context"
	"testing"

	"github.com/onnwee/stream-herald/testutil"
)

func newTestHelix(t *testing.T) (*HelixClient, *testutil.MockTwitchServer) {
	t.Helper()
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("tok", 3600)
	hc := &HelixClient{
		AppTokenSource: &TokenSource{ClientID: "cid", ClientSecret: "sec", TokenURL: mock.URL + "/oauth2/token"},
		ClientID:       "cid",
		BaseURL:        mock.URL,
	}
	return hc, mock
}

func TestGetUserID(t *testing.T) {
	hc, mock := newTestHelix(t)
	mock.MockUserResponse("42", "somecreator")

	id, err := hc.GetUserID(context.Background(), "somecreator")
	if err != nil {
		t.Fatalf("GetUserID error: %v", err)
	}
	if id != "42" {
		t.Errorf("user id = %q, want 42", id)
	}
}

func TestGetUserIDEmptyLogin(t *testing.T) {
	hc, _ := newTestHelix(t)
	if _, err := hc.GetUserID(context.Background(), ""); err == nil {
		t.Error("expected error for empty login")
	}
}

func TestSubscribeEventSub(t *testing.T) {
	hc, mock := newTestHelix(t)
	var types []string
	mock.MockSubscribeResponse(&types)

	for _, st := range []string{"stream.online", "stream.offline", "channel.update"} {
		if err := hc.SubscribeEventSub(context.Background(), st, "42", "sess-1"); err != nil {
			t.Fatalf("SubscribeEventSub(%s) error: %v", st, err)
		}
	}
	if len(types) != 3 || types[0] != "stream.online" || types[1] != "stream.offline" || types[2] != "channel.update" {
		t.Errorf("subscribed types = %v", types)
	}
}

func TestSubscribeEventSubValidation(t *testing.T) {
	hc, _ := newTestHelix(t)
	if err := hc.SubscribeEventSub(context.Background(), "stream.online", "", "sess"); err == nil {
		t.Error("expected error for missing broadcaster id")
	}
	if err := hc.SubscribeEventSub(context.Background(), "", "42", "sess"); err == nil {
		t.Error("expected error for missing type")
	}
}
