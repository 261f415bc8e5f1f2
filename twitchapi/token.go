// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for user id resolution and EventSub subscription management, using an app
// access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource fetches and caches the bearer token used to authorize EventSub
// subscription calls. By default it runs the client-credentials grant against
// the platform's token endpoint; when SignServiceURL is set, the token is
// fetched from that auxiliary signing service instead (some deployments block
// the client-credentials grant).
type TokenSource struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	SignServiceURL string
	HTTPClient     *http.Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Get returns a valid (fresh or cached) access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.token != "" && time.Until(ts.expiresAt) > 60*time.Second { // 1 min buffer
		tok := ts.token
		ts.mu.RUnlock()
		return tok, nil
	}
	ts.mu.RUnlock()
	return ts.refresh(ctx)
}

func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token != "" && time.Until(ts.expiresAt) > 60*time.Second {
		return ts.token, nil
	}
	var (
		tok string
		ttl time.Duration
		err error
	)
	if ts.SignServiceURL != "" {
		tok, ttl, err = ts.fromSignService(ctx)
	} else {
		tok, ttl, err = ts.fromClientCredentials(ctx)
	}
	if err != nil {
		return "", err
	}
	ts.token = tok
	ts.expiresAt = time.Now().Add(ttl)
	return tok, nil
}

func (ts *TokenSource) fromClientCredentials(ctx context.Context) (string, time.Duration, error) {
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", 0, errors.New("missing client id/secret for app token")
	}
	cc := &clientcredentials.Config{
		ClientID:     ts.ClientID,
		ClientSecret: ts.ClientSecret,
		TokenURL:     ts.TokenURL,
	}
	if ts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, ts.HTTPClient)
	}
	t, err := cc.Token(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("client credentials token: %w", err)
	}
	return t.AccessToken, time.Until(t.Expiry), nil
}

func (ts *TokenSource) fromSignService(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.SignServiceURL, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := ts.http().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("sign service request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, err
	}
	if body.Token == "" {
		return "", 0, errors.New("sign service returned empty token")
	}
	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return body.Token, ttl, nil
}

func (ts *TokenSource) http() *http.Client {
	if ts.HTTPClient != nil {
		return ts.HTTPClient
	}
	return http.DefaultClient
}
