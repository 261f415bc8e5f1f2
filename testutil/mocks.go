package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix / OAuth responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserResponse adds a handler for /users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockSubscribeResponse adds a handler for /eventsub/subscriptions that records
// each requested subscription type into the provided slice.
func (m *MockTwitchServer) MockSubscribeResponse(types *[]string) {
	m.Handlers["/eventsub/subscriptions"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type string `json:"type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test mock request
		if types != nil {
			*types = append(*types, body.Type)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{{"id": "sub-" + body.Type}}}) //nolint:errcheck // test mock response
	}
}

// MockOAuthTokenResponse adds a handler for OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockSignServiceResponse adds a handler for the auxiliary signing service endpoint
func (m *MockTwitchServer) MockSignServiceResponse(token string, expiresIn int) {
	m.Handlers["/sign"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"token":      token,
			"expires_in": expiresIn,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// NewMockProfileServer serves a canned HTML body for the creator's videos page.
// The body can be swapped between requests via the returned setter.
func NewMockProfileServer(t *testing.T, initial string) (*httptest.Server, func(body string, status int)) {
	t.Helper()
	var mu sync.Mutex
	body := initial
	statusCode := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		b, s := body, statusCode
		mu.Unlock()
		w.WriteHeader(s)
		_, _ = w.Write([]byte(b)) //nolint:errcheck // test mock response
	}))
	t.Cleanup(srv.Close)
	return srv, func(b string, s int) {
		mu.Lock()
		body, statusCode = b, s
		mu.Unlock()
	}
}
