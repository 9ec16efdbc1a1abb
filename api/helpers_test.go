package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ioclens/config"
	"ioclens/core"
	"ioclens/service"
	"ioclens/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "4b8e1f0a9c2d7e6b5a3f1c0d9e8b7a6f5c4d3e2f"

const validIOCPayload = `{
	"indicators": [
		{"value": "203.0.113.7", "category": "ip", "riskLevel": "high", "description": "C2 server"},
		{"value": "evil.example", "category": "domain", "riskLevel": "medium", "description": "Phishing domain"}
	],
	"categories": [
		{"name": "ip", "count": 1, "indicators": [{"value": "203.0.113.7", "category": "ip", "riskLevel": "high", "description": "C2 server"}]},
		{"name": "domain", "count": 1, "indicators": [{"value": "evil.example", "category": "domain", "riskLevel": "medium", "description": "Phishing domain"}]}
	]
}`

const validQueryPayload = `{
	"qradar": [{"name": "C2 traffic", "query": "SELECT * FROM events WHERE destinationip = '203.0.113.7'"}],
	"sentinel": [{"name": "C2 traffic", "query": "CommonSecurityLog | where DestinationIP == \"203.0.113.7\""}]
}`

// stubRetriever returns fixed page text and counts calls
type stubRetriever struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, s.err
}

func (s *stubRetriever) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubReasoner returns fixed payloads and counts calls
type stubReasoner struct {
	mu           sync.Mutex
	iocPayload   string
	queryPayload string
	err          error
	extractCalls int
	queryCalls   int
}

func (s *stubReasoner) ExtractIndicators(ctx context.Context, content string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.iocPayload), nil
}

func (s *stubReasoner) GenerateQueries(ctx context.Context, indicators []core.Indicator) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.queryPayload), nil
}

func (s *stubReasoner) QueryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCalls
}

// fakeIdentityProvider vouches for a fixed identity
type fakeIdentityProvider struct {
	identity *Identity
	err      error
	codes    []string
}

func (f *fakeIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/consent?state=" + state
}

func (f *fakeIdentityProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func newTestConfig() *config.Config {
	return &config.Config{
		StartupMode: config.StartupModeStrict,
		API: config.APIConfig{
			Port:          5000,
			JSONBodyLimit: 1 << 20,
			RateLimit:     config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		},
		Auth: config.AuthConfig{
			Enabled:     true,
			JWTSecret:   testSecret,
			JWTExpiry:   time.Hour,
			CookieName:  "auth_token",
			LocalUserID: 1,
			Google: config.GoogleConfig{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				RedirectURL:  "http://localhost:5000/auth/google/callback",
			},
		},
	}
}

// testEnv is an API over a real SQLite store with stubbed upstreams
type testEnv struct {
	api       *API
	store     *storage.SQLStore
	retriever *stubRetriever
	reasoner  *stubReasoner
	identity  *fakeIdentityProvider
	cfg       *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	for _, m := range mutate {
		m(cfg)
	}

	logger := zap.NewNop().Sugar()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	store := storage.NewSQLStore(db, logger)
	t.Cleanup(func() { _ = store.Close() })

	retriever := &stubRetriever{text: "Report mentions 203.0.113.7 and evil.example"}
	reasoner := &stubReasoner{iocPayload: validIOCPayload, queryPayload: validQueryPayload}
	identity := &fakeIdentityProvider{identity: &Identity{Subject: "google-1", Email: "analyst@example.com", Name: "Analyst"}}

	a := NewAPI(Dependencies{
		Analyzer: service.NewAnalysisService(store, retriever, reasoner, logger),
		Queries:  service.NewQueryService(store, reasoner, logger),
		History:  service.NewHistoryService(store, logger),
		Users:    store,
		Health:   store,
		Identity: identity,
	}, cfg, logger)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	return &testEnv{api: a, store: store, retriever: retriever, reasoner: reasoner, identity: identity, cfg: cfg}
}

// login creates a user and returns a session cookie for it
func (e *testEnv) login(t *testing.T, email string) (*core.User, *http.Cookie) {
	t.Helper()

	user, err := e.store.CreateUser(context.Background(), &core.User{Email: email})
	require.NoError(t, err)

	token, _, err := generateSessionToken(user, e.cfg)
	require.NoError(t, err)
	return user, &http.Cookie{Name: e.cfg.Auth.CookieName, Value: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	return resp
}
