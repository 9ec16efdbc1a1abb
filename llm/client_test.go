package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ioclens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturedRequest is the subset of a chat completion request the tests inspect
type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type mockOpenAI struct {
	server *httptest.Server

	mu       sync.Mutex
	status   int
	content  string
	requests []capturedRequest
	authz    string
}

func newMockOpenAI(t *testing.T) *mockOpenAI {
	t.Helper()
	m := &mockOpenAI{status: http.StatusOK}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req capturedRequest
	_ = json.Unmarshal(body, &req)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.authz = r.Header.Get("Authorization")
	status, content := m.status, m.content
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream exploded", "type": "server_error"}}`))
		return
	}

	resp := map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1715594400,
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *mockOpenAI) respond(status int, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.content = content
}

func (m *mockOpenAI) captured() ([]capturedRequest, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capturedRequest(nil), m.requests...), m.authz
}

func (m *mockOpenAI) client() *Client {
	return NewClient(Config{BaseURL: m.server.URL + "/v1", APIKey: "sk-test"}, zap.NewNop().Sugar())
}

func TestClient_ExtractIndicators(t *testing.T) {
	mock := newMockOpenAI(t)
	mock.respond(http.StatusOK, `{"indicators": [], "categories": []}`)

	raw, err := mock.client().ExtractIndicators(context.Background(), "page mentions 203.0.113.7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"indicators": [], "categories": []}`, string(raw))

	requests, authz := mock.captured()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, ExtractionInstruction, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "page mentions 203.0.113.7")
	assert.Equal(t, "Bearer sk-test", authz)
}

func TestClient_GenerateQueries(t *testing.T) {
	mock := newMockOpenAI(t)
	mock.respond(http.StatusOK, `{"qradar": [], "sentinel": []}`)

	indicators := []core.Indicator{{Value: "evil.test", Category: "domain", RiskLevel: core.RiskLevelHigh, Description: "c2"}}
	raw, err := mock.client().GenerateQueries(context.Background(), indicators)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qradar": [], "sentinel": []}`, string(raw))

	requests, _ := mock.captured()
	require.Len(t, requests, 1)
	assert.Equal(t, QuerySynthesisInstruction, requests[0].Messages[0].Content)
	assert.Contains(t, requests[0].Messages[1].Content, `"value":"evil.test"`)
}

func TestClient_UpstreamFailure(t *testing.T) {
	mock := newMockOpenAI(t)
	mock.respond(http.StatusInternalServerError, "")

	_, err := mock.client().ExtractIndicators(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_EmptyContent(t *testing.T) {
	mock := newMockOpenAI(t)
	mock.respond(http.StatusOK, "   ")

	_, err := mock.client().ExtractIndicators(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1/v1", APIKey: "sk-test"}, zap.NewNop().Sugar())

	_, err := client.GenerateQueries(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
}
