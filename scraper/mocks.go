package scraper

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockScrapeServer is an httptest server that plays both the Firecrawl API
// (POST /scrape) and the target website (any other path).
type MockScrapeServer struct {
	server *httptest.Server
	apiKey string

	mu           sync.RWMutex
	scrapeStatus int
	scrapeBody   string
	pages        map[string]string
	scrapeCalls  int
	pageCalls    int
	lastScrape   CapturedScrapeRequest
}

// CapturedScrapeRequest is the last request received on /scrape
type CapturedScrapeRequest struct {
	Authorization string
	URL           string
}

// NewMockScrapeServer starts a server whose /scrape answers 200 with empty content
func NewMockScrapeServer(apiKey string) *MockScrapeServer {
	m := &MockScrapeServer{
		apiKey:       apiKey,
		scrapeStatus: http.StatusOK,
		scrapeBody:   `{"content": ""}`,
		pages:        make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/scrape", m.handleScrape)
	mux.HandleFunc("/", m.handlePage)
	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockScrapeServer) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)

	m.mu.Lock()
	m.scrapeCalls++
	m.lastScrape = CapturedScrapeRequest{Authorization: r.Header.Get("Authorization"), URL: body.URL}
	status, payload := m.scrapeStatus, m.scrapeBody
	m.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+m.apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}

func (m *MockScrapeServer) handlePage(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.pageCalls++
	page, ok := m.pages[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// SetScrapeResponse sets the status and raw JSON body returned by /scrape
func (m *MockScrapeServer) SetScrapeResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrapeStatus = status
	m.scrapeBody = body
}

// SetScrapeContent makes /scrape succeed with the given content
func (m *MockScrapeServer) SetScrapeContent(content string) {
	payload, _ := json.Marshal(map[string]string{"content": content})
	m.SetScrapeResponse(http.StatusOK, string(payload))
}

// SetPage serves markup at path for fallback fetches
func (m *MockScrapeServer) SetPage(path, markup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[path] = markup
}

// ScrapeCalls returns the number of /scrape requests received
func (m *MockScrapeServer) ScrapeCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scrapeCalls
}

// PageCalls returns the number of page requests received
func (m *MockScrapeServer) PageCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageCalls
}

// LastScrape returns the most recent /scrape request
func (m *MockScrapeServer) LastScrape() CapturedScrapeRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastScrape
}

// URL returns the server base URL
func (m *MockScrapeServer) URL() string {
	return m.server.URL
}

// Close stops the server
func (m *MockScrapeServer) Close() {
	m.server.Close()
}
