// Package api serves the IOC Lens HTTP API: Google login, analysis, query
// generation and history routes.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"ioclens/config"
	"ioclens/core"
	_ "ioclens/docs"
	"ioclens/service"
	"ioclens/util/goroutine"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// maxRevokedSessions bounds the logout revocation cache
	maxRevokedSessions = 10000
	// maxPendingLogins bounds the OAuth state cache
	maxPendingLogins = 1000
	// oauthStateTTL is how long a login may take between redirect and callback
	oauthStateTTL = 10 * time.Minute
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Analyzer runs the analysis pipeline for a URL
type Analyzer interface {
	Analyze(ctx context.Context, url string, ownerUserID *int64) (*service.AnalysisResult, error)
}

// QueryGenerator produces SIEM queries for a set of indicators
type QueryGenerator interface {
	Generate(ctx context.Context, indicators []core.Indicator, iocID *int64) (*core.SearchQueryResult, error)
}

// HistoryReader serves a user's own records
type HistoryReader interface {
	List(ctx context.Context, userID int64) ([]core.HistorySummary, error)
	GetRecord(ctx context.Context, id, userID int64) (*core.AnalysisRecord, error)
	GetSearchQueries(ctx context.Context, recordID, userID int64) (*core.SearchQueryRecord, error)
}

// HealthChecker reports backing store health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies groups the collaborators the API serves requests with.
// Identity defaults to Google when auth is enabled; RateLimiter is optional.
type Dependencies struct {
	Analyzer    Analyzer
	Queries     QueryGenerator
	History     HistoryReader
	Users       core.UserStore
	Health      HealthChecker
	Identity    IdentityProvider
	RateLimiter *RedisRateLimiter
}

// API holds the API server
type API struct {
	router   *mux.Router
	server   *http.Server
	serverMu sync.Mutex
	analyzer Analyzer
	queries  QueryGenerator
	history  HistoryReader
	users    core.UserStore
	health   HealthChecker
	identity IdentityProvider
	config   *config.Config
	logger   *zap.SugaredLogger
	validate *validator.Validate

	revokedSessions *expirable.LRU[string, time.Time]
	oauthStates     *expirable.LRU[string, time.Time]

	redisLimiter   *RedisRateLimiter
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewAPI creates a new API server
func NewAPI(deps Dependencies, cfg *config.Config, logger *zap.SugaredLogger) *API {
	if deps.Analyzer == nil || deps.Queries == nil || deps.History == nil {
		panic("analysis, query and history services are required")
	}
	if deps.Users == nil {
		panic("user store is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	identity := deps.Identity
	if identity == nil && cfg.Auth.Enabled {
		identity = NewGoogleIdentityProvider(cfg.Auth.Google)
	}

	sessionTTL := cfg.Auth.JWTExpiry
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	api := &API{
		router:          mux.NewRouter(),
		analyzer:        deps.Analyzer,
		queries:         deps.Queries,
		history:         deps.History,
		users:           deps.Users,
		health:          deps.Health,
		identity:        identity,
		config:          cfg,
		logger:          logger,
		validate:        newValidator(),
		revokedSessions: expirable.NewLRU[string, time.Time](maxRevokedSessions, nil, sessionTTL),
		oauthStates:     expirable.NewLRU[string, time.Time](maxPendingLogins, nil, oauthStateTTL),
		redisLimiter:    deps.RateLimiter,
		rateLimiters:    make(map[string]*rateLimiterEntry),
		stopCh:          make(chan struct{}),
	}
	api.setupRoutes()
	goroutine.Go("rate-limiter-cleanup", logger, nil, api.cleanupRateLimiters)
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.errorRecoveryMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/auth/google", a.handleGoogleLogin).Methods("GET")
	a.router.HandleFunc("/auth/google/callback", a.handleGoogleCallback).Methods("GET")

	a.router.Handle("/api/current-user", a.optionalSessionMiddleware(http.HandlerFunc(a.getCurrentUser))).Methods("GET")

	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.sessionMiddleware)
	protected.HandleFunc("/logout", a.logout).Methods("POST")
	protected.HandleFunc("/analyze-url", a.analyzeURL).Methods("POST")
	protected.HandleFunc("/generate-searches", a.generateSearches).Methods("POST")
	protected.HandleFunc("/history", a.getHistory).Methods("GET")
	protected.HandleFunc("/iocs/{id}", a.getRecord).Methods("GET")
	protected.HandleFunc("/iocs/{id}/searches", a.getRecordSearches).Methods("GET")

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	a.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}

// Handler returns the routed handler, for tests and embedding
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) newServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Analyses wait on a scrape and an LLM call
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	a.serverMu.Lock()
	a.server = srv
	a.serverMu.Unlock()
	return srv
}

// Start starts the API server
func (a *API) Start(addr string) error {
	return a.newServer(addr).ListenAndServe()
}

// StartTLS starts the API server with TLS
func (a *API) StartTLS(addr, certFile, keyFile string) error {
	return a.newServer(addr).ListenAndServeTLS(certFile, keyFile)
}

// Serve serves on an already bound listener
func (a *API) Serve(l net.Listener) error {
	return a.newServer(l.Addr().String()).Serve(l)
}

// ServeTLS serves TLS on an already bound listener
func (a *API) ServeTLS(l net.Listener, certFile, keyFile string) error {
	return a.newServer(l.Addr().String()).ServeTLS(l, certFile, keyFile)
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.redisLimiter != nil {
		if err := a.redisLimiter.Close(); err != nil {
			a.logger.Warnw("Failed to close Redis rate limiter", "error", err)
		}
	}
	a.serverMu.Lock()
	srv := a.server
	a.serverMu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
