package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ioclens/api"
	"ioclens/config"
	"ioclens/util/goroutine"

	"go.uber.org/zap"
)

// poolMetricsInterval is how often connection pool gauges are refreshed
const poolMetricsInterval = 15 * time.Second

// App represents the IOC Lens server with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Services    *Services
	RateLimiter *api.RedisRateLimiter
	APIServer   *api.API

	listener net.Listener

	// Lifecycle
	serviceWg     *sync.WaitGroup
	cancelMetrics context.CancelFunc
	shutdownOnce  sync.Once
}

// NewApp creates a new application instance and initializes all components.
// configPath may be empty to search the default config locations.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	sugar.Info("IOC Lens starting...")

	cfg, err := InitConfig(configPath, sugar)
	if err != nil {
		return nil, err
	}

	return NewAppWithConfig(ctx, cfg, logger)
}

// NewAppWithConfig builds the application from an already loaded configuration
func NewAppWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sugar := logger.Sugar()
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Sugar:     sugar,
		serviceWg: &sync.WaitGroup{},
	}

	sugar.Info("Running pre-flight checks...")
	if err := EnsureDataDirectories(cfg, sugar); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	services, err := InitServices(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Services = services

	limiter, err := InitRateLimiter(ctx, cfg, sugar)
	if err != nil {
		_ = services.Close(ctx)
		return nil, err
	}
	app.RateLimiter = limiter

	app.APIServer = api.NewAPI(api.Dependencies{
		Analyzer:    services.Analysis,
		Queries:     services.Queries,
		History:     services.History,
		Users:       services.Store,
		Health:      services.Store,
		RateLimiter: limiter,
	}, cfg, sugar)

	return app, nil
}

// Start starts the pool metrics collector and the API server.
func (a *App) Start(ctx context.Context) error {
	metricsCtx, cancel := context.WithCancel(ctx)
	a.cancelMetrics = cancel
	a.Services.Store.StartMetricsCollection(metricsCtx, poolMetricsInterval)

	return a.startAPIServer()
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components. It is safe to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.Sugar.Info("Shutting down...")

	// Phase 1 - stop accepting requests and let in-flight analyses finish
	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}
	if a.listener != nil {
		// a server that never got to Serve still holds the socket
		_ = a.listener.Close()
	}

	// Phase 2 - wait for service goroutines
	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.Sugar.Info("All service goroutines stopped successfully")
	case <-time.After(35 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	// Phase 3 - stop collectors, flush spans and close the database
	a.Sugar.Info("Phase 3: Closing storage...")
	if a.cancelMetrics != nil {
		a.cancelMetrics()
	}
	if a.Services != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Services.Close(ctx); err != nil {
			a.Sugar.Errorw("Failed to close services", "error", err)
		}
		cancel()
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}

// Addr returns the bound API address, or "" before Start
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// startAPIServer binds the listen address and serves in the background.
// Binding first surfaces port conflicts as a Start error.
func (a *App) startAPIServer() error {
	addr := fmt.Sprintf(":%d", a.Config.API.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.listener = listener

	goroutine.Go("api-server", a.Sugar, a.serviceWg, func() {
		a.Sugar.Infof("API server started on %s", listener.Addr())

		var err error
		if a.Config.API.TLS {
			err = a.APIServer.ServeTLS(listener, a.Config.API.CertFile, a.Config.API.KeyFile)
		} else {
			err = a.APIServer.Serve(listener)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			a.Sugar.Errorf("API server error: %v", err)
		}
	})

	return nil
}
