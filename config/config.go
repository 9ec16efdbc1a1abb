package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. IOCLENS_API_PORT
const EnvPrefix = "IOCLENS"

// StartupMode defines how IOC Lens handles initialization failures
type StartupMode string

const (
	// StartupModeStrict fails fast on any initialization error (default)
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful starts with degraded functionality, logging warnings
	StartupModeGraceful StartupMode = "graceful"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DataPaths holds data directory and file path configuration
type DataPaths struct {
	// DataDir is the base data directory (IOCLENS_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file (IOCLENS_SQLITE_PATH, default: ${DataDir}/ioclens.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RedisConfig configures the shared rate limit counter
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	Limit    int           `mapstructure:"limit"`  // requests per window per client
	Window   time.Duration `mapstructure:"window"` // counter lifetime
}

// RateLimitConfig configures per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64     `mapstructure:"requests_per_second"`
	Burst             int         `mapstructure:"burst"`
	Redis             RedisConfig `mapstructure:"redis"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Port                 int             `mapstructure:"port"`
	TLS                  bool            `mapstructure:"tls"`
	CertFile             string          `mapstructure:"cert_file"`
	KeyFile              string          `mapstructure:"key_file"`
	AllowedOrigins       []string        `mapstructure:"allowed_origins"`
	TrustProxy           bool            `mapstructure:"trust_proxy"`
	TrustedProxyNetworks []string        `mapstructure:"trusted_proxy_networks"`
	JSONBodyLimit        int64           `mapstructure:"json_body_limit"`
	RateLimit            RateLimitConfig `mapstructure:"rate_limit"`
}

// GoogleConfig holds the OAuth client registration
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// AuthConfig configures Google sign-in and session cookies
type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiry    time.Duration `mapstructure:"jwt_expiry"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
	// LocalUserID owns every request while auth is disabled
	LocalUserID int64        `mapstructure:"local_user_id"`
	Google      GoogleConfig `mapstructure:"google"`
}

// FirecrawlConfig configures the primary scrape tier
type FirecrawlConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	// consecutive failures before the tier is skipped, and for how long
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// FallbackConfig configures the direct HTTP fetch tier
type FallbackConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
}

// HeadlessConfig configures the Chrome fetch tier, used instead of the plain HTTP fallback
type HeadlessConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Timeout  time.Duration `mapstructure:"timeout"`
	ExecPath string        `mapstructure:"exec_path"`
}

// ScraperConfig groups the content retrieval tiers
type ScraperConfig struct {
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
}

// LLMConfig configures the OpenAI compatible completion API
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PostgresConfig configures the PostgreSQL backend
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig selects and configures the record store
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// TracingConfig configures OpenTelemetry spans
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// SecretsConfig selects where credentials are loaded from
type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // env, vault, aws
	Vault    struct {
		Address string `mapstructure:"address"`
		Token   string `mapstructure:"token"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"vault"`
	AWS struct {
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		SecretID  string `mapstructure:"secret_id"`
	} `mapstructure:"aws"`
}

// Config holds all configuration for the IOC Lens service
type Config struct {
	// StartupMode controls how initialization failures are handled
	StartupMode StartupMode `mapstructure:"startup_mode"`

	DataPaths DataPaths     `mapstructure:"data_paths"`
	API       APIConfig     `mapstructure:"api"`
	Auth      AuthConfig    `mapstructure:"auth"`
	Scraper   ScraperConfig `mapstructure:"scraper"`
	LLM       LLMConfig     `mapstructure:"llm"`
	Storage   StorageConfig `mapstructure:"storage"`
	Tracing   TracingConfig `mapstructure:"tracing"`
	Secrets   SecretsConfig `mapstructure:"secrets"`

	file string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("startup_mode", string(StartupModeStrict))

	v.SetDefault("data_paths.data_dir", "./data")
	v.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	v.SetDefault("api.port", 5000)
	v.SetDefault("api.tls", false)
	v.SetDefault("api.cert_file", "server.crt")
	v.SetDefault("api.key_file", "server.key")
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("api.trust_proxy", false)
	v.SetDefault("api.trusted_proxy_networks", []string{})
	v.SetDefault("api.json_body_limit", 1048576) // 1MB
	v.SetDefault("api.rate_limit.requests_per_second", 5)
	v.SetDefault("api.rate_limit.burst", 20)
	v.SetDefault("api.rate_limit.redis.enabled", false)
	v.SetDefault("api.rate_limit.redis.addr", "localhost:6379")
	v.SetDefault("api.rate_limit.redis.password", "")
	v.SetDefault("api.rate_limit.redis.db", 0)
	v.SetDefault("api.rate_limit.redis.pool_size", 10)
	v.SetDefault("api.rate_limit.redis.limit", 120)
	v.SetDefault("api.rate_limit.redis.window", time.Minute)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", 24*time.Hour)
	v.SetDefault("auth.cookie_name", "auth_token")
	v.SetDefault("auth.secure_cookie", true)
	v.SetDefault("auth.local_user_id", 1)
	v.SetDefault("auth.google.client_id", "")
	v.SetDefault("auth.google.client_secret", "")
	v.SetDefault("auth.google.redirect_url", "http://localhost:5000/auth/google/callback")

	v.SetDefault("scraper.firecrawl.base_url", "https://api.firecrawl.io")
	v.SetDefault("scraper.firecrawl.api_key", "")
	v.SetDefault("scraper.firecrawl.timeout", 60*time.Second)
	v.SetDefault("scraper.firecrawl.breaker_failures", 5)
	v.SetDefault("scraper.firecrawl.breaker_cooldown", 30*time.Second)
	v.SetDefault("scraper.fallback.timeout", 30*time.Second)
	v.SetDefault("scraper.fallback.user_agent", "Mozilla/5.0 (compatible; IOCLens/1.0)")
	v.SetDefault("scraper.fallback.max_bytes", 5*1024*1024)
	v.SetDefault("scraper.headless.enabled", false)
	v.SetDefault("scraper.headless.timeout", 45*time.Second)
	v.SetDefault("scraper.headless.exec_path", "")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_open_conns", 10)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "ioclens")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.vault.address", "")
	v.SetDefault("secrets.vault.token", "")
	v.SetDefault("secrets.vault.path", "secret/ioclens")
	v.SetDefault("secrets.aws.region", "us-east-1")
	v.SetDefault("secrets.aws.access_key", "")
	v.SetDefault("secrets.aws.secret_key", "")
	v.SetDefault("secrets.aws.secret_id", "ioclens/secrets")
}

func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// short aliases for the paths most often overridden in containers
	_ = v.BindEnv("data_paths.data_dir", "IOCLENS_DATA_DIR", "IOCLENS_DATA_PATHS_DATA_DIR")
	_ = v.BindEnv("data_paths.sqlite_path", "IOCLENS_SQLITE_PATH", "IOCLENS_DATA_PATHS_SQLITE_PATH")
}

// LoadConfig loads configuration from config.yaml (in . or ./config), IOCLENS_*
// environment variables and the configured secret provider, then validates it.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit config file. An empty path
// searches the default locations; a missing default file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.file = v.ConfigFileUsed()

	manager, err := NewSecretManager(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager: %w", err)
	}
	if err := LoadSecrets(&config, manager); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ResolveDataPaths fills derived paths from DataDir
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "ioclens.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the SQLite database file path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "ioclens.db")
	}
	return c.DataPaths.SQLitePath
}

// IsGracefulMode reports whether non-critical initialization failures are tolerated
func (c *Config) IsGracefulMode() bool {
	return c.StartupMode == StartupModeGraceful
}

// ConfigFileUsed returns the config file that was read, or "" when only defaults and env applied
func (c *Config) ConfigFileUsed() string {
	return c.file
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(config *Config) error {
	switch config.StartupMode {
	case "", StartupModeStrict, StartupModeGraceful:
	default:
		return fmt.Errorf("invalid startup_mode %q (must be strict or graceful)", config.StartupMode)
	}

	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d (must be 1-65535)", config.API.Port)
	}
	if config.API.TLS && (config.API.CertFile == "" || config.API.KeyFile == "") {
		return fmt.Errorf("api.cert_file and api.key_file are required when TLS is enabled")
	}
	if config.API.JSONBodyLimit <= 0 {
		return fmt.Errorf("api.json_body_limit must be positive, got %d", config.API.JSONBodyLimit)
	}
	if config.API.RateLimit.RequestsPerSecond <= 0 || config.API.RateLimit.Burst <= 0 {
		return fmt.Errorf("api.rate_limit requests_per_second and burst must be positive")
	}
	if redis := config.API.RateLimit.Redis; redis.Enabled {
		if redis.Addr == "" {
			return fmt.Errorf("api.rate_limit.redis.addr is required when Redis rate limiting is enabled")
		}
		if redis.Limit <= 0 || redis.Window <= 0 {
			return fmt.Errorf("api.rate_limit.redis limit and window must be positive")
		}
	}

	if err := validateAuth(&config.Auth); err != nil {
		return err
	}

	if config.Scraper.Firecrawl.BaseURL != "" {
		if err := validateHTTPURL("scraper.firecrawl.base_url", config.Scraper.Firecrawl.BaseURL); err != nil {
			return err
		}
	}
	if config.Scraper.Fallback.Timeout <= 0 {
		return fmt.Errorf("scraper.fallback.timeout must be positive, got %v", config.Scraper.Fallback.Timeout)
	}
	if config.Scraper.Fallback.MaxBytes <= 0 {
		return fmt.Errorf("scraper.fallback.max_bytes must be positive, got %d", config.Scraper.Fallback.MaxBytes)
	}
	if config.Scraper.Headless.Enabled && config.Scraper.Headless.Timeout <= 0 {
		return fmt.Errorf("scraper.headless.timeout must be positive when headless fetching is enabled")
	}

	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %v", config.LLM.Timeout)
	}
	if err := validateHTTPURL("llm.base_url", config.LLM.BaseURL); err != nil {
		return err
	}

	switch config.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if config.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required when storage.driver is postgres")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q (must be sqlite or postgres)", config.Storage.Driver)
	}

	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", config.Tracing.SampleRatio)
	}

	switch config.Secrets.Provider {
	case "", "env", "vault", "aws":
	default:
		return fmt.Errorf("unsupported secrets.provider %q", config.Secrets.Provider)
	}

	if os.Getenv("IOCLENS_ENV") == "production" {
		if !config.Auth.Enabled {
			return fmt.Errorf("CRITICAL SECURITY ERROR: auth must be enabled in production (IOCLENS_ENV=production)")
		}
		if !config.Auth.SecureCookie {
			return fmt.Errorf("CRITICAL SECURITY ERROR: auth.secure_cookie must be enabled in production")
		}
	}

	return nil
}

func validateAuth(auth *AuthConfig) error {
	if !auth.Enabled {
		if auth.LocalUserID <= 0 {
			return fmt.Errorf("auth.local_user_id must be positive when auth is disabled")
		}
		return nil
	}

	if len(auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters (256 bits) for security")
	}
	weakSecrets := []string{
		"secret", "password", "changeme", "default", "admin",
		"jwt_secret", "supersecret", "mysecret", "test", "example",
	}
	lowerSecret := strings.ToLower(auth.JWTSecret)
	for _, weak := range weakSecrets {
		if strings.Contains(lowerSecret, weak) {
			return fmt.Errorf("JWT secret appears to contain weak/default value: please use a cryptographically secure random string")
		}
	}

	if auth.JWTExpiry <= 0 {
		return fmt.Errorf("auth.jwt_expiry must be positive, got %v", auth.JWTExpiry)
	}
	if auth.CookieName == "" {
		return fmt.Errorf("auth.cookie_name cannot be empty")
	}
	if auth.Google.ClientID == "" || auth.Google.ClientSecret == "" {
		return fmt.Errorf("auth.google.client_id and client_secret are required when auth is enabled")
	}
	return validateHTTPURL("auth.google.redirect_url", auth.Google.RedirectURL)
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s: missing host", field)
	}
	return nil
}
