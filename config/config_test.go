package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongSecret = "9f1c2b7e4d8a6f3e0b5c7d9a1e2f4b6c8d0a2e4f"

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	cfg := Config{
		StartupMode: StartupModeStrict,
		API: APIConfig{
			Port:          5000,
			JSONBodyLimit: 1 << 20,
			RateLimit:     RateLimitConfig{RequestsPerSecond: 5, Burst: 20},
		},
		Auth: AuthConfig{
			Enabled:      true,
			JWTSecret:    strongSecret,
			JWTExpiry:    24 * time.Hour,
			CookieName:   "auth_token",
			SecureCookie: true,
			LocalUserID:  1,
			Google: GoogleConfig{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				RedirectURL:  "http://localhost:5000/auth/google/callback",
			},
		},
		Scraper: ScraperConfig{
			Firecrawl: FirecrawlConfig{BaseURL: "https://api.firecrawl.io", Timeout: time.Minute},
			Fallback:  FallbackConfig{Timeout: 30 * time.Second, MaxBytes: 1 << 20},
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
			Timeout: 2 * time.Minute,
		},
		Storage: StorageConfig{Driver: DriverSQLite},
		Tracing: TracingConfig{ServiceName: "ioclens", SampleRatio: 1},
		Secrets: SecretsConfig{Provider: "env"},
	}
	return cfg
}

func TestValidateConfig_Valid(t *testing.T) {
	cfg := newTestConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port out of range", func(c *Config) { c.API.Port = 70000 }, "invalid API port"},
		{"tls without cert", func(c *Config) { c.API.TLS = true }, "cert_file"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32 characters"},
		{"weak jwt secret", func(c *Config) { c.Auth.JWTSecret = "changeme-changeme-changeme-changeme" }, "weak/default"},
		{"missing google client", func(c *Config) { c.Auth.Google.ClientID = "" }, "client_id"},
		{"bad redirect url", func(c *Config) { c.Auth.Google.RedirectURL = "ftp://host/cb" }, "redirect_url"},
		{"empty model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unsupported storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "storage.postgres.dsn"},
		{"redis without addr", func(c *Config) {
			c.API.RateLimit.Redis = RedisConfig{Enabled: true, Limit: 10, Window: time.Minute}
		}, "redis.addr"},
		{"bad sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
		{"unknown secrets provider", func(c *Config) { c.Secrets.Provider = "gcp" }, "secrets.provider"},
		{"bad startup mode", func(c *Config) { c.StartupMode = "lazy" }, "startup_mode"},
		{"disabled auth without local user", func(c *Config) {
			c.Auth.Enabled = false
			c.Auth.LocalUserID = 0
		}, "local_user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_DisabledAuthSkipsGoogle(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Enabled = false
	cfg.Auth.JWTSecret = ""
	cfg.Auth.Google = GoogleConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestValidateConfig_ProductionRequiresAuth(t *testing.T) {
	t.Setenv("IOCLENS_ENV", "production")

	cfg := newTestConfig()
	cfg.Auth.Enabled = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth must be enabled")
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
api:
  port: 8088
  allowed_origins: ["https://ioclens.example"]
auth:
  jwt_secret: "`+strongSecret+`"
  jwt_expiry: 2h
  google:
    client_id: "cid"
    client_secret: "csecret"
llm:
  api_key: "sk-file"
storage:
  driver: sqlite
data_paths:
  data_dir: /var/lib/ioclens
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFileUsed())
	assert.Equal(t, 8088, cfg.API.Port)
	assert.Equal(t, []string{"https://ioclens.example"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "auth_token", cfg.Auth.CookieName)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.firecrawl.io", cfg.Scraper.Firecrawl.BaseURL)
	assert.Equal(t, filepath.Join("/var/lib/ioclens", "ioclens.db"), cfg.GetSQLitePath())
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  enabled: false
`)
	t.Setenv("IOCLENS_API_PORT", "9090")
	t.Setenv("IOCLENS_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("IOCLENS_SQLITE_PATH", "/tmp/ioclens-test.db")
	t.Setenv("IOCLENS_FIRECRAWL_API_KEY", "fc-from-env")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "/tmp/ioclens-test.db", cfg.GetSQLitePath())
	assert.Equal(t, "fc-from-env", cfg.Scraper.Firecrawl.APIKey, "secret filled by env provider")
}

func TestLoadConfigFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFile_InvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  enabled: true
  jwt_secret: "short"
`)
	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestResolveDataPaths(t *testing.T) {
	cfg := Config{}
	cfg.ResolveDataPaths()
	assert.Equal(t, "./data", cfg.DataPaths.DataDir)
	assert.Equal(t, filepath.Join("./data", "ioclens.db"), cfg.DataPaths.SQLitePath)

	cfg = Config{DataPaths: DataPaths{SQLitePath: "db/../custom.db"}}
	cfg.ResolveDataPaths()
	assert.Equal(t, "custom.db", cfg.DataPaths.SQLitePath)
}

func TestIsGracefulMode(t *testing.T) {
	cfg := Config{StartupMode: StartupModeGraceful}
	assert.True(t, cfg.IsGracefulMode())
	cfg.StartupMode = StartupModeStrict
	assert.False(t, cfg.IsGracefulMode())
}
