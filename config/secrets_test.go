package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestEnvSecretManager_GetSecret(t *testing.T) {
	manager := &EnvSecretManager{Lookup: mapLookup(map[string]string{
		"IOCLENS_JWT_SECRET": "prefixed",
		"JWT_SECRET":         "bare",
		"OPENAI_API_KEY":     "sk-bare",
		"FIRECRAWL_API_KEY":  "",
	})}

	value, err := manager.GetSecret(SecretJWT)
	require.NoError(t, err)
	assert.Equal(t, "prefixed", value, "prefixed variable wins")

	value, err = manager.GetSecret(SecretOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-bare", value)

	_, err = manager.GetSecret(SecretFirecrawlAPIKey)
	assert.True(t, errors.Is(err, ErrSecretNotFound), "empty value counts as missing")

	_, err = manager.GetSecret(SecretPostgresDSN)
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestEnvSecretManager_DefaultsToProcessEnv(t *testing.T) {
	t.Setenv("IOCLENS_GOOGLE_CLIENT_SECRET", "from-env")

	value, err := (&EnvSecretManager{}).GetSecret(SecretGoogleClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

type stubSecretManager struct {
	values map[string]string
	err    error
	calls  []string
}

func (s *stubSecretManager) GetSecret(key string) (string, error) {
	s.calls = append(s.calls, key)
	if s.err != nil {
		return "", s.err
	}
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", ErrSecretNotFound
}

func TestLoadSecrets_FillsOnlyEmptyFields(t *testing.T) {
	cfg := newTestConfig()
	cfg.LLM.APIKey = "sk-config"
	cfg.Auth.JWTSecret = ""

	manager := &stubSecretManager{values: map[string]string{
		SecretOpenAIAPIKey:    "sk-provider",
		SecretJWT:             strongSecret,
		SecretFirecrawlAPIKey: "fc-provider",
	}}

	require.NoError(t, LoadSecrets(&cfg, manager))
	assert.Equal(t, "sk-config", cfg.LLM.APIKey, "configured value is kept")
	assert.Equal(t, strongSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "fc-provider", cfg.Scraper.Firecrawl.APIKey)
	assert.Empty(t, cfg.Storage.Postgres.DSN, "unknown keys are skipped")
	assert.NotContains(t, manager.calls, SecretOpenAIAPIKey)
}

func TestLoadSecrets_ProviderFailure(t *testing.T) {
	cfg := newTestConfig()
	manager := &stubSecretManager{err: errors.New("connection refused")}

	err := LoadSecrets(&cfg, manager)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewSecretManager(t *testing.T) {
	cfg := newTestConfig()

	cfg.Secrets.Provider = ""
	manager, err := NewSecretManager(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, manager)

	cfg.Secrets.Provider = "vault"
	cfg.Secrets.Vault.Address = "http://127.0.0.1:8200"
	manager, err = NewSecretManager(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &VaultSecretManager{}, manager)

	cfg.Secrets.Provider = "gcp"
	_, err = NewSecretManager(&cfg)
	assert.Error(t, err)
}

func TestVaultSecretManager_KVv2(t *testing.T) {
	reads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/ioclens", r.URL.Path)
		assert.Equal(t, "vault-token", r.Header.Get("X-Vault-Token"))
		reads++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"openai_api_key":"sk-vault","jwt_secret":"` + strongSecret + `"},"metadata":{"version":1}}}`))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Secrets.Vault.Address = server.URL
	cfg.Secrets.Vault.Token = "vault-token"
	cfg.Secrets.Vault.Path = "secret/data/ioclens"

	manager, err := NewVaultSecretManager(&cfg)
	require.NoError(t, err)

	value, err := manager.GetSecret(SecretOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", value)

	value, err = manager.GetSecret(SecretJWT)
	require.NoError(t, err)
	assert.Equal(t, strongSecret, value)

	_, err = manager.GetSecret(SecretPostgresDSN)
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	assert.Equal(t, 1, reads, "secret is read once and cached")
}

type fakeSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI
	secretString *string
	err          error
	lastInput    *secretsmanager.GetSecretValueInput
}

func (f *fakeSecretsManager) GetSecretValue(input *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.secretString}, nil
}

func TestAWSSecretManager_GetSecret(t *testing.T) {
	fake := &fakeSecretsManager{secretString: aws.String(`{"postgres_dsn":"postgres://u:p@db/ioclens"}`)}
	manager := newAWSSecretManager("", fake)

	value, err := manager.GetSecret(SecretPostgresDSN)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/ioclens", value)
	assert.Equal(t, "ioclens/secrets", aws.StringValue(fake.lastInput.SecretId))

	_, err = manager.GetSecret(SecretJWT)
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestAWSSecretManager_Errors(t *testing.T) {
	manager := newAWSSecretManager("custom", &fakeSecretsManager{err: errors.New("AccessDenied")})
	_, err := manager.GetSecret(SecretJWT)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSecretNotFound))

	manager = newAWSSecretManager("custom", &fakeSecretsManager{secretString: aws.String("not json")})
	_, err = manager.GetSecret(SecretJWT)
	assert.Error(t, err)

	manager = newAWSSecretManager("custom", &fakeSecretsManager{})
	_, err = manager.GetSecret(SecretJWT)
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}
