package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/hashicorp/vault/api"
)

// ErrSecretNotFound is returned when a provider has no value for a key
var ErrSecretNotFound = errors.New("secret not found")

// Secret keys understood by every provider
const (
	SecretOpenAIAPIKey       = "openai_api_key"
	SecretFirecrawlAPIKey    = "firecrawl_api_key"
	SecretGoogleClientSecret = "google_client_secret"
	SecretJWT                = "jwt_secret"
	SecretPostgresDSN        = "postgres_dsn"
	SecretRedisPassword      = "redis_password"
)

// SecretManager retrieves credentials by key
type SecretManager interface {
	GetSecret(key string) (string, error)
}

// EnvSecretManager uses environment variables (default). A key is looked up as
// IOCLENS_<KEY> first and then as the bare <KEY>, so OPENAI_API_KEY works unchanged.
type EnvSecretManager struct {
	// Lookup defaults to os.LookupEnv
	Lookup func(string) (string, bool)
}

func (e *EnvSecretManager) GetSecret(key string) (string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	upper := strings.ToUpper(key)
	for _, name := range []string{EnvPrefix + "_" + upper, upper} {
		if value, ok := lookup(name); ok && value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: environment variable %s_%s not set", ErrSecretNotFound, EnvPrefix, upper)
}

// VaultSecretManager retrieves secrets from HashiCorp Vault. The secret at the
// configured path is read once and cached for subsequent keys.
type VaultSecretManager struct {
	path   string
	client *api.Client

	mu   sync.Mutex
	data map[string]interface{}
}

func NewVaultSecretManager(config *Config) (*VaultSecretManager, error) {
	client, err := api.NewClient(&api.Config{
		Address: config.Secrets.Vault.Address,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if config.Secrets.Vault.Token != "" {
		client.SetToken(config.Secrets.Vault.Token)
	} else if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	path := config.Secrets.Vault.Path
	if path == "" {
		path = "secret/ioclens"
	}

	return &VaultSecretManager{path: path, client: client}, nil
}

func (v *VaultSecretManager) GetSecret(key string) (string, error) {
	data, err := v.load()
	if err != nil {
		return "", err
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("%w: key %s not in Vault secret %s", ErrSecretNotFound, key, v.path)
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %s is not a string", key)
	}
	return strValue, nil
}

func (v *VaultSecretManager) load() (map[string]interface{}, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.data != nil {
		return v.data, nil
	}

	secret, err := v.client.Logical().Read(v.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: nothing stored at Vault path %s", ErrSecretNotFound, v.path)
	}

	data := secret.Data
	// KV version 2 nests the payload under "data"
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	v.data = data
	return data, nil
}

// AWSSecretManager retrieves secrets from a JSON document in AWS Secrets Manager
type AWSSecretManager struct {
	secretID string
	client   secretsmanageriface.SecretsManagerAPI
}

func NewAWSSecretManager(config *Config) (*AWSSecretManager, error) {
	awsConfig := &aws.Config{Region: aws.String(config.Secrets.AWS.Region)}
	if config.Secrets.AWS.AccessKey != "" && config.Secrets.AWS.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.Secrets.AWS.AccessKey,
			config.Secrets.AWS.SecretKey,
			"",
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newAWSSecretManager(config.Secrets.AWS.SecretID, secretsmanager.New(sess)), nil
}

func newAWSSecretManager(secretID string, client secretsmanageriface.SecretsManagerAPI) *AWSSecretManager {
	if secretID == "" {
		secretID = "ioclens/secrets"
	}
	return &AWSSecretManager{secretID: secretID, client: client}
}

func (a *AWSSecretManager) GetSecret(key string) (string, error) {
	result, err := a.client.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret from AWS: %w", err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("%w: AWS secret %s has no string value", ErrSecretNotFound, a.secretID)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return "", fmt.Errorf("failed to parse AWS secret JSON: %w", err)
	}

	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: key %s not in AWS secret", ErrSecretNotFound, key)
	}
	return value, nil
}

// NewSecretManager creates the appropriate secret manager based on configuration
func NewSecretManager(config *Config) (SecretManager, error) {
	provider := config.Secrets.Provider
	if provider == "" {
		provider = "env"
	}

	switch provider {
	case "env":
		return &EnvSecretManager{}, nil
	case "vault":
		return NewVaultSecretManager(config)
	case "aws":
		return NewAWSSecretManager(config)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", provider)
	}
}

// LoadSecrets fills credentials that the config file and environment left empty.
// Keys the provider does not know are skipped; validation reports what is still missing.
func LoadSecrets(config *Config, manager SecretManager) error {
	targets := []struct {
		key    string
		target *string
	}{
		{SecretOpenAIAPIKey, &config.LLM.APIKey},
		{SecretFirecrawlAPIKey, &config.Scraper.Firecrawl.APIKey},
		{SecretGoogleClientSecret, &config.Auth.Google.ClientSecret},
		{SecretJWT, &config.Auth.JWTSecret},
		{SecretPostgresDSN, &config.Storage.Postgres.DSN},
		{SecretRedisPassword, &config.API.RateLimit.Redis.Password},
	}

	for _, t := range targets {
		if *t.target != "" {
			continue
		}
		value, err := manager.GetSecret(t.key)
		if errors.Is(err, ErrSecretNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", t.key, err)
		}
		*t.target = value
	}
	return nil
}
