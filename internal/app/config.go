package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/oauth"
	"github.com/Flash-Brew-Digital/memberstack-cli/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTel LogFormat = "otel"
)

// CredentialStorageType represents the supported credential storage backends.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat        = LogFormatText
	DefaultConfigAuthorizationURL = "https://auth.memberstack.com/oauth/authorize"
	DefaultConfigRegistrationURL  = "https://auth.memberstack.com/oauth/register"
	DefaultConfigTokenURL         = "https://auth.memberstack.com/oauth/token"
	DefaultConfigRevocationURL    = "https://auth.memberstack.com/oauth/revoke"
	DefaultConfigScope            = "apps:read members:read members:write"
	DefaultConfigResource         = "https://api.memberstack.com"
	DefaultConfigAPIBaseURL       = "https://api.memberstack.com/v1"
	DefaultConfigCallbackPath     = "/callback"
	DefaultConfigCallbackTimeout  = 5 * time.Minute
	DefaultConfigAuthStorage      = CredentialStorageTypeFile

	keyringService = "memberstack-cli"
)

// ProviderConfig holds the identity provider's endpoints and the scope and
// resource requested during login.
type ProviderConfig struct {
	AuthorizationURL string `json:"authorization_url" validate:"required,url"`
	RegistrationURL  string `json:"registration_url" validate:"required,url"`
	TokenURL         string `json:"token_url" validate:"required,url"`
	RevocationURL    string `json:"revocation_url" validate:"required,url"`
	Scope            string `json:"scope" validate:"required"`
	Resource         string `json:"resource" validate:"required,url"`
}

// APIConfig holds the authenticated API surface configuration.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// AuthConfig describes how credentials are stored and how the loopback
// callback behaves during login.
type AuthConfig struct {
	// Storage selects the credential backend.
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to credentials file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier

	// CallbackPath is the loopback listener's redirect path.
	CallbackPath string `json:"callback_path"`

	// CallbackTimeout bounds the wait for the browser redirect.
	CallbackTimeout time.Duration `json:"callback_timeout"`
}

// NewStore creates the credential store described by the configuration.
func (a *AuthConfig) NewStore() (tokenstore.Store, error) {
	switch a.Storage {
	case CredentialStorageTypeFile:
		return tokenstore.NewFileStore(a.File)
	case CredentialStorageTypeKeyring:
		return tokenstore.NewKeyringStore(keyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otel"`
	Provider  ProviderConfig `json:"provider"`
	API       APIConfig      `json:"api"`
	Auth      AuthConfig     `json:"auth"`
}

// Endpoints returns the provider endpoints in the form internal/oauth wants.
func (c *Config) Endpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthorizationURL: c.Provider.AuthorizationURL,
		RegistrationURL:  c.Provider.RegistrationURL,
		TokenURL:         c.Provider.TokenURL,
		RevocationURL:    c.Provider.RevocationURL,
	}
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Provider.AuthorizationURL == "" {
		c.Provider.AuthorizationURL = DefaultConfigAuthorizationURL
	}
	if c.Provider.RegistrationURL == "" {
		c.Provider.RegistrationURL = DefaultConfigRegistrationURL
	}
	if c.Provider.TokenURL == "" {
		c.Provider.TokenURL = DefaultConfigTokenURL
	}
	if c.Provider.RevocationURL == "" {
		c.Provider.RevocationURL = DefaultConfigRevocationURL
	}
	if c.Provider.Scope == "" {
		c.Provider.Scope = DefaultConfigScope
	}
	if c.Provider.Resource == "" {
		c.Provider.Resource = DefaultConfigResource
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.CallbackPath == "" {
		c.Auth.CallbackPath = DefaultConfigCallbackPath
	}
	if c.Auth.CallbackTimeout == 0 {
		c.Auth.CallbackTimeout = DefaultConfigCallbackTimeout
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(homeDir, ".memberstack", "credentials.json")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
