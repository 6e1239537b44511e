package app

import (
	"fmt"

	"github.com/Flash-Brew-Digital/memberstack-cli/internal/oauth"
	"github.com/Flash-Brew-Digital/memberstack-cli/internal/session"
)

// NewSession wires the provider client and credential store described by the
// configuration into a session facade. The configuration is passed explicitly
// so no component reads ambient global state.
func NewSession(cfg *Config) (*session.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	provider := oauth.NewClient(cfg.Endpoints(), cfg.Provider.Scope, cfg.Provider.Resource)

	return session.New(provider, store,
		session.WithCallbackPath(cfg.Auth.CallbackPath),
		session.WithCallbackTimeout(cfg.Auth.CallbackTimeout),
	)
}
