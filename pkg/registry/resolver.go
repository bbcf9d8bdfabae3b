package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/configstore"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/vault"
)

// Resolver turns a user identity into an initialized driver.
//
// Resolution decrypts and initializes on every call: a fresh driver instance
// per request, never cached warm. The per-request init cost buys two things -
// no stale credentials after a user rotates keys, and no path by which one
// user's operation can observe another user's client state.
type Resolver struct {
	registry *Registry
	store    *configstore.Store
	vault    *vault.Vault
	logger   *zap.Logger
}

// NewResolver wires a resolver from its collaborators. A nil logger is
// replaced with a nop logger.
func NewResolver(reg *Registry, store *configstore.Store, v *vault.Vault, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: reg, store: store, vault: v, logger: logger}
}

// ForUser loads the user's active config, decrypts its credentials, and
// returns a freshly initialized driver. The caller should Close the driver
// when done.
func (r *Resolver) ForUser(ctx context.Context, userID string) (provider.Driver, error) {
	cfg, err := r.store.FindActiveConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	creds, err := r.credentialsFor(cfg)
	if err != nil {
		return nil, err
	}

	drv, err := r.registry.Driver(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if err := drv.Initialize(ctx, creds); err != nil {
		r.logger.Warn("driver initialization failed",
			zap.String("user_id", userID),
			zap.String("provider", cfg.Provider.String()),
			zap.Error(err))
		return nil, fmt.Errorf("initialize %s driver: %w", cfg.Provider, err)
	}
	if !drv.IsConfigured() {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrProviderNotConfigured)
	}

	r.logger.Debug("resolved driver",
		zap.String("user_id", userID),
		zap.String("provider", cfg.Provider.String()))
	return drv, nil
}

// ActiveCredentials decrypts the user's active credentials without
// initializing a driver. Used by validation flows that probe the stored
// credential set.
func (r *Resolver) ActiveCredentials(ctx context.Context, userID string) (*configstore.UserStorageConfig, provider.Credentials, error) {
	cfg, err := r.store.FindActiveConfig(ctx, userID)
	if err != nil {
		return nil, provider.Credentials{}, err
	}
	creds, err := r.credentialsFor(cfg)
	if err != nil {
		return nil, provider.Credentials{}, err
	}
	return cfg, creds, nil
}

func (r *Resolver) credentialsFor(cfg *configstore.UserStorageConfig) (provider.Credentials, error) {
	if len(cfg.EncryptedCredentials) == 0 {
		return provider.Credentials{}, fmt.Errorf("config %s has no credentials: %w", cfg.ID, ErrProviderNotConfigured)
	}

	plaintext, err := r.vault.Decrypt(cfg.EncryptedCredentials)
	if err != nil {
		return provider.Credentials{}, fmt.Errorf("decrypt credentials for config %s: %w", cfg.ID, err)
	}

	creds, err := provider.ParseCredentials(plaintext)
	if err != nil {
		return provider.Credentials{}, err
	}
	if creds.Provider != cfg.Provider {
		return provider.Credentials{}, fmt.Errorf("config %s: credential provider %s does not match config provider %s",
			cfg.ID, creds.Provider, cfg.Provider)
	}
	return creds, nil
}
