package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/configstore"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// SetProvider starts a new configuration for the user on the given provider.
// The previous active config, if any, is retired rather than mutated, so a
// switch back restores it untouched except for its active flag.
func (s *Service) SetProvider(ctx context.Context, userID string, p provider.ProviderType) (*configstore.UserStorageConfig, error) {
	if !p.Known() {
		return nil, fmt.Errorf("unknown provider %q", p)
	}
	if _, err := s.registry.Driver(p); err != nil {
		return nil, err
	}

	cfg := configstore.NewConfig(userID, p)
	if err := s.store.Save(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("provider selected",
		zap.String("user_id", userID),
		zap.String("provider", p.String()),
		zap.String("config_id", cfg.ID))
	return cfg, nil
}

// SaveCredentials seals the credential set into the user's active config.
// The credentials must match the active config's provider. Validation state
// resets: new credentials are unvalidated until ValidateActive passes.
func (s *Service) SaveCredentials(ctx context.Context, userID string, creds provider.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	cfg, err := s.store.FindActiveConfig(ctx, userID)
	if err != nil {
		return err
	}
	if cfg.Provider != creds.Provider {
		return fmt.Errorf("active config is for %s, got %s credentials", cfg.Provider, creds.Provider)
	}

	plaintext, err := creds.Encode()
	if err != nil {
		return err
	}
	sealed, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return err
	}

	cfg.EncryptedCredentials = sealed
	cfg.IsValidated = false
	cfg.ValidationError = ""
	if err := s.store.Save(ctx, cfg); err != nil {
		return err
	}

	s.logger.Info("credentials saved",
		zap.String("user_id", userID),
		zap.String("config_id", cfg.ID),
		zap.String("credentials", creds.Redacted()))
	return nil
}

// ValidateActive runs the staged probe sequence against the user's stored
// active credentials and records the outcome on the config. The result is
// returned either way; persistence failures take precedence in the error.
func (s *Service) ValidateActive(ctx context.Context, userID string) (*validation.Result, error) {
	cfg, creds, err := s.resolver.ActiveCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	drv, err := s.registry.Driver(cfg.Provider)
	if err != nil {
		return nil, err
	}
	defer func() { _ = drv.Close() }()

	result := drv.ValidateCredentials(ctx, creds)

	validationError := ""
	if !result.IsValid && result.Error != nil {
		validationError = result.Error.Message
	}
	if err := s.store.MarkValidated(ctx, cfg.ID, result.IsValid, validationError); err != nil {
		return result, err
	}

	s.logger.Info("credentials validated",
		zap.String("user_id", userID),
		zap.String("config_id", cfg.ID),
		zap.Bool("valid", result.IsValid))
	return result, nil
}

// ActiveConfig returns the user's active configuration.
func (s *Service) ActiveConfig(ctx context.Context, userID string) (*configstore.UserStorageConfig, error) {
	return s.store.FindActiveConfig(ctx, userID)
}

// Configs lists all of the user's configurations, active and retired.
func (s *Service) Configs(ctx context.Context, userID string) ([]*configstore.UserStorageConfig, error) {
	return s.store.ListConfigs(ctx, userID)
}
