package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// UserStorageConfig is one provider-choice record of a user.
type UserStorageConfig struct {
	ID       string
	UserID   string
	Provider provider.ProviderType

	// EncryptedCredentials is the vault-sealed credential blob. Empty until
	// the user completes the credential step.
	EncryptedCredentials []byte

	IsValidated     bool
	LastValidatedAt *time.Time
	ValidationError string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConfig returns a fresh, unvalidated, active config for the given user
// and provider. Persist it with Save, which retires any previously active
// row.
func NewConfig(userID string, p provider.ProviderType) *UserStorageConfig {
	now := time.Now().UTC()
	return &UserStorageConfig{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  p,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindActiveConfig returns the user's single active config, or
// ErrNoActiveConfig.
func (s *Store) FindActiveConfig(ctx context.Context, userID string) (*UserStorageConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, encrypted_credentials,
		       is_validated, last_validated_at, validation_error,
		       is_active, created_at, updated_at
		FROM user_storage_configs
		WHERE user_id = ? AND is_active = 1`, userID)

	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoActiveConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("find active config: %w", err)
	}
	return cfg, nil
}

// FindConfig returns a config by id.
func (s *Store) FindConfig(ctx context.Context, id string) (*UserStorageConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, encrypted_credentials,
		       is_validated, last_validated_at, validation_error,
		       is_active, created_at, updated_at
		FROM user_storage_configs
		WHERE id = ?`, id)

	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find config: %w", err)
	}
	return cfg, nil
}

// Save upserts a config row. When cfg.IsActive is set, any other active row
// of the same user is retired in the same transaction - switching providers
// supersedes the previous config rather than mutating it.
func (s *Store) Save(ctx context.Context, cfg *UserStorageConfig) error {
	if cfg.ID == "" || cfg.UserID == "" {
		return errors.New("config id and user id are required")
	}
	cfg.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if cfg.IsActive {
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_storage_configs
			SET is_active = 0, updated_at = ?
			WHERE user_id = ? AND is_active = 1 AND id != ?`,
			cfg.UpdatedAt, cfg.UserID, cfg.ID); err != nil {
			return fmt.Errorf("retire previous active config: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_storage_configs
			(id, user_id, provider, encrypted_credentials,
			 is_validated, last_validated_at, validation_error,
			 is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			encrypted_credentials = excluded.encrypted_credentials,
			is_validated = excluded.is_validated,
			last_validated_at = excluded.last_validated_at,
			validation_error = excluded.validation_error,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		cfg.ID, cfg.UserID, string(cfg.Provider), cfg.EncryptedCredentials,
		boolToInt(cfg.IsValidated), cfg.LastValidatedAt, cfg.ValidationError,
		boolToInt(cfg.IsActive), cfg.CreatedAt, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// MarkValidated records the outcome of a validation attempt on a config.
// A successful attempt clears any previous validation error.
func (s *Store) MarkValidated(ctx context.Context, id string, valid bool, validationError string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_storage_configs
		SET is_validated = ?, last_validated_at = ?, validation_error = ?, updated_at = ?
		WHERE id = ?`,
		boolToInt(valid), now, validationError, now, id)
	if err != nil {
		return fmt.Errorf("mark validated: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("config %s not found", id)
	}
	return nil
}

// ListConfigs returns all configs of a user, newest first, including retired
// ones.
func (s *Store) ListConfigs(ctx context.Context, userID string) ([]*UserStorageConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, encrypted_credentials,
		       is_validated, last_validated_at, validation_error,
		       is_active, created_at, updated_at
		FROM user_storage_configs
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*UserStorageConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("list configs: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*UserStorageConfig, error) {
	var (
		cfg         UserStorageConfig
		providerStr string
		isValidated int
		isActive    int
		validatedAt sql.NullTime
	)
	if err := row.Scan(
		&cfg.ID, &cfg.UserID, &providerStr, &cfg.EncryptedCredentials,
		&isValidated, &validatedAt, &cfg.ValidationError,
		&isActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	cfg.Provider = provider.ProviderType(providerStr)
	cfg.IsValidated = isValidated != 0
	cfg.IsActive = isActive != 0
	if validatedAt.Valid {
		t := validatedAt.Time
		cfg.LastValidatedAt = &t
	}
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
