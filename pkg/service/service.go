// Package service is the user-facing surface of the storage layer. Every
// operation resolves the caller's active provider, translates stored paths
// to provider keys at this boundary, and closes the driver when done.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/configstore"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/orchestrator"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/pathkeys"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/registry"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/vault"
)

// Service coordinates credential storage, driver resolution, and object
// operations for users.
type Service struct {
	registry *registry.Registry
	resolver *registry.Resolver
	store    *configstore.Store
	vault    *vault.Vault
	orch     *orchestrator.Orchestrator
	logger   *zap.Logger
}

// New wires a service from its collaborators. A nil logger is replaced with
// a nop logger.
func New(reg *registry.Registry, store *configstore.Store, v *vault.Vault, orch *orchestrator.Orchestrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: reg,
		resolver: registry.NewResolver(reg, store, v, logger),
		store:    store,
		vault:    v,
		orch:     orch,
		logger:   logger,
	}
}

// UploadRequest describes one file upload. LocalPath points at the staged
// temp file; StoredPath is the marker-prefixed destination.
type UploadRequest struct {
	LocalPath   string
	StoredPath  string
	ContentType string
	Metadata    map[string]string
}

// UploadResult reports the provider URL and the stored path of the new
// object.
type UploadResult struct {
	FileURL          string
	StoredPath       string
	ProviderMetadata map[string]string
}

// UploadFile streams a staged local file to the user's active provider.
func (s *Service) UploadFile(ctx context.Context, userID string, req UploadRequest) (*UploadResult, error) {
	key, err := pathkeys.ToProviderKey(req.StoredPath)
	if err != nil {
		return nil, err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = drv.Close() }()

	res, err := drv.Upload(ctx, provider.UploadInput{
		LocalPath:   req.LocalPath,
		Key:         key,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.logger.Warn("upload failed",
			zap.String("user_id", userID),
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}

	stored, err := pathkeys.ToStoredPath(res.Key)
	if err != nil {
		return nil, err
	}

	s.logger.Info("uploaded object",
		zap.String("user_id", userID),
		zap.String("provider", drv.Provider().String()),
		zap.String("key", key))
	return &UploadResult{
		FileURL:          res.FileURL,
		StoredPath:       stored,
		ProviderMetadata: res.ProviderMetadata,
	}, nil
}

// GetDownloadURL returns a time-limited download URL for a stored path. A
// non-positive expiry falls back to the provider default.
func (s *Service) GetDownloadURL(ctx context.Context, userID, storedPath string, expiresIn time.Duration) (string, error) {
	key, err := pathkeys.ToProviderKey(storedPath)
	if err != nil {
		return "", err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	defer func() { _ = drv.Close() }()

	return drv.GetDownloadURL(ctx, key, expiresIn)
}

// DeleteFile removes a stored object.
func (s *Service) DeleteFile(ctx context.Context, userID, storedPath string) error {
	key, err := pathkeys.ToProviderKey(storedPath)
	if err != nil {
		return err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return err
	}
	defer func() { _ = drv.Close() }()

	if err := drv.DeleteObject(ctx, key); err != nil {
		return err
	}
	s.logger.Info("deleted object",
		zap.String("user_id", userID),
		zap.String("key", key))
	return nil
}

// CreateFolder creates a folder marker at the stored path. Repeating the
// call for the same path succeeds.
func (s *Service) CreateFolder(ctx context.Context, userID, storedPath string) (string, error) {
	key, err := pathkeys.ToProviderKey(storedPath)
	if err != nil {
		return "", err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	defer func() { _ = drv.Close() }()

	res, err := drv.CreateFolder(ctx, key)
	if err != nil {
		return "", err
	}
	return pathkeys.ToStoredPath(res.Path)
}

// ObjectInfo mirrors provider.ObjectInfo with the key translated back to a
// stored path.
type ObjectInfo struct {
	StoredPath   string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ListObjects lists objects under a stored-path prefix.
func (s *Service) ListObjects(ctx context.Context, userID, storedPrefix string, maxKeys int) ([]ObjectInfo, error) {
	prefix, err := pathkeys.ToProviderKey(storedPrefix)
	if err != nil {
		return nil, err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = drv.Close() }()

	res, err := drv.ListObjects(ctx, provider.ListInput{Prefix: prefix, MaxKeys: maxKeys})
	if err != nil {
		return nil, err
	}

	out := make([]ObjectInfo, 0, len(res.Objects))
	for _, obj := range res.Objects {
		stored, err := pathkeys.ToStoredPath(obj.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, ObjectInfo{
			StoredPath:   stored,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// CopyRequest describes a copy between two stored paths. With
// ReplaceMetadata set, Metadata replaces the source's metadata on the copy;
// otherwise the source metadata carries over.
type CopyRequest struct {
	FromStoredPath  string
	ToStoredPath    string
	Metadata        map[string]string
	ReplaceMetadata bool
}

func (s *Service) copyInput(req CopyRequest) (provider.CopyInput, error) {
	from, err := pathkeys.ToProviderKey(req.FromStoredPath)
	if err != nil {
		return provider.CopyInput{}, err
	}
	to, err := pathkeys.ToProviderKey(req.ToStoredPath)
	if err != nil {
		return provider.CopyInput{}, err
	}
	return provider.CopyInput{
		From:            from,
		To:              to,
		Metadata:        req.Metadata,
		ReplaceMetadata: req.ReplaceMetadata,
	}, nil
}

// CopyObject copies an object within the user's active provider.
func (s *Service) CopyObject(ctx context.Context, userID string, req CopyRequest) error {
	in, err := s.copyInput(req)
	if err != nil {
		return err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return err
	}
	defer func() { _ = drv.Close() }()

	return s.orch.Copy(ctx, drv, in)
}

// MoveObject moves an object within the user's active provider. On a copy
// that succeeds but a source delete that fails, the returned error is a
// *provider.MoveError and the destination object exists.
func (s *Service) MoveObject(ctx context.Context, userID string, req CopyRequest) error {
	in, err := s.copyInput(req)
	if err != nil {
		return err
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return err
	}
	defer func() { _ = drv.Close() }()

	return s.orch.Move(ctx, drv, provider.MoveInput{CopyInput: in})
}

// BatchMapping pairs a source and destination stored path.
type BatchMapping struct {
	FromStoredPath string
	ToStoredPath   string
}

// BatchItemResult reports one mapping's outcome, positioned by submission
// order.
type BatchItemResult struct {
	Mapping    BatchMapping
	Dispatched bool
	Err        error
}

// BatchCopy copies many objects with bounded concurrency. The first failure
// stops dispatching new work; already-dispatched copies run to completion,
// and completed copies are not rolled back.
func (s *Service) BatchCopy(ctx context.Context, userID string, mappings []BatchMapping) ([]BatchItemResult, error) {
	translated := make([]orchestrator.Mapping, len(mappings))
	for i, m := range mappings {
		from, err := pathkeys.ToProviderKey(m.FromStoredPath)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		to, err := pathkeys.ToProviderKey(m.ToStoredPath)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		translated[i] = orchestrator.Mapping{From: from, To: to}
	}

	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = drv.Close() }()

	items, batchErr := s.orch.BatchCopy(ctx, drv, translated)

	results := make([]BatchItemResult, len(items))
	for i, item := range items {
		results[i] = BatchItemResult{
			Mapping:    mappings[i],
			Dispatched: item.Dispatched,
			Err:        item.Err,
		}
	}
	if batchErr != nil {
		s.logger.Warn("batch copy stopped on failure",
			zap.String("user_id", userID),
			zap.Int("mappings", len(mappings)),
			zap.Error(batchErr))
	}
	return results, batchErr
}

// HealthCheck resolves the user's active provider and probes it. Resolution
// failures report unhealthy rather than erroring.
func (s *Service) HealthCheck(ctx context.Context, userID string) bool {
	drv, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return false
	}
	defer func() { _ = drv.Close() }()
	return drv.HealthCheck(ctx)
}

// HealthCheckAll probes each given user's active provider and reports
// per-user health. Providers are resolved per user, so one bad credential
// set never masks another user's state.
func (s *Service) HealthCheckAll(ctx context.Context, userIDs []string) map[string]bool {
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		out[id] = s.HealthCheck(ctx, id)
	}
	return out
}

// ValidateCredentials probes an explicit credential set without touching
// stored state. The result's diagnostics are safe to surface to the user.
func (s *Service) ValidateCredentials(ctx context.Context, creds provider.Credentials) (*validation.Result, error) {
	drv, err := s.registry.Driver(creds.Provider)
	if err != nil {
		return nil, err
	}
	defer func() { _ = drv.Close() }()
	return drv.ValidateCredentials(ctx, creds), nil
}
