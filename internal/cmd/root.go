// Package cmd wires the imaginestorage command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jhaempyre/imaginestorage-sub000/internal/config"
	"github.com/Jhaempyre/imaginestorage-sub000/internal/observability"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/configstore"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/orchestrator"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider/azure"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider/gcs"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider/local"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider/s3"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/registry"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/service"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/vault"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "imaginestorage",
	Short: "Multi-tenant cloud storage provider layer",
	Long: `imaginestorage manages per-user storage provider configurations and
object operations across S3, GCS, Azure Blob, and local storage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.Version = versionInfo.Version
}

// Execute runs the command tree.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env collects everything a command needs: the resolved config, the logger,
// the service, and the store handle for cleanup.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *service.Service
	store   *configstore.Store
}

func (e *env) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// buildEnv loads config, configures logging, and wires the service with all
// registered drivers.
func buildEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := observability.Configure(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return nil, err
	}

	if cfg.VaultKey == "" {
		return nil, fmt.Errorf("IMAGINESTORAGE_VAULT_KEY is required")
	}
	v, err := vault.New(cfg.VaultKey)
	if err != nil {
		return nil, err
	}

	store, err := configstore.Open(ctx, configstore.Config{Path: cfg.DatabasePath})
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	reg.Register(provider.ProviderAWS, func() provider.Driver { return s3.New() })
	reg.Register(provider.ProviderGCP, func() provider.Driver { return gcs.New() })
	reg.Register(provider.ProviderAzure, func() provider.Driver { return azure.New() })
	reg.Register(provider.ProviderLocal, func() provider.Driver { return local.New() })

	orch := orchestrator.New(orchestrator.Options{
		Concurrency: cfg.Workers,
		RateLimit:   cfg.RateLimit,
	})

	return &env{
		cfg:     cfg,
		logger:  logger,
		service: service.New(reg, store, v, orch, logger),
		store:   store,
	}, nil
}
