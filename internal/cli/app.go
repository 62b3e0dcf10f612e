package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"parishregistry/internal/blob"
	"parishregistry/internal/catalog"
	"parishregistry/internal/config"
	"parishregistry/internal/core"
	"parishregistry/internal/platform/logger"
	"parishregistry/pkg/domain"
)

// app is the per-invocation wiring of configuration, store and service.
type app struct {
	cfg     config.Config
	opts    *RootOptions
	log     *slog.Logger
	store   core.PersistentStore
	svc     *core.Service
	out     output
	metrics *prometheus.Registry
}

func (o *RootOptions) overlay(cfg *config.Config) {
	if o.Storage != "" {
		cfg.Storage.Driver = core.StorageDriver(o.Storage)
	}
	if o.DBPath != "" {
		cfg.Storage.SQLitePath = o.DBPath
	}
	if o.CatalogPath != "" {
		cfg.CatalogPath = o.CatalogPath
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}

// openApp loads configuration and opens the register store. Callers must
// Close the returned app.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, usageError{err}
	}
	opts.overlay(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, usageError{err}
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, usageError{err}
	}

	var cat catalog.Catalog = catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, usageError{err}
		}
		cat = loaded
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, nil)
	if err != nil {
		return nil, domain.StorageError{Op: "open", Err: err}
	}

	a := &app{
		cfg:   cfg,
		opts:  opts,
		log:   log,
		store: store,
		out:   newOutput(opts, cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
	svcOpts := []core.Option{
		core.WithLogger(log),
		core.WithCatalog(cat),
		core.WithAuditRecorder(auditLog{log: log}),
	}
	if opts.MetricsFile != "" {
		a.metrics = prometheus.NewRegistry()
		svcOpts = append(svcOpts, core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(a.metrics)))
	}
	if opts.Trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	a.svc = core.NewService(store, svcOpts...)
	log.Debug("store opened", "driver", string(cfg.Storage.Driver))
	return a, nil
}

// Close flushes metrics and releases the store.
func (a *app) Close() error {
	var errs []error
	if a.metrics != nil {
		if err := prometheus.WriteToTextfile(a.opts.MetricsFile, a.metrics); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// openBlobs opens the archive store named by the configuration.
func (a *app) openBlobs(ctx context.Context) (blob.Store, error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, domain.StorageError{Op: "open blob store", Err: err}
	}
	return store, nil
}

// withApp opens the app, runs fn and closes it, keeping fn's error first.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(*app) error) (err error) {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func (a *app) parish() (string, error) {
	parish := strings.TrimSpace(a.opts.Parish)
	if parish == "" {
		return "", usageError{errors.New("--parish is required")}
	}
	return parish, nil
}

// auditLog writes audit entries to the structured log.
type auditLog struct {
	log *slog.Logger
}

func (l auditLog) Record(ctx context.Context, e core.AuditEntry) {
	level := slog.LevelInfo
	if e.Status == core.AuditStatusError {
		level = slog.LevelWarn
	}
	l.log.Log(ctx, level, "audit",
		"operation", e.Operation,
		"entity", string(e.Entity),
		"action", string(e.Action),
		"entity_id", e.EntityID,
		"status", string(e.Status),
		"error", e.Error,
		"duration", e.Duration,
	)
}
