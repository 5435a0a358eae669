// Package cli wires configuration into a running assistant and holds the
// command implementations shared by the concierge binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/adapters/file"
	"github.com/aretw0/concierge/internal/adapters/maps"
	"github.com/aretw0/concierge/internal/adapters/search"
	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/internal/hospital"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/tools"
	"github.com/aretw0/concierge/pkg/adapters/llm"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/observability"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a fully wired assistant with the resources it owns.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Assistant *concierge.Assistant
	Hospital  *sqlite.Store
	Store     ports.CheckpointStore
	Metrics   *observability.Metrics

	closers []func() error
}

// AppOption overrides a collaborator, mostly for tests.
type AppOption func(*appOptions)

type appOptions struct {
	model  ports.Model
	logger *slog.Logger
}

// WithModel replaces the configured language model.
func WithModel(m ports.Model) AppOption {
	return func(o *appOptions) { o.model = m }
}

// WithAppLogger replaces the logger built from the config.
func WithAppLogger(l *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = l }
}

// NewLogger builds the application logger for cfg.
func NewLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.LogLevel))
}

// NewApp validates cfg and builds the assistant.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (_ *App, err error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	app := &App{Config: cfg, Logger: o.logger}
	if app.Logger == nil {
		app.Logger = NewLogger(cfg)
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.Hospital, err = OpenHospital(ctx, cfg, app.Logger); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Hospital.Close)

	store, locker, closeStore, err := OpenCheckpointStore(cfg.Checkpoint, app.Logger)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	model := o.model
	if model == nil {
		model, err = llm.New(cfg.Model.Provider, cfg.Model.APIKey, cfg.Model.Name,
			llm.WithMaxTokens(cfg.Model.MaxTokens),
			llm.WithMaxRetries(cfg.Model.MaxRetries),
			llm.WithBaseURL(cfg.Model.BaseURL),
		)
		if err != nil {
			return nil, err
		}
	}

	svc := tools.Services{Hospital: app.Hospital, Model: model, Logger: app.Logger}
	if cfg.Maps.APIKey != "" {
		mapsOpts := []maps.Option{maps.WithCache(cfg.Maps.CacheSize, cfg.Maps.CacheTTL), maps.WithLogger(app.Logger)}
		if cfg.Maps.BaseURL != "" {
			mapsOpts = append(mapsOpts, maps.WithBaseURL(cfg.Maps.BaseURL))
		}
		navigator, err := maps.New(cfg.Maps.APIKey, mapsOpts...)
		if err != nil {
			return nil, err
		}
		svc.Maps = navigator
	} else {
		app.Logger.Warn("no maps api key; directions tools will report the service unavailable")
	}
	if cfg.Search.APIKey != "" {
		searchOpts := []search.Option{search.WithLogger(app.Logger)}
		if cfg.Search.Endpoint != "" {
			searchOpts = append(searchOpts, search.WithEndpoint(cfg.Search.Endpoint))
		}
		searcher, err := search.NewTavily(cfg.Search.APIKey, searchOpts...)
		if err != nil {
			return nil, err
		}
		svc.Search = searcher
	} else {
		app.Logger.Warn("no search api key; web search will report the service unavailable")
	}

	roster, err := hospital.NewRoster(svc)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(reg)

	botOpts := []concierge.Option{
		concierge.WithLogger(app.Logger),
		concierge.WithLifecycleHooks(observability.LogHooks(app.Logger).Merge(app.Metrics.Hooks())),
		concierge.WithCheckpointStore(store),
		concierge.WithUserContextProvider(app.Hospital),
		concierge.WithMaxSteps(cfg.Engine.MaxSteps),
		concierge.WithMaxModelAttempts(cfg.Engine.MaxModelAttempts),
		concierge.WithToolConcurrency(cfg.Engine.ToolConcurrency),
		concierge.WithGeneration(cfg.Model.Temperature, cfg.Model.MaxTokens),
	}
	if locker != nil {
		botOpts = append(botOpts, concierge.WithLocker(locker, cfg.Checkpoint.LockTTL))
	}
	if app.Assistant, err = concierge.New(roster, model, botOpts...); err != nil {
		return nil, err
	}
	return app, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenHospital opens the hospital database, seeding it when configured.
func OpenHospital(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlite.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	db, err := sqlite.Open(cfg.Hospital.DBPath, sqlite.WithLogger(logger), sqlite.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	if cfg.Hospital.Seed {
		if err := db.Seed(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenCheckpointStore builds the configured backend wrapped in the PII and
// encryption middlewares. The locker is nil unless the backend is shared.
func OpenCheckpointStore(cfg config.CheckpointConfig, logger *slog.Logger) (ports.CheckpointStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.CheckpointStore
		locker ports.DistributedLocker
		closer = func() error { return nil }
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Dir)
	case config.BackendRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.Prefix+":thread:"),
			redis.WithTTL(cfg.TTL),
		)
		store = rs
		locker = redis.NewLocker(rs.Client(), cfg.Prefix+":")
		closer = rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := (&config.Config{Checkpoint: cfg}).EncryptionKey()
		if err != nil {
			return nil, nil, nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, enc)
	}

	logger.Debug("checkpoint store ready", "backend", cfg.Backend, "middlewares", len(mws), "locking", locker != nil)
	return middleware.Chain(store, mws...), locker, closer, nil
}
