package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"InsightBlitz/internal/api"
	"InsightBlitz/internal/auth"
	"InsightBlitz/internal/cache"
	"InsightBlitz/internal/config"
	"InsightBlitz/internal/engine"
	"InsightBlitz/internal/infrastructure/extract"
	"InsightBlitz/internal/infrastructure/llm"
	"InsightBlitz/internal/infrastructure/storage"
	"InsightBlitz/internal/insight"
	"InsightBlitz/internal/logging"
	"InsightBlitz/internal/ports"
)

// Application wires configuration into the engine, the cache, and the
// API server, and owns their lifecycle. One instance per process.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	eng    *engine.Engine
	server *api.Server
	cache  ports.Cache
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var (
		store   ports.InsightStore
		domains ports.DomainSource
	)
	if cfg.Storage.DatabaseDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := storage.OpenPostgres(ctx, cfg.Storage.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = storage.NewPostgresStore(db, cfg.Storage.RetentionCap)
		domains = storage.NewPostgresDomainSource(db)
		baseLogger.Info("using postgres storage")
	} else {
		store = storage.NewJSONStore(cfg.Storage.InsightLogPath, cfg.Storage.RetentionCap,
			logging.Component(baseLogger, "storage"))
		domains = storage.NewFileDomainSource(cfg.Storage.DomainsPath,
			logging.Component(baseLogger, "storage"))
	}

	var responseCache ports.Cache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.Cache.RedisURL, "insightblitz",
			logging.Component(baseLogger, "cache"))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		responseCache = redisCache
		baseLogger.Info("using redis response cache")
	} else {
		responseCache = cache.NewMemory(cfg.Cache.SweepInterval,
			logging.Component(baseLogger, "cache"))
	}

	var chatClient ports.ChatClient
	if cfg.OpenAI.APIKey != "" {
		chatClient = llm.NewOpenAIClient(cfg.OpenAI)
		baseLogger.Info("llm synthesis enabled", "model", cfg.OpenAI.Model)
	} else {
		baseLogger.Info("no llm configured, running template-only")
	}

	extractor := extract.New(nil, cfg.Engine.FetchTimeout)
	generator := insight.NewGenerator(extractor, chatClient,
		logging.Component(baseLogger, "generator"))

	eng := engine.New(engine.Config{
		TargetPerHour:    cfg.Engine.TargetPerHour,
		QualityThreshold: cfg.Engine.QualityThreshold,
		Turbo:            cfg.Engine.Turbo,
		MaxConcurrent:    cfg.Engine.MaxConcurrent,
	}, generator, store, domains, logging.Component(baseLogger, "engine"))

	authManager, err := auth.NewManager(cfg.Server.APIToken, cfg.Server.APIKeysPath,
		logging.Component(baseLogger, "auth"))
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	handlers := api.NewHandlers(store, domains, eng, responseCache, cfg.Cache.DefaultTTL,
		authManager, logging.Component(baseLogger, "api"))
	server := api.NewServer(cfg.Server, handlers, authManager)

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		eng:    eng,
		server: server,
		cache:  responseCache,
	}, nil
}

// Run starts the engine and serves the API until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.eng.Start(0)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", a.cfg.Server.ListenAddr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.eng.Stop()
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	a.eng.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("shutdown api server: %w", err)
	}

	if closer, ok := a.cache.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}
