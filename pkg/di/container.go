package di

import (
	"context"
	"fmt"
	"time"

	"medichat-client/internal/backend"
	"medichat-client/internal/service"
	"medichat-client/internal/session"
	"medichat-client/internal/suggest"
	"medichat-client/internal/ws"
	"medichat-client/pkg/cache"
	"medichat-client/pkg/config"
	"medichat-client/pkg/health"
	"medichat-client/pkg/logger"
	"medichat-client/shared/observability"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Container holds all the dependencies for the application
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	KV            session.KV
	SessionStore  *session.Store
	Backend       *backend.Client
	DetailCache   *cache.Cache
	ChatService   *service.ChatService
	Suggestions   *suggest.Engine
	Hub           *ws.Hub
	Health        *health.Checker
	MeterProvider *sdkmetric.MeterProvider
}

// Options configures container construction. A nil KV selects Redis from
// the application config.
type Options struct {
	LoggerConfig  logger.Config
	KV            session.KV
	EnableMetrics bool
}

// DefaultOptions returns options seeded from the application config
func DefaultOptions() Options {
	cfg := config.Get()
	return Options{
		LoggerConfig: logger.Config{
			Level: cfg.Logging.Level,
			JSON:  cfg.Logging.Format == "json",
		},
		EnableMetrics: true,
	}
}

// New creates a new dependency injection container
func New(opts Options) (*Container, error) {
	cfg := config.Get()

	// Initialize the logger
	log := logger.New(opts.LoggerConfig)
	logger.SetGlobal(log)

	// Durable KV backing the session history
	kv := opts.KV
	if kv == nil {
		kv = session.NewRedisKV(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	store, err := session.NewStore(kv, cfg.Redis.Namespace, cfg.Features.SessionTitleLength, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	// Medicine backend client and the services over it
	backendClient := backend.New()

	var detailCache *cache.Cache
	if cfg.Cache.Enabled {
		detailCache = cache.NewCache()
	}

	chatService := service.NewChatService(store, backendClient, detailCache, log)
	suggestions := suggest.NewEngine(backendClient, cfg.Features.MaxSuggestions, log)

	// Turn-event hub
	hub := ws.NewHub(log)
	chatService.SetPublisher(hub)

	// Metrics
	var mp *sdkmetric.MeterProvider
	if opts.EnableMetrics {
		mp = observability.SetupPrometheusMetrics()
		metrics, err := observability.NewQueryMetrics(mp)
		if err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
		chatService.SetRecorder(metrics)
	}

	// Health checks
	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStoreCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.Ping(ctx)
	})
	checker.RegisterBackendCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return backendClient.Health(ctx)
	})

	return &Container{
		Config:        cfg,
		Logger:        log,
		KV:            kv,
		SessionStore:  store,
		Backend:       backendClient,
		DetailCache:   detailCache,
		ChatService:   chatService,
		Suggestions:   suggestions,
		Hub:           hub,
		Health:        checker,
		MeterProvider: mp,
	}, nil
}
