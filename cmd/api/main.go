// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/chat"
	"github.com/karierin/career-assistant/internal/config"
	"github.com/karierin/career-assistant/internal/dashboard"
	"github.com/karierin/career-assistant/internal/handler"
	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/llm"
	natsclient "github.com/karierin/career-assistant/internal/nats"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
	"github.com/karierin/career-assistant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("store", cfg.StoreDriver), zap.String("provider", cfg.InferenceProvider))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "karierin-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Connect to NATS when event publishing is enabled
	var (
		natsClient *natsclient.Client
		events     service.Publisher = service.NopPublisher{}
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		stream := natsclient.NewEventStream(natsClient)
		if err := stream.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		events = stream
	}

	asker, err := llm.NewAsker(llm.Provider(cfg.InferenceProvider), llm.Options{
		WebhookURL:      cfg.RAGWebhookURL,
		WebhookTimeout:  cfg.RAGTimeout,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
	})
	if err != nil {
		log.Error("failed to create inference client", zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	sessionSvc := service.NewSessionService(st, events, log)
	messageSvc := service.NewMessageService(st, sessionSvc, events, log)

	dashboards := dashboard.NewRegistry(sessionSvc, nil, log)
	engine := chat.NewEngine(chat.Config{
		Sessions: sessionSvc,
		Messages: messageSvc,
		Asker:    asker,
		Notifier: dashboards,
		Events:   events,
		Logger:   log,
	})
	dashboards.SetCanceller(engine)

	revoker := identity.NewRevoker()

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		Revoker:            revoker,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,

		Health:    handler.NewHealthHandler(st, natsClient),
		Auth:      handler.NewAuthHandler(revoker, dashboards, log),
		Dashboard: handler.NewDashboardHandler(dashboards, log),
		Sessions:  handler.NewSessionHandler(dashboards, sessionSvc, log),
		Messages:  handler.NewMessageHandler(messageSvc, engine, log),
		Stream:    handler.NewStreamHandler(engine, log),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.LogFormat == "console" {
		return logger.NewDevelopment(cfg.LogLevel)
	}
	return logger.New(cfg.LogLevel)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return store.NewPostgres(ctx, store.PostgresConfig{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
	case config.StoreMemory, "":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
