package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voicebridge/telephony-relay-go/internal/agent"
	"github.com/voicebridge/telephony-relay-go/internal/callstate"
	"github.com/voicebridge/telephony-relay-go/internal/config"
	"github.com/voicebridge/telephony-relay-go/internal/database"
	"github.com/voicebridge/telephony-relay-go/internal/handler"
	"github.com/voicebridge/telephony-relay-go/internal/jobs"
	"github.com/voicebridge/telephony-relay-go/internal/middleware"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/platform"
	"github.com/voicebridge/telephony-relay-go/internal/provider"
	"github.com/voicebridge/telephony-relay-go/internal/redis"
	"github.com/voicebridge/telephony-relay-go/internal/repository"
	"github.com/voicebridge/telephony-relay-go/internal/service"
	"github.com/voicebridge/telephony-relay-go/internal/vault"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	credentialVault, err := vault.NewFromHex(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize credential vault")
	}

	integrationRepo := repository.NewIntegrationRepository(db.DB)
	bindingRepo := repository.NewBindingRepository(db.DB)
	callStore := callstate.NewStore(redisClient, cfg.CallTTL(), cfg.EventSeenTTL())

	adapters := provider.NewRegistry(
		provider.NewTwilio(),
		provider.NewTelnyx(),
		provider.NewPlivo(),
	)

	provisioner := platform.NewRESTProvisioner(cfg.PlatformURL, cfg.PlatformAPIKey)
	dispatcher := platform.NewRESTDispatcher(cfg.PlatformURL, cfg.PlatformAPIKey)
	agentResolver := agent.NewRESTResolver(cfg.AgentServiceURL, cfg.AgentServiceAPIKey)

	defaultAgent := model.AgentConfig{
		AgentID:  cfg.DefaultAgentID,
		Name:     cfg.DefaultAgentName,
		Greeting: cfg.DefaultAgentGreeting,
	}

	onboardingService := service.NewOnboardingService(
		integrationRepo, bindingRepo, credentialVault, adapters, provisioner, cfg.SIPInboundHostname,
	)
	routingService := service.NewRoutingService(bindingRepo, agentResolver, defaultAgent)
	webhookService := service.NewWebhookService(callStore, routingService, dispatcher)

	authMiddleware := middleware.NewAuthMiddleware(cfg.ManagementToken)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSecret)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(config.MaxWebhookBodyBytes)

	integrationHandler := handler.NewIntegrationHandler(onboardingService)
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.TelephonyEnabled)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		checks := map[string]string{"database": "ok", "redis": "ok"}

		if err := db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/platform", func(r chi.Router) {
		r.Use(signatureMiddleware.Handler)
		r.Post("/webhook", webhookHandler.Receive)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", integrationHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(integrationRepo, bindingRepo, cfg.Retention(), config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
