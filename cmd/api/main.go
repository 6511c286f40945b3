package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"care-relay/internal/config"
	"care-relay/internal/db"
	apihttp "care-relay/internal/http"
	"care-relay/internal/llm"
	"care-relay/internal/render"
	"care-relay/internal/repository"
	"care-relay/internal/service"
	"care-relay/internal/storage"
	"care-relay/internal/stt"
	"care-relay/internal/ws"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	probes := map[string]apihttp.Probe{}

	// Store relacional (pacientes y reportes). Opcional: sin base el
	// servicio arranca degradado.
	var (
		patientRepo repository.PatientRepository
		reportRepo  repository.ReportRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("db connect failed, continuing without relational store", zap.Error(err))
			// La base esta configurada pero rota: /health debe decirlo,
			// no omitir la entrada.
			connErr := err
			probes["database"] = func(context.Context) error { return connErr }
		} else {
			defer pool.Close()
			if err := repository.EnsureSchema(ctx, pool); err != nil {
				logger.Warn("schema init failed", zap.Error(err))
			}
			patientRepo = repository.NewPgPatientRepository(pool)
			reportRepo = repository.NewPgReportRepository(pool)
			probes["database"] = func(ctx context.Context) error { return db.Ping(ctx, pool) }
		}
	} else {
		probes["database"] = nil
	}

	// Store conversacional en Redis, con expiracion por sesion.
	conversations := repository.NewDisabledConversationStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, message persistence disabled", zap.Error(err))
		}
		cancel()
		ttl := time.Duration(cfg.ConversationTTLDays) * 24 * time.Hour
		conversations = repository.NewRedisConversationStore(redisClient, ttl)
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn("redis not configured, message persistence disabled")
		probes["redis"] = nil
	}

	// Backend generativo, con eco como fallback si no hay API key.
	var modelClient llm.Client = llm.EchoClient{}
	if cfg.LLMAPIKey != "" {
		httpModel := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
		modelClient = httpModel
		probes["model"] = httpModel.Health
	} else {
		logger.Warn("llm api key not configured, using echo fallback")
		probes["model"] = nil
	}

	// Transcripcion de voz.
	transcriber := stt.NewDisabledTranscriber()
	if cfg.STTBaseURL != "" {
		httpSTT := stt.NewHTTPClient(cfg.STTBaseURL, cfg.STTAPIKey, logger)
		transcriber = httpSTT
		probes["stt"] = httpSTT.Health
	} else {
		logger.Warn("stt not configured, audio frames will be rejected")
		probes["stt"] = nil
	}

	// Render de reportes.
	renderer := render.NewDisabledRenderer()
	if cfg.RenderBaseURL != "" {
		renderer = render.NewHTTPRenderer(cfg.RenderBaseURL)
	} else {
		logger.Warn("render service not configured, reports will not produce documents")
	}

	blobs := storage.NewLocalBlobStore(cfg.FilesDir, cfg.FilesBaseURL)

	classifier := service.NewClassifier(transcriber, logger)
	builder := service.NewContextBuilder(conversations, cfg.ContextWindow, logger)
	detector := service.NewSignalDetector(logger)
	reportSvc := service.NewReportService(builder, modelClient, renderer, blobs, reportRepo, logger)
	orchestrator := service.NewSessionOrchestrator(classifier, conversations, builder, modelClient, detector, reportSvc, logger)

	wsServer := ws.NewServer(orchestrator, time.Duration(cfg.FinalizeTimeoutSeconds)*time.Second, logger)
	healthHandler := apihttp.NewHealthHandler(logger, probes)
	patientHandler := apihttp.NewPatientHandler(logger, patientRepo, reportRepo)
	uploadHandler := apihttp.NewUploadHandler(logger, blobs, conversations, builder, modelClient)

	router := apihttp.NewRouter(logger, healthHandler, patientHandler, uploadHandler, wsServer, cfg.FilesDir)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
