package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fixitnow/fixitnow-backend/config"
	"github.com/fixitnow/fixitnow-backend/internal/api/http/routes"
	"github.com/fixitnow/fixitnow-backend/internal/auth"
	"github.com/fixitnow/fixitnow-backend/internal/bootstrap"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/ai"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/chat"
	diaghttp "github.com/fixitnow/fixitnow-backend/internal/diagnosis/http"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/imagestore"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/media"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/repository"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/service"
	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/servicecenter"
	"github.com/fixitnow/fixitnow-backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstrap.SetGinMode(cfg.App.Environment)

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var db *pgxpool.Pool
	if cfg.Storage.HistoryBackend == config.BackendPostgres {
		db, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:             cfg.Database.ConnString(),
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			logger.Fatal("Failed to connect database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected")
	}

	history, err := historyStore(ctx, cfg, rdb, db)
	if err != nil {
		logger.Fatal("Failed to init history store", zap.Error(err))
	}
	sessions := sessionStore(cfg, rdb)

	images, err := imageStore(cfg)
	if err != nil {
		logger.Fatal("Failed to init image store", zap.Error(err))
	}

	gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{
		APIKey:         cfg.Gemini.APIKey,
		DiagnosisModel: cfg.Gemini.DiagnosisModel,
		ChatModel:      cfg.Gemini.ChatModel,
		RPS:            cfg.Gemini.RPS,
		Burst:          cfg.Gemini.Burst,
		RequestTimeout: cfg.Gemini.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to init Gemini", zap.Error(err))
	}

	normalizer := media.NewNormalizer(cfg.Diagnosis.MinRecording, cfg.Diagnosis.MaxMediaBytes)
	svc := service.NewDiagnosisService(service.Deps{
		Sessions:     sessions,
		History:      history,
		Collaborator: gemini,
		Chats:        chat.NewRegistry(gemini),
		Images:       images,
		Finder:       servicecenter.NewFinder(gemini, 0, cfg.Diagnosis.ServiceCenterCacheTTL, logger),
		Normalizer:   normalizer,
		Logger:       logger,
	})
	handler := diaghttp.New(svc, normalizer, logger, diaghttp.WithCollaboratorMetrics(gemini.Metrics()))

	v1 := routes.V1Deps{Diagnosis: handler, AuthRequired: cfg.Firebase.Required}
	if cfg.Firebase.Enabled {
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			logger.Fatal("Failed to init Firebase", zap.Error(err))
		}
		v1.Verifier = client
		logger.Info("Firebase auth enabled", zap.Bool("required", cfg.Firebase.Required))
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DB:             db,
		Redis:          rdb,
		Mount: func(api *gin.RouterGroup) {
			routes.RegisterV1(api, v1)
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("history_backend", cfg.Storage.HistoryBackend),
			zap.String("session_backend", cfg.Storage.SessionBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, stopping server...")
	case err := <-errCh:
		logger.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func historyStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, db *pgxpool.Pool) (repository.HistoryStore, error) {
	switch cfg.Storage.HistoryBackend {
	case config.BackendRedis:
		return repository.NewRedisHistoryStore(rdb), nil
	case config.BackendPostgres:
		store := repository.NewPostgresHistoryStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return repository.NewMemoryHistoryStore(), nil
}

func sessionStore(cfg *config.Config, rdb *redis.Client) repository.SessionStore {
	if cfg.Storage.SessionBackend == config.BackendRedis {
		return repository.NewRedisSessionStore(rdb, cfg.Diagnosis.SessionTTL)
	}
	return repository.NewMemorySessionStore(cfg.Diagnosis.SessionCacheSize, cfg.Diagnosis.SessionTTL)
}

func imageStore(cfg *config.Config) (imagestore.Store, error) {
	if !cfg.ImageStore.Enabled {
		return imagestore.DataURIStore{}, nil
	}
	return imagestore.NewMinioStore(imagestore.MinioConfig{
		Endpoint:      cfg.ImageStore.Endpoint,
		Region:        cfg.ImageStore.Region,
		AccessKey:     cfg.ImageStore.AccessKey,
		SecretKey:     cfg.ImageStore.SecretKey,
		Bucket:        cfg.ImageStore.Bucket,
		UseSSL:        cfg.ImageStore.UseSSL,
		PublicBaseURL: cfg.ImageStore.PublicBaseURL,
	})
}
