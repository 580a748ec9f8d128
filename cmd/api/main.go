package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeghana/internal/ai"
	"resumeghana/internal/api"
	"resumeghana/internal/auth"
	"resumeghana/internal/builder"
	"resumeghana/internal/completion"
	"resumeghana/internal/config"
	"resumeghana/internal/database"
	"resumeghana/internal/render"
	"resumeghana/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("%v", err)
	}
	logger.Info("database ready")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(context.Background(), cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	completer, err := completion.New(completion.Config{
		APIToken:          cfg.Completion.APIToken,
		Model:             cfg.Completion.Model,
		URL:               cfg.Completion.URL,
		Timeout:           cfg.Completion.Timeout,
		MaxTokens:         cfg.Completion.MaxTokens,
		RequestsPerMinute: cfg.Completion.RequestsPerMinute,
	})
	if err != nil {
		log.Fatalf("init completion client: %v", err)
	}
	logger.Info("completion client ready", slog.String("model", completer.Model()))

	usage := database.NewUsageStore(db)
	aiService := ai.New(completer, ai.WithUsageRecorder(usage), ai.WithLogger(logger))

	var templateFS fs.FS
	if dir := strings.TrimSpace(cfg.Templates.Dir); dir != "" {
		templateFS = os.DirFS(dir)
	}
	catalog, err := render.NewCatalog(templateFS, logger)
	if err != nil {
		log.Fatalf("load resume templates: %v", err)
	}

	tokens, err := loadAuthService(cfg.Auth)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		AI:             aiService,
		Builder:        builder.New(aiService, catalog, logger),
		Renderer:       catalog,
		Photos:         storageClient,
		PhotoStorage:   storageClient,
		Scanner:        api.NewClamdScanner(cfg.Clamd.Address),
		Links:          storageClient,
		Queue:          queue,
		Usage:          usage,
		Tokens:         tokens,
		Redis:          redisClient,
		Logger:         logger,
		DB:             db,
		AIRateLimit:    cfg.API.AIRateLimit,
		MaxResumes:     cfg.API.MaxResumes,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down api server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

// loadAuthService 读取公钥；私钥文件存在时一并加载。
func loadAuthService(cfg config.AuthConfig) (*auth.AuthService, error) {
	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	var privatePEM []byte
	if cfg.PrivateKeyPath != "" {
		privatePEM, err = os.ReadFile(cfg.PrivateKeyPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read private key: %w", err)
		}
	}
	return auth.NewAuthService(privatePEM, publicPEM, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}
