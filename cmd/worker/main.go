package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeghana/internal/ai"
	"resumeghana/internal/builder"
	"resumeghana/internal/completion"
	"resumeghana/internal/config"
	"resumeghana/internal/database"
	"resumeghana/internal/metrics"
	"resumeghana/internal/pdf"
	"resumeghana/internal/render"
	"resumeghana/internal/storage"
	"resumeghana/internal/tasks"
	"resumeghana/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(context.Background(), cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var templateFS fs.FS
	if dir := strings.TrimSpace(cfg.Templates.Dir); dir != "" {
		templateFS = os.DirFS(dir)
	}
	catalog, err := render.NewCatalog(templateFS, logger)
	if err != nil {
		log.Fatalf("load resume templates: %v", err)
	}

	// 未配置 token 时导出仍可进行，内容按原始输入渲染。
	var enricher builder.Enricher
	completer, err := completion.New(completion.Config{
		APIToken:          cfg.Completion.APIToken,
		Model:             cfg.Completion.Model,
		URL:               cfg.Completion.URL,
		Timeout:           cfg.Completion.Timeout,
		MaxTokens:         cfg.Completion.MaxTokens,
		RequestsPerMinute: cfg.Completion.RequestsPerMinute,
	})
	var cfgErr *completion.ConfigError
	switch {
	case err == nil:
		enricher = ai.New(completer, ai.WithUsageRecorder(database.NewUsageStore(db)), ai.WithLogger(logger))
	case errors.As(err, &cfgErr):
		logger.Warn("completion client disabled, exports render without enrichment", slog.Any("error", err))
	default:
		log.Fatalf("init completion client: %v", err)
	}

	exportHandler := worker.NewExportTaskHandler(
		db,
		builder.New(enricher, catalog, logger),
		pdf.NewGenerator(cfg.Worker.BrowserBin, cfg.Worker.PDFTimeout),
		storageClient,
		worker.NewRedisNotifier(redisClient),
		logger,
	)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeResumeExport, exportHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
