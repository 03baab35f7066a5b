// Command api runs the HTTP gateway: presign/enqueue, status polling, SSE
// generation streaming, file download, and collection listing.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/config"
	"github.com/remilrls/knowhub/internal/embedding"
	"github.com/remilrls/knowhub/internal/httpapi"
	"github.com/remilrls/knowhub/internal/jobs"
	"github.com/remilrls/knowhub/internal/observability/tracing"
	"github.com/remilrls/knowhub/internal/storage"
	"github.com/remilrls/knowhub/internal/vectorstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load("config/settings.json")
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName+"-api")
	if err != nil {
		logger.Warn("tracing init failed, continuing without it", zap.Error(err))
	} else {
		defer shutdownTracing(ctx)
	}

	bucket, err := storage.New(ctx, storage.Config{
		InternalEndpoint: cfg.MinIOInternalEndpoint,
		PublicEndpoint:   cfg.MinIOPublicEndpoint,
		AccessKey:        cfg.MinIOAccessKey,
		SecretKey:        cfg.MinIOSecretKey,
		Bucket:           cfg.MinIOBucket,
		Secure:           cfg.MinIOSecure,
	}, logger)
	if err != nil {
		logger.Fatal("bucket init failed", zap.Error(err))
	}

	store, err := vectorstore.New(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		logger.Fatal("vectorstore init failed", zap.Error(err))
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	server := &httpapi.Server{
		Bucket:        bucket,
		Store:         store,
		Redis:         rdb,
		IngestQueue:   jobs.NewQueue(rdb, jobs.IngestQueue),
		ProcessQueue:  jobs.NewQueue(rdb, jobs.ProcessQueue),
		GenerationQ:   jobs.NewQueue(rdb, jobs.GenerationQueue),
		Results:       jobs.NewResultBackend(rdb),
		Streams:       jobs.NewStreamLog(rdb),
		Embedder:      embedding.Default(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingBatch),
		PresignExpiry: cfg.PresignExpiry,
		MaxUploadSize: cfg.MaxUploadBytes,
		AllowedExt:    cfg.AllowsExtension,
		Log:           logger,
	}

	router := server.NewRouter()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PresignExpiry)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("api server failed", zap.Error(err))
	}
}
