// Command worker runs the job runtime: the two ingest actors
// (validate_and_promote, ingest_document) and the two generation actors
// (generate_answer_stream, generate_answer), grounded on the teacher's
// legal-gateway/worker.go process shape.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/config"
	"github.com/remilrls/knowhub/internal/embedding"
	"github.com/remilrls/knowhub/internal/generation"
	"github.com/remilrls/knowhub/internal/jobs"
	"github.com/remilrls/knowhub/internal/llm"
	"github.com/remilrls/knowhub/internal/observability/tracing"
	"github.com/remilrls/knowhub/internal/pipeline"
	"github.com/remilrls/knowhub/internal/storage"
	"github.com/remilrls/knowhub/internal/vectorstore"
)

const defaultCollection = "default"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load("config/settings.json")
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName+"-worker")
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

	if _, err := store.CreateCollection(ctx, defaultCollection, vectorstore.IndexHNSW); err != nil {
		logger.Fatal("create default collection failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	provider, err := llm.New(llm.ProviderKind(cfg.LLMProvider), llm.Config{
		APIKey: cfg.LLMAPIKey, BaseURL: cfg.LLMBaseURL, Model: cfg.LLMModel,
	})
	if err != nil {
		logger.Fatal("llm provider init failed", zap.Error(err))
	}

	embedder := embedding.Default(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingBatch)
	orchestrator := generation.New(store, provider, bucket, logger)

	processQueue := jobs.NewQueue(rdb, jobs.ProcessQueue)
	ingestQueue := jobs.NewQueue(rdb, jobs.IngestQueue)
	generationQueue := jobs.NewQueue(rdb, jobs.GenerationQueue)
	results := jobs.NewResultBackend(rdb)
	streams := jobs.NewStreamLog(rdb)

	ingestDeps := &jobs.IngestDeps{
		Bucket:     bucket,
		ProcessQ:   processQueue,
		Loader:     pipeline.NewLoader(cfg.MaxUploadBytes, nil),
		Normalizer: pipeline.NewNormalizer(),
		Splitter:   pipeline.NewSplitter(),
		Embedder:   embedder,
		Store:      store,
		Collection: defaultCollection,
		Log:        logger,
	}
	generateDeps := &jobs.GenerateDeps{Orchestrator: orchestrator, Embedder: embedder, Streams: streams}

	runtime := jobs.NewRuntime(results, logger)
	runtime.RegisterActor(ingestQueue, "validate_and_promote", 0, true, ingestDeps.ValidateAndPromote)
	runtime.RegisterActor(processQueue, "ingest_document", 3, true, ingestDeps.IngestDocument)
	runtime.RegisterActor(generationQueue, "generate_answer_stream", 3, false, generateDeps.GenerateAnswerStream)
	runtime.RegisterActor(generationQueue, "generate_answer", 3, true, generateDeps.GenerateAnswer)

	logger.Info("worker runtime starting")
	runtime.Run(ctx)
	logger.Info("worker runtime stopped")
}
