// Package httpapi is the thin HTTP gateway fronting the job runtime and
// vector store: presign/enqueue, status polling, SSE streaming, file
// download, collection listing and health. Grounded on the original
// source's api/v1/routes/{ingest,generate,files}.py for the exact contract
// and the teacher's Gin usage (sse-rag-service) for the Go HTTP idiom.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/embedding"
	"github.com/remilrls/knowhub/internal/jobs"
	"github.com/remilrls/knowhub/internal/storage"
	"github.com/remilrls/knowhub/internal/vectorstore"
)

// Server holds the collaborators every handler needs.
type Server struct {
	Bucket        *storage.Bucket
	Store         *vectorstore.Store
	Redis         *redis.Client
	IngestQueue   *jobs.Queue
	ProcessQueue  *jobs.Queue
	GenerationQ   *jobs.Queue
	Results       *jobs.ResultBackend
	Streams       *jobs.StreamLog
	Embedder      *embedding.Client
	PresignExpiry time.Duration
	MaxUploadSize int64
	AllowedExt    func(ext string) bool
	Log           *zap.Logger
}

// NewRouter builds the Gin engine with every route wired in, mirroring the
// teacher's gin.New()+gin.Logger()+gin.Recovery() construction.
func (s *Server) NewRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())

	ingest := r.Group("/ingest")
	{
		ingest.POST("/upload/presign", s.presignUpload)
		ingest.POST("/upload/presign/batch", s.presignUploadBatch)
		ingest.POST("/enqueue", s.enqueueAfterUpload)
		ingest.POST("/enqueue/batch", s.enqueueAfterUploadBatch)
		ingest.GET("/status/:job_id", s.jobStatus)
	}

	generate := r.Group("/generate")
	{
		generate.POST("/", s.generateEndpoint)
		generate.GET("/status/:job_id", s.generationStatus)
		generate.GET("/stream/:job_id", s.generateStream)
	}

	files := r.Group("/files")
	{
		files.GET("/download", s.downloadURL)
	}

	r.GET("/collections/", s.listCollections)
	r.GET("/health/", s.health)

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
