package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// health reports basic liveness: Redis reachability and Postgres pool
// reachability, mirroring the recurring healthHandler the teacher exposes
// on every service (sse-rag-service, document-chunker,
// go-inference-service).
func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	redisOK := s.Redis.Ping(ctx).Err() == nil

	pgOK := true
	if exists, err := s.Store.TableExists(ctx, "health_check_probe"); err != nil {
		_ = exists
		pgOK = false
	}

	status := http.StatusOK
	if !redisOK || !pgOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"redis": redisOK, "postgres": pgOK})
}
