package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remilrls/knowhub/internal/jobs"
)

var streamNonce uint64

// newStreamCorrelationID mints a "stream-{ms_epoch}-{local_nonce}" id so
// stream keys sort roughly by creation time and stay unique per process,
// matching the spec's streaming correlation-id format.
func newStreamCorrelationID() string {
	n := atomic.AddUint64(&streamNonce, 1)
	return fmt.Sprintf("stream-%d-%d", time.Now().UnixMilli(), n)
}

type generateRequest struct {
	Collection  string   `json:"collection" binding:"required"`
	Question    string   `json:"question" binding:"required"`
	K           int      `json:"k"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stream      bool     `json:"stream"`
	Sources     []string `json:"sources,omitempty"`
}

func (r generateRequest) withDefaults() generateRequest {
	if r.K <= 0 {
		r.K = 5
	}
	if r.Temperature <= 0 {
		r.Temperature = 0.2
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = 1024
	}
	return r
}

func (s *Server) generateEndpoint(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req = req.withDefaults()

	actor := "generate_answer"
	jobID := ""
	if req.Stream {
		actor = "generate_answer_stream"
		jobID = newStreamCorrelationID()
	}

	payload := jobs.GenerateRequest{
		JobID: jobID, Collection: req.Collection, Question: req.Question,
		K: req.K, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Sources: req.Sources,
	}

	enqueuedID, err := s.GenerationQ.Enqueue(c.Request.Context(), actor, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobID == "" {
		jobID = enqueuedID
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "pending"})
}

func (s *Server) generationStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	var result any
	status, err := s.Results.Get(c.Request.Context(), jobID, &result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	switch status {
	case jobs.ResultDone:
		c.JSON(http.StatusOK, gin.H{"status": "completed", "result": result})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
	}
}

// generateStream serves the generation event log as Server-Sent Events,
// long-polling the Redis Stream and forwarding typed token/done/error
// events until exactly one terminal event has been sent or the client
// disconnects.
func (s *Server) generateStream(c *gin.Context) {
	jobID := c.Param("job_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	lastID := "0"

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		events, newLastID, err := s.Streams.Read(ctx, jobID, lastID, 10, time.Second)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", errJSON(err))
			c.Writer.Flush()
			return
		}
		lastID = newLastID

		terminal := false
		for _, ev := range events {
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, string(ev.Data))
			if ev.Type == "done" || ev.Type == "error" {
				terminal = true
			}
		}
		c.Writer.Flush()
		if terminal {
			return
		}
	}
}

func errJSON(err error) string {
	data, _ := json.Marshal(map[string]string{"message": err.Error()})
	return string(data)
}
