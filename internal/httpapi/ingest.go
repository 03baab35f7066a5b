package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/remilrls/knowhub/internal/jobs"
)

// presignExtraTTL pads the upload record's TTL past the presigned URL's own
// expiry, mirroring the original source's expires_in+120 seconds.
const presignExtraTTL = 120 * time.Second

type presignRequest struct {
	FileName string `json:"file_name" binding:"required"`
}

type presignResponse struct {
	DocID     string `json:"doc_id"`
	S3Key     string `json:"s3_key"`
	UploadURL string `json:"upload_url"`
	ExpiresIn int    `json:"expires_in"`
}

func (s *Server) writeUploadRecord(ctx context.Context, docID, key, fileName string) error {
	now := time.Now().UTC()
	expiresAt := now.Add(s.PresignExpiry)
	fields := map[string]any{
		"doc_id":     docID,
		"s3_key":     key,
		"filename":   fileName,
		"status":     "presigned",
		"created_at": now.Format(time.RFC3339),
		"expires_at": expiresAt.Format(time.RFC3339),
	}
	recordKey := "upload:" + docID
	if err := s.Redis.HSet(ctx, recordKey, fields).Err(); err != nil {
		return fmt.Errorf("httpapi: write upload record: %w", err)
	}
	return s.Redis.Expire(ctx, recordKey, s.PresignExpiry+presignExtraTTL).Err()
}

func (s *Server) presignOne(c *gin.Context, fileName string) (presignResponse, error) {
	docID := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s", docID, fileName)

	url, err := s.Bucket.PresignedPutURL(c.Request.Context(), key, s.PresignExpiry)
	if err != nil {
		return presignResponse{}, err
	}
	if err := s.writeUploadRecord(c.Request.Context(), docID, key, fileName); err != nil {
		return presignResponse{}, err
	}
	return presignResponse{
		DocID: docID, S3Key: key, UploadURL: url, ExpiresIn: int(s.PresignExpiry.Seconds()),
	}, nil
}

func (s *Server) presignUpload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := s.presignOne(c, req.FileName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type presignBatchRequest struct {
	FileNames []string `json:"file_names" binding:"required"`
}

func (s *Server) presignUploadBatch(c *gin.Context) {
	var req presignBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var results []presignResponse
	var refused []string
	for _, fn := range req.FileNames {
		resp, err := s.presignOne(c, fn)
		if err != nil {
			refused = append(refused, fn)
			continue
		}
		results = append(results, resp)
	}
	c.JSON(http.StatusOK, gin.H{"uploads": results, "file_refused": refused})
}

type enqueueRequest struct {
	DocID          string `json:"doc_id" binding:"required"`
	S3Key          string `json:"s3_key" binding:"required"`
	ExpectedSHA256 string `json:"expected_sha256" binding:"required"`
}

func (s *Server) enqueueOne(c *gin.Context, req enqueueRequest) (string, int, any) {
	ctx := c.Request.Context()
	recordKey := "upload:" + req.DocID
	record, err := s.Redis.HGetAll(ctx, recordKey).Result()
	if err != nil || len(record) == 0 {
		return "", http.StatusNotFound, gin.H{"error": "upload record not found or expired"}
	}
	if record["s3_key"] != req.S3Key || record["doc_id"] != req.DocID {
		return "", http.StatusBadRequest, gin.H{"error": "doc_id/s3_key do not match the presigned upload record"}
	}

	exists, err := s.Bucket.ObjectExists(ctx, req.S3Key)
	if err != nil {
		return "", http.StatusInternalServerError, gin.H{"error": err.Error()}
	}
	if !exists {
		return "", http.StatusNotFound, gin.H{"error": "object not found in bucket"}
	}

	jobID, err := s.IngestQueue.Enqueue(ctx, "validate_and_promote", jobs.ValidateAndPromoteRequest{
		DocID: req.DocID, S3Key: req.S3Key, ExpectedSHA256: req.ExpectedSHA256,
	})
	if err != nil {
		return "", http.StatusInternalServerError, gin.H{"error": err.Error()}
	}
	return jobID, http.StatusOK, gin.H{"job_id": jobID, "status": "pending"}
}

func (s *Server) enqueueAfterUpload(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, status, body := s.enqueueOne(c, req)
	c.JSON(status, body)
}

func (s *Server) enqueueAfterUploadBatch(c *gin.Context) {
	var reqs []enqueueRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var results []any
	for _, req := range reqs {
		_, _, body := s.enqueueOne(c, req)
		results = append(results, body)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) jobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	var result any
	status, err := s.Results.Get(c.Request.Context(), jobID, &result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(status), "result": result})
}
