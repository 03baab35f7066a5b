package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// downloadURL returns a presigned GET URL for a processed object,
// restricted to the processed/ prefix per the original source's
// routes/files.py get_download_url.
func (s *Server) downloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" || !strings.HasPrefix(key, "processed/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be under processed/"})
		return
	}

	ctx := c.Request.Context()
	exists, err := s.Bucket.ObjectExists(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	url, err := s.Bucket.PresignedGetURL(ctx, key, s.PresignExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"download_url": url})
}
