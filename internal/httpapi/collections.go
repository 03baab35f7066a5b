package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listCollections(c *gin.Context) {
	names, err := s.Store.ListCollections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": names})
}
