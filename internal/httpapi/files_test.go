package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDownloadURLRejectsKeysOutsideProcessedPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	s := &Server{}
	r.GET("/files/download", s.downloadURL)

	cases := []string{"", "uploads/doc1/file.pdf", "../etc/passwd"}
	for _, key := range cases {
		req := httptest.NewRequest(http.MethodGet, "/files/download?key="+key, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("key %q: status = %d, want %d", key, rec.Code, http.StatusBadRequest)
		}
	}
}
