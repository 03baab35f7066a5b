package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedBatchesRequestsAtConfiguredSize(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		batchSizes = append(batchSizes, len(req.Input))

		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vecs[i] = []float32{1, 0, 0}
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: vecs})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", 2)
	texts := []string{"a", "b", "c", "d", "e"}
	out, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(out) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(out))
	}
	if fmt.Sprint(batchSizes) != fmt.Sprint([]int{2, 2, 1}) {
		t.Fatalf("expected batches of [2 2 1], got %v", batchSizes)
	}
}

func TestEmbedRejectsMismatchedVectorCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", 8)
	_, err := c.Embed(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatalf("expected an error when server returns fewer vectors than inputs")
	}
}

func TestDefaultReturnsSameInstanceAcrossCalls(t *testing.T) {
	a := Default("http://example.invalid", "m", 4)
	b := Default("http://other.invalid", "m2", 16)
	if a != b {
		t.Fatalf("expected Default to return the same singleton instance on repeated calls")
	}
}
