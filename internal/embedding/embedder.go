// Package embedding provides a thin HTTP client over a remote embedding
// model server, grounded on the original source's core/qwen_embedder.py.
// The model itself (and its last-token pooling) is explicitly out of
// scope; this client only defines the wire contract.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Client batches text into embedding requests against a model server that
// returns unit-L2-normalized vectors.
type Client struct {
	endpoint  string
	model     string
	batchSize int
	http      *http.Client
}

// New constructs a Client.
func New(endpoint, model string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Client{endpoint: endpoint, model: model, batchSize: batchSize, http: &http.Client{}}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text, batching requests at the
// configured batch size.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: server returned %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(out.Embeddings))
	}
	return out.Embeddings, nil
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default lazily constructs a process-lifetime singleton client, mirroring
// the embedder-singleton resolution in DESIGN NOTES (the model server
// connection is expensive to establish and safe to share).
func Default(endpoint, model string, batchSize int) *Client {
	defaultOnce.Do(func() {
		defaultClient = New(endpoint, model, batchSize)
	})
	return defaultClient
}
