package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/remilrls/knowhub/internal/embedding"
	"github.com/remilrls/knowhub/internal/generation"
)

// GenerationQueue is the queue name the two generation actors run on.
const GenerationQueue = "generation"

// GenerateDeps bundles the collaborators the generation actors need.
type GenerateDeps struct {
	Orchestrator *generation.Orchestrator
	Embedder     *embedding.Client
	Streams      *StreamLog
}

// GenerateRequest is the shared payload shape for both generation actors.
type GenerateRequest struct {
	JobID       string   `json:"job_id"`
	Collection  string   `json:"collection"`
	Question    string   `json:"question"`
	K           int      `json:"k"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Sources     []string `json:"sources,omitempty"`
}

func (d *GenerateDeps) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	vecs, err := d.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("jobs: embed question: %w", err)
	}
	return vecs[0], nil
}

// GenerateAnswerStream is the streaming generation actor. It does not
// store a result — the Redis Stream event log published through
// d.Streams is the result, consumed by the SSE endpoint.
func (d *GenerateDeps) GenerateAnswerStream(ctx context.Context, payload json.RawMessage) (any, error) {
	var req GenerateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("jobs: decode generate_answer_stream payload: %w", err)
	}

	vector, err := d.embedQuestion(ctx, req.Question)
	if err != nil {
		_ = d.Streams.Publish(ctx, req.JobID, "error", map[string]string{"message": err.Error()})
		return nil, nil
	}

	genReq := generation.Request{
		JobID: req.JobID, Collection: req.Collection, Question: req.Question,
		K: req.K, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Sources: req.Sources,
	}
	if err := d.Orchestrator.StreamAndPersist(ctx, genReq, vector, d.Streams); err != nil {
		return nil, Wrap("jobs: generate_answer_stream: %w", err)
	}
	return nil, nil
}

// GenerateAnswer is the non-streaming generation actor (supplemented from
// the original source, absent from spec.md's dataflow narrative but
// present in tasks/generate.py and backing POST /generate).
func (d *GenerateDeps) GenerateAnswer(ctx context.Context, payload json.RawMessage) (any, error) {
	var req GenerateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("jobs: decode generate_answer payload: %w", err)
	}

	vector, err := d.embedQuestion(ctx, req.Question)
	if err != nil {
		return nil, Wrap("jobs: embed question: %w", err)
	}

	genReq := generation.Request{
		JobID: req.JobID, Collection: req.Collection, Question: req.Question,
		K: req.K, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Sources: req.Sources,
	}
	result, err := d.Orchestrator.Generate(ctx, genReq, vector)
	if err != nil {
		return nil, Wrap("jobs: generate_answer: %w", err)
	}
	return result, nil
}
