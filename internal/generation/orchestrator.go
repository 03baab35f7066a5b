// Package generation implements the retrieval -> prompt -> generation ->
// event-log -> session-persistence pipeline, grounded on the original
// source's tasks/generate.py generate_answer_stream end to end.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/jobs"
	"github.com/remilrls/knowhub/internal/llm"
	"github.com/remilrls/knowhub/internal/prompt"
	"github.com/remilrls/knowhub/internal/storage"
	"github.com/remilrls/knowhub/internal/vectorstore"
)

// noRelevantInformationMessage is the canonical empty-retrieval response,
// returned verbatim from the original source.
const noRelevantInformationMessage = "I'm sorry, I couldn't find any relevant information to answer your question."

// Request parameterizes one generation turn.
type Request struct {
	JobID       string
	Collection  string
	Question    string
	K           int
	Temperature float64
	MaxTokens   int
	Sources     []string
}

// GenerationMetadata is the timing/count/parameter block attached to both
// the terminal stream event and the persisted session record, mirroring
// the original source's generate_answer(_stream) metadata dict.
type GenerationMetadata struct {
	RetrievedChunks  int              `json:"retrieved_chunks"`
	RetrievalTimeMS  float64          `json:"retrieval_time_ms"`
	GenerationTimeMS float64          `json:"generation_time_ms"`
	TotalTimeMS      float64          `json:"total_time_ms"`
	ChunkMap         map[string][]int `json:"chunk_map,omitempty"`
	Temperature      float64          `json:"temperature,omitempty"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
	K                int              `json:"k,omitempty"`
}

// SessionRecord is the durable audit record for a generation turn, saved
// alongside the session's stream log, matching the original source's
// _save_session_to_json shape.
type SessionRecord struct {
	JobID      string             `json:"job_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Query      string             `json:"query"`
	Answer     string             `json:"answer"`
	Collection string             `json:"collection"`
	Sources    []string           `json:"sources"`
	Metadata   GenerationMetadata `json:"metadata"`
}

// Orchestrator wires retrieval, prompting, generation and persistence.
type Orchestrator struct {
	Store  *vectorstore.Store
	LLM    llm.Provider
	Prompt *prompt.Builder
	Bucket *storage.Bucket
	Now    func() time.Time
	Log    *zap.Logger
}

// New constructs an Orchestrator with the real clock.
func New(store *vectorstore.Store, provider llm.Provider, bucket *storage.Bucket, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Store: store, LLM: provider, Prompt: prompt.New(), Bucket: bucket, Now: time.Now, Log: log,
	}
}

// RetrieveByVector runs the cosine-kNN read for the question's embedding,
// optionally scoped to an allow-list of sources. The caller embeds the
// question upstream (via internal/embedding) and passes the resulting
// vector down.
func (o *Orchestrator) RetrieveByVector(ctx context.Context, collection string, vector []float32, k int, sources []string) ([]vectorstore.EmbeddingResult, error) {
	return o.Store.ReadEmbeddings(ctx, collection, vector, k, sources, nil, 0)
}

// buildContextBlock renders each retrieved chunk as
// "[Chunk number {i} - {source} (page {page}) - distance: {distance:.3f}]\n{text}\n"
// joined by "\n---\n", exactly as tasks/generate.py does.
func buildContextBlock(hits []vectorstore.EmbeddingResult) string {
	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[Chunk number %d - %s (page %d) - distance: %.3f]\n%s\n",
			i+1, h.Source, h.Page, h.Distance, h.Text))
	}
	return strings.Join(blocks, "\n---\n")
}

// chunkMap maps each distinct chunk text to the 1-based indices at which it
// appeared among the retrieved chunks, exactly as the original source's
// _get_chunk_numbers does.
func chunkMap(hits []vectorstore.EmbeddingResult) map[string][]int {
	m := map[string][]int{}
	for i, h := range hits {
		m[h.Text] = append(m[h.Text], i+1)
	}
	return m
}

// uniqueSources extracts the distinct sources among the retrieved chunks,
// preserving first-seen order (the original source's _get_unique_source
// returns a Python set, whose iteration order isn't meaningful either way).
func uniqueSources(hits []vectorstore.EmbeddingResult) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range hits {
		if !seen[h.Source] {
			seen[h.Source] = true
			out = append(out, h.Source)
		}
	}
	return out
}

// StreamAndPersist runs the full streaming generation turn: retrieve,
// build context, stream tokens through publisher, accumulate the full
// answer, publish the terminal event, and save the session record. It
// publishes "token" events as generation proceeds and exactly one terminal
// event ("done" or "error"), never both.
func (o *Orchestrator) StreamAndPersist(ctx context.Context, req Request, vector []float32, publisher *jobs.StreamLog) error {
	start := time.Now()

	exists, err := o.Store.TableExists(ctx, req.Collection)
	if err != nil {
		return o.publishError(ctx, publisher, req.JobID, err)
	}
	if !exists {
		return o.publishError(ctx, publisher, req.JobID, fmt.Errorf("collection %q does not exist", req.Collection))
	}

	retrievalStart := time.Now()
	hits, err := o.RetrieveByVector(ctx, req.Collection, vector, req.K, req.Sources)
	if err != nil {
		return o.publishError(ctx, publisher, req.JobID, err)
	}
	retrievalTimeMS := float64(time.Since(retrievalStart).Microseconds()) / 1000

	if len(hits) == 0 {
		if err := publisher.Publish(ctx, req.JobID, "token", map[string]string{"content": noRelevantInformationMessage}); err != nil {
			return err
		}
		meta := GenerationMetadata{
			RetrievedChunks: 0, RetrievalTimeMS: retrievalTimeMS, GenerationTimeMS: 0,
			TotalTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err := publisher.Publish(ctx, req.JobID, "done", map[string]any{
			"sources": []string{}, "retrieved_chunks": meta.RetrievedChunks,
			"retrieval_time_ms": meta.RetrievalTimeMS, "generation_time_ms": meta.GenerationTimeMS,
			"total_time_ms": meta.TotalTimeMS,
		}); err != nil {
			return err
		}
		return o.saveSession(ctx, req, noRelevantInformationMessage, nil, meta)
	}

	contextBlock := buildContextBlock(hits)
	messages := o.Prompt.BuildRAGGeneration(contextBlock, req.Question)

	chatReq := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: messages.System},
			{Role: "user", Content: messages.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	generationStart := time.Now()
	var fullAnswer strings.Builder
	if o.LLM.SupportsStreaming() {
		tokens := make(chan llm.StreamToken)
		errCh := make(chan error, 1)
		go func() {
			errCh <- o.LLM.StreamChat(ctx, chatReq, tokens)
			close(tokens)
		}()
		for tok := range tokens {
			if tok.Done {
				continue
			}
			fullAnswer.WriteString(tok.Content)
			if err := publisher.Publish(ctx, req.JobID, "token", map[string]string{"content": tok.Content}); err != nil {
				return err
			}
		}
		if err := <-errCh; err != nil {
			return o.publishError(ctx, publisher, req.JobID, err)
		}
	} else {
		answer, err := o.LLM.GenerateChat(ctx, chatReq)
		if err != nil {
			return o.publishError(ctx, publisher, req.JobID, err)
		}
		fullAnswer.WriteString(answer)
		if err := publisher.Publish(ctx, req.JobID, "token", map[string]string{"content": answer}); err != nil {
			return err
		}
	}
	generationTimeMS := float64(time.Since(generationStart).Microseconds()) / 1000

	answer := fullAnswer.String()
	meta := GenerationMetadata{
		RetrievedChunks: len(hits), RetrievalTimeMS: retrievalTimeMS, GenerationTimeMS: generationTimeMS,
		TotalTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		ChunkMap:    chunkMap(hits), Temperature: req.Temperature, MaxTokens: req.MaxTokens, K: req.K,
	}
	sources := uniqueSources(hits)
	if err := publisher.Publish(ctx, req.JobID, "done", map[string]any{
		"sources": sources, "retrieved_chunks": meta.RetrievedChunks,
		"retrieval_time_ms": meta.RetrievalTimeMS, "generation_time_ms": meta.GenerationTimeMS,
		"total_time_ms": meta.TotalTimeMS, "chunk_map": meta.ChunkMap,
		"temperature": meta.Temperature, "max_tokens": meta.MaxTokens, "k": meta.K,
	}); err != nil {
		return err
	}

	return o.saveSession(ctx, req, answer, sources, meta)
}

func (o *Orchestrator) publishError(ctx context.Context, publisher *jobs.StreamLog, jobID string, cause error) error {
	o.Log.Error("generation: failed", zap.String("job_id", jobID), zap.Error(cause))
	return publisher.Publish(ctx, jobID, "error", map[string]string{"message": cause.Error()})
}

func (o *Orchestrator) saveSession(ctx context.Context, req Request, answer string, sources []string, meta GenerationMetadata) error {
	record := SessionRecord{
		JobID: req.JobID, Timestamp: o.Now(), Query: req.Question, Answer: answer,
		Collection: req.Collection, Sources: sources, Metadata: meta,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("generation: encode session: %w", err)
	}
	_, err = o.Bucket.PutBytes(ctx, fmt.Sprintf("sessions/%s.json", req.JobID), data, "application/json")
	return err
}

// Generate runs the non-streaming variant (the original source's
// generate_answer actor): same retrieval and context assembly, but returns
// a single stored result instead of streaming tokens. Status is reported
// as "success" (the source's "sucess" typo is not reproduced, per DESIGN
// NOTES).
func (o *Orchestrator) Generate(ctx context.Context, req Request, vector []float32) (map[string]any, error) {
	start := time.Now()

	exists, err := o.Store.TableExists(ctx, req.Collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("generation: collection %q does not exist", req.Collection)
	}

	retrievalStart := time.Now()
	hits, err := o.RetrieveByVector(ctx, req.Collection, vector, req.K, req.Sources)
	if err != nil {
		return nil, err
	}
	retrievalTimeMS := float64(time.Since(retrievalStart).Microseconds()) / 1000

	if len(hits) == 0 {
		meta := GenerationMetadata{
			RetrievedChunks: 0, RetrievalTimeMS: retrievalTimeMS, GenerationTimeMS: 0,
			TotalTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err := o.saveSession(ctx, req, noRelevantInformationMessage, nil, meta); err != nil {
			return nil, err
		}
		return map[string]any{
			"status": "success", "answer": noRelevantInformationMessage, "sources": []string{},
			"retrieved_chunks": meta.RetrievedChunks, "retrieval_time_ms": meta.RetrievalTimeMS,
			"generation_time_ms": meta.GenerationTimeMS, "total_time_ms": meta.TotalTimeMS,
		}, nil
	}

	contextBlock := buildContextBlock(hits)
	messages := o.Prompt.BuildRAGGeneration(contextBlock, req.Question)
	generationStart := time.Now()
	answer, err := o.LLM.GenerateChat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: messages.System},
			{Role: "user", Content: messages.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	generationTimeMS := float64(time.Since(generationStart).Microseconds()) / 1000

	sources := uniqueSources(hits)
	meta := GenerationMetadata{
		RetrievedChunks: len(hits), RetrievalTimeMS: retrievalTimeMS, GenerationTimeMS: generationTimeMS,
		TotalTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		ChunkMap:    chunkMap(hits), Temperature: req.Temperature, MaxTokens: req.MaxTokens, K: req.K,
	}
	if err := o.saveSession(ctx, req, answer, sources, meta); err != nil {
		return nil, err
	}

	return map[string]any{
		"status": "success", "answer": answer, "sources": sources,
		"retrieved_chunks": meta.RetrievedChunks, "retrieval_time_ms": meta.RetrievalTimeMS,
		"generation_time_ms": meta.GenerationTimeMS, "total_time_ms": meta.TotalTimeMS,
		"chunk_map": meta.ChunkMap,
	}, nil
}
