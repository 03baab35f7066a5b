package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/document"
	"github.com/remilrls/knowhub/internal/embedding"
	"github.com/remilrls/knowhub/internal/hashutil"
	"github.com/remilrls/knowhub/internal/pipeline"
	"github.com/remilrls/knowhub/internal/storage"
	"github.com/remilrls/knowhub/internal/vectorstore"
)

// IngestQueue and ProcessQueue are the two named queues the ingest actors
// run on, matching spec.md's "ingest-validate"/"ingest-process" contract.
const (
	IngestQueue  = "ingest-validate"
	ProcessQueue = "ingest-process"
)

// IngestDeps bundles the collaborators the ingest actors need.
type IngestDeps struct {
	Bucket     *storage.Bucket
	ProcessQ   *Queue
	Loader     *pipeline.Loader
	Normalizer *pipeline.Normalizer
	Splitter   *pipeline.Splitter
	Embedder   *embedding.Client
	Store      *vectorstore.Store
	Collection string
	Log        *zap.Logger
}

// ValidateAndPromoteRequest is the payload for the validate-and-promote
// actor.
type ValidateAndPromoteRequest struct {
	DocID          string `json:"doc_id"`
	S3Key          string `json:"s3_key"`
	ExpectedSHA256 string `json:"expected_sha256"`
}

// ValidateAndPromoteResult is the stored result, mirroring tasks/ingest.py's
// return shape.
type ValidateAndPromoteResult struct {
	Stage        string `json:"stage"`
	DocID        string `json:"doc_id"`
	ProcessedKey string `json:"processed_key"`
	NextJobID    string `json:"next_job_id"`
	Meta         struct {
		Size int64  `json:"size"`
		ETag string `json:"etag"`
	} `json:"meta"`
}

// ValidateAndPromote downloads the uploaded object, verifies its sha256
// against the client-declared hash (removing the object and raising on
// mismatch), then promotes it from uploads/ to processed/ via copy+remove
// and enqueues ingest_document. Grounded on tasks/ingest.py's
// validate_and_promote; max_retries=0 per the spec's actor contract table.
func (d *IngestDeps) ValidateAndPromote(ctx context.Context, payload json.RawMessage) (any, error) {
	var req ValidateAndPromoteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("jobs: decode validate_and_promote payload: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "ingest_")
	if err != nil {
		return nil, fmt.Errorf("jobs: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, filepath.Base(req.S3Key))
	meta, err := d.Bucket.GetFile(ctx, req.S3Key, localPath)
	if err != nil {
		return nil, fmt.Errorf("jobs: download %s: %w", req.S3Key, err)
	}

	ok, err := hashutil.VerifySHA256(localPath, req.ExpectedSHA256)
	if err != nil {
		return nil, fmt.Errorf("jobs: verify sha256: %w", err)
	}
	if !ok {
		if rmErr := d.Bucket.Remove(ctx, req.S3Key); rmErr != nil {
			d.Log.Error("jobs: failed to remove corrupt upload", zap.Error(rmErr))
		}
		return nil, fmt.Errorf("jobs: sha256 mismatch for %s", req.S3Key)
	}

	processedKey := strings.Replace(req.S3Key, "uploads/", "processed/", 1)
	if err := d.Bucket.Copy(ctx, req.S3Key, processedKey); err != nil {
		return nil, fmt.Errorf("jobs: promote copy: %w", err)
	}
	if err := d.Bucket.Remove(ctx, req.S3Key); err != nil {
		return nil, fmt.Errorf("jobs: promote remove source: %w", err)
	}

	nextJobID, err := d.ProcessQ.Enqueue(ctx, "ingest_document", IngestDocumentRequest{
		DocID: req.DocID, ProcessedKey: processedKey,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: enqueue ingest_document: %w", err)
	}

	result := ValidateAndPromoteResult{
		Stage: "validated", DocID: req.DocID, ProcessedKey: processedKey, NextJobID: nextJobID,
	}
	result.Meta.Size = meta.Size
	result.Meta.ETag = meta.ETag
	return result, nil
}

// IngestDocumentRequest is the payload for the document ingest actor.
type IngestDocumentRequest struct {
	DocID        string `json:"doc_id"`
	ProcessedKey string `json:"processed_key"`
}

// IngestDocumentResult reports how many chunks were stored and which
// sources were skipped because they were already indexed.
type IngestDocumentResult struct {
	Stage    string   `json:"stage"`
	DocID    string   `json:"doc_id"`
	Inserted int      `json:"inserted"`
	Skipped  []string `json:"skipped_sources"`
}

// IngestError is a non-retriable failure (bad extension), mirroring the
// original source's IngestError, which dramatiq configures to never retry.
type IngestError struct{ msg string }

func (e *IngestError) Error() string { return e.msg }

// IngestDocument downloads the processed object, loads/normalizes/splits it
// into chunks, embeds each chunk, and upserts them into the vector store.
// Grounded on tasks/ingest.py's ingest_document — the Python source left
// split/embed/upsert as a TODO; this is that feature, completed, per
// SPEC_FULL.md.
func (d *IngestDeps) IngestDocument(ctx context.Context, payload json.RawMessage) (any, error) {
	var req IngestDocumentRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("jobs: decode ingest_document payload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(req.ProcessedKey))
	allowed := false
	for _, fn := range []string{".pdf", ".docx", ".pptx", ".txt", ".md"} {
		if fn == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &IngestError{msg: fmt.Sprintf("unsupported extension %q", ext)}
	}

	tmpDir, err := os.MkdirTemp("", "ingest_")
	if err != nil {
		return nil, fmt.Errorf("jobs: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, filepath.Base(req.ProcessedKey))
	if _, err := d.Bucket.GetFile(ctx, req.ProcessedKey, localPath); err != nil {
		return nil, Wrap("jobs: download processed object: %w", err)
	}

	docs := d.Loader.LoadDocuments([]string{localPath})
	docs = d.Normalizer.Normalize(docs, req.ProcessedKey)
	chunks := d.Splitter.Split(docs)
	if len(chunks) == 0 {
		return IngestDocumentResult{Stage: "ingested", DocID: req.DocID, Inserted: 0}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.PageContent
	}
	vectors, err := d.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, Wrap("jobs: embed chunks: %w", err)
	}

	storeChunks := make([]document.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata.Source = req.ProcessedKey
		c.Metadata.DocID = req.DocID
		storeChunks[i] = document.Chunk{Document: c, Embedding: vectors[i]}
	}

	res, err := d.Store.Upsert(ctx, d.Collection, storeChunks)
	if err != nil {
		return nil, Wrap("jobs: upsert chunks: %w", err)
	}

	return IngestDocumentResult{
		Stage: "ingested", DocID: req.DocID, Inserted: res.Inserted, Skipped: res.Skipped,
	}, nil
}
