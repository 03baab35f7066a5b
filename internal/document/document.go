// Package document defines the shared content unit that flows through the
// ingest pipeline from loading through chunking to the vector store.
package document

// Metadata carries the recognized fields every pipeline stage may read or
// set, plus an escape hatch for loader-specific values that don't warrant a
// dedicated field (DESIGN NOTES: "metadata as an untyped map").
type Metadata struct {
	DocID        string   `json:"doc_id,omitempty"`
	Source       string   `json:"source,omitempty"`
	FileName     string   `json:"file_name,omitempty"`
	FileSHA256   string   `json:"file_sha256,omitempty"`
	Page         int      `json:"page,omitempty"`
	Ext          string   `json:"ext,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	IngestedAt   string   `json:"ingested_at,omitempty"`
	ChunkID      string   `json:"chunk_id,omitempty"`
	ChunkIndex   int      `json:"chunk_index,omitempty"`
	ChunkChars   int      `json:"chunk_chars,omitempty"`
	SplitterVer  string   `json:"splitter_version,omitempty"`
	ProcessedKey string   `json:"processed_key,omitempty"`
	URL          string   `json:"url,omitempty"`
	Title        string   `json:"title,omitempty"`
	Author       string   `json:"author,omitempty"`
	Skillsets    []string `json:"skillsets,omitempty"`

	// Extensions holds any loader-specific key that doesn't map onto a
	// recognized field above.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Document is one unit of content: a page, a section, or (post-split) a
// chunk, together with its metadata.
type Document struct {
	PageContent string   `json:"page_content"`
	Metadata    Metadata `json:"metadata"`
}

// Chunk is an embedded, store-ready unit: a Document plus its vector.
type Chunk struct {
	Document
	Embedding []float32 `json:"embedding"`
}
