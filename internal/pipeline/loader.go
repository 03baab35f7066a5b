package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/remilrls/knowhub/internal/document"
	"github.com/remilrls/knowhub/internal/hashutil"
)

// LoaderFunc extracts one or more Documents from a file on disk.
type LoaderFunc func(path string) ([]document.Document, error)

// Loader dispatches by file extension, validates size/extension, and
// enriches every returned document with the file's sha256 and a default
// content type, grounded on the original source's DocumentLoader.
type Loader struct {
	MaxFileSizeBytes int64
	Extractor        TableExtractor
	loaders          map[string]LoaderFunc
}

// NewLoader wires the extension table. extractor may be nil, in which case
// PDF and DOCX loading read the file's bytes as a single plain-text
// document, with no page split and no table handling (table extraction is
// a spec Non-goal: parser internals are out of scope, only the contract is
// specified).
func NewLoader(maxFileSizeBytes int64, extractor TableExtractor) *Loader {
	l := &Loader{MaxFileSizeBytes: maxFileSizeBytes, Extractor: extractor}
	l.loaders = map[string]LoaderFunc{
		".pdf":  l.loadPDF,
		".docx": l.loadDOCX,
		".pptx": l.loadPPTX,
		".txt":  l.loadPlainText,
		".md":   l.loadPlainText,
	}
	return l
}

func (l *Loader) validate(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("pipeline: file not found: %s", path)
	}
	if l.MaxFileSizeBytes > 0 && info.Size() > l.MaxFileSizeBytes {
		return "", fmt.Errorf("pipeline: file too large: %s exceeds %d bytes", path, l.MaxFileSizeBytes)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := l.loaders[ext]; !ok {
		return "", fmt.Errorf("pipeline: unsupported file type: %s", ext)
	}
	return ext, nil
}

// LoadDocuments loads every path, enriching each returned document with
// file_sha256 and content_type, and continues past any single file's
// failure so the rest of the batch still ingests.
func (l *Loader) LoadDocuments(paths []string) []document.Document {
	var all []document.Document
	for _, path := range paths {
		docs, err := l.loadOne(path)
		if err != nil {
			continue
		}
		hash, err := hashutil.ComputeSHA256(path)
		if err != nil {
			continue
		}
		for _, d := range docs {
			d.Metadata.FileSHA256 = hash
			if d.Metadata.ContentType == "" {
				d.Metadata.ContentType = "text"
			}
			d.Metadata.Source = path
			all = append(all, d)
		}
	}
	return all
}

func (l *Loader) loadOne(path string) ([]document.Document, error) {
	ext, err := l.validate(path)
	if err != nil {
		return nil, err
	}
	fn := l.loaders[ext]
	return fn(path)
}

func (l *Loader) loadPlainText(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []document.Document{{PageContent: string(data)}}, nil
}

// loadPPTX is a placeholder for the spec's out-of-scope PPTX parser
// contract: it returns the raw bytes decoded as text so downstream chunking
// (single-chunk-per-doc) still has content to operate on when no real PPTX
// extractor is wired.
func (l *Loader) loadPPTX(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []document.Document{{PageContent: string(data)}}, nil
}

// loadDOCX buffers paragraph runs and flushes a Markdown-rendered table
// (with `|` escaped in cell text) whenever the docx extractor hands back a
// table boundary; the actual OOXML parsing is a Non-goal so this operates
// against TableExtractor.ExtractDOCXBlocks.
func (l *Loader) loadDOCX(path string) ([]document.Document, error) {
	if l.Extractor == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []document.Document{{PageContent: string(data)}}, nil
	}
	blocks, err := l.Extractor.ExtractDOCXBlocks(path)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, b := range blocks {
		if b.IsTable {
			sb.WriteString(renderMarkdownTable(b.Table))
			sb.WriteString("\n\n")
		} else {
			sb.WriteString(b.Text)
			sb.WriteString("\n")
		}
	}
	return []document.Document{{PageContent: sb.String()}}, nil
}

// loadPDF extracts per-page text, excluding any regions the configured
// TableExtractor reports as table bounding boxes, then appends any
// high-confidence extracted tables as their own Markdown-rendered
// documents.
func (l *Loader) loadPDF(path string) ([]document.Document, error) {
	if l.Extractor == nil {
		return l.loadPlainText(path)
	}

	pages, err := l.Extractor.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	bboxes, err := l.Extractor.GetTableBBoxes(path)
	if err != nil {
		bboxes = nil
	}

	var docs []document.Document
	for _, p := range pages {
		text := p.Text
		if boxes := bboxes[p.PageNumber]; len(boxes) > 0 {
			text = excludeTableWords(p.Words, boxes, p.Height)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, document.Document{
			PageContent: text,
			Metadata:    document.Metadata{Page: p.PageNumber},
		})
	}

	tables, err := l.Extractor.ExtractTables(path)
	if err == nil {
		for _, t := range tables {
			if t.Confidence < tableConfidenceThreshold {
				continue
			}
			docs = append(docs, document.Document{
				PageContent: renderMarkdownTable(t),
				Metadata:    document.Metadata{Page: t.Page, ContentType: "table"},
			})
		}
	}

	return docs, nil
}
