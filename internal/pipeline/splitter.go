package pipeline

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/remilrls/knowhub/internal/document"
)

// Splitter turns normalized documents into store-ready chunks, mirroring
// the original source's DocumentSplitter: a recursive character splitter
// with a fixed separator ladder for generic text, a single-chunk-per-doc
// shortcut for PPTX, and (new: the distillation left this as a TODO) a
// Markdown header splitter for .md sources.
type Splitter struct {
	ChunkChars     int
	ChunkOverlap   int
	MinChunkChars  int
	HardCapChars   int
}

// NewSplitter returns a Splitter with the original source's defaults.
func NewSplitter() *Splitter {
	return &Splitter{ChunkChars: 1024, ChunkOverlap: 100, MinChunkChars: 50, HardCapChars: 5000}
}

var separatorLadder = []string{"\n\n", "\n", ". ", " ", ""}

// Split dispatches by extension and returns the chunked documents.
func (sp *Splitter) Split(docs []document.Document) []document.Document {
	var out []document.Document
	for _, d := range docs {
		switch d.Metadata.Ext {
		case ".pptx":
			out = append(out, sp.splitPPTX(d)...)
		case ".md":
			out = append(out, sp.splitMarkdown(d)...)
		default:
			out = append(out, sp.splitGeneric(d)...)
		}
	}
	return out
}

func (sp *Splitter) splitPPTX(d document.Document) []document.Document {
	if len(d.PageContent) < sp.MinChunkChars {
		return nil
	}
	d.Metadata.ChunkID = uuid.NewString()
	d.Metadata.ChunkIndex = 0
	d.Metadata.SplitterVer = "pptx-v1"
	d.Metadata.ChunkChars = len(d.PageContent)
	return []document.Document{d}
}

var mdHeaderRe = regexp.MustCompile(`(?m)^(#{1,3})\s+(.*)$`)

// splitMarkdown splits on H1/H2/H3 boundaries, keeping each section (header
// line plus body until the next H1/H2/H3 header of any level) as its own
// chunk, falling back to the generic splitter for any section that exceeds
// the hard cap, and dropping sections shorter than MinChunkChars.
func (sp *Splitter) splitMarkdown(d document.Document) []document.Document {
	matches := mdHeaderRe.FindAllStringSubmatchIndex(d.PageContent, -1)
	if len(matches) == 0 {
		return sp.splitGeneric(d)
	}

	type section struct {
		title string
		body  string
	}
	var sections []section
	for i, m := range matches {
		start := m[0]
		end := len(d.PageContent)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		title := d.PageContent[m[4]:m[5]]
		body := strings.TrimSpace(d.PageContent[start:end])
		sections = append(sections, section{title: title, body: body})
	}

	var out []document.Document
	idx := 0
	for _, sec := range sections {
		if len(sec.body) > sp.HardCapChars {
			nested := d
			nested.PageContent = sec.body
			for _, chunk := range sp.splitGeneric(nested) {
				chunk.Metadata.Title = sec.title
				chunk.Metadata.ChunkIndex = idx
				idx++
				out = append(out, chunk)
			}
			continue
		}
		if len(sec.body) < sp.MinChunkChars {
			continue
		}
		chunk := d
		chunk.PageContent = sec.body
		chunk.Metadata.Title = sec.title
		chunk.Metadata.ChunkID = uuid.NewString()
		chunk.Metadata.ChunkIndex = idx
		chunk.Metadata.SplitterVer = "md-header-v1"
		chunk.Metadata.ChunkChars = len(sec.body)
		idx++
		out = append(out, chunk)
	}
	return out
}

func (sp *Splitter) splitGeneric(d document.Document) []document.Document {
	pieces := recursiveSplit(d.PageContent, separatorLadder, sp.ChunkChars, sp.ChunkOverlap)
	var out []document.Document
	for i, p := range pieces {
		if len(p) < sp.MinChunkChars {
			continue
		}
		chunk := d
		chunk.PageContent = p
		chunk.Metadata.ChunkID = uuid.NewString()
		chunk.Metadata.ChunkIndex = i
		chunk.Metadata.SplitterVer = "char-v1"
		chunk.Metadata.ChunkChars = len(p)
		out = append(out, chunk)
	}
	return out
}

// recursiveSplit implements RecursiveCharacterTextSplitter: try the first
// separator, merge the resulting pieces back up to chunkSize with overlap,
// and recurse on any still-oversized piece using the remaining separators.
func recursiveSplit(text string, separators []string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	sep := separators[0]
	var parts []string
	if sep == "" {
		for i := 0; i < len(text); i += chunkSize {
			end := i + chunkSize
			if end > len(text) {
				end = len(text)
			}
			parts = append(parts, text[i:end])
		}
		return mergeWithOverlap(parts, chunkSize, overlap)
	}

	parts = strings.Split(text, sep)
	var merged []string
	var current strings.Builder
	for i, p := range parts {
		candidate := p
		if i > 0 {
			candidate = sep + p
		}
		if current.Len() > 0 && current.Len()+len(candidate) > chunkSize {
			merged = append(merged, current.String())
			current.Reset()
			candidate = p
		}
		current.WriteString(candidate)
	}
	if current.Len() > 0 {
		merged = append(merged, current.String())
	}

	var final []string
	nextSeparators := separators[1:]
	for _, m := range merged {
		if len(m) > chunkSize && len(nextSeparators) > 0 {
			final = append(final, recursiveSplit(m, nextSeparators, chunkSize, overlap)...)
		} else {
			final = append(final, m)
		}
	}
	return mergeWithOverlap(final, chunkSize, overlap)
}

// mergeWithOverlap prepends the trailing overlap of the previous piece to
// each subsequent piece, matching langchain's overlap behavior for the
// final output stage.
func mergeWithOverlap(pieces []string, chunkSize, overlap int) []string {
	if overlap <= 0 || len(pieces) < 2 {
		return pieces
	}
	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		prev := pieces[i-1]
		tail := prev
		if len(prev) > overlap {
			tail = prev[len(prev)-overlap:]
		}
		combined := tail + pieces[i]
		if len(combined) > chunkSize+overlap {
			combined = combined[:chunkSize+overlap]
		}
		out[i] = combined
	}
	return out
}
