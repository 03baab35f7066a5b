package pipeline

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/remilrls/knowhub/internal/document"
)

var (
	whitespaceRe  = regexp.MustCompile(`[ \t\x{00A0}]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	dehyphenRe    = regexp.MustCompile(`(\w)-\n(\w)`)
)

// cleanText mirrors the original source's _clean_text: NFC normalize, fold
// CRLF/CR to LF, dehyphenate line-wrapped words, collapse runs of
// whitespace and blank lines, then trim.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = dehyphenRe.ReplaceAllString(s, "$1$2")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Normalizer cleans raw loaded documents and stamps ingest-time metadata.
type Normalizer struct {
	// Now is overridable for deterministic tests.
	Now func() time.Time
}

// NewNormalizer returns a Normalizer using the real clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize cleans doc's content in place, dropping documents that become
// empty, and enriches metadata with ingested_at (UTC ISO-8601 with a
// trailing Z), ext (lowercased file extension) and file_name (basename of
// source). Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(docs []document.Document, sourcePath string) []document.Document {
	out := make([]document.Document, 0, len(docs))
	ext := strings.ToLower(filepath.Ext(sourcePath))
	fileName := filepath.Base(sourcePath)
	ingestedAt := n.Now().UTC().Format("2006-01-02T15:04:05.000000Z")

	for _, d := range docs {
		cleaned := cleanText(d.PageContent)
		if cleaned == "" {
			continue
		}
		d.PageContent = cleaned
		d.Metadata.Ext = ext
		d.Metadata.FileName = fileName
		d.Metadata.IngestedAt = ingestedAt
		out = append(out, d)
	}
	return out
}
