package pipeline

import (
	"testing"
	"time"

	"github.com/remilrls/knowhub/internal/document"
)

func TestCleanTextDehyphenates(t *testing.T) {
	in := "this is a hyphen-\nated word"
	want := "this is a hyphenated word"
	if got := cleanText(in); got != want {
		t.Fatalf("cleanText(%q) = %q, want %q", in, got, want)
	}
}

func TestCleanTextCollapsesWhitespaceAndBlankLines(t *testing.T) {
	in := "line one\r\n\r\n\r\n\r\nline   two\ttabbed"
	got := cleanText(in)
	want := "line one\n\nline two tabbed"
	if got != want {
		t.Fatalf("cleanText(%q) = %q, want %q", in, got, want)
	}
}

func TestCleanTextIsIdempotent(t *testing.T) {
	in := "messy  text\r\nwith-\nhyphens\n\n\n\nand blanks"
	once := cleanText(in)
	twice := cleanText(once)
	if once != twice {
		t.Fatalf("cleanText not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestNormalizeDropsEmptyDocuments(t *testing.T) {
	n := &Normalizer{Now: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }}
	docs := []document.Document{
		{PageContent: "real content"},
		{PageContent: "   \n\n  "},
	}
	out := n.Normalize(docs, "/tmp/report.PDF")
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving document, got %d", len(out))
	}
	if out[0].Metadata.Ext != ".pdf" {
		t.Fatalf("expected lowercased ext .pdf, got %q", out[0].Metadata.Ext)
	}
	if out[0].Metadata.FileName != "report.PDF" {
		t.Fatalf("expected file_name report.PDF, got %q", out[0].Metadata.FileName)
	}
	if out[0].Metadata.IngestedAt == "" {
		t.Fatalf("expected ingested_at to be set")
	}
}
