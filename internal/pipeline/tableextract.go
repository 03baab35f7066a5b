package pipeline

import "strings"

// tableConfidenceThreshold drops extracted tables below this accuracy,
// mirroring the original source's min_table_accuracy=80.0 default.
const tableConfidenceThreshold = 80.0

// Word is a single word with its bounding box in a PDF-page coordinate
// system whose origin is the top-left corner (pdfplumber convention).
type Word struct {
	Text                   string
	X0, Top, X1, Bottom    float64
}

// Page is one extracted PDF page.
type Page struct {
	PageNumber int
	Height     float64
	Text       string
	Words      []Word
}

// BBox is a table bounding box in the bottom-left-origin coordinate system
// Camelot reports (x0, y0, x1, y1).
type BBox struct{ X0, Y0, X1, Y1 float64 }

// Table is an extracted table: rows of cell text plus a confidence score.
type Table struct {
	Page       int
	Rows       [][]string
	Confidence float64
}

// DOCXBlock is either a paragraph (Text set) or a table boundary (IsTable).
type DOCXBlock struct {
	Text    string
	IsTable bool
	Table   Table
}

// TableExtractor is the contract a PDF/DOCX table parser must satisfy. Its
// concrete implementation (wrapping a PDF/table-extraction library) is out
// of scope per the spec's Non-goals on domain-specific file parsers; this
// interface specifies only the output contract the pipeline depends on.
type TableExtractor interface {
	ExtractPages(path string) ([]Page, error)
	GetTableBBoxes(path string) (map[int][]BBox, error)
	ExtractTables(path string) ([]Table, error)
	ExtractDOCXBlocks(path string) ([]DOCXBlock, error)
}

// excludeTableWords reconstructs page text from words that fall outside
// every table bounding box, converting Camelot's bottom-left-origin boxes
// into pdfplumber's top-left-origin system with a 2pt margin, exactly as
// the original source's _extract_text_excluding_tables does.
func excludeTableWords(words []Word, boxes []BBox, pageHeight float64) string {
	const margin = 2.0

	type rect struct{ x0, top, x1, bottom float64 }
	excl := make([]rect, 0, len(boxes))
	for _, b := range boxes {
		top := pageHeight - b.Y1 - margin
		if top < 0 {
			top = 0
		}
		bottom := pageHeight - b.Y0 + margin
		if bottom > pageHeight {
			bottom = pageHeight
		}
		excl = append(excl, rect{b.X0 - margin, top, b.X1 + margin, bottom})
	}

	overlaps := func(wx0, wtop, wx1, wbottom float64, r rect) bool {
		if wx1 <= r.x0 || r.x1 <= wx0 {
			return false
		}
		if wbottom <= r.top || r.bottom <= wtop {
			return false
		}
		return true
	}

	lines := map[float64][]Word{}
	var keys []float64
	seen := map[float64]bool{}
	for _, w := range words {
		excluded := false
		for _, r := range excl {
			if overlaps(w.X0, w.Top, w.X1, w.Bottom, r) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		key := roundTo(w.Top, 1)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		lines[key] = append(lines[key], w)
	}

	sortFloats(keys)
	var out []string
	for _, k := range keys {
		ws := lines[k]
		sortWordsByX(ws)
		var parts []string
		for _, w := range ws {
			parts = append(parts, w.Text)
		}
		line := strings.Join(parts, " ")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int(v*mult+0.5)) / mult
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func sortWordsByX(ws []Word) {
	for i := 1; i < len(ws); i++ {
		for j := i; j > 0 && ws[j-1].X0 > ws[j].X0; j-- {
			ws[j-1], ws[j] = ws[j], ws[j-1]
		}
	}
}

// renderMarkdownTable renders an extracted table as a Markdown pipe table,
// escaping literal `|` in cell text.
func renderMarkdownTable(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	escape := func(s string) string { return strings.ReplaceAll(s, "|", "\\|") }

	var sb strings.Builder
	header := t.Rows[0]
	for i, cell := range header {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(escape(cell))
	}
	sb.WriteString("\n")
	for i := range header {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString("---")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows[1:] {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(escape(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
