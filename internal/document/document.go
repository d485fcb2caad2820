// Package document holds the data model shared across the pipeline: the
// structure returned by the remote document-understanding service and the
// flat records derived from it.
package document

// TextSegment is one half-open [Start, End) range of Unicode code points
// into a document's full text.
type TextSegment struct {
	Start int64
	End   int64
}

// TextAnchor locates one logical span of text as an ordered sequence of
// segments. A span may be physically scattered in the source layout, so
// segment order is meaningful and is not necessarily numeric index order.
// Zero segments denotes an empty span.
type TextAnchor struct {
	Segments []TextSegment
}

// FormField is a detected (name, value) pair on one page. Both sides anchor
// into the document-level text, not per-page text. Confidences are
// service-provided estimates in [0,1], observational only.
type FormField struct {
	Name            TextAnchor
	Value           TextAnchor
	NameConfidence  float32
	ValueConfidence float32
}

// Page holds the form fields detected on one page. Index is the 0-based
// position of the page as received; output page numbers are Index+1.
type Page struct {
	Index      int
	FormFields []FormField
}

// Result is the document-understanding result for one input file: the full
// text buffer plus the per-page structure anchored into it. Owned by one
// pipeline run and immutable once received.
type Result struct {
	Text  string
	Pages []Page
}

// Record is one extracted (page, field name, field value) tuple. PageNumber
// is 1-based. Records keep page-then-field source order.
type Record struct {
	PageNumber int
	FieldName  string
	FieldValue string
}

// Table is a flat, ordered rendering of records for export sinks.
type Table struct {
	Header []string
	Rows   [][]string
}
