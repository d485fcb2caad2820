package extract

import (
	"fmt"
	"log/slog"

	"github.com/formintake/formintake/internal/document"
)

// Observation is the per-field observability event: what was resolved and
// how confident the service was. Confidences never alter the output; they
// exist for logs and metrics only.
type Observation struct {
	PageNumber      int
	FieldName       string
	FieldValue      string
	NameConfidence  float32
	ValueConfidence float32
}

// Observer receives one Observation per extracted field.
type Observer interface {
	ObserveField(Observation)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Observation)

func (f ObserverFunc) ObserveField(o Observation) { f(o) }

// Extractor walks a document's pages and form fields, resolving each field's
// name and value against the document-level text and emitting one record per
// field in page-then-field source order.
type Extractor struct {
	logger   *slog.Logger
	observer Observer
}

type ExtractorOption func(*Extractor)

// WithObserver registers a hook invoked once per extracted field.
func WithObserver(obs Observer) ExtractorOption {
	return func(e *Extractor) { e.observer = obs }
}

func NewExtractor(logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces one record per form field. Pages contribute in slice
// order with PageNumber = Index+1; fields keep their source order with no
// reordering, filtering, or deduplication. A page without form fields
// contributes zero records. The first malformed anchor aborts extraction
// with a fault naming the page, field position, and side.
func (e *Extractor) Extract(doc *document.Result) ([]document.Record, error) {
	resolver := NewResolver(doc.Text)
	var records []document.Record
	for _, page := range doc.Pages {
		pageNumber := page.Index + 1
		for j, field := range page.FormFields {
			name, err := resolver.Resolve(field.Name)
			if err != nil {
				return nil, fmt.Errorf("page %d: field %d: name: %w", pageNumber, j, err)
			}
			value, err := resolver.Resolve(field.Value)
			if err != nil {
				return nil, fmt.Errorf("page %d: field %d: value: %w", pageNumber, j, err)
			}
			records = append(records, document.Record{
				PageNumber: pageNumber,
				FieldName:  name,
				FieldValue: value,
			})
			e.observe(Observation{
				PageNumber:      pageNumber,
				FieldName:       name,
				FieldValue:      value,
				NameConfidence:  field.NameConfidence,
				ValueConfidence: field.ValueConfidence,
			})
		}
	}
	return records, nil
}

func (e *Extractor) observe(o Observation) {
	e.logger.Debug("extract.field",
		"page", o.PageNumber,
		"name", o.FieldName,
		"value", o.FieldValue,
		"name_confidence", o.NameConfidence,
		"value_confidence", o.ValueConfidence)
	if e.observer != nil {
		e.observer.ObserveField(o)
	}
}
