package source

import (
	"context"

	"github.com/formintake/formintake/internal/document"
)

// Request carries one document's bytes and declared MIME type to a source.
type Request struct {
	Content  []byte
	MimeType string
}

// DocumentSource turns raw file bytes into a structured extraction result.
// Implementations own cancellation and timeout; a failure is fatal for the
// run and never retried at this layer.
type DocumentSource interface {
	Fetch(ctx context.Context, req Request) (*document.Result, error)
}
