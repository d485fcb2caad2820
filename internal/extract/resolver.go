package extract

import (
	"fmt"
	"strings"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

// Resolver materializes text anchors against one document's full text.
// Segment offsets index Unicode code points, so the rune buffer is derived
// once per document and reused for every field.
type Resolver struct {
	runes []rune
}

func NewResolver(fullText string) *Resolver {
	return &Resolver{runes: []rune(fullText)}
}

// Resolve concatenates the anchor's segments in anchor order, not numeric
// index order, so a value wrapped across columns reads correctly. The
// concatenation is trimmed and embedded newlines become single spaces. An
// anchor with zero segments resolves to "". A segment outside the text
// bounds fails with a malformed-anchor fault; it is never clamped.
func (r *Resolver) Resolve(anchor document.TextAnchor) (string, error) {
	if len(anchor.Segments) == 0 {
		return "", nil
	}
	n := int64(len(r.runes))
	var b strings.Builder
	for i, seg := range anchor.Segments {
		if seg.Start > seg.End {
			return "", common.MalformedAnchorFault(fmt.Sprintf(
				"segment %d: start %d exceeds end %d", i, seg.Start, seg.End))
		}
		if seg.Start < 0 || seg.End > n {
			return "", common.MalformedAnchorFault(fmt.Sprintf(
				"segment %d: range [%d,%d) outside text of %d characters", i, seg.Start, seg.End, n))
		}
		b.WriteString(string(r.runes[seg.Start:seg.End]))
	}
	return normalize(b.String()), nil
}

// Resolve is the one-shot form of Resolver.Resolve.
func Resolve(anchor document.TextAnchor, fullText string) (string, error) {
	return NewResolver(fullText).Resolve(anchor)
}

// normalize trims the concatenation, then flattens embedded newlines to
// spaces. Trimming runs first so trailing newlines are removed rather than
// turned into padding. Other interior whitespace passes through verbatim.
func normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
