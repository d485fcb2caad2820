package source

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/formintake/formintake/internal/document"
)

// FromProto maps a wire document onto the pipeline's model. This is the only
// place wire types cross into the model. Page Index is the 0-based position
// in the response, not any page number claimed by the layout.
func FromProto(doc *documentaipb.Document) *document.Result {
	if doc == nil {
		return &document.Result{}
	}
	result := &document.Result{
		Text:  doc.GetText(),
		Pages: make([]document.Page, 0, len(doc.GetPages())),
	}
	for i, page := range doc.GetPages() {
		p := document.Page{Index: i}
		for _, field := range page.GetFormFields() {
			p.FormFields = append(p.FormFields, document.FormField{
				Name:            anchorFromProto(field.GetFieldName().GetTextAnchor()),
				Value:           anchorFromProto(field.GetFieldValue().GetTextAnchor()),
				NameConfidence:  field.GetFieldName().GetConfidence(),
				ValueConfidence: field.GetFieldValue().GetConfidence(),
			})
		}
		result.Pages = append(result.Pages, p)
	}
	return result
}

func anchorFromProto(anchor *documentaipb.Document_TextAnchor) document.TextAnchor {
	var out document.TextAnchor
	for _, seg := range anchor.GetTextSegments() {
		out.Segments = append(out.Segments, document.TextSegment{
			Start: seg.GetStartIndex(),
			End:   seg.GetEndIndex(),
		})
	}
	return out
}
