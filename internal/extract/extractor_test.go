package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

// twoPageDoc has one field on page 1 and nothing on page 2.
func twoPageDoc() *document.Result {
	return &document.Result{
		Text: "Name: Jane Doe",
		Pages: []document.Page{
			{
				Index: 0,
				FormFields: []document.FormField{
					{
						Name:            anchorOf([2]int64{0, 4}),
						Value:           anchorOf([2]int64{6, 14}),
						NameConfidence:  0.97,
						ValueConfidence: 0.81,
					},
				},
			},
			{Index: 1},
		},
	}
}

func TestExtract_EmptyPageContributesNothing(t *testing.T) {
	records, err := NewExtractor(nil).Extract(twoPageDoc())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].PageNumber)
	assert.Equal(t, "Name", records[0].FieldName)
	assert.Equal(t, "Jane Doe", records[0].FieldValue)
}

func TestExtract_SourceOrderPreserved(t *testing.T) {
	doc := &document.Result{
		Text: "b a c",
		Pages: []document.Page{
			{
				Index: 0,
				FormFields: []document.FormField{
					{Name: anchorOf([2]int64{0, 1})}, // "b"
					{Name: anchorOf([2]int64{2, 3})}, // "a"
				},
			},
			{
				Index: 1,
				FormFields: []document.FormField{
					{Name: anchorOf([2]int64{4, 5})}, // "c"
				},
			},
		},
	}

	records, err := NewExtractor(nil).Extract(doc)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// No sorting by content: source order wins.
	assert.Equal(t, []string{"b", "a", "c"}, []string{
		records[0].FieldName, records[1].FieldName, records[2].FieldName,
	})
	assert.Equal(t, []int{1, 1, 2}, []int{
		records[0].PageNumber, records[1].PageNumber, records[2].PageNumber,
	})
}

func TestExtract_AnchorsIndexDocumentText(t *testing.T) {
	// The field sits on page 2 but its anchors index the shared
	// document-level text buffer.
	doc := &document.Result{
		Text: "page one text\nTotal: 12,99",
		Pages: []document.Page{
			{Index: 0},
			{
				Index: 1,
				FormFields: []document.FormField{
					{
						Name:  anchorOf([2]int64{14, 19}), // "Total"
						Value: anchorOf([2]int64{21, 26}), // "12,99"
					},
				},
			},
		},
	}

	records, err := NewExtractor(nil).Extract(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].PageNumber)
	assert.Equal(t, "Total", records[0].FieldName)
	assert.Equal(t, "12,99", records[0].FieldValue)
}

func TestExtract_EmptyAnchorsYieldEmptyStrings(t *testing.T) {
	doc := &document.Result{
		Text: "irrelevant",
		Pages: []document.Page{
			{Index: 0, FormFields: []document.FormField{{}}},
		},
	}

	records, err := NewExtractor(nil).Extract(doc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].FieldName)
	assert.Empty(t, records[0].FieldValue)
}

func TestExtract_MalformedAnchorNamesField(t *testing.T) {
	doc := twoPageDoc()
	doc.Pages[0].FormFields[0].Value = anchorOf([2]int64{6, 999})

	records, err := NewExtractor(nil).Extract(doc)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, common.ErrMalformedAnchor))
	assert.ErrorContains(t, err, "page 1: field 0: value")
}

func TestExtract_ObserverSeesConfidences(t *testing.T) {
	var seen []Observation
	obs := ObserverFunc(func(o Observation) { seen = append(seen, o) })

	_, err := NewExtractor(nil, WithObserver(obs)).Extract(twoPageDoc())
	require.NoError(t, err)
	require.Len(t, seen, 1)

	assert.Equal(t, 1, seen[0].PageNumber)
	assert.Equal(t, "Name", seen[0].FieldName)
	assert.Equal(t, "Jane Doe", seen[0].FieldValue)
	assert.InDelta(t, 0.97, seen[0].NameConfidence, 1e-6)
	assert.InDelta(t, 0.81, seen[0].ValueConfidence, 1e-6)
}

func TestExtract_ConfidenceNeverFilters(t *testing.T) {
	doc := twoPageDoc()
	doc.Pages[0].FormFields[0].NameConfidence = 0
	doc.Pages[0].FormFields[0].ValueConfidence = 0

	records, err := NewExtractor(nil).Extract(doc)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
