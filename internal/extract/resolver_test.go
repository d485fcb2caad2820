package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

func anchorOf(segs ...[2]int64) document.TextAnchor {
	var a document.TextAnchor
	for _, s := range segs {
		a.Segments = append(a.Segments, document.TextSegment{Start: s[0], End: s[1]})
	}
	return a
}

func TestResolve_EmptyAnchor(t *testing.T) {
	got, err := Resolve(document.TextAnchor{}, "Hello\nWorld")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestResolve_SingleSegment(t *testing.T) {
	got, err := Resolve(anchorOf([2]int64{0, 5}), "Hello\nWorld")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestResolve_MultiSegmentCollapsesNewline(t *testing.T) {
	// First segment carries the line break; it becomes a single space.
	got, err := Resolve(anchorOf([2]int64{0, 6}, [2]int64{6, 11}), "Hello\nWorld")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got)
}

func TestResolve_AnchorOrderNotNumericOrder(t *testing.T) {
	got, err := Resolve(anchorOf([2]int64{6, 11}, [2]int64{0, 5}), "Hello\nWorld")
	require.NoError(t, err)
	assert.Equal(t, "WorldHello", got)
}

func TestResolve_TrimsBeforeCollapsing(t *testing.T) {
	// "  Jane\nDoe\n": the trailing newline is trimmed away, the interior
	// one becomes a space.
	got, err := Resolve(anchorOf([2]int64{0, 11}), "  Jane\nDoe\n")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got)
}

func TestResolve_InteriorWhitespacePreserved(t *testing.T) {
	got, err := Resolve(anchorOf([2]int64{0, 6}), "a\tb  c")
	require.NoError(t, err)
	assert.Equal(t, "a\tb  c", got)

	// Each interior newline becomes its own space.
	got, err = Resolve(anchorOf([2]int64{0, 4}), "a\n\nb")
	require.NoError(t, err)
	assert.Equal(t, "a  b", got)
}

func TestResolve_ZeroWidthSegment(t *testing.T) {
	got, err := Resolve(anchorOf([2]int64{3, 3}, [2]int64{0, 3}), "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestResolve_OffsetsAreCodePoints(t *testing.T) {
	// "Prix: 42€" is 9 code points but 11 bytes; byte-based slicing would
	// cut into the euro sign.
	got, err := Resolve(anchorOf([2]int64{6, 9}), "Prix: 42€")
	require.NoError(t, err)
	assert.Equal(t, "42€", got)
}

func TestResolve_MalformedSegments(t *testing.T) {
	tests := []struct {
		name    string
		segment [2]int64
	}{
		{"end beyond text", [2]int64{0, 99}},
		{"negative start", [2]int64{-1, 3}},
		{"start exceeds end", [2]int64{5, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(anchorOf(tt.segment), "short text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrMalformedAnchor))
			assert.Empty(t, got)
			assert.ErrorContains(t, err, "segment 0")
		})
	}
}

func TestResolve_LaterSegmentMalformed(t *testing.T) {
	_, err := Resolve(anchorOf([2]int64{0, 3}, [2]int64{4, 999}), "abc def")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedAnchor))
	assert.ErrorContains(t, err, "segment 1")
}

func TestResolver_Reuse(t *testing.T) {
	r := NewResolver("Name: Jane Doe")

	name, err := r.Resolve(anchorOf([2]int64{0, 4}))
	require.NoError(t, err)
	value, err := r.Resolve(anchorOf([2]int64{6, 14}))
	require.NoError(t, err)

	assert.Equal(t, "Name", name)
	assert.Equal(t, "Jane Doe", value)
}
