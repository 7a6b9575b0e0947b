package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegment(t *testing.T) {
	seg, err := NewSegment("# Title", KindPage,
		WithNumber(1),
		WithLabel("Page 1"),
		WithSource("report.pdf"),
		WithMetadata(map[string]string{"lang": "en"}))
	require.NoError(t, err)

	assert.Equal(t, "# Title", seg.Markdown())
	assert.Equal(t, KindPage, seg.Kind())
	n, ok := seg.Number()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Page 1", seg.Label())
	assert.Equal(t, "report.pdf", seg.Source())
	v, ok := seg.MetadataValue("lang")
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	_, _, timed := seg.TimeRange()
	assert.False(t, timed)
}

func TestNewSegment_Invalid(t *testing.T) {
	tests := []struct {
		name string
		kind SegmentKind
		opts []SegmentOption
	}{
		{"unknown kind", SegmentKind(42), nil},
		{"negative number", KindSlide, []SegmentOption{WithNumber(-1)}},
		{"inverted range", KindAudio, []SegmentOption{WithTimeRange(5*time.Second, time.Second)}},
		{"negative start", KindAudio, []SegmentOption{WithTimeRange(-time.Second, time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSegment("x", tt.kind, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidSegment)
		})
	}
	assert.Panics(t, func() { MustSegment("x", SegmentKind(-1)) })
}

func TestSegment_MetadataIsCopied(t *testing.T) {
	src := map[string]string{"k": "v"}
	seg := MustSegment("x", KindSection, WithMetadata(src))
	src["k"] = "changed"

	md := seg.Metadata()
	assert.Equal(t, "v", md["k"])
	md["k"] = "mutated"
	v, _ := seg.MetadataValue("k")
	assert.Equal(t, "v", v)

	assert.Empty(t, MustSegment("y", KindSection).Metadata())
}

func TestSegment_Equal(t *testing.T) {
	a := MustSegment("x", KindSheet, WithNumber(2), WithLabel("Sheet2"))
	b := MustSegment("x", KindSheet, WithNumber(2), WithLabel("Sheet2"))
	c := MustSegment("x", KindSheet, WithNumber(3), WithLabel("Sheet2"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSegment_MarshalJSON(t *testing.T) {
	seg := MustSegment("hello", KindAudio, WithTimeRange(0, 1500*time.Millisecond))
	data, err := json.Marshal(seg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"markdown":"hello","kind":"audio","start_seconds":0,"end_seconds":1.5}`, string(data))
}

func TestSegmentKind_String(t *testing.T) {
	assert.Equal(t, "page", KindPage.String())
	assert.Equal(t, "metadata", KindMetadata.String())
	assert.Equal(t, "unknown", SegmentKind(99).String())
	_, err := SegmentKind(99).MarshalText()
	assert.Error(t, err)
}

func TestResult_Counts(t *testing.T) {
	res := NewResult()
	res.AddSegment(MustSegment("a", KindPage))
	idx := res.AddSegment(MustSegment("b", KindTable))
	res.AddSegment(MustSegment("c", KindPage))

	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, res.CountKind(KindPage))
	assert.Equal(t, 0, res.CountKind(KindImage))

	res.SetMeta(MetaTitleHint, "")
	_, ok := res.Metadata[MetaTitleHint]
	assert.False(t, ok, "empty values are skipped")

	res.SetCount(MetaPageCount, 2)
	assert.Equal(t, "2", res.Metadata[MetaPageCount])
}
