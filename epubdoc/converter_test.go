package epubdoc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConvert(t *testing.T) {
	r := testBook(t)
	res, err := NewConverter(nil, nil).Convert(context.Background(), r, model.StreamInfo{Filename: "book.epub"}.Normalize())
	require.NoError(t, err)

	assert.Equal(t, "Test Book", res.Title)
	require.Len(t, res.Segments, 3)

	meta := res.Segments[0]
	assert.Equal(t, model.KindMetadata, meta.Kind())
	assert.Equal(t, "**Title:** Test Book\n**Authors:** Test Author, Second Author\n**Language:** en\n**Identifier:** test-isbn-123", meta.Markdown())

	ch1 := res.Segments[1]
	assert.Equal(t, model.KindSection, ch1.Kind())
	assert.Equal(t, "Getting Started", ch1.Label())
	assert.Equal(t, "OEBPS/text/chapter1.xhtml", ch1.Source())
	n, ok := ch1.Number()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Contains(t, ch1.Markdown(), "# Introduction")
	assert.Contains(t, ch1.Markdown(), "![Cover art](data:image/png;base64,")

	ch2 := res.Segments[2]
	assert.Equal(t, "Wrapping Up", ch2.Label())
	assert.Contains(t, ch2.Markdown(), "Item one")

	require.Len(t, res.Artifacts.Images, 1)
	img := res.Artifacts.Images[0]
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "../images/cover.png", img.Source)
	assert.Equal(t, 1, img.SegmentIndex())
	assert.Equal(t, 1, img.PageNumber)

	assert.Equal(t, "2", res.Metadata[MetaChapterCount])
	assert.Equal(t, "Test Author, Second Author", res.Metadata["author"])
	assert.Equal(t, "Test Book", res.Artifacts.Metadata["title"])
	assert.Contains(t, res.RawText, "second chapter")
}

func TestConvert_DRM(t *testing.T) {
	r := testBook(t, entry{"META-INF/rights.xml", "<rights/>"})
	_, err := NewConverter(nil, nil).Convert(context.Background(), r, model.StreamInfo{Extension: ".epub"})
	assert.ErrorIs(t, err, ErrDRMProtected)
}

func TestConvert_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewConverter(nil, nil).Convert(ctx, testBook(t), model.StreamInfo{Extension: ".epub"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccepts(t *testing.T) {
	c := NewConverter(nil, nil)
	assert.True(t, c.AcceptsInfo(model.StreamInfo{Extension: ".epub"}))
	assert.True(t, c.AcceptsInfo(model.StreamInfo{MIMEType: "application/epub+zip"}))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".zip"}))

	assert.True(t, c.Accepts(testBook(t), model.StreamInfo{}))
	assert.False(t, c.Accepts(buildEPUB(t, entry{"word/document.xml", "<w/>"}), model.StreamInfo{}))
	assert.False(t, c.Accepts(bytes.NewReader([]byte("plain")), model.StreamInfo{}))
}

func TestMetadataBlock(t *testing.T) {
	assert.Equal(t, "", metadataBlock(Metadata{}))
	assert.Equal(t, "**Title:** T\n**Publisher:** P", metadataBlock(Metadata{Title: "T", Publisher: "P"}))
}
