package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
)

type entry struct {
	name string
	body []byte
}

func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// router converts .txt entries itself and sends .zip entries back into the
// archive converter, like the engine does.
type router struct {
	archive *Converter
	seen    []string
}

func (r *router) ConvertStream(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	r.seen = append(r.seen, info.Filename)
	switch info.Extension {
	case ".txt":
		data, err := io.ReadAll(s)
		if err != nil {
			return nil, err
		}
		res := model.NewResult()
		res.Markdown = strings.TrimSpace(string(data))
		res.RawText = res.Markdown
		img := model.NewImageArtifact([]byte{1}, "image/png", 1)
		img.Source = "inner.png"
		res.Artifacts.Images = append(res.Artifacts.Images, img)
		return res, nil
	case ".zip":
		res, err := r.archive.Convert(ctx, s, info)
		if err != nil {
			return nil, err
		}
		var parts []string
		for _, seg := range res.Segments {
			parts = append(parts, seg.Markdown())
		}
		res.Markdown = strings.Join(parts, "\n\n")
		return res, nil
	}
	return nil, errors.New("unsupported entry")
}

func newConverter(cfg Config) (*Converter, *router) {
	r := &router{}
	c := NewConverter(r, cfg, nil)
	r.archive = c
	return c, r
}

func TestConvert(t *testing.T) {
	data := buildZip(t,
		entry{"docs/", nil},
		entry{"docs/readme.txt", []byte("Read me first.")},
		entry{"blob.bin", []byte{0, 1, 2}},
		entry{"notes.txt", []byte("Second note.")},
	)
	c, r := newConverter(Config{})

	res, err := c.Convert(context.Background(), bytes.NewReader(data), model.StreamInfo{Filename: "bundle.zip"}.Normalize())
	require.NoError(t, err)

	assert.Equal(t, []string{"readme.txt", "blob.bin", "notes.txt"}, r.seen)
	require.Len(t, res.Segments, 3)

	assert.Equal(t, "## File: docs/readme.txt\n\nRead me first.", res.Segments[0].Markdown())
	assert.Equal(t, "docs/readme.txt", res.Segments[0].Label())
	assert.Equal(t, "## File: blob.bin\n\n<!-- Failed to convert blob.bin: unsupported entry -->", res.Segments[1].Markdown())
	assert.Equal(t, "## File: notes.txt\n\nSecond note.", res.Segments[2].Markdown())

	require.Len(t, res.Artifacts.Images, 2)
	assert.Equal(t, "docs/readme.txt/inner.png", res.Artifacts.Images[0].Source)
	assert.Equal(t, 0, res.Artifacts.Images[0].SegmentIndex())
	assert.Equal(t, 2, res.Artifacts.Images[1].SegmentIndex())

	assert.Equal(t, "3", res.Metadata[MetaEntryCount])
	assert.Equal(t, "1", res.Metadata[MetaFailedCount])
	assert.Equal(t, "bundle.zip", res.Title)
	assert.Equal(t, "Read me first.\nSecond note.\n", res.RawText)
}

func TestConvert_Nested(t *testing.T) {
	inner := buildZip(t, entry{"deep.txt", []byte("Deep text.")})
	outer := buildZip(t, entry{"inner.zip", inner}, entry{"top.txt", []byte("Top.")})
	c, _ := newConverter(Config{})

	res, err := c.Convert(context.Background(), bytes.NewReader(outer), model.StreamInfo{})
	require.NoError(t, err)

	require.Len(t, res.Segments, 2)
	assert.Equal(t, "## File: inner.zip\n\n## File: deep.txt\n\nDeep text.", res.Segments[0].Markdown())
	require.Len(t, res.Artifacts.Images, 2)
	assert.Equal(t, "inner.zip/deep.txt/inner.png", res.Artifacts.Images[0].Source)
	assert.Equal(t, 0, res.Artifacts.Images[0].SegmentIndex())
}

func TestConvert_DepthLimit(t *testing.T) {
	innermost := buildZip(t, entry{"a.txt", []byte("A")})
	middle := buildZip(t, entry{"innermost.zip", innermost})
	outer := buildZip(t, entry{"middle.zip", middle})
	c, _ := newConverter(Config{MaxDepth: 2})

	res, err := c.Convert(context.Background(), bytes.NewReader(outer), model.StreamInfo{})
	require.NoError(t, err)

	md := res.Segments[0].Markdown()
	assert.Contains(t, md, "## File: middle.zip")
	assert.Contains(t, md, "## File: innermost.zip")
	assert.Contains(t, md, "<!-- Failed to convert a.txt: nesting limit exceeded")
}

func TestConvert_Limits(t *testing.T) {
	data := buildZip(t,
		entry{"one.txt", []byte("1")},
		entry{"big.txt", bytes.Repeat([]byte("x"), 64)},
		entry{"three.txt", []byte("3")},
		entry{"four.txt", []byte("4")},
	)
	c, _ := newConverter(Config{MaxEntries: 3, MaxEntrySize: 16})

	res, err := c.Convert(context.Background(), bytes.NewReader(data), model.StreamInfo{})
	require.NoError(t, err)

	require.Len(t, res.Segments, 4)
	assert.Contains(t, res.Segments[1].Markdown(), "<!-- Failed to convert big.txt: entry exceeds size limit")
	assert.Equal(t, model.KindMetadata, res.Segments[3].Kind())
	assert.Equal(t, "<!-- Skipped 1 entries after limit of 3: four.txt -->", res.Segments[3].Markdown())
	assert.Equal(t, "3", res.Metadata[MetaEntryCount])
}

func TestConvert_Cancelled(t *testing.T) {
	data := buildZip(t, entry{"a.txt", []byte("a")})
	c, _ := newConverter(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Convert(ctx, bytes.NewReader(data), model.StreamInfo{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccepts(t *testing.T) {
	c, _ := newConverter(Config{})
	assert.True(t, c.AcceptsInfo(model.StreamInfo{Extension: ".zip"}))
	assert.True(t, c.AcceptsInfo(model.StreamInfo{MIMEType: "application/x-zip-compressed"}))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".tar"}))

	assert.True(t, c.Accepts(bytes.NewReader(buildZip(t, entry{"a.txt", nil})), model.StreamInfo{}))
	assert.False(t, c.Accepts(strings.NewReader("PK but not really"), model.StreamInfo{}))
}

func TestFailureNote(t *testing.T) {
	err := errors.New("line one\nline --> two")
	assert.Equal(t, "<!-- Failed to convert x: line one line - -> two -->", failureNote("x", err))
}

func TestFailureNote_EntryNameCannotCloseComment(t *testing.T) {
	for _, name := range []string{"a-->b.txt", "a--->b.txt", "x---y"} {
		note := failureNote(name, errors.New("bad --- input"))
		assert.Equal(t, 1, strings.Count(note, "-->"), note)
		assert.True(t, strings.HasSuffix(note, " -->"), note)
		assert.NotContains(t, strings.TrimSuffix(strings.TrimPrefix(note, "<!--"), "-->"), "--", note)
	}
	assert.Equal(t, "<!-- Failed to convert a- ->b.txt: x -->", failureNote("a-->b.txt", errors.New("x")))
}
