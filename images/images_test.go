package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/providers"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memStore struct {
	objects map[string][]byte
	fail    bool
}

func (m *memStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	if m.fail {
		return "", errors.New("disk full")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = data
	return "assets/" + name, nil
}

func (m *memStore) Workspace() string { return "mem" }

func TestProbe(t *testing.T) {
	info := Probe(pngBytes(t, 7, 3))
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 7, info.Width)
	assert.Equal(t, 3, info.Height)
	assert.Equal(t, "7", info.Metadata()[MetaWidth])

	assert.Nil(t, Probe([]byte("not an image")).Metadata())
}

func TestPipeline_InlinePlaceholder(t *testing.T) {
	data := pngBytes(t, 2, 2)
	img := model.NewImageArtifact(data, "", 1)
	img.Label = "Figure [1]"

	md, err := NewPipeline().Process(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "![Figure (1)](data:image/png;base64,"))
	assert.Equal(t, md, img.Placeholder())
	assert.Equal(t, "image/png", img.ContentType)
}

func TestPipeline_PlaceholderSetOnce(t *testing.T) {
	p := NewPipeline()
	img := model.NewImageArtifact([]byte{1}, "image/png", 1)
	first, err := p.Placeholder(context.Background(), img)
	require.NoError(t, err)
	img.Label = "changed"
	second, err := p.Placeholder(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_EnrichmentMergesCaptionAndText(t *testing.T) {
	u := providers.ImageUnderstandingFunc(func(context.Context, []byte, model.StreamInfo) (*providers.ImageDescription, error) {
		return &providers.ImageDescription{Caption: "A chart", Text: "Revenue\n\n2024"}, nil
	})
	img := model.NewImageArtifact(pngBytes(t, 1, 1), "image/png", 2)
	md, err := NewPipeline(WithUnderstanding(u)).Process(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "A chart", img.Label)
	assert.Equal(t, "A chart", img.Metadata[MetaCaption])
	assert.Equal(t, "Revenue\n\n2024", img.RawText)
	assert.True(t, strings.HasSuffix(md, "\n\n> Revenue\n>\n> 2024"))
}

func TestPipeline_ProviderFailureDegrades(t *testing.T) {
	u := providers.ImageUnderstandingFunc(func(context.Context, []byte, model.StreamInfo) (*providers.ImageDescription, error) {
		return nil, errors.New("service down")
	})
	img := model.NewImageArtifact(pngBytes(t, 1, 1), "image/png", 1)
	md, err := NewPipeline(WithUnderstanding(u)).Process(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "![image](data:"))
	assert.Empty(t, img.RawText)
}

func TestPipeline_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	u := providers.ImageUnderstandingFunc(func(context.Context, []byte, model.StreamInfo) (*providers.ImageDescription, error) {
		cancel()
		return nil, context.Canceled
	})
	img := model.NewImageArtifact([]byte{1}, "image/png", 1)
	_, err := NewPipeline(WithUnderstanding(u)).Process(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, img.HasPlaceholder())
}

func TestPipeline_StoreReference(t *testing.T) {
	st := &memStore{}
	p := NewPipeline(WithStore(st, "doc"))
	img := model.NewImageArtifact(pngBytes(t, 1, 1), "image/png", 3)
	md, err := p.Process(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "![image](assets/doc/page-3-image-1.png)", md)
	assert.Contains(t, st.objects, "doc/page-3-image-1.png")
	assert.Equal(t, "assets/doc/page-3-image-1.png", img.Metadata[MetaRef])
}

func TestPipeline_StoreFailureFallsBackInline(t *testing.T) {
	p := NewPipeline(WithStore(&memStore{fail: true}, ""))
	img := model.NewImageArtifact([]byte{1, 2}, "image/png", 1)
	md, err := p.Process(context.Background(), img)
	require.NoError(t, err)
	assert.Contains(t, md, "data:image/png;base64,")
}

func TestPipeline_ProcessAllKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	u := providers.ImageUnderstandingFunc(func(_ context.Context, data []byte, _ model.StreamInfo) (*providers.ImageDescription, error) {
		calls.Add(1)
		return &providers.ImageDescription{Caption: string(data)}, nil
	})
	p := NewPipeline(WithUnderstanding(u), WithConcurrency(4))
	var imgs []*model.ImageArtifact
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		imgs = append(imgs, model.NewImageArtifact([]byte(c), "image/png", 1))
	}
	out, err := p.ProcessAll(context.Background(), imgs)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i, c := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, strings.HasPrefix(out[i], "!["+c+"]("), out[i])
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestConverter(t *testing.T) {
	c := NewConverter(NewPipeline())
	info := model.StreamInfo{Filename: "photo.PNG"}.Normalize()
	assert.True(t, c.AcceptsInfo(info))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".pdf"}))

	data := pngBytes(t, 4, 4)
	assert.True(t, c.Accepts(bytes.NewReader(data), info))
	assert.False(t, c.Accepts(bytes.NewReader([]byte("%PDF-1.7")), info))

	res, err := c.Convert(context.Background(), bytes.NewReader(data), info)
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, model.KindImage, res.Segments[0].Kind())
	require.Len(t, res.Artifacts.Images, 1)
	assert.Equal(t, 0, res.Artifacts.Images[0].SegmentIndex())
	assert.True(t, strings.HasPrefix(res.Segments[0].Markdown(), "![photo.PNG](data:image/png;base64,"))
}
