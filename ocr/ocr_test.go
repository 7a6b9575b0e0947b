//go:build ocr

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
)

// blankPNG is a white image with one dark bar; Tesseract reads no words
// from it but has to process it.
func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 120, 40))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 10, 50, 30), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{Mode: SegBlock})
	if err != nil {
		t.Skipf("tesseract not available: %v", err)
	}
	return c
}

func TestDescribe(t *testing.T) {
	c := newClient(t)
	defer c.Close()

	_, err := c.Describe(context.Background(), blankPNG(t), model.StreamInfo{MIMEType: "image/png"})
	assert.NoError(t, err)
}

func TestDescribe_Cancelled(t *testing.T) {
	c := newClient(t)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Describe(ctx, blankPNG(t), model.StreamInfo{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Describe(context.Background(), blankPNG(t), model.StreamInfo{})
	assert.ErrorIs(t, err, ErrClosed)
}
