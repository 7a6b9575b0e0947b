package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/providers"
)

// ErrClosed is returned by a client used after Close.
var ErrClosed = errors.New("ocr: client closed")

// SegMode is Tesseract's page segmentation mode (its PSM number).
type SegMode int

const (
	SegAuto       SegMode = 3
	SegColumn     SegMode = 4
	SegBlock      SegMode = 6
	SegLine       SegMode = 7
	SegSparseText SegMode = 11
)

// Options configures a Client. Languages defaults to "eng" and Mode to
// SegAuto.
type Options struct {
	Languages []string
	Mode      SegMode
}

func (o Options) withDefaults() Options {
	if len(o.Languages) == 0 {
		o.Languages = []string{"eng"}
	}
	if o.Mode == 0 {
		o.Mode = SegAuto
	}
	return o
}

var _ providers.ImageUnderstanding = (*Client)(nil)

// Describe returns the recognized text of an image. An image with no
// recognizable text yields a nil description.
func (c *Client) Describe(ctx context.Context, data []byte, _ model.StreamInfo) (*providers.ImageDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.recognize(data)
	if err != nil {
		return nil, err
	}
	text := tidy(raw)
	if text == "" {
		return nil, nil
	}
	return &providers.ImageDescription{Text: text}, nil
}

// tidy trims every line and squeezes runs of blank lines to one, the way
// Tesseract output reads best inside alt text and metadata.
func tidy(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	blank := true
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank {
				out = append(out, l)
			}
			blank = true
			continue
		}
		out = append(out, l)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
