package images

import (
	"context"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tsawler/markitdown/model"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Converter renders a standalone image file as a single image segment.
type Converter struct {
	Pipeline *Pipeline
}

// NewConverter returns a Converter using p.
func NewConverter(p *Pipeline) *Converter {
	return &Converter{Pipeline: p}
}

// Name returns "image".
func (c *Converter) Name() string { return "image" }

// AcceptsInfo reports whether info names an image.
func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(imageExtensions...) || info.HasMIMEPrefix("image/")
}

// Accepts confirms the stream starts with image magic bytes.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	m, err := mimetype.DetectReader(s)
	if err != nil {
		return false
	}
	return IsImageType(m.String())
}

// Convert reads the image, enriches it and emits one image segment.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img := model.NewImageArtifact(data, info.BaseMIME(), 1)
	img.Source = info.Name()
	img.Label = info.Name()

	md, err := c.Pipeline.Process(ctx, img)
	if err != nil {
		return nil, err
	}

	res := model.NewResult()
	seg, err := model.NewSegment(md, model.KindImage,
		model.WithNumber(1),
		model.WithLabel(img.Label),
		model.WithSource(img.Source),
		model.WithMetadata(img.Metadata),
	)
	if err != nil {
		return nil, err
	}
	idx := res.AddSegment(seg)
	if err := img.SetSegmentIndex(idx); err != nil {
		return nil, err
	}
	res.Artifacts.Images = append(res.Artifacts.Images, img)
	res.RawText = img.RawText
	if img.Caption != "" {
		res.SetMeta(model.MetaTitleHint, img.Caption)
	}
	return res, nil
}
