package images

import (
	"bytes"
	"image"
	"strconv"

	// Registered for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Metadata keys written by Probe and Pipeline.
const (
	MetaWidth   = "width"
	MetaHeight  = "height"
	MetaFormat  = "format"
	MetaCaption = "caption"
	MetaOCR     = "ocr"
	MetaRef     = "ref"
)

// Info is what can be learned about an image without decoding its pixels.
type Info struct {
	ContentType string
	Format      string
	Width       int
	Height      int
}

// Probe reads the image header. The content type is sniffed from the bytes;
// dimensions are zero when the format has no registered decoder.
func Probe(data []byte) Info {
	info := Info{ContentType: mimetype.Detect(data).String()}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height
	return info
}

// Metadata returns the probe result as artifact metadata.
func (i Info) Metadata() map[string]string {
	if i.Format == "" {
		return nil
	}
	return map[string]string{
		MetaFormat: i.Format,
		MetaWidth:  strconv.Itoa(i.Width),
		MetaHeight: strconv.Itoa(i.Height),
	}
}

// IsImageType reports whether contentType names an image.
func IsImageType(contentType string) bool {
	return len(contentType) > 6 && contentType[:6] == "image/"
}

// Extension returns the usual file extension for contentType, including the
// leading dot, or ".bin".
func Extension(contentType string) string {
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}
