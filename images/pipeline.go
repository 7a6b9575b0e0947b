package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/providers"
	"github.com/tsawler/markitdown/storage"
)

// Pipeline enriches image artifacts and builds their placeholders. A zero
// Pipeline embeds images inline without enrichment.
type Pipeline struct {
	// Understanding, when set and Enabled, is asked for a caption and OCR
	// text for every image.
	Understanding providers.ImageUnderstanding
	Enabled       bool

	// Store, when set, receives image bytes and the placeholder links to
	// the returned reference instead of a data URI.
	Store storage.Store

	// Namespace prefixes stored object names.
	Namespace string

	// Concurrency bounds ProcessAll. Values below 1 mean sequential.
	Concurrency int

	Logger logrus.FieldLogger

	seq atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithUnderstanding enables enrichment through u.
func WithUnderstanding(u providers.ImageUnderstanding) Option {
	return func(p *Pipeline) {
		p.Understanding = u
		p.Enabled = u != nil
	}
}

// WithStore stores images instead of inlining them.
func WithStore(s storage.Store, namespace string) Option {
	return func(p *Pipeline) {
		p.Store = s
		p.Namespace = namespace
	}
}

// WithConcurrency sets the ProcessAll fan-out.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.Concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.Logger = l }
}

// NewPipeline returns a configured pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) log() logrus.FieldLogger {
	if p == nil || p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

// Enrich fills in the artifact's content type, dimensions, caption and OCR
// text. Provider failures are logged and ignored. The returned error is
// non-nil only when ctx is done.
func (p *Pipeline) Enrich(ctx context.Context, img *model.ImageArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info := Probe(img.Data)
	if img.ContentType == "" || (!IsImageType(img.ContentType) && IsImageType(info.ContentType)) {
		img.ContentType = info.ContentType
	}
	img.MergeMetadata(info.Metadata())

	if p == nil || !p.Enabled || p.Understanding == nil {
		return nil
	}
	desc, err := p.Understanding.Describe(ctx, img.Data, model.StreamInfo{
		MIMEType: img.ContentType,
		Filename: img.Source,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.log().WithFields(logrus.Fields{
			"page":   img.PageNumber,
			"source": img.Source,
			"error":  err,
		}).Warn("image understanding failed")
		return nil
	}
	if desc.Empty() {
		return nil
	}
	if c := strings.TrimSpace(desc.Caption); c != "" {
		img.Caption = c
		img.MergeMetadata(map[string]string{MetaCaption: c})
		if img.Label == "" {
			img.Label = c
		}
	}
	if txt := strings.TrimSpace(desc.Text); txt != "" && img.RawText == "" {
		img.RawText = txt
		img.MergeMetadata(map[string]string{MetaOCR: "true"})
	}
	return nil
}

// Placeholder builds the artifact's Markdown once and stores it on the
// artifact. Later calls return the stored value.
func (p *Pipeline) Placeholder(ctx context.Context, img *model.ImageArtifact) (string, error) {
	if img.HasPlaceholder() {
		return img.Placeholder(), nil
	}
	ref, err := p.reference(ctx, img)
	if err != nil {
		return "", err
	}
	md := Render(img, ref)
	if err := img.SetPlaceholder(md); err != nil {
		return img.Placeholder(), nil
	}
	return md, nil
}

// Process enriches img and returns its placeholder.
func (p *Pipeline) Process(ctx context.Context, img *model.ImageArtifact) (string, error) {
	if err := p.Enrich(ctx, img); err != nil {
		return "", err
	}
	return p.Placeholder(ctx, img)
}

// ProcessAll processes imgs with bounded concurrency and returns the
// placeholders in input order.
func (p *Pipeline) ProcessAll(ctx context.Context, imgs []*model.ImageArtifact) ([]string, error) {
	out := make([]string, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	limit := 1
	if p != nil && p.Concurrency > 1 {
		limit = p.Concurrency
	}
	g.SetLimit(limit)
	for i, img := range imgs {
		g.Go(func() error {
			md, err := p.Process(gctx, img)
			if err != nil {
				return err
			}
			out[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) reference(ctx context.Context, img *model.ImageArtifact) (string, error) {
	if p != nil && p.Store != nil && len(img.Data) > 0 {
		name := p.objectName(img)
		ref, err := p.Store.Put(ctx, name, img.Data, img.ContentType)
		if err == nil {
			img.MergeMetadata(map[string]string{MetaRef: ref})
			return ref, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.log().WithFields(logrus.Fields{
			"page":  img.PageNumber,
			"name":  name,
			"error": err,
		}).Warn("image store failed, embedding inline")
	}
	return DataURI(img.ContentType, img.Data), nil
}

func (p *Pipeline) objectName(img *model.ImageArtifact) string {
	n := p.seq.Add(1)
	name := fmt.Sprintf("page-%d-image-%d%s", img.PageNumber, n, Extension(img.ContentType))
	if p.Namespace != "" {
		name = strings.Trim(p.Namespace, "/") + "/" + name
	}
	return name
}

// DataURI encodes data as a base64 data URI.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var labelEscaper = strings.NewReplacer("[", "(", "]", ")", "\r", " ", "\n", " ")

// Render returns the Markdown for img pointing at ref. OCR text, when
// present, follows the image as a block quote.
func Render(img *model.ImageArtifact, ref string) string {
	label := strings.TrimSpace(labelEscaper.Replace(img.Label))
	if label == "" {
		label = "image"
	}
	var sb strings.Builder
	sb.WriteString("![")
	sb.WriteString(label)
	sb.WriteString("](")
	sb.WriteString(ref)
	sb.WriteString(")")
	if txt := strings.TrimSpace(img.RawText); txt != "" {
		sb.WriteString("\n\n")
		for i, line := range strings.Split(txt, "\n") {
			if i > 0 {
				sb.WriteString("\n")
			}
			line = strings.TrimRight(line, " \t\r")
			if line == "" {
				sb.WriteString(">")
				continue
			}
			sb.WriteString("> ")
			sb.WriteString(line)
		}
	}
	return sb.String()
}
