package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/model"
)

var htmlExtensions = []string{".html", ".htm", ".xhtml", ".xht"}

// Converter converts HTML pages.
type Converter struct {
	Images     *images.Pipeline
	Logger     logrus.FieldLogger
	Navigation NavigationExclusionMode
}

// NewConverter returns a Converter that strips navigation with the standard
// heuristics.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger, Navigation: NavigationExclusionStandard}
}

func (c *Converter) Name() string { return "html" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(htmlExtensions...) ||
		info.BaseMIME() == "text/html" || info.BaseMIME() == "application/xhtml+xml"
}

// Accepts looks for markup near the start of the stream.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	head := make([]byte, 1024)
	n, _ := io.ReadFull(s, head)
	head = bytes.ToLower(bytes.TrimSpace(head[:n]))
	return bytes.HasPrefix(head, []byte("<")) || bytes.Contains(head, []byte("<html"))
}

// Convert renders the page as one section segment.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	doc, err := Parse(s, info.Charset)
	if err != nil {
		return nil, err
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	r, err := Render(ctx, doc, RenderOptions{
		Navigation: c.Navigation,
		Domain:     domain(info.URL),
		Images:     c.Images,
		Page:       1,
		Logger:     log.WithField("source", info.Name()),
	})
	if err != nil {
		return nil, err
	}

	res := model.NewResult()
	res.Title = doc.Title()
	seg, err := model.NewSegment(r.Markdown, model.KindSection,
		model.WithNumber(1),
		model.WithLabel(res.Title),
		model.WithSource(info.Name()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build segment: %w", err)
	}
	idx := res.AddSegment(seg)
	for _, img := range r.Images {
		if err := img.SetSegmentIndex(idx); err != nil {
			return nil, err
		}
	}
	res.Artifacts.Images = append(res.Artifacts.Images, r.Images...)

	res.SetMeta(model.MetaTitleHint, res.Title)
	for k, v := range doc.Metadata() {
		res.SetMeta(k, v)
		res.Artifacts.Metadata[k] = v
	}
	res.RawText = doc.Text()
	return res, nil
}

// domain returns the scheme and host of raw, or "" when raw is not an absolute
// http(s) URL.
func domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
