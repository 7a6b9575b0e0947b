// Package pdf converts PDF documents. Content comes from one of three
// strategies: a document intelligence provider, the embedded text layer, or
// rasterized pages read through the image pipeline. Whatever the strategy,
// content is accumulated per page and emitted as one page segment each.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/pages"
	"github.com/tsawler/markitdown/providers"
	"github.com/tsawler/markitdown/tables"
)

// MIMEType is the registered media type of PDF files.
const MIMEType = "application/pdf"

// Metadata keys set on PDF results.
const (
	MetaStrategy = "extraction"
	MetaSnapshot = "snapshot"
)

// Strategy names recorded under MetaStrategy.
const (
	StrategyIntelligence = "intelligence"
	StrategyEmbedded     = "embedded"
	StrategyRaster       = "raster"
)

// ErrNoContent is returned when no strategy produced a single page.
var ErrNoContent = errors.New("no extractable content")

var pdfMagic = []byte("%PDF-")

// Converter converts PDF documents.
type Converter struct {
	Mode Mode

	// Intelligence is consulted first in ModeAuto and ModeIntelligence.
	Intelligence providers.DocumentIntelligence

	// Rasterizer renders pages for ModeImageOnly, for scanned documents
	// in ModeAuto and for page snapshots.
	Rasterizer Rasterizer

	// Source reads the embedded text and images.
	Source Source

	Images *images.Pipeline

	// PageSnapshots appends a rendered image to every page that received
	// no image of its own.
	PageSnapshots bool

	DPI    int
	Locale string
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter in ModeAuto reading the native layer.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Mode: ModeAuto, Source: NativeSource(), Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "pdf" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".pdf") || info.BaseMIME() == MIMEType || info.BaseMIME() == "application/x-pdf"
}

// Accepts looks for the PDF header in the first kilobyte.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	head := make([]byte, 1024)
	n, _ := io.ReadFull(s, head)
	return bytes.Contains(head[:n], pdfMagic)
}

// Convert runs the strategies allowed by Mode and emits one page segment
// per page.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	x := &extraction{
		c:    c,
		data: data,
		info: info,
		log:  log.WithFields(logrus.Fields{"converter": c.Name(), "source": info.Name()}),
		acc:  pages.New(),
		res:  model.NewResult(),
	}

	switch c.Mode {
	case ModeImageOnly:
		if err := x.raster(ctx, false); err != nil {
			return nil, fmt.Errorf("image-only extraction failed: %w", err)
		}
	default:
		done := false
		if c.Mode == ModeAuto || c.Mode == ModeIntelligence {
			if done, err = x.intelligence(ctx); err != nil {
				return nil, err
			}
		}
		if !done {
			if done, err = x.embedded(ctx, c.Mode == ModeAuto); err != nil {
				return nil, err
			}
		}
		if !done {
			return nil, ErrNoContent
		}
	}

	if err := x.snapshots(ctx); err != nil {
		return nil, err
	}
	return x.finish(ctx)
}

// extraction carries the state of one conversion.
type extraction struct {
	c    *Converter
	data []byte
	info model.StreamInfo
	log  logrus.FieldLogger

	acc      *pages.Accumulator
	res      *model.Result
	pending  []pendingImage
	raw      strings.Builder
	layer    *TextLayer
	strategy string
}

type pendingImage struct {
	token string
	img   *model.ImageArtifact
}

// addImage queues img for enrichment and places its token at the current
// end of its page.
func (x *extraction) addImage(img *model.ImageArtifact) {
	x.res.Artifacts.Images = append(x.res.Artifacts.Images, img)
	token := x.acc.Insert(img.PageNumber, pages.TokenImage)
	x.acc.MarkVisual(img.PageNumber)
	x.pending = append(x.pending, pendingImage{token: token, img: img})
}

// writePage writes text to page n and raw to the plain-text output.
func (x *extraction) writePage(n int, text, raw string) {
	x.acc.Ensure(n)
	x.acc.Write(n, text)
	if t := strings.TrimSpace(raw); t != "" {
		x.raw.WriteString(t)
		x.raw.WriteString("\n")
	}
}

// tablePlacement holds the merged tables of an analysis and the tokens
// reserved for them.
type tablePlacement struct {
	merged  []tables.Merged
	tokens  []string
	anchors map[int]string
}

// placeTables merges the tables of an and reserves a token for each
// merged table on its first page. A merged table takes the anchor of its
// first fragment; the anchors of continuation fragments are dropped.
func (x *extraction) placeTables(an *providers.DocumentAnalysis) *tablePlacement {
	// A table without its own page number sits on the first page that
	// lists it.
	tablePage := make(map[int]int)
	for _, p := range an.Pages {
		for _, ti := range p.TableIndices {
			if _, ok := tablePage[ti]; !ok && p.Number > 0 {
				tablePage[ti] = p.Number
			}
		}
	}
	frags := make([]tables.Fragment, len(an.Tables))
	for i, t := range an.Tables {
		page := t.Page
		if page <= 0 {
			page = tablePage[i]
		}
		if page <= 0 {
			page = 1
		}
		frags[i] = tables.Fragment{Rows: t.Rows, Page: page, Continues: t.Continues, SplitRow: t.SplitRow, Metadata: t.Metadata}
	}

	tp := &tablePlacement{merged: tables.MergeFragments(frags), anchors: make(map[int]string)}
	tp.tokens = make([]string, len(tp.merged))
	for mi, m := range tp.merged {
		tp.tokens[mi] = x.acc.Reserve(m.FirstPage, pages.TokenTable)
		for k, fi := range m.Fragments {
			if k == 0 {
				tp.anchors[fi] = tp.tokens[mi]
			} else {
				tp.anchors[fi] = ""
			}
		}
	}
	// Fragments that normalized to nothing are not in any merged table.
	for fi := range an.Tables {
		if _, ok := tp.anchors[fi]; !ok {
			tp.anchors[fi] = ""
		}
	}
	return tp
}

// replace swaps the table anchors in text for their tokens.
func (tp *tablePlacement) replace(text string) string {
	for fi, token := range tp.anchors {
		text = strings.ReplaceAll(text, providers.TableAnchor(fi), token)
	}
	return text
}

// resolveTables records an artifact for every merged table and fills its
// token with the rendered table.
func (x *extraction) resolveTables(tp *tablePlacement) error {
	for mi, m := range tp.merged {
		tbl := model.NewTableArtifact(m.Rows, m.FirstPage)
		tbl.Label = fmt.Sprintf("Table %d", len(x.res.Artifacts.Tables)+1)
		tbl.Source = x.info.Name()
		maps.Copy(tbl.Metadata, m.Metadata)
		x.res.Artifacts.Tables = append(x.res.Artifacts.Tables, tbl)
		if err := x.acc.Resolve(tp.tokens[mi], tables.MarkdownWithRange(m)); err != nil {
			return err
		}
	}
	return nil
}

// stripAnchors removes the markers of n tables from text.
func stripAnchors(text string, n int) string {
	for i := range n {
		text = strings.ReplaceAll(text, providers.TableAnchor(i), "")
	}
	return text
}

// intelligence asks the provider for an analysis. It reports false when
// the provider is absent, fails or returns no usable page.
func (x *extraction) intelligence(ctx context.Context) (bool, error) {
	if x.c.Intelligence == nil {
		return false, nil
	}
	an, err := x.c.Intelligence.Analyze(ctx, bytes.NewReader(x.data), x.info, providers.AnalyzeRequest{
		Locale:        x.c.Locale,
		IncludeImages: true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		x.log.WithError(err).Warn("document intelligence failed, using embedded text")
		return false, nil
	}
	if an.Empty() {
		x.log.Debug("document intelligence returned no pages")
		return false, nil
	}

	tp := x.placeTables(an)
	for _, p := range an.Pages {
		if p.Number <= 0 {
			continue
		}
		x.writePage(p.Number, tp.replace(p.Text), stripAnchors(p.Text, len(an.Tables)))
	}
	if err := x.resolveTables(tp); err != nil {
		return false, err
	}

	for i, im := range an.Images {
		if len(im.Data) == 0 {
			continue
		}
		page := im.Page
		if page <= 0 {
			page = 1
		}
		img := model.NewImageArtifact(im.Data, im.ContentType, page)
		img.Source = fmt.Sprintf("figure-%d", i+1)
		if c := strings.TrimSpace(im.Caption); c != "" {
			img.Caption = c
			img.Label = c
			img.MergeMetadata(map[string]string{images.MetaCaption: c})
		}
		x.addImage(img)
	}

	x.strategy = StrategyIntelligence
	return true, nil
}

// embedded reads the native text layer and images. When allowRaster is
// set and the text layer scores as unusable, the pages are rasterized
// instead; a rasterization failure falls back to whatever text exists.
func (x *extraction) embedded(ctx context.Context, allowRaster bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	src := x.c.Source
	if src == nil {
		src = NativeSource()
	}

	layer, err := src.Text(x.data)
	if err != nil {
		x.log.WithError(err).Warn("embedded text unavailable")
	}
	x.layer = layer
	imgs, err := src.Images(x.data)
	if err != nil {
		x.log.WithError(err).Debug("embedded images unavailable")
	}

	var texts []string
	if layer != nil {
		texts = layer.Pages
	}
	q := Score(texts, len(imgs) > 0)
	for k, v := range q.Metadata() {
		x.res.SetMeta(k, v)
	}

	if allowRaster && q.NeedsOCR() && x.c.Rasterizer != nil {
		err := x.raster(ctx, true)
		if err == nil {
			return true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		x.log.WithError(err).Warn("rasterization failed, using embedded text")
	}

	count := len(texts)
	for _, im := range imgs {
		count = max(count, im.Page)
	}
	if count == 0 {
		if n, err := src.PageCount(x.data); err == nil {
			count = n
		}
	}
	if count == 0 {
		return false, nil
	}

	layout, err := src.Tables(x.data)
	if err != nil {
		x.log.WithError(err).Debug("embedded table detection unavailable")
	}
	var tp *tablePlacement
	byPage := make(map[int]string)
	if layout != nil && len(layout.Tables) > 0 {
		tp = x.placeTables(layout)
		for _, p := range layout.Pages {
			if p.Number > 0 {
				byPage[p.Number] = tp.replace(p.Text)
				count = max(count, p.Number)
			}
		}
	}

	for i := 1; i <= count; i++ {
		text := ""
		if i <= len(texts) {
			text = texts[i-1]
		}
		md, ok := byPage[i]
		if !ok {
			md = text
		}
		x.writePage(i, md, text)
	}
	if tp != nil {
		if err := x.resolveTables(tp); err != nil {
			return false, err
		}
	}
	seen := make(map[int]int)
	for _, im := range imgs {
		if !images.IsImageType(im.ContentType) || im.Page <= 0 {
			continue
		}
		seen[im.Page]++
		img := model.NewImageArtifact(im.Data, im.ContentType, im.Page)
		img.Source = im.Name
		img.Label = fmt.Sprintf("Image %d on page %d", seen[im.Page], im.Page)
		x.addImage(img)
	}

	x.strategy = StrategyEmbedded
	return true, nil
}

// raster renders every page and sends each through the image pipeline,
// whose OCR text becomes the page content.
func (x *extraction) raster(ctx context.Context, fallback bool) error {
	if x.c.Rasterizer == nil {
		return ErrRasterizerUnavailable
	}
	rendered, err := x.c.Rasterizer.Rasterize(ctx, x.data, x.c.DPI)
	if err != nil {
		return err
	}
	if len(rendered) == 0 {
		return ErrNoContent
	}
	for _, p := range rendered {
		x.acc.Ensure(p.Page)
		x.addImage(snapshot(p))
	}
	x.strategy = StrategyRaster
	if fallback {
		x.log.WithField("pages", len(rendered)).Info("text layer unusable, read rasterized pages")
	}
	return nil
}

// snapshots renders pages that have no image of their own. Failures leave
// the text-only output in place.
func (x *extraction) snapshots(ctx context.Context) error {
	if !x.c.PageSnapshots || x.c.Rasterizer == nil || x.strategy == StrategyRaster {
		return nil
	}
	missing := make(map[int]bool)
	for _, n := range x.acc.Numbers() {
		if !x.acc.HasVisual(n) {
			missing[n] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	rendered, err := x.c.Rasterizer.Rasterize(ctx, x.data, x.c.DPI)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		x.log.WithError(err).Warn("page snapshots unavailable")
		return nil
	}
	for _, p := range rendered {
		if missing[p.Page] {
			x.addImage(snapshot(p))
		}
	}
	return nil
}

func snapshot(p PageImage) *model.ImageArtifact {
	img := model.NewImageArtifact(p.Data, p.ContentType, p.Page)
	img.Label = fmt.Sprintf("Page %d", p.Page)
	img.Source = fmt.Sprintf("page-%d", p.Page)
	img.MergeMetadata(map[string]string{MetaSnapshot: "true"})
	return img
}

func (x *extraction) finish(ctx context.Context) (*model.Result, error) {
	imgs := make([]*model.ImageArtifact, len(x.pending))
	for i, pi := range x.pending {
		imgs[i] = pi.img
	}
	mds, err := x.c.Images.ProcessAll(ctx, imgs)
	if err != nil {
		return nil, err
	}
	for i, pi := range x.pending {
		if err := x.acc.Resolve(pi.token, mds[i]); err != nil {
			return nil, err
		}
		if x.strategy == StrategyRaster && pi.img.RawText != "" {
			x.raw.WriteString(pi.img.RawText)
			x.raw.WriteString("\n")
		}
	}

	res := x.res
	label := func(n int) string { return fmt.Sprintf("Page %d", n) }
	if _, err := x.acc.Emit(res, model.KindPage, label, x.info.Name()); err != nil {
		return nil, err
	}

	if x.layer != nil {
		res.Title = x.layer.Title
		for k, v := range map[string]string{
			"title":    x.layer.Title,
			"author":   x.layer.Author,
			"subject":  x.layer.Subject,
			"keywords": x.layer.Keywords,
		} {
			if v != "" {
				res.SetMeta(k, v)
				res.Artifacts.Metadata[k] = v
			}
		}
	}
	res.SetMeta(model.MetaTitleHint, res.Title)
	res.SetCount(model.MetaPageCount, x.acc.Len())
	res.SetMeta(MetaStrategy, x.strategy)
	res.RawText = x.raw.String()
	return res, nil
}
