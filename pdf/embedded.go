package pdf

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tsawler/markitdown/providers"
	"github.com/tsawler/markitdown/tables"
)

// TextLayer is the embedded text of a document, one entry per page.
type TextLayer struct {
	Pages    []string
	Title    string
	Author   string
	Subject  string
	Keywords string
}

// EmbeddedImage is an image stream found on a page.
type EmbeddedImage struct {
	Page        int
	Name        string
	Data        []byte
	ContentType string
}

// Source reads the native content of a PDF. The default implementation
// reads text and tables with ledongthuc/pdf and images with pdfcpu.
type Source interface {
	Text(data []byte) (*TextLayer, error)
	Images(data []byte) ([]EmbeddedImage, error)
	PageCount(data []byte) (int, error)

	// Tables finds tables in the positioned text. Only pages holding a
	// table are listed; their text is rebuilt from the same glyphs with
	// providers.TableAnchor(i) in place of table i.
	Tables(data []byte) (*providers.DocumentAnalysis, error)
}

type nativeSource struct{}

// NativeSource returns the default Source.
func NativeSource() Source { return nativeSource{} }

// Text extracts plain text page by page. The parser panics on some
// malformed files; a panic on one page leaves that page empty.
func (nativeSource) Text(data []byte) (layer *TextLayer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer, err = nil, fmt.Errorf("pdf text parser panicked: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	layer = &TextLayer{}
	if info := r.Trailer().Key("Info"); !info.IsNull() {
		layer.Title = strings.TrimSpace(info.Key("Title").Text())
		layer.Author = strings.TrimSpace(info.Key("Author").Text())
		layer.Subject = strings.TrimSpace(info.Key("Subject").Text())
		layer.Keywords = strings.TrimSpace(info.Key("Keywords").Text())
	}

	fonts := make(map[string]*lpdf.Font)
	n := r.NumPage()
	layer.Pages = make([]string, n)
	for i := 1; i <= n; i++ {
		layer.Pages[i-1] = pageText(r.Page(i), fonts)
	}
	return layer, nil
}

func pageText(p lpdf.Page, fonts map[string]*lpdf.Font) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	for _, name := range p.Fonts() {
		if _, ok := fonts[name]; !ok {
			f := p.Font(name)
			fonts[name] = &f
		}
	}
	s, err := p.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return normalizeText(s)
}

// Tables runs the geometric detector over the glyphs of every page. A
// table that opens a page with the column count of the table closing the
// previous page is marked as its continuation.
func (nativeSource) Tables(data []byte) (an *providers.DocumentAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			an, err = nil, fmt.Errorf("pdf layout parser panicked: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	det := tables.NewGeometricDetector()
	an = &providers.DocumentAnalysis{}
	openCols := 0
	for i := 1; i <= r.NumPage(); i++ {
		lines := det.Lines(pageGlyphs(r.Page(i)))
		regions := det.Detect(lines)
		if len(regions) == 0 {
			openCols = 0
			continue
		}

		first := len(an.Tables)
		for k, rg := range regions {
			an.Tables = append(an.Tables, providers.AnalyzedTable{
				Rows:      rg.Rows,
				Page:      i,
				Continues: k == 0 && rg.Start == 0 && openCols == len(rg.Rows[0]),
				Metadata:  map[string]string{"detector": det.Name()},
			})
		}
		an.Pages = append(an.Pages, providers.AnalyzedPage{Number: i, Text: layoutText(lines, regions, first)})

		openCols = 0
		if last := regions[len(regions)-1]; last.End == len(lines) {
			openCols = len(last.Rows[0])
		}
	}
	return an, nil
}

// pageGlyphs returns the positioned text of p. A panic in the content
// parser yields no glyphs for the page.
func pageGlyphs(p lpdf.Page) (out []tables.Glyph) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	if p.V.IsNull() {
		return nil
	}
	for _, t := range p.Content().Text {
		out = append(out, tables.Glyph{Text: t.S, X: t.X, Y: t.Y, W: t.W, Size: t.FontSize})
	}
	return out
}

// layoutText renders lines one per line of text, with each region replaced
// by the anchor of its table. Tables are numbered from first.
func layoutText(lines []tables.Line, regions []tables.Region, first int) string {
	var b strings.Builder
	next := 0
	for i := 0; i < len(lines); i++ {
		if next < len(regions) && i == regions[next].Start {
			b.WriteString("\n" + providers.TableAnchor(first+next) + "\n\n")
			i = regions[next].End - 1
			next++
			continue
		}
		b.WriteString(lines[i].Text())
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// normalizeText trims trailing space from lines and collapses runs of blank
// lines into one.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func relaxedConfig() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// Images extracts the image streams of every page in page order.
func (nativeSource) Images(data []byte) (out []EmbeddedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("pdf image extraction panicked: %v", r)
		}
	}()
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, relaxedConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}
	for _, byObj := range pages {
		for _, img := range sortedImages(byObj) {
			raw, err := io.ReadAll(img)
			if err != nil || len(raw) == 0 {
				continue
			}
			out = append(out, EmbeddedImage{
				Page:        img.PageNr,
				Name:        img.Name,
				Data:        raw,
				ContentType: mimetype.Detect(raw).String(),
			})
		}
	}
	return out, nil
}

// sortedImages orders one page's images by object number.
func sortedImages(byObj map[int]pdfmodel.Image) []pdfmodel.Image {
	out := make([]pdfmodel.Image, 0, len(byObj))
	for _, n := range slices.Sorted(maps.Keys(byObj)) {
		out = append(out, byObj[n])
	}
	return out
}

// PageCount returns the number of pages as counted by pdfcpu.
func (nativeSource) PageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), relaxedConfig())
}
