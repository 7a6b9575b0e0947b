package odt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/internal/mdtext"
	"github.com/tsawler/markitdown/internal/ooxml"
	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/pages"
	"github.com/tsawler/markitdown/tables"
)

// Converter converts OpenDocument Text files.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter that sends embedded images through p.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "odt" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".odt") || info.BaseMIME() == MIMEType
}

// Accepts confirms the stream is an OpenDocument text package.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	pkg, err := ooxml.Open(s, size)
	if err != nil {
		return false
	}
	return isODT(pkg)
}

// Convert renders the document body as one segment per page.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	size, err := model.StreamSize(s)
	if err != nil {
		return nil, err
	}
	rd, err := Open(s, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open odt: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, err := range rd.Skipped() {
		log.WithField("source", info.Name()).WithError(err).Debug("ignoring malformed optional part")
	}
	w := &walker{
		ctx:      ctx,
		rd:       rd,
		acc:      pages.New(),
		res:      model.NewResult(),
		log:      log.WithField("source", info.Name()),
		source:   info.Name(),
		page:     1,
		counters: make(map[string]int),
	}
	w.acc.Ensure(w.page)
	if err := w.blocks(rd.content.Body.Text.Blocks); err != nil {
		return nil, err
	}
	return w.finish(c.Images)
}

type pendingImage struct {
	token string
	img   *model.ImageArtifact
}

// walker carries the state of one conversion.
type walker struct {
	ctx    context.Context
	rd     *Reader
	acc    *pages.Accumulator
	res    *model.Result
	log    logrus.FieldLogger
	source string

	page       int
	tableCount int
	inCell     bool
	pending    []pendingImage
	cellImages []*model.ImageArtifact
	heading    string
	raw        strings.Builder

	// counters holds the last number used by each ordered list style,
	// for lists that continue numbering.
	counters map[string]int
}

func (w *walker) blocks(bs []blockXML) error {
	for _, b := range bs {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		switch {
		case b.PageBreak:
			w.breakPage()
		case b.Paragraph != nil:
			w.paragraph(b.Paragraph, "")
		case b.List != nil:
			if err := w.list(b.List, b.List.StyleName, 0); err != nil {
				return err
			}
		case b.Table != nil:
			w.table(b.Table)
		}
	}
	return nil
}

// breakPage starts a new page unless the current one is still empty.
func (w *walker) breakPage() {
	if w.acc.Text(w.page) == "" {
		return
	}
	w.page++
	w.acc.Ensure(w.page)
}

// headingLevel returns the Markdown heading level of p, or 0.
func (w *walker) headingLevel(p *paragraphXML, st resolvedStyle) int {
	level := st.HeadingLevel
	if p.Heading {
		level = p.OutlineLevel
		if level == 0 {
			level = max(st.HeadingLevel, 1)
		}
	}
	return min(level, 6)
}

// paragraph writes p with prefix before its first line. Headings ignore
// the prefix.
func (w *walker) paragraph(p *paragraphXML, prefix string) {
	st := w.rd.resolver.resolve(p.StyleName)
	if st.PageBreak {
		w.breakPage()
	}

	level := w.headingLevel(p, st)
	if level > 0 {
		prefix = strings.Repeat("#", level) + " "
	}
	first := true
	write := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if level > 0 {
			text = strings.Join(strings.Fields(text), " ")
			if w.heading == "" {
				w.heading = text
			}
		}
		if first {
			text = prefix + text
			first = false
		}
		w.acc.Write(w.page, text)
	}

	base := st.Text
	if level > 0 {
		base = mdtext.Style{}
	}
	write(w.inlineText(p.Inlines, base, level > 0, func(before string) {
		write(before)
		w.breakPage()
	}))

	if plain := strings.TrimSpace(plainText(p.Inlines)); plain != "" {
		w.raw.WriteString(plain)
		w.raw.WriteString("\n")
	}
}

// inlineText renders paragraph content. base is the paragraph's own
// character style; plain drops emphasis. onBreak receives the text rendered
// so far at each layout page boundary; when nil, boundaries are ignored.
func (w *walker) inlineText(ins []inlineXML, base mdtext.Style, plain bool, onBreak func(before string)) string {
	var b mdtext.Builder
	for _, in := range ins {
		switch {
		case in.PageBreak:
			if onBreak != nil {
				onBreak(b.Take())
			}
		case in.Frame != nil:
			b.Raw(w.frame(in.Frame))
		case in.Link != nil:
			text := strings.TrimSpace(plainText(in.Link.Inlines))
			if text != "" {
				b.Raw(mdtext.Link(text, in.Link.Href))
			}
		default:
			st := base
			if !plain {
				st = w.textStyle(in.Style, base)
			}
			b.Text(in.Text, st)
		}
	}
	return b.Take()
}

// textStyle layers the named span style over base.
func (w *walker) textStyle(name string, base mdtext.Style) mdtext.Style {
	if name == "" {
		return base
	}
	st := w.rd.resolver.resolve(name).Text
	return mdtext.Style{
		Bold:   base.Bold || st.Bold,
		Italic: base.Italic || st.Italic,
		Strike: base.Strike || st.Strike,
	}
}

// frame records an embedded picture. Outside tables it returns a token
// marking the picture's position; inside a table cell the picture is placed
// after the table.
func (w *walker) frame(f *frameXML) string {
	data, name, err := w.rd.image(f.Image.Href)
	if err != nil {
		w.log.WithError(err).Warn("skipping unreadable image")
		return ""
	}

	img := model.NewImageArtifact(data, ooxml.ContentType(name), w.page)
	img.Source = name
	for _, l := range []string{f.Desc, f.Title, f.Name} {
		if l = strings.TrimSpace(l); l != "" {
			img.Label = l
			break
		}
	}
	w.res.Artifacts.Images = append(w.res.Artifacts.Images, img)

	if w.inCell {
		w.cellImages = append(w.cellImages, img)
		return ""
	}
	token := w.acc.Reserve(w.page, pages.TokenImage)
	w.pending = append(w.pending, pendingImage{token: token, img: img})
	return token
}

// list writes one item per block. style is inherited by nested lists that
// name no style of their own.
func (w *walker) list(l *listXML, style string, level int) error {
	if l.StyleName != "" {
		style = l.StyleName
	}
	ll := w.rd.resolver.listLevel(style, level)
	key := style + "/" + strconv.Itoa(level)
	n := ll.StartValue - 1
	if level == 0 && l.Continue == "true" {
		n = w.counters[key]
	}

	if l.Header != nil {
		if err := w.listItem(l.Header, style, level, ""); err != nil {
			return err
		}
	}
	for i := range l.Items {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		item := &l.Items[i]
		if v, err := strconv.Atoi(item.StartValue); err == nil {
			n = v - 1
		}
		marker := "-"
		if ll.Ordered {
			n++
			marker = strconv.Itoa(n) + "."
		}
		if err := w.listItem(item, style, level, mdtext.Indent(level)+marker+" "); err != nil {
			return err
		}
	}
	w.counters[key] = n
	return nil
}

// listItem writes the item's first paragraph after prefix and indents the
// rest of its content under the marker.
func (w *walker) listItem(item *listItemXML, style string, level int, prefix string) error {
	cont := mdtext.Indent(level + 1)
	for i, b := range item.Content.Blocks {
		switch {
		case b.PageBreak:
			w.breakPage()
		case b.Paragraph != nil:
			p := prefix
			if i > 0 || prefix == "" {
				p = cont
			}
			w.paragraph(b.Paragraph, p)
		case b.List != nil:
			if err := w.list(b.List, style, level+1); err != nil {
				return err
			}
		case b.Table != nil:
			w.table(b.Table)
		}
	}
	return nil
}

func (w *walker) table(t *tableXML) {
	rows := w.tableRows(t)
	if len(rows) > 0 {
		w.tableCount++
		art := model.NewTableArtifact(rows, w.page)
		art.Source = w.source
		art.Label = strings.TrimSpace(t.Name)
		if art.Label == "" {
			art.Label = fmt.Sprintf("Table %d", w.tableCount)
		}
		w.res.Artifacts.Tables = append(w.res.Artifacts.Tables, art)
		w.acc.Write(w.page, tables.Markdown(rows))
		for _, r := range rows {
			w.raw.WriteString(strings.Join(r, " "))
			w.raw.WriteString("\n")
		}
	}
	for _, img := range w.cellImages {
		token := w.acc.Insert(w.page, pages.TokenImage)
		w.pending = append(w.pending, pendingImage{token: token, img: img})
	}
	w.cellImages = nil
}

// tableRows lays the table onto its grid. Covered cells directly after a
// spanning cell belong to that span; other covered cells continue a
// vertical merge from the row above.
func (w *walker) tableRows(t *tableXML) [][]string {
	rows := make([]tables.Row, 0, len(t.Rows))
	for _, tr := range t.Rows {
		var row tables.Row
		spanLeft := 0
		for _, tc := range tr.Cells {
			for k := 0; k < tc.Repeated; k++ {
				cell := tables.Cell{ColSpan: tc.ColSpan}
				switch {
				case tc.Covered && spanLeft > 0:
					cell.HMerge = true
					spanLeft--
				case tc.Covered:
					cell.VMerge = true
				default:
					cell.Text = w.cellText(tc)
					spanLeft = tc.ColSpan - 1
				}
				row = append(row, cell)
			}
		}
		for k := 0; k < tr.Repeated; k++ {
			rows = append(rows, row)
		}
	}
	return tables.Normalize(tables.Expand(rows, t.Columns))
}

func (w *walker) cellText(tc tableCellXML) string {
	w.inCell = true
	defer func() { w.inCell = false }()

	var parts []string
	var collect func(bs []blockXML)
	collect = func(bs []blockXML) {
		for _, b := range bs {
			switch {
			case b.Paragraph != nil:
				if s := strings.TrimSpace(w.inlineText(b.Paragraph.Inlines, mdtext.Style{}, false, nil)); s != "" {
					parts = append(parts, strings.Join(strings.Fields(s), " "))
				}
			case b.List != nil:
				for i := range b.List.Items {
					collect(b.List.Items[i].Content.Blocks)
				}
			}
		}
	}
	collect(tc.Content.Blocks)
	return strings.Join(parts, " ")
}

func (w *walker) finish(p *images.Pipeline) (*model.Result, error) {
	imgs := make([]*model.ImageArtifact, len(w.pending))
	for i, pi := range w.pending {
		imgs[i] = pi.img
	}
	mds, err := p.ProcessAll(w.ctx, imgs)
	if err != nil {
		return nil, err
	}
	for i, pi := range w.pending {
		if err := w.acc.Resolve(pi.token, mds[i]); err != nil {
			return nil, err
		}
	}

	res := w.res
	label := func(n int) string { return fmt.Sprintf("Page %d", n) }
	if _, err := w.acc.Emit(res, model.KindPage, label, w.source); err != nil {
		return nil, err
	}

	res.Title = w.rd.Title()
	if res.Title == "" {
		res.Title = w.heading
	}
	res.SetMeta(model.MetaTitleHint, res.Title)
	for k, v := range w.rd.Metadata() {
		res.SetMeta(k, v)
		res.Artifacts.Metadata[k] = v
	}
	res.RawText = w.raw.String()
	return res, nil
}

// plainText returns the unformatted text of paragraph content.
func plainText(ins []inlineXML) string {
	var sb strings.Builder
	for _, in := range ins {
		switch {
		case in.Link != nil:
			sb.WriteString(plainText(in.Link.Inlines))
		default:
			sb.WriteString(in.Text)
		}
	}
	return sb.String()
}
