package docx

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

// MIMEType is the registered media type of .docx files.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Converter converts DOCX documents.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter that sends embedded images through p.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "docx" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".docx") || info.BaseMIME() == MIMEType
}

// Accepts confirms the stream is a ZIP package with a main document part.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	pkg, err := ooxml.Open(s, size)
	if err != nil {
		return false
	}
	return pkg.Has(documentPart)
}

// Convert renders the document body as one segment per page. Pages are
// delimited by explicit page breaks only.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	size, err := model.StreamSize(s)
	if err != nil {
		return nil, err
	}
	rd, err := Open(s, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, err := range rd.Skipped() {
		log.WithField("source", info.Name()).WithError(err).Debug("ignoring malformed optional part")
	}
	w := &walker{
		ctx:       ctx,
		rd:        rd,
		numbering: newNumberingResolver(rd.numbering),
		acc:       pages.New(),
		res:       model.NewResult(),
		log:       log.WithField("source", info.Name()),
		source:    info.Name(),
		page:      1,
	}
	if err := w.walk(); err != nil {
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
	ctx       context.Context
	rd        *Reader
	numbering *numberingResolver
	acc       *pages.Accumulator
	res       *model.Result
	log       logrus.FieldLogger
	source    string

	page       int
	tableCount int
	inCell     bool
	pending    []pendingImage
	cellImages []*model.ImageArtifact
	heading    string
	raw        strings.Builder
}

func (w *walker) walk() error {
	w.acc.Ensure(w.page)
	for _, b := range w.rd.document.Body.Blocks {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		switch {
		case b.Paragraph != nil:
			w.paragraph(b.Paragraph)
		case b.Table != nil:
			w.table(b.Table)
		}
	}
	return nil
}

func (w *walker) nextPage() {
	w.page++
	w.acc.Ensure(w.page)
}

func (w *walker) paragraph(p *paragraphXML) {
	props := p.Properties
	if props.PageBreakBefore.on() && w.acc.Text(w.page) != "" {
		w.nextPage()
	}

	prefix, heading := w.prefix(props)
	first := true
	write := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if heading {
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

	write(w.inlineText(p, func(before string) {
		write(before)
		w.nextPage()
	}))

	if plain := strings.TrimSpace(plainText(p)); plain != "" {
		w.raw.WriteString(plain)
		w.raw.WriteString("\n")
	}
}

// prefix returns the Markdown line prefix for a paragraph and whether the
// paragraph is a heading.
func (w *walker) prefix(props paragraphPropsXML) (string, bool) {
	level := w.rd.styles.headingLevel(props.Style.Val)
	if level == 0 {
		// outlineLvl 9 is body text.
		if lvl, err := strconv.Atoi(props.OutlineLvl.Val); err == nil && lvl >= 0 && lvl < 6 {
			level = lvl + 1
		}
	}
	if level > 0 {
		return strings.Repeat("#", level) + " ", true
	}

	num := props.NumPr
	if num.NumID.Val == "" {
		inherited := w.rd.styles.numbering(props.Style.Val)
		num.NumID = inherited.NumID
		if num.ILvl.Val == "" {
			num.ILvl = inherited.ILvl
		}
	}
	if !isList(num.NumID.Val) {
		return "", false
	}
	lvl, _ := strconv.Atoi(num.ILvl.Val)
	if lvl < 0 {
		lvl = 0
	}
	return mdtext.Indent(lvl) + w.numbering.marker(num.NumID.Val, lvl) + " ", false
}

// inlineText renders the runs and hyperlinks of p. onBreak receives the
// text rendered so far at each explicit page break; when nil, page breaks
// are ignored.
func (w *walker) inlineText(p *paragraphXML, onBreak func(before string)) string {
	var b mdtext.Builder
	for _, in := range p.Inlines {
		switch {
		case in.Run != nil:
			w.run(&b, in.Run, onBreak)
		case in.Link != nil:
			w.hyperlink(&b, in.Link)
		}
	}
	return b.Take()
}

func (w *walker) run(b *mdtext.Builder, r *runXML, onBreak func(string)) {
	st := mdtext.Style{
		Bold:   r.Properties.Bold.on(),
		Italic: r.Properties.Italic.on(),
		Strike: r.Properties.Strike.on(),
	}
	for _, part := range r.Parts {
		switch {
		case part.PageBreak:
			if onBreak != nil {
				onBreak(b.Take())
			}
		case part.Drawing != nil:
			b.Raw(w.drawing(part.Drawing))
		default:
			b.Text(part.Text, st)
		}
	}
}

func (w *walker) hyperlink(b *mdtext.Builder, h *hyperlinkXML) {
	var sb strings.Builder
	for _, r := range h.Runs {
		for _, part := range r.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return
	}
	if url := w.rd.link(h); url != "" {
		b.Raw(mdtext.Link(text, url))
		return
	}
	b.Text(text, mdtext.Style{})
}

// drawing records an embedded picture. Outside tables it returns a token
// marking the picture's position; inside a table cell the picture is placed
// after the table.
func (w *walker) drawing(d *drawingXML) string {
	t := d.target()
	if t == nil || t.Blip == nil || t.Blip.Embed == "" {
		return ""
	}
	data, target, err := w.rd.image(t.Blip.Embed)
	if err != nil {
		w.log.WithError(err).Warn("skipping unreadable image")
		return ""
	}

	img := model.NewImageArtifact(data, ooxml.ContentType(target), w.page)
	img.Source = target
	for _, l := range []string{t.DocPr.Descr, t.DocPr.Title, t.DocPr.Name} {
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

func (w *walker) table(t *tableXML) {
	rows := w.tableRows(t)
	if len(rows) > 0 {
		w.tableCount++
		art := model.NewTableArtifact(rows, w.page)
		art.Source = w.source
		art.Label = fmt.Sprintf("Table %d", w.tableCount)
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

// plainText returns the unformatted text of p.
func plainText(p *paragraphXML) string {
	var sb strings.Builder
	runs := func(rs []runXML) {
		for _, r := range rs {
			for _, part := range r.Parts {
				sb.WriteString(part.Text)
			}
		}
	}
	for _, in := range p.Inlines {
		switch {
		case in.Run != nil:
			runs([]runXML{*in.Run})
		case in.Link != nil:
			runs(in.Link.Runs)
		}
	}
	return sb.String()
}
