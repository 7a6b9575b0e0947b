package pptx

import (
	"context"
	"fmt"
	"sort"
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

// MIMEType is the registered media type of .pptx files.
const MIMEType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Converter converts PPTX presentations.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter that sends slide pictures through p.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "pptx" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".pptx") || info.BaseMIME() == MIMEType
}

// Accepts confirms the stream is a ZIP package with a presentation part.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	pkg, err := ooxml.Open(s, size)
	if err != nil {
		return false
	}
	return pkg.Has(presentationPart)
}

// Convert emits one slide segment per slide in presentation order. Shapes
// are rendered top to bottom, then left to right; speaker notes follow the
// slide content.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	size, err := model.StreamSize(s)
	if err != nil {
		return nil, err
	}
	rd, err := Open(s, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pptx: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, err := range rd.Skipped() {
		log.WithField("source", info.Name()).WithError(err).Debug("ignoring malformed optional part")
	}
	sw := &slideWriter{
		rd:     rd,
		acc:    pages.New(),
		res:    model.NewResult(),
		log:    log.WithField("source", info.Name()),
		source: info.Name(),
		titles: make(map[int]string),
	}

	for i, part := range rd.slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sw.slideNum = i + 1
		sw.acc.Ensure(sw.slideNum)

		sl, rels, err := rd.slide(part)
		if err != nil {
			sw.log.WithFields(logrus.Fields{"slide": sw.slideNum, "error": err}).Warn("skipping unreadable slide")
			continue
		}
		sw.rels = rels
		sw.shapes(sl.CSld.SpTree.Shapes)

		if notes := rd.notes(rels); notes != "" {
			sw.acc.Write(sw.slideNum, "### Notes:\n"+notes)
			sw.raw.WriteString(notes)
			sw.raw.WriteString("\n")
		}
	}
	return sw.finish(ctx, c.Images)
}

// slideWriter carries the state of one conversion.
type slideWriter struct {
	rd     *Reader
	acc    *pages.Accumulator
	res    *model.Result
	log    logrus.FieldLogger
	source string

	slideNum   int
	rels       ooxml.Relationships
	titles     map[int]string
	pending    []pendingImage
	tableCount int
	raw        strings.Builder
}

type pendingImage struct {
	token string
	img   *model.ImageArtifact
}

// sortShapes orders shapes by vertical then horizontal offset. Shapes
// without a position keep their relative order ahead of positioned ones.
func sortShapes(shapes []shapeXML) []shapeXML {
	out := append([]shapeXML(nil), shapes...)
	sort.SliceStable(out, func(i, j int) bool {
		xi, yi, oki := out[i].position()
		xj, yj, okj := out[j].position()
		if oki != okj {
			return !oki
		}
		if yi != yj {
			return yi < yj
		}
		return xi < xj
	})
	return out
}

func (sw *slideWriter) shapes(shapes []shapeXML) {
	for _, sh := range sortShapes(shapes) {
		switch {
		case sh.Group != nil:
			sw.shapes(sh.Group.Shapes)
		case sh.Sp != nil:
			sw.textShape(sh.Sp)
		case sh.Pic != nil:
			sw.picture(sh.Pic)
		case sh.Frame != nil:
			sw.frame(sh.Frame)
		}
	}
}

func (sw *slideWriter) textShape(sp *spXML) {
	if sp.TxBody == nil {
		return
	}
	switch ph := sp.placeholder(); ph {
	case "title", "ctrTitle":
		var parts []string
		for i := range sp.TxBody.Paragraphs {
			if t := strings.TrimSpace(plainText(&sp.TxBody.Paragraphs[i])); t != "" {
				parts = append(parts, t)
			}
		}
		title := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		if title == "" {
			return
		}
		if _, ok := sw.titles[sw.slideNum]; !ok {
			sw.titles[sw.slideNum] = title
		}
		sw.acc.Write(sw.slideNum, "# "+title)
		sw.raw.WriteString(title + "\n")
		return
	case "sldNum", "ftr", "dt":
		return
	}

	var lines []string
	counters := make([]int, 9)
	for i := range sp.TxBody.Paragraphs {
		p := &sp.TxBody.Paragraphs[i]
		text := strings.TrimSpace(sw.inline(p))
		if text == "" {
			continue
		}
		lines = append(lines, listPrefix(p.Props, counters)+text)
		sw.raw.WriteString(strings.TrimSpace(plainText(p)) + "\n")
	}
	sw.acc.Write(sw.slideNum, strings.Join(lines, "\n"))
}

// listPrefix returns the bullet or number marker of a paragraph and advances
// the numbering counters. Indented paragraphs without explicit bullet
// properties are treated as bullets.
func listPrefix(pr *paragraphPropsXML, counters []int) string {
	if pr == nil || pr.BuNone != nil {
		return ""
	}
	lvl := pr.Lvl
	if lvl < 0 {
		lvl = 0
	}
	if lvl >= len(counters) {
		lvl = len(counters) - 1
	}
	for i := lvl + 1; i < len(counters); i++ {
		counters[i] = 0
	}
	switch {
	case pr.BuAutoNum != nil:
		if counters[lvl] == 0 {
			counters[lvl] = max(pr.BuAutoNum.StartAt, 1)
		} else {
			counters[lvl]++
		}
		return mdtext.Indent(lvl) + strconv.Itoa(counters[lvl]) + ". "
	case pr.BuChar != nil || lvl > 0:
		counters[lvl] = 0
		return mdtext.Indent(lvl) + "- "
	}
	return ""
}

func (sw *slideWriter) inline(p *paragraphXML) string {
	var b mdtext.Builder
	for _, r := range p.Runs {
		var st mdtext.Style
		if pr := r.Props; pr != nil {
			st = mdtext.Style{
				Bold:   flag(pr.B),
				Italic: flag(pr.I),
				Strike: pr.Strike != "" && pr.Strike != "noStrike",
			}
			if pr.HlinkClick != nil {
				if rel, ok := sw.rels[pr.HlinkClick.ID]; ok && rel.External() && strings.TrimSpace(r.Text) != "" {
					b.Raw(mdtext.Link(strings.TrimSpace(r.Text), rel.Target))
					continue
				}
			}
		}
		b.Text(r.Text, st)
	}
	return b.Take()
}

func (sw *slideWriter) picture(pic *picXML) {
	id := pic.BlipFill.Blip.Embed
	if id == "" {
		return
	}
	data, target, err := sw.rd.part(sw.rels, id)
	if err != nil {
		sw.log.WithFields(logrus.Fields{"slide": sw.slideNum, "error": err}).Warn("skipping unreadable picture")
		return
	}
	img := model.NewImageArtifact(data, ooxml.ContentType(target), sw.slideNum)
	img.Source = target
	nv := pic.NvPicPr.CNvPr
	for _, l := range []string{nv.Descr, nv.Title, nv.Name} {
		if l = strings.TrimSpace(l); l != "" {
			img.Label = l
			break
		}
	}
	sw.res.Artifacts.Images = append(sw.res.Artifacts.Images, img)
	token := sw.acc.Insert(sw.slideNum, pages.TokenImage)
	sw.pending = append(sw.pending, pendingImage{token: token, img: img})
}

func (sw *slideWriter) frame(f *graphicFrameXML) {
	gd := f.GraphicData
	switch {
	case gd.Table != nil:
		sw.addTable(sw.tableRows(gd.Table), "", nil)
	case gd.Chart != nil:
		data, _, err := sw.rd.part(sw.rels, gd.Chart.ID)
		if err != nil {
			sw.log.WithFields(logrus.Fields{"slide": sw.slideNum, "error": err}).Warn("skipping unreadable chart")
			return
		}
		chart, err := parseChart(data)
		if err != nil {
			sw.log.WithFields(logrus.Fields{"slide": sw.slideNum, "error": err}).Warn("skipping malformed chart")
			return
		}
		heading := "### Chart"
		if chart.Title != "" {
			heading += ": " + chart.Title
		}
		sw.addTable(tables.Normalize(chart.Rows), heading, map[string]string{"chart": "true"})
		if len(chart.Rows) == 0 {
			sw.acc.Write(sw.slideNum, heading)
		}
	}
}

func (sw *slideWriter) tableRows(t *tableXML) [][]string {
	rows := make([]tables.Row, 0, len(t.Rows))
	for _, tr := range t.Rows {
		var row tables.Row
		for _, tc := range tr.Cells {
			cell := tables.Cell{
				ColSpan: tc.GridSpan,
				HMerge:  flag(tc.HMerge),
				VMerge:  flag(tc.VMerge),
			}
			if tc.TxBody != nil && !cell.VMerge && !cell.HMerge {
				var parts []string
				for i := range tc.TxBody.Paragraphs {
					if s := strings.TrimSpace(sw.inline(&tc.TxBody.Paragraphs[i])); s != "" {
						parts = append(parts, s)
					}
				}
				cell.Text = strings.Join(parts, " ")
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return tables.Normalize(tables.Expand(rows, len(t.Grid.Cols)))
}

func (sw *slideWriter) addTable(rows [][]string, heading string, md map[string]string) {
	if len(rows) == 0 {
		return
	}
	sw.tableCount++
	art := model.NewTableArtifact(rows, sw.slideNum)
	art.Source = sw.source
	art.Label = fmt.Sprintf("Table %d", sw.tableCount)
	if heading != "" {
		art.Label = strings.TrimPrefix(heading, "### ")
	}
	for k, v := range md {
		art.Metadata[k] = v
	}
	sw.res.Artifacts.Tables = append(sw.res.Artifacts.Tables, art)

	text := tables.Markdown(rows)
	if heading != "" {
		text = heading + "\n\n" + text
	}
	sw.acc.Write(sw.slideNum, text)
	for _, r := range rows {
		sw.raw.WriteString(strings.Join(r, " ") + "\n")
	}
}

func (sw *slideWriter) finish(ctx context.Context, p *images.Pipeline) (*model.Result, error) {
	imgs := make([]*model.ImageArtifact, len(sw.pending))
	for i, pi := range sw.pending {
		imgs[i] = pi.img
	}
	mds, err := p.ProcessAll(ctx, imgs)
	if err != nil {
		return nil, err
	}
	for i, pi := range sw.pending {
		if err := sw.acc.Resolve(pi.token, mds[i]); err != nil {
			return nil, err
		}
	}

	res := sw.res
	label := func(n int) string {
		if t := sw.titles[n]; t != "" {
			return t
		}
		return fmt.Sprintf("Slide %d", n)
	}
	if _, err := sw.acc.Emit(res, model.KindSlide, label, sw.source); err != nil {
		return nil, err
	}

	res.Title = sw.rd.Title()
	if res.Title == "" {
		res.Title = sw.titles[1]
	}
	res.SetMeta(model.MetaTitleHint, res.Title)
	res.SetCount("slide_count", sw.rd.SlideCount())
	for k, v := range sw.rd.Metadata() {
		res.SetMeta(k, v)
		res.Artifacts.Metadata[k] = v
	}
	res.RawText = sw.raw.String()
	return res, nil
}
