package epubdoc

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/htmldoc"
	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/model"
)

// MetaChapterCount is the result metadata key holding the number of
// chapters.
const MetaChapterCount = "chapter_count"

// Converter converts EPUB books.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter that sends chapter images through p.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "epub" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".epub") || info.BaseMIME() == epubMIME
}

// Accepts confirms the stream is a ZIP archive with an OCF container.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	b, err := openBook(s, size)
	if err != nil {
		return false
	}
	return b.has(containerPath) && b.validateMimetype() == nil
}

// Convert emits a metadata segment followed by one section per spine
// document.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	size, err := model.StreamSize(s)
	if err != nil {
		return nil, err
	}
	rd, err := Open(s, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("source", info.Name())

	res := model.NewResult()
	meta := rd.Metadata()
	if block := metadataBlock(meta); block != "" {
		seg, err := model.NewSegment(block, model.KindMetadata, model.WithLabel("Metadata"), model.WithSource(info.Name()))
		if err != nil {
			return nil, err
		}
		res.AddSegment(seg)
	}

	var raw strings.Builder
	for _, ch := range rd.Chapters() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := htmldoc.Parse(bytes.NewReader(ch.Content), "")
		if err != nil {
			log.WithFields(logrus.Fields{"chapter": ch.Href, "error": err}).Warn("skipping unparsable chapter")
			continue
		}

		title := ch.Title
		if title == "" {
			title = doc.Heading()
		}
		if title == "" {
			title = doc.Title()
		}
		if title == "" {
			title = fmt.Sprintf("Chapter %d", ch.Index+1)
		}

		href := ch.Href
		r, err := htmldoc.Render(ctx, doc, htmldoc.RenderOptions{
			Navigation: htmldoc.NavigationExclusionExplicit,
			Images:     c.Images,
			Resolve: func(src string) ([]byte, string, error) {
				return rd.Resource(href, src)
			},
			Page:   ch.Index + 1,
			Logger: log,
		})
		if err != nil {
			return nil, err
		}

		seg, err := model.NewSegment(r.Markdown, model.KindSection,
			model.WithNumber(ch.Index+1),
			model.WithLabel(title),
			model.WithSource(ch.Href),
		)
		if err != nil {
			return nil, err
		}
		idx := res.AddSegment(seg)
		for _, img := range r.Images {
			if err := img.SetSegmentIndex(idx); err != nil {
				return nil, err
			}
		}
		res.Artifacts.Images = append(res.Artifacts.Images, r.Images...)

		if txt := doc.Text(); txt != "" {
			raw.WriteString(txt)
			raw.WriteString("\n")
		}
		if res.Title == "" && meta.Title == "" {
			res.Title = title
		}
	}

	if meta.Title != "" {
		res.Title = meta.Title
	}
	res.SetMeta(model.MetaTitleHint, res.Title)
	for k, v := range meta.Map() {
		res.SetMeta(k, v)
		res.Artifacts.Metadata[k] = v
	}
	res.SetCount(MetaChapterCount, rd.ChapterCount())
	res.RawText = raw.String()
	return res, nil
}

// metadataBlock renders the descriptive metadata as bold-labelled lines.
func metadataBlock(m Metadata) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, "**"+label+":** "+v)
		}
	}
	add("Title", m.Title)
	add("Authors", strings.Join(m.Creator, ", "))
	add("Language", m.Language)
	add("Publisher", m.Publisher)
	add("Date", m.Date)
	add("Description", m.Description)
	add("Identifier", m.Identifier)
	return strings.Join(lines, "\n")
}
