package htmldoc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/model"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
		strikethrough.NewStrikethroughPlugin(),
	),
)

// imageScheme marks <img> elements whose Markdown is replaced after
// conversion. It is a URL scheme so the converter never rewrites it against
// the document domain.
const imageScheme = "markitdown-image:"

var imagePattern = regexp.MustCompile(`!\[(?:\\.|[^\]\\])*\]\(<?markitdown-image:(\d+)>?(?:\s+"[^"]*")?\)`)

// ResolveFunc loads the bytes behind an <img src>.
type ResolveFunc func(src string) (data []byte, contentType string, err error)

// RenderOptions configures Render.
type RenderOptions struct {
	Navigation NavigationExclusionMode

	// Domain resolves relative links.
	Domain string

	// Images processes embedded pictures. nil embeds them inline.
	Images *images.Pipeline

	// Resolve loads images referenced by path. Without it only data URIs
	// become image artifacts and other images stay links.
	Resolve ResolveFunc

	// Page is recorded on the image artifacts.
	Page int

	Logger logrus.FieldLogger
}

// Rendered is the output of Render.
type Rendered struct {
	Markdown string
	Images   []*model.ImageArtifact
}

// Render converts d to Markdown. It prunes and rewrites the parsed tree, so
// a Document is rendered once.
func Render(ctx context.Context, d *Document, opts RenderOptions) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	prune(d.root, opts.Navigation)

	out := &Rendered{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			if img := loadImage(n, opts, log); img != nil {
				setAttr(n, "src", imageScheme+strconv.Itoa(len(out.Images)))
				out.Images = append(out.Images, img)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	var (
		md  []byte
		err error
	)
	if opts.Domain != "" {
		md, err = mdConverter.ConvertNode(d.root, converter.WithDomain(opts.Domain))
	} else {
		md, err = mdConverter.ConvertNode(d.root)
	}
	if err != nil {
		return nil, fmt.Errorf("converting HTML: %w", err)
	}

	text := string(md)
	if len(out.Images) > 0 {
		placeholders, err := opts.Images.ProcessAll(ctx, out.Images)
		if err != nil {
			return nil, err
		}
		text = imagePattern.ReplaceAllStringFunc(text, func(m string) string {
			sub := imagePattern.FindStringSubmatch(m)
			i, err := strconv.Atoi(sub[1])
			if err != nil || i >= len(placeholders) {
				return m
			}
			return placeholders[i]
		})
	}
	out.Markdown = strings.TrimSpace(text)
	return out, nil
}

// loadImage builds an artifact for an <img>, or returns nil when the source
// cannot be loaded.
func loadImage(n *html.Node, opts RenderOptions, log logrus.FieldLogger) *model.ImageArtifact {
	src := strings.TrimSpace(attrValue(n, "src"))
	if src == "" {
		return nil
	}

	var (
		data []byte
		ct   string
		err  error
	)
	if strings.HasPrefix(src, "data:") {
		var ok bool
		data, ct, ok = decodeDataURI(src)
		if !ok {
			return nil
		}
	} else {
		if opts.Resolve == nil {
			return nil
		}
		data, ct, err = opts.Resolve(src)
		if err != nil {
			log.WithFields(logrus.Fields{"src": src, "error": err}).Debug("image not resolved, keeping link")
			return nil
		}
	}

	if ct == "" {
		ct = mimetype.Detect(data).String()
	}
	if !images.IsImageType(ct) {
		return nil
	}

	img := model.NewImageArtifact(data, ct, opts.Page)
	if !strings.HasPrefix(src, "data:") {
		img.Source = src
	}
	for _, l := range []string{attrValue(n, "alt"), attrValue(n, "title")} {
		if l = strings.TrimSpace(l); l != "" {
			img.Label = l
			break
		}
	}
	if img.Label == "" && img.Source != "" {
		img.Label = path.Base(img.Source)
	}
	return img
}

// decodeDataURI decodes an RFC 2397 data URI.
func decodeDataURI(uri string) ([]byte, string, bool) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", false
	}
	ct := "text/plain"
	isBase64 := false
	for i, p := range strings.Split(header, ";") {
		p = strings.TrimSpace(p)
		switch {
		case i == 0 && p != "":
			ct = strings.ToLower(p)
		case p == "base64":
			isBase64 = true
		}
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
		if err != nil {
			return nil, "", false
		}
		return data, ct, true
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", false
	}
	return []byte(s), ct, true
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
