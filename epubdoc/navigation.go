package epubdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"path"
	"strings"

	"golang.org/x/net/html"
)

const ncxMediaType = "application/x-dtbncx+xml"

var errNoTOC = errors.New("epub: nav document has no toc")

// tocParser turns a navigation document into a table of contents. Hrefs in
// the result are resolved against dir.
type tocParser func(content []byte, dir string) (*TableOfContents, error)

// parseNavigation reads the EPUB 3 nav document or, failing that, the
// EPUB 2 NCX. It returns nil when the book has neither.
func parseNavigation(b *book, pkg *Package, baseDir string) *TableOfContents {
	sources := []struct {
		item  *ManifestItem
		parse tocParser
	}{
		{navItem(pkg), parseNavXHTML},
		{ncxItem(pkg), parseNCX},
	}
	for _, src := range sources {
		if src.item == nil {
			continue
		}
		name, ok := resolve(baseDir, src.item.Href)
		if !ok {
			continue
		}
		data, err := b.read(name)
		if err != nil {
			continue
		}
		if toc, err := src.parse(data, path.Dir(name)); err == nil {
			return toc
		}
	}
	return nil
}

func navItem(pkg *Package) *ManifestItem {
	for _, item := range pkg.Manifest {
		if item.HasProperty("nav") {
			return &item
		}
	}
	return nil
}

// ncxItem prefers the NCX the spine names over any other in the manifest.
func ncxItem(pkg *Package) *ManifestItem {
	if item, ok := pkg.Manifest[pkg.NCX]; ok {
		return &item
	}
	for _, item := range pkg.Manifest {
		if item.MediaType == ncxMediaType {
			return &item
		}
	}
	return nil
}

// entryHref resolves href against dir and keeps its fragment. Hrefs that
// leave the archive are returned untouched.
func entryHref(dir, href string) string {
	p, frag, hasFrag := strings.Cut(href, "#")
	name, ok := resolve(dir, p)
	switch {
	case !ok:
		return href
	case hasFrag && frag != "":
		return name + "#" + frag
	}
	return name
}

// parseNavXHTML reads the toc nav of an EPUB 3 navigation document.
func parseNavXHTML(content []byte, dir string) (*TableOfContents, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	nav := firstElement(doc, isTOCNav)
	if nav == nil {
		return nil, errNoTOC
	}
	toc := &TableOfContents{}
	if h := firstElement(nav, isHeading); h != nil {
		toc.Title = nodeText(h)
	}
	if ol := firstElement(nav, tagIs("ol")); ol != nil {
		toc.Entries = listEntries(ol, dir)
	}
	return toc, nil
}

func isTOCNav(n *html.Node) bool {
	if n.Data != "nav" {
		return false
	}
	for _, a := range n.Attr {
		if (a.Key == "epub:type" || a.Key == "type") && strings.Contains(a.Val, "toc") {
			return true
		}
	}
	return false
}

func isHeading(n *html.Node) bool {
	return len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6'
}

func tagIs(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// firstElement returns the first element under n, in document order, that
// match accepts. n itself is a candidate.
func firstElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

// listEntries reads the li children of a nav ol. A li holds an anchor, or
// a span heading for an unlinked group, and optionally a nested ol.
func listEntries(ol *html.Node, dir string) []TOCEntry {
	var out []TOCEntry
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var e TOCEntry
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				e.Title = nodeText(c)
				if href := attr(c, "href"); href != "" {
					e.Href = entryHref(dir, href)
				}
			case "span":
				if e.Title == "" {
					e.Title = nodeText(c)
				}
			case "ol":
				e.Children = listEntries(c, dir)
			}
		}
		if e.Title != "" || e.Href != "" {
			out = append(out, e)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText returns the whitespace-collapsed text under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ncxDocument is the subset of an EPUB 2 NCX that carries the toc.
type ncxDocument struct {
	XMLName xml.Name   `xml:"ncx"`
	Title   string     `xml:"docTitle>text"`
	Points  []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

func (p navPoint) entry(dir string) TOCEntry {
	e := TOCEntry{Title: strings.TrimSpace(p.Label), Href: entryHref(dir, p.Content.Src)}
	for _, c := range p.Children {
		e.Children = append(e.Children, c.entry(dir))
	}
	return e
}

func parseNCX(content []byte, dir string) (*TableOfContents, error) {
	var ncx ncxDocument
	if err := xml.Unmarshal(content, &ncx); err != nil {
		return nil, err
	}
	toc := &TableOfContents{Title: strings.TrimSpace(ncx.Title)}
	for _, p := range ncx.Points {
		toc.Entries = append(toc.Entries, p.entry(dir))
	}
	return toc, nil
}
