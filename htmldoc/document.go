// Package htmldoc converts HTML documents to Markdown. Its Document and
// Render are shared by the converters of formats that carry HTML bodies,
// such as EPUB chapters and email.
package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/markitdown/internal/textenc"
)

// Document is a parsed HTML document.
type Document struct {
	root     *html.Node
	title    string
	metadata map[string]string
}

// Parse reads and parses HTML from r. charset is the declared character set
// and may be empty, in which case it is sniffed from the content.
func Parse(r io.Reader, charset string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading HTML: %w", err)
	}
	text, err := textenc.Decode(data, charset, "text/html")
	if err != nil {
		return nil, err
	}
	return ParseString(text)
}

// ParseString parses already decoded HTML.
func ParseString(s string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	d := &Document{
		root:     root,
		metadata: make(map[string]string),
	}
	d.extractHead(root)
	return d, nil
}

// extractHead extracts title and meta tags from the head element.
func (d *Document) extractHead(n *html.Node) {
	if n.Type == html.ElementNode && n.Data == "head" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "title":
				d.title = strings.Join(strings.Fields(getTextContent(c)), " ")
			case "meta":
				name := strings.ToLower(attrValue(c, "name"))
				if name == "" {
					name = strings.ToLower(attrValue(c, "property"))
				}
				content := strings.TrimSpace(attrValue(c, "content"))
				if name != "" && content != "" {
					d.metadata[name] = content
				}
			}
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.extractHead(c)
	}
}

// Title returns the <title> text, falling back to og:title and then to the
// first <h1>.
func (d *Document) Title() string {
	if d.title != "" {
		return d.title
	}
	if t := d.metadata["og:title"]; t != "" {
		return t
	}
	if h := findElement(d.root, "h1"); h != nil {
		return strings.Join(strings.Fields(getTextContent(h)), " ")
	}
	return ""
}

// Heading returns the text of the first heading of any level.
func (d *Document) Heading() string {
	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
			if t := strings.Join(strings.Fields(getTextContent(n)), " "); t != "" {
				found = t
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return found
}

// Metadata returns the document metadata under the result metadata keys:
// title, author, description and keywords.
func (d *Document) Metadata() map[string]string {
	out := make(map[string]string)
	if d.title != "" {
		out["title"] = d.title
	}
	for _, k := range []string{"author", "description", "keywords"} {
		if v := d.metadata[k]; v != "" {
			out[k] = v
		}
	}
	if _, ok := out["description"]; !ok && d.metadata["og:description"] != "" {
		out["description"] = d.metadata["og:description"]
	}
	return out
}

// Meta returns one <meta> value by lower-case name or property.
func (d *Document) Meta(name string) string {
	return d.metadata[strings.ToLower(name)]
}

// Text returns the plain text of the body.
func (d *Document) Text() string {
	body := findElement(d.root, "body")
	if body == nil {
		body = d.root
	}
	var sb strings.Builder
	getTextContentRecursive(body, &sb)
	return strings.TrimSpace(sb.String())
}

// findElement returns the first element named tagName in document order.
func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tagName); found != nil {
			return found
		}
	}
	return nil
}

// getTextContent returns all text content of a node.
func getTextContent(n *html.Node) string {
	var result strings.Builder
	getTextContentRecursive(n, &result)
	return strings.TrimSpace(result.String())
}

func getTextContentRecursive(n *html.Node, result *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		result.WriteString(n.Data)
		return
	case html.ElementNode:
		if inert(n.Data) {
			return
		}
		switch n.Data {
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			defer result.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		getTextContentRecursive(c, result)
	}
}
