package htmldoc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// boilerplateName matches class and id tokens of navigation and page chrome
// containers, after camelCase is folded to kebab case ("siteFooter" is
// checked as "site-footer").
var boilerplateName = regexp.MustCompile(
	`(?i)(^|[^a-z])(nav|navbar|navigation|menu|topnav|sidenav|breadcrumbs?|` +
		`site-header|page-header|masthead|banner|` +
		`footer|site-footer|page-footer|colophon|` +
		`sidebar|widget-area|widget|aside)([^a-z]|$)`)

// Link density above which a block of at least minNavLinks links is taken
// for a menu in aggressive mode.
const (
	navLinkDensity = 0.6
	minNavLinks    = 4
)

// prune removes comments, non-text elements and, depending on mode,
// navigation and page chrome from the tree rooted at doc.
func prune(doc *html.Node, mode NavigationExclusionMode) {
	p := newPruner(doc, mode)
	var doomed []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if p.drop(c) {
				doomed = append(doomed, c)
				continue
			}
			walk(c)
		}
	}
	walk(doc)
	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}
}

// pruner decides which nodes are dropped for one document.
type pruner struct {
	mode NavigationExclusionMode

	// top holds the nodes whose direct children count as page level: the
	// body, and a lone wrapper div or main directly under it.
	top map[*html.Node]bool
}

func newPruner(doc *html.Node, mode NavigationExclusionMode) *pruner {
	body := findElement(doc, "body")
	if body == nil {
		body = doc
	}
	p := &pruner{mode: mode, top: map[*html.Node]bool{body: true}}
	if w := loneWrapper(body); w != nil {
		p.top[w] = true
	}
	return p
}

// loneWrapper returns the single div or main directly under body, ignoring
// script-like siblings, or nil.
func loneWrapper(body *html.Node) *html.Node {
	var found *html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || inert(c.Data) {
			continue
		}
		if (c.Data != "div" && c.Data != "main") || found != nil {
			return nil
		}
		found = c
	}
	return found
}

// inert reports elements that never carry document text.
func inert(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "iframe", "svg":
		return true
	}
	return false
}

func (p *pruner) drop(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode:
		return true
	case html.ElementNode:
	default:
		return false
	}
	if inert(n.Data) {
		return true
	}
	if p.mode == NavigationExclusionNone {
		return false
	}
	if p.semantic(n) {
		return true
	}
	if p.mode >= NavigationExclusionStandard && namedBoilerplate(n) {
		return true
	}
	return p.mode >= NavigationExclusionAggressive && linkHeavy(n)
}

// semantic reports HTML5 sectioning elements and ARIA landmarks that mark
// navigation. Headers, footers and their landmark roles only count at page
// level, so article headers survive.
func (p *pruner) semantic(n *html.Node) bool {
	switch n.Data {
	case "nav", "aside":
		return true
	case "header", "footer":
		return p.top[n.Parent]
	}
	switch attrValue(n, "role") {
	case "navigation", "complementary":
		return true
	case "banner", "contentinfo":
		return p.top[n.Parent]
	}
	return false
}

func namedBoilerplate(n *html.Node) bool {
	for _, key := range []string{"class", "id"} {
		if v := attrValue(n, key); v != "" && boilerplateName.MatchString(kebab(v)) {
			return true
		}
	}
	return false
}

// linkHeavy reports block containers whose text is mostly link text.
func linkHeavy(n *html.Node) bool {
	switch n.Data {
	case "div", "section", "ul", "ol":
	default:
		return false
	}
	var s linkStats
	s.collect(n, false)
	return s.links >= minNavLinks && s.total > 0 &&
		float64(s.linked)/float64(s.total) > navLinkDensity
}

// linkStats counts trimmed text bytes, the share inside anchors, and the
// anchors themselves.
type linkStats struct {
	total, linked, links int
}

func (s *linkStats) collect(n *html.Node, inLink bool) {
	switch n.Type {
	case html.TextNode:
		l := len(strings.TrimSpace(n.Data))
		s.total += l
		if inLink {
			s.linked += l
		}
		return
	case html.ElementNode:
		if n.Data == "a" {
			s.links++
			inLink = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.collect(c, inLink)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// kebab lower-cases s, inserting a hyphen before each inner upper-case
// letter.
func kebab(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte('-')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
