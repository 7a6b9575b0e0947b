// Package epubdoc converts EPUB books to Markdown, one section per spine
// document.
package epubdoc

import (
	"strings"
	"time"
)

// Package represents the parsed OPF document.
type Package struct {
	Metadata Metadata
	Manifest map[string]ManifestItem // keyed by ID
	Spine    []SpineItem
	Version  string // "2.0" or "3.0"
	NCX      string // manifest ID of the EPUB 2 table of contents
}

// Metadata contains EPUB metadata (Dublin Core).
type Metadata struct {
	Title       string
	Creator     []string // Multiple authors possible
	Language    string
	Identifier  string // ISBN, UUID, etc.
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Modified    time.Time
}

// Map returns the non-empty fields under result metadata keys.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string)
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	set("title", m.Title)
	set("author", strings.Join(m.Creator, ", "))
	set("language", m.Language)
	set("identifier", m.Identifier)
	set("publisher", m.Publisher)
	set("date", m.Date)
	set("description", m.Description)
	set("keywords", strings.Join(m.Subjects, ", "))
	set("rights", m.Rights)
	if !m.Modified.IsZero() {
		out["modified"] = m.Modified.UTC().Format(time.RFC3339)
	}
	return out
}

// ManifestItem represents a file in the EPUB.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string // "nav", "cover-image", etc.
}

// HasProperty reports whether the item declares prop.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents a content document in reading order.
type SpineItem struct {
	IDRef  string
	Linear bool // true if part of main reading order
}

// Chapter is one spine document.
type Chapter struct {
	ID      string
	Title   string
	Index   int
	Href    string // path inside the archive
	Linear  bool
	Content []byte // Raw XHTML content
}

// TableOfContents represents the navigation structure.
type TableOfContents struct {
	Title   string
	Entries []TOCEntry
}

// TOCEntry represents a single navigation entry. Href is resolved to a path
// inside the archive and may carry a fragment.
type TOCEntry struct {
	Title    string
	Href     string
	Children []TOCEntry
}

// Titles maps archive paths to the first entry title that points at them.
func (t *TableOfContents) Titles() map[string]string {
	out := make(map[string]string)
	var walk func([]TOCEntry)
	walk = func(entries []TOCEntry) {
		for _, e := range entries {
			p, _, _ := strings.Cut(e.Href, "#")
			if _, ok := out[p]; !ok && p != "" && e.Title != "" {
				out[p] = e.Title
			}
			walk(e.Children)
		}
	}
	if t != nil {
		walk(t.Entries)
	}
	return out
}
