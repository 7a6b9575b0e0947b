// Package odt converts OpenDocument Text (.odt) files to Markdown.
//
// The office:text body is walked in document order. Headings, lists,
// emphasis, links, tables and embedded pictures are kept. Layout page
// boundaries recorded by the writer and paragraphs styled to break before
// a page start a new page segment.
package odt

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

// MIMEType is the registered media type of .odt files.
const MIMEType = "application/vnd.oasis.opendocument.text"

const (
	contentPart  = "content.xml"
	stylesPart   = "styles.xml"
	metaPart     = "meta.xml"
	mimetypePart = "mimetype"
)

// Reader provides access to the parsed parts of an ODT package.
type Reader struct {
	pkg      *ooxml.Package
	content  *contentXML
	resolver *styleResolver
	meta     metaXML
	skipped  []error
}

// Open parses an ODT package. styles.xml and meta.xml are optional. When
// either is malformed it is ignored and its error is kept for Skipped.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	pkg, err := ooxml.Open(r, size)
	if err != nil {
		return nil, err
	}
	if err := pkg.Require(contentPart); err != nil {
		return nil, err
	}

	rd := &Reader{pkg: pkg, content: &contentXML{}}
	if err := pkg.Unmarshal(contentPart, rd.content); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}

	var styles stylesXML
	if err := pkg.UnmarshalOptional(stylesPart, &styles); err != nil {
		styles = stylesXML{}
		rd.skipped = append(rd.skipped, err)
	}
	rd.resolver = newStyleResolver(styles.Styles, styles.AutoStyles, &rd.content.AutoStyles)

	if err := pkg.UnmarshalOptional(metaPart, &rd.meta); err != nil {
		rd.meta = metaXML{}
		rd.skipped = append(rd.skipped, err)
	}
	return rd, nil
}

// Skipped returns the errors of optional parts that were present but
// could not be parsed.
func (r *Reader) Skipped() []error {
	return r.skipped
}

// isODT reports whether pkg looks like an OpenDocument text package.
func isODT(pkg *ooxml.Package) bool {
	if data, err := pkg.Read(mimetypePart); err == nil {
		return strings.TrimSpace(string(data)) == MIMEType
	}
	return pkg.Has(contentPart) && pkg.Has("META-INF/manifest.xml")
}

// Title returns the document title from meta.xml.
func (r *Reader) Title() string {
	return strings.TrimSpace(r.meta.Title)
}

// Metadata returns the non-empty meta.xml properties, keyed the same way
// as the other office converters.
func (r *Reader) Metadata() map[string]string {
	m := r.meta
	md := make(map[string]string)
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			md[k] = v
		}
	}
	set("title", m.Title)
	set("subject", m.Subject)
	set("description", m.Description)
	set("keywords", strings.Join(m.Keywords, ", "))
	set("author", m.InitialCreator)
	if _, ok := md["author"]; !ok {
		set("author", m.Creator)
	}
	set("created", m.CreationDate)
	set("modified", m.Date)
	set("language", m.Language)
	return md
}

// image reads a picture stored in the package. External references are
// rejected.
func (r *Reader) image(href string) ([]byte, string, error) {
	if href == "" || strings.Contains(href, "://") {
		return nil, "", fmt.Errorf("image %q is not stored in the package", href)
	}
	name := path.Clean(strings.TrimPrefix(href, "./"))
	data, err := r.pkg.Read(name)
	return data, name, err
}
