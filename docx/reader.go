// Package docx converts Word (.docx) documents to Markdown.
//
// The body is walked in document order. Headings, lists, emphasis,
// hyperlinks, tables and embedded images are kept; explicit page breaks
// start a new page segment.
package docx

import (
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/markitdown/internal/ooxml"
)

const documentPart = "word/document.xml"

// Reader provides access to the parsed parts of a DOCX package.
type Reader struct {
	pkg       *ooxml.Package
	document  *documentXML
	styles    *styleSet
	numbering *numberingXML
	rels      ooxml.Relationships
	core      ooxml.CoreProperties
	skipped   []error
}

// Open parses a DOCX package.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	pkg, err := ooxml.Open(r, size)
	if err != nil {
		return nil, err
	}
	if err := pkg.Require(documentPart); err != nil {
		return nil, err
	}

	rd := &Reader{pkg: pkg}

	if rd.rels, err = pkg.Rels(documentPart); err != nil {
		return nil, fmt.Errorf("parsing relationships: %w", err)
	}

	rd.document = &documentXML{}
	if err := pkg.Unmarshal(documentPart, rd.document); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	// Styles, numbering and properties are optional. Malformed ones are
	// dropped and recorded in skipped.
	var styles stylesXML
	if err := pkg.Unmarshal("word/styles.xml", &styles); err == nil {
		rd.styles = newStyleSet(&styles)
	} else {
		rd.styles = newStyleSet(nil)
		rd.skip(err)
	}
	var numbering numberingXML
	if err := pkg.Unmarshal("word/numbering.xml", &numbering); err == nil {
		rd.numbering = &numbering
	} else {
		rd.skip(err)
	}

	core, err := pkg.CoreProperties()
	rd.core = core
	rd.skip(err)
	return rd, nil
}

func (r *Reader) skip(err error) {
	if err != nil && !errors.Is(err, ooxml.ErrMissingPart) {
		r.skipped = append(r.skipped, err)
	}
}

// Skipped returns the errors of optional parts that were present but
// could not be parsed.
func (r *Reader) Skipped() []error {
	return r.skipped
}

// Title returns the title from the document properties.
func (r *Reader) Title() string {
	return r.core.Title
}

// Metadata returns the document properties.
func (r *Reader) Metadata() map[string]string {
	return r.core.Metadata()
}

// BlockCount returns the number of top-level paragraphs and tables.
func (r *Reader) BlockCount() int {
	return len(r.document.Body.Blocks)
}

// image reads the part a relationship ID points at.
func (r *Reader) image(relID string) (data []byte, target string, err error) {
	rel, ok := r.rels[relID]
	if !ok || rel.External() {
		return nil, "", fmt.Errorf("image relationship %q not found", relID)
	}
	data, err = r.pkg.Read(rel.Target)
	return data, rel.Target, err
}

// link returns the URL of a hyperlink.
func (r *Reader) link(h *hyperlinkXML) string {
	if h.ID != "" {
		if rel, ok := r.rels[h.ID]; ok {
			return rel.Target
		}
	}
	if h.Anchor != "" {
		return "#" + h.Anchor
	}
	return ""
}
