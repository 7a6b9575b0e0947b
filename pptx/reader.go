package pptx

import (
	"fmt"
	"io"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

const presentationPart = "ppt/presentation.xml"

// Reader provides access to the slides of a PPTX package.
type Reader struct {
	pkg     *ooxml.Package
	slides  []string
	core    ooxml.CoreProperties
	coreErr error
}

// Open parses a PPTX package and resolves its slide order.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	pkg, err := ooxml.Open(r, size)
	if err != nil {
		return nil, err
	}
	if err := pkg.Require(presentationPart); err != nil {
		return nil, err
	}

	rd := &Reader{pkg: pkg}
	rd.core, rd.coreErr = pkg.CoreProperties()
	if rd.slides, err = rd.slideOrder(); err != nil {
		return nil, err
	}
	return rd, nil
}

// Skipped returns the errors of optional parts that were present but
// could not be parsed.
func (r *Reader) Skipped() []error {
	if r.coreErr != nil {
		return []error{r.coreErr}
	}
	return nil
}

// slideOrder returns slide part names in presentation order. Packages
// without a usable slide list fall back to the numeric order of the parts.
func (r *Reader) slideOrder() ([]string, error) {
	var pres presentationXML
	if err := r.pkg.Unmarshal(presentationPart, &pres); err != nil {
		return nil, fmt.Errorf("parsing presentation: %w", err)
	}
	rels, err := r.pkg.Rels(presentationPart)
	if err != nil {
		return nil, fmt.Errorf("parsing presentation relationships: %w", err)
	}

	var out []string
	for _, id := range pres.SlideIDList.SlideIDs {
		if rel, ok := rels[id.RID]; ok && r.pkg.Has(rel.Target) {
			out = append(out, rel.Target)
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	for _, rel := range rels.ByType(ooxml.RelSlide) {
		if r.pkg.Has(rel.Target) {
			out = append(out, rel.Target)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	for _, name := range r.pkg.Names("ppt/slides/slide") {
		if strings.HasSuffix(name, ".xml") {
			out = append(out, name)
		}
	}
	return out, nil
}

// SlideCount returns the number of slides.
func (r *Reader) SlideCount() int {
	return len(r.slides)
}

// Title returns the title from the document properties.
func (r *Reader) Title() string {
	return r.core.Title
}

// Metadata returns the document properties.
func (r *Reader) Metadata() map[string]string {
	return r.core.Metadata()
}

// slide parses one slide part and its relationships.
func (r *Reader) slide(part string) (*slideXML, ooxml.Relationships, error) {
	var s slideXML
	if err := r.pkg.Unmarshal(part, &s); err != nil {
		return nil, nil, err
	}
	rels, err := r.pkg.Rels(part)
	if err != nil {
		return nil, nil, err
	}
	return &s, rels, nil
}

// notes returns the speaker notes linked from a slide.
func (r *Reader) notes(rels ooxml.Relationships) string {
	var lines []string
	for _, rel := range rels.ByType(ooxml.RelNotesSlide) {
		var n slideXML
		if err := r.pkg.Unmarshal(rel.Target, &n); err != nil {
			continue
		}
		collectNotes(&n.CSld.SpTree, &lines)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func collectNotes(tree *shapeTreeXML, lines *[]string) {
	for _, sh := range tree.Shapes {
		switch {
		case sh.Group != nil:
			collectNotes(sh.Group, lines)
		case sh.Sp != nil && sh.Sp.TxBody != nil:
			// The slide thumbnail and number placeholders carry no notes.
			switch sh.Sp.placeholder() {
			case "sldImg", "sldNum", "hdr", "ftr", "dt":
				continue
			}
			for i := range sh.Sp.TxBody.Paragraphs {
				if t := strings.TrimSpace(plainText(&sh.Sp.TxBody.Paragraphs[i])); t != "" {
					*lines = append(*lines, t)
				}
			}
		}
	}
}

// part reads a related part, such as an image or a chart.
func (r *Reader) part(rels ooxml.Relationships, id string) ([]byte, string, error) {
	rel, ok := rels[id]
	if !ok || rel.External() {
		return nil, "", fmt.Errorf("relationship %q not found", id)
	}
	data, err := r.pkg.Read(rel.Target)
	return data, rel.Target, err
}

func plainText(p *paragraphXML) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}
