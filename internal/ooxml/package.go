// Package ooxml reads the parts shared by Office Open XML packages: the ZIP
// container, relationship files and core document properties.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// ErrMissingPart is returned when a required package part does not exist.
var ErrMissingPart = errors.New("ooxml: missing part")

// Relationship types used by the converters.
const (
	RelImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelHyperlink   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelNotesSlide  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelOfficeDoc   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelCoreProps   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelChart       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
	targetExternal = "External"
)

// Package is an opened OOXML container.
type Package struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

// Open reads the ZIP directory of an OOXML package.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	p := &Package{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[strings.TrimPrefix(f.Name, "/")] = f
	}
	return p, nil
}

// Require returns ErrMissingPart naming the first absent part.
func (p *Package) Require(names ...string) error {
	for _, n := range names {
		if !p.Has(n) {
			return fmt.Errorf("%w: %s", ErrMissingPart, n)
		}
	}
	return nil
}

// Has reports whether the package contains the named part.
func (p *Package) Has(name string) bool {
	_, ok := p.files[name]
	return ok
}

// Read returns the content of a part.
func (p *Package) Read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Open returns a reader for a part. The caller closes it.
func (p *Package) Open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	return f.Open()
}

// Unmarshal decodes an XML part into v.
func (p *Package) Unmarshal(name string, v any) error {
	data, err := p.Read(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", name, err)
	}
	return nil
}

// Names returns the sorted part names starting with prefix.
func (p *Package) Names(prefix string) []string {
	var out []string
	for n := range p.files {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// External reports whether the target lies outside the package.
func (r Relationship) External() bool { return r.TargetMode == targetExternal }

type relationshipsXML struct {
	Relationships []Relationship `xml:"Relationship"`
}

// Relationships maps relationship IDs of one source part to their entries,
// with targets already resolved to package part names.
type Relationships map[string]Relationship

// ByType returns the relationships of the given type ordered by ID.
func (rs Relationships) ByType(typ string) []Relationship {
	var out []Relationship
	for _, r := range rs {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i].ID, out[j].ID) })
	return out
}

// RelsPart returns the name of the relationship part for part.
func RelsPart(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// Rels reads the relationships of part. A missing .rels part yields an
// empty map.
func (p *Package) Rels(part string) (Relationships, error) {
	name := RelsPart(part)
	if !p.Has(name) {
		return Relationships{}, nil
	}
	var x relationshipsXML
	if err := p.Unmarshal(name, &x); err != nil {
		return nil, err
	}
	out := make(Relationships, len(x.Relationships))
	for _, r := range x.Relationships {
		if !r.External() {
			r.Target = ResolveTarget(part, r.Target)
		}
		out[r.ID] = r
	}
	return out, nil
}

// ResolveTarget resolves a relationship target relative to its source part.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}

// naturalLess orders "rId2" before "rId10".
func naturalLess(a, b string) bool {
	na, nb := trailingNumber(a), trailingNumber(b)
	pa, pb := strings.TrimRight(a, "0123456789"), strings.TrimRight(b, "0123456789")
	if pa != pb || na < 0 || nb < 0 {
		return a < b
	}
	return na < nb
}

func trailingNumber(s string) int {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return -1
	}
	n := 0
	for _, c := range s[i:] {
		n = n*10 + int(c-'0')
	}
	return n
}

// EachChild calls fn for every child element of the element being decoded
// and consumes its end tag. fn must consume the element it is given.
func EachChild(d *xml.Decoder, fn func(xml.StartElement) error) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}
