package epubdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	ErrNoOPF      = errors.New("epub: missing package document (OPF)")
	ErrInvalidOPF = errors.New("epub: invalid package document")
	ErrEmptySpine = errors.New("epub: no content in spine")
)

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title       dcValues  `xml:"title"`
		Creator     dcValues  `xml:"creator"`
		Language    dcValues  `xml:"language"`
		Identifier  dcValues  `xml:"identifier"`
		Publisher   dcValues  `xml:"publisher"`
		Date        dcValues  `xml:"date"`
		Description dcValues  `xml:"description"`
		Subject     dcValues  `xml:"subject"`
		Rights      dcValues  `xml:"rights"`
		Meta        []opfMeta `xml:"meta"`
	} `xml:"metadata"`
	Items []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
	Spine struct {
		TOC  string `xml:"toc,attr"`
		Refs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// dcValues holds the repeated occurrences of one Dublin Core element.
type dcValues []struct {
	Value string `xml:",chardata"`
}

// all returns the trimmed non-empty values in document order.
func (v dcValues) all() []string {
	var out []string
	for _, e := range v {
		if s := strings.TrimSpace(e.Value); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (v dcValues) first() string {
	if all := v.all(); len(all) > 0 {
		return all[0]
	}
	return ""
}

// opfMeta covers both the EPUB 3 property form and the EPUB 2 name and
// content form.
type opfMeta struct {
	Property string `xml:"property,attr"`
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Value    string `xml:",chardata"`
}

// parseOPF parses the package document at opfPath. It returns the package
// and the directory manifest hrefs are relative to.
func (b *book) parseOPF(opfPath string) (*Package, string, error) {
	if !b.has(opfPath) {
		return nil, "", ErrNoOPF
	}
	data, err := b.read(opfPath)
	if err != nil {
		return nil, "", err
	}
	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOPF, err)
	}
	pkg := opf.toPackage()
	if len(pkg.Spine) == 0 {
		return nil, "", ErrEmptySpine
	}
	dir := path.Dir(opfPath)
	if dir == "." {
		dir = ""
	}
	return pkg, dir, nil
}

func (o *opfPackage) toPackage() *Package {
	m := &o.Metadata
	pkg := &Package{
		Version: o.Version,
		NCX:     o.Spine.TOC,
		Metadata: Metadata{
			Title:       m.Title.first(),
			Creator:     m.Creator.all(),
			Language:    m.Language.first(),
			Identifier:  m.Identifier.first(),
			Publisher:   m.Publisher.first(),
			Date:        m.Date.first(),
			Description: m.Description.first(),
			Subjects:    m.Subject.all(),
			Rights:      m.Rights.first(),
			Modified:    modified(m.Meta),
		},
		Manifest: make(map[string]ManifestItem, len(o.Items)),
		Spine:    make([]SpineItem, 0, len(o.Spine.Refs)),
	}
	for _, it := range o.Items {
		pkg.Manifest[it.ID] = ManifestItem{
			ID:         it.ID,
			Href:       it.Href,
			MediaType:  it.MediaType,
			Properties: strings.Fields(it.Properties),
		}
	}
	for _, ref := range o.Spine.Refs {
		pkg.Spine = append(pkg.Spine, SpineItem{IDRef: ref.IDRef, Linear: ref.Linear != "no"})
	}
	return pkg
}

// modified returns the dcterms:modified timestamp, the last one wins.
func modified(metas []opfMeta) time.Time {
	var t time.Time
	for _, mt := range metas {
		v := mt.Value
		switch {
		case mt.Property == "dcterms:modified":
		case mt.Name == "dcterms:modified":
			v = mt.Content
		default:
			continue
		}
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
			t = parsed
		}
	}
	return t
}
