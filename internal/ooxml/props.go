package ooxml

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// CoreProperties holds the Dublin Core metadata of docProps/core.xml.
type CoreProperties struct {
	Title       string `xml:"title"`
	Subject     string `xml:"subject"`
	Creator     string `xml:"creator"`
	Keywords    string `xml:"keywords"`
	Description string `xml:"description"`
	Modified    string `xml:"modified"`
}

// Metadata returns the non-empty properties keyed by lower-case name.
func (c CoreProperties) Metadata() map[string]string {
	md := make(map[string]string)
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			md[k] = v
		}
	}
	set("title", c.Title)
	set("subject", c.Subject)
	set("author", c.Creator)
	set("keywords", c.Keywords)
	set("description", c.Description)
	set("modified", c.Modified)
	return md
}

// PartError records an optional part that exists but could not be parsed.
type PartError struct {
	Part string
	Err  error
}

func (e *PartError) Error() string { return fmt.Sprintf("ooxml: part %s: %v", e.Part, e.Err) }

func (e *PartError) Unwrap() error { return e.Err }

// UnmarshalOptional decodes a part that may be absent. A missing part is
// not an error. Any other failure is returned as a *PartError and v keeps
// whatever was decoded.
func (p *Package) UnmarshalOptional(name string, v any) error {
	err := p.Unmarshal(name, v)
	if err == nil || errors.Is(err, ErrMissingPart) {
		return nil
	}
	return &PartError{Part: name, Err: err}
}

// CoreProperties reads docProps/core.xml. Missing properties yield the
// zero value. Malformed ones yield the zero value and a *PartError.
func (p *Package) CoreProperties() (CoreProperties, error) {
	var c CoreProperties
	name := "docProps/core.xml"
	if rels, err := p.Rels(""); err == nil {
		for _, r := range rels.ByType(RelCoreProps) {
			name = r.Target
		}
	}
	if err := p.UnmarshalOptional(name, &c); err != nil {
		return CoreProperties{}, err
	}
	return c, nil
}

// ContentType guesses the media type of a package part from its extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".emf":
		return "image/emf"
	case ".wmf":
		return "image/wmf"
	default:
		return "application/octet-stream"
	}
}
