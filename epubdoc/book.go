package epubdoc

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

// Reader-related errors.
var (
	ErrInvalidArchive  = errors.New("epub: invalid or corrupted archive")
	ErrInvalidMimetype = errors.New("epub: invalid mimetype (not an EPUB)")
	ErrMissingContent  = errors.New("epub: referenced content file not found")
)

const epubMIME = "application/epub+zip"

// book is the EPUB view of a ZIP container. Entries are looked up with
// the shared OOXML package index, which drops a leading slash from names.
type book struct {
	pkg *ooxml.Package
}

func openBook(r io.ReaderAt, size int64) (*book, error) {
	pkg, err := ooxml.Open(r, size)
	if err != nil {
		return nil, ErrInvalidArchive
	}
	return &book{pkg: pkg}, nil
}

func (b *book) has(name string) bool { return b.pkg.Has(name) }

// read returns the named entry, ErrMissingContent when it does not exist.
func (b *book) read(name string) ([]byte, error) {
	data, err := b.pkg.Read(name)
	if errors.Is(err, ooxml.ErrMissingPart) {
		return nil, fmt.Errorf("%w: %s", ErrMissingContent, name)
	}
	return data, err
}

// validateMimetype checks the mimetype entry. A missing entry is tolerated
// since many readers accept such books.
func (b *book) validateMimetype() error {
	if !b.has("mimetype") {
		return nil
	}
	data, err := b.read("mimetype")
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) != epubMIME {
		return ErrInvalidMimetype
	}
	return nil
}

// resolve resolves href, relative to the directory dir, to an archive path.
// Fragments and queries are dropped. Absolute URLs do not resolve.
func resolve(dir, href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	p := u.Path
	if p == "" {
		return "", false
	}
	if strings.HasPrefix(p, "/") {
		return strings.TrimPrefix(path.Clean(p), "/"), true
	}
	return strings.TrimPrefix(path.Join(dir, p), "/"), true
}
