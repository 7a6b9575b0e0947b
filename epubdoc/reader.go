package epubdoc

import (
	"io"
	"mime"
	"path"
	"strings"
)

// Reader provides access to EPUB content.
type Reader struct {
	book     *book
	pkg      *Package
	baseDir  string // Directory containing OPF (for resolving relative paths)
	chapters []*Chapter
	toc      *TableOfContents
	byPath   map[string]ManifestItem
}

// Open parses the container, package document and navigation of an EPUB
// read from r. DRM-protected books are rejected with ErrDRMProtected.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	b, err := openBook(r, size)
	if err != nil {
		return nil, err
	}
	if err := b.validateMimetype(); err != nil {
		return nil, err
	}
	if err := b.checkForDRM(); err != nil {
		return nil, err
	}

	opfPath, err := b.parseContainer()
	if err != nil {
		return nil, err
	}
	pkg, baseDir, err := b.parseOPF(opfPath)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		book:    b,
		pkg:     pkg,
		baseDir: baseDir,
		byPath:  make(map[string]ManifestItem, len(pkg.Manifest)),
	}
	for _, item := range pkg.Manifest {
		if name, ok := resolve(baseDir, item.Href); ok {
			rd.byPath[name] = item
		}
	}
	rd.toc = parseNavigation(b, pkg, baseDir)
	if err := rd.loadChapters(); err != nil {
		return nil, err
	}
	return rd, nil
}

// loadChapters loads the spine documents in reading order. Spine entries
// that are missing from the manifest or the archive, and entries that are
// not (X)HTML, are skipped. Titles come from the navigation document.
func (r *Reader) loadChapters() error {
	titles := r.toc.Titles()
	r.chapters = make([]*Chapter, 0, len(r.pkg.Spine))
	for _, spineItem := range r.pkg.Spine {
		item, ok := r.pkg.Manifest[spineItem.IDRef]
		if !ok || !isHTMLMediaType(item.MediaType) {
			continue
		}
		href, ok := resolve(r.baseDir, item.Href)
		if !ok {
			continue
		}
		content, err := r.book.read(href)
		if err != nil {
			continue
		}
		r.chapters = append(r.chapters, &Chapter{
			ID:      item.ID,
			Title:   titles[href],
			Index:   len(r.chapters),
			Href:    href,
			Linear:  spineItem.Linear,
			Content: content,
		})
	}
	if len(r.chapters) == 0 {
		return ErrEmptySpine
	}
	return nil
}

func isHTMLMediaType(mt string) bool {
	switch strings.ToLower(mt) {
	case "application/xhtml+xml", "text/html", "":
		return true
	}
	return false
}

// Metadata returns the EPUB metadata.
func (r *Reader) Metadata() Metadata {
	return r.pkg.Metadata
}

// Version returns the package version attribute.
func (r *Reader) Version() string {
	return r.pkg.Version
}

// ChapterCount returns the number of chapters.
func (r *Reader) ChapterCount() int {
	return len(r.chapters)
}

// Chapters returns all chapters.
func (r *Reader) Chapters() []*Chapter {
	return r.chapters
}

// TableOfContents returns the navigation document, or a table built from
// the spine when the book has none.
func (r *Reader) TableOfContents() *TableOfContents {
	if r.toc != nil {
		return r.toc
	}
	toc := &TableOfContents{Title: r.pkg.Metadata.Title}
	for _, ch := range r.chapters {
		title := ch.Title
		if title == "" {
			title = ch.ID
		}
		toc.Entries = append(toc.Entries, TOCEntry{Title: title, Href: ch.Href})
	}
	return toc
}

// Resource reads a file referenced from the chapter at chapterHref. The
// content type comes from the manifest, falling back to the extension.
func (r *Reader) Resource(chapterHref, src string) ([]byte, string, error) {
	name, ok := resolve(path.Dir(chapterHref), src)
	if !ok {
		return nil, "", ErrMissingContent
	}
	data, err := r.book.read(name)
	if err != nil {
		return nil, "", err
	}
	ct := r.byPath[name].MediaType
	if ct == "" {
		ct = mime.TypeByExtension(path.Ext(name))
	}
	return data, ct, nil
}
