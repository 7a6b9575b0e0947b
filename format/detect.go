package format

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectFromMagic checks leading magic bytes. ZIP containers and plain text
// return Unknown; use DetectFromReader to look inside them.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}
	m := mimetype.Detect(data)
	if m.Is("application/zip") || m.Is("text/plain") || m.Is("application/octet-stream") {
		return Unknown
	}
	return fromDetected(m)
}

func fromDetected(m *mimetype.MIME) Format {
	for ; m != nil; m = m.Parent() {
		if f := FromMIME(m.String()); f != Unknown {
			return f
		}
	}
	return Unknown
}

// DetectFromReader inspects the content to determine format. It can
// distinguish the ZIP-based formats (DOCX, XLSX, PPTX, EPUB, ODT).
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	m, err := mimetype.DetectReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return Unknown, err
	}
	if m.Is("application/zip") {
		f, err := detectZIPFormat(r, size)
		if err != nil || f == Unknown {
			return ZIP, nil
		}
		return f, nil
	}
	if m.Is("text/plain") || m.Is("application/octet-stream") {
		return Unknown, nil
	}
	return fromDetected(m), nil
}

// zipPrefixes maps the top-level directory of an OOXML package to its
// format.
var zipPrefixes = []struct {
	dir string
	f   Format
}{
	{"word/", DOCX},
	{"xl/", XLSX},
	{"ppt/", PPTX},
}

// detectZIPFormat looks inside a ZIP archive. EPUB and OpenDocument name
// their media type in a "mimetype" entry, which wins over OOXML
// directories.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}
	found := Unknown
	for _, f := range zr.File {
		if f.Name == "mimetype" {
			if mf := mimetypeEntry(f); mf != Unknown {
				return mf, nil
			}
			continue
		}
		if found != Unknown {
			continue
		}
		for _, p := range zipPrefixes {
			if strings.HasPrefix(f.Name, p.dir) {
				found = p.f
				break
			}
		}
	}
	return found, nil
}

func mimetypeEntry(f *zip.File) Format {
	rc, err := f.Open()
	if err != nil {
		return Unknown
	}
	defer rc.Close()
	data, _ := io.ReadAll(io.LimitReader(rc, 256))
	switch strings.TrimSpace(string(data)) {
	case EPUB.MIME():
		return EPUB
	case ODT.MIME():
		return ODT
	}
	return Unknown
}
