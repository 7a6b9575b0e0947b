package format

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_Names(t *testing.T) {
	for f, want := range map[Format][2]string{
		PDF:        {"PDF", ".pdf"},
		XLSX:       {"XLSX", ".xlsx"},
		EPUB:       {"EPUB", ".epub"},
		ODT:        {"ODT", ".odt"},
		Markdown:   {"Markdown", ".md"},
		Unknown:    {"Unknown", ""},
		Format(99): {"Unknown", ""},
	} {
		assert.Equal(t, want[0], f.String())
		assert.Equal(t, want[1], f.Extension(), f.String())
	}
	assert.Equal(t, []string{".xlsx", ".xlsm"}, XLSX.Extensions())
	assert.Len(t, All(), int(Audio))
}

func TestDetect(t *testing.T) {
	for name, want := range map[string]Format{
		"document.PDF": PDF,
		"sheet.xlsm":   XLSX,
		"book.epub":    EPUB,
		"letter.odt":   ODT,
		"page.htm":     HTML,
		"mail.eml":     EML,
		"data.csv":     CSV,
		"photo.JPEG":   Image,
		"talk.mp3":     Audio,
		"bundle.zip":   ZIP,
		"drawing.odg":  Unknown,
		"noextension":  Unknown,
	} {
		assert.Equal(t, want, Detect(name), name)
	}
	assert.Equal(t, DOCX, FromExtension("docx"))
}

func TestFromMIME(t *testing.T) {
	for mt, want := range map[string]Format{
		"application/pdf":                         PDF,
		"Text/HTML; charset=utf-8":                HTML,
		"application/xhtml+xml":                   HTML,
		"application/vnd.oasis.opendocument.text": ODT,
		"image/webp":                              Image,
		"audio/x-wav":                             Audio,
		"application/xml":                         XML,
		"application/x-zip-compressed":            ZIP,
		"":                                        Unknown,
		"application/x-unknown":                   Unknown,
	} {
		assert.Equal(t, want, FromMIME(mt), mt)
	}
}

func TestDetectFromMagic(t *testing.T) {
	assert.Equal(t, PDF, DetectFromMagic([]byte("%PDF-1.7\n")))
	assert.Equal(t, HTML, DetectFromMagic([]byte("  <!DOCTYPE html><html></html>")))
	assert.Equal(t, Unknown, DetectFromMagic([]byte{'P', 'K', 3, 4, 0, 0, 0, 0}), "containers need a reader")
	assert.Equal(t, Unknown, DetectFromMagic([]byte("%P")))
	assert.Equal(t, Unknown, DetectFromMagic([]byte("just words")))
}

type zipEntry struct{ name, data string }

// zipWith writes the entries in order; a mimetype entry is stored.
func zipWith(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.name == "mimetype" {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFromReader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"pdf", []byte("%PDF-1.4\n%%EOF"), PDF},
		{"html", []byte("<!DOCTYPE html>\n<html><head><title>T</title></head><body></body></html>"), HTML},
		{"text", []byte("Hello, World! This is plain text."), Unknown},
		{"plain zip", zipWith(t, zipEntry{"a.txt", "a"}), ZIP},
		{"docx", zipWith(t, zipEntry{"[Content_Types].xml", "<Types/>"}, zipEntry{"word/document.xml", "<w:document/>"}), DOCX},
		{"xlsx", zipWith(t, zipEntry{"xl/workbook.xml", "<workbook/>"}), XLSX},
		{"pptx", zipWith(t, zipEntry{"ppt/presentation.xml", "<p/>"}), PPTX},
		{"epub", zipWith(t, zipEntry{"mimetype", "application/epub+zip"}, zipEntry{"META-INF/container.xml", "<container/>"}), EPUB},
		{"odt", zipWith(t, zipEntry{"mimetype", ODT.MIME()}, zipEntry{"content.xml", "<office:document-content/>"}), ODT},
		{"unknown mimetype", zipWith(t, zipEntry{"mimetype", "application/x-other"}, zipEntry{"a.txt", "a"}), ZIP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFromReader(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
