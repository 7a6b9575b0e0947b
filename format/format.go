// Package format identifies document formats from file names, declared MIME
// types and content, and turns that evidence into the ordered list of
// candidate stream descriptors a conversion is attempted with.
package format

import (
	"path/filepath"
	"strings"

	"github.com/tsawler/markitdown/model"
)

// Format represents a recognized document format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	PDF
	DOCX
	XLSX
	PPTX
	EPUB
	ODT
	HTML
	EML
	ZIP
	CSV
	JSON
	XML
	Markdown
	Text
	Image
	Audio
)

type formatInfo struct {
	name       string
	mime       string
	extensions []string
}

var formats = map[Format]formatInfo{
	PDF:      {"PDF", "application/pdf", []string{".pdf"}},
	DOCX:     {"DOCX", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []string{".docx"}},
	XLSX:     {"XLSX", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []string{".xlsx", ".xlsm"}},
	PPTX:     {"PPTX", "application/vnd.openxmlformats-officedocument.presentationml.presentation", []string{".pptx"}},
	EPUB:     {"EPUB", "application/epub+zip", []string{".epub"}},
	ODT:      {"ODT", "application/vnd.oasis.opendocument.text", []string{".odt"}},
	HTML:     {"HTML", "text/html", []string{".html", ".htm", ".xhtml"}},
	EML:      {"EML", "message/rfc822", []string{".eml"}},
	ZIP:      {"ZIP", "application/zip", []string{".zip"}},
	CSV:      {"CSV", "text/csv", []string{".csv"}},
	JSON:     {"JSON", "application/json", []string{".json", ".jsonl"}},
	XML:      {"XML", "text/xml", []string{".xml"}},
	Markdown: {"Markdown", "text/markdown", []string{".md", ".markdown"}},
	Text:     {"Text", "text/plain", []string{".txt", ".text", ".log"}},
	Image:    {"Image", "image/png", []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}},
	Audio:    {"Audio", "audio/mpeg", []string{".mp3", ".wav", ".m4a", ".ogg", ".flac"}},
}

// All returns every known format in declaration order.
func All() []Format {
	out := make([]Format, 0, len(formats))
	for f := PDF; f <= Audio; f++ {
		out = append(out, f)
	}
	return out
}

// String returns the string representation of the format.
func (f Format) String() string {
	if fi, ok := formats[f]; ok {
		return fi.name
	}
	return "Unknown"
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	if fi, ok := formats[f]; ok {
		return fi.extensions[0]
	}
	return ""
}

// Extensions returns every extension mapped to the format.
func (f Format) Extensions() []string {
	return append([]string(nil), formats[f].extensions...)
}

// MIME returns the canonical MIME type of the format.
func (f Format) MIME() string {
	return formats[f].mime
}

// Info returns a descriptor carrying the format's MIME type and extension.
func (f Format) Info() model.StreamInfo {
	return model.StreamInfo{MIMEType: f.MIME(), Extension: f.Extension()}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	return FromExtension(filepath.Ext(filename))
}

// FromExtension maps an extension, with or without the leading dot.
func FromExtension(ext string) Format {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for f := PDF; f <= Audio; f++ {
		for _, e := range formats[f].extensions {
			if e == ext {
				return f
			}
		}
	}
	return Unknown
}

// FromMIME maps a MIME type. Any image/* or audio/* type maps to Image or
// Audio.
func FromMIME(mt string) Format {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "":
		return Unknown
	case strings.HasPrefix(mt, "image/"):
		return Image
	case strings.HasPrefix(mt, "audio/"):
		return Audio
	case mt == "application/xhtml+xml":
		return HTML
	case mt == "application/xml":
		return XML
	case mt == "application/x-zip-compressed":
		return ZIP
	}
	for f := PDF; f <= Audio; f++ {
		if formats[f].mime == mt {
			return f
		}
	}
	return Unknown
}

// FromInfo maps a descriptor, preferring its MIME type over its extension.
func FromInfo(info model.StreamInfo) Format {
	if f := FromMIME(info.MIMEType); f != Unknown {
		return f
	}
	if f := FromExtension(info.Extension); f != Unknown {
		return f
	}
	return Detect(info.Filename)
}
