package model

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Stream is the input handed to converters. Both *bytes.Reader and *os.File
// satisfy it.
type Stream interface {
	io.Reader
	io.Seeker
	io.ReaderAt
}

// StreamSize returns the total length of s, restoring the current offset.
func StreamSize(s io.Seeker) (int64, error) {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

// StreamInfo describes an input. All fields are optional hints.
type StreamInfo struct {
	MIMEType  string `json:"mime_type,omitempty"`
	Extension string `json:"extension,omitempty"` // lower case, with leading dot
	Filename  string `json:"filename,omitempty"`
	Charset   string `json:"charset,omitempty"`
	URL       string `json:"url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
}

// Normalize fills derivable fields: extension from filename, MIME type from
// extension, and lower-cases both.
func (s StreamInfo) Normalize() StreamInfo {
	if s.Extension == "" {
		name := s.Filename
		if name == "" {
			name = s.LocalPath
		}
		s.Extension = filepath.Ext(name)
	}
	if s.Extension != "" && !strings.HasPrefix(s.Extension, ".") {
		s.Extension = "." + s.Extension
	}
	s.Extension = strings.ToLower(s.Extension)
	if s.MIMEType == "" && s.Extension != "" {
		s.MIMEType = mime.TypeByExtension(s.Extension)
	}
	if s.MIMEType != "" {
		mt, params, err := mime.ParseMediaType(s.MIMEType)
		if err == nil {
			s.MIMEType = mt
			if s.Charset == "" {
				s.Charset = params["charset"]
			}
		}
	}
	s.MIMEType = strings.ToLower(s.MIMEType)
	s.Charset = strings.ToLower(s.Charset)
	return s
}

// BaseMIME returns the MIME type without parameters.
func (s StreamInfo) BaseMIME() string {
	mt, _, _ := strings.Cut(s.MIMEType, ";")
	return strings.TrimSpace(strings.ToLower(mt))
}

// Name returns the most specific human name for the input.
func (s StreamInfo) Name() string {
	switch {
	case s.Filename != "":
		return filepath.Base(s.Filename)
	case s.LocalPath != "":
		return filepath.Base(s.LocalPath)
	case s.URL != "":
		return s.URL
	default:
		return ""
	}
}

// HasExtension reports whether the extension matches any of exts.
func (s StreamInfo) HasExtension(exts ...string) bool {
	for _, e := range exts {
		if strings.EqualFold(s.Extension, e) {
			return true
		}
	}
	return false
}

// HasMIMEPrefix reports whether the base MIME type starts with any prefix.
func (s StreamInfo) HasMIMEPrefix(prefixes ...string) bool {
	mt := s.BaseMIME()
	if mt == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(mt, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// String renders the info for error messages.
func (s StreamInfo) String() string {
	var parts []string
	if s.MIMEType != "" {
		parts = append(parts, "mime="+s.MIMEType)
	}
	if s.Extension != "" {
		parts = append(parts, "ext="+s.Extension)
	}
	if s.Filename != "" {
		parts = append(parts, "filename="+s.Filename)
	}
	if s.Charset != "" {
		parts = append(parts, "charset="+s.Charset)
	}
	if s.URL != "" {
		parts = append(parts, "url="+s.URL)
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}
