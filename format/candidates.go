package format

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tsawler/markitdown/model"
)

// Sniff returns a descriptor built from the stream content alone. The
// stream position is restored.
func Sniff(s model.Stream) (model.StreamInfo, error) {
	size, err := model.StreamSize(s)
	if err != nil {
		return model.StreamInfo{}, err
	}
	m, err := mimetype.DetectReader(io.NewSectionReader(s, 0, size))
	if err != nil {
		return model.StreamInfo{}, err
	}

	info := model.StreamInfo{MIMEType: m.String(), Extension: m.Extension()}
	if m.Is("application/zip") {
		if f, err := detectZIPFormat(s, size); err == nil && f != Unknown {
			info = f.Info()
		}
	}
	if mt, params, err := mime.ParseMediaType(info.MIMEType); err == nil {
		info.MIMEType = mt
		info.Charset = strings.ToLower(params["charset"])
	}
	return info, nil
}

// weak reports whether a sniffed type says nothing beyond "some bytes" or
// "some text".
func weak(mt string) bool {
	return mt == "" || mt == "text/plain" || mt == "application/octet-stream"
}

// compatible reports whether the sniffed type agrees with the declared one,
// either directly or because the sniffed type is a container the declared
// type is built on, such as ZIP under DOCX.
func compatible(declared, sniffed model.StreamInfo) bool {
	if declared.BaseMIME() == "" && declared.Extension == "" {
		return true
	}
	if declared.BaseMIME() == sniffed.BaseMIME() {
		return true
	}
	if declared.Extension != "" && declared.Extension == sniffed.Extension {
		return true
	}
	if FromInfo(declared) != Unknown && FromInfo(declared) == FromInfo(sniffed) {
		return true
	}
	for d := mimetype.Lookup(declared.BaseMIME()); d != nil; d = d.Parent() {
		if d.Is(sniffed.BaseMIME()) {
			return true
		}
	}
	if f := FromExtension(declared.Extension); f != Unknown {
		for d := mimetype.Lookup(f.MIME()); d != nil; d = d.Parent() {
			if d.Is(sniffed.BaseMIME()) {
				return true
			}
		}
	}
	return false
}

// fill copies empty fields of dst from src.
func fill(dst, src model.StreamInfo) model.StreamInfo {
	if dst.MIMEType == "" {
		dst.MIMEType = src.MIMEType
	}
	if dst.Extension == "" {
		dst.Extension = src.Extension
	}
	if dst.Charset == "" {
		dst.Charset = src.Charset
	}
	if dst.Filename == "" {
		dst.Filename = src.Filename
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.LocalPath == "" {
		dst.LocalPath = src.LocalPath
	}
	return dst
}

// Candidates returns the descriptors a conversion should try, most
// confident first. When the content agrees with the declared descriptor, or
// says too little to contradict it, the result is the declared descriptor
// completed from the content. Otherwise the content-derived descriptor comes
// first and the declared one second. The stream position is restored.
func Candidates(s model.Stream, declared model.StreamInfo) ([]model.StreamInfo, error) {
	declared = declared.Normalize()
	sniffed, err := Sniff(s)
	if err != nil {
		return nil, err
	}

	if weak(sniffed.BaseMIME()) || compatible(declared, sniffed) {
		merged := declared
		if weak(sniffed.BaseMIME()) {
			merged.Charset = fill(merged, sniffed).Charset
		} else {
			if f := FromExtension(declared.Extension); merged.MIMEType == "" && f != Unknown {
				merged.MIMEType = f.MIME()
			}
			merged = fill(merged, sniffed)
		}
		if merged.MIMEType == "" && merged.Extension == "" {
			merged = fill(merged, sniffed)
		}
		return []model.StreamInfo{merged}, nil
	}

	guessed := sniffed
	guessed.Filename = declared.Filename
	guessed.URL = declared.URL
	guessed.LocalPath = declared.LocalPath
	if guessed.Charset == "" {
		guessed.Charset = declared.Charset
	}
	return []model.StreamInfo{guessed, declared}, nil
}
