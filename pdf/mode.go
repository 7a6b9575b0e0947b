package pdf

import (
	"fmt"
	"strings"
)

// Mode selects which extraction strategies a conversion may use.
type Mode int

const (
	// ModeAuto tries document intelligence, then the embedded text layer,
	// then page rasterization with OCR.
	ModeAuto Mode = iota

	// ModeIntelligence uses document intelligence and falls back to the
	// embedded text layer only.
	ModeIntelligence

	// ModeEmbedded reads the embedded text layer and images only.
	ModeEmbedded

	// ModeImageOnly rasterizes every page and reads it through the image
	// pipeline.
	ModeImageOnly
)

var modeNames = map[Mode]string{
	ModeAuto:         "auto",
	ModeIntelligence: "intelligence",
	ModeEmbedded:     "embedded",
	ModeImageOnly:    "image-only",
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name as written by String. Underscores are
// accepted in place of hyphens.
func ParseMode(s string) (Mode, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if s == "" {
		return ModeAuto, nil
	}
	for m, n := range modeNames {
		if n == s {
			return m, nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown pdf mode %q", s)
}
