package pdf

import (
	"strconv"
	"strings"
	"unicode"
)

// Thresholds below which an embedded text layer is treated as unusable.
const (
	MinCharsPerPage   = 50
	MinPrintableRatio = 0.85
)

// Quality describes how usable an embedded text layer is.
type Quality struct {
	Pages          int
	Chars          int
	CharsPerPage   float64
	PrintableRatio float64
	WordlikeRatio  float64
	HasImages      bool
}

// Score measures the text extracted from pages. hasImages reports whether
// the document carries image streams.
func Score(pages []string, hasImages bool) Quality {
	q := Quality{Pages: len(pages), HasImages: hasImages}
	var all strings.Builder
	for _, p := range pages {
		q.Chars += len([]rune(strings.TrimSpace(p)))
		all.WriteString(p)
		all.WriteByte('\n')
	}
	if q.Pages > 0 {
		q.CharsPerPage = float64(q.Chars) / float64(q.Pages)
	}
	text := all.String()
	q.PrintableRatio = printableRatio(text)
	q.WordlikeRatio = wordlikeRatio(text)
	return q
}

// NeedsOCR reports whether the text layer is missing, sparse on a document
// with images, or mostly garbage.
func (q Quality) NeedsOCR() bool {
	if q.Chars == 0 {
		return true
	}
	return (q.CharsPerPage < MinCharsPerPage && q.HasImages) || q.PrintableRatio < MinPrintableRatio
}

// Metadata renders the scores for result metadata.
func (q Quality) Metadata() map[string]string {
	return map[string]string{
		"chars_per_page":  strconv.FormatFloat(q.CharsPerPage, 'f', 1, 64),
		"printable_ratio": strconv.FormatFloat(q.PrintableRatio, 'f', 3, 64),
		"wordlike_ratio":  strconv.FormatFloat(q.WordlikeRatio, 'f', 3, 64),
	}
}

func printableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if garbage(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(printable) / float64(total)
}

// garbage reports private use code points, the replacement character and
// control characters other than whitespace.
func garbage(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == unicode.ReplacementChar:
		return true
	case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n := 0
	for _, f := range fields {
		if l := len([]rune(f)); l >= 2 && l <= 15 {
			n++
		}
	}
	return float64(n) / float64(len(fields))
}
