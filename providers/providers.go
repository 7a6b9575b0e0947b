// Package providers declares the external analysis services a conversion can
// call: document intelligence (layout analysis and OCR over whole documents),
// image understanding (captions and OCR for single images) and media
// transcription.
//
// All three are best-effort. A nil provider, a nil result, an empty result
// and an error all mean "unavailable" to callers, which continue with
// whatever content they already have.
package providers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/markitdown/model"
)

// DocumentIntelligence analyzes a whole document.
type DocumentIntelligence interface {
	Analyze(ctx context.Context, r io.ReadSeeker, info model.StreamInfo, req AnalyzeRequest) (*DocumentAnalysis, error)
}

// AnalyzeRequest carries per-call options for a DocumentIntelligence call.
type AnalyzeRequest struct {
	// Pages restricts analysis to the listed one-based page numbers. Empty
	// means all pages.
	Pages []int

	// Locale is a hint for OCR, such as "en-US".
	Locale string

	// IncludeImages asks the provider to return cropped figures.
	IncludeImages bool
}

// DocumentAnalysis is the result of a DocumentIntelligence call.
type DocumentAnalysis struct {
	Pages  []AnalyzedPage
	Tables []AnalyzedTable
	Images []AnalyzedImage
}

// Empty reports whether the analysis carries nothing to convert. Pages
// count only when numbered and holding non-blank text; a table with a
// non-blank cell or an image with data also makes the analysis usable.
func (d *DocumentAnalysis) Empty() bool {
	if d == nil {
		return true
	}
	for _, p := range d.Pages {
		if p.Number > 0 && strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	for _, t := range d.Tables {
		for _, row := range t.Rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					return false
				}
			}
		}
	}
	for _, img := range d.Images {
		if len(img.Data) > 0 {
			return false
		}
	}
	return true
}

// AnalyzedPage is the text of one page. Text may contain TableAnchor markers
// naming the position of a table on the page.
type AnalyzedPage struct {
	Number       int
	Text         string
	TableIndices []int
}

// AnalyzedTable is one table fragment as seen by the provider.
type AnalyzedTable struct {
	Rows [][]string

	// Page is the page the fragment sits on, 0 if unknown.
	Page int

	// Continues marks a fragment that carries on the previous table
	// across a page boundary.
	Continues bool

	// SplitRow marks a continuation whose first row finishes the previous
	// fragment's last row.
	SplitRow bool

	Metadata map[string]string
}

// AnalyzedImage is a figure found by the provider.
type AnalyzedImage struct {
	Page        int
	Data        []byte
	ContentType string
	Caption     string
}

// TableAnchor returns the marker a provider writes into page text at the
// position of table index i.
func TableAnchor(i int) string {
	return "[[table:" + strconv.Itoa(i) + "]]"
}

// ImageUnderstanding describes or reads a single image.
type ImageUnderstanding interface {
	Describe(ctx context.Context, data []byte, info model.StreamInfo) (*ImageDescription, error)
}

// ImageDescription is the result of an ImageUnderstanding call.
type ImageDescription struct {
	Caption string
	Text    string
}

// Empty reports whether the description carries nothing.
func (d *ImageDescription) Empty() bool {
	return d == nil || (d.Caption == "" && d.Text == "")
}

// MediaTranscription turns audio or video into text.
type MediaTranscription interface {
	Transcribe(ctx context.Context, data []byte, info model.StreamInfo) (*Transcript, error)
}

// Transcript is the result of a MediaTranscription call. Segments are
// optional; Text always holds the full transcript.
type Transcript struct {
	Text     string
	Segments []TranscriptSegment
}

// TranscriptSegment is a timed span of a transcript.
type TranscriptSegment struct {
	Start, End float64
	Text       string
}

// DocumentIntelligenceFunc adapts a function to DocumentIntelligence.
type DocumentIntelligenceFunc func(ctx context.Context, r io.ReadSeeker, info model.StreamInfo, req AnalyzeRequest) (*DocumentAnalysis, error)

// Analyze calls f.
func (f DocumentIntelligenceFunc) Analyze(ctx context.Context, r io.ReadSeeker, info model.StreamInfo, req AnalyzeRequest) (*DocumentAnalysis, error) {
	return f(ctx, r, info, req)
}

// ImageUnderstandingFunc adapts a function to ImageUnderstanding.
type ImageUnderstandingFunc func(ctx context.Context, data []byte, info model.StreamInfo) (*ImageDescription, error)

// Describe calls f.
func (f ImageUnderstandingFunc) Describe(ctx context.Context, data []byte, info model.StreamInfo) (*ImageDescription, error) {
	return f(ctx, data, info)
}

// MediaTranscriptionFunc adapts a function to MediaTranscription.
type MediaTranscriptionFunc func(ctx context.Context, data []byte, info model.StreamInfo) (*Transcript, error)

// Transcribe calls f.
func (f MediaTranscriptionFunc) Transcribe(ctx context.Context, data []byte, info model.StreamInfo) (*Transcript, error) {
	return f(ctx, data, info)
}
