package model

import "strconv"

// Metadata keys set on every finalized Result.
const (
	MetaPageCount    = "page_count"
	MetaSegmentCount = "segment_count"
	MetaImageCount   = "image_count"
	MetaTableCount   = "table_count"
	MetaTitleHint    = "title_hint"
	MetaWorkspace    = "workspace"
	MetaConverter    = "converter"
)

// Result is the output of a conversion. Converters fill Segments, Artifacts,
// Title and RawText; the engine composes Markdown and the count metadata.
type Result struct {
	Markdown  string
	Title     string
	Segments  []Segment
	Artifacts *ConversionArtifacts
	Metadata  map[string]string

	// RawText is the concatenated unformatted text used for title inference.
	RawText string
}

// NewResult returns an empty result with initialized containers.
func NewResult() *Result {
	return &Result{
		Artifacts: NewConversionArtifacts(),
		Metadata:  make(map[string]string),
	}
}

// AddSegment appends seg and returns its index.
func (r *Result) AddSegment(seg Segment) int {
	r.Segments = append(r.Segments, seg)
	return len(r.Segments) - 1
}

// SetMeta records a metadata entry, skipping empty values.
func (r *Result) SetMeta(key, value string) {
	if value == "" {
		return
	}
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// SetCount records an integer metadata entry.
func (r *Result) SetCount(key string, n int) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = strconv.Itoa(n)
}

// CountKind returns how many segments are of kind k.
func (r *Result) CountKind(k SegmentKind) int {
	n := 0
	for _, s := range r.Segments {
		if s.Kind() == k {
			n++
		}
	}
	return n
}
