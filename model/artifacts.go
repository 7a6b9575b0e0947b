package model

import (
	"errors"
	"maps"
)

// Artifact back-reference and placeholder errors.
var (
	ErrBackReferenceSet = errors.New("model: segment index already set")
	ErrPlaceholderSet   = errors.New("model: placeholder already set")
)

// noSegment marks an artifact not yet bound to a segment.
const noSegment = -1

// ConversionArtifacts holds raw extraction results gathered during one
// conversion. Artifacts are not owned by segments.
type ConversionArtifacts struct {
	TextBlocks []TextBlock
	Tables     []*TableArtifact
	Images     []*ImageArtifact
	Metadata   map[string]string
}

// NewConversionArtifacts returns an empty container.
func NewConversionArtifacts() *ConversionArtifacts {
	return &ConversionArtifacts{Metadata: make(map[string]string)}
}

// Merge appends other's collections to a and copies metadata keys absent in a.
func (a *ConversionArtifacts) Merge(other *ConversionArtifacts) {
	if other == nil {
		return
	}
	a.TextBlocks = append(a.TextBlocks, other.TextBlocks...)
	a.Tables = append(a.Tables, other.Tables...)
	a.Images = append(a.Images, other.Images...)
	if a.Metadata == nil {
		a.Metadata = make(map[string]string, len(other.Metadata))
	}
	for k, v := range other.Metadata {
		if _, ok := a.Metadata[k]; !ok {
			a.Metadata[k] = v
		}
	}
}

// TextBlock is a run of raw text attributed to a page or part.
type TextBlock struct {
	Text       string
	PageNumber int
	Source     string
}

// TableArtifact is a rectangular cell matrix. Rows are normalized before
// storage; cell text is stored unescaped.
type TableArtifact struct {
	Rows       [][]string
	PageNumber int
	Source     string
	Label      string
	Metadata   map[string]string

	segmentIndex int
}

// NewTableArtifact builds a table artifact with an unset back-reference.
func NewTableArtifact(rows [][]string, page int) *TableArtifact {
	return &TableArtifact{
		Rows:         rows,
		PageNumber:   page,
		Metadata:     make(map[string]string),
		segmentIndex: noSegment,
	}
}

// SegmentIndex returns the index of the owning segment, or -1 when unset.
func (t *TableArtifact) SegmentIndex() int { return t.segmentIndex }

// SetSegmentIndex binds the table to a segment. It fails if already bound.
func (t *TableArtifact) SetSegmentIndex(i int) error {
	if t.segmentIndex != noSegment {
		return ErrBackReferenceSet
	}
	t.segmentIndex = i
	return nil
}

// ColCount returns the width of the first row.
func (t *TableArtifact) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// ImageArtifact holds one extracted image and its enrichment state.
type ImageArtifact struct {
	Data        []byte
	ContentType string
	PageNumber  int
	Source      string
	Label       string
	RawText     string // OCR text, if any
	Caption     string
	Metadata    map[string]string

	placeholder  string
	segmentIndex int
}

// NewImageArtifact builds an image artifact with an unset back-reference.
func NewImageArtifact(data []byte, contentType string, page int) *ImageArtifact {
	return &ImageArtifact{
		Data:         data,
		ContentType:  contentType,
		PageNumber:   page,
		Metadata:     make(map[string]string),
		segmentIndex: noSegment,
	}
}

// Placeholder returns the Markdown placeholder, empty until set.
func (i *ImageArtifact) Placeholder() string { return i.placeholder }

// HasPlaceholder reports whether the placeholder was built.
func (i *ImageArtifact) HasPlaceholder() bool { return i.placeholder != "" }

// SetPlaceholder stores the placeholder Markdown. It may be called once.
func (i *ImageArtifact) SetPlaceholder(md string) error {
	if i.placeholder != "" {
		return ErrPlaceholderSet
	}
	i.placeholder = md
	return nil
}

// SegmentIndex returns the index of the owning segment, or -1 when unset.
func (i *ImageArtifact) SegmentIndex() int { return i.segmentIndex }

// SetSegmentIndex binds the image to a segment. It fails if already bound.
func (i *ImageArtifact) SetSegmentIndex(idx int) error {
	if i.segmentIndex != noSegment {
		return ErrBackReferenceSet
	}
	i.segmentIndex = idx
	return nil
}

// MergeMetadata copies md into the artifact metadata, overwriting keys.
func (i *ImageArtifact) MergeMetadata(md map[string]string) {
	if len(md) == 0 {
		return
	}
	if i.Metadata == nil {
		i.Metadata = make(map[string]string, len(md))
	}
	maps.Copy(i.Metadata, md)
}

// Adopt appends copies of other's text blocks, tables and images, bound to
// the segment at idx. Each copy's Source is prefixed with prefix and a
// slash. Metadata is not copied. Used when a nested conversion is folded
// into a single segment of the outer result.
func (a *ConversionArtifacts) Adopt(other *ConversionArtifacts, idx int, prefix string) {
	if other == nil {
		return
	}
	join := func(src string) string {
		switch {
		case prefix == "":
			return src
		case src == "":
			return prefix
		default:
			return prefix + "/" + src
		}
	}
	for _, b := range other.TextBlocks {
		b.Source = join(b.Source)
		a.TextBlocks = append(a.TextBlocks, b)
	}
	for _, t := range other.Tables {
		cp := *t
		cp.Source = join(t.Source)
		cp.Metadata = maps.Clone(t.Metadata)
		cp.segmentIndex = idx
		a.Tables = append(a.Tables, &cp)
	}
	for _, img := range other.Images {
		cp := *img
		cp.Source = join(img.Source)
		cp.Metadata = maps.Clone(img.Metadata)
		cp.segmentIndex = idx
		a.Images = append(a.Images, &cp)
	}
}
