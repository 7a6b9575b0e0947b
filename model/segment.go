package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrInvalidSegment is returned when a segment is constructed with invalid
// required fields.
var ErrInvalidSegment = errors.New("model: invalid segment")

// SegmentKind identifies what a segment represents in the source document.
type SegmentKind int

const (
	KindPage SegmentKind = iota
	KindSlide
	KindSheet
	KindTable
	KindImage
	KindSection
	KindAudio
	KindMetadata
)

// String returns the lower-case name of the kind.
func (k SegmentKind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindSlide:
		return "slide"
	case KindSheet:
		return "sheet"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	case KindSection:
		return "section"
	case KindAudio:
		return "audio"
	case KindMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the declared kinds.
func (k SegmentKind) Valid() bool {
	return k >= KindPage && k <= KindMetadata
}

// MarshalText implements encoding.TextMarshaler.
func (k SegmentKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidSegment, int(k))
	}
	return []byte(k.String()), nil
}

// Segment is an immutable unit of composed output.
type Segment struct {
	markdown string
	kind     SegmentKind
	number   int
	hasNum   bool
	label    string
	start    time.Duration
	end      time.Duration
	timed    bool
	source   string
	metadata map[string]string
}

// SegmentOption sets an optional attribute during construction.
type SegmentOption func(*Segment)

// WithNumber sets the sequence number (page, slide, sheet index...).
func WithNumber(n int) SegmentOption {
	return func(s *Segment) {
		s.number = n
		s.hasNum = true
	}
}

// WithLabel sets the human readable label.
func WithLabel(label string) SegmentOption {
	return func(s *Segment) { s.label = label }
}

// WithTimeRange sets start and end offsets for timed media.
func WithTimeRange(start, end time.Duration) SegmentOption {
	return func(s *Segment) {
		s.start = start
		s.end = end
		s.timed = true
	}
}

// WithSource sets the source identifier (file name, archive entry, part name).
func WithSource(source string) SegmentOption {
	return func(s *Segment) { s.source = source }
}

// WithMetadata merges entries into the segment metadata.
func WithMetadata(md map[string]string) SegmentOption {
	return func(s *Segment) {
		if len(md) == 0 {
			return
		}
		if s.metadata == nil {
			s.metadata = make(map[string]string, len(md))
		}
		maps.Copy(s.metadata, md)
	}
}

// NewSegment builds a segment, rejecting invalid kinds, negative sequence
// numbers and inverted time ranges.
func NewSegment(markdown string, kind SegmentKind, opts ...SegmentOption) (Segment, error) {
	s := Segment{markdown: markdown, kind: kind}
	for _, opt := range opts {
		opt(&s)
	}
	if !kind.Valid() {
		return Segment{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidSegment, int(kind))
	}
	if s.hasNum && s.number < 0 {
		return Segment{}, fmt.Errorf("%w: negative number %d", ErrInvalidSegment, s.number)
	}
	if s.timed && (s.start < 0 || s.end < s.start) {
		return Segment{}, fmt.Errorf("%w: invalid time range %s-%s", ErrInvalidSegment, s.start, s.end)
	}
	return s, nil
}

// MustSegment is like NewSegment but panics on error. It is intended for
// literals in tests and for callers that construct known-good values.
func MustSegment(markdown string, kind SegmentKind, opts ...SegmentOption) Segment {
	s, err := NewSegment(markdown, kind, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Segment) Markdown() string  { return s.markdown }
func (s Segment) Kind() SegmentKind { return s.kind }
func (s Segment) Label() string     { return s.label }
func (s Segment) Source() string    { return s.source }

// Number returns the sequence number and whether one was set.
func (s Segment) Number() (int, bool) { return s.number, s.hasNum }

// TimeRange returns the start and end offsets and whether the segment is timed.
func (s Segment) TimeRange() (start, end time.Duration, ok bool) {
	return s.start, s.end, s.timed
}

// Metadata returns a copy of the metadata map.
func (s Segment) Metadata() map[string]string {
	if len(s.metadata) == 0 {
		return map[string]string{}
	}
	return maps.Clone(s.metadata)
}

// MetadataValue returns one metadata entry.
func (s Segment) MetadataValue(key string) (string, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// Equal reports whether two segments carry identical values.
func (s Segment) Equal(o Segment) bool {
	return s.markdown == o.markdown &&
		s.kind == o.kind &&
		s.number == o.number && s.hasNum == o.hasNum &&
		s.label == o.label &&
		s.start == o.start && s.end == o.end && s.timed == o.timed &&
		s.source == o.source &&
		maps.Equal(s.metadata, o.metadata)
}

type segmentJSON struct {
	Markdown string            `json:"markdown"`
	Kind     SegmentKind       `json:"kind"`
	Number   *int              `json:"number,omitempty"`
	Label    string            `json:"label,omitempty"`
	Start    *float64          `json:"start_seconds,omitempty"`
	End      *float64          `json:"end_seconds,omitempty"`
	Source   string            `json:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Segment) MarshalJSON() ([]byte, error) {
	out := segmentJSON{
		Markdown: s.markdown,
		Kind:     s.kind,
		Label:    s.label,
		Source:   s.source,
		Metadata: s.metadata,
	}
	if s.hasNum {
		n := s.number
		out.Number = &n
	}
	if s.timed {
		start, end := s.start.Seconds(), s.end.Seconds()
		out.Start, out.End = &start, &end
	}
	return json.Marshal(out)
}
