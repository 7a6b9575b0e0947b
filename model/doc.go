// Package model provides the intermediate representation produced by every
// converter before Markdown composition.
//
// All extraction operations ultimately produce these types, making them the
// primary API for consuming converted content beyond the final Markdown.
//
// # Segments
//
// A [Segment] is an ordered, addressable unit of output: a page, slide,
// sheet, table, image, section, audio span, or metadata block. Segments are
// immutable once constructed; their position in the owning slice is the only
// ordering signal:
//
//	seg, err := model.NewSegment("# Title", model.KindPage,
//	    model.WithNumber(1),
//	    model.WithLabel("Page 1"))
//
// # Artifacts
//
// [ConversionArtifacts] carries the raw extraction results (text blocks,
// table matrices, image bytes) produced alongside segments. A [TableArtifact]
// or [ImageArtifact] refers back to its segment by index only, set once via
// SetSegmentIndex.
//
// # Streams
//
// Converters read from a [Stream] (seekable and random access) described by a
// [StreamInfo] carrying MIME type, extension, filename, charset and URL hints.
package model
