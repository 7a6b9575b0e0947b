// Package images turns extracted image bytes into ImageArtifacts with a
// Markdown placeholder.
//
// A [Pipeline] optionally enriches each artifact through an image
// understanding provider, then builds its placeholder exactly once: an
// inline data URI by default, or a reference returned by a
// [storage.Store] when one is configured. Enrichment never fails a
// conversion; only cancellation is reported to the caller.
//
// [Converter] handles standalone image files with the same pipeline.
package images
