// Package tables reconciles ragged, merged and page-split tabular data into
// clean rectangular matrices suitable for Markdown rendering.
//
// # Span Expansion
//
// OOXML tables declare horizontal spans (gridSpan) and vertical merge
// continuations (vMerge, hMerge). [Expand] lays such rows onto a logical grid:
//
//	rows := []tables.Row{
//	    {{Text: "Region", ColSpan: 2}, {Text: "Total"}},
//	    {{Text: "North"}, {Text: "Q1"}, {Text: "10"}},
//	    {{VMerge: true}, {Text: "Q2"}, {Text: "12"}},
//	}
//	matrix := tables.Expand(rows, 0)
//
// # Value Propagation
//
// [Propagate] fills blank data cells with the nearest non-blank value above
// them in the same column, starting at row 1 (the header row is never
// filled). It is used for vertical merges and for tables continued across
// pages.
//
// # Normalization
//
// [Normalize] pads rows to a common width and trims leading and trailing
// blank rows and unused trailing columns. An empty table normalizes to nil.
//
// # Page Continuations
//
// [MergeFragments] joins table fragments reported on consecutive pages into
// one table and records the page range. Blank cells in the joined rows take
// the nearest value above; a fragment flagged as a split row is stitched
// onto the row the page boundary cut.
//
// Escaping for Markdown syntax happens only in [Markdown]; stored matrices
// keep the original cell text.
package tables
