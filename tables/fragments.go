package tables

import (
	"fmt"
	"maps"
	"strings"
)

// MetaPageRange is the metadata key holding "first-last" for tables that
// span more than one page.
const MetaPageRange = "page_range"

// Fragment is part of a table as reported on one page.
type Fragment struct {
	Rows [][]string
	Page int

	// Continues marks a fragment that carries on the previous fragment's
	// table rather than starting a new one.
	Continues bool

	// SplitRow marks a continuation whose first row is the remainder of
	// the previous fragment's last row, cut by the page boundary.
	SplitRow bool

	Metadata map[string]string
}

// Merged is a table reassembled from one or more fragments.
type Merged struct {
	Rows      [][]string
	FirstPage int
	LastPage  int
	Metadata  map[string]string

	// Fragments lists the indices of the input fragments folded into this
	// table, in order.
	Fragments []int
}

// MultiPage reports whether the table spans more than one page.
func (m Merged) MultiPage() bool { return m.LastPage > m.FirstPage }

// PageRange returns "first-last", or the single page number.
func (m Merged) PageRange() string {
	if m.MultiPage() {
		return fmt.Sprintf("%d-%d", m.FirstPage, m.LastPage)
	}
	return fmt.Sprintf("%d", m.FirstPage)
}

// MergeFragments joins continuation fragments onto their predecessor.
// A repeated header row on the continuation is dropped. Only a fragment
// flagged SplitRow has its first row stitched cell by cell onto the last
// row of the predecessor; otherwise rows are appended, and blank cells are
// later filled from the nearest value above by propagation. Multi-page
// results carry MetaPageRange in their metadata. Fragments that normalize
// to nothing are skipped.
func MergeFragments(frags []Fragment) []Merged {
	var out []Merged
	for i, f := range frags {
		rows := Normalize(f.Rows)
		if rows == nil {
			continue
		}
		if f.Continues && len(out) > 0 {
			prev := &out[len(out)-1]
			prev.Rows = appendContinuation(prev.Rows, rows, f.SplitRow)
			prev.Fragments = append(prev.Fragments, i)
			if f.Page > prev.LastPage {
				prev.LastPage = f.Page
			}
			for k, v := range f.Metadata {
				if _, ok := prev.Metadata[k]; !ok {
					prev.Metadata[k] = v
				}
			}
			continue
		}
		md := make(map[string]string, len(f.Metadata)+1)
		maps.Copy(md, f.Metadata)
		out = append(out, Merged{Rows: rows, FirstPage: f.Page, LastPage: f.Page, Metadata: md, Fragments: []int{i}})
	}

	for i := range out {
		if out[i].MultiPage() {
			out[i].Rows = Reconcile(out[i].Rows, true)
			out[i].Metadata[MetaPageRange] = out[i].PageRange()
		}
	}
	return out
}

func appendContinuation(prev, next [][]string, splitRow bool) [][]string {
	width := Width(prev)
	if w := Width(next); w > width {
		width = w
	}
	prev = Pad(prev, width)
	next = Pad(next, width)

	if len(prev) > 1 && len(next) > 0 && rowsEqual(prev[0], next[0]) {
		next = next[1:]
	}
	if splitRow && len(prev) > 1 && len(next) > 0 && !rowBlank(next[0]) {
		last := prev[len(prev)-1]
		for c, v := range next[0] {
			switch {
			case IsBlank(v):
			case IsBlank(last[c]):
				last[c] = v
			default:
				last[c] = strings.TrimSpace(last[c]) + " " + strings.TrimSpace(v)
			}
		}
		next = next[1:]
	}
	return append(prev, next...)
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
