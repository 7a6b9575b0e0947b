package tables

import "strings"

// IsBlank reports whether a cell carries no visible text.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Width returns the widest row length.
func Width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Pad returns a copy of rows with every row padded to width.
func Pad(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return out
}

// Normalize pads rows to the widest row, then trims leading and trailing
// fully blank rows and trailing columns that are blank in every row.
// It returns nil when nothing remains.
func Normalize(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	out := Pad(rows, Width(rows))

	start, end := 0, len(out)
	for start < end && rowBlank(out[start]) {
		start++
	}
	for end > start && rowBlank(out[end-1]) {
		end--
	}
	out = out[start:end]
	if len(out) == 0 {
		return nil
	}

	used := 0
	for _, r := range out {
		for c := len(r) - 1; c >= used; c-- {
			if !IsBlank(r[c]) {
				used = c + 1
				break
			}
		}
	}
	if used == 0 {
		return nil
	}
	for i := range out {
		out[i] = out[i][:used]
	}
	return out
}

func rowBlank(r []string) bool {
	for _, c := range r {
		if !IsBlank(c) {
			return false
		}
	}
	return true
}

// Propagate returns a copy of rows where each blank data cell takes the
// nearest non-blank value above it in the same column. Row 0 is the header
// and is neither filled nor used as a source.
func Propagate(rows [][]string) [][]string {
	out := Pad(rows, Width(rows))
	if len(out) < 2 {
		return out
	}
	width := len(out[0])
	last := make([]string, width)
	seen := make([]bool, width)
	for r := 1; r < len(out); r++ {
		for c := 0; c < width; c++ {
			if IsBlank(out[r][c]) {
				if seen[c] {
					out[r][c] = last[c]
				}
				continue
			}
			last[c] = out[r][c]
			seen[c] = true
		}
	}
	return out
}

// Reconcile is the standard pipeline for provider tables: normalize, and
// when propagate is set, fill blanks downwards before a final trim.
func Reconcile(rows [][]string, propagate bool) [][]string {
	out := Normalize(rows)
	if out == nil || !propagate {
		return out
	}
	return Normalize(Propagate(out))
}
