package tables

// Cell is one source cell before span expansion.
type Cell struct {
	Text string

	// ColSpan is the number of logical columns covered; values below 1
	// count as 1.
	ColSpan int

	// VMerge marks a vertical merge continuation. The cell inherits the
	// value tracked for its column from the most recent row that set it.
	VMerge bool

	// HMerge marks a horizontal continuation already covered by the span of
	// a cell to its left. Such cells occupy no column of their own.
	HMerge bool
}

func (c Cell) span() int {
	if c.ColSpan < 1 {
		return 1
	}
	return c.ColSpan
}

// Row is an ordered list of source cells.
type Row []Cell

// Columns returns the number of logical columns the row covers.
func (r Row) Columns() int {
	n := 0
	for _, c := range r {
		if c.HMerge {
			continue
		}
		n += c.span()
	}
	return n
}

// Expand lays rows onto a rectangular grid. gridCols is the column count
// from an explicit grid definition, or 0 to infer it from the widest row;
// a row wider than the declared grid widens the matrix rather than losing
// cells. Horizontal spans duplicate the cell value into each covered column.
func Expand(rows []Row, gridCols int) [][]string {
	cols := gridCols
	for _, r := range rows {
		if n := r.Columns(); n > cols {
			cols = n
		}
	}
	if cols == 0 {
		return nil
	}

	last := make([]string, cols)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, cols)
		col := 0
		for _, cell := range r {
			if cell.HMerge {
				continue
			}
			for k := 0; k < cell.span() && col < cols; k++ {
				v := cell.Text
				if cell.VMerge {
					v = last[col]
				}
				line[col] = v
				last[col] = v
				col++
			}
		}
		// Uncovered trailing columns do not carry a merge forward.
		for ; col < cols; col++ {
			last[col] = ""
		}
		out = append(out, line)
	}
	return out
}

// MergeRange is a rectangular merged region in zero-based coordinates,
// inclusive on both ends.
type MergeRange struct {
	StartRow, StartCol int
	EndRow, EndCol     int
	Value              string
}

// ApplyMerges writes each range's value into every cell it covers, growing
// the matrix when a range extends past the current bounds.
func ApplyMerges(rows [][]string, merges []MergeRange) [][]string {
	valid := make([]MergeRange, 0, len(merges))
	for _, m := range merges {
		if m.StartRow < 0 || m.StartCol < 0 || m.EndRow < m.StartRow || m.EndCol < m.StartCol {
			continue
		}
		valid = append(valid, m)
	}

	height, width := len(rows), Width(rows)
	for _, m := range valid {
		if m.EndRow+1 > height {
			height = m.EndRow + 1
		}
		if m.EndCol+1 > width {
			width = m.EndCol + 1
		}
	}
	out := Pad(rows, width)
	for len(out) < height {
		out = append(out, make([]string, width))
	}
	for _, m := range valid {
		for r := m.StartRow; r <= m.EndRow; r++ {
			for c := m.StartCol; c <= m.EndCol; c++ {
				out[r][c] = m.Value
			}
		}
	}
	return out
}
