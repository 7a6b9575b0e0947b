package tables

import (
	"cmp"
	"slices"
	"strings"
)

// fallbackSize stands in for glyphs that report no font size.
const fallbackSize = 10.0

// Glyph is a positioned run of text. Coordinates are in points with Y
// growing up the page, as in PDF content streams.
type Glyph struct {
	Text string
	X, Y float64
	W    float64
	Size float64
}

func (g Glyph) size() float64 {
	if g.Size > 0 {
		return g.Size
	}
	return fallbackSize
}

// LineCell is a run of glyphs on one line, separated from its neighbours by
// at least the cell gap.
type LineCell struct {
	Text   string
	X0, X1 float64
}

func (c LineCell) center() float64 { return (c.X0 + c.X1) / 2 }

// Line is the text on one baseline, cells ordered left to right.
type Line struct {
	Y     float64
	Size  float64
	Cells []LineCell
}

// Text joins the cells of l with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// Region is a block of lines recognised as a table. Lines[Start:End] of
// the detector input are laid out as Rows.
type Region struct {
	Start, End int
	Rows       [][]string
	Confidence float64
}

// GeometricDetector implements table detection using the alignment of
// text on a page. Consecutive lines whose cells fall into shared column
// bands form a table.
type GeometricDetector struct {
	config Config
}

// NewGeometricDetector creates a new geometric table detector with default configuration.
func NewGeometricDetector() *GeometricDetector {
	return &GeometricDetector{config: DefaultConfig()}
}

// Name returns the detector's identifier ("geometric").
func (d *GeometricDetector) Name() string { return "geometric" }

// Configure sets the detector configuration.
func (d *GeometricDetector) Configure(config Config) { d.config = config }

// Lines groups glyphs into lines, top of the page first. Glyphs whose
// baselines are within AlignmentTolerance share a line. Whitespace glyphs
// are dropped; the gaps they leave decide spacing.
func (d *GeometricDetector) Lines(glyphs []Glyph) []Line {
	sorted := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.TrimSpace(g.Text) != "" {
			sorted = append(sorted, g)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	slices.SortStableFunc(sorted, func(a, b Glyph) int { return cmp.Compare(b.Y, a.Y) })

	var lines []Line
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[start].Y-sorted[i].Y <= d.config.AlignmentTolerance {
			continue
		}
		lines = append(lines, d.line(sorted[start:i]))
		start = i
	}
	return lines
}

// line splits the glyphs of one baseline into cells.
func (d *GeometricDetector) line(glyphs []Glyph) Line {
	slices.SortStableFunc(glyphs, func(a, b Glyph) int { return cmp.Compare(a.X, b.X) })

	l := Line{Y: glyphs[0].Y}
	var text strings.Builder
	var cur LineCell
	flush := func() {
		cur.Text = strings.Join(strings.Fields(text.String()), " ")
		l.Cells = append(l.Cells, cur)
		text.Reset()
	}
	for i, g := range glyphs {
		size := g.size()
		l.Size = max(l.Size, size)
		if i > 0 {
			gap := g.X - cur.X1
			switch {
			case gap > d.config.CellGap*size:
				flush()
			case gap > d.config.SpaceGap*size:
				text.WriteByte(' ')
			}
		}
		if text.Len() == 0 {
			cur = LineCell{X0: g.X, X1: g.X}
		}
		text.WriteString(g.Text)
		cur.X1 = max(cur.X1, g.X+g.W)
	}
	flush()
	return l
}

// Detect finds the tables among lines, which must be in the order Lines
// returns them.
func (d *GeometricDetector) Detect(lines []Line) []Region {
	var out []Region
	for i := 0; i < len(lines); {
		if len(lines[i].Cells) >= d.config.MinCols {
			end := d.extent(lines, i)
			if r, ok := d.region(lines, i, end); ok {
				out = append(out, r)
				i = end
				continue
			}
		}
		i++
	}
	return out
}

// extent returns the end of the run of table-like lines starting at
// start. A line with too few cells stays in the run only when it begins
// right of the first column, as a row with blank leading cells does. Runs
// never end on such a line.
func (d *GeometricDetector) extent(lines []Line, start int) int {
	firstCol := lines[start].Cells[0].X1
	end := start + 1
	for ; end < len(lines); end++ {
		prev, l := lines[end-1], lines[end]
		if prev.Y-l.Y > d.config.RowGap*max(prev.Size, l.Size) {
			break
		}
		if len(l.Cells) < d.config.MinCols && l.Cells[0].X0 <= firstCol {
			break
		}
	}
	for end > start+1 && len(lines[end-1].Cells) < d.config.MinCols {
		end--
	}
	return end
}

// region lays lines[start:end] onto columns and scores the result. The
// confidence averages alignment, the share of cells that own their column
// on their row, and occupancy, the share of grid cells holding text.
func (d *GeometricDetector) region(lines []Line, start, end int) (Region, bool) {
	if end-start < d.config.MinRows {
		return Region{}, false
	}
	block := lines[start:end]
	cols := d.columns(block)
	if len(cols) < d.config.MinCols {
		return Region{}, false
	}

	rows := make([][]string, len(block))
	var cells, shared, filled, words int
	for r, l := range block {
		rows[r] = make([]string, len(cols))
		for _, c := range l.Cells {
			k := columnOf(cols, c.center())
			if rows[r][k] != "" {
				rows[r][k] += " "
				shared++
			} else {
				filled++
			}
			rows[r][k] += c.Text
			cells++
			words += len(strings.Fields(c.Text))
		}
	}
	if float64(words)/float64(cells) > d.config.MaxCellWords {
		return Region{}, false
	}

	alignment := 1 - float64(shared)/float64(cells)
	occupancy := float64(filled) / float64(len(block)*len(cols))
	confidence := (alignment + occupancy) / 2
	if confidence < d.config.MinConfidence {
		return Region{}, false
	}
	return Region{Start: start, End: end, Rows: rows, Confidence: confidence}, true
}

// band is the horizontal extent of one column.
type band struct{ x0, x1 float64 }

// columns merges the extents of every cell in block into bands. Cells
// whose extents overlap, within tolerance, share a column, so left and
// right aligned columns are both found.
func (d *GeometricDetector) columns(block []Line) []band {
	var spans []band
	for _, l := range block {
		for _, c := range l.Cells {
			spans = append(spans, band{c.X0, c.X1})
		}
	}
	slices.SortFunc(spans, func(a, b band) int { return cmp.Compare(a.x0, b.x0) })

	out := []band{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.x0 <= last.x1+d.config.AlignmentTolerance {
			last.x1 = max(last.x1, s.x1)
			continue
		}
		out = append(out, s)
	}
	return out
}

func columnOf(cols []band, x float64) int {
	for i, b := range cols {
		if x <= b.x1 {
			return i
		}
	}
	return len(cols) - 1
}
