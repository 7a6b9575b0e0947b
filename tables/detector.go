package tables

// Detector finds tables among the lines of one page.
type Detector interface {
	// Detect returns the table regions in lines, top to bottom.
	Detect(lines []Line) []Region

	// Name identifies the detector in table metadata.
	Name() string
}

// Config holds detector configuration. Gap settings are multiples of the
// font size of the text they measure.
type Config struct {
	// Minimum rows for a valid table
	MinRows int

	// Minimum columns for a valid table
	MinCols int

	// Minimum confidence threshold (0-1)
	MinConfidence float64

	// Tolerance for baseline and column alignment (points)
	AlignmentTolerance float64

	// Horizontal gap that starts a new cell
	CellGap float64

	// Horizontal gap that becomes a space inside a cell
	SpaceGap float64

	// Largest baseline distance between two rows of one table
	RowGap float64

	// Tables whose cells average more words than this are prose columns
	MaxCellWords float64
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinRows:            2,
		MinCols:            2,
		MinConfidence:      0.5,
		AlignmentTolerance: 2.0,
		CellGap:            1.0,
		SpaceGap:           0.15,
		RowGap:             2.5,
		MaxCellWords:       8,
	}
}
