package docx

import (
	"strconv"
	"strings"

	"github.com/tsawler/markitdown/tables"
)

// tableRows lays the table onto its grid. Cell paragraphs are joined with a
// space. Legacy hMerge continuations widen the cell that started the merge.
func (w *walker) tableRows(t *tableXML) [][]string {
	rows := make([]tables.Row, 0, len(t.Rows))
	for _, tr := range t.Rows {
		var row tables.Row
		for _, tc := range tr.Cells {
			props := tc.Properties
			cell := tables.Cell{ColSpan: 1}
			if span, err := strconv.Atoi(props.GridSpan.Val); err == nil && span > 1 {
				cell.ColSpan = span
			}
			if hm := props.HMerge; hm != nil && hm.Val != "restart" && len(row) > 0 {
				row[len(row)-1].ColSpan += cell.ColSpan
				cell.HMerge = true
				row = append(row, cell)
				continue
			}
			if vm := props.VMerge; vm != nil && vm.Val != "restart" {
				cell.VMerge = true
			}
			cell.Text = w.cellText(tc)
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return tables.Normalize(tables.Expand(rows, len(t.Grid.Cols)))
}

func (w *walker) cellText(tc tableCellXML) string {
	w.inCell = true
	defer func() { w.inCell = false }()

	var parts []string
	for i := range tc.Paragraphs {
		if s := strings.TrimSpace(w.inlineText(&tc.Paragraphs[i], nil)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
