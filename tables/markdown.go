package tables

import "strings"

var cellEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"|", "\\|",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// EscapeCell escapes text for use inside a Markdown table cell.
func EscapeCell(s string) string {
	return strings.TrimSpace(cellEscaper.Replace(s))
}

// Markdown renders rows as a pipe table using the first row as header.
// Rows are padded to a common width. It returns "" for an empty matrix.
func Markdown(rows [][]string) string {
	width := Width(rows)
	if len(rows) == 0 || width == 0 {
		return ""
	}
	rows = Pad(rows, width)

	var sb strings.Builder
	writeRow := func(r []string) {
		sb.WriteString("|")
		for _, c := range r {
			sb.WriteString(" ")
			sb.WriteString(EscapeCell(c))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MarkdownWithRange renders rows and, for multi-page tables, prefixes an HTML
// comment naming the page range.
func MarkdownWithRange(m Merged) string {
	md := Markdown(m.Rows)
	if md == "" || !m.MultiPage() {
		return md
	}
	return "<!-- Table spans pages " + m.PageRange() + " -->\n" + md
}
