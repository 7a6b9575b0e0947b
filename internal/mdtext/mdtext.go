// Package mdtext builds inline Markdown from formatted text runs.
package mdtext

import "strings"

// Style is the character formatting of a run.
type Style struct {
	Bold, Italic, Strike bool
}

// Builder merges adjacent runs with equal formatting so emphasis markers
// are not repeated at run boundaries.
type Builder struct {
	out strings.Builder
	buf strings.Builder
	cur Style
}

// Text appends s formatted with st.
func (b *Builder) Text(s string, st Style) {
	if st != b.cur {
		b.flush()
		b.cur = st
	}
	b.buf.WriteString(s)
}

// Raw appends s verbatim.
func (b *Builder) Raw(s string) {
	b.flush()
	b.out.WriteString(s)
}

func (b *Builder) flush() {
	b.out.WriteString(Emphasize(b.buf.String(), b.cur))
	b.buf.Reset()
}

// Take returns the text built so far and resets the builder.
func (b *Builder) Take() string {
	b.flush()
	s := b.out.String()
	b.out.Reset()
	return s
}

// Emphasize wraps the non-space core of s in Markdown emphasis markers.
func Emphasize(s string, st Style) string {
	core := strings.TrimSpace(s)
	if core == "" || st == (Style{}) {
		return s
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]
	if st.Italic {
		core = "*" + core + "*"
	}
	if st.Bold {
		core = "**" + core + "**"
	}
	if st.Strike {
		core = "~~" + core + "~~"
	}
	return lead + core + trail
}

var linkTextEscaper = strings.NewReplacer("[", "\\[", "]", "\\]")

// Link renders an inline link. Text without a URL is returned as is.
func Link(text, url string) string {
	if url == "" {
		return text
	}
	return "[" + linkTextEscaper.Replace(text) + "](" + url + ")"
}

// Indent returns the prefix for a list item at level, counted from zero.
func Indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("  ", level)
}
