package odt

import (
	"strconv"
	"strings"

	"github.com/tsawler/markitdown/internal/mdtext"
)

// resolvedStyle is a style with its parent chain applied.
type resolvedStyle struct {
	HeadingLevel int
	PageBreak    bool
	Text         mdtext.Style
}

// styleResolver resolves paragraph and text styles with inheritance.
// Automatic styles from content.xml shadow those of styles.xml.
type styleResolver struct {
	styles     map[string]*styleDefXML
	listStyles map[string]*listStyleXML
	resolved   map[string]resolvedStyle
}

func newStyleResolver(sets ...*contentStylesXML) *styleResolver {
	sr := &styleResolver{
		styles:     make(map[string]*styleDefXML),
		listStyles: make(map[string]*listStyleXML),
		resolved:   make(map[string]resolvedStyle),
	}
	for _, set := range sets {
		if set == nil {
			continue
		}
		for i := range set.Styles {
			sr.styles[set.Styles[i].Name] = &set.Styles[i]
		}
		for i := range set.ListStyles {
			sr.listStyles[set.ListStyles[i].Name] = &set.ListStyles[i]
		}
	}
	return sr
}

// resolve returns the effective properties of the named style. Unknown
// names fall back to the built-in heading names.
func (sr *styleResolver) resolve(name string) resolvedStyle {
	if name == "" {
		return resolvedStyle{}
	}
	if rs, ok := sr.resolved[name]; ok {
		return rs
	}

	var rs resolvedStyle
	for _, n := range sr.chain(name) {
		def := sr.styles[n]
		if lvl, err := strconv.Atoi(def.DefaultOutlineLevel); err == nil && lvl >= 1 {
			rs.HeadingLevel = lvl
		}
		if b := def.Paragraph.BreakBefore; b != "" {
			rs.PageBreak = b == "page"
		}
		if w := def.Text.FontWeight; w != "" {
			rs.Text.Bold = isBold(w)
		}
		if fs := def.Text.FontStyle; fs != "" {
			rs.Text.Italic = fs == "italic" || fs == "oblique"
		}
		if lt := def.Text.LineThrough; lt != "" {
			rs.Text.Strike = lt != "none"
		}
	}
	// Automatic styles often derive from a heading style that styles.xml
	// does not define.
	for n, seen := name, 0; rs.HeadingLevel == 0 && n != "" && seen < 16; seen++ {
		def, ok := sr.styles[n]
		if ok && def.DisplayName != "" {
			rs.HeadingLevel = builtInHeading(def.DisplayName)
		}
		if rs.HeadingLevel == 0 {
			rs.HeadingLevel = builtInHeading(n)
		}
		if !ok {
			break
		}
		n = def.ParentStyleName
	}
	sr.resolved[name] = rs
	return rs
}

// chain returns the defined styles from the root ancestor down to name.
func (sr *styleResolver) chain(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for name != "" && !seen[name] {
		def, ok := sr.styles[name]
		if !ok {
			break
		}
		seen[name] = true
		out = append([]string{name}, out...)
		name = def.ParentStyleName
	}
	return out
}

func isBold(weight string) bool {
	if weight == "bold" {
		return true
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}

// builtInHeading maps the standard heading style names, including the
// "_20_" encoding of spaces, to a level.
func builtInHeading(name string) int {
	n := strings.ToLower(strings.ReplaceAll(name, "_20_", " "))
	switch n {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	rest, ok := strings.CutPrefix(n, "heading")
	if !ok {
		return 0
	}
	rest = strings.TrimLeft(rest, " _")
	if lvl, err := strconv.Atoi(rest); err == nil && lvl >= 1 && lvl <= 10 {
		return lvl
	}
	return 0
}

// listLevel describes one level of a list style.
type listLevel struct {
	Ordered    bool
	StartValue int
}

// listLevel returns the style of the zero-based level of the named list
// style. Unknown styles and levels are bullets.
func (sr *styleResolver) listLevel(style string, level int) listLevel {
	ll := listLevel{StartValue: 1}
	ls, ok := sr.listStyles[style]
	if !ok {
		return ll
	}
	want := strconv.Itoa(level + 1)
	for _, nl := range ls.Levels {
		if nl.Level != want {
			continue
		}
		// An empty num-format is a numbered level that shows no number.
		ll.Ordered = nl.NumFormat != ""
		if sv, err := strconv.Atoi(nl.StartValue); err == nil {
			ll.StartValue = sv
		}
	}
	return ll
}
