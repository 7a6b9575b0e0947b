package docx

import (
	"strconv"
	"strings"
)

// stylesXML represents word/styles.xml.
type stylesXML struct {
	Styles []styleDefXML `xml:"style"`
}

// styleDefXML represents a style definition.
type styleDefXML struct {
	Type    string `xml:"type,attr"`
	StyleID string `xml:"styleId,attr"`
	Name    valXML `xml:"name"`
	BasedOn valXML `xml:"basedOn"`
	PPr     struct {
		OutlineLvl valXML   `xml:"outlineLvl"`
		NumPr      numPrXML `xml:"numPr"`
	} `xml:"pPr"`
}

// styleSet resolves heading levels through the basedOn chain.
type styleSet struct {
	byID map[string]*styleDefXML
}

func newStyleSet(s *stylesXML) *styleSet {
	ss := &styleSet{byID: make(map[string]*styleDefXML)}
	if s == nil {
		return ss
	}
	for i := range s.Styles {
		ss.byID[strings.ToLower(s.Styles[i].StyleID)] = &s.Styles[i]
	}
	return ss
}

var builtinHeadings = map[string]int{
	"heading1": 1, "heading2": 2, "heading3": 3,
	"heading4": 4, "heading5": 5, "heading6": 6,
	"heading7": 7, "heading8": 8, "heading9": 9,
	"title": 1,
}

// headingLevel returns the heading level (1-6) of a paragraph style, or 0.
func (ss *styleSet) headingLevel(styleID string) int {
	seen := make(map[string]bool)
	id := strings.ToLower(styleID)
	for id != "" && !seen[id] {
		seen[id] = true
		if level, ok := builtinHeadings[id]; ok {
			return clampHeading(level)
		}
		def, ok := ss.byID[id]
		if !ok {
			return 0
		}
		if lvl, err := strconv.Atoi(def.PPr.OutlineLvl.Val); err == nil && lvl >= 0 && lvl <= 8 {
			return clampHeading(lvl + 1)
		}
		name := strings.ToLower(strings.ReplaceAll(def.Name.Val, " ", ""))
		if level, ok := builtinHeadings[name]; ok {
			return clampHeading(level)
		}
		id = strings.ToLower(def.BasedOn.Val)
	}
	return 0
}

// numbering returns the list numbering inherited from a paragraph style.
func (ss *styleSet) numbering(styleID string) numPrXML {
	if def, ok := ss.byID[strings.ToLower(styleID)]; ok {
		return def.PPr.NumPr
	}
	return numPrXML{}
}

func clampHeading(level int) int {
	if level > 6 {
		return 6
	}
	return level
}
