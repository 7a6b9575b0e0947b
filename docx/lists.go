package docx

import (
	"strconv"
)

// numberingXML represents word/numbering.xml.
type numberingXML struct {
	AbstractNums []abstractNumXML `xml:"abstractNum"`
	Nums         []numXML         `xml:"num"`
}

type abstractNumXML struct {
	AbstractNumID string   `xml:"abstractNumId,attr"`
	Levels        []lvlXML `xml:"lvl"`
}

type lvlXML struct {
	ILvl   string `xml:"ilvl,attr"`
	Start  valXML `xml:"start"`
	NumFmt valXML `xml:"numFmt"`
}

type numXML struct {
	NumID         string `xml:"numId,attr"`
	AbstractNumID valXML `xml:"abstractNumId"`
}

// listLevel describes how one numbering level renders.
type listLevel struct {
	Ordered bool
	Start   int
}

// numberingResolver resolves numId/ilvl pairs from numbering.xml and keeps
// running counters for ordered lists.
type numberingResolver struct {
	abstractNums map[string]*abstractNumXML // abstractNumId -> definition
	numMappings  map[string]string          // numId -> abstractNumId
	counters     map[string][]int           // numId -> per-level counter
}

func newNumberingResolver(numbering *numberingXML) *numberingResolver {
	nr := &numberingResolver{
		abstractNums: make(map[string]*abstractNumXML),
		numMappings:  make(map[string]string),
		counters:     make(map[string][]int),
	}
	if numbering == nil {
		return nr
	}
	for i := range numbering.AbstractNums {
		an := &numbering.AbstractNums[i]
		nr.abstractNums[an.AbstractNumID] = an
	}
	for _, num := range numbering.Nums {
		nr.numMappings[num.NumID] = num.AbstractNumID.Val
	}
	return nr
}

// isList reports whether numID refers to a list. numId 0 removes numbering.
func isList(numID string) bool {
	return numID != "" && numID != "0"
}

// resolve returns the format of a level. Unknown definitions render as
// bullets.
func (nr *numberingResolver) resolve(numID string, level int) listLevel {
	out := listLevel{Start: 1}
	an, ok := nr.abstractNums[nr.numMappings[numID]]
	if !ok {
		return out
	}
	want := strconv.Itoa(level)
	for _, lvl := range an.Levels {
		if lvl.ILvl != want {
			continue
		}
		switch lvl.NumFmt.Val {
		case "decimal", "decimalZero", "lowerLetter", "upperLetter", "lowerRoman", "upperRoman":
			out.Ordered = true
		}
		if s, err := strconv.Atoi(lvl.Start.Val); err == nil {
			out.Start = s
		}
		break
	}
	return out
}

// marker returns the Markdown list marker for the next item at level and
// advances the counters. Deeper levels restart after a shallower item.
func (nr *numberingResolver) marker(numID string, level int) string {
	if level < 0 {
		level = 0
	}
	if level > 8 {
		level = 8
	}
	c := nr.counters[numID]
	if len(c) < 9 {
		c = make([]int, 9)
	}
	for i := level + 1; i < len(c); i++ {
		c[i] = 0
	}
	lvl := nr.resolve(numID, level)
	if c[level] == 0 {
		c[level] = lvl.Start
	} else {
		c[level]++
	}
	nr.counters[numID] = c
	if lvl.Ordered {
		return strconv.Itoa(c[level]) + "."
	}
	return "-"
}
