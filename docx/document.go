package docx

import (
	"encoding/xml"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

// documentXML represents word/document.xml.
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    bodyXML  `xml:"body"`
}

// bodyXML holds paragraphs and tables in document order.
type bodyXML struct {
	Blocks []blockXML
}

// blockXML is one body child: a paragraph or a table.
type blockXML struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "p":
			var p paragraphXML
			if err := d.DecodeElement(&p, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, blockXML{Paragraph: &p})
		case "tbl":
			var t tableXML
			if err := d.DecodeElement(&t, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, blockXML{Table: &t})
		case "sdt":
			// Content controls wrap ordinary body content.
			var inner struct {
				Content bodyXML `xml:"sdtContent"`
			}
			if err := d.DecodeElement(&inner, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, inner.Content.Blocks...)
		default:
			return d.Skip()
		}
		return nil
	})
}

// paragraphXML represents <w:p>. Runs and hyperlinks keep their order.
type paragraphXML struct {
	Properties paragraphPropsXML
	Inlines    []inlineXML
}

// inlineXML is a run or a hyperlink inside a paragraph.
type inlineXML struct {
	Run  *runXML
	Link *hyperlinkXML
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "pPr":
			return d.DecodeElement(&p.Properties, &se)
		case "r":
			var r runXML
			if err := d.DecodeElement(&r, &se); err != nil {
				return err
			}
			p.Inlines = append(p.Inlines, inlineXML{Run: &r})
		case "hyperlink":
			var h hyperlinkXML
			if err := d.DecodeElement(&h, &se); err != nil {
				return err
			}
			p.Inlines = append(p.Inlines, inlineXML{Link: &h})
		case "ins", "smartTag", "fldSimple", "customXml":
			// Containers whose runs belong to the paragraph.
			var inner paragraphXML
			if err := d.DecodeElement(&inner, &se); err != nil {
				return err
			}
			p.Inlines = append(p.Inlines, inner.Inlines...)
		default:
			return d.Skip()
		}
		return nil
	})
}

// paragraphPropsXML represents <w:pPr>.
type paragraphPropsXML struct {
	Style           valXML   `xml:"pStyle"`
	NumPr           numPrXML `xml:"numPr"`
	OutlineLvl      valXML   `xml:"outlineLvl"`
	PageBreakBefore *valXML  `xml:"pageBreakBefore"`
}

// numPrXML holds list numbering properties.
type numPrXML struct {
	ILvl  valXML `xml:"ilvl"`
	NumID valXML `xml:"numId"`
}

// valXML is any element whose payload is a w:val attribute.
type valXML struct {
	Val string `xml:"val,attr"`
}

// on reports whether a toggle property is set. A present element without
// a value means on.
func (v *valXML) on() bool {
	if v == nil {
		return false
	}
	switch strings.ToLower(v.Val) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// hyperlinkXML represents <w:hyperlink>.
type hyperlinkXML struct {
	ID     string   `xml:"id,attr"`
	Anchor string   `xml:"anchor,attr"`
	Runs   []runXML `xml:"r"`
}

// runXML represents <w:r>. Its content keeps document order.
type runXML struct {
	Properties runPropsXML
	Parts      []runPart
}

// runPart is one piece of run content.
type runPart struct {
	Text      string
	PageBreak bool
	Drawing   *drawingXML
}

func (r *runXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "rPr":
			return d.DecodeElement(&r.Properties, &se)
		case "t":
			var t struct {
				Value string `xml:",chardata"`
			}
			if err := d.DecodeElement(&t, &se); err != nil {
				return err
			}
			r.Parts = append(r.Parts, runPart{Text: t.Value})
		case "tab":
			r.Parts = append(r.Parts, runPart{Text: "\t"})
			return d.Skip()
		case "br", "cr":
			page := false
			for _, a := range se.Attr {
				if a.Name.Local == "type" && a.Value == "page" {
					page = true
				}
			}
			if page {
				r.Parts = append(r.Parts, runPart{PageBreak: true})
			} else {
				r.Parts = append(r.Parts, runPart{Text: "\n"})
			}
			return d.Skip()
		case "sym":
			for _, a := range se.Attr {
				if a.Name.Local == "char" {
					r.Parts = append(r.Parts, runPart{Text: symbolChar(a.Value)})
				}
			}
			return d.Skip()
		case "drawing":
			var dr drawingXML
			if err := d.DecodeElement(&dr, &se); err != nil {
				return err
			}
			r.Parts = append(r.Parts, runPart{Drawing: &dr})
		case "AlternateContent":
			var alt struct {
				Fallback struct {
					Runs []runXML `xml:"r"`
				} `xml:"Fallback"`
			}
			if err := d.DecodeElement(&alt, &se); err != nil {
				return err
			}
			for _, fr := range alt.Fallback.Runs {
				r.Parts = append(r.Parts, fr.Parts...)
			}
		default:
			return d.Skip()
		}
		return nil
	})
}

// symbolChar decodes a w:sym char code. Codes in the F000 private use
// range map to their low byte.
func symbolChar(hex string) string {
	var n rune
	for _, c := range strings.ToUpper(hex) {
		switch {
		case c >= '0' && c <= '9':
			n = n*16 + c - '0'
		case c >= 'A' && c <= 'F':
			n = n*16 + c - 'A' + 10
		default:
			return ""
		}
	}
	if n >= 0xF000 && n <= 0xF0FF {
		n -= 0xF000
	}
	if n < 0x20 {
		return ""
	}
	return string(n)
}

// runPropsXML represents <w:rPr>.
type runPropsXML struct {
	Style  valXML  `xml:"rStyle"`
	Bold   *valXML `xml:"b"`
	Italic *valXML `xml:"i"`
	Strike *valXML `xml:"strike"`
}

// drawingXML represents an embedded drawing.
type drawingXML struct {
	Inline *drawingAnchorXML `xml:"inline"`
	Anchor *drawingAnchorXML `xml:"anchor"`
}

type drawingAnchorXML struct {
	DocPr docPrXML `xml:"docPr"`
	Blip  *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

// docPrXML carries the drawing name and alt text.
type docPrXML struct {
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
	Title string `xml:"title,attr"`
}

// blipXML references image data by relationship ID.
type blipXML struct {
	Embed string `xml:"embed,attr"`
}

func (d *drawingXML) target() *drawingAnchorXML {
	if d.Inline != nil {
		return d.Inline
	}
	return d.Anchor
}

// tableXML represents <w:tbl>.
type tableXML struct {
	Grid struct {
		Cols []struct{} `xml:"gridCol"`
	} `xml:"tblGrid"`
	Rows []tableRowXML `xml:"tr"`
}

// tableRowXML represents <w:tr>.
type tableRowXML struct {
	Properties struct {
		Header *valXML `xml:"tblHeader"`
	} `xml:"trPr"`
	Cells []tableCellXML `xml:"tc"`
}

// tableCellXML represents <w:tc>.
type tableCellXML struct {
	Properties struct {
		GridSpan valXML  `xml:"gridSpan"`
		VMerge   *valXML `xml:"vMerge"`
		HMerge   *valXML `xml:"hMerge"`
	} `xml:"tcPr"`
	Paragraphs []paragraphXML `xml:"p"`
}
