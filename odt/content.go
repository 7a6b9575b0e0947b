package odt

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

// contentXML represents content.xml.
type contentXML struct {
	XMLName    xml.Name         `xml:"document-content"`
	AutoStyles contentStylesXML `xml:"automatic-styles"`
	Body       struct {
		Text textBodyXML `xml:"text"`
	} `xml:"body"`
}

// textBodyXML holds block content in document order. It is used for the
// office:text body, sections, list items and table cells.
type textBodyXML struct {
	Blocks []blockXML
}

// blockXML is one block: a paragraph or heading, a list, a table, or a
// layout page boundary.
type blockXML struct {
	Paragraph *paragraphXML
	List      *listXML
	Table     *tableXML
	PageBreak bool
}

func (b *textBodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "p", "h":
			var p paragraphXML
			if err := d.DecodeElement(&p, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, blockXML{Paragraph: &p})
		case "list":
			var l listXML
			if err := d.DecodeElement(&l, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, blockXML{List: &l})
		case "table":
			var t tableXML
			if err := d.DecodeElement(&t, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, blockXML{Table: &t})
		case "section":
			var inner textBodyXML
			if err := d.DecodeElement(&inner, &se); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, inner.Blocks...)
		case "soft-page-break":
			b.Blocks = append(b.Blocks, blockXML{PageBreak: true})
			return d.Skip()
		default:
			return d.Skip()
		}
		return nil
	})
}

// paragraphXML represents <text:p> and <text:h>.
type paragraphXML struct {
	StyleName    string
	Heading      bool
	OutlineLevel int
	Inlines      []inlineXML
}

// inlineXML is one piece of paragraph content. Exactly one of Text, Link,
// Frame or PageBreak is meaningful.
type inlineXML struct {
	Text      string
	Style     string
	Link      *linkXML
	Frame     *frameXML
	PageBreak bool
}

// linkXML represents <text:a>.
type linkXML struct {
	Href    string
	Inlines []inlineXML
}

// frameXML represents a <draw:frame> holding an image.
type frameXML struct {
	Name  string `xml:"name,attr"`
	Title string `xml:"title"`
	Desc  string `xml:"desc"`
	Image *struct {
		Href string `xml:"href,attr"`
	} `xml:"image"`
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	p.Heading = start.Name.Local == "h"
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "style-name":
			p.StyleName = a.Value
		case "outline-level":
			p.OutlineLevel, _ = strconv.Atoi(a.Value)
		}
	}
	var err error
	p.Inlines, err = decodeInlines(d, "")
	return err
}

// decodeInlines reads mixed paragraph content up to the end of the current
// element. style is the text style in effect for character data.
func decodeInlines(d *xml.Decoder, style string) ([]inlineXML, error) {
	var out []inlineXML
	text := func(s string) {
		if s != "" {
			out = append(out, inlineXML{Text: s, Style: style})
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text(collapseSpace(string(t)))
		case xml.EndElement:
			return out, nil
		case xml.StartElement:
			switch t.Name.Local {
			case "span":
				inner, err := decodeInlines(d, attr(t, "style-name", style))
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			case "a":
				inner, err := decodeInlines(d, attr(t, "style-name", style))
				if err != nil {
					return nil, err
				}
				out = append(out, inlineXML{Link: &linkXML{Href: attr(t, "href", ""), Inlines: inner}})
			case "s":
				n, err := strconv.Atoi(attr(t, "c", "1"))
				if err != nil || n < 1 {
					n = 1
				}
				text(strings.Repeat(" ", n))
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "tab":
				text("\t")
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "line-break":
				text("\n")
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "soft-page-break":
				out = append(out, inlineXML{PageBreak: true})
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "frame":
				var f frameXML
				if err := d.DecodeElement(&f, &t); err != nil {
					return nil, err
				}
				if f.Image != nil {
					out = append(out, inlineXML{Frame: &f})
				}
			case "bookmark-ref", "reference-ref", "sequence", "meta", "ruby":
				// Field text belongs to the paragraph flow.
				inner, err := decodeInlines(d, style)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		}
	}
}

func attr(se xml.StartElement, local, def string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return def
}

// collapseSpace folds runs of XML white space into one space. Explicit
// spacing is expressed with <text:s>, <text:tab> and <text:line-break>.
func collapseSpace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

// listXML represents <text:list>.
type listXML struct {
	StyleName string        `xml:"style-name,attr"`
	Continue  string        `xml:"continue-numbering,attr"`
	Header    *listItemXML  `xml:"list-header"`
	Items     []listItemXML `xml:"list-item"`
}

// listItemXML represents <text:list-item>.
type listItemXML struct {
	StartValue string
	Content    textBodyXML
}

// UnmarshalXML decodes the item's children as block content.
func (li *listItemXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	li.StartValue = attr(start, "start-value", "")
	return li.Content.UnmarshalXML(d, start)
}

// tableXML represents <table:table>. Rows from header and row groups are
// flattened in order.
type tableXML struct {
	Name    string
	Columns int
	Rows    []tableRowXML
}

func (t *tableXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	t.Name = attr(start, "name", "")
	return t.decodeChildren(d)
}

func (t *tableXML) decodeChildren(d *xml.Decoder) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "table-column":
			t.Columns += repeat(attr(se, "number-columns-repeated", "1"))
			return d.Skip()
		case "table-columns", "table-column-group", "table-header-columns":
			return t.decodeChildren(d)
		case "table-row":
			var r tableRowXML
			if err := d.DecodeElement(&r, &se); err != nil {
				return err
			}
			t.Rows = append(t.Rows, r)
		case "table-header-rows", "table-rows", "table-row-group":
			return t.decodeChildren(d)
		default:
			return d.Skip()
		}
		return nil
	})
}

// tableRowXML represents <table:table-row>.
type tableRowXML struct {
	Repeated int
	Cells    []tableCellXML
}

func (r *tableRowXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	r.Repeated = repeat(attr(start, "number-rows-repeated", "1"))
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "table-cell", "covered-table-cell":
			c := tableCellXML{
				Covered:  se.Name.Local == "covered-table-cell",
				ColSpan:  repeat(attr(se, "number-columns-spanned", "1")),
				Repeated: repeat(attr(se, "number-columns-repeated", "1")),
			}
			if err := c.Content.UnmarshalXML(d, se); err != nil {
				return err
			}
			r.Cells = append(r.Cells, c)
		default:
			return d.Skip()
		}
		return nil
	})
}

// tableCellXML represents <table:table-cell> or <table:covered-table-cell>.
type tableCellXML struct {
	Covered  bool
	ColSpan  int
	Repeated int
	Content  textBodyXML
}

// maxRepeat bounds number-*-repeated attributes. Writers use huge repeat
// counts for trailing empty cells.
const maxRepeat = 64

func repeat(v string) int {
	n, err := strconv.Atoi(v)
	switch {
	case err != nil || n < 1:
		return 1
	case n > maxRepeat:
		return maxRepeat
	}
	return n
}
