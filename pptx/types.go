// Package pptx converts PowerPoint (.pptx) presentations to Markdown, one
// segment per slide.
package pptx

import (
	"encoding/xml"
	"strings"

	"github.com/tsawler/markitdown/internal/ooxml"
)

// presentationXML represents ppt/presentation.xml.
type presentationXML struct {
	XMLName     xml.Name `xml:"presentation"`
	SlideIDList struct {
		SlideIDs []slideIDXML `xml:"sldId"`
	} `xml:"sldIdLst"`
}

type slideIDXML struct {
	ID  string `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// slideXML represents ppt/slides/slideN.xml and ppt/notesSlides/notesSlideN.xml.
type slideXML struct {
	CSld struct {
		SpTree shapeTreeXML `xml:"spTree"`
	} `xml:"cSld"`
}

// shapeTreeXML holds the shapes of a slide or group in document order.
type shapeTreeXML struct {
	Xfrm   *xfrmXML
	Shapes []shapeXML
}

// shapeXML is one child of a shape tree.
type shapeXML struct {
	Sp    *spXML
	Pic   *picXML
	Frame *graphicFrameXML
	Group *shapeTreeXML
}

func (t *shapeTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		var sh shapeXML
		switch se.Name.Local {
		case "sp":
			sh.Sp = &spXML{}
			if err := d.DecodeElement(sh.Sp, &se); err != nil {
				return err
			}
		case "pic":
			sh.Pic = &picXML{}
			if err := d.DecodeElement(sh.Pic, &se); err != nil {
				return err
			}
		case "graphicFrame":
			sh.Frame = &graphicFrameXML{}
			if err := d.DecodeElement(sh.Frame, &se); err != nil {
				return err
			}
		case "grpSp":
			sh.Group = &shapeTreeXML{}
			if err := d.DecodeElement(sh.Group, &se); err != nil {
				return err
			}
		case "grpSpPr":
			var pr struct {
				Xfrm *xfrmXML `xml:"xfrm"`
			}
			if err := d.DecodeElement(&pr, &se); err != nil {
				return err
			}
			t.Xfrm = pr.Xfrm
			return nil
		default:
			return d.Skip()
		}
		t.Shapes = append(t.Shapes, sh)
		return nil
	})
}

// position returns the top-left offset of the shape in EMUs.
func (s shapeXML) position() (x, y int, ok bool) {
	var xf *xfrmXML
	switch {
	case s.Sp != nil:
		xf = s.Sp.SpPr.Xfrm
	case s.Pic != nil:
		xf = s.Pic.SpPr.Xfrm
	case s.Frame != nil:
		xf = s.Frame.Xfrm
	case s.Group != nil:
		xf = s.Group.Xfrm
	}
	if xf == nil {
		return 0, 0, false
	}
	return xf.Off.X, xf.Off.Y, true
}

type xfrmXML struct {
	Off struct {
		X int `xml:"x,attr"`
		Y int `xml:"y,attr"`
	} `xml:"off"`
}

type cNvPrXML struct {
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
	Title string `xml:"title,attr"`
}

// spXML represents a shape.
type spXML struct {
	NvSpPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
		NvPr  struct {
			Ph *phXML `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr struct {
		Xfrm *xfrmXML `xml:"xfrm"`
	} `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

// placeholder returns the placeholder type of the shape, or "".
func (sp *spXML) placeholder() string {
	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		if ph.Type == "" {
			return "body"
		}
		return ph.Type
	}
	return ""
}

type phXML struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

type txBodyXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

// paragraphXML represents <a:p>. Runs, breaks and fields keep their order.
type paragraphXML struct {
	Props *paragraphPropsXML
	Runs  []runXML
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return ooxml.EachChild(d, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "pPr":
			p.Props = &paragraphPropsXML{}
			return d.DecodeElement(p.Props, &se)
		case "r", "fld":
			var r runXML
			if err := d.DecodeElement(&r, &se); err != nil {
				return err
			}
			p.Runs = append(p.Runs, r)
		case "br":
			p.Runs = append(p.Runs, runXML{Text: "\n"})
			return d.Skip()
		default:
			return d.Skip()
		}
		return nil
	})
}

type paragraphPropsXML struct {
	Lvl       int         `xml:"lvl,attr"`
	BuNone    *struct{}   `xml:"buNone"`
	BuChar    *struct{}   `xml:"buChar"`
	BuAutoNum *autoNumXML `xml:"buAutoNum"`
}

type autoNumXML struct {
	Type    string `xml:"type,attr"`
	StartAt int    `xml:"startAt,attr"`
}

// runXML represents <a:r> or <a:fld>.
type runXML struct {
	Props *runPropsXML `xml:"rPr"`
	Text  string       `xml:"t"`
}

type runPropsXML struct {
	B          string `xml:"b,attr"`
	I          string `xml:"i,attr"`
	Strike     string `xml:"strike,attr"`
	HlinkClick *struct {
		ID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"hlinkClick"`
}

func flag(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// picXML represents a picture.
type picXML struct {
	NvPicPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr struct {
		Xfrm *xfrmXML `xml:"xfrm"`
	} `xml:"spPr"`
}

// graphicFrameXML holds a table or a chart reference.
type graphicFrameXML struct {
	NvGraphicFramePr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
	} `xml:"nvGraphicFramePr"`
	Xfrm        *xfrmXML `xml:"xfrm"`
	GraphicData struct {
		Table *tableXML `xml:"tbl"`
		Chart *struct {
			ID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"chart"`
	} `xml:"graphic>graphicData"`
}

// tableXML represents <a:tbl>.
type tableXML struct {
	Grid struct {
		Cols []struct{} `xml:"gridCol"`
	} `xml:"tblGrid"`
	Rows []struct {
		Cells []tableCellXML `xml:"tc"`
	} `xml:"tr"`
}

type tableCellXML struct {
	TxBody   *txBodyXML `xml:"txBody"`
	GridSpan int        `xml:"gridSpan,attr"`
	HMerge   string     `xml:"hMerge,attr"`
	VMerge   string     `xml:"vMerge,attr"`
}
