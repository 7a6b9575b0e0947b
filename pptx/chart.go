package pptx

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
)

// chartSpaceXML represents a DrawingML chart part.
type chartSpaceXML struct {
	Chart struct {
		Title *struct {
			Texts []string `xml:"tx>rich>p>r>t"`
		} `xml:"title"`
		PlotArea struct {
			Plots []plotXML `xml:",any"`
		} `xml:"plotArea"`
	} `xml:"chart"`
}

// plotXML is any child of the plot area. Only chart groups carry series.
type plotXML struct {
	XMLName xml.Name
	Series  []seriesXML `xml:"ser"`
}

type seriesXML struct {
	Name          []string   `xml:"tx>strRef>strCache>pt>v"`
	StrCategories []pointXML `xml:"cat>strRef>strCache>pt"`
	NumCategories []pointXML `xml:"cat>numRef>numCache>pt"`
	Values        []pointXML `xml:"val>numRef>numCache>pt"`
}

type pointXML struct {
	Idx int    `xml:"idx,attr"`
	V   string `xml:"v"`
}

// chartData is a chart flattened to a title and a category by series table.
type chartData struct {
	Title string
	Rows  [][]string
}

func parseChart(data []byte) (*chartData, error) {
	var cs chartSpaceXML
	if err := xml.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	out := &chartData{}
	if t := cs.Chart.Title; t != nil {
		out.Title = strings.TrimSpace(strings.Join(t.Texts, ""))
	}

	var series []seriesXML
	for _, p := range cs.Chart.PlotArea.Plots {
		series = append(series, p.Series...)
	}
	if len(series) == 0 {
		return out, nil
	}

	// Categories come from the first series that has them.
	cats := map[int]string{}
	for _, s := range series {
		pts := s.StrCategories
		if len(pts) == 0 {
			pts = s.NumCategories
		}
		if len(pts) == 0 {
			continue
		}
		for _, pt := range pts {
			cats[pt.Idx] = pt.V
		}
		break
	}
	idx := make([]int, 0, len(cats))
	for i := range cats {
		idx = append(idx, i)
	}
	for _, s := range series {
		for _, pt := range s.Values {
			if _, ok := cats[pt.Idx]; !ok {
				cats[pt.Idx] = ""
				idx = append(idx, pt.Idx)
			}
		}
	}
	sort.Ints(idx)

	header := []string{"Category"}
	for i, s := range series {
		name := strings.Join(s.Name, "")
		if name == "" {
			name = "Series " + strconv.Itoa(i+1)
		}
		header = append(header, name)
	}
	out.Rows = append(out.Rows, header)
	for _, i := range idx {
		row := []string{cats[i]}
		for _, s := range series {
			v := ""
			for _, pt := range s.Values {
				if pt.Idx == i {
					v = pt.V
					break
				}
			}
			row = append(row, v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
