package xlsx

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tsawler/markitdown/model"
)

func buildWorkbook(t *testing.T) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Budget Sheet"))
	cells := map[string]any{
		"A1": "Region", "B1": "Q1", "C1": "Q2",
		"A2": "North", "B2": 1, "C2": 2,
		"B3": 3, "C3": 4,
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Budget Sheet", ref, v))
	}
	require.NoError(t, f.MergeCell("Budget Sheet", "A2", "A3"))

	_, err := f.NewSheet("Logos")
	require.NoError(t, err)
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 3, 3))))
	require.NoError(t, f.AddPictureFromBytes("Logos", "B2", &excelize.Picture{
		Extension: ".png",
		File:      img.Bytes(),
		Format:    &excelize.GraphicOptions{AltText: "Company logo"},
	}))
	require.NoError(t, f.SetDocProps(&excelize.DocProperties{Title: "FY Budget", Creator: "Finance"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestConvert_SheetsMergesAndPictures(t *testing.T) {
	r := buildWorkbook(t)
	c := NewConverter(nil, nil)
	require.True(t, c.Accepts(r, model.StreamInfo{}))

	res, err := c.Convert(context.Background(), r, model.StreamInfo{Filename: "budget.xlsx"})
	require.NoError(t, err)

	require.Len(t, res.Segments, 2)
	s1 := res.Segments[0]
	assert.Equal(t, model.KindSheet, s1.Kind())
	assert.Equal(t, "Budget Sheet", s1.Label())
	assert.Equal(t, "## Budget Sheet\n\n"+
		"| Region | Q1 | Q2 |\n"+
		"| --- | --- | --- |\n"+
		"| North | 1 | 2 |\n"+
		"| North | 3 | 4 |", s1.Markdown())

	s2 := res.Segments[1]
	n, _ := s2.Number()
	assert.Equal(t, 2, n)
	assert.True(t, strings.HasPrefix(s2.Markdown(), "## Logos\n\n![Company logo](data:image/png;base64,"), s2.Markdown())

	require.Len(t, res.Artifacts.Tables, 1)
	assert.Equal(t, 0, res.Artifacts.Tables[0].SegmentIndex())
	require.Len(t, res.Artifacts.Images, 1)
	assert.Equal(t, 1, res.Artifacts.Images[0].SegmentIndex())
	assert.Equal(t, "Logos!B2", res.Artifacts.Images[0].Source)

	assert.Equal(t, "FY Budget", res.Title)
	assert.Equal(t, "Finance", res.Metadata["author"])
	assert.Equal(t, "2", res.Metadata["sheet_count"])
}

func TestConvert_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewConverter(nil, nil).Convert(ctx, buildWorkbook(t), model.StreamInfo{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccepts(t *testing.T) {
	c := NewConverter(nil, nil)
	assert.True(t, c.AcceptsInfo(model.StreamInfo{Extension: ".xlsx"}))
	assert.True(t, c.AcceptsInfo(model.StreamInfo{MIMEType: MIMEType}))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".csv"}))
	assert.False(t, c.Accepts(bytes.NewReader([]byte("a,b\n1,2\n")), model.StreamInfo{}))
}
