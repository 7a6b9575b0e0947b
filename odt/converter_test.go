package odt

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
)

const odfNS = `xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" ` +
	`xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0" ` +
	`xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" ` +
	`xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" ` +
	`xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0" ` +
	`xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0" ` +
	`xmlns:svg="urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0" ` +
	`xmlns:xlink="http://www.w3.org/1999/xlink" ` +
	`xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
	`xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0"`

// buildODT creates an in-memory ODT whose content.xml has the given
// automatic styles and body. extra holds additional package parts.
func buildODT(t *testing.T, autoStyles, body string, extra map[string][]byte) *bytes.Reader {
	t.Helper()

	parts := map[string][]byte{
		"META-INF/manifest.xml": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0">
  <manifest:file-entry manifest:full-path="/" manifest:media-type="` + MIMEType + `"/>
</manifest:manifest>`),
		"content.xml": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-content ` + odfNS + `>
<office:automatic-styles>` + autoStyles + `</office:automatic-styles>
<office:body><office:text>` + body + `</office:text></office:body>
</office:document-content>`),
	}
	for k, v := range extra {
		parts[k] = v
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// The mimetype entry comes first, stored uncompressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePart, Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(MIMEType))
	require.NoError(t, err)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func p(text string) string {
	return `<text:p>` + text + `</text:p>`
}

func convert(t *testing.T, r *bytes.Reader) *model.Result {
	t.Helper()
	c := NewConverter(nil, nil)
	require.True(t, c.Accepts(r, model.StreamInfo{}))
	_, err := r.Seek(0, 0)
	require.NoError(t, err)
	res, err := c.Convert(context.Background(), r, model.StreamInfo{Filename: "report.odt"})
	require.NoError(t, err)
	return res
}

func TestConvert_FormattingListsAndLinks(t *testing.T) {
	styles := `<style:style style:name="T1" style:family="text"><style:text-properties fo:font-weight="bold"/></style:style>` +
		`<style:style style:name="T2" style:family="text"><style:text-properties fo:font-style="italic"/></style:style>` +
		`<style:style style:name="P1" style:family="paragraph" style:parent-style-name="Standard">` +
		`<style:paragraph-properties fo:break-before="page"/></style:style>` +
		`<text:list-style style:name="L1">` +
		`<text:list-level-style-number text:level="1" style:num-format="1"/>` +
		`<text:list-level-style-bullet text:level="2" text:bullet-char="•"/>` +
		`</text:list-style>`
	body := `<text:h text:style-name="Heading_20_1" text:outline-level="1">Quarterly Report</text:h>` +
		`<text:p text:style-name="Standard">Sales were <text:span text:style-name="T1">str</text:span>` +
		`<text:span text:style-name="T1">ong</text:span> this <text:span text:style-name="T2">quarter</text:span>.</text:p>` +
		p(`<text:a xlink:type="simple" xlink:href="https://example.com/details">Details</text:a>`) +
		`<text:list text:style-name="L1">` +
		`<text:list-item>` + p("First") + `</text:list-item>` +
		`<text:list-item>` + p("Second") +
		`<text:list><text:list-item>` + p("Nested") + `</text:list-item></text:list>` +
		`</text:list-item></text:list>` +
		`<text:p text:style-name="P1">Next<text:s text:c="2"/>page</text:p>`

	res := convert(t, buildODT(t, styles, body, nil))

	require.Len(t, res.Segments, 2)
	seg := res.Segments[0]
	assert.Equal(t, model.KindPage, seg.Kind())
	n, ok := seg.Number()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, "report.odt", seg.Source())
	assert.Equal(t, "# Quarterly Report\n\n"+
		"Sales were **strong** this *quarter*.\n\n"+
		"[Details](https://example.com/details)\n\n"+
		"1. First\n\n"+
		"2. Second\n\n"+
		"  - Nested", seg.Markdown())
	assert.Equal(t, "Next  page", res.Segments[1].Markdown())

	assert.Equal(t, "Quarterly Report", res.Title)
	assert.Equal(t, "Quarterly Report", res.Metadata[model.MetaTitleHint])
	assert.True(t, strings.HasPrefix(res.RawText, "Quarterly Report\nSales were strong this quarter.\nDetails\n"), res.RawText)
}

func TestConvert_TablesPagesAndImages(t *testing.T) {
	table := `<table:table table:name="Sales">` +
		`<table:table-column table:number-columns-repeated="3"/>` +
		`<table:table-header-rows><table:table-row>` +
		`<table:table-cell table:number-columns-spanned="2">` + p("Region") + `</table:table-cell>` +
		`<table:covered-table-cell/>` +
		`<table:table-cell>` + p("Total") + `</table:table-cell>` +
		`</table:table-row></table:table-header-rows>` +
		`<table:table-row>` +
		`<table:table-cell table:number-rows-spanned="2">` + p("North") + `</table:table-cell>` +
		`<table:table-cell>` + p("Q1") + `</table:table-cell>` +
		`<table:table-cell>` + p("10") + `</table:table-cell>` +
		`</table:table-row>` +
		`<table:table-row>` +
		`<table:covered-table-cell/>` +
		`<table:table-cell>` + p("Q2") + `</table:table-cell>` +
		`<table:table-cell>` + p("12") + `</table:table-cell>` +
		`</table:table-row>` +
		`</table:table>`
	body := table +
		`<text:soft-page-break/>` +
		p(`After the break <draw:frame draw:name="Image1"><svg:desc>Company logo</svg:desc>`+
			`<draw:image xlink:href="Pictures/logo.png"/></draw:frame>`)
	meta := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta ` + odfNS + `><office:meta>
  <dc:title>Annual Summary</dc:title>
  <meta:initial-creator>Ada</meta:initial-creator>
  <dc:creator>Grace</dc:creator>
  <meta:keyword>sales</meta:keyword>
  <meta:keyword>north</meta:keyword>
</office:meta></office:document-meta>`

	res := convert(t, buildODT(t, "", body, map[string][]byte{
		"Pictures/logo.png": tinyPNG(t),
		"meta.xml":          []byte(meta),
	}))

	require.Len(t, res.Segments, 2)
	assert.Equal(t, "| Region | Region | Total |\n"+
		"| --- | --- | --- |\n"+
		"| North | Q1 | 10 |\n"+
		"| North | Q2 | 12 |", res.Segments[0].Markdown())
	assert.True(t, strings.HasPrefix(res.Segments[1].Markdown(),
		"After the break ![Company logo](data:image/png;base64,"), res.Segments[1].Markdown())

	require.Len(t, res.Artifacts.Tables, 1)
	tbl := res.Artifacts.Tables[0]
	assert.Equal(t, "Sales", tbl.Label)
	assert.Equal(t, 1, tbl.PageNumber)
	assert.Equal(t, "report.odt", tbl.Source)

	require.Len(t, res.Artifacts.Images, 1)
	img := res.Artifacts.Images[0]
	assert.Equal(t, "Company logo", img.Label)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, 2, img.PageNumber)
	assert.Equal(t, "Pictures/logo.png", img.Source)

	assert.Equal(t, "Annual Summary", res.Title)
	assert.Equal(t, "Ada", res.Metadata["author"])
	assert.Equal(t, "sales, north", res.Metadata["keywords"])
	assert.Equal(t, "Annual Summary", res.Artifacts.Metadata["title"])
}

func TestConvert_ContinuedNumbering(t *testing.T) {
	styles := `<text:list-style style:name="L1">` +
		`<text:list-level-style-number text:level="1" style:num-format="1" text:start-value="4"/>` +
		`</text:list-style>`
	body := `<text:list text:style-name="L1">` +
		`<text:list-item>` + p("Four") + `</text:list-item>` +
		`<text:list-item>` + p("Five") + `</text:list-item>` +
		`</text:list>` +
		p("Interlude") +
		`<text:list text:style-name="L1" text:continue-numbering="true">` +
		`<text:list-item>` + p("Six") + `</text:list-item>` +
		`</text:list>` +
		`<text:list text:style-name="L1">` +
		`<text:list-item text:start-value="9">` + p("Nine") + `</text:list-item>` +
		`</text:list>`

	res := convert(t, buildODT(t, styles, body, nil))
	require.Len(t, res.Segments, 1)
	assert.Equal(t, "4. Four\n\n5. Five\n\nInterlude\n\n6. Six\n\n9. Nine", res.Segments[0].Markdown())
}

func TestConvert_HeadingFromParentStyle(t *testing.T) {
	styles := `<style:style style:name="P3" style:family="paragraph" style:parent-style-name="Heading_20_2"/>`
	body := `<text:p text:style-name="P3">Background</text:p>` + p("Text")

	res := convert(t, buildODT(t, styles, body, nil))
	assert.Equal(t, "## Background\n\nText", res.Segments[0].Markdown())
	assert.Equal(t, "Background", res.Title)
}

func TestConverter_Accepts(t *testing.T) {
	c := NewConverter(nil, nil)

	assert.True(t, c.AcceptsInfo(model.StreamInfo{Extension: ".odt"}))
	assert.True(t, c.AcceptsInfo(model.StreamInfo{MIMEType: MIMEType}))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".docx"}))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:document/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	assert.False(t, c.Accepts(bytes.NewReader(buf.Bytes()), model.StreamInfo{}))

	assert.False(t, c.Accepts(bytes.NewReader([]byte("plain text")), model.StreamInfo{}))
}

func TestConvert_MalformedOptionalPartsAreLogged(t *testing.T) {
	r := buildODT(t, "", p("Hello"), map[string][]byte{
		stylesPart: []byte(`<office:document-styles ` + odfNS + `><office:styles>`),
		metaPart:   []byte(`<office:document-meta ` + odfNS + `><office:meta><dc:title>Cut`),
	})
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	res, err := NewConverter(nil, logger).Convert(context.Background(), r, model.StreamInfo{Filename: "cut.odt"})
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, "Hello", res.Segments[0].Markdown())
	assert.Empty(t, res.Title)

	var parts []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel {
			parts = append(parts, e.Data[logrus.ErrorKey].(error).Error())
		}
	}
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], stylesPart)
	assert.Contains(t, parts[1], metaPart)
}

func TestOpen_MissingOptionalParts(t *testing.T) {
	r := buildODT(t, "", p("Hello"), nil)
	rd, err := Open(r, r.Size())
	require.NoError(t, err)
	assert.Empty(t, rd.Skipped())
}

func TestConvert_Cancelled(t *testing.T) {
	r := buildODT(t, "", p("Hello"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewConverter(nil, nil).Convert(ctx, r, model.StreamInfo{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuiltInHeading(t *testing.T) {
	tests := map[string]int{
		"Heading_20_1": 1,
		"Heading 3":    3,
		"heading4":     4,
		"Title":        1,
		"Subtitle":     2,
		"Standard":     0,
		"Heading":      0,
	}
	for name, want := range tests {
		assert.Equal(t, want, builtInHeading(name), name)
	}
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", collapseSpace("a  b\n\t c"))
	assert.Equal(t, " x ", collapseSpace("\n  x\n"))
	assert.Equal(t, "plain", collapseSpace("plain"))
}
