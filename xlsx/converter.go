// Package xlsx converts Excel (.xlsx) workbooks to Markdown, one segment per
// worksheet.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/internal/ooxml"
	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/pages"
	"github.com/tsawler/markitdown/tables"
)

// MIMEType is the registered media type of .xlsx files.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const workbookPart = "xl/workbook.xml"

// Converter converts XLSX workbooks.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter that sends sheet pictures through p.
func NewConverter(p *images.Pipeline, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Logger: logger}
}

func (c *Converter) Name() string { return "xlsx" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".xlsx", ".xlsm") || info.BaseMIME() == MIMEType
}

// Accepts confirms the stream is a ZIP package with a workbook part.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	pkg, err := ooxml.Open(s, size)
	if err != nil {
		return false
	}
	return pkg.Has(workbookPart)
}

func (c *Converter) log() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// Convert renders each worksheet as a heading and a table. Merged ranges
// repeat their value into every covered cell. Pictures follow the table of
// their sheet.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	f, err := excelize.OpenReader(s)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	log := c.log().WithField("source", info.Name())
	acc := pages.New()
	res := model.NewResult()
	sheets := f.GetSheetList()

	var (
		pending []*model.ImageArtifact
		tokens  []string
		raw     strings.Builder
	)
	for i, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := i + 1
		acc.Ensure(n)
		acc.Write(n, "## "+name)

		rows, err := sheetRows(f, name)
		if err != nil {
			log.WithFields(logrus.Fields{"sheet": name, "error": err}).Warn("skipping unreadable sheet")
			continue
		}
		if len(rows) > 0 {
			art := model.NewTableArtifact(rows, n)
			art.Source = info.Name()
			art.Label = name
			res.Artifacts.Tables = append(res.Artifacts.Tables, art)
			acc.Write(n, tables.Markdown(rows))
			for _, r := range rows {
				raw.WriteString(strings.Join(r, " "))
				raw.WriteString("\n")
			}
		}

		for _, img := range sheetPictures(f, name, n, log) {
			res.Artifacts.Images = append(res.Artifacts.Images, img)
			pending = append(pending, img)
			tokens = append(tokens, acc.Insert(n, pages.TokenImage))
		}
	}

	mds, err := c.Images.ProcessAll(ctx, pending)
	if err != nil {
		return nil, err
	}
	for i, tok := range tokens {
		if err := acc.Resolve(tok, mds[i]); err != nil {
			return nil, err
		}
	}

	label := func(n int) string { return sheets[n-1] }
	if _, err := acc.Emit(res, model.KindSheet, label, info.Name()); err != nil {
		return nil, err
	}

	if props, err := f.GetDocProps(); err == nil && props != nil {
		res.Title = strings.TrimSpace(props.Title)
		res.SetMeta(model.MetaTitleHint, res.Title)
		res.SetMeta("author", props.Creator)
		res.SetMeta("subject", props.Subject)
		res.SetMeta("keywords", props.Keywords)
		res.SetMeta("description", props.Description)
	}
	res.SetCount("sheet_count", len(sheets))
	res.RawText = raw.String()
	return res, nil
}

// sheetRows returns the reconciled cell matrix of a sheet.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}

	ranges := make([]tables.MergeRange, 0, len(merges))
	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		ranges = append(ranges, tables.MergeRange{
			StartRow: r1 - 1,
			StartCol: c1 - 1,
			EndRow:   r2 - 1,
			EndCol:   c2 - 1,
			Value:    m.GetCellValue(),
		})
	}
	return tables.Normalize(tables.ApplyMerges(rows, ranges)), nil
}

// sheetPictures returns the pictures anchored on a sheet in cell order.
func sheetPictures(f *excelize.File, sheet string, n int, log logrus.FieldLogger) []*model.ImageArtifact {
	cells, err := f.GetPictureCells(sheet)
	if err != nil {
		log.WithFields(logrus.Fields{"sheet": sheet, "error": err}).Debug("no picture cells")
		return nil
	}
	var out []*model.ImageArtifact
	for _, cell := range cells {
		pics, err := f.GetPictures(sheet, cell)
		if err != nil {
			log.WithFields(logrus.Fields{"sheet": sheet, "cell": cell, "error": err}).Warn("skipping unreadable picture")
			continue
		}
		for _, p := range pics {
			img := model.NewImageArtifact(p.File, ooxml.ContentType("x"+p.Extension), n)
			img.Source = sheet + "!" + cell
			img.Label = img.Source
			if p.Format != nil && strings.TrimSpace(p.Format.AltText) != "" {
				img.Label = strings.TrimSpace(p.Format.AltText)
			}
			out = append(out, img)
		}
	}
	return out
}
