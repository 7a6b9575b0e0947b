package pages

import (
	"github.com/tsawler/markitdown/model"
)

// Emit flushes the accumulator into res as one segment of kind per page, in
// ascending page order, and binds every unbound table and image artifact of
// res to the segment of its page. It returns the segment index of each page.
// label may be nil.
func (a *Accumulator) Emit(res *model.Result, kind model.SegmentKind, label func(page int) string, source string) (map[int]int, error) {
	index := make(map[int]int)
	for _, p := range a.Flush() {
		opts := []model.SegmentOption{model.WithNumber(p.Number)}
		if label != nil {
			opts = append(opts, model.WithLabel(label(p.Number)))
		}
		if source != "" {
			opts = append(opts, model.WithSource(source))
		}
		seg, err := model.NewSegment(p.Markdown, kind, opts...)
		if err != nil {
			return nil, err
		}
		index[p.Number] = res.AddSegment(seg)
	}
	if err := Bind(res.Artifacts, index); err != nil {
		return nil, err
	}
	return index, nil
}

// Bind sets the segment back-reference of every unbound artifact whose page
// has a segment in index.
func Bind(arts *model.ConversionArtifacts, index map[int]int) error {
	if arts == nil {
		return nil
	}
	for _, t := range arts.Tables {
		if t.SegmentIndex() >= 0 {
			continue
		}
		if i, ok := index[t.PageNumber]; ok {
			if err := t.SetSegmentIndex(i); err != nil {
				return err
			}
		}
	}
	for _, img := range arts.Images {
		if img.SegmentIndex() >= 0 {
			continue
		}
		if i, ok := index[img.PageNumber]; ok {
			if err := img.SetSegmentIndex(i); err != nil {
				return err
			}
		}
	}
	return nil
}
