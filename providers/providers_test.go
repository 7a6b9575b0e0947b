package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsawler/markitdown/model"
)

func TestDocumentAnalysisEmpty(t *testing.T) {
	var nilAnalysis *DocumentAnalysis
	assert.True(t, nilAnalysis.Empty())
	assert.True(t, (&DocumentAnalysis{}).Empty())
	assert.True(t, (&DocumentAnalysis{Pages: []AnalyzedPage{{Number: 0, Text: "x"}}}).Empty())
	assert.True(t, (&DocumentAnalysis{Pages: []AnalyzedPage{{Number: 1}, {Number: 2, Text: " \n "}}}).Empty())
	assert.True(t, (&DocumentAnalysis{Tables: []AnalyzedTable{{Rows: [][]string{{"", " "}}}}}).Empty())
	assert.False(t, (&DocumentAnalysis{Pages: []AnalyzedPage{{Number: 1, Text: "Hello"}}}).Empty())
	assert.False(t, (&DocumentAnalysis{Tables: []AnalyzedTable{{Rows: [][]string{{"", "x"}}}}}).Empty())
	assert.False(t, (&DocumentAnalysis{Images: []AnalyzedImage{{Page: 1, Data: []byte{1}}}}).Empty())
}

func TestImageDescriptionEmpty(t *testing.T) {
	var d *ImageDescription
	assert.True(t, d.Empty())
	assert.False(t, (&ImageDescription{Text: "hi"}).Empty())
}

func TestTableAnchor(t *testing.T) {
	assert.Equal(t, "[[table:0]]", TableAnchor(0))
	assert.Equal(t, "[[table:12]]", TableAnchor(12))
}

func TestFuncAdapters(t *testing.T) {
	var u ImageUnderstanding = ImageUnderstandingFunc(func(_ context.Context, data []byte, _ model.StreamInfo) (*ImageDescription, error) {
		return &ImageDescription{Text: string(data)}, nil
	})
	d, err := u.Describe(context.Background(), []byte("abc"), model.StreamInfo{})
	assert.NoError(t, err)
	assert.Equal(t, "abc", d.Text)
}
