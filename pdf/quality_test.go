package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		pages     []string
		hasImages bool
		needsOCR  bool
	}{
		{"empty layer", []string{"", ""}, false, true},
		{"sparse text with images", []string{"Fig. 1"}, true, true},
		{"sparse text without images", []string{"Fig. 1"}, false, false},
		{"garbage glyphs", []string{"\uE001\uE002\uE003 ok"}, false, true},
		{"normal prose", []string{longText}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Score(tt.pages, tt.hasImages)
			assert.Equal(t, tt.needsOCR, q.NeedsOCR())
		})
	}
}

func TestScore_Metrics(t *testing.T) {
	q := Score([]string{"ab cd", "efgh"}, false)
	assert.Equal(t, 2, q.Pages)
	assert.Equal(t, 9, q.Chars)
	assert.InDelta(t, 4.5, q.CharsPerPage, 0.001)
	assert.InDelta(t, 1.0, q.PrintableRatio, 0.001)
	assert.InDelta(t, 1.0, q.WordlikeRatio, 0.001)
	assert.Equal(t, "4.5", q.Metadata()["chars_per_page"])
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\n\nb", normalizeText("a  \r\n\r\n\n  \nb\n"))
	assert.Equal(t, "", normalizeText(" \n\n"))
}

func TestCollectPages(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"page-10.png": "ten",
		"page-02.png": "two",
		"page-1.png":  "one",
		"input.pdf":   "ignored",
		"page-x.png":  "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	got, err := collectPages(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{got[0].Page, got[1].Page, got[2].Page})
	assert.Equal(t, "two", string(got[1].Data))
	assert.Equal(t, "image/png", got[2].ContentType)

	_, err = collectPages(t.TempDir())
	assert.Error(t, err)
}

func TestPopplerRasterizer_MissingBinary(t *testing.T) {
	p := PopplerRasterizer{Binary: "definitely-not-pdftoppm"}
	assert.False(t, p.Available())
	_, err := p.Rasterize(context.Background(), buildPDF("t", "x"), 0)
	assert.ErrorIs(t, err, ErrRasterizerUnavailable)
}

func TestPopplerRasterizer(t *testing.T) {
	p := PopplerRasterizer{TempDir: t.TempDir()}
	if !p.Available() {
		t.Skip("pdftoppm not installed")
	}
	got, err := p.Rasterize(context.Background(), buildPDF("t", "one", "two"), 36)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Page)

	left, err := os.ReadDir(p.TempDir)
	require.NoError(t, err)
	assert.Empty(t, left, "scratch directory must be removed")
}
