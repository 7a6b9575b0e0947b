package markitdown

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
)

// fakeConverter accepts inputs by extension and records each conversion in
// calls.
type fakeConverter struct {
	name   string
	ext    string
	reject bool
	err    error
	calls  *[]string
	result func(data []byte) *model.Result
}

func (f *fakeConverter) Name() string { return f.name }

func (f *fakeConverter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(f.ext)
}

// Accepts drains the stream so later callers depend on the engine
// rewinding it.
func (f *fakeConverter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	_, _ = io.Copy(io.Discard, s)
	return !f.reject
}

func (f *fakeConverter) Convert(_ context.Context, s model.Stream, _ model.StreamInfo) (*model.Result, error) {
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, err
	}
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result(data), nil
	}
	res := model.NewResult()
	res.AddSegment(model.MustSegment(string(data), model.KindSection, model.WithLabel(f.name)))
	res.RawText = string(data)
	return res, nil
}

func quietLogger() (logrus.FieldLogger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return l, hook
}

var notes = model.StreamInfo{Filename: "notes.txt"}

func TestRegister_PriorityAndStableTies(t *testing.T) {
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "generic-a"}, PriorityGenericFileFormat)
	md.Register(&fakeConverter{name: "specific-a"}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "generic-b"}, PriorityGenericFileFormat)
	md.Register(&fakeConverter{name: "specific-b"}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "middle"}, 5)

	var names []string
	for _, r := range md.Converters() {
		names = append(names, r.Converter.Name())
	}
	assert.Equal(t, []string{"specific-a", "specific-b", "middle", "generic-a", "generic-b"}, names)
}

func TestConvertStream_FirstAcceptingConverterWins(t *testing.T) {
	var calls []string
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "generic", ext: ".txt", calls: &calls}, PriorityGenericFileFormat)
	md.Register(&fakeConverter{name: "other", ext: ".pdf", calls: &calls}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "declines", ext: ".txt", reject: true, calls: &calls}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "specific", ext: ".txt", calls: &calls}, PrioritySpecificFileFormat)

	res, err := md.ConvertBytes(context.Background(), []byte("hello world"), notes)
	require.NoError(t, err)
	assert.Equal(t, []string{"specific"}, calls)
	assert.Equal(t, "hello world", res.Markdown, "stream must be rewound after Accepts")
	assert.Equal(t, "specific", res.Metadata[model.MetaConverter])
}

func TestConvertStream_FailingConverterFallsThrough(t *testing.T) {
	var calls []string
	log, hook := quietLogger()
	md := New(WithoutBuiltins(), WithLogger(log))
	md.Register(&fakeConverter{name: "broken", ext: ".txt", err: errors.New("bad header"), calls: &calls}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "fallback", ext: ".txt", calls: &calls}, PriorityGenericFileFormat)

	res, err := md.ConvertBytes(context.Background(), []byte("hello"), notes)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "fallback"}, calls)
	assert.Equal(t, "hello", res.Markdown)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["converter"] == "broken" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestConvertStream_Unsupported(t *testing.T) {
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "pdf", ext: ".pdf"}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "picky", ext: ".txt", reject: true}, PriorityGenericFileFormat)

	_, err := md.ConvertBytes(context.Background(), []byte("hello"), notes)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	var ue *UnsupportedFormatError
	require.ErrorAs(t, err, &ue)
	require.Len(t, ue.Attempts, 2)
	assert.Equal(t, "pdf", ue.Attempts[0].Converter)
	assert.Equal(t, "picky", ue.Attempts[1].Converter)
	for _, a := range ue.Attempts {
		assert.False(t, a.Accepted())
	}
	assert.Contains(t, err.Error(), "pdf, picky")
	assert.Contains(t, err.Error(), ".txt")
}

func TestConvertStream_ConversionError(t *testing.T) {
	cause := errors.New("truncated body")
	md := New(WithoutBuiltins(), WithLogger(logrus.New()))
	md.Register(&fakeConverter{name: "strict", ext: ".txt", err: cause}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "picky", ext: ".txt", reject: true}, PriorityGenericFileFormat)

	_, err := md.ConvertBytes(context.Background(), []byte("hello"), notes)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "strict", ce.Converter)
	assert.Contains(t, ce.Format, ".txt")
	require.Len(t, ce.Failed(), 1)
	assert.Len(t, ce.Attempts, 2)
}

func TestConvertStream_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "cancels", ext: ".txt", calls: &calls, err: context.Canceled}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "never", ext: ".txt", calls: &calls}, PriorityGenericFileFormat)

	_, err := md.ConvertBytes(ctx, []byte("hello"), notes)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cancels"}, calls, "cancellation must not fall through")

	cancel()
	_, err = md.ConvertBytes(ctx, []byte("hello"), notes)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertStream_ContentContradictsExtension(t *testing.T) {
	var calls []string
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "pdf", ext: ".pdf", calls: &calls}, PrioritySpecificFileFormat)
	md.Register(&fakeConverter{name: "text", ext: ".txt", calls: &calls}, PriorityGenericFileFormat)

	pdfBytes := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	res, err := md.ConvertBytes(context.Background(), pdfBytes, model.StreamInfo{Filename: "mislabeled.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf"}, calls)
	assert.Equal(t, "pdf", res.Metadata[model.MetaConverter])
}

func TestFinalize(t *testing.T) {
	md := New(WithoutBuiltins(), WithAnnotations(true))
	md.Register(&fakeConverter{name: "pages", ext: ".txt", result: func([]byte) *model.Result {
		res := model.NewResult()
		res.AddSegment(model.MustSegment("## Quarterly *review*\n\nBody", model.KindPage, model.WithNumber(1)))
		res.AddSegment(model.MustSegment("   ", model.KindPage, model.WithNumber(2)))
		idx := res.AddSegment(model.MustSegment("| a |\n| --- |\n| 1 |", model.KindTable, model.WithNumber(1)))
		tbl := model.NewTableArtifact([][]string{{"a"}, {"1"}}, 1)
		require.NoError(t, tbl.SetSegmentIndex(idx))
		res.Artifacts.Tables = append(res.Artifacts.Tables, tbl)
		return res
	}}, PrioritySpecificFileFormat)

	res, err := md.ConvertBytes(context.Background(), []byte("x"), notes)
	require.NoError(t, err)

	assert.Equal(t, "[page:1]\n## Quarterly *review*\n\nBody\n\n[table:1]\n| a |\n| --- |\n| 1 |", res.Markdown)
	assert.Equal(t, "2", res.Metadata[model.MetaPageCount])
	assert.Equal(t, "3", res.Metadata[model.MetaSegmentCount])
	assert.Equal(t, "1", res.Metadata[model.MetaTableCount])
	assert.Equal(t, "0", res.Metadata[model.MetaImageCount])
	assert.Equal(t, "Quarterly *review*", res.Title)
	assert.Equal(t, res.Title, res.Metadata[model.MetaTitleHint])
	_, ok := res.Metadata[model.MetaWorkspace]
	assert.False(t, ok)
}

func TestFinalize_PropertyTitleWins(t *testing.T) {
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "titled", ext: ".txt", result: func(data []byte) *model.Result {
		res := model.NewResult()
		res.AddSegment(model.MustSegment(string(data), model.KindSection))
		res.Title = "  " + strings.Repeat("é", MaxTitleRunes+20)
		res.RawText = "first line"
		return res
	}}, PrioritySpecificFileFormat)

	res, err := md.ConvertBytes(context.Background(), []byte("body"), notes)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", MaxTitleRunes), res.Title)
}

func TestInferTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"first prose line", "\n\n  Annual report  \nsecond", "Annual report"},
		{"skips comments and images", "<!-- note -->\n![fig](x.png)\n# Heading\n", "Heading"},
		{"skips tables and fences", "| a |\n```\ncode", "code"},
		{"strips emphasis", "**Bold title**", "Bold title"},
		{"truncates", strings.Repeat("x", 250), strings.Repeat("x", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTitle(tt.in))
		})
	}
}

func TestConvertFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("from disk"), 0o600))

	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "text", ext: ".txt"}, PrioritySpecificFileFormat)

	res, err := md.ConvertFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "from disk", res.Markdown)

	_, err = md.ConvertFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertReader_NonSeekable(t *testing.T) {
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "text", ext: ".txt"}, PrioritySpecificFileFormat)

	res, err := md.ConvertReader(context.Background(), io.LimitReader(strings.NewReader("piped input"), 100), notes)
	require.NoError(t, err)
	assert.Equal(t, "piped input", res.Markdown)
}

func TestConvertReader_Pipe(t *testing.T) {
	md := New(WithoutBuiltins())
	md.Register(&fakeConverter{name: "text", ext: ".txt"}, PrioritySpecificFileFormat)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	go func() {
		_, _ = pw.Write([]byte("through a pipe"))
		pw.Close()
	}()

	res, err := md.ConvertReader(context.Background(), pr, notes)
	require.NoError(t, err)
	assert.Equal(t, "through a pipe", res.Markdown)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"a.txt", "b.csv", "c.bin"} {
		body, ok := files[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestBuiltins(t *testing.T) {
	log, _ := quietLogger()
	md := New(WithLogger(log))
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		res, err := md.ConvertBytes(ctx, []byte("name,qty\napple,3\npear,5\n"), model.StreamInfo{Filename: "fruit.csv"})
		require.NoError(t, err)
		assert.Equal(t, "plaintext", res.Metadata[model.MetaConverter])
		assert.Contains(t, res.Markdown, "| apple | 3 |")
		assert.Equal(t, "1", res.Metadata[model.MetaTableCount])
	})

	t.Run("html", func(t *testing.T) {
		page := "<html><head><title>Quarterly Report</title></head>" +
			"<body><h1>Results</h1><p>Revenue grew.</p></body></html>"
		res, err := md.ConvertBytes(ctx, []byte(page), model.StreamInfo{Filename: "report.html"})
		require.NoError(t, err)
		assert.Equal(t, "html", res.Metadata[model.MetaConverter])
		assert.Equal(t, "Quarterly Report", res.Title)
		assert.Contains(t, res.Markdown, "# Results")
		assert.Contains(t, res.Markdown, "Revenue grew.")
	})

	t.Run("zip", func(t *testing.T) {
		data := buildZip(t, map[string]string{
			"a.txt": "Alpha notes",
			"b.csv": "k,v\nx,1\n",
			"c.bin": "\x00\x01\x02\x03",
		})
		res, err := md.ConvertBytes(ctx, data, model.StreamInfo{Filename: "bundle.zip"})
		require.NoError(t, err)
		assert.Equal(t, "zip", res.Metadata[model.MetaConverter])
		assert.Contains(t, res.Markdown, "## File: a.txt\n\nAlpha notes")
		assert.Contains(t, res.Markdown, "| x | 1 |")
		assert.Contains(t, res.Markdown, "<!-- Failed to convert c.bin:")
		assert.Equal(t, "1", res.Metadata[model.MetaTableCount])
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := md.ConvertBytes(ctx, []byte{0x00, 0x9f, 0x01, 0xfe, 0x00, 0x13}, model.StreamInfo{Filename: "blob.xyz"})
		require.ErrorIs(t, err, ErrUnsupportedFormat)

		var ue *UnsupportedFormatError
		require.ErrorAs(t, err, &ue)
		var names []string
		for _, a := range ue.Attempts {
			names = append(names, a.Converter)
		}
		for _, want := range []string{"pdf", "docx", "zip", "html", "plaintext"} {
			assert.Contains(t, names, want)
		}
	})
}
