// Package markitdown converts documents to Markdown.
//
// An engine holds a registry of converters. Each input is sniffed into one
// or more candidate descriptors, and every candidate is offered to the
// converters in priority order until one completes:
//
//	md := markitdown.New()
//	res, err := md.ConvertFile(ctx, "report.pdf")
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(res.Markdown)
//
// The result also carries the ordered segments the Markdown was composed
// from and the raw tables and images extracted on the way.
package markitdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/archive"
	"github.com/tsawler/markitdown/audio"
	"github.com/tsawler/markitdown/compose"
	"github.com/tsawler/markitdown/docx"
	"github.com/tsawler/markitdown/email"
	"github.com/tsawler/markitdown/epubdoc"
	"github.com/tsawler/markitdown/format"
	"github.com/tsawler/markitdown/htmldoc"
	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/odt"
	"github.com/tsawler/markitdown/pdf"
	"github.com/tsawler/markitdown/plaintext"
	"github.com/tsawler/markitdown/pptx"
	"github.com/tsawler/markitdown/xlsx"
)

// Converter priorities. Lower values are tried first.
const (
	PrioritySpecificFileFormat = 0.0
	PriorityGenericFileFormat  = 10.0
)

// MaxTitleRunes caps an inferred title.
const MaxTitleRunes = 200

// Converter turns one kind of document into a Result.
type Converter interface {
	Name() string

	// AcceptsInfo is a cheap check on the descriptor alone.
	AcceptsInfo(info model.StreamInfo) bool

	// Accepts may read the stream to confirm the format. The stream is
	// rewound before and after the call.
	Accepts(s model.Stream, info model.StreamInfo) bool

	Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error)
}

// Registration is a converter and the priority it was registered with.
type Registration struct {
	Converter Converter
	Priority  float64
}

// MarkItDown is the conversion engine. It is safe for concurrent use.
type MarkItDown struct {
	opts     Options
	pipeline *images.Pipeline

	mu            sync.RWMutex
	registrations []Registration
}

// New returns an engine with the built-in converters registered.
func New(opts ...Option) *MarkItDown {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &MarkItDown{opts: o}
	m.pipeline = images.NewPipeline(
		images.WithUnderstanding(o.understanding),
		images.WithStore(o.store, o.namespace),
		images.WithConcurrency(o.concurrency),
		images.WithLogger(o.logger),
	)
	if o.builtins {
		m.registerBuiltins()
	}
	return m
}

func (m *MarkItDown) registerBuiltins() {
	o := m.opts
	log := o.logger

	p := pdf.NewConverter(m.pipeline, log.WithField("converter", "pdf"))
	p.Mode = o.pdfMode
	p.Intelligence = o.intelligence
	p.Rasterizer = o.rasterizer
	p.PageSnapshots = o.pageSnapshots
	p.DPI = o.dpi
	p.Locale = o.locale

	e := email.NewConverter(m.pipeline, m, log.WithField("converter", "email"))
	e.MaxDepth = o.emailDepth

	h := htmldoc.NewConverter(m.pipeline, log.WithField("converter", "html"))
	h.Navigation = o.navigation

	// Container formats built on ZIP come before the plain archive converter.
	m.Register(docx.NewConverter(m.pipeline, log.WithField("converter", "docx")), PrioritySpecificFileFormat)
	m.Register(pptx.NewConverter(m.pipeline, log.WithField("converter", "pptx")), PrioritySpecificFileFormat)
	m.Register(xlsx.NewConverter(m.pipeline, log.WithField("converter", "xlsx")), PrioritySpecificFileFormat)
	m.Register(epubdoc.NewConverter(m.pipeline, log.WithField("converter", "epub")), PrioritySpecificFileFormat)
	m.Register(odt.NewConverter(m.pipeline, log.WithField("converter", "odt")), PrioritySpecificFileFormat)
	m.Register(p, PrioritySpecificFileFormat)
	m.Register(e, PrioritySpecificFileFormat)
	m.Register(audio.NewConverter(o.transcriber, log.WithField("converter", "audio")), PrioritySpecificFileFormat)
	m.Register(images.NewConverter(m.pipeline), PrioritySpecificFileFormat)
	m.Register(archive.NewConverter(m, o.archive, log.WithField("converter", "zip")), PrioritySpecificFileFormat)

	m.Register(h, PriorityGenericFileFormat)
	m.Register(plaintext.NewConverter(log.WithField("converter", "plaintext")), PriorityGenericFileFormat)
}

// Register adds c at priority. Converters of equal priority are tried in
// registration order.
func (m *MarkItDown) Register(c Converter, priority float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations = append(m.registrations, Registration{Converter: c, Priority: priority})
	sort.SliceStable(m.registrations, func(i, j int) bool {
		return m.registrations[i].Priority < m.registrations[j].Priority
	})
}

// Converters returns the registry in dispatch order.
func (m *MarkItDown) Converters() []Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Registration(nil), m.registrations...)
}

// ConvertFile converts the file at path.
func (m *MarkItDown) ConvertFile(ctx context.Context, path string) (*model.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info := model.StreamInfo{Filename: filepath.Base(path), LocalPath: path}
	return m.ConvertStream(ctx, f, info)
}

// ConvertBytes converts an in-memory document.
func (m *MarkItDown) ConvertBytes(ctx context.Context, data []byte, info model.StreamInfo) (*model.Result, error) {
	return m.ConvertStream(ctx, bytes.NewReader(data), info)
}

// ConvertReader converts r. Readers that cannot seek, including files that
// are pipes or terminals, are read into memory first.
func (m *MarkItDown) ConvertReader(ctx context.Context, r io.Reader, info model.StreamInfo) (*model.Result, error) {
	if s, ok := r.(model.Stream); ok && seekable(s) {
		return m.ConvertStream(ctx, s, info)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return m.ConvertBytes(ctx, data, info)
}

// seekable reports whether s can really seek. *os.File implements Seek
// even when it wraps a pipe.
func seekable(s io.Seeker) bool {
	_, err := s.Seek(0, io.SeekCurrent)
	return err == nil
}

// ConvertStream converts s. It tries every candidate descriptor of the
// input against every registered converter, most confident candidate and
// lowest priority first, and returns the first completed result.
//
// It returns *UnsupportedFormatError when no converter accepted any
// candidate and *ConversionError when every accepting converter failed.
// Cancellation is returned as the context error.
func (m *MarkItDown) ConvertStream(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rewind(s); err != nil {
		return nil, err
	}
	candidates, err := format.Candidates(s, info)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff input: %w", err)
	}

	log := m.opts.logger.WithField("input", info.Name())
	regs := m.Converters()
	var attempts []Attempt
	failed := -1
	for _, cand := range candidates {
		for _, reg := range regs {
			c := reg.Converter
			if !c.AcceptsInfo(cand) {
				attempts = append(attempts, Attempt{Converter: c.Name(), Candidate: cand, Err: errNotAccepted})
				continue
			}
			if err := rewind(s); err != nil {
				return nil, err
			}
			accepted := c.Accepts(s, cand)
			if err := rewind(s); err != nil {
				return nil, err
			}
			if !accepted {
				attempts = append(attempts, Attempt{Converter: c.Name(), Candidate: cand, Err: errNotAccepted})
				continue
			}

			res, err := c.Convert(ctx, s, cand)
			if err == nil && res == nil {
				err = errors.New("converter returned no result")
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				log.WithFields(logrus.Fields{
					"converter": c.Name(),
					"candidate": cand.String(),
					"error":     err,
				}).Warn("converter failed, trying next")
				attempts = append(attempts, Attempt{Converter: c.Name(), Candidate: cand, Err: err})
				if failed < 0 {
					failed = len(attempts) - 1
				}
				continue
			}

			log.WithFields(logrus.Fields{
				"converter": c.Name(),
				"candidate": cand.String(),
			}).Debug("converted")
			return m.finalize(res, c.Name()), nil
		}
	}

	if failed >= 0 {
		a := attempts[failed]
		return nil, &ConversionError{
			Format:    describe(a.Candidate),
			Converter: a.Converter,
			Attempts:  attempts,
			Err:       a.Err,
		}
	}
	return nil, &UnsupportedFormatError{Info: info.Normalize(), Attempts: attempts}
}

func rewind(s io.Seeker) error {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind input: %w", err)
	}
	return nil
}

// describe names a candidate for error messages.
func describe(info model.StreamInfo) string {
	switch {
	case info.Extension != "" && info.BaseMIME() != "":
		return info.Extension + " (" + info.BaseMIME() + ")"
	case info.Extension != "":
		return info.Extension
	case info.BaseMIME() != "":
		return info.BaseMIME()
	default:
		return "unknown format"
	}
}

// finalize composes the Markdown and fills the engine-level metadata.
func (m *MarkItDown) finalize(res *model.Result, converter string) *model.Result {
	if res.Artifacts == nil {
		res.Artifacts = model.NewConversionArtifacts()
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]string)
	}

	res.Markdown = compose.Compose(res.Segments, compose.Options{Annotate: m.opts.annotate})

	if _, ok := res.Metadata[model.MetaPageCount]; !ok {
		if n := res.CountKind(model.KindPage) + res.CountKind(model.KindSlide) + res.CountKind(model.KindSheet); n > 0 {
			res.SetCount(model.MetaPageCount, n)
		}
	}
	res.SetCount(model.MetaSegmentCount, len(res.Segments))
	res.SetCount(model.MetaImageCount, len(res.Artifacts.Images))
	res.SetCount(model.MetaTableCount, len(res.Artifacts.Tables))
	res.SetMeta(model.MetaConverter, converter)
	if m.opts.store != nil {
		res.SetMeta(model.MetaWorkspace, m.opts.store.Workspace())
	}

	res.Title = truncateRunes(strings.TrimSpace(res.Title), MaxTitleRunes)
	if res.Title == "" {
		res.Title = InferTitle(res.RawText)
	}
	if res.Title == "" {
		res.Title = InferTitle(compose.Compose(res.Segments, compose.Options{}))
	}
	if _, ok := res.Metadata[model.MetaTitleHint]; !ok {
		res.SetMeta(model.MetaTitleHint, res.Title)
	}
	return res
}

// InferTitle returns the first line of text that reads as prose, stripped
// of Markdown heading and emphasis markers and capped at MaxTitleRunes.
func InferTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "<!--") || strings.HasPrefix(line, "![") ||
			strings.HasPrefix(line, "|") || strings.HasPrefix(line, "```") {
			continue
		}
		line = unwrapEmphasis(strings.TrimSpace(strings.TrimLeft(line, "#>")))
		if line == "" {
			continue
		}
		return truncateRunes(line, MaxTitleRunes)
	}
	return ""
}

func unwrapEmphasis(s string) string {
	for _, m := range []string{"**", "__", "*", "_"} {
		if len(s) > 2*len(m) && strings.HasPrefix(s, m) && strings.HasSuffix(s, m) {
			return strings.TrimSpace(s[len(m) : len(s)-len(m)])
		}
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
