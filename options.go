package markitdown

import (
	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/archive"
	"github.com/tsawler/markitdown/htmldoc"
	"github.com/tsawler/markitdown/pdf"
	"github.com/tsawler/markitdown/providers"
	"github.com/tsawler/markitdown/storage"
)

// Options holds engine configuration. It is built by New from Option values.
type Options struct {
	logger   logrus.FieldLogger
	annotate bool
	builtins bool

	// Providers. Any of them may be nil.
	intelligence  providers.DocumentIntelligence
	understanding providers.ImageUnderstanding
	transcriber   providers.MediaTranscription

	// Image placeholders
	store       storage.Store
	namespace   string
	concurrency int

	// PDF extraction
	pdfMode       pdf.Mode
	pageSnapshots bool
	rasterizer    pdf.Rasterizer
	dpi           int
	locale        string

	// Containers
	archive    archive.Config
	emailDepth int

	navigation htmldoc.NavigationExclusionMode
}

// defaultOptions returns the options New starts from.
func defaultOptions() Options {
	return Options{
		logger:     logrus.StandardLogger(),
		builtins:   true,
		pdfMode:    pdf.ModeAuto,
		rasterizer: pdf.PopplerRasterizer{},
		dpi:        pdf.DefaultDPI,
		emailDepth: 3,
		navigation: htmldoc.NavigationExclusionStandard,
	}
}

// Option configures a MarkItDown engine.
type Option func(*Options)

// WithLogger sets the logger handed to every built-in converter.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAnnotations prepends a bracketed annotation line to every segment of
// the composed Markdown.
func WithAnnotations(on bool) Option {
	return func(o *Options) { o.annotate = on }
}

// WithoutBuiltins starts with an empty registry. Converters are then added
// with Register.
func WithoutBuiltins() Option {
	return func(o *Options) { o.builtins = false }
}

// WithDocumentIntelligence sets the layout analysis provider used by the
// PDF converter.
func WithDocumentIntelligence(p providers.DocumentIntelligence) Option {
	return func(o *Options) { o.intelligence = p }
}

// WithImageUnderstanding enables captioning and OCR of every image.
func WithImageUnderstanding(p providers.ImageUnderstanding) Option {
	return func(o *Options) { o.understanding = p }
}

// WithTranscription enables the audio converter.
func WithTranscription(p providers.MediaTranscription) Option {
	return func(o *Options) { o.transcriber = p }
}

// WithStore persists image bytes to s under namespace. Placeholders then
// link to the stored reference instead of an inline data URI.
func WithStore(s storage.Store, namespace string) Option {
	return func(o *Options) {
		o.store = s
		o.namespace = namespace
	}
}

// WithConcurrency bounds how many images are enriched at once.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.concurrency = n }
}

// WithPDFMode forces a PDF extraction strategy.
func WithPDFMode(m pdf.Mode) Option {
	return func(o *Options) { o.pdfMode = m }
}

// WithPageSnapshots appends a rendered snapshot to PDF pages that carry no
// image of their own.
func WithPageSnapshots(on bool) Option {
	return func(o *Options) { o.pageSnapshots = on }
}

// WithRasterizer replaces the pdftoppm rasterizer. A nil rasterizer disables
// rasterization.
func WithRasterizer(r pdf.Rasterizer, dpi int) Option {
	return func(o *Options) {
		o.rasterizer = r
		if dpi > 0 {
			o.dpi = dpi
		}
	}
}

// WithLocale passes a locale hint to the document intelligence provider.
func WithLocale(locale string) Option {
	return func(o *Options) { o.locale = locale }
}

// WithArchiveLimits bounds ZIP conversion. Zero fields keep their defaults.
func WithArchiveLimits(cfg archive.Config) Option {
	return func(o *Options) { o.archive = cfg }
}

// WithEmailDepth bounds how deeply email attachments are converted.
func WithEmailDepth(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.emailDepth = n
		}
	}
}

// WithNavigation sets how aggressively HTML navigation is stripped.
func WithNavigation(m htmldoc.NavigationExclusionMode) Option {
	return func(o *Options) { o.navigation = m }
}
