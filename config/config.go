// Package config loads engine settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/markitdown"
	"github.com/tsawler/markitdown/archive"
	"github.com/tsawler/markitdown/htmldoc"
	"github.com/tsawler/markitdown/ocr"
	"github.com/tsawler/markitdown/pdf"
	"github.com/tsawler/markitdown/storage"
)

// Image placeholder modes.
const (
	ImagesInline = "inline"
	ImagesStore  = "store"
)

// Storage backends.
const (
	BackendDir   = "dir"
	BackendMinio = "minio"
)

// Config holds the full engine configuration.
type Config struct {
	Annotate    bool   `yaml:"annotate"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // text | json
	Concurrency int    `yaml:"concurrency"`

	HTML    HTMLConfig    `yaml:"html"`
	PDF     PDFConfig     `yaml:"pdf"`
	Images  ImagesConfig  `yaml:"images"`
	Storage StorageConfig `yaml:"storage"`
	OCR     OCRConfig     `yaml:"ocr"`
	Archive ArchiveConfig `yaml:"archive"`
	Email   EmailConfig   `yaml:"email"`
}

// HTMLConfig configures HTML conversion.
type HTMLConfig struct {
	Navigation string `yaml:"navigation"` // none | explicit | standard | aggressive
}

// PDFConfig configures the PDF extractor.
type PDFConfig struct {
	Mode          string `yaml:"mode"` // auto | intelligence | embedded | image-only
	PageSnapshots bool   `yaml:"page_snapshots"`
	DPI           int    `yaml:"dpi"`
	Pdftoppm      string `yaml:"pdftoppm"`
	Locale        string `yaml:"locale"`
}

// ImagesConfig selects how image placeholders reference image bytes.
type ImagesConfig struct {
	Mode      string `yaml:"mode"` // inline | store
	Namespace string `yaml:"namespace"`
}

// StorageConfig selects where stored images go.
type StorageConfig struct {
	Backend string              `yaml:"backend"` // dir | minio
	Dir     string              `yaml:"dir"`
	Prefix  string              `yaml:"prefix"`
	Minio   storage.MinioConfig `yaml:"minio"`
}

// OCRConfig enables Tesseract image understanding. Mode is Tesseract's
// page segmentation number, 0 for automatic.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
	Mode      int      `yaml:"mode"`
}

// ArchiveConfig bounds ZIP conversion.
type ArchiveConfig struct {
	MaxEntries     int `yaml:"max_entries"`
	MaxEntrySizeMB int `yaml:"max_entry_size_mb"`
	MaxDepth       int `yaml:"max_depth"`
}

// EmailConfig bounds attachment conversion.
type EmailConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Concurrency: 4,
		HTML:        HTMLConfig{Navigation: htmldoc.NavigationExclusionStandard.String()},
		PDF: PDFConfig{
			Mode: pdf.ModeAuto.String(),
			DPI:  pdf.DefaultDPI,
		},
		Images: ImagesConfig{Mode: ImagesInline},
		Storage: StorageConfig{
			Backend: BackendDir,
			Dir:     "artifacts",
		},
		OCR: OCRConfig{Languages: []string{"eng"}},
		Archive: ArchiveConfig{
			MaxEntries:     1000,
			MaxEntrySizeMB: 100,
			MaxDepth:       3,
		},
		Email: EmailConfig{MaxDepth: 3},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format %q: use text or json", c.LogFormat)
	}
	if _, ok := htmldoc.ParseNavigationMode(c.HTML.Navigation); !ok {
		return fmt.Errorf("html.navigation %q: use none, explicit, standard or aggressive", c.HTML.Navigation)
	}
	if _, err := pdf.ParseMode(c.PDF.Mode); err != nil {
		return fmt.Errorf("pdf.mode: %w", err)
	}
	if c.PDF.DPI < 0 {
		return fmt.Errorf("pdf.dpi must be >= 0")
	}
	switch c.Images.Mode {
	case "", ImagesInline:
	case ImagesStore:
		switch c.Storage.Backend {
		case BackendDir:
			if c.Storage.Dir == "" {
				return fmt.Errorf("storage.dir is required for the dir backend")
			}
		case BackendMinio:
			if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
				return fmt.Errorf("storage.minio.endpoint and storage.minio.bucket are required")
			}
		default:
			return fmt.Errorf("storage.backend %q: use dir or minio", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("images.mode %q: use inline or store", c.Images.Mode)
	}
	if c.Archive.MaxEntries < 0 || c.Archive.MaxEntrySizeMB < 0 || c.Archive.MaxDepth < 0 {
		return fmt.Errorf("archive limits must be >= 0")
	}
	if c.Email.MaxDepth < 0 {
		return fmt.Errorf("email.max_depth must be >= 0")
	}
	return nil
}

// Logger returns a logger with the configured level and formatter.
func (c *Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l, nil
}

// Options maps the configuration to engine options. The returned closer
// releases the OCR engine and must be called once the engine is no longer
// used.
func (c *Config) Options(logger logrus.FieldLogger) ([]markitdown.Option, io.Closer, error) {
	mode, err := pdf.ParseMode(c.PDF.Mode)
	if err != nil {
		return nil, nil, err
	}
	nav, _ := htmldoc.ParseNavigationMode(c.HTML.Navigation)

	opts := []markitdown.Option{
		markitdown.WithLogger(logger),
		markitdown.WithAnnotations(c.Annotate),
		markitdown.WithConcurrency(c.Concurrency),
		markitdown.WithNavigation(nav),
		markitdown.WithPDFMode(mode),
		markitdown.WithPageSnapshots(c.PDF.PageSnapshots),
		markitdown.WithRasterizer(pdf.PopplerRasterizer{Binary: c.PDF.Pdftoppm}, c.PDF.DPI),
		markitdown.WithLocale(c.PDF.Locale),
		markitdown.WithArchiveLimits(archive.Config{
			MaxEntries:   c.Archive.MaxEntries,
			MaxEntrySize: int64(c.Archive.MaxEntrySizeMB) << 20,
			MaxDepth:     c.Archive.MaxDepth,
		}),
		markitdown.WithEmailDepth(c.Email.MaxDepth),
	}

	if c.Images.Mode == ImagesStore {
		store, err := c.store()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, markitdown.WithStore(store, c.Images.Namespace))
	}

	var closer io.Closer = nopCloser{}
	if c.OCR.Enabled {
		client, err := ocr.New(ocr.Options{Languages: c.OCR.Languages, Mode: ocr.SegMode(c.OCR.Mode)})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, markitdown.WithImageUnderstanding(client))
		closer = client
	}
	return opts, closer, nil
}

func (c *Config) store() (storage.Store, error) {
	switch c.Storage.Backend {
	case BackendMinio:
		return storage.NewMinioStore(c.Storage.Minio)
	default:
		return storage.NewDirStore(c.Storage.Dir, c.Storage.Prefix)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
