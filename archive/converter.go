// Package archive converts ZIP archives by handing every entry back to the
// engine and folding the results into one section per entry.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/internal/nest"
	"github.com/tsawler/markitdown/model"
)

// Metadata keys set on archive results.
const (
	MetaEntryCount  = "entry_count"
	MetaFailedCount = "failed_count"
)

// ErrEntryTooLarge is recorded for entries above Config.MaxEntrySize.
var ErrEntryTooLarge = errors.New("entry exceeds size limit")

// Delegate converts a single entry with the engine's full converter set.
type Delegate interface {
	ConvertStream(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error)
}

// Config bounds how much of an archive is converted.
type Config struct {
	// MaxEntries caps the number of file entries converted. Later entries
	// are listed as skipped.
	MaxEntries int

	// MaxEntrySize caps the uncompressed size of a single entry in bytes.
	MaxEntrySize int64

	// MaxDepth bounds nesting through archives and attachments.
	MaxDepth int
}

func (c Config) defaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.MaxEntrySize <= 0 {
		c.MaxEntrySize = 100 << 20
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 3
	}
	return c
}

// Converter converts ZIP archives.
type Converter struct {
	Delegate Delegate
	Config   Config
	Logger   logrus.FieldLogger
}

// NewConverter returns a Converter that converts entries through d.
func NewConverter(d Delegate, cfg Config, logger logrus.FieldLogger) *Converter {
	return &Converter{Delegate: d, Config: cfg.defaults(), Logger: logger}
}

func (c *Converter) Name() string { return "zip" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	switch info.BaseMIME() {
	case "application/zip", "application/x-zip-compressed":
		return true
	}
	return info.HasExtension(".zip")
}

// Accepts confirms the stream opens as a ZIP archive.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	size, err := model.StreamSize(s)
	if err != nil {
		return false
	}
	_, err = zip.NewReader(s, size)
	return err == nil
}

// Convert emits one section per file entry, in archive order. An entry
// that cannot be converted is recorded as a comment in its section and the
// remaining entries are still converted.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	if c.Delegate == nil {
		return nil, errors.New("archive converter has no delegate")
	}
	cfg := c.Config.defaults()
	size, err := model.StreamSize(s)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(s, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"converter": c.Name(), "source": info.Name()})

	nctx, nestErr := nest.Enter(ctx, cfg.MaxDepth)

	res := model.NewResult()
	name := info.Name()
	if name != "" {
		res.Title = name
	}

	var (
		raw     strings.Builder
		entries int
		failed  int
		skipped []string
	)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if entries >= cfg.MaxEntries {
			skipped = append(skipped, f.Name)
			continue
		}
		entries++

		elog := log.WithField("entry", f.Name)
		md := "## File: " + f.Name

		nested, err := c.convertEntry(nctx, f, cfg, nestErr)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failed++
			elog.WithError(err).Warn("entry conversion failed")
			md += "\n\n" + failureNote(f.Name, err)
			if err := addSection(res, md, f.Name); err != nil {
				return nil, err
			}
			continue
		}

		if body := strings.TrimSpace(nested.Markdown); body != "" {
			md += "\n\n" + body
		}
		if err := addSection(res, md, f.Name); err != nil {
			return nil, err
		}
		res.Artifacts.Adopt(nested.Artifacts, len(res.Segments)-1, f.Name)
		if nested.RawText != "" {
			raw.WriteString(nested.RawText)
			raw.WriteString("\n")
		}
		elog.Debug("entry converted")
	}

	if len(skipped) > 0 {
		log.WithField("skipped", len(skipped)).Warn("entry limit reached")
		md := fmt.Sprintf("<!-- Skipped %d entries after limit of %d: %s -->",
			len(skipped), cfg.MaxEntries, strings.Join(skipped, ", "))
		seg, err := model.NewSegment(md, model.KindMetadata, model.WithLabel("Skipped entries"))
		if err != nil {
			return nil, err
		}
		res.AddSegment(seg)
	}

	res.SetMeta(model.MetaTitleHint, res.Title)
	res.SetCount(MetaEntryCount, entries)
	res.SetCount(MetaFailedCount, failed)
	res.RawText = raw.String()
	return res, nil
}

func (c *Converter) convertEntry(ctx context.Context, f *zip.File, cfg Config, nestErr error) (*model.Result, error) {
	if nestErr != nil {
		return nil, nestErr
	}
	if f.UncompressedSize64 > uint64(cfg.MaxEntrySize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// The header size can lie, so the read is bounded as well.
	data, err := io.ReadAll(io.LimitReader(rc, cfg.MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	if int64(len(data)) > cfg.MaxEntrySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrEntryTooLarge, cfg.MaxEntrySize)
	}

	info := model.StreamInfo{Filename: path.Base(f.Name)}.Normalize()
	return c.Delegate.ConvertStream(ctx, bytes.NewReader(data), info)
}

func addSection(res *model.Result, md, entry string) error {
	seg, err := model.NewSegment(md, model.KindSection, model.WithLabel(entry), model.WithSource(entry))
	if err != nil {
		return err
	}
	res.AddSegment(seg)
	return nil
}

// failureNote is the visible placeholder for an entry that could not be
// converted. Both the entry name and the reason go through commentSafe.
func failureNote(entry string, err error) string {
	return fmt.Sprintf("<!-- Failed to convert %s: %s -->", commentSafe(entry), commentSafe(err.Error()))
}

// commentSafe collapses whitespace and breaks up every "--" so s cannot
// close an HTML comment.
func commentSafe(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}
