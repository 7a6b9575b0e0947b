package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultDPI is the resolution pages are rendered at when none is set.
const DefaultDPI = 150

// ErrRasterizerUnavailable is returned when the rasterizer binary cannot be
// found.
var ErrRasterizerUnavailable = errors.New("pdf rasterizer unavailable")

// PageImage is one rendered page.
type PageImage struct {
	Page        int
	Data        []byte
	ContentType string
}

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, dpi int) ([]PageImage, error)
}

// PopplerRasterizer renders pages with poppler's pdftoppm. Work happens in
// a temporary directory removed before Rasterize returns.
type PopplerRasterizer struct {
	// Binary is the pdftoppm executable. Empty means "pdftoppm" on PATH.
	Binary string

	// TempDir is the parent of the scratch directory. Empty means the
	// system default.
	TempDir string
}

// Available reports whether the pdftoppm binary can be found.
func (p PopplerRasterizer) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p PopplerRasterizer) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pdftoppm"
}

// Rasterize renders data to PNG images, one per page, in page order.
func (p PopplerRasterizer) Rasterize(ctx context.Context, data []byte, dpi int) ([]PageImage, error) {
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizerUnavailable, err)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir, err := os.MkdirTemp(p.TempDir, "markitdown-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-r", strconv.Itoa(dpi), "-png", in, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return collectPages(dir)
}

// pdftoppm zero-pads page numbers to the width of the page count.
var pageFile = regexp.MustCompile(`^page-(\d+)\.png$`)

// collectPages reads the rendered page files in dir in page order.
func collectPages(dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []PageImage
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %d: %w", n, err)
		}
		out = append(out, PageImage{Page: n, Data: data, ContentType: "image/png"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	if len(out) == 0 {
		return nil, errors.New("pdftoppm produced no pages")
	}
	return out, nil
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, data []byte, dpi int) ([]PageImage, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, data []byte, dpi int) ([]PageImage, error) {
	return f(ctx, data, dpi)
}
