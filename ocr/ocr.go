//go:build ocr

// Package ocr reads text from images with the Tesseract engine through
// gosseract. Tesseract and its language data must be installed, for
// example with "apt-get install tesseract-ocr" or "brew install tesseract".
package ocr

import (
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps one Tesseract handle. Tesseract is not reentrant, so calls
// are serialized and a Client may be shared by concurrent conversions.
type Client struct {
	mu sync.Mutex
	tc *gosseract.Client
}

// New starts a Tesseract handle. The client must be closed.
func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	tc := gosseract.NewClient()
	if err := tc.SetLanguage(opts.Languages...); err != nil {
		tc.Close()
		return nil, fmt.Errorf("ocr: languages %v: %w", opts.Languages, err)
	}
	if err := tc.SetPageSegMode(gosseract.PageSegMode(opts.Mode)); err != nil {
		tc.Close()
		return nil, fmt.Errorf("ocr: segmentation mode %d: %w", opts.Mode, err)
	}
	return &Client{tc: tc}, nil
}

// Close releases the handle. Further calls fail with ErrClosed.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tc == nil {
		return nil
	}
	err := c.tc.Close()
	c.tc = nil
	return err
}

func (c *Client) recognize(data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tc == nil {
		return "", ErrClosed
	}
	if err := c.tc.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("ocr: load image: %w", err)
	}
	text, err := c.tc.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}
	return text, nil
}
