//go:build !ocr

// Package ocr reads text from images with the Tesseract engine. This build
// has no Tesseract support; rebuild with "-tags ocr" to enable it.
package ocr

import "errors"

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("ocr: not enabled; rebuild with -tags ocr")

// Client is the disabled client. Every call fails with ErrOCRNotEnabled.
type Client struct{}

func New(Options) (*Client, error) { return nil, ErrOCRNotEnabled }

func (c *Client) Close() error { return nil }

func (c *Client) recognize([]byte) (string, error) { return "", ErrOCRNotEnabled }
