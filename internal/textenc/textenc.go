// Package textenc decodes text in declared or sniffed character sets to
// UTF-8.
package textenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts data to a UTF-8 string. label is the declared charset and
// may be empty. Without a usable label, valid UTF-8 is returned as is and
// anything else is decoded with the encoding sniffed from the content
// (contentType feeds the sniffer, as in an HTTP header).
func Decode(data []byte, label, contentType string) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):]), nil
	}
	if enc, ok := Lookup(label); ok {
		return decodeWith(enc, data)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	return decodeWith(enc, data)
}

// Lookup resolves a charset label. UTF-8 and unknown labels report false.
func Lookup(label string) (encoding.Encoding, bool) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return nil, false
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, false
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return nil, false
	}
	return enc, true
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}
