package epubdoc

import (
	"encoding/xml"
	"errors"
	"path"
	"strings"
)

// ErrDRMProtected is returned for books whose content is encrypted.
var ErrDRMProtected = errors.New("epub: DRM-protected content cannot be processed")

const (
	rightsPath     = "META-INF/rights.xml"
	encryptionPath = "META-INF/encryption.xml"
)

type encryptionXML struct {
	XMLName xml.Name `xml:"encryption"`
	Data    []struct {
		Method struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
		Reference struct {
			URI string `xml:"URI,attr"`
		} `xml:"CipherData>CipherReference"`
	} `xml:"EncryptedData"`
}

// checkForDRM rejects books that carry Adobe rights or list an encrypted
// content document. Font obfuscation alone is allowed, and an unreadable
// encryption.xml counts as DRM.
func (b *book) checkForDRM() error {
	if b.has(rightsPath) {
		return ErrDRMProtected
	}
	if !b.has(encryptionPath) {
		return nil
	}
	data, err := b.read(encryptionPath)
	if err != nil {
		return ErrDRMProtected
	}
	var enc encryptionXML
	if err := xml.Unmarshal(data, &enc); err != nil {
		return ErrDRMProtected
	}
	for _, d := range enc.Data {
		if !obfuscatedFont(d.Method.Algorithm) && encryptedContent(d.Reference.URI) {
			return ErrDRMProtected
		}
	}
	return nil
}

// obfuscatedFont reports the IDPF and Adobe font mangling algorithms.
func obfuscatedFont(alg string) bool {
	return strings.Contains(alg, "obfuscation") &&
		(strings.Contains(alg, "idpf.org") || strings.Contains(alg, "adobe.com"))
}

func encryptedContent(uri string) bool {
	switch strings.ToLower(path.Ext(uri)) {
	case ".xhtml", ".html", ".htm", ".xml", ".css":
		return true
	}
	return false
}
