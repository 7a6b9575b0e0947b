package epubdoc

import (
	"encoding/xml"
	"errors"
)

var (
	ErrNoContainer      = errors.New("epub: missing META-INF/container.xml")
	ErrInvalidContainer = errors.New("epub: invalid container.xml")
	ErrNoRootfile       = errors.New("epub: no rootfile found in container.xml")
)

const (
	containerPath = "META-INF/container.xml"
	opfMediaType  = "application/oebps-package+xml"
)

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer returns the package document path from container.xml.
func (b *book) parseContainer() (string, error) {
	if !b.has(containerPath) {
		return "", ErrNoContainer
	}
	data, err := b.read(containerPath)
	if err != nil {
		return "", err
	}
	var c struct {
		Rootfiles []rootfile `xml:"rootfiles>rootfile"`
	}
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", ErrInvalidContainer
	}
	if p := pickRootfile(c.Rootfiles); p != "" {
		return p, nil
	}
	return "", ErrNoRootfile
}

// pickRootfile prefers the first rootfile typed as an OPF package, or
// untyped, and otherwise takes the first one listed.
func pickRootfile(rfs []rootfile) string {
	for _, rf := range rfs {
		if rf.FullPath != "" && (rf.MediaType == opfMediaType || rf.MediaType == "") {
			return rf.FullPath
		}
	}
	if len(rfs) > 0 {
		return rfs[0].FullPath
	}
	return ""
}
