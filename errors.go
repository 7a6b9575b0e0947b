package markitdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsawler/markitdown/model"
)

// ErrUnsupportedFormat matches *UnsupportedFormatError with errors.Is.
var ErrUnsupportedFormat = errors.New("unsupported format")

// errNotAccepted records a converter that declined a candidate.
var errNotAccepted = errors.New("not accepted")

// Attempt is one (converter, candidate) pairing tried during dispatch.
type Attempt struct {
	Converter string
	Candidate model.StreamInfo
	Err       error
}

// Accepted reports whether the converter accepted the candidate before
// failing.
func (a Attempt) Accepted() bool {
	return !errors.Is(a.Err, errNotAccepted)
}

func (a Attempt) String() string {
	return fmt.Sprintf("%s %s: %v", a.Converter, a.Candidate, a.Err)
}

// UnsupportedFormatError is returned when no registered converter accepted
// any candidate descriptor of the input.
type UnsupportedFormatError struct {
	Info     model.StreamInfo
	Attempts []Attempt
}

func (e *UnsupportedFormatError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unsupported format %s", e.Info)
	if len(e.Attempts) > 0 {
		fmt.Fprintf(&sb, " (%d attempts", len(e.Attempts))
		names := make([]string, 0, len(e.Attempts))
		seen := make(map[string]bool)
		for _, a := range e.Attempts {
			if !seen[a.Converter] {
				seen[a.Converter] = true
				names = append(names, a.Converter)
			}
		}
		fmt.Fprintf(&sb, ": %s)", strings.Join(names, ", "))
	}
	return sb.String()
}

// Is reports whether target is ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ConversionError is returned when at least one converter accepted the
// input but none completed.
type ConversionError struct {
	// Format names the candidate the first accepting converter was given.
	Format    string
	Converter string
	Attempts  []Attempt
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s with %s: %v", e.Format, e.Converter, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Failed returns the attempts where a converter accepted and then failed.
func (e *ConversionError) Failed() []Attempt {
	var out []Attempt
	for _, a := range e.Attempts {
		if a.Accepted() {
			out = append(out, a)
		}
	}
	return out
}
