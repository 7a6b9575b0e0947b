// Package compose renders an ordered segment list as the final Markdown
// document.
//
// Composition is pure: the same segments and options always produce the
// same bytes.
package compose

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tsawler/markitdown/model"
)

// Options controls composition.
type Options struct {
	// Annotate prepends a bracketed annotation line to every segment.
	Annotate bool
}

// Compose joins the non-empty segments in list order, separated by one
// blank line, with trailing whitespace removed.
func Compose(segments []model.Segment, opts Options) string {
	var sb strings.Builder
	for _, seg := range segments {
		body := strings.Trim(seg.Markdown(), "\n")
		if strings.TrimSpace(body) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if opts.Annotate {
			sb.WriteString(Annotation(seg))
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimRight(body, " \t\r\n"))
	}
	return strings.TrimRight(sb.String(), " \t\r\n")
}

var tagEscaper = strings.NewReplacer("[", "(", "]", ")", "\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func sanitize(s string) string {
	return strings.Join(strings.Fields(tagEscaper.Replace(s)), " ")
}

// Annotation returns the machine-readable tag line for seg, such as
// "[page:3] [label:Summary] [source:report.pdf]".
func Annotation(seg model.Segment) string {
	var tags []string
	if n, ok := seg.Number(); ok {
		tags = append(tags, fmt.Sprintf("[%s:%d]", seg.Kind(), n))
	} else {
		tags = append(tags, "["+seg.Kind().String()+"]")
	}
	if start, end, ok := seg.TimeRange(); ok {
		tags = append(tags, "[time:"+Timecode(start)+"-"+Timecode(end)+"]")
	}
	if l := sanitize(seg.Label()); l != "" {
		tags = append(tags, "[label:"+l+"]")
	}
	if s := sanitize(seg.Source()); s != "" {
		tags = append(tags, "[source:"+s+"]")
	}

	md := seg.Metadata()
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		key, val := sanitize(k), sanitize(md[k])
		if key == "" || val == "" {
			continue
		}
		tags = append(tags, "["+key+":"+val+"]")
	}
	return strings.Join(tags, " ")
}

// Timecode formats d as HH:MM:SS.mmm.
func Timecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
