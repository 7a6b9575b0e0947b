// Package plaintext converts text-based inputs: prose and Markdown pass
// through, structured data (JSON, XML) is fenced, and delimited files (CSV,
// TSV) become a Markdown table.
package plaintext

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/internal/textenc"
	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/tables"
)

// Kind classifies a text input.
type Kind int

const (
	KindText Kind = iota
	KindMarkdown
	KindJSON
	KindXML
	KindCSV
	KindTSV
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindMarkdown: "markdown",
	KindJSON:     "json",
	KindXML:      "xml",
	KindCSV:      "csv",
	KindTSV:      "tsv",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var byExtension = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".log":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".json":     KindJSON,
	".jsonl":    KindJSON,
	".xml":      KindXML,
	".csv":      KindCSV,
	".tsv":      KindTSV,
}

var byMIME = map[string]Kind{
	"text/plain":                KindText,
	"text/markdown":             KindMarkdown,
	"text/x-markdown":           KindMarkdown,
	"application/json":          KindJSON,
	"application/x-ndjson":      KindJSON,
	"application/xml":           KindXML,
	"text/xml":                  KindXML,
	"text/csv":                  KindCSV,
	"text/tab-separated-values": KindTSV,
}

// Classify returns the kind named by info. Unknown text/* types are plain
// text.
func Classify(info model.StreamInfo) (Kind, bool) {
	if k, ok := byExtension[info.Extension]; ok {
		return k, true
	}
	mt := info.BaseMIME()
	if k, ok := byMIME[mt]; ok {
		return k, true
	}
	switch {
	case strings.HasSuffix(mt, "+json"):
		return KindJSON, true
	case strings.HasSuffix(mt, "+xml"):
		return KindXML, true
	case strings.HasPrefix(mt, "text/"):
		return KindText, true
	}
	return KindText, false
}

// Converter converts text inputs.
type Converter struct {
	Logger logrus.FieldLogger
}

// NewConverter returns a Converter.
func NewConverter(logger logrus.FieldLogger) *Converter {
	return &Converter{Logger: logger}
}

func (c *Converter) Name() string { return "plaintext" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	_, ok := Classify(info)
	return ok
}

// Accepts rejects streams that look binary.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	head := make([]byte, 4096)
	n, _ := io.ReadFull(s, head)
	return !bytes.Contains(head[:n], []byte{0})
}

// Convert decodes the input to UTF-8 and renders it by kind.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	text, err := textenc.Decode(data, info.Charset, info.MIMEType)
	if err != nil {
		return nil, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	kind, _ := Classify(info)
	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"converter": c.Name(), "kind": kind.String()})

	res := model.NewResult()
	res.RawText = text
	res.SetMeta("text_kind", kind.String())

	switch kind {
	case KindCSV, KindTSV:
		delim := ','
		if kind == KindTSV {
			delim = '\t'
		}
		rows, err := parseDelimited(text, delim)
		if err != nil {
			log.WithError(err).Debug("delimited parse failed, fencing as text")
			return res, addText(res, fence(text, ""), info)
		}
		return res, addTable(res, rows, info)
	case KindJSON:
		return res, addText(res, fence(prettyJSON(text), "json"), info)
	case KindXML:
		return res, addText(res, fence(text, "xml"), info)
	default:
		return res, addText(res, strings.TrimSpace(text), info)
	}
}

func addText(res *model.Result, md string, info model.StreamInfo) error {
	seg, err := model.NewSegment(md, model.KindSection, model.WithSource(info.Name()))
	if err != nil {
		return err
	}
	res.AddSegment(seg)
	return nil
}

func addTable(res *model.Result, rows [][]string, info model.StreamInfo) error {
	rows = tables.Normalize(rows)
	if rows == nil {
		return addText(res, "", info)
	}
	tbl := model.NewTableArtifact(rows, 1)
	tbl.Source = info.Name()
	tbl.Label = info.Name()

	seg, err := model.NewSegment(tables.Markdown(rows), model.KindTable,
		model.WithNumber(1),
		model.WithLabel(info.Name()),
		model.WithSource(info.Name()),
	)
	if err != nil {
		return err
	}
	if err := tbl.SetSegmentIndex(res.AddSegment(seg)); err != nil {
		return err
	}
	res.Artifacts.Tables = append(res.Artifacts.Tables, tbl)
	return nil
}

func parseDelimited(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	return rows, nil
}

// prettyJSON indents a single JSON document. Anything else, such as JSON
// lines, is returned unchanged.
func prettyJSON(text string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(strings.TrimSpace(text)), "", "  "); err != nil {
		return text
	}
	return out.String()
}

// fence wraps text in a code fence longer than any backtick run inside it.
func fence(text, lang string) string {
	text = strings.Trim(text, "\n")
	ticks := 3
	run := 0
	for _, r := range text {
		if r == '`' {
			run++
			if run >= ticks {
				ticks = run + 1
			}
			continue
		}
		run = 0
	}
	f := strings.Repeat("`", ticks)
	return f + lang + "\n" + text + "\n" + f
}
