// Package audio converts audio recordings to timed transcript segments
// through a MediaTranscription provider.
package audio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/providers"
)

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg", ".oga", ".opus", ".weba"}

// Converter transcribes audio files. Without a provider it accepts nothing.
type Converter struct {
	Transcriber providers.MediaTranscription
	Logger      logrus.FieldLogger
}

// NewConverter returns a Converter using t.
func NewConverter(t providers.MediaTranscription, logger logrus.FieldLogger) *Converter {
	return &Converter{Transcriber: t, Logger: logger}
}

func (c *Converter) Name() string { return "audio" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	if c.Transcriber == nil {
		return false
	}
	return info.HasExtension(audioExtensions...) || info.HasMIMEPrefix("audio/")
}

// Accepts confirms the stream is audio by its magic bytes.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	m, err := mimetype.DetectReader(s)
	if err != nil {
		return false
	}
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}

// Convert emits one audio segment per transcript span, or a single segment
// when the provider returns only text. A provider failure leaves a comment
// in place of the transcript.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if info.MIMEType == "" {
		info.MIMEType = mimetype.Detect(data).String()
	}

	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"converter": c.Name(), "source": info.Name()})

	res := model.NewResult()
	res.SetMeta("content_type", info.BaseMIME())

	tr, err := c.Transcriber.Transcribe(ctx, data, info)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).Warn("transcription failed")
	}
	if err != nil || tr == nil || (strings.TrimSpace(tr.Text) == "" && len(tr.Segments) == 0) {
		note := "<!-- No transcript available -->"
		if err != nil {
			note = "<!-- Transcription failed: " + strings.ReplaceAll(err.Error(), "--", "- -") + " -->"
		}
		seg, serr := model.NewSegment(note, model.KindAudio, model.WithLabel(info.Name()), model.WithSource(info.Name()))
		if serr != nil {
			return nil, serr
		}
		res.AddSegment(seg)
		return res, nil
	}

	if len(tr.Segments) == 0 {
		text := strings.TrimSpace(tr.Text)
		seg, err := model.NewSegment(text, model.KindAudio,
			model.WithNumber(1),
			model.WithLabel(info.Name()),
			model.WithSource(info.Name()),
		)
		if err != nil {
			return nil, err
		}
		res.AddSegment(seg)
		res.RawText = text
		return res, nil
	}

	var raw []string
	for i, span := range tr.Segments {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		start, end := seconds(span.Start), seconds(span.End)
		if end < start {
			end = start
		}
		seg, err := model.NewSegment(text, model.KindAudio,
			model.WithNumber(i+1),
			model.WithTimeRange(start, end),
			model.WithSource(info.Name()),
		)
		if err != nil {
			return nil, err
		}
		res.AddSegment(seg)
		raw = append(raw, text)
	}
	res.RawText = strings.Join(raw, "\n")
	if res.RawText == "" {
		res.RawText = strings.TrimSpace(tr.Text)
	}
	return res, nil
}

func seconds(f float64) time.Duration {
	if f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
