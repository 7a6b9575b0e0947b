package audio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/markitdown/model"
	"github.com/tsawler/markitdown/providers"
)

func wav() []byte {
	b := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00")
	return append(b, make([]byte, 32)...)
}

func TestConvert_TimedSegments(t *testing.T) {
	var gotInfo model.StreamInfo
	tr := providers.MediaTranscriptionFunc(func(_ context.Context, data []byte, info model.StreamInfo) (*providers.Transcript, error) {
		gotInfo = info
		return &providers.Transcript{
			Text: "Hello. Welcome back.",
			Segments: []providers.TranscriptSegment{
				{Start: 0, End: 1.5, Text: " Hello. "},
				{Start: 1.5, End: 1.5, Text: "  "},
				{Start: 1.5, End: 3.25, Text: "Welcome back."},
			},
		}, nil
	})
	c := NewConverter(tr, nil)

	res, err := c.Convert(context.Background(), bytes.NewReader(wav()), model.StreamInfo{Filename: "talk.wav"})
	require.NoError(t, err)

	require.Len(t, res.Segments, 2)
	first := res.Segments[0]
	assert.Equal(t, model.KindAudio, first.Kind())
	assert.Equal(t, "Hello.", first.Markdown())
	start, end, ok := first.TimeRange()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), start)
	assert.Equal(t, 1500*time.Millisecond, end)

	n, ok := res.Segments[1].Number()
	require.True(t, ok)
	assert.Equal(t, 3, n)
	_, end, _ = res.Segments[1].TimeRange()
	assert.Equal(t, 3250*time.Millisecond, end)

	assert.Equal(t, "Hello.\nWelcome back.", res.RawText)
	assert.Contains(t, gotInfo.MIMEType, "wav")
}

func TestConvert_TextOnly(t *testing.T) {
	tr := providers.MediaTranscriptionFunc(func(context.Context, []byte, model.StreamInfo) (*providers.Transcript, error) {
		return &providers.Transcript{Text: "  just text  "}, nil
	})
	res, err := NewConverter(tr, nil).Convert(context.Background(), bytes.NewReader(wav()), model.StreamInfo{Filename: "memo.wav"})
	require.NoError(t, err)

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "just text", res.Segments[0].Markdown())
	assert.Equal(t, "memo.wav", res.Segments[0].Label())
	_, _, timed := res.Segments[0].TimeRange()
	assert.False(t, timed)
}

func TestConvert_ProviderFailure(t *testing.T) {
	tr := providers.MediaTranscriptionFunc(func(context.Context, []byte, model.StreamInfo) (*providers.Transcript, error) {
		return nil, errors.New("quota exceeded")
	})
	res, err := NewConverter(tr, nil).Convert(context.Background(), bytes.NewReader(wav()), model.StreamInfo{})
	require.NoError(t, err)

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "<!-- Transcription failed: quota exceeded -->", res.Segments[0].Markdown())
}

func TestConvert_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := providers.MediaTranscriptionFunc(func(ctx context.Context, _ []byte, _ model.StreamInfo) (*providers.Transcript, error) {
		cancel()
		return nil, ctx.Err()
	})
	_, err := NewConverter(tr, nil).Convert(ctx, bytes.NewReader(wav()), model.StreamInfo{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccepts(t *testing.T) {
	tr := providers.MediaTranscriptionFunc(func(context.Context, []byte, model.StreamInfo) (*providers.Transcript, error) {
		return nil, nil
	})
	assert.False(t, NewConverter(nil, nil).AcceptsInfo(model.StreamInfo{Extension: ".mp3"}))

	c := NewConverter(tr, nil)
	assert.True(t, c.AcceptsInfo(model.StreamInfo{Extension: ".mp3"}))
	assert.True(t, c.AcceptsInfo(model.StreamInfo{MIMEType: "audio/ogg"}))
	assert.False(t, c.AcceptsInfo(model.StreamInfo{Extension: ".mp4"}))

	assert.True(t, c.Accepts(bytes.NewReader(wav()), model.StreamInfo{}))
	assert.False(t, c.Accepts(strings.NewReader("not audio"), model.StreamInfo{}))
}
