package transcript

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lectureRAG/config"
	"lectureRAG/core"
)

// Transcriber is the boundary to the external speech-to-text service. Only the
// consumption of its output is in scope: implementations return ordered
// timestamped segments ready for the segment store.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error)
}

// WhisperTranscriber invokes an OpenAI-compatible transcription endpoint with
// segment-level timestamp granularity.
type WhisperTranscriber struct {
	cli   *openai.Client
	model string
}

func NewWhisperTranscriber(cfg *config.Config) *WhisperTranscriber {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &WhisperTranscriber{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: "whisper-1",
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, &core.ProviderError{Op: "transcribe", Err: err}
	}

	segments := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, core.Segment{Start: s.Start, End: s.End, Text: text})
	}
	if len(segments) > 0 {
		return segments, nil
	}

	// Some providers honor verbose_json but omit segments; fall back to one
	// segment spanning the whole audio.
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, &core.ProviderError{Op: "transcribe", Err: errEmptyTranscription}
	}
	return []core.Segment{{Start: 0, End: resp.Duration, Text: text}}, nil
}

type transcriptionError string

func (e transcriptionError) Error() string { return string(e) }

const errEmptyTranscription = transcriptionError("empty transcription result")
