package speechtotext

import (
	"context"

	"github.com/koscakluka/ema-ordersim/core/audio"
)

// FileTranscriber turns a recorded audio file into text.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

type TranscriptionOptions struct {
	// PartialTranscriptionCallback is called for every finalised segment
	// before the full transcript is returned.
	PartialTranscriptionCallback func(transcript string)

	Model    string
	Language string

	// EncodingInfo describes raw audio. It is left zero for containerised
	// files (mp3, wav) whose encoding the server detects on its own.
	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
