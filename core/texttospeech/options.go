package texttospeech

import (
	"github.com/koscakluka/ema-ordersim/core/audio"
	"github.com/koscakluka/ema-ordersim/core/scenario"
)

type TextToSpeechOptions struct {
	// Voices maps a dialogue role to the voice it is spoken with. Roles
	// without a voice use the client default.
	Voices map[scenario.Role]string

	// EncodingInfo is used by engines that produce raw audio.
	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithVoice(role scenario.Role, voice string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if voice == "" {
			return
		}
		if o.Voices == nil {
			o.Voices = map[scenario.Role]string{}
		}
		o.Voices[role] = voice
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
