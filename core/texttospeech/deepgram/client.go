package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync/atomic"

	"github.com/koscakluka/ema-ordersim/core/audio"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Engine selects how speech is requested from deepgram.
type Engine string

const (
	// EngineREST requests a complete mp3 file per message.
	EngineREST Engine = "rest"
	// EngineStream streams raw linear audio over a websocket and stores it
	// as wav.
	EngineStream Engine = "stream"
	// EngineAuto picks the REST engine.
	EngineAuto Engine = "auto"
)

var (
	ErrMissingAPIKey = errors.New("deepgram api key not found")
	ErrClientClosed  = errors.New("text to speech client closed")
)

func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case EngineREST, EngineStream:
		return Engine(name), nil
	case EngineAuto, "":
		return EngineREST, nil
	}
	return "", fmt.Errorf("unknown tts engine %q", name)
}

type TextToSpeechClient struct {
	apiKey  string
	engine  Engine
	options texttospeech.TextToSpeechOptions

	httpClient *http.Client
	restURL    url.URL
	streamURL  url.URL

	closed atomic.Bool
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

// NewTextToSpeechClient falls back to the DEEPGRAM_API_KEY environment
// variable when apiKey is empty. The client has to be closed with Close.
func NewTextToSpeechClient(apiKey string, engine Engine, opts ...texttospeech.TextToSpeechOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	engine, err := ParseEngine(string(engine))
	if err != nil {
		return nil, err
	}

	options := texttospeech.TextToSpeechOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}
	for role, voice := range options.Voices {
		if !slices.Contains(GetAvailableVoices(), deepgramVoice(voice)) {
			return nil, fmt.Errorf("invalid voice %q for %s", voice, role)
		}
	}

	return &TextToSpeechClient{
		apiKey:     apiKey,
		engine:     engine,
		options:    options,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		restURL:    url.URL{Scheme: "https", Host: "api.deepgram.com", Path: "/v1/speak"},
		streamURL:  url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/speak"},
	}, nil
}

func (c *TextToSpeechClient) Engine() Engine { return c.engine }

func (c *TextToSpeechClient) FileExtension() string {
	if c.engine == EngineStream {
		return "wav"
	}
	return "mp3"
}

// Synthesize writes the speech of text, spoken in the voice of role, to w.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string, role scenario.Role, w io.Writer) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	voice := c.voiceFor(role)
	span.SetAttributes(
		attribute.String("request.engine", string(c.engine)),
		attribute.String("request.voice", string(voice)),
		attribute.Int("request.text_length", len(text)),
	)

	var err error
	switch c.engine {
	case EngineStream:
		err = c.synthesizeStream(ctx, text, voice, w)
	default:
		err = c.synthesizeREST(ctx, text, voice, w)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}
	return nil
}

// Close releases idle connections. Synthesize fails after Close, repeated
// calls are ignored.
func (c *TextToSpeechClient) Close(context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *TextToSpeechClient) voiceFor(role scenario.Role) deepgramVoice {
	if voice, ok := c.options.Voices[role]; ok {
		return deepgramVoice(voice)
	}
	if voice, ok := defaultRoleVoices[role]; ok {
		return voice
	}
	return defaultVoice
}
