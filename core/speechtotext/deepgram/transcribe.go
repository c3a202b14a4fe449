package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ordersim/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"

	// audioChunkSize keeps single websocket frames small, deepgram expects a
	// stream rather than a single upload.
	audioChunkSize = 8 * 1024
)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

// TranscriptionClient transcribes recorded files through the deepgram
// streaming listen API.
type TranscriptionClient struct {
	apiKey   string
	options  speechtotext.TranscriptionOptions
	endpoint url.URL
	dialer   *websocket.Dialer
}

var _ speechtotext.FileTranscriber = (*TranscriptionClient)(nil)

// NewTranscriptionClient falls back to the DEEPGRAM_API_KEY environment
// variable when apiKey is empty.
func NewTranscriptionClient(apiKey string, opts ...speechtotext.TranscriptionOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	options := speechtotext.TranscriptionOptions{Model: defaultModel, Language: defaultLanguage}
	for _, opt := range opts {
		opt(&options)
	}

	return &TranscriptionClient{
		apiKey:   apiKey,
		options:  options,
		endpoint: url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/listen"},
		dialer:   websocket.DefaultDialer,
	}, nil
}

func (c *TranscriptionClient) TranscribeFile(ctx context.Context, path string) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe file")
	defer span.End()
	span.SetAttributes(attribute.String("request.file", path))

	transcript, err := c.transcribeFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return "", err
	}
	span.SetAttributes(attribute.Int("response.transcript_length", len(transcript)))
	return transcript, nil
}

func (c *TranscriptionClient) transcribeFile(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	listenURL, err := c.listenURL()
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return "", fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sendErr := make(chan error, 1)
	go func() { sendErr <- sendAudio(conn, audio) }()

	accumulator := transcriptAccumulator{onPartial: c.options.PartialTranscriptionCallback}
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("failed to read deepgram websocket message: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		if err := accumulator.process(msg); err != nil {
			logger.WarnContext(ctx, "Failed to process deepgram message", "error", err)
		}
	}

	if err := <-sendErr; err != nil {
		return "", err
	}
	return accumulator.transcript(), nil
}

func (c *TranscriptionClient) listenURL() (*url.URL, error) {
	listenURL := c.endpoint
	queryParams := listenURL.Query()
	queryParams.Set("model", c.options.Model)
	queryParams.Set("language", c.options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")

	// Containerised audio is detected by deepgram, raw audio needs its
	// encoding spelled out.
	if !c.options.EncodingInfo.IsZero() {
		encoding, err := convertEncoding(c.options.EncodingInfo)
		if err != nil {
			return nil, err
		}
		queryParams.Set("encoding", encoding.Format)
		queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
		queryParams.Set("channels", "1")
	}

	listenURL.RawQuery = queryParams.Encode()
	return &listenURL, nil
}

func sendAudio(conn *websocket.Conn, audio []byte) error {
	for start := 0; start < len(audio); start += audioChunkSize {
		end := min(start+audioChunkSize, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[start:end]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

// transcriptAccumulator joins the final segments deepgram reports.
type transcriptAccumulator struct {
	segments  []string
	onPartial func(string)
}

func (a *transcriptAccumulator) process(msg []byte) error {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
		return nil
	}

	var msgResp api.MessageResponse
	if err := json.Unmarshal(msg, &msgResp); err != nil {
		return fmt.Errorf("failed to unmarshal deepgram results: %w", err)
	}
	if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
		return nil
	}

	transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
	if len(transcript) == 0 {
		return nil
	}
	a.segments = append(a.segments, transcript)
	if a.onPartial != nil {
		a.onPartial(transcript)
	}
	return nil
}

func (a *transcriptAccumulator) transcript() string {
	return strings.Join(a.segments, " ")
}
