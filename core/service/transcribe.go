package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-ordersim/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
)

var _ speechtotext.FileTranscriber = (*Client)(nil)

const (
	uploadFieldName = "file"
	uploadFileName  = "recording.webm"
	uploadMediaType = "audio/webm"
)

// Transcription is the transcribe endpoint answer. Only Text is understood,
// the full body is kept in Raw.
type Transcription struct {
	Text string
	Raw  map[string]any
}

// Transcribe uploads an audio file to the transcribe endpoint.
func (c *Client) Transcribe(ctx context.Context, path string) (*Transcription, error) {
	ctx, span := tracer.Start(ctx, "transcribe")
	defer span.End()
	span.SetAttributes(attribute.String("request.file", path))

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to read audio file: %w", err))
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFieldName, uploadFileName))
	header.Set("Content-Type", uploadMediaType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to create form part: %w", err))
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return nil, recordError(span, fmt.Errorf("failed to write form part: %w", err))
	}
	if err := form.Close(); err != nil {
		return nil, recordError(span, fmt.Errorf("failed to close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, &body)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())

	respBody, err := c.do(req, "transcribe")
	if err != nil {
		return nil, recordError(span, err)
	}

	transcription := &Transcription{}
	if err := json.Unmarshal(respBody, &transcription.Raw); err != nil {
		return nil, recordError(span, &CallError{Op: "transcribe", Err: fmt.Errorf("error unmarshalling response: %w", err)})
	}
	if text, ok := transcription.Raw["text"].(string); ok {
		transcription.Text = text
	}
	return transcription, nil
}

func (c *Client) TranscribeFile(ctx context.Context, path string) (string, error) {
	transcription, err := c.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	return transcription.Text, nil
}
