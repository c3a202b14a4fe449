package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *TextToSpeechClient) synthesizeREST(ctx context.Context, text string, voice deepgramVoice, w io.Writer) error {
	requestBody, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	speakURL := c.restURL
	query := speakURL.Query()
	query.Set("model", string(voice))
	query.Set("encoding", "mp3")
	speakURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakURL.String(), bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, bytes.TrimSpace(errorBody))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("error reading speech audio: %w", err)
	}
	return nil
}
