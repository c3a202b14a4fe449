package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ordersim/core/audio"
)

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

var errFlushNotReceived = errors.New("stream ended before audio was flushed")

// synthesizeStream speaks text over a websocket, collects the raw audio
// frames until deepgram confirms the flush and writes them as wav.
func (c *TextToSpeechClient) synthesizeStream(ctx context.Context, text string, voice deepgramVoice, w io.Writer) error {
	encodingInfo := c.options.EncodingInfo
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}

	conn, err := c.connectWebsocket(ctx, voice, encodingInfo)
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var mu sync.Mutex
	send := func(msg any) error {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to write to websocket: %w", err)
		}
		return nil
	}

	if err := send(speakMessage{Type: "Speak", Text: text}); err != nil {
		return err
	}
	if err := send(flushMsg); err != nil {
		return err
	}

	samples, err := readUntilFlushed(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	if err := send(closeMsg); err != nil {
		logger.WarnContext(ctx, "Failed to send close message to deepgram websocket", "error", err)
	}

	if len(samples) == 0 {
		return fmt.Errorf("no audio received for text")
	}
	return audio.WriteWAV(w, encodingInfo, samples)
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	speakURL := c.streamURL
	query := speakURL.Query()
	query.Set("encoding", encodingInfo.Format.Name())
	query.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	query.Set("model", string(voice))
	query.Set("container", "none")
	speakURL.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func readUntilFlushed(conn *websocket.Conn) ([]byte, error) {
	var samples bytes.Buffer
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, errFlushNotReceived
			}
			return nil, fmt.Errorf("websocket read error: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			samples.Write(msg)
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("Failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				return samples.Bytes(), nil
			case "Warning", "Error":
				logger.Warn("Deepgram reported a problem", "message", string(msg))
			}
		}
	}
}
