package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"go.opentelemetry.io/otel/attribute"
)

var _ orderparsing.Parser = (*Client)(nil)

// ParseOrder sends a customer utterance together with the current order to
// the parse-order endpoint.
func (c *Client) ParseOrder(ctx context.Context, req orderparsing.Request) (*orderparsing.Response, error) {
	ctx, span := tracer.Start(ctx, "parse order")
	defer span.End()

	if req.CurrentOrderItems == nil {
		req.CurrentOrderItems = []scenario.OrderItem{}
	}
	span.SetAttributes(
		attribute.Int("request.transcript_length", len(req.Transcript)),
		attribute.Int("request.current_order_items", len(req.CurrentOrderItems)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+parseOrderPath, bytes.NewReader(body))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	respBody, err := c.do(httpReq, "parse order")
	if err != nil {
		return nil, recordError(span, err)
	}

	var parsed orderparsing.Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, recordError(span, &CallError{Op: "parse order", Err: fmt.Errorf("error unmarshalling response: %w", err)})
	}
	span.SetAttributes(attribute.Int("response.actions", len(parsed.OrderActions())))
	return &parsed, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ErrorContext(req.Context(), "service call failed", "op", op, "url", req.URL.String(), "error", err)
		return nil, &CallError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Op: op, Err: fmt.Errorf("error reading response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.ErrorContext(req.Context(), "service call rejected", "op", op, "status", resp.StatusCode)
		return nil, &CallError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return body, nil
}
