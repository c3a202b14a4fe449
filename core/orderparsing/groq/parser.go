package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultModel   = "openai/gpt-oss-20b"
	DefaultTimeout = 30 * time.Second

	completionsURL = "https://api.groq.com/openai/v1/chat/completions"
)

var ErrMissingAPIKey = errors.New("groq api key not found")

const systemPrompt = `You take orders at a food stall. Given the current order and what the
customer just said, list the changes to the order.
- "add" holds items the customer wants in addition to the current order.
- "update" holds items already in the order whose quantity changes, with the
  new total quantity.
- "remove" holds items the customer no longer wants.
Use the item names as they appear in the current order when referring to
existing items. Use 0 for a price or quantity that is not known. Leave a list
empty when nothing of that kind was said.`

// Parser recognises order changes with a Groq hosted model instead of the
// order-parsing service.
type Parser struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ orderparsing.Parser = (*Parser)(nil)

type ParserOption func(*Parser)

func WithTimeout(timeout time.Duration) ParserOption {
	return func(p *Parser) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

func WithModel(model string) ParserOption {
	return func(p *Parser) {
		if model != "" {
			p.model = model
		}
	}
}

// NewParser falls back to the GROQ_API_KEY environment variable when apiKey
// is empty.
func NewParser(apiKey string, opts ...ParserOption) (*Parser, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	p := &Parser{
		apiKey:     apiKey,
		model:      DefaultModel,
		endpoint:   completionsURL,
		httpClient: &http.Client{Timeout: DefaultTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Parser) Model() string { return p.model }

type parsedItem struct {
	Name     string  `json:"name" jsonschema:"description=Name of the menu item"`
	Quantity float64 `json:"quantity" jsonschema:"description=Number of portions or 0 when not said"`
	Price    float64 `json:"price" jsonschema:"description=Unit price or 0 when not known"`
}

type parsedOrder struct {
	Add    []parsedItem `json:"add"`
	Update []parsedItem `json:"update"`
	Remove []parsedItem `json:"remove"`
}

// ParseOrder asks the model for the order changes in the transcript.
func (p *Parser) ParseOrder(ctx context.Context, req orderparsing.Request) (*orderparsing.Response, error) {
	ctx, span := tracer.Start(ctx, "parse order")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", p.model))

	prompt, err := userPrompt(req)
	if err != nil {
		return nil, recordError(span, err)
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(parsedOrder{})
	body := requestBody{
		Model: p.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &responseSchema{
				Name:   "order_changes",
				Schema: *schema,
				Strict: true,
			},
		},
	}

	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return nil, recordError(span, fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	var completion responseBody
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, recordError(span, fmt.Errorf("error decoding response body: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, recordError(span, fmt.Errorf("response has no choices"))
	}

	content := completion.Choices[0].Message.Content
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = strings.TrimPrefix(split[1], "json")
	}

	var parsed parsedOrder
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, recordError(span, fmt.Errorf("error unmarshalling response: %w", err))
	}

	response, err := toResponse(parsed)
	if err != nil {
		return nil, recordError(span, err)
	}
	logger.DebugContext(ctx, "Parsed order", "transcript", req.Transcript, "actions", len(response.OrderActions()))
	return response, nil
}

func userPrompt(req orderparsing.Request) (string, error) {
	current := req.CurrentOrderItems
	if current == nil {
		current = []scenario.OrderItem{}
	}
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("error marshalling current order: %w", err)
	}
	return fmt.Sprintf("Current order: %s\nCustomer: %s", currentJSON, req.Transcript), nil
}

// toResponse drops zero quantities and prices so they read as not given.
func toResponse(parsed parsedOrder) (*orderparsing.Response, error) {
	var response orderparsing.Response
	for _, kind := range []struct {
		from []parsedItem
		to   *[]scenario.OrderItem
	}{
		{parsed.Add, &response.Actions.Add},
		{parsed.Update, &response.Actions.Update},
		{parsed.Remove, &response.Actions.Remove},
	} {
		if len(kind.from) == 0 {
			continue
		}
		if err := copier.CopyWithOption(kind.to, kind.from, copier.Option{IgnoreEmpty: true}); err != nil {
			return nil, fmt.Errorf("error converting order items: %w", err)
		}
	}
	return &response, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error", err.Error()))
	return err
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *responseSchema `json:"json_schema,omitempty"`
}

type responseSchema struct {
	Name   string            `json:"name"`
	Schema jsonschema.Schema `json:"schema"`
	Strict bool              `json:"strict"`
}

type responseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}
