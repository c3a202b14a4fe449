package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/core/simulation"
	"github.com/koscakluka/ema-ordersim/internal/utils"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(body)
}

func TestParseOrder(t *testing.T) {
	var got struct {
		Model          string    `json:"model"`
		Messages       []message `json:"messages"`
		ResponseFormat *struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Strict bool `json:"strict"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(completion(
			`{"add":[{"name":"Iced Tea","quantity":2,"price":0}],"update":[{"name":"Nasi Goreng","quantity":3,"price":15}],"remove":[]}`,
		)))
	}))
	defer server.Close()

	parser, err := NewParser("test-key", WithModel("test-model"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parser.endpoint = server.URL

	resp, err := parser.ParseOrder(context.Background(), orderparsing.Request{
		Transcript:        "make it three nasi goreng and two iced teas",
		CurrentOrderItems: []scenario.OrderItem{{Name: utils.Ptr("Nasi Goreng"), Quantity: utils.Ptr(1.0), Price: utils.Ptr(15.0)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" || got.Model != "test-model" {
		t.Fatalf("unexpected request: auth=%q model=%q", gotAuth, got.Model)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" || !got.ResponseFormat.JSONSchema.Strict {
		t.Fatalf("expected strict json schema response format, got %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "Nasi Goreng") {
		t.Fatalf("expected current order in prompt, got %+v", got.Messages)
	}

	if len(resp.Actions.Add) != 1 || len(resp.Actions.Update) != 1 || len(resp.Actions.Remove) != 0 {
		t.Fatalf("unexpected actions: %+v", resp.Actions)
	}
	added := resp.Actions.Add[0]
	if added.Name == nil || *added.Name != "Iced Tea" || added.Quantity == nil || *added.Quantity != 2 {
		t.Fatalf("unexpected added item: %+v", added)
	}
	if added.Price != nil {
		t.Fatalf("expected zero price to be dropped, got %v", *added.Price)
	}
	updated := resp.Actions.Update[0]
	if updated.Price == nil || *updated.Price != 15 {
		t.Fatalf("unexpected updated item: %+v", updated)
	}
}

func TestParseOrderFencedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("```json\n{\"add\":[],\"update\":[],\"remove\":[{\"name\":\"Es Teh\",\"quantity\":0,\"price\":0}]}\n```")))
	}))
	defer server.Close()

	parser, _ := NewParser("test-key")
	parser.endpoint = server.URL

	resp, err := parser.ParseOrder(context.Background(), orderparsing.Request{Transcript: "no tea"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actions := resp.OrderActions()
	if len(actions) != 1 || actions[0].Type != scenario.ActionRemove {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestParseOrderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	parser, _ := NewParser("test-key")
	parser.endpoint = server.URL

	if _, err := parser.ParseOrder(context.Background(), orderparsing.Request{Transcript: "hi"}); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}

func TestNewParserRequiresKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	if _, err := NewParser(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	t.Setenv("GROQ_API_KEY", "env-key")
	parser, err := NewParser("")
	if err != nil || parser.Model() != DefaultModel {
		t.Fatalf("unexpected parser: %v %v", parser, err)
	}
}

func TestParseOrderTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	parser, err := NewParser("test-key", WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parser.endpoint = server.URL

	messages := []scenario.Message{{ID: "msg-1", Role: scenario.RoleCustomer, Text: "two nasi goreng"}}
	start := time.Now()
	result, err := simulation.Simulate(context.Background(), "stalled", messages, parser, simulation.WithMessageDelay(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected the call to be cut off by the timeout, took %v", elapsed)
	}
	if len(result.Steps) != 1 || !result.Steps[0].Degraded() {
		t.Fatalf("expected a degraded step, got %+v", result.Steps)
	}
}

func TestNewParserDefaultTimeout(t *testing.T) {
	parser, err := NewParser("test-key", WithTimeout(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parser.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("expected default timeout %v, got %v", DefaultTimeout, parser.httpClient.Timeout)
	}
}
