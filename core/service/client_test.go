package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/internal/utils"
)

func TestParseOrder(t *testing.T) {
	var got struct {
		Transcript        string            `json:"transcript"`
		CurrentOrderItems []json.RawMessage `json:"currentOrderItems"`
	}
	var gotPath, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"actions":{"remove":[{"name":"Es Teh Manis"}],"add":[{"name":"Kerupuk","quantity":2}]},"items":[{"name":"Soto Ayam"}]}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL + "/"))
	resp, err := client.ParseOrder(context.Background(), orderparsing.Request{
		Transcript:        "no tea, two kerupuk",
		CurrentOrderItems: []scenario.OrderItem{{Name: utils.Ptr("Es Teh Manis"), Quantity: utils.Ptr(1.0)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/api/parse-order" || gotRequestID == "" {
		t.Fatalf("unexpected request: path=%q request id=%q", gotPath, gotRequestID)
	}
	if got.Transcript != "no tea, two kerupuk" || len(got.CurrentOrderItems) != 1 {
		t.Fatalf("unexpected body: %+v", got)
	}

	actions := resp.OrderActions()
	if len(actions) != 2 || actions[0].Type != scenario.ActionAdd || actions[1].Type != scenario.ActionRemove {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	if len(actions[0].Items) != 2 {
		t.Fatalf("expected top-level items to be added, got %+v", actions[0].Items)
	}
}

func TestParseOrderSendsEmptyCurrentOrder(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, `{"actions":{}}`)
	}))
	defer server.Close()

	if _, err := NewClient(WithBaseURL(server.URL)).ParseOrder(context.Background(), orderparsing.Request{Transcript: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw["currentOrderItems"]) != "[]" {
		t.Fatalf("expected empty list, got %s", raw["currentOrderItems"])
	}
}

func TestParseOrderNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(WithBaseURL(server.URL)).ParseOrder(context.Background(), orderparsing.Request{Transcript: "hi"})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.StatusCode != http.StatusServiceUnavailable || callErr.Body != "model unavailable" {
		t.Fatalf("unexpected call error: %+v", callErr)
	}
}

func TestParseOrderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(WithBaseURL(url), WithTimeout(time.Second)).ParseOrder(context.Background(), orderparsing.Request{Transcript: "hi"})
	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.StatusCode != 0 || callErr.Err == nil {
		t.Fatalf("expected transport CallError, got %v", err)
	}
}

func TestTranscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg-2_customer.mp3")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotFilename, gotContentType, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotContent = string(content)
		_, _ = io.WriteString(w, `{"text":"two nasi goreng please","duration":1.5}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	transcription, err := client.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilename != "recording.webm" || gotContentType != "audio/webm" || gotContent != "fake audio" {
		t.Fatalf("unexpected upload: filename=%q content type=%q content=%q", gotFilename, gotContentType, gotContent)
	}
	if transcription.Text != "two nasi goreng please" || transcription.Raw["duration"] != 1.5 {
		t.Fatalf("unexpected transcription: %+v", transcription)
	}

	text, err := client.TranscribeFile(context.Background(), path)
	if err != nil || text != "two nasi goreng please" {
		t.Fatalf("unexpected TranscribeFile result: %q %v", text, err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewClient()
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
