package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-ordersim/core/config"
	"github.com/koscakluka/ema-ordersim/core/scenario"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &buf, &buf
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })
	return &buf
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ORDERSIM_BASE_URL", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
}

func writeScenarios(t *testing.T, set *scenario.Set) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.json")
	if err := set.Save(path); err != nil {
		t.Fatalf("save scenarios: %v", err)
	}
	return path
}

func TestRunDispatch(t *testing.T) {
	captureOutput(t)
	if code := run([]string{"ordersim"}); code != exitInvalidInput {
		t.Fatalf("run without args: expected %d got %d", exitInvalidInput, code)
	}
	if code := run([]string{"ordersim", "version"}); code != exitOK {
		t.Fatalf("run version: expected %d got %d", exitOK, code)
	}
	if code := run([]string{"ordersim", "unknown"}); code != exitInvalidInput {
		t.Fatalf("run unknown: expected %d got %d", exitInvalidInput, code)
	}
	for _, command := range []string{"validate", "simulate", "synthesize", "browse", "schema"} {
		if code := run([]string{"ordersim", command, "--help"}); code != exitOK {
			t.Fatalf("run %s help: expected %d got %d", command, exitOK, code)
		}
	}
	if code := run([]string{"ordersim", "validate", "--no-such-flag"}); code != exitInvalidInput {
		t.Fatalf("run validate with bad flag: expected %d got %d", exitInvalidInput, code)
	}
}

func TestInvalidInputHasItsOwnExitCode(t *testing.T) {
	clearEnv(t)
	captureOutput(t)
	if exitInvalidInput == exitFailure {
		t.Fatalf("expected invalid input and failure to use different exit codes")
	}
	if code := run([]string{"ordersim", "simulate", "--parser", "magic", "--test-parse", "hi"}); code != exitInvalidInput {
		t.Fatalf("simulate with unknown parser: expected %d got %d", exitInvalidInput, code)
	}
	missing := filepath.Join(t.TempDir(), "missing.json")
	if code := run([]string{"ordersim", "validate", "--scenarios", missing}); code != exitFailure {
		t.Fatalf("validate with missing metadata: expected %d got %d", exitFailure, code)
	}
}

func TestValidateSamples(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	path := writeScenarios(t, scenario.Samples())
	reportPath := filepath.Join(t.TempDir(), "report.json")

	code := run([]string{"ordersim", "validate", "--scenarios", path, "--skip-assets", "--report", reportPath})
	if code != exitOK {
		t.Fatalf("expected %d got %d:\n%s", exitOK, code, out.String())
	}
	for _, want := range []string{
		"Found 3 scenarios: simple_order, negotiation, complex_order",
		"Total: $125.00",
		"All scenarios validated successfully!",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var document map[string]any
	if err := json.Unmarshal(data, &document); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if document["valid"] != true {
		t.Fatalf("expected valid report, got %v", document["valid"])
	}
}

func TestValidateStructuralErrors(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	set := scenario.NewSet()
	set.Add("broken", []scenario.Message{{ID: "msg-1", Text: "hello"}})
	path := writeScenarios(t, set)

	if code := run([]string{"ordersim", "validate", "--scenarios", path, "--tts-dir", ""}); code != exitFailure {
		t.Fatalf("expected %d got %d", exitFailure, code)
	}
	if !strings.Contains(out.String(), "Some scenarios have errors") {
		t.Fatalf("expected failing verdict:\n%s", out.String())
	}
}

func TestValidateMissingMetadata(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	missing := filepath.Join(t.TempDir(), "conversations.json")
	if code := run([]string{"ordersim", "validate", "--scenarios", missing}); code != exitFailure {
		t.Fatalf("expected %d got %d", exitFailure, code)
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Fatalf("expected error output:\n%s", out.String())
	}
}

func TestValidateUnknownScenario(t *testing.T) {
	clearEnv(t)
	captureOutput(t)
	path := writeScenarios(t, scenario.Samples())
	if code := run([]string{"ordersim", "validate", "--scenarios", path, "--scenario", "breakfast"}); code != exitFailure {
		t.Fatalf("expected %d got %d", exitFailure, code)
	}
}

func TestSchema(t *testing.T) {
	out := captureOutput(t)
	if code := run([]string{"ordersim", "schema"}); code != exitOK {
		t.Fatalf("expected %d got %d", exitOK, code)
	}
	var schema map[string]any
	if err := json.Unmarshal(out.Bytes(), &schema); err != nil {
		t.Fatalf("schema output is not JSON: %v\n%s", err, out.String())
	}
	if _, ok := schema["additionalProperties"]; !ok {
		t.Fatalf("expected scenario map schema, got %v", schema)
	}
}

func newParseServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transcript string `json:"transcript"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Transcript, "nasi goreng") {
			_, _ = io.WriteString(w, `{"actions":{"add":[{"name":"Nasi Goreng","quantity":2,"price":15},{"name":"Es Teh Manis","quantity":1,"price":5}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"actions":{}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSimulate(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	server := newParseServer(t)
	path := writeScenarios(t, scenario.Samples())

	code := run([]string{"ordersim", "simulate", "--scenarios", path, "--base-url", server.URL, "--delay", "0s"})
	if code != exitOK {
		t.Fatalf("expected %d got %d:\n%s", exitOK, code, out.String())
	}
	for _, want := range []string{"Simulating Scenario: simple_order", "Simulation Complete!", "Total: $35.00"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

type failingWriter struct {
	writes    int
	failAfter int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.failAfter {
		return 0, errors.New("stdout closed")
	}
	w.writes++
	return len(p), nil
}

func TestSimulateScenarioStopsWhenOutputFails(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.WriteString(w, `{"actions":{}}`)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Service.BaseURL = server.URL
	noDelay := time.Duration(0)
	cfg.Simulation.MessageDelay = &noDelay
	messages, _ := scenario.Samples().Get("simple_order")

	for _, tc := range []struct {
		failAfter int
		want      string
	}{
		{failAfter: 0, want: "Error: stdout closed"},
		{failAfter: 1, want: "Simulation stopped: failed to print step msg-1: stdout closed"},
	} {
		var errOut bytes.Buffer
		prevOut, prevErr := stdout, stderr
		stdout, stderr = &failingWriter{failAfter: tc.failAfter}, &errOut

		code := simulateScenario(context.Background(), cfg, newServiceClient(cfg), "simple_order", messages)
		stdout, stderr = prevOut, prevErr

		if code != exitFailure {
			t.Fatalf("failAfter=%d: expected %d got %d", tc.failAfter, exitFailure, code)
		}
		if !strings.Contains(errOut.String(), tc.want) {
			t.Fatalf("failAfter=%d: expected %q in %q", tc.failAfter, tc.want, errOut.String())
		}
	}
	if requests.Load() != 0 {
		t.Fatalf("expected the replay to stop before any parse call, got %d", requests.Load())
	}
}

func TestSimulateTestParse(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	server := newParseServer(t)

	code := run([]string{"ordersim", "simulate", "--base-url", server.URL, "--test-parse", "two nasi goreng please"})
	if code != exitOK {
		t.Fatalf("expected %d got %d:\n%s", exitOK, code, out.String())
	}
	if !strings.Contains(out.String(), "Parse Result:") || !strings.Contains(out.String(), "Nasi Goreng") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestSimulateTestParseUnreachable(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if code := run([]string{"ordersim", "simulate", "--base-url", url, "--test-parse", "hi"}); code != exitFailure {
		t.Fatalf("expected %d got %d", exitFailure, code)
	}
	if !strings.Contains(out.String(), "Make sure the dev server is running") {
		t.Fatalf("expected connection hint:\n%s", out.String())
	}
}

func TestSimulateTestTranscribeWithoutSample(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	missing := filepath.Join(t.TempDir(), "missing.mp3")
	if code := run([]string{"ordersim", "simulate", "--test-transcribe", "--audio", missing}); code != exitOK {
		t.Fatalf("expected %d got %d", exitOK, code)
	}
	if !strings.Contains(out.String(), "Skipping transcribe test") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(_ context.Context, text string, _ scenario.Role, w io.Writer) error {
	_, err := io.WriteString(w, text)
	return err
}

func (fakeSynthesizer) FileExtension() string { return "mp3" }

func (fakeSynthesizer) Close(context.Context) error { return nil }

func TestSynthesizeWritesMetadata(t *testing.T) {
	out := captureOutput(t)
	outputDir := t.TempDir()
	set, err := scenario.Samples().Select("simple_order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if code := synthesize(context.Background(), fakeSynthesizer{}, set, outputDir, "/tts"); code != exitOK {
		t.Fatalf("expected %d got %d:\n%s", exitOK, code, out.String())
	}

	generated, err := scenario.Load(filepath.Join(outputDir, "conversations.json"))
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	messages, ok := generated.Get("simple_order")
	if !ok || len(messages) != 7 {
		t.Fatalf("unexpected metadata: %v", generated.Names())
	}
	if messages[0].AudioPath != "/tts/simple_order_msg-1_seller.mp3" {
		t.Fatalf("unexpected audio path: %s", messages[0].AudioPath)
	}
	if !strings.Contains(out.String(), "All done! Generated 7 audio files") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestSynthesizeRequiresKey(t *testing.T) {
	clearEnv(t)
	out := captureOutput(t)
	if code := run([]string{"ordersim", "synthesize", "--output-dir", t.TempDir()}); code != exitFailure {
		t.Fatalf("expected %d got %d", exitFailure, code)
	}
	if !strings.Contains(out.String(), "no speech engine available") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func press(t *testing.T, m tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	return m.Update(msg)
}

func TestBrowseModel(t *testing.T) {
	var m tea.Model = newBrowseModel(scenario.Samples())
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if view := m.View(); !strings.Contains(view, "simple_order (1/3)") || !strings.Contains(view, "(empty)") {
		t.Fatalf("unexpected initial view:\n%s", view)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	view := m.View()
	if !strings.Contains(view, "Message 3 of 7") || !strings.Contains(view, "2x Nasi Goreng") || !strings.Contains(view, "Total: $35.00") {
		t.Fatalf("expected folded order after msg-3:\n%s", view)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if view := m.View(); !strings.Contains(view, "Message 2 of 7") || !strings.Contains(view, "Total: $0.00") {
		t.Fatalf("expected to step back:\n%s", view)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if view := m.View(); !strings.Contains(view, "negotiation (2/3)") || !strings.Contains(view, "Message 1 of 13") {
		t.Fatalf("expected next scenario:\n%s", view)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if view := m.View(); !strings.Contains(view, "complex_order (3/3)") {
		t.Fatalf("expected scenario selection to wrap:\n%s", view)
	}

	if _, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestFoldFramesChecksPayment(t *testing.T) {
	messages, _ := scenario.Samples().Get("complex_order")
	frames := foldFrames(messages)
	last := frames[len(frames)-1]
	if last.order.Total() != 125 || last.check == nil || last.check.Mismatch {
		t.Fatalf("unexpected final frame: total=%v check=%+v", last.order.Total(), last.check)
	}
}
