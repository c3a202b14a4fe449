package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/koscakluka/ema-ordersim/core/config"
	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/orderparsing/groq"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/core/service"
	"github.com/koscakluka/ema-ordersim/core/simulation"
	"github.com/koscakluka/ema-ordersim/core/speechtotext"
	"github.com/koscakluka/ema-ordersim/core/speechtotext/deepgram"
)

const defaultTranscribeSample = "simple_order_msg-2_customer.mp3"

func runSimulate(arguments []string) int {
	flagSet := newFlagSet("simulate")

	var configPath string
	var scenariosPath string
	var scenarioName string
	var baseURL string
	var parserBackend string
	var transcribeEngine string
	var testParse string
	var testTranscribe bool
	var audioPath string
	var delay time.Duration

	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&scenariosPath, "scenarios", "", "scenario metadata file (default from config)")
	flagSet.StringVar(&scenarioName, "scenario", "simple_order", "scenario to simulate or all")
	flagSet.StringVar(&baseURL, "base-url", "", "order service base URL (default from config)")
	flagSet.StringVar(&parserBackend, "parser", "", "order parser: service or groq (default from config)")
	flagSet.StringVar(&transcribeEngine, "transcribe-engine", "", "transcriber: service or deepgram (default from config)")
	flagSet.StringVar(&testParse, "test-parse", "", "parse a single transcript and exit")
	flagSet.BoolVar(&testTranscribe, "test-transcribe", false, "transcribe a sample audio file and exit")
	flagSet.StringVar(&audioPath, "audio", "", "audio file for --test-transcribe")
	flagSet.DurationVar(&delay, "delay", -1, "pause between messages (default from config)")

	if ok, code := parseFlags(flagSet, arguments); !ok {
		return code
	}
	cfg, ok := loadConfig(configPath)
	if !ok {
		return exitInvalidInput
	}
	if baseURL != "" {
		cfg.Service.BaseURL = baseURL
	}
	if parserBackend != "" {
		cfg.Parser.Backend = parserBackend
	}
	if transcribeEngine != "" {
		cfg.Transcription.Engine = transcribeEngine
	}
	if delay >= 0 {
		cfg.Simulation.MessageDelay = &delay
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalidInput
	}
	if scenariosPath == "" {
		scenariosPath = cfg.Scenarios
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if testTranscribe {
		if audioPath == "" {
			audioPath = filepath.Join(cfg.Speech.OutputDir, defaultTranscribeSample)
		}
		return testTranscription(ctx, cfg, audioPath)
	}

	parser, err := newParser(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalidInput
	}

	if testParse != "" {
		return testParseOrder(ctx, cfg, parser, testParse)
	}

	set, err := loadScenarios(scenariosPath, scenarioName)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return exitFailure
	}

	for i, name := range set.Names() {
		if i > 0 {
			fmt.Fprintf(stdout, "\n%s\n", strings.Repeat("=", 60))
		}
		messages, _ := set.Get(name)
		if code := simulateScenario(ctx, cfg, parser, name, messages); code != exitOK {
			return code
		}
	}
	return exitOK
}

// simulateScenario replays one scenario, printing every step as it happens.
// Failing to print a step stops the replay.
func simulateScenario(ctx context.Context, cfg *config.Config, parser orderparsing.Parser, name string, messages []scenario.Message) int {
	if err := simulation.RenderHeader(stdout, name); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	result, err := simulation.Simulate(ctx, name, messages, parser,
		simulation.WithMessageDelay(cfg.MessageDelay()),
		simulation.WithStepCallback(func(step simulation.Step) {
			if err := simulation.RenderStep(stdout, step); err != nil {
				cancel(fmt.Errorf("failed to print step %s: %w", step.MessageID, err))
			}
		}))
	if cause := context.Cause(ctx); cause != nil {
		err = cause
	}
	if err != nil {
		fmt.Fprintf(stderr, "Simulation stopped: %v\n", err)
		return exitFailure
	}

	if err := simulation.RenderSummary(stdout, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if result.DegradedSteps() > 0 && cfg.Parser.Backend == config.EngineService {
		fmt.Fprintf(stdout, "Make sure the dev server is running at %s\n", cfg.Service.BaseURL)
	}
	return exitOK
}

func newParser(cfg *config.Config) (orderparsing.Parser, error) {
	switch cfg.Parser.Backend {
	case config.EngineGroq:
		return groq.NewParser(cfg.Parser.APIKey,
			groq.WithModel(cfg.Parser.GroqModel),
			groq.WithTimeout(cfg.Parser.Timeout))
	default:
		return newServiceClient(cfg), nil
	}
}

func newServiceClient(cfg *config.Config) *service.Client {
	return service.NewClient(
		service.WithBaseURL(cfg.Service.BaseURL),
		service.WithTimeout(cfg.Service.Timeout),
	)
}

func testParseOrder(ctx context.Context, cfg *config.Config, parser orderparsing.Parser, transcript string) int {
	fmt.Fprintf(stdout, "\n%s\nTesting Parse Order API\n%s\n", strings.Repeat("=", 60), strings.Repeat("=", 60))
	fmt.Fprintf(stdout, "Transcript: %q\n", transcript)
	fmt.Fprintln(stdout, "Current Order: []")

	resp, err := parser.ParseOrder(ctx, orderparsing.Request{Transcript: transcript, CurrentOrderItems: []scenario.OrderItem{}})
	if err != nil {
		printCallError(cfg, err)
		return exitFailure
	}
	return printJSON("Parse Result:", resp)
}

func testTranscription(ctx context.Context, cfg *config.Config, audioPath string) int {
	fmt.Fprintf(stdout, "\n%s\nTesting Transcribe API (%s)\n%s\n", strings.Repeat("=", 60), cfg.Transcription.Engine, strings.Repeat("=", 60))
	if _, err := os.Stat(audioPath); err != nil {
		fmt.Fprintf(stdout, "No sample audio file found at %s\nSkipping transcribe test\n", audioPath)
		return exitOK
	}
	fmt.Fprintf(stdout, "Using sample audio: %s\n", audioPath)

	if cfg.Transcription.Engine == config.EngineDeepgram {
		transcriber, err := deepgram.NewTranscriptionClient(cfg.Speech.APIKey,
			speechtotext.WithModel(cfg.Transcription.Model),
			speechtotext.WithPartialTranscriptionCallback(func(segment string) {
				fmt.Fprintf(stdout, "  ... %s\n", segment)
			}))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitInvalidInput
		}
		return printTranscript(ctx, transcriber, audioPath)
	}

	transcription, err := newServiceClient(cfg).Transcribe(ctx, audioPath)
	if err != nil {
		printCallError(cfg, err)
		return exitFailure
	}
	return printJSON("Transcription Result:", transcription.Raw)
}

func printTranscript(ctx context.Context, transcriber speechtotext.FileTranscriber, audioPath string) int {
	text, err := transcriber.TranscribeFile(ctx, audioPath)
	if err != nil {
		fmt.Fprintf(stdout, "\nError: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "\nTranscription Result:\n%s\n", text)
	return exitOK
}

func printCallError(cfg *config.Config, err error) {
	var callErr *service.CallError
	if errors.As(err, &callErr) && callErr.StatusCode != 0 {
		fmt.Fprintf(stdout, "\nStatus Code: %d\nError: %s\n", callErr.StatusCode, callErr.Body)
		return
	}
	if errors.As(err, &callErr) {
		fmt.Fprintf(stdout, "\nConnection Error: Make sure the dev server is running at %s\n", cfg.Service.BaseURL)
		return
	}
	fmt.Fprintf(stdout, "\nError: %v\n", err)
}

func printJSON(title string, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "\n%s\n%s\n", title, data)
	return exitOK
}
