package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/core/texttospeech"
	"github.com/koscakluka/ema-ordersim/core/texttospeech/deepgram"
)

func runSynthesize(arguments []string) int {
	flagSet := newFlagSet("synthesize")

	var configPath string
	var scenarioName string
	var sourcePath string
	var outputDir string
	var assetRoot string
	var engine string

	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&scenarioName, "scenario", scenario.AllScenarios, "scenario to generate or all")
	flagSet.StringVar(&sourcePath, "from", "", "scenario file to synthesise instead of the built-in samples")
	flagSet.StringVar(&outputDir, "output-dir", "", "output directory for audio files (default from config)")
	flagSet.StringVar(&assetRoot, "asset-root", "", "public path prefix of generated files (default from config)")
	flagSet.StringVar(&engine, "engine", "", "speech engine: auto, rest or stream (default from config)")

	if ok, code := parseFlags(flagSet, arguments); !ok {
		return code
	}
	cfg, ok := loadConfig(configPath)
	if !ok {
		return exitInvalidInput
	}
	if outputDir != "" {
		cfg.Speech.OutputDir = outputDir
	}
	if assetRoot != "" {
		cfg.Speech.AssetRoot = assetRoot
	}
	if engine != "" {
		cfg.Speech.Engine = engine
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalidInput
	}

	source := scenario.Samples()
	if sourcePath != "" {
		loaded, err := scenario.Load(sourcePath)
		if err != nil {
			fmt.Fprintf(stdout, "Error: %v\n", err)
			return exitFailure
		}
		source = loaded
	}
	set, err := source.Select(scenarioName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalidInput
	}

	ttsEngine, err := deepgram.ParseEngine(cfg.Speech.Engine)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalidInput
	}
	ttsOptions := make([]texttospeech.TextToSpeechOption, 0, len(cfg.Speech.Voices))
	for role, voice := range cfg.Speech.Voices {
		ttsOptions = append(ttsOptions, texttospeech.WithVoice(scenario.Role(role), voice))
	}
	synthesizer, err := deepgram.NewTextToSpeechClient(cfg.Speech.APIKey, ttsEngine, ttsOptions...)
	if err != nil {
		fmt.Fprintf(stdout, "Error: no speech engine available: %v\n", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer synthesizer.Close(context.WithoutCancel(ctx))

	return synthesize(ctx, synthesizer, set, cfg.Speech.OutputDir, cfg.Speech.AssetRoot)
}

func synthesize(ctx context.Context, synthesizer texttospeech.Synthesizer, set *scenario.Set, outputDir, assetRoot string) int {
	generator, err := texttospeech.NewGenerator(synthesizer,
		texttospeech.WithOutputDir(outputDir),
		texttospeech.WithAssetRoot(assetRoot))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	generated := scenario.NewSet()
	total := 0
	for _, name := range set.Names() {
		fmt.Fprintf(stdout, "\nGenerating TTS for scenario: %s\n", name)
		messages, _ := set.Get(name)
		results, err := generator.GenerateScenario(ctx, name, messages)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		for _, msg := range results {
			fmt.Fprintf(stdout, "  Generated: %s\n", msg.Filename)
		}
		generated.Add(name, results)
		total += len(results)
	}

	if err := generated.Save(generator.MetadataPath()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "\nAll done! Generated %d audio files\n", total)
	fmt.Fprintf(stdout, "Metadata saved to: %s\n", generator.MetadataPath())
	return exitOK
}
