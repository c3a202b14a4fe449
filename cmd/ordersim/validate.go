package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/koscakluka/ema-ordersim/core/report"
	"github.com/koscakluka/ema-ordersim/core/scenario"
)

func runValidate(arguments []string) int {
	flagSet := newFlagSet("validate")

	var configPath string
	var scenariosPath string
	var scenarioName string
	var ttsDir string
	var skipAssets bool
	var reportPath string

	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&scenariosPath, "scenarios", "", "scenario metadata file (default from config)")
	flagSet.StringVar(&scenarioName, "scenario", scenario.AllScenarios, "scenario to validate or all")
	flagSet.StringVar(&ttsDir, "tts-dir", "", "directory holding generated audio (default from config)")
	flagSet.BoolVar(&skipAssets, "skip-assets", false, "do not check that audio files exist")
	flagSet.StringVar(&reportPath, "report", "", "also write a JSON report to this path")

	if ok, code := parseFlags(flagSet, arguments); !ok {
		return code
	}
	cfg, ok := loadConfig(configPath)
	if !ok {
		return exitInvalidInput
	}
	if scenariosPath == "" {
		scenariosPath = cfg.Scenarios
	}
	if ttsDir == "" && !flagWasSet(flagSet, "tts-dir") {
		ttsDir = cfg.Speech.OutputDir
	}

	fmt.Fprintln(stdout, strings.Repeat("=", 60))
	fmt.Fprintln(stdout, "Offline Conversation Validation Test")
	fmt.Fprintln(stdout, strings.Repeat("=", 60))

	set, err := loadScenarios(scenariosPath, scenarioName)
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "\nFound %d scenarios: %s\n", set.Len(), strings.Join(set.Names(), ", "))

	var opts []report.ValidationOption
	if !skipAssets && ttsDir != "" {
		opts = append(opts, report.WithAssetStore(report.DirAssetStore(ttsDir)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := report.ValidateAll(ctx, set, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if err := report.RenderRun(stdout, results); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if reportPath != "" {
		if err := report.WriteJSON(reportPath, results); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Report saved to: %s\n", reportPath)
	}

	if !report.AllValid(results) {
		return exitFailure
	}
	return exitOK
}

func flagWasSet(flagSet *flag.FlagSet, name string) bool {
	set := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
