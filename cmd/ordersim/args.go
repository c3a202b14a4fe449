package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/koscakluka/ema-ordersim/core/config"
	"github.com/koscakluka/ema-ordersim/core/scenario"
)

func newFlagSet(name string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	return flagSet
}

// parseFlags returns false when the command should stop, together with the
// exit code to stop with.
func parseFlags(flagSet *flag.FlagSet, arguments []string) (bool, int) {
	if err := flagSet.Parse(arguments); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, exitOK
		}
		return false, exitInvalidInput
	}
	if len(flagSet.Args()) > 0 {
		fmt.Fprintf(stderr, "unexpected positional arguments: %v\n", flagSet.Args())
		return false, exitInvalidInput
	}
	return true, exitOK
}

func loadConfig(path string) (*config.Config, bool) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, false
	}
	return cfg, true
}

// loadScenarios loads a metadata file and keeps the named scenario, or all
// of them for "all".
func loadScenarios(path, name string) (*scenario.Set, error) {
	set, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	return set.Select(name)
}
