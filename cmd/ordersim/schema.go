package main

import (
	"encoding/json"
	"fmt"

	"github.com/koscakluka/ema-ordersim/core/scenario"
)

func runSchema(arguments []string) int {
	flagSet := newFlagSet("schema")
	if ok, code := parseFlags(flagSet, arguments); !ok {
		return code
	}

	data, err := json.MarshalIndent(scenario.Schema(), "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(data))
	return exitOK
}
