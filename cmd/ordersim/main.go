package main

import (
	"fmt"
	"io"
	"os"
)

// version is stamped at release time via ldflags.
var version = "0.0.0-dev"

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 6
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitInvalidInput
	}

	switch arguments[1] {
	case "validate":
		return runValidate(arguments[2:])
	case "simulate":
		return runSimulate(arguments[2:])
	case "synthesize":
		return runSynthesize(arguments[2:])
	case "browse":
		return runBrowse(arguments[2:])
	case "schema":
		return runSchema(arguments[2:])
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "ordersim", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: ordersim <command> [flags]

Commands:
  validate    check scenario metadata offline and fold every order
  simulate    replay scenarios against the live order-parsing service
  synthesize  generate speech for the sample scenarios
  browse      step through a scenario and watch the order change
  schema      print the JSON Schema of the scenario metadata
  version     print the version

Run "ordersim <command> --help" for the flags of a command.`)
}
