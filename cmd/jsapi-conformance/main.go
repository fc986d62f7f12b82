package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/suite"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	var verbose bool

	rootCommand := &cobra.Command{
		Use:           "jsapi-conformance",
		Short:         "WebAssembly JS-API conformance runner",
		Long:          "jsapi-conformance - runs the WebAssembly JS-API conformance cases against wazero",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			jsapi.SetLogger(logger)
			suite.SetLogger(logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			_ = suite.Logger().Sync()
			return nil
		},
	}

	rootCommand.AddCommand(runCommand())
	rootCommand.AddCommand(listCommand())
	rootCommand.AddCommand(inspectCommand())
	rootCommand.AddCommand(callCommand())

	rootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log runtime activity to stderr")

	return rootCommand
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	if err := configureCLI().Execute(); err != nil {
		if _, failed := err.(*failedError); !failed {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}
