package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-jsapi/suite"
)

// failedError reports failed cases; the report has already been printed.
type failedError struct {
	failed int
}

func (e *failedError) Error() string {
	return fmt.Sprintf("%d case(s) failed", e.failed)
}

func loadConfig(file string, include, exclude []string) (suite.Config, error) {
	cfg := suite.DefaultConfig()
	if file != "" {
		var err error
		if cfg, err = suite.LoadConfig(file); err != nil {
			return cfg, err
		}
	}
	cfg.Include = append(cfg.Include, include...)
	cfg.Exclude = append(cfg.Exclude, exclude...)
	return cfg, cfg.Validate()
}

func runCommand() *cobra.Command {
	var configFile, format, engine string
	var include, exclude []string
	var failFast bool

	command := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance cases",
		Long:  "Run the conformance cases and print a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, include, exclude)
			if err != nil {
				return err
			}
			if engine != "" {
				cfg.Runtime.Engine = engine
			}
			if failFast {
				cfg.FailFast = true
			}

			runner, err := suite.NewRunner(cfg)
			if err != nil {
				return err
			}
			results, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "text":
				err = suite.WriteText(os.Stdout, results, isTerminal(os.Stdout))
			case "csv":
				err = suite.WriteCSV(os.Stdout, results)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}

			if s := suite.Summarize(results); !s.OK() {
				return &failedError{failed: s.Fail}
			}
			return nil
		},
	}

	command.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	command.Flags().StringVarP(&format, "format", "f", "text", "report format (text, csv)")
	command.Flags().StringVar(&engine, "engine", "", "engine override (auto, interpreter, compiler)")
	command.Flags().StringSliceVar(&include, "include", nil, "only run cases matching these patterns")
	command.Flags().StringSliceVar(&exclude, "exclude", nil, "skip cases matching these patterns")
	command.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failure")

	return command
}

func listCommand() *cobra.Command {
	var configFile string
	var include, exclude []string

	command := &cobra.Command{
		Use:   "list",
		Short: "List the conformance cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, include, exclude)
			if err != nil {
				return err
			}
			runner, err := suite.NewRunner(cfg)
			if err != nil {
				return err
			}
			for _, c := range runner.Selected() {
				fmt.Println(c.ID())
			}
			return nil
		},
	}

	command.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	command.Flags().StringSliceVar(&include, "include", nil, "only list cases matching these patterns")
	command.Flags().StringSliceVar(&exclude, "exclude", nil, "omit cases matching these patterns")

	return command
}
