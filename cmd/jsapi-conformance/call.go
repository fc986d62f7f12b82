package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
)

func callCommand() *cobra.Command {
	var interactive bool
	var engine string

	command := &cobra.Command{
		Use:   "call [path to module] [export] [args...]",
		Short: "Call an exported function",
		Long: "Instantiate a module without imports and call one of its exported functions.\n" +
			"Arguments are numbers, BigInts (42n), null, undefined or strings.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := jsapi.DefaultConfig()
			if engine != "" {
				cfg.Engine = jsapi.EngineKind(engine)
			}
			if interactive {
				return runInteractive(args[0], cfg)
			}
			if len(args) < 2 {
				return fmt.Errorf("expected an export name")
			}

			ctx := cmd.Context()
			rt, inst, err := instantiateFile(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			fn := inst.ExportedFunction(args[1])
			if fn == nil {
				return fmt.Errorf("no exported function %q", args[1])
			}
			callArgs := make([]jsval.Value, len(args)-2)
			for i, a := range args[2:] {
				callArgs[i] = parseArg(a)
			}
			result, err := fn.Call(callArgs...)
			if err != nil {
				return err
			}
			fmt.Println(jsval.Format(result))
			return nil
		},
	}

	command.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose functions and arguments in a terminal UI")
	command.Flags().StringVar(&engine, "engine", "", "engine (auto, interpreter, compiler)")

	return command
}

func instantiateFile(ctx context.Context, cfg jsapi.Config, file string) (*jsapi.Runtime, *jsapi.Instance, error) {
	rt, err := jsapi.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	mod, err := compileFile(ctx, rt, file)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, err
	}
	inst, err := rt.Instantiate(ctx, mod, jsval.NewRecord())
	if err != nil {
		rt.Close(ctx)
		return nil, nil, err
	}
	return rt, inst, nil
}

// parseArg reads a command line argument as a JS value.
func parseArg(s string) jsval.Value {
	switch s {
	case "undefined":
		return jsval.Undefined
	case "null":
		return jsval.Null
	case "true":
		return jsval.Bool(true)
	case "false":
		return jsval.Bool(false)
	}
	if digits, ok := strings.CutSuffix(s, "n"); ok {
		if n, ok := new(big.Int).SetString(digits, 10); ok {
			return jsval.BigIntFrom(n)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return jsval.Number(f)
	}
	return jsval.String(s)
}
