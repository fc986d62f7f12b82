package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
)

func compileFile(ctx context.Context, rt *jsapi.Runtime, file string) (*jsapi.Module, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return rt.Compile(ctx, data)
}

func inspectCommand() *cobra.Command {
	var dump bool

	command := &cobra.Command{
		Use:   "inspect [path to module]",
		Short: "Print a module's import and export descriptors",
		Long:  "Print the descriptors WebAssembly.Module.imports and WebAssembly.Module.exports report for a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := jsapi.New(ctx, jsapi.DefaultConfig())
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			mod, err := compileFile(ctx, rt, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Module: %s\n", args[0])
			if err := writeDescriptors(os.Stdout, "Imports", mod.Imports()); err != nil {
				return err
			}
			if err := writeDescriptors(os.Stdout, "Exports", mod.Exports()); err != nil {
				return err
			}

			if dump {
				printer := pp.New()
				printer.SetOutput(os.Stdout)
				printer.SetColoringEnabled(isTerminal(os.Stdout))
				fmt.Println()
				if _, err := printer.Println(mod.Description()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	command.Flags().BoolVar(&dump, "dump", false, "pretty-print the decoded module")

	return command
}

func writeDescriptors(w io.Writer, title string, list *jsval.Object) error {
	items, err := jsval.ReadArrayLike(list, 1<<20)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s: %d\n", title, len(items))
	for _, item := range items {
		line, err := describe(item)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

// describe renders a descriptor as: kind module.name {type}.
func describe(desc jsval.Value) (string, error) {
	var b strings.Builder
	kind, err := jsval.Get(desc, "kind")
	if err != nil {
		return "", err
	}
	b.WriteString(jsval.Format(kind))
	b.WriteByte(' ')

	obj, _ := jsval.AsObject(desc)
	if obj != nil && obj.HasOwnProperty("module") {
		module, err := jsval.Get(desc, "module")
		if err != nil {
			return "", err
		}
		b.WriteString(jsval.Format(module))
		b.WriteByte('.')
	}
	name, err := jsval.Get(desc, "name")
	if err != nil {
		return "", err
	}
	b.WriteString(jsval.Format(name))

	typ, err := jsval.Get(desc, "type")
	if err != nil {
		return "", err
	}
	if typ, ok := jsval.AsObject(typ); ok {
		b.WriteString(" {")
		for i, key := range typ.OwnKeys() {
			v, err := jsval.Get(typ, key)
			if err != nil {
				return "", err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(jsval.Format(v))
		}
		b.WriteByte('}')
	}
	return b.String(), nil
}
