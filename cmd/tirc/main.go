// Command tirc compiles the built-in sample programs and disassembles
// SPIR-V binaries.
//
// Usage:
//
//	tirc samples                             # list samples
//	tirc samples -target wgsl for_loop       # print a sample as WGSL
//	tirc samples -target spirv -o f.spv if_else
//	tirc dis f.spv                           # disassemble a binary
package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/gogpu/tir"
	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/spirv"
)

func main() {
	samplesCmd := &cli.Command{
		Name:        "samples",
		Description: "compile built-in sample programs",
		Action:      samplesAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("target,t", "spirv", "output: spirv, wgsl, ir"),
			cli.NewFlag("output,o", "", "output file (default: stdout)"),
			cli.NewFlag("spirv-version", "1.3", "SPIR-V version"),
			cli.NewFlag("debug", false, "emit debug names"),
			cli.NewFlag("validate", true, "validate IR before generating"),
		},
	}

	disCmd := &cli.Command{
		Name:        "dis",
		Description: "disassemble SPIR-V binaries",
		Action:      disAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "tirc",
		Description: "tirc compiles shader programs through a structured block IR",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			samplesCmd,
			disCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func samplesAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		for _, s := range samples.All() {
			fmt.Printf("%-20s %s\n", s.Name, s.Description)
		}

		return nil
	}

	target, err := tir.ParseTarget(c.String("target"))
	if err != nil {
		return err
	}

	ver, err := parseVersion(c.String("spirv-version"))
	if err != nil {
		return err
	}

	opts := tir.DefaultOptions()
	opts.Targets = target
	opts.Validate = c.Bool("validate")
	opts.SPIRV.Version = ver
	opts.SPIRV.Debug = c.Bool("debug")

	for _, name := range c.Args {
		s, ok := samples.Lookup(name)
		if !ok {
			return errors.New("no sample %q", name)
		}

		res, err := tir.Compile(ctx, s.Build(), opts)
		if err != nil {
			return errors.Wrap(err, "compile %v", name)
		}

		for _, d := range res.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, d)
		}

		var out []byte
		switch target {
		case tir.TargetSPIRV:
			out = res.SPIRV
		case tir.TargetWGSL:
			out = []byte(res.WGSL)
		case tir.TargetIR:
			out = []byte(res.IR)
		default:
			return errors.New("exactly one target expected, got %v", target)
		}

		if err := write(c.String("output"), out); err != nil {
			return errors.Wrap(err, "write %v", name)
		}
	}

	return nil
}

func disAct(c *cli.Command) (err error) {
	for _, a := range c.Args {
		data, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read")
		}

		text, err := spirv.Disassemble(data)
		if err != nil {
			return errors.Wrap(err, "disassemble %v", a)
		}

		fmt.Print(text)
	}

	return nil
}

func write(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func parseVersion(s string) (spirv.Version, error) {
	for _, v := range []spirv.Version{spirv.Version1_0, spirv.Version1_3, spirv.Version1_4, spirv.Version1_5, spirv.Version1_6} {
		if v.String() == s {
			return v, nil
		}
	}

	return spirv.Version{}, errors.New("unsupported SPIR-V version %q", s)
}
