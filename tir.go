// Package tir compiles semantically resolved shader programs through a
// structured block IR.
//
// The pipeline is:
//  1. Lower the AST to IR (wgsl.Lower)
//  2. Validate the IR (ir.Validate), if enabled
//  3. Run the requested generators: SPIR-V binary, WGSL text, IR dump
//
// Example:
//
//	res, err := tir.Compile(ctx, ast, tir.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	os.WriteFile("shader.spv", res.SPIRV, 0o644)
//
// Each stage opens a tlog span on the context's span, so a configured
// logger shows per-stage timing and the diagnostics of failed stages.
package tir

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/spirv"
	"github.com/gogpu/tir/wgsl"
)

// Target selects generator outputs.
type Target uint8

const (
	TargetSPIRV Target = 1 << iota
	TargetWGSL
	TargetIR

	TargetAll = TargetSPIRV | TargetWGSL | TargetIR
)

func (t Target) String() string {
	switch t {
	case TargetSPIRV:
		return "spirv"
	case TargetWGSL:
		return "wgsl"
	case TargetIR:
		return "ir"
	}

	var s string
	for _, x := range []Target{TargetSPIRV, TargetWGSL, TargetIR} {
		if t&x == 0 {
			continue
		}
		if s != "" {
			s += "+"
		}
		s += x.String()
	}
	if s == "" {
		return "none"
	}
	return s
}

// ParseTarget parses a target name as printed by Target.String.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "spirv", "spv":
		return TargetSPIRV, nil
	case "wgsl":
		return TargetWGSL, nil
	case "ir":
		return TargetIR, nil
	case "all":
		return TargetAll, nil
	}
	return 0, errors.New("unknown target %q", s)
}

// Options configures compilation.
type Options struct {
	// Targets selects the generated outputs.
	Targets Target

	SPIRV spirv.Options
	WGSL  wgsl.WriterOptions

	// Validate checks the IR before running the generators.
	Validate bool

	// DumpIR logs the IR disassembly to the compile span.
	DumpIR bool
}

// DefaultOptions returns options producing SPIR-V 1.3 from validated IR.
func DefaultOptions() Options {
	return Options{
		Targets:  TargetSPIRV,
		SPIRV:    spirv.DefaultOptions(),
		WGSL:     wgsl.DefaultWriterOptions(),
		Validate: true,
	}
}

// Result holds the outputs of a compilation.
type Result struct {
	Module *ir.Module

	// Diagnostics collects warnings and errors of every stage.
	Diagnostics diag.List

	SPIRV []byte
	WGSL  string
	IR    string
}

// Compile lowers ast and runs the generators selected by opts.
//
// On error the returned Result holds no output. It still holds the
// diagnostics collected so far and the module, if lowering succeeded.
func Compile(ctx context.Context, ast *wgsl.Module, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "targets", opts.Targets.String())
	defer tr.Finish("err", &err)

	res = &Result{}

	defer func() {
		if err != nil {
			res.SPIRV, res.WGSL, res.IR = nil, "", ""
		}
	}()

	m, diags, err := wgsl.Lower(ctx, ast)
	res.Diagnostics.Append(diags)
	if err != nil {
		return res, errors.Wrap(err, "lower")
	}

	res.Module = m

	if opts.DumpIR || tr.If("dump_ir") {
		tr.Printw("ir", "dump", ir.Disassemble(m))
	}

	if opts.Validate {
		vd := ir.Validate(m)
		res.Diagnostics.Append(vd)
		if err := vd.Err(); err != nil {
			return res, errors.Wrap(err, "validate")
		}
	}

	if opts.Targets&TargetIR != 0 {
		res.IR = ir.Disassemble(m)
	}

	if opts.Targets&TargetWGSL != 0 {
		res.WGSL, err = wgsl.Write(m, opts.WGSL)
		if err != nil {
			res.Diagnostics.Add(diag.Diagnostic{Severity: diag.InternalError, Message: "write wgsl: " + err.Error()})
			return res, errors.Wrap(err, "write wgsl")
		}
	}

	if opts.Targets&TargetSPIRV != 0 {
		var gd diag.List
		res.SPIRV, gd, err = spirv.Generate(ctx, m, opts.SPIRV)
		res.Diagnostics.Append(gd)
		if err != nil {
			return res, errors.Wrap(err, "generate spirv")
		}
	}

	return res, nil
}
