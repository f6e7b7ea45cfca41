package wgsl

import (
	"fmt"

	"tlog.app/go/loc"

	"github.com/gogpu/tir/diag"
)

// bailout aborts lowering after a fatal diagnostic has been recorded.
// It is recovered by Lower and never escapes the package.
type bailout struct{}

// sourceOf converts an AST span to a diagnostic source location.
func sourceOf(span Span) diag.Source {
	return diag.Source{
		File:   span.Source,
		Line:   span.Start.Line,
		Column: span.Start.Column,
	}
}

// warnf records a non-fatal diagnostic; lowering continues.
func (l *Lowerer) warnf(span Span, format string, args ...interface{}) {
	l.diags.AddWarning(sourceOf(span), format, args...)
}

// fatalf records a broken builder contract and aborts lowering.
func (l *Lowerer) fatalf(span Span, format string, args ...interface{}) {
	l.diags.Add(diag.Diagnostic{
		Severity: diag.InternalError,
		Message:  fmt.Sprintf(format, args...),
		Source:   sourceOf(span),
		PC:       loc.Caller(1),
	})
	panic(bailout{})
}
