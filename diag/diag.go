// Package diag provides the diagnostics sink shared by the IR builder,
// the validator and the code generators.
//
// Every failure path in the compiler appends at least one Diagnostic to a
// List before returning a failure indicator. Callers decide whether the
// collected diagnostics are fatal.
package diag

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

// Severity is the severity of a diagnostic.
type Severity uint8

const (
	Note Severity = iota
	Warning
	Error
	// InternalError marks a broken compiler invariant (not a user error).
	InternalError
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case InternalError:
		return "internal compiler error"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Source is an optional location in the shader source.
type Source struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the source location is set.
func (s Source) IsValid() bool { return s.Line > 0 }

func (s Source) String() string {
	if !s.IsValid() {
		return ""
	}
	if s.File != "" {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Diagnostic is a single message produced by the compiler.
type Diagnostic struct {
	Severity Severity
	Message  string
	Source   Source

	// PC is the compiler location that raised the diagnostic.
	// It is only recorded for internal errors.
	PC loc.PC
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.Source.IsValid() {
		b.WriteString(d.Source.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Severity == InternalError && d.PC != 0 {
		fmt.Fprintf(&b, " (at %v)", d.PC)
	}
	return b.String()
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Add appends a diagnostic to the list.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// AddWarning appends a warning.
func (l *List) AddWarning(src Source, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Source: src})
}

// AddError appends an error.
func (l *List) AddError(src Source, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Source: src})
}

// AddInternal appends an internal compiler error and records the caller
// skip frames above AddInternal.
func (l *List) AddInternal(skip int, format string, args ...interface{}) {
	l.Add(Diagnostic{
		Severity: InternalError,
		Message:  fmt.Sprintf(format, args...),
		PC:       loc.Caller(1 + skip),
	})
}

// Append appends all diagnostics of other.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// ContainsErrors reports whether the list has an Error or InternalError.
func (l List) ContainsErrors() bool {
	for _, d := range l {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with the given severity.
func (l List) Count(s Severity) int {
	n := 0
	for _, d := range l {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Error implements the error interface.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
}

// String returns all diagnostics, one per line.
func (l List) String() string {
	var b strings.Builder
	for i, d := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.Error())
	}
	return b.String()
}

// Err returns nil if the list contains no errors, and an error wrapping the
// list otherwise.
func (l List) Err() error {
	if !l.ContainsErrors() {
		return nil
	}
	first := l[0]
	for _, d := range l {
		if d.Severity >= Error {
			first = d
			break
		}
	}
	return errors.Wrap(l, "%d error(s), first: %v", l.Count(Error)+l.Count(InternalError), first.Message)
}
