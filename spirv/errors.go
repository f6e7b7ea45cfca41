package spirv

import (
	"fmt"

	"tlog.app/go/loc"

	"github.com/gogpu/tir/diag"
)

// bailout aborts generation after an internal error has been recorded.
type bailout struct{}

// fatalf records an IR shape the generator cannot translate and aborts.
// Input reaching the generator has passed the builder, so every such
// failure is an internal compiler error.
func (g *Generator) fatalf(format string, args ...interface{}) {
	g.diags.Add(diag.Diagnostic{
		Severity: diag.InternalError,
		Message:  fmt.Sprintf(format, args...),
		PC:       loc.Caller(1),
	})
	panic(bailout{})
}
