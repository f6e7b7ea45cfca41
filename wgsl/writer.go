package wgsl

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// WriterOptions configures WGSL text generation.
type WriterOptions struct {
	// Indent is the string written once per nesting level.
	Indent string
}

// DefaultWriterOptions returns the default writer options.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{Indent: "  "}
}

// Writer generates WGSL source code from IR.
type Writer struct {
	module *ir.Module
	opts   WriterOptions

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	namer *namer
	names map[ir.Value]string

	// pending holds loads that were deferred for inlining. They are bound
	// to a let before the next side effect.
	pending []*ir.InstructionResult

	// Indentation levels at which continue and exit_switch end their
	// region implicitly.
	loopTop   []int
	switchTop []int
}

// namer generates unique identifiers.
type namer struct {
	usedNames map[string]struct{}
	counter   uint32
}

func newNamer() *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
	}
}

// call generates a unique name based on the given base.
func (n *namer) call(base string) string {
	if base == "" {
		base = "v"
	}
	if _, used := n.usedNames[base]; !used && !keywords[base] {
		n.usedNames[base] = struct{}{}
		return base
	}

	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", base, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

// keywords are reserved words that cannot be used as identifiers.
var keywords = map[string]bool{
	"alias": true, "break": true, "case": true, "const": true, "continue": true,
	"continuing": true, "default": true, "diagnostic": true, "discard": true,
	"else": true, "enable": true, "false": true, "fn": true, "for": true,
	"if": true, "let": true, "loop": true, "override": true, "requires": true,
	"return": true, "struct": true, "switch": true, "true": true, "var": true,
	"while": true, "fallthrough": true,
}

// Write generates WGSL source code for module m.
func Write(m *ir.Module, opts WriterOptions) (string, error) {
	w := &Writer{
		module: m,
		opts:   opts,
		namer:  newNamer(),
		names:  make(map[ir.Value]string),
	}

	if err := w.writeModule(); err != nil {
		return "", err
	}

	return w.out.String(), nil
}

func (w *Writer) writeModule() error {
	// Functions are named first so that calls can refer to functions
	// defined later in the module.
	for _, f := range w.module.Functions {
		w.namer.call(f.Name)
	}

	wrote := w.writeStructs()

	root := w.module.RootBlock()
	for _, inst := range root.Instructions {
		if inst.Kind != ir.KindVar {
			return errors.New("module scope %v instruction", inst.Kind)
		}
		w.writeGlobal(inst)
		wrote = true
	}

	for _, f := range w.module.Functions {
		if wrote {
			w.out.WriteByte('\n')
		}
		if err := w.writeFunction(f); err != nil {
			return errors.Wrap(err, "function %v", f.Name)
		}
		wrote = true
	}

	return nil
}

func (w *Writer) writeStructs() bool {
	wrote := false
	for _, t := range w.module.Types.All() {
		s, ok := t.(*types.Struct)
		if !ok {
			continue
		}
		if wrote {
			w.out.WriteByte('\n')
		}
		w.writeLine("struct %s {", s.Name)
		w.pushIndent()
		for _, m := range s.Members {
			w.writeLine("%s : %s,", m.Name, m.Type)
		}
		w.popIndent()
		w.writeLine("}")
		wrote = true
	}
	return wrote
}

func (w *Writer) writeGlobal(inst *ir.Instruction) {
	res := inst.Result()
	v := inst.Var()
	ptr := res.Type().(*types.Pointer)

	name := w.namer.call(w.module.Name(res))
	w.names[res] = name

	w.writeIndent()
	if v.Binding != nil {
		fmt.Fprintf(&w.out, "@group(%d) @binding(%d) ", v.Binding.Group, v.Binding.Binding)
	}

	switch v.Space {
	case types.SpaceHandle:
		w.out.WriteString("var")
	case types.SpaceStorage:
		fmt.Fprintf(&w.out, "var<storage, %s>", v.Access)
	default:
		fmt.Fprintf(&w.out, "var<%s>", v.Space)
	}

	fmt.Fprintf(&w.out, " %s : %s", name, ptr.Store)
	if ops := inst.Operands(); len(ops) != 0 {
		fmt.Fprintf(&w.out, " = %s", w.expr(ops[0]))
	}
	w.out.WriteString(";\n")
}

func (w *Writer) writeFunction(f *ir.Function) error {
	switch f.Stage {
	case ir.StageVertex:
		w.writeLine("@vertex")
	case ir.StageFragment:
		w.writeLine("@fragment")
	case ir.StageCompute:
		s := f.WorkgroupSize
		w.writeLine("@compute @workgroup_size(%d, %d, %d)", s[0], s[1], s[2])
	}

	w.writeIndent()
	fmt.Fprintf(&w.out, "fn %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			w.out.WriteString(", ")
		}
		name := w.namer.call(w.module.Name(p))
		w.names[p] = name
		fmt.Fprintf(&w.out, "%s%s : %s", ioAttributes(p.IO), name, p.Type())
	}
	w.out.WriteString(")")

	if _, void := f.ReturnType.(*types.Void); !void {
		fmt.Fprintf(&w.out, " -> %s%s", ioAttributes(f.ReturnIO), f.ReturnType)
	}

	w.pushIndent()
	body, err := w.capture(func() error { return w.writeRegion(f.Entry) })
	w.popIndent()
	if err != nil {
		return err
	}

	w.writeCompoundTail(body)

	return nil
}

func ioAttributes(io ir.IOAttributes) string {
	switch {
	case io.Builtin != ir.BuiltinValueNone:
		return "@builtin(" + io.Builtin.String() + ") "
	case io.HasLocation:
		return fmt.Sprintf("@location(%d) ", io.Location)
	}
	return ""
}

// writeRegion writes block id and, for blocks ending in a control
// instruction, the construct's merge block after it.
func (w *Writer) writeRegion(id ir.BlockID) error {
	for id != ir.NoBlock {
		blk := w.module.Block(id)
		if blk == nil {
			return errors.New("missing block %d", id)
		}

		for _, inst := range blk.Instructions {
			if err := w.writeInstruction(inst); err != nil {
				return err
			}
		}

		id = ir.NoBlock
		if t := blk.Terminator(); t != nil && t.Kind.IsControl() {
			id = t.Merge()
		}
	}

	return nil
}

// writeInstruction writes one instruction as a statement, or defers it for
// inlining into its single user.
//
//nolint:gocyclo // one arm per instruction kind
func (w *Writer) writeInstruction(inst *ir.Instruction) error {
	switch inst.Kind {
	case ir.KindBinary, ir.KindUnary, ir.KindConstruct, ir.KindConvert, ir.KindAccess, ir.KindSwizzle, ir.KindLoad, ir.KindBuiltinCall:
		res := inst.Result()
		if res == nil {
			args := w.args(inst.Operands())
			w.flush()
			w.writeLine("%s(%s);", inst.Payload.(*ir.BuiltinCall).Func, args)
			return nil
		}
		if w.deferrable(inst) {
			if inst.Kind == ir.KindLoad {
				w.pending = append(w.pending, res)
			}
			return nil
		}
		w.bind(res)

	case ir.KindUserCall:
		call := inst.Payload.(*ir.UserCall)
		args := w.args(inst.Operands())
		w.flush()
		res := inst.Result()
		if res == nil || len(res.Usages()) == 0 {
			w.writeLine("%s(%s);", call.Func.Name, args)
			return nil
		}
		name := w.namer.call(w.module.Name(res))
		w.names[res] = name
		w.writeLine("let %s = %s(%s);", name, call.Func.Name, args)

	case ir.KindStore:
		lhs := w.ref(inst.Operand(0))
		rhs := w.expr(inst.Operand(1))
		w.flush()
		w.writeLine("%s = %s;", lhs, rhs)

	case ir.KindVar:
		res := inst.Result()
		ptr := res.Type().(*types.Pointer)
		init := ""
		if ops := inst.Operands(); len(ops) != 0 {
			init = " = " + w.expr(ops[0])
		}
		w.flush()
		name := w.namer.call(w.module.Name(res))
		w.names[res] = name
		w.writeLine("var %s : %s%s;", name, ptr.Store, init)

	case ir.KindIf:
		return w.writeIf(inst)

	case ir.KindLoop:
		return w.writeLoop(inst)

	case ir.KindSwitch:
		return w.writeSwitch(inst)

	case ir.KindReturn:
		if ops := inst.Operands(); len(ops) != 0 {
			v := w.expr(ops[0])
			w.flush()
			w.writeLine("return %s;", v)
			return nil
		}
		w.flush()
		if w.indent > 1 {
			w.writeLine("return;")
		}

	case ir.KindExitLoop:
		w.flush()
		w.writeLine("break;")

	case ir.KindExitSwitch:
		w.flush()
		if n := len(w.switchTop); n == 0 || w.switchTop[n-1] != w.indent {
			w.writeLine("break;")
		}

	case ir.KindContinue:
		w.flush()
		if n := len(w.loopTop); n == 0 || w.loopTop[n-1] != w.indent {
			w.writeLine("continue;")
		}

	case ir.KindBreakIf:
		cond := w.expr(inst.Operand(0))
		w.flush()
		w.writeLine("break if %s;", cond)

	case ir.KindFallthrough:
		w.flush()
		w.writeLine("fallthrough;")

	case ir.KindDiscard:
		w.flush()
		w.writeLine("discard;")

	case ir.KindExitIf, ir.KindNextIteration, ir.KindUnreachable:
		w.flush()

	default:
		return errors.New("unsupported instruction %v", inst.Kind)
	}

	return nil
}

// deferrable reports whether the value of a side-effect free instruction
// can be written at its single use instead of being bound to a let.
func (w *Writer) deferrable(inst *ir.Instruction) bool {
	switch inst.Kind {
	case ir.KindBinary, ir.KindUnary, ir.KindConstruct, ir.KindConvert, ir.KindAccess, ir.KindSwizzle, ir.KindLoad, ir.KindBuiltinCall:
	default:
		return false
	}
	res := inst.Result()
	return res != nil && len(res.Usages()) == 1 && w.module.Name(res) == ""
}

// bind writes a let statement for a value that is used more than once,
// named, or unused.
func (w *Writer) bind(res *ir.InstructionResult) {
	v := w.inline(res)
	if len(res.Usages()) == 0 {
		if _, ptr := res.Type().(*types.Pointer); ptr {
			return
		}
		w.flush()
		w.writeLine("_ = %s;", v)
		return
	}

	name := w.namer.call(w.module.Name(res))
	w.names[res] = name
	w.writeLine("let %s = %s;", name, v)
}

// flush binds every deferred load to a let so that it observes memory
// before the following side effect.
func (w *Writer) flush() {
	pending := w.pending
	w.pending = nil

	for _, res := range pending {
		name := w.namer.call("")
		w.writeLine("let %s = %s;", name, w.inline(res))
		w.names[res] = name
	}
}

func (w *Writer) consume(res *ir.InstructionResult) {
	for i, p := range w.pending {
		if p == res {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return
		}
	}
}

func (w *Writer) args(vals []ir.Value) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(w.expr(v))
	}
	return b.String()
}

// expr returns the WGSL expression for a value. Pointer values are written
// as pointer expressions.
func (w *Writer) expr(v ir.Value) string {
	if _, ptr := v.Type().(*types.Pointer); ptr {
		return w.pointer(v)
	}

	switch v := v.(type) {
	case *ir.Constant:
		return v.String()
	case *ir.FunctionParam:
		return w.names[v]
	case *ir.InstructionResult:
		if name, ok := w.names[v]; ok {
			return name
		}
		return w.inline(v)
	}

	return fmt.Sprintf("<%T>", v)
}

// pointer returns a pointer expression for v.
func (w *Writer) pointer(v ir.Value) string {
	if isVar(v) {
		return "&" + w.names[v]
	}
	if name, ok := w.names[v]; ok {
		return name
	}
	return "&" + w.ref(v)
}

// ref returns the reference expression for the memory pointer v points to.
func (w *Writer) ref(v ir.Value) string {
	if isVar(v) {
		return w.names[v]
	}
	if name, ok := w.names[v]; ok {
		return "(*" + name + ")"
	}

	res, ok := v.(*ir.InstructionResult)
	if !ok || res.Source.Kind != ir.KindAccess {
		return "(*" + w.expr(v) + ")"
	}

	inst := res.Source
	ops := inst.Operands()
	base := ops[0]
	s := w.ref(base)
	return s + w.accessors(types.Deref(base.Type()), ops[1:])
}

func isVar(v ir.Value) bool {
	res, ok := v.(*ir.InstructionResult)
	return ok && res.Source != nil && res.Source.Kind == ir.KindVar
}

// accessors writes the member and index suffixes of an access chain into
// a value of type t.
func (w *Writer) accessors(t types.Type, indices []ir.Value) string {
	var b strings.Builder
	for _, idx := range indices {
		c, constIdx := idx.(*ir.Constant)

		switch tt := t.(type) {
		case *types.Struct:
			if constIdx && int(c.U32()) < len(tt.Members) {
				m := tt.Members[c.U32()]
				b.WriteString("." + m.Name)
				t = m.Type
				continue
			}
		case *types.Vector:
			if constIdx && c.U32() < tt.Width {
				b.WriteString("." + string("xyzw"[c.U32()]))
				t = tt.Elem
				continue
			}
			t = tt.Elem
		case *types.Matrix:
			t = tt.ColumnType()
		case *types.Array:
			t = tt.Elem
		}

		b.WriteString("[" + w.expr(idx) + "]")
	}
	return b.String()
}

// inline returns the expression of an instruction result.
func (w *Writer) inline(res *ir.InstructionResult) string {
	inst := res.Source
	ops := inst.Operands()

	switch inst.Kind {
	case ir.KindBinary:
		op := inst.Payload.(*ir.Binary).Op
		return "(" + w.expr(ops[0]) + " " + binaryOperator(op) + " " + w.expr(ops[1]) + ")"

	case ir.KindUnary:
		operand := w.expr(ops[0])
		if strings.HasPrefix(operand, "-") {
			operand = "(" + operand + ")"
		}
		return unaryOperator(inst.Payload.(*ir.Unary).Op) + operand

	case ir.KindBuiltinCall:
		return inst.Payload.(*ir.BuiltinCall).Func.String() + "(" + w.args(ops) + ")"

	case ir.KindUserCall:
		return inst.Payload.(*ir.UserCall).Func.Name + "(" + w.args(ops) + ")"

	case ir.KindLoad:
		w.consume(res)
		return w.ref(ops[0])

	case ir.KindConstruct, ir.KindConvert:
		return res.Type().String() + "(" + w.args(ops) + ")"

	case ir.KindAccess:
		if _, ptr := res.Type().(*types.Pointer); ptr {
			return "&" + w.ref(res)
		}
		return w.expr(ops[0]) + w.accessors(ops[0].Type(), ops[1:])

	case ir.KindSwizzle:
		var b strings.Builder
		for _, i := range inst.Payload.(*ir.Swizzle).Indices {
			b.WriteByte("xyzw"[i])
		}
		return w.expr(ops[0]) + "." + b.String()
	}

	return fmt.Sprintf("<%v>", inst.Kind)
}

var binaryOperators = map[ir.BinaryOp]string{
	ir.BinaryAdd:          "+",
	ir.BinarySubtract:     "-",
	ir.BinaryMultiply:     "*",
	ir.BinaryDivide:       "/",
	ir.BinaryModulo:       "%",
	ir.BinaryEqual:        "==",
	ir.BinaryNotEqual:     "!=",
	ir.BinaryLess:         "<",
	ir.BinaryLessEqual:    "<=",
	ir.BinaryGreater:      ">",
	ir.BinaryGreaterEqual: ">=",
	ir.BinaryAnd:          "&",
	ir.BinaryExclusiveOr:  "^",
	ir.BinaryInclusiveOr:  "|",
	ir.BinaryLogicalAnd:   "&&",
	ir.BinaryLogicalOr:    "||",
	ir.BinaryShiftLeft:    "<<",
	ir.BinaryShiftRight:   ">>",
}

func binaryOperator(op ir.BinaryOp) string {
	if s, ok := binaryOperators[op]; ok {
		return s
	}
	return op.String()
}

func unaryOperator(op ir.UnaryOp) string {
	switch op {
	case ir.UnaryNegate:
		return "-"
	case ir.UnaryLogicalNot:
		return "!"
	case ir.UnaryBitwiseNot:
		return "~"
	}
	return op.String()
}

// Output helpers.

func (w *Writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString(w.opts.Indent)
	}
}

func (w *Writer) pushIndent() {
	w.indent++
}

func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

// capture runs fn with a fresh output buffer and returns what it wrote.
func (w *Writer) capture(fn func() error) (string, error) {
	saved := w.out
	w.out = strings.Builder{}

	err := fn()

	text := w.out.String()
	w.out = saved

	return text, err
}

// writeCompound writes header followed by a braced body at the current
// indentation. An empty body is written as { }.
func (w *Writer) writeCompound(header, body string) {
	w.writeIndent()
	w.out.WriteString(header)
	w.writeCompoundTail(body)
}

func (w *Writer) writeCompoundTail(body string) {
	if body == "" {
		w.out.WriteString(" { }\n")
		return
	}
	w.out.WriteString(" {\n")
	w.out.WriteString(body)
	w.writeLine("}")
}

// reindent prefixes every line of text with one more indentation level.
func (w *Writer) reindent(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(w.opts.Indent)
		b.WriteString(l)
	}
	return b.String()
}

// statementText returns text as a single statement without indentation and
// trailing semicolon, for use in a for header.
func statementText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", true
	}
	if strings.Contains(text, "\n") || !strings.HasSuffix(text, ";") {
		return "", false
	}
	return strings.TrimSuffix(text, ";"), true
}
