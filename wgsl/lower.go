package wgsl

import (
	"context"
	"strconv"
	"strings"

	"tlog.app/go/tlog"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// Lowerer converts a validated WGSL AST to tir IR.
//
// A Lowerer holds the state of one compilation and must not be shared
// between goroutines.
type Lowerer struct {
	module *ir.Module
	b      *ir.Builder
	diags  diag.List
	tr     tlog.Span

	funcs  map[*FunctionDecl]*ir.Function
	values map[Decl]ir.Value

	// Per-function state. The builder's insertion block is the current
	// block; cursor saves the enclosing current blocks while a nested
	// construct is lowered.
	fn                *ir.Function
	cursor            []*ir.Block
	control           []*ir.Instruction
	fallthroughTarget ir.BlockID
}

// Lower converts a validated AST module to IR.
//
// Warnings are returned together with the module. If lowering fails, the
// module is nil, err is non-nil and diags holds the reasons.
func Lower(ctx context.Context, ast *Module) (m *ir.Module, diags diag.List, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower", "functions", len(ast.Functions), "globals", len(ast.GlobalVars))
	defer tr.Finish("err", &err)

	module := ir.NewModule()
	l := &Lowerer{
		module: module,
		b:      ir.NewBuilder(module),
		tr:     tr,
		funcs:  make(map[*FunctionDecl]*ir.Function, len(ast.Functions)),
		values: make(map[Decl]ir.Value, 16),
	}

	err = l.lower(ast)
	if err != nil {
		return nil, l.diags, err
	}

	return module, l.diags, nil
}

func (l *Lowerer) lower(ast *Module) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, ok := p.(bailout); !ok {
			panic(p)
		}
		err = l.diags.Err()
	}()

	l.b.SetInsertion(l.module.RootBlock())

	for _, s := range ast.Structs {
		l.module.Types.Get(s.Type)
	}

	for _, c := range ast.Constants {
		l.values[c] = l.expr(c.Init)
	}

	for _, v := range ast.GlobalVars {
		l.lowerGlobalVar(v)
	}

	// Declare all functions first to support forward references.
	for _, f := range ast.Functions {
		l.declareFunction(f)
	}

	for _, f := range ast.Functions {
		l.lowerFunction(f)
	}

	return l.diags.Err()
}

func (l *Lowerer) lowerGlobalVar(v *VarDecl) {
	space := l.addressSpace(v)
	access := accessMode(v.AccessMode, space)

	var init ir.Value
	if v.Init != nil {
		init = l.expr(v.Init)
	}

	res := l.b.Var(v.Name, space, access, v.Type, init)
	res.Source.Var().Binding = l.bindingPoint(v.Attributes)
	l.values[v] = res
}

func (l *Lowerer) declareFunction(f *FunctionDecl) {
	fn := l.module.NewFunction(f.Name, f.ReturnType)
	fn.ReturnIO = l.ioAttributes(f.ReturnAttrs)

	if stage, ok := entryPointStage(f.Attributes); ok {
		fn.Stage = stage
		if stage == ir.StageCompute {
			fn.WorkgroupSize = extractWorkgroupSize(f.Attributes)
		}
	}

	for _, p := range f.Params {
		param := l.module.AddParam(fn, p.Name, p.Type)
		param.IO = l.ioAttributes(p.Attributes)
		l.values[p] = param
	}

	l.funcs[f] = fn
}

func (l *Lowerer) lowerFunction(f *FunctionDecl) {
	fn := l.funcs[f]
	l.fn = fn
	l.control = l.control[:0]
	l.cursor = l.cursor[:0]
	l.fallthroughTarget = ir.NoBlock
	l.b.SetInsertion(l.module.Block(fn.Entry))

	l.lowerBlock(f.Body)

	if cur := l.current(); cur != nil && !cur.IsTerminated() {
		if _, void := fn.ReturnType.(*types.Void); void {
			l.b.Return(nil)
		} else {
			l.b.Unreachable()
		}
	}

	l.tr.Printw("lowered function", "name", f.Name, "stage", fn.Stage.String(), "blocks", len(l.module.FunctionBlocks(fn)))

	l.b.SetInsertion(nil)
	l.fn = nil
}

// Cursor management.

func (l *Lowerer) current() *ir.Block { return l.b.Insertion() }

func (l *Lowerer) setCurrent(b *ir.Block) { l.b.SetInsertion(b) }

func (l *Lowerer) pushCursor(b *ir.Block) {
	l.cursor = append(l.cursor, l.current())
	l.setCurrent(b)
}

func (l *Lowerer) popCursor() {
	n := len(l.cursor) - 1
	l.setCurrent(l.cursor[n])
	l.cursor = l.cursor[:n]
}

// inBlock runs fn with block id as the current block and restores the
// current block afterwards.
func (l *Lowerer) inBlock(id ir.BlockID, fn func()) {
	l.pushCursor(l.module.Block(id))
	defer l.popCursor()

	fn()
}

func (l *Lowerer) pushControl(c *ir.Instruction) { l.control = append(l.control, c) }

func (l *Lowerer) popControl() { l.control = l.control[:len(l.control)-1] }

// findControl walks the control stack from the innermost construct outwards
// and returns the first construct of one of the given kinds, or nil.
func (l *Lowerer) findControl(kinds ...ir.Kind) *ir.Instruction {
	for i := len(l.control) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if l.control[i].Kind == k {
				return l.control[i]
			}
		}
	}
	return nil
}

// branch terminates the current block with the instruction emitted by emit.
// The current block must be open; after the branch nothing is current.
func (l *Lowerer) branch(span Span, emit func()) {
	if cur := l.current(); cur == nil || cur.IsTerminated() {
		l.fatalf(span, "branch from a closed block")
	}
	emit()
	l.setCurrent(nil)
}

// branchIfNeeded terminates the current block unless control already left it.
func (l *Lowerer) branchIfNeeded(emit func()) {
	if cur := l.current(); cur != nil && !cur.IsTerminated() {
		emit()
		l.setCurrent(nil)
	}
}

// enterMerge makes the merge block of a finished construct current if any
// path reaches it. An unreachable merge is closed with unreachable and
// nothing is current, so following statements are dropped.
func (l *Lowerer) enterMerge(id ir.BlockID) {
	mb := l.module.Block(id)
	l.setCurrent(mb)
	if l.module.IsConnected(mb) {
		return
	}
	l.b.Unreachable()
	l.setCurrent(nil)
}

// Statements.

func (l *Lowerer) lowerBlock(block *BlockStmt) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		if cur := l.current(); cur == nil || cur.IsTerminated() {
			return
		}
		l.lowerStatement(stmt)
	}
}

//nolint:gocyclo // one arm per statement kind
func (l *Lowerer) lowerStatement(stmt Stmt) {
	switch s := stmt.(type) {
	case *BlockStmt:
		l.lowerBlock(s)
	case *VarDecl:
		l.lowerLocalVar(s)
	case *LetDecl:
		l.lowerLet(s, s.Name, s.Init)
	case *ConstDecl:
		l.lowerLet(s, s.Name, s.Init)
	case *AssignStmt:
		l.lowerAssign(s)
	case *IncDecStmt:
		l.lowerIncDec(s)
	case *ExprStmt:
		if call, ok := s.Expr.(*CallExpr); ok {
			l.call(call)
		} else {
			l.expr(s.Expr)
		}
	case *ReturnStmt:
		l.lowerReturn(s)
	case *IfStmt:
		l.lowerIf(s)
	case *LoopStmt:
		l.lowerLoop(s)
	case *WhileStmt:
		l.lowerWhile(s)
	case *ForStmt:
		l.lowerFor(s)
	case *SwitchStmt:
		l.lowerSwitch(s)
	case *BreakStmt:
		l.lowerBreak(s)
	case *BreakIfStmt:
		l.lowerBreakIf(s)
	case *ContinueStmt:
		l.lowerContinue(s)
	case *FallthroughStmt:
		l.lowerFallthrough(s)
	case *DiscardStmt:
		l.branch(s.Span, func() { l.b.Discard() })
	case nil:
	default:
		l.warnf(stmt.Pos(), "unhandled statement %T", stmt)
	}
}

func (l *Lowerer) lowerLocalVar(v *VarDecl) {
	var init ir.Value
	if v.Init != nil {
		init = l.expr(v.Init)
	}
	l.values[v] = l.b.Var(v.Name, types.SpaceFunction, types.ReadWrite, v.Type, init)
}

func (l *Lowerer) lowerLet(decl Decl, name string, init Expr) {
	v := l.expr(init)
	if r, ok := v.(*ir.InstructionResult); ok && l.module.Name(r) == "" {
		l.module.SetName(r, name)
	}
	l.values[decl] = v
}

func (l *Lowerer) lowerAssign(s *AssignStmt) {
	if id, ok := s.Left.(*Ident); ok && id.Name == "_" && id.Decl == nil {
		l.expr(s.Right)
		return
	}

	ptr := l.ref(s.Left)

	var val ir.Value
	if s.Op == TokenEqual {
		val = l.expr(s.Right)
	} else {
		op, ok := assignOpTable[s.Op]
		if !ok {
			l.warnf(s.Span, "unhandled assignment operator %v", s.Op)
			return
		}
		lhs := l.b.Load(ptr)
		rhs := l.expr(s.Right)
		val = l.binary(op, lhs.Type(), lhs, rhs)
	}

	l.b.Store(ptr, val)
}

func (l *Lowerer) lowerIncDec(s *IncDecStmt) {
	ptr := l.ref(s.Expr)
	lhs := l.b.Load(ptr)

	elem := types.ElementOf(lhs.Type())
	if elem == nil {
		l.fatalf(s.Span, "%v of non-numeric %v", s.Op, lhs.Type())
	}
	one := l.module.Constants.Scalar(elem, 1)

	op := ir.BinaryAdd
	if s.Op == TokenMinusMinus {
		op = ir.BinarySubtract
	}
	l.b.Store(ptr, l.b.Binary(op, lhs.Type(), lhs, one))
}

func (l *Lowerer) lowerReturn(s *ReturnStmt) {
	var v ir.Value
	if s.Value != nil {
		v = l.expr(s.Value)
	}
	l.branch(s.Span, func() { l.b.Return(v) })
}

func (l *Lowerer) lowerIf(s *IfStmt) {
	cond := l.expr(s.Condition)

	ifInst := l.b.If(cond)
	p := ifInst.If()

	l.pushControl(ifInst)

	l.inBlock(p.True, func() {
		l.lowerBlock(s.Body)
		l.branchIfNeeded(func() { l.b.ExitIf(ifInst) })
	})

	l.inBlock(p.False, func() {
		if s.Else != nil {
			l.lowerStatement(s.Else)
		}
		l.branchIfNeeded(func() { l.b.ExitIf(ifInst) })
	})

	l.popControl()
	l.enterMerge(p.Merge)
}

func (l *Lowerer) lowerLoop(s *LoopStmt) {
	loop := l.b.Loop(false)
	p := loop.Loop()

	l.pushControl(loop)

	l.inBlock(p.Body, func() {
		l.lowerBlock(s.Body)
		l.branchIfNeeded(func() { l.b.Continue(loop) })
	})

	l.lowerContinuing(loop, func() { l.lowerBlock(s.Continuing) })

	l.popControl()
	l.enterMerge(p.Merge)
}

func (l *Lowerer) lowerWhile(s *WhileStmt) {
	loop := l.b.Loop(false)
	p := loop.Loop()

	l.pushControl(loop)

	l.inBlock(p.Body, func() {
		l.guard(loop, s.Condition)
		l.lowerBlock(s.Body)
		l.branchIfNeeded(func() { l.b.Continue(loop) })
	})

	l.lowerContinuing(loop, nil)

	l.popControl()
	l.enterMerge(p.Merge)
}

func (l *Lowerer) lowerFor(s *ForStmt) {
	loop := l.b.Loop(s.Init != nil)
	p := loop.Loop()

	l.pushControl(loop)

	if s.Init != nil {
		l.inBlock(p.Initializer, func() {
			l.lowerStatement(s.Init)
			l.branchIfNeeded(func() { l.b.NextIteration(loop) })
		})
	}

	l.inBlock(p.Body, func() {
		if s.Condition != nil {
			l.guard(loop, s.Condition)
		}
		l.lowerBlock(s.Body)
		l.branchIfNeeded(func() { l.b.Continue(loop) })
	})

	l.lowerContinuing(loop, func() { l.lowerStatement(s.Update) })

	l.popControl()
	l.enterMerge(p.Merge)
}

// guard emits `if (cond) {} else { break; }` at the top of a loop body and
// continues in the guard's merge block.
func (l *Lowerer) guard(loop *ir.Instruction, cond Expr) {
	c := l.expr(cond)

	g := l.b.If(c)
	p := g.If()

	l.inBlock(p.True, func() { l.b.ExitIf(g) })
	l.inBlock(p.False, func() { l.b.ExitLoop(loop) })

	l.setCurrent(l.module.Block(p.Merge))
}

// lowerContinuing fills the continuing block of loop and closes it with the
// back-edge. A continuing block no path reaches still gets its back-edge but
// no other instructions.
func (l *Lowerer) lowerContinuing(loop *ir.Instruction, body func()) {
	p := loop.Loop()

	l.inBlock(p.Continuing, func() {
		if body != nil && l.module.IsConnected(l.current()) {
			body()
		}
		l.branchIfNeeded(func() { l.b.NextIteration(loop) })
	})
}

func (l *Lowerer) lowerSwitch(s *SwitchStmt) {
	sel := l.expr(s.Selector)

	groups := make([][]*ir.Constant, len(s.Cases))
	for i, c := range s.Cases {
		for _, e := range c.Selectors {
			groups[i] = append(groups[i], l.constant(e))
		}
		if c.IsDefault {
			groups[i] = append(groups[i], nil)
		}
	}

	sw := l.b.Switch(sel, groups)
	p := sw.Switch()

	l.pushControl(sw)
	saved := l.fallthroughTarget

	for i, c := range s.Cases {
		l.fallthroughTarget = ir.NoBlock
		if i+1 < len(s.Cases) {
			l.fallthroughTarget = p.Cases[i+1].Start
		}

		l.inBlock(p.Cases[i].Start, func() {
			l.lowerBlock(c.Body)
			l.branchIfNeeded(func() { l.b.ExitSwitch(sw) })
		})
	}

	l.fallthroughTarget = saved
	l.popControl()
	l.enterMerge(p.Merge)
}

func (l *Lowerer) lowerBreak(s *BreakStmt) {
	c := l.findControl(ir.KindLoop, ir.KindSwitch)
	if c == nil {
		l.fatalf(s.Span, "break outside of a loop or switch")
	}

	l.branch(s.Span, func() {
		if c.Kind == ir.KindLoop {
			l.b.ExitLoop(c)
		} else {
			l.b.ExitSwitch(c)
		}
	})
}

func (l *Lowerer) lowerBreakIf(s *BreakIfStmt) {
	loop := l.findControl(ir.KindLoop)
	if loop == nil {
		l.fatalf(s.Span, "break if outside of a loop")
	}

	cond := l.expr(s.Condition)
	l.branch(s.Span, func() { l.b.BreakIf(loop, cond) })
}

func (l *Lowerer) lowerContinue(s *ContinueStmt) {
	loop := l.findControl(ir.KindLoop)
	if loop == nil {
		l.fatalf(s.Span, "continue outside of a loop")
	}

	l.branch(s.Span, func() { l.b.Continue(loop) })
}

func (l *Lowerer) lowerFallthrough(s *FallthroughStmt) {
	sw := l.findControl(ir.KindSwitch)
	if sw == nil || l.fallthroughTarget == ir.NoBlock {
		l.fatalf(s.Span, "fallthrough without a following case")
	}

	target := l.fallthroughTarget
	l.branch(s.Span, func() { l.b.Fallthrough(sw, target) })
}

// Attributes.

func (l *Lowerer) ioAttributes(attrs []Attribute) ir.IOAttributes {
	var io ir.IOAttributes
	for _, attr := range attrs {
		switch attr.Name {
		case "builtin":
			if len(attr.Args) == 0 {
				continue
			}
			id, ok := attr.Args[0].(*Ident)
			if !ok {
				continue
			}
			b, ok := ir.LookupBuiltinValue(id.Name)
			if !ok {
				l.warnf(attr.Span, "unknown builtin %q", id.Name)
				continue
			}
			io.Builtin = b
		case "location":
			if v, ok := attrUint(attr, 0); ok {
				io.Location = v
				io.HasLocation = true
			}
		}
	}
	return io
}

func (l *Lowerer) bindingPoint(attrs []Attribute) *ir.BindingPoint {
	var bp ir.BindingPoint
	var group, binding bool
	for _, attr := range attrs {
		switch attr.Name {
		case "group":
			bp.Group, group = attrUint(attr, 0)
		case "binding":
			bp.Binding, binding = attrUint(attr, 0)
		}
	}
	if !group || !binding {
		return nil
	}
	return &bp
}

func attrUint(attr Attribute, i int) (uint32, bool) {
	if i >= len(attr.Args) {
		return 0, false
	}
	lit, ok := attr.Args[i].(*Literal)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimRight(lit.Value, "iu"), 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func entryPointStage(attrs []Attribute) (ir.Stage, bool) {
	for _, attr := range attrs {
		switch attr.Name {
		case "vertex":
			return ir.StageVertex, true
		case "fragment":
			return ir.StageFragment, true
		case "compute":
			return ir.StageCompute, true
		}
	}
	return ir.StageNone, false
}

// extractWorkgroupSize extracts workgroup_size from attributes.
// Returns [x, y, z] where defaults are 1.
func extractWorkgroupSize(attrs []Attribute) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	for _, attr := range attrs {
		if attr.Name != "workgroup_size" {
			continue
		}
		for i := range attr.Args {
			if i >= 3 {
				break
			}
			if v, ok := attrUint(attr, i); ok {
				result[i] = v
			}
		}
		break
	}
	return result
}

// addressSpaceTable maps WGSL address space names to IR address spaces.
var addressSpaceTable = map[string]types.AddressSpace{
	"function":      types.SpaceFunction,
	"private":       types.SpacePrivate,
	"workgroup":     types.SpaceWorkgroup,
	"uniform":       types.SpaceUniform,
	"storage":       types.SpaceStorage,
	"push_constant": types.SpacePushConstant,
	"handle":        types.SpaceHandle,
}

func (l *Lowerer) addressSpace(v *VarDecl) types.AddressSpace {
	if v.AddressSpace == "" {
		switch v.Type.(type) {
		case *types.Sampler, *types.Texture:
			return types.SpaceHandle
		}
		return types.SpacePrivate
	}
	if s, ok := addressSpaceTable[v.AddressSpace]; ok {
		return s
	}
	l.warnf(v.Span, "unknown address space %q", v.AddressSpace)
	return types.SpacePrivate
}

func accessMode(mode string, space types.AddressSpace) types.Access {
	switch mode {
	case "read":
		return types.Read
	case "write":
		return types.Write
	case "read_write":
		return types.ReadWrite
	}
	if space == types.SpaceStorage || space == types.SpaceUniform || space == types.SpaceHandle {
		return types.Read
	}
	return types.ReadWrite
}
