package spirv

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// emitFunction emits one function definition. Entry points take their
// inputs from Input variables and write their result to an Output
// variable, so their SPIR-V signature is void().
func (g *Generator) emitFunction(f *ir.Function) {
	id := g.functionIDs[f]

	g.irFunc = f
	g.fn = &Function{ID: id, Label: g.Label(f.Entry)}
	g.output = 0
	g.interfaces = nil
	g.loopHeaders = make(map[*ir.Instruction]uint32)
	g.loopPhases = make(map[*ir.Instruction]loopPhase)

	ret := g.Type(f.ReturnType)
	var params []uint32

	if f.IsEntryPoint() {
		ret = g.Type(g.module.Types.Void())
	} else {
		params = make([]uint32, len(f.Params))
		for i, p := range f.Params {
			params[i] = g.Type(p.Type())
			pid := g.builder.AllocID()
			g.fn.Params = append(g.fn.Params, Instruction{Opcode: OpFunctionParameter, Words: []uint32{params[i], pid}})
			g.values[p] = pid
			g.name(pid, p)
		}
	}

	fnType := g.functionType(ret, params)
	g.fn.Header = Instruction{Opcode: OpFunction, Words: []uint32{ret, id, uint32(FunctionControlNone), fnType}}
	if g.options.Debug {
		g.builder.AddName(id, f.Name)
	}

	blocks := g.module.FunctionBlocks(f)
	g.hoistVariables(blocks)

	if f.IsEntryPoint() {
		g.entryPointInterface(f)
	}

	g.emitBlock(g.module.Block(f.Entry), true)

	g.builder.AddFunction(g.fn)

	if f.IsEntryPoint() {
		g.entryPoint(f, id)
	}

	g.tr.Printw("function", "name", f.Name, "id", id, "blocks", len(blocks))
}

// hoistVariables declares every function-scope variable in the entry
// block. Initializers are stored where the variable is declared.
func (g *Generator) hoistVariables(blocks []*ir.Block) {
	for _, blk := range blocks {
		for _, inst := range blk.Instructions {
			if inst.Kind != ir.KindVar {
				continue
			}
			res := inst.Result()
			ptr := g.Type(res.Type())
			id := g.builder.AllocID()
			g.fn.Vars = append(g.fn.Vars, Instruction{Opcode: OpVariable, Words: []uint32{ptr, id, uint32(StorageClassFunction)}})
			g.values[res] = id
			g.name(id, res)
		}
	}
}

// temporary declares an unnamed function-scope variable of type t.
func (g *Generator) temporary(t types.Type) uint32 {
	ptr := g.pointerType(StorageClassFunction, g.Type(t))
	id := g.builder.AllocID()
	g.fn.Vars = append(g.fn.Vars, Instruction{Opcode: OpVariable, Words: []uint32{ptr, id, uint32(StorageClassFunction)}})
	return id
}

func (g *Generator) name(id uint32, v ir.Value) {
	if !g.options.Debug {
		return
	}
	if n := g.module.Name(v); n != "" {
		g.builder.AddName(id, n)
	}
}

// entryPointInterface creates the Input variables of the parameters and
// the Output variable of the result, and loads the inputs at the top of
// the entry block.
func (g *Generator) entryPointInterface(f *ir.Function) {
	for _, p := range f.Params {
		t := g.Type(p.Type())
		v := g.builder.AddVariable(g.pointerType(StorageClassInput, t), StorageClassInput, 0)
		g.decorateIO(v, p.IO, true, p.Type())
		g.name(v, p)
		g.interfaces = append(g.interfaces, v)

		id := g.builder.AllocID()
		g.fn.Add(OpLoad, t, id, v)
		g.values[p] = id
	}

	if _, ok := f.ReturnType.(*types.Void); ok {
		return
	}

	t := g.Type(f.ReturnType)
	g.output = g.builder.AddVariable(g.pointerType(StorageClassOutput, t), StorageClassOutput, 0)
	g.decorateIO(g.output, f.ReturnIO, false, f.ReturnType)
	g.interfaces = append(g.interfaces, g.output)
}

func (g *Generator) decorateIO(id uint32, io ir.IOAttributes, input bool, t types.Type) {
	stage := g.irFunc.Stage

	switch {
	case io.Builtin != ir.BuiltinValueNone:
		g.builder.AddDecorate(id, DecorationBuiltIn, uint32(g.builtIn(io.Builtin, stage, input)))
	case io.HasLocation:
		g.builder.AddDecorate(id, DecorationLocation, io.Location)
		if stage == ir.StageFragment && input {
			if c := types.ClassOf(t); c == types.ClassSint || c == types.ClassUint {
				g.builder.AddDecorate(id, DecorationFlat)
			}
		}
	default:
		g.fatalf("entry point %s: interface value of type %v without builtin or location", g.irFunc.Name, t)
	}
}

func (g *Generator) builtIn(b ir.Builtin, stage ir.Stage, input bool) BuiltIn {
	switch b {
	case ir.BuiltinPosition:
		if stage == ir.StageFragment && input {
			return BuiltInFragCoord
		}
		return BuiltInPosition
	case ir.BuiltinVertexIndex:
		return BuiltInVertexIndex
	case ir.BuiltinInstanceIndex:
		return BuiltInInstanceIndex
	case ir.BuiltinFrontFacing:
		return BuiltInFrontFacing
	case ir.BuiltinFragDepth:
		return BuiltInFragDepth
	case ir.BuiltinSampleIndex:
		g.builder.AddCapability(CapabilitySampleRateShading)
		return BuiltInSampleID
	case ir.BuiltinLocalInvocationID:
		return BuiltInLocalInvocationID
	case ir.BuiltinLocalInvocationIndex:
		return BuiltInLocalInvocationIndex
	case ir.BuiltinGlobalInvocationID:
		return BuiltInGlobalInvocationID
	case ir.BuiltinWorkgroupID:
		return BuiltInWorkgroupID
	case ir.BuiltinNumWorkgroups:
		return BuiltInNumWorkgroups
	}
	g.fatalf("unhandled builtin value %v", b)
	return 0
}

// entryPoint emits OpEntryPoint and the execution modes of f.
func (g *Generator) entryPoint(f *ir.Function, id uint32) {
	interfaces := g.interfaces
	if g.options.Version.AtLeast(Version1_4) {
		// Since 1.4 the interface lists every module-scope variable.
		interfaces = append(interfaces, g.globals...)
	}

	switch f.Stage {
	case ir.StageVertex:
		g.builder.AddEntryPoint(ExecutionModelVertex, id, f.Name, interfaces)
	case ir.StageFragment:
		g.builder.AddEntryPoint(ExecutionModelFragment, id, f.Name, interfaces)
		g.builder.AddExecutionMode(id, ExecutionModeOriginUpperLeft)
		if f.ReturnIO.Builtin == ir.BuiltinFragDepth {
			g.builder.AddExecutionMode(id, ExecutionModeDepthReplacing)
		}
	case ir.StageCompute:
		g.builder.AddEntryPoint(ExecutionModelGLCompute, id, f.Name, interfaces)
		size := f.WorkgroupSize
		for i := range size {
			if size[i] == 0 {
				size[i] = 1
			}
		}
		g.builder.AddExecutionMode(id, ExecutionModeLocalSize, size[0], size[1], size[2])
	default:
		g.fatalf("entry point %s with unhandled stage %v", f.Name, f.Stage)
	}
}

// emitBlock emits the label of blk and its instructions. The label of the
// function's first block is part of the function header. A block without
// a terminator breaks the builder contract; it is closed with
// OpUnreachable so the output stays well formed.
func (g *Generator) emitBlock(blk *ir.Block, first bool) {
	if !first {
		g.fn.Add(OpLabel, g.Label(blk.ID))
	}

	for _, inst := range blk.Instructions {
		g.emitInstruction(inst)
	}

	if !blk.IsTerminated() {
		g.fn.Add(OpUnreachable)
	}
}

//nolint:gocyclo // dispatch by kind
func (g *Generator) emitInstruction(inst *ir.Instruction) {
	switch inst.Kind {
	case ir.KindBinary:
		g.emitBinary(inst)
	case ir.KindUnary:
		g.emitUnary(inst)
	case ir.KindBuiltinCall:
		g.emitBuiltinCall(inst)
	case ir.KindUserCall:
		g.emitUserCall(inst)
	case ir.KindLoad:
		id := g.builder.AllocID()
		g.fn.Add(OpLoad, g.Type(inst.Result().Type()), id, g.pointer(inst.Operand(0)))
		g.bind(inst, id)
	case ir.KindStore:
		g.fn.Add(OpStore, g.pointer(inst.Operand(0)), g.Value(inst.Operand(1)))
	case ir.KindVar:
		// The OpVariable is hoisted, so the declaration point zeroes a
		// variable without initializer on every execution.
		var init uint32
		if v := inst.Operand(0); v != nil {
			init = g.Value(v)
		} else {
			init = g.null(g.Type(inst.Result().Type().(*types.Pointer).Store))
		}
		g.fn.Add(OpStore, g.Value(inst.Result()), init)
	case ir.KindConstruct:
		g.emitConstruct(inst)
	case ir.KindConvert:
		g.emitConvert(inst)
	case ir.KindAccess:
		g.emitAccess(inst)
	case ir.KindSwizzle:
		g.emitSwizzle(inst)

	case ir.KindIf:
		g.emitIf(inst)
	case ir.KindLoop:
		g.emitLoop(inst)
	case ir.KindSwitch:
		g.emitSwitch(inst)

	case ir.KindReturn:
		g.emitReturn(inst)
	case ir.KindExitIf, ir.KindExitLoop, ir.KindExitSwitch, ir.KindContinue, ir.KindFallthrough:
		g.fn.Add(OpBranch, g.Label(inst.Branch().Target))
	case ir.KindNextIteration:
		g.emitNextIteration(inst)
	case ir.KindBreakIf:
		loop := inst.Branch().Control
		g.fn.Add(OpBranchConditional, g.Value(inst.Operand(0)), g.Label(loop.Loop().Merge), g.loopHeaders[loop])
	case ir.KindUnreachable:
		g.fn.Add(OpUnreachable)
	case ir.KindDiscard:
		g.fn.Add(OpKill)
	default:
		g.fatalf("unhandled instruction %v", inst.Kind)
	}
}

func (g *Generator) emitReturn(inst *ir.Instruction) {
	v := inst.Operand(0)

	switch {
	case v == nil:
		g.fn.Add(OpReturn)
	case g.irFunc.IsEntryPoint():
		g.fn.Add(OpStore, g.output, g.Value(v))
		g.fn.Add(OpReturn)
	default:
		g.fn.Add(OpReturnValue, g.Value(v))
	}
}

// trivial reports whether blk does nothing but exit its If.
func trivial(blk *ir.Block) bool {
	return len(blk.Instructions) == 1 && blk.Instructions[0].Kind == ir.KindExitIf
}

// emitIf emits a selection. Branches that only exit to the merge are not
// emitted; the conditional branch targets the merge block instead.
func (g *Generator) emitIf(inst *ir.Instruction) {
	p := inst.If()
	cond := g.Value(inst.Operand(0))
	merge := g.Label(p.Merge)

	trueBlk, falseBlk := g.module.Block(p.True), g.module.Block(p.False)

	trueLabel, falseLabel := merge, merge
	if !trivial(trueBlk) {
		trueLabel = g.Label(p.True)
	}
	if !trivial(falseBlk) {
		falseLabel = g.Label(p.False)
	}

	g.fn.Add(OpSelectionMerge, merge, uint32(SelectionControlNone))
	g.fn.Add(OpBranchConditional, cond, trueLabel, falseLabel)

	if trueLabel != merge {
		g.emitBlock(trueBlk, false)
	}
	if falseLabel != merge {
		g.emitBlock(falseBlk, false)
	}

	g.emitBlock(g.module.Block(p.Merge), false)
}

// emitLoop emits a loop with a dedicated header block holding
// OpLoopMerge. Every back-edge targets the header.
func (g *Generator) emitLoop(inst *ir.Instruction) {
	p := inst.Loop()

	header := g.builder.AllocID()
	g.loopHeaders[inst] = header

	if p.Initializer != ir.NoBlock {
		g.fn.Add(OpBranch, g.Label(p.Initializer))
		g.loopPhases[inst] = phaseInitializer
		g.emitBlock(g.module.Block(p.Initializer), false)
	} else {
		g.fn.Add(OpBranch, header)
	}

	g.fn.Add(OpLabel, header)
	g.fn.Add(OpLoopMerge, g.Label(p.Merge), g.Label(p.Continuing), uint32(LoopControlNone))
	g.fn.Add(OpBranch, g.Label(p.Body))

	g.loopPhases[inst] = phaseBody
	g.emitBlock(g.module.Block(p.Body), false)

	g.loopPhases[inst] = phaseContinuing
	cont := g.module.Block(p.Continuing)
	if cont.IsEmpty() || !g.module.IsConnected(cont) {
		// The continue target must exist even if nothing branches to it.
		g.fn.Add(OpLabel, g.Label(p.Continuing))
		g.fn.Add(OpBranch, header)
	} else {
		g.emitBlock(cont, false)
	}

	g.emitBlock(g.module.Block(p.Merge), false)
}

// emitNextIteration emits a back-edge. The initializer and the continuing
// block branch to the loop header; a body only reaches the header through
// the continue target.
func (g *Generator) emitNextIteration(inst *ir.Instruction) {
	loop := inst.Branch().Control
	p := loop.Loop()

	if g.loopPhases[loop] != phaseBody {
		g.fn.Add(OpBranch, g.loopHeaders[loop])
		return
	}

	cont := g.module.Block(p.Continuing)
	if !isBackEdge(cont, loop) {
		g.fatalf("next_iteration from a loop body skips a non-empty continuing block")
	}
	g.fn.Add(OpBranch, g.Label(p.Continuing))
}

func isBackEdge(blk *ir.Block, loop *ir.Instruction) bool {
	if len(blk.Instructions) != 1 {
		return blk.IsEmpty()
	}
	t := blk.Instructions[0]
	return t.Kind == ir.KindNextIteration && t.Branch().Control == loop
}

// emitSwitch emits OpSwitch with every case label. Case blocks are
// emitted in source order so a fallthrough targets the next block.
func (g *Generator) emitSwitch(inst *ir.Instruction) {
	p := inst.Switch()
	sel := g.Value(inst.Operand(0))
	merge := g.Label(p.Merge)

	words := []uint32{sel, merge}
	for _, c := range p.Cases {
		label := g.Label(c.Start)
		for _, s := range c.Selectors {
			if s == nil {
				words[1] = label
				continue
			}
			words = append(words, s.Bits, label)
		}
	}

	g.fn.Add(OpSelectionMerge, merge, uint32(SelectionControlNone))
	g.fn.Add(OpSwitch, words...)

	for _, c := range p.Cases {
		g.emitBlock(g.module.Block(c.Start), false)
	}

	g.emitBlock(g.module.Block(p.Merge), false)
}
