package ir

import (
	"github.com/gogpu/tir/types"
)

// Builder creates instructions and appends them to its insertion block.
type Builder struct {
	Module *Module

	block *Block
}

// NewBuilder creates a builder for m inserting into the root block.
func NewBuilder(m *Module) *Builder {
	return &Builder{Module: m, block: m.RootBlock()}
}

// SetInsertion makes b the insertion block. b may be nil.
func (b *Builder) SetInsertion(blk *Block) { b.block = blk }

// Insertion returns the current insertion block, or nil.
func (b *Builder) Insertion() *Block { return b.block }

func (b *Builder) append(inst *Instruction) *Instruction {
	b.Module.Append(b.block, inst)
	return inst
}

func (b *Builder) value(kind Kind, p Payload, t types.Type, operands ...Value) *InstructionResult {
	inst := &Instruction{Kind: kind, Payload: p}
	inst.addOperands(operands...)
	res := inst.setResult(b.Module.Types.Get(t))
	b.append(inst)
	return res
}

// Binary appends a binary operation.
func (b *Builder) Binary(op BinaryOp, t types.Type, lhs, rhs Value) *InstructionResult {
	return b.value(KindBinary, &Binary{Op: op}, t, lhs, rhs)
}

// Unary appends a unary operation.
func (b *Builder) Unary(op UnaryOp, t types.Type, v Value) *InstructionResult {
	return b.value(KindUnary, &Unary{Op: op}, t, v)
}

// Call appends a builtin function call. Calls with a void result produce
// no value and return nil.
func (b *Builder) Call(fn BuiltinFunc, t types.Type, args ...Value) *InstructionResult {
	if _, ok := t.(*types.Void); ok || t == nil {
		inst := &Instruction{Kind: KindBuiltinCall, Payload: &BuiltinCall{Func: fn}}
		inst.addOperands(args...)
		b.append(inst)
		return nil
	}
	return b.value(KindBuiltinCall, &BuiltinCall{Func: fn}, t, args...)
}

// UserCall appends a call to a user function. Calls to void functions
// produce no value and return nil.
func (b *Builder) UserCall(fn *Function, args ...Value) *InstructionResult {
	if _, ok := fn.ReturnType.(*types.Void); ok {
		inst := &Instruction{Kind: KindUserCall, Payload: &UserCall{Func: fn}}
		inst.addOperands(args...)
		b.append(inst)
		return nil
	}
	return b.value(KindUserCall, &UserCall{Func: fn}, fn.ReturnType, args...)
}

// Load appends a load through ptr.
func (b *Builder) Load(ptr Value) *InstructionResult {
	return b.value(KindLoad, nil, types.Deref(ptr.Type()), ptr)
}

// Store appends a store of v through ptr.
func (b *Builder) Store(ptr, v Value) *Instruction {
	inst := &Instruction{Kind: KindStore}
	inst.addOperands(ptr, v)
	return b.append(inst)
}

// Var appends a variable declaration of type store in the given address
// space. init may be nil.
func (b *Builder) Var(name string, space types.AddressSpace, access types.Access, store types.Type, init Value) *InstructionResult {
	ptr := b.Module.Types.Ptr(space, store, access)
	inst := &Instruction{Kind: KindVar, Payload: &Var{Space: space, Access: access}}
	if init != nil {
		inst.addOperands(init)
	}
	res := inst.setResult(ptr)
	b.append(inst)
	b.Module.SetName(res, name)
	return res
}

// Construct appends a composite construction.
func (b *Builder) Construct(t types.Type, args ...Value) *InstructionResult {
	return b.value(KindConstruct, nil, t, args...)
}

// Convert appends a value conversion to t.
func (b *Builder) Convert(t types.Type, v Value) *InstructionResult {
	return b.value(KindConvert, nil, t, v)
}

// Access appends an access chain. If base is a pointer, t must be a pointer
// to the selected element.
func (b *Builder) Access(t types.Type, base Value, indices ...Value) *InstructionResult {
	return b.value(KindAccess, nil, t, append([]Value{base}, indices...)...)
}

// Swizzle appends a vector swizzle.
func (b *Builder) Swizzle(t types.Type, v Value, indices ...uint32) *InstructionResult {
	idx := make([]uint32, len(indices))
	copy(idx, indices)
	return b.value(KindSwizzle, &Swizzle{Indices: idx}, t, v)
}

// If appends an If with fresh true, false and merge blocks.
func (b *Builder) If(cond Value) *Instruction {
	m := b.Module
	p := &If{True: m.NewBlock().ID, False: m.NewBlock().ID, Merge: m.NewBlock().ID}
	inst := &Instruction{Kind: KindIf, Payload: p}
	inst.addOperands(cond)
	return b.append(inst)
}

// Loop appends a Loop with fresh body, continuing and merge blocks, and an
// initializer block if withInitializer is set.
func (b *Builder) Loop(withInitializer bool) *Instruction {
	m := b.Module
	p := &Loop{}
	if withInitializer {
		p.Initializer = m.NewBlock().ID
	}
	p.Body = m.NewBlock().ID
	p.Continuing = m.NewBlock().ID
	p.Merge = m.NewBlock().ID
	return b.append(&Instruction{Kind: KindLoop, Payload: p})
}

// Switch appends a Switch with one fresh start block per selector group and
// a merge block. A nil selector is the default selector.
func (b *Builder) Switch(selector Value, groups [][]*Constant) *Instruction {
	m := b.Module
	p := &Switch{Cases: make([]SwitchCase, len(groups))}
	for i, sel := range groups {
		s := make([]*Constant, len(sel))
		copy(s, sel)
		p.Cases[i] = SwitchCase{Selectors: s, Start: m.NewBlock().ID}
	}
	p.Merge = m.NewBlock().ID
	inst := &Instruction{Kind: KindSwitch, Payload: p}
	inst.addOperands(selector)
	return b.append(inst)
}

// Return appends a return, with an optional value.
func (b *Builder) Return(v Value) *Instruction {
	inst := &Instruction{Kind: KindReturn}
	if v != nil {
		inst.addOperands(v)
	}
	return b.append(inst)
}

func (b *Builder) branch(kind Kind, control *Instruction, target BlockID, operands ...Value) *Instruction {
	inst := &Instruction{Kind: kind, Payload: &Branch{Control: control, Target: target}}
	inst.addOperands(operands...)
	return b.append(inst)
}

// ExitIf appends an exit to the merge of ifInst.
func (b *Builder) ExitIf(ifInst *Instruction) *Instruction {
	return b.branch(KindExitIf, ifInst, ifInst.If().Merge)
}

// ExitLoop appends an exit to the merge of loop.
func (b *Builder) ExitLoop(loop *Instruction) *Instruction {
	return b.branch(KindExitLoop, loop, loop.Loop().Merge)
}

// ExitSwitch appends an exit to the merge of sw.
func (b *Builder) ExitSwitch(sw *Instruction) *Instruction {
	return b.branch(KindExitSwitch, sw, sw.Switch().Merge)
}

// NextIteration appends a branch back to the body of loop.
func (b *Builder) NextIteration(loop *Instruction) *Instruction {
	return b.branch(KindNextIteration, loop, loop.Loop().Body)
}

// Continue appends a branch to the continuing block of loop.
func (b *Builder) Continue(loop *Instruction) *Instruction {
	return b.branch(KindContinue, loop, loop.Loop().Continuing)
}

// BreakIf appends a conditional exit of loop: the loop is left when cond is
// true, otherwise the next iteration starts.
func (b *Builder) BreakIf(loop *Instruction, cond Value) *Instruction {
	return b.branch(KindBreakIf, loop, loop.Loop().Body, cond)
}

// Fallthrough appends a branch from a switch case to the start of the next
// case.
func (b *Builder) Fallthrough(sw *Instruction, next BlockID) *Instruction {
	return b.branch(KindFallthrough, sw, next)
}

// Unreachable appends an unreachable marker.
func (b *Builder) Unreachable() *Instruction {
	return b.append(&Instruction{Kind: KindUnreachable})
}

// Discard appends a fragment discard.
func (b *Builder) Discard() *Instruction {
	return b.append(&Instruction{Kind: KindDiscard})
}
