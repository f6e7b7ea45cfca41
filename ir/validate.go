package ir

import (
	"fmt"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/types"
)

// Validator checks the structural invariants of a module.
type Validator struct {
	module *Module
	diags  diag.List

	fn      *Function
	regions map[BlockID]region
}

// region records where a block sits in the control tree: the control
// instruction owning it and the child block of that control the block is
// nested under.
type region struct {
	control *Instruction
	root    BlockID
}

// Validate checks the module and returns the problems found. An empty list
// means the module is valid.
func Validate(m *Module) diag.List {
	v := &Validator{module: m}
	v.validateRoot()
	for _, f := range m.Functions {
		v.validateFunction(f)
	}
	return v.diags
}

func (v *Validator) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if v.fn != nil {
		msg = fmt.Sprintf("in function %s: %s", v.fn.Name, msg)
	}
	v.diags.AddError(diag.Source{}, "%s", msg)
}

func (v *Validator) validateRoot() {
	root := v.module.RootBlock()
	if root == nil {
		v.errorf("module has no root block")
		return
	}
	for _, inst := range root.Instructions {
		if inst.Kind != KindVar {
			v.errorf("root block contains %v, only var is allowed", inst.Kind)
			continue
		}
		if p := inst.Var(); p.Space == types.SpaceFunction {
			v.errorf("module-scope var in function address space")
		}
		v.validateVar(inst)
	}
}

func (v *Validator) validateFunction(f *Function) {
	v.fn = f
	defer func() { v.fn = nil }()

	if v.module.Block(f.Entry) == nil {
		v.errorf("missing entry block")
		return
	}

	v.regions = make(map[BlockID]region)
	v.walk(f.Entry, region{})

	for _, blk := range v.module.FunctionBlocks(f) {
		v.validateBlock(blk)
	}
}

func (v *Validator) walk(id BlockID, r region) {
	if _, seen := v.regions[id]; seen || id == NoBlock {
		return
	}
	v.regions[id] = r
	t := v.module.Block(id).Terminator()
	if t == nil || !t.Kind.IsControl() {
		return
	}
	for _, c := range ChildBlocks(t) {
		v.walk(c, region{control: t, root: c})
	}
	v.walk(t.Merge(), r)
}

func (v *Validator) validateBlock(blk *Block) {
	if blk.IsEmpty() {
		v.errorf("block $B%d is empty", blk.ID)
		return
	}
	for n, inst := range blk.Instructions {
		last := n == len(blk.Instructions)-1
		if inst.IsTerminator() && !last {
			v.errorf("block $B%d: %v is followed by more instructions", blk.ID, inst.Kind)
		}
		if last && !inst.IsTerminator() {
			v.errorf("block $B%d does not end in a terminator", blk.ID)
		}
		v.validateInstruction(blk, inst)
	}
}

//nolint:gocyclo // one arm per instruction kind
func (v *Validator) validateInstruction(blk *Block, inst *Instruction) {
	for n, op := range inst.Operands() {
		if op == nil {
			v.errorf("%v operand %d is nil", inst.Kind, n)
			continue
		}
		if r, ok := op.(*InstructionResult); ok && r.Source.block == nil {
			v.errorf("%v operand %d is produced by an instruction not in any block", inst.Kind, n)
		}
	}

	r := v.regions[blk.ID]

	switch inst.Kind {
	case KindVar:
		if p := inst.Var(); p.Space != types.SpaceFunction && p.Space != types.SpacePrivate {
			v.errorf("function-scope var in %v address space", p.Space)
		}
		v.validateVar(inst)
	case KindBinary:
		if len(inst.Operands()) != 2 {
			v.errorf("binary needs two operands")
		}
	case KindIf:
		if _, ok := types.Deref(inst.Operand(0).Type()).(*types.Scalar); !ok || types.ClassOf(inst.Operand(0).Type()) != types.ClassBool {
			v.errorf("if condition must be bool, got %v", inst.Operand(0).Type())
		}
	case KindReturn:
		_, void := v.fn.ReturnType.(*types.Void)
		switch {
		case void && len(inst.Operands()) != 0:
			v.errorf("return with value in void function")
		case !void && len(inst.Operands()) != 1:
			v.errorf("return without value in function returning %v", v.fn.ReturnType)
		case !void && !types.Equal(inst.Operand(0).Type(), v.fn.ReturnType):
			v.errorf("return of %v in function returning %v", inst.Operand(0).Type(), v.fn.ReturnType)
		}
	case KindExitIf:
		if r.control != inst.Branch().Control || r.control.Kind != KindIf {
			v.errorf("exit_if in $B%d does not exit the enclosing if", blk.ID)
		}
	case KindExitSwitch, KindFallthrough:
		ctl, _ := v.enclosing(blk, KindIf)
		if ctl == nil || ctl != inst.Branch().Control || ctl.Kind != KindSwitch {
			v.errorf("%v in $B%d does not target the enclosing switch", inst.Kind, blk.ID)
			break
		}
		if inst.Kind == KindFallthrough && !isCaseStart(ctl.Switch(), inst.Branch().Target) {
			v.errorf("fallthrough in $B%d does not target a case", blk.ID)
		}
	case KindExitLoop:
		ctl, root := v.enclosing(blk, KindIf)
		if ctl == nil || ctl != inst.Branch().Control || ctl.Kind != KindLoop || root != ctl.Loop().Body {
			v.errorf("exit_loop in $B%d does not exit the enclosing loop body", blk.ID)
		}
	case KindContinue:
		ctl, root := v.enclosing(blk, KindIf, KindSwitch)
		if ctl == nil || ctl != inst.Branch().Control || root != ctl.Loop().Body {
			v.errorf("continue in $B%d is not inside the body of its loop", blk.ID)
		}
	case KindNextIteration:
		ctl := inst.Branch().Control
		if r.control != ctl || ctl.Kind != KindLoop ||
			(r.root != ctl.Loop().Initializer && r.root != ctl.Loop().Continuing) {
			v.errorf("next_iteration in $B%d is not in the initializer or continuing block", blk.ID)
		}
	case KindBreakIf:
		ctl := inst.Branch().Control
		if r.control != ctl || ctl.Kind != KindLoop || r.root != ctl.Loop().Continuing {
			v.errorf("break_if in $B%d is not in the continuing block of its loop", blk.ID)
		}
	}
}

func (v *Validator) validateVar(inst *Instruction) {
	res := inst.Result()
	if res == nil {
		v.errorf("var has no result")
		return
	}
	ptr, ok := res.Type().(*types.Pointer)
	if !ok {
		v.errorf("var result must be a pointer, got %v", res.Type())
		return
	}
	if init := inst.Operand(0); init != nil && !types.Equal(init.Type(), ptr.Store) {
		v.errorf("var initializer of type %v for store type %v", init.Type(), ptr.Store)
	}
}

// enclosing walks the control tree outwards from blk, skipping controls of
// the given kinds, and returns the first other control and the child block
// of it that blk is nested under.
func (v *Validator) enclosing(blk *Block, skip ...Kind) (*Instruction, BlockID) {
	r := v.regions[blk.ID]
	for r.control != nil {
		skipped := false
		for _, k := range skip {
			if r.control.Kind == k {
				skipped = true
				break
			}
		}
		if !skipped {
			return r.control, r.root
		}
		r = v.regions[r.control.block.ID]
	}
	return nil, NoBlock
}

func isCaseStart(sw *Switch, id BlockID) bool {
	for _, c := range sw.Cases {
		if c.Start == id {
			return true
		}
	}
	return false
}
