package ir

import (
	"github.com/gogpu/tir/types"
)

// Kind is the discriminator of an Instruction.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Value instructions
	KindBinary
	KindUnary
	KindBuiltinCall
	KindLoad
	KindStore
	KindUserCall
	KindVar
	KindConstruct
	KindConvert
	KindAccess
	KindSwizzle

	// Control instructions
	KindIf
	KindLoop
	KindSwitch

	// Branch family
	KindReturn
	KindExitIf
	KindExitLoop
	KindExitSwitch
	KindNextIteration
	KindContinue
	KindBreakIf
	KindFallthrough
	KindUnreachable
	KindDiscard
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindBinary:        "binary",
	KindUnary:         "unary",
	KindBuiltinCall:   "builtin_call",
	KindLoad:          "load",
	KindStore:         "store",
	KindUserCall:      "call",
	KindVar:           "var",
	KindConstruct:     "construct",
	KindConvert:       "convert",
	KindAccess:        "access",
	KindSwizzle:       "swizzle",
	KindIf:            "if",
	KindLoop:          "loop",
	KindSwitch:        "switch",
	KindReturn:        "ret",
	KindExitIf:        "exit_if",
	KindExitLoop:      "exit_loop",
	KindExitSwitch:    "exit_switch",
	KindNextIteration: "next_iteration",
	KindContinue:      "continue",
	KindBreakIf:       "break_if",
	KindFallthrough:   "fallthrough",
	KindUnreachable:   "unreachable",
	KindDiscard:       "discard",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind?"
}

// IsControl reports whether k is If, Loop or Switch.
func (k Kind) IsControl() bool {
	return k == KindIf || k == KindLoop || k == KindSwitch
}

// IsTerminator reports whether an instruction of kind k ends its block.
func (k Kind) IsTerminator() bool {
	return k >= KindIf
}

// Payload is the kind-specific part of an instruction.
type Payload interface {
	payload()
}

// Instruction is a single IR instruction. The envelope holds the operands,
// the optional result and the owning block; Payload holds the data specific
// to Kind.
type Instruction struct {
	Kind    Kind
	Payload Payload

	operands []Value
	result   *InstructionResult
	block    *Block
}

// Operands returns the operand values. The slice must not be modified;
// use SetOperand.
func (i *Instruction) Operands() []Value { return i.operands }

// Operand returns operand n, or nil if out of range.
func (i *Instruction) Operand(n int) Value {
	if n < 0 || n >= len(i.operands) {
		return nil
	}
	return i.operands[n]
}

// SetOperand replaces operand n and keeps usages in sync.
func (i *Instruction) SetOperand(n int, v Value) {
	if old := i.operands[n]; old != nil {
		old.removeUsage(Usage{Instruction: i, Operand: n})
	}
	i.operands[n] = v
	if v != nil {
		v.addUsage(Usage{Instruction: i, Operand: n})
	}
}

func (i *Instruction) addOperands(vals ...Value) {
	for _, v := range vals {
		n := len(i.operands)
		i.operands = append(i.operands, nil)
		i.SetOperand(n, v)
	}
}

// Result returns the value produced by the instruction, or nil.
func (i *Instruction) Result() *InstructionResult { return i.result }

func (i *Instruction) setResult(t types.Type) *InstructionResult {
	i.result = &InstructionResult{typ: t, Source: i}
	return i.result
}

// Block returns the block the instruction was appended to.
func (i *Instruction) Block() *Block { return i.block }

// IsTerminator reports whether the instruction ends its block.
func (i *Instruction) IsTerminator() bool { return i.Kind.IsTerminator() }

// Destroy removes the instruction's operand usages.
// The instruction must not be in a block.
func (i *Instruction) Destroy() {
	for n := range i.operands {
		i.SetOperand(n, nil)
	}
}

// Binary is the payload of KindBinary. Operands: lhs, rhs.
type Binary struct {
	Op BinaryOp
}

// Unary is the payload of KindUnary. Operands: value.
type Unary struct {
	Op UnaryOp
}

// BuiltinCall is the payload of KindBuiltinCall. Operands: arguments.
type BuiltinCall struct {
	Func BuiltinFunc
}

// UserCall is the payload of KindUserCall. Operands: arguments.
type UserCall struct {
	Func *Function
}

// BindingPoint is a resource binding for a module-scope variable.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// Var is the payload of KindVar. Operands: optional initializer.
// The result is a pointer to the variable storage.
type Var struct {
	Space   types.AddressSpace
	Access  types.Access
	Binding *BindingPoint
}

// Swizzle is the payload of KindSwizzle. Operands: vector.
type Swizzle struct {
	Indices []uint32
}

// Var returns the payload of a Var instruction, or nil.
func (i *Instruction) Var() *Var {
	p, _ := i.Payload.(*Var)
	return p
}

func (*Binary) payload()      {}
func (*Unary) payload()       {}
func (*BuiltinCall) payload() {}
func (*UserCall) payload()    {}
func (*Var) payload()         {}
func (*Swizzle) payload()     {}
