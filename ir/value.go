package ir

import (
	"github.com/gogpu/tir/types"
)

// Value is anything an instruction can use as an operand.
type Value interface {
	// Type returns the type of the value.
	Type() types.Type

	// Usages returns the instructions using this value, in the order the
	// uses were added.
	Usages() []Usage

	addUsage(u Usage)
	removeUsage(u Usage)
}

// Usage is a single use of a value: operand Operand of Instruction.
type Usage struct {
	Instruction *Instruction
	Operand     int
}

type usages struct {
	list []Usage
}

func (u *usages) Usages() []Usage { return u.list }

func (u *usages) addUsage(x Usage) {
	u.list = append(u.list, x)
}

func (u *usages) removeUsage(x Usage) {
	for i, e := range u.list {
		if e == x {
			u.list = append(u.list[:i], u.list[i+1:]...)
			return
		}
	}
}

// InstructionResult is the value produced by an instruction.
type InstructionResult struct {
	usages

	typ    types.Type
	Source *Instruction
}

// Type implements Value.
func (r *InstructionResult) Type() types.Type { return r.typ }

// Builtin is a pipeline builtin value bound to an entry point parameter or
// result.
type Builtin uint8

const (
	BuiltinValueNone Builtin = iota
	BuiltinPosition
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkgroupID
	BuiltinNumWorkgroups
)

var builtinValueNames = [...]string{
	BuiltinValueNone:            "",
	BuiltinPosition:             "position",
	BuiltinVertexIndex:          "vertex_index",
	BuiltinInstanceIndex:        "instance_index",
	BuiltinFrontFacing:          "front_facing",
	BuiltinFragDepth:            "frag_depth",
	BuiltinSampleIndex:          "sample_index",
	BuiltinLocalInvocationID:    "local_invocation_id",
	BuiltinLocalInvocationIndex: "local_invocation_index",
	BuiltinGlobalInvocationID:   "global_invocation_id",
	BuiltinWorkgroupID:          "workgroup_id",
	BuiltinNumWorkgroups:        "num_workgroups",
}

func (b Builtin) String() string {
	if int(b) < len(builtinValueNames) {
		return builtinValueNames[b]
	}
	return "builtin?"
}

// LookupBuiltinValue returns the builtin value with the given WGSL name.
func LookupBuiltinValue(name string) (Builtin, bool) {
	for i, n := range builtinValueNames {
		if i != int(BuiltinValueNone) && n == name {
			return Builtin(i), true
		}
	}
	return BuiltinValueNone, false
}

// IOAttributes are the shader interface attributes of an entry point
// parameter or return value.
type IOAttributes struct {
	Builtin     Builtin
	Location    uint32
	HasLocation bool
}

// IsSet reports whether any attribute is present.
func (a IOAttributes) IsSet() bool {
	return a.Builtin != BuiltinValueNone || a.HasLocation
}

// FunctionParam is a function parameter.
type FunctionParam struct {
	usages

	typ   types.Type
	Func  *Function
	Index int
	IO    IOAttributes
}

// Type implements Value.
func (p *FunctionParam) Type() types.Type { return p.typ }
