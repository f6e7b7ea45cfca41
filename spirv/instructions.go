package spirv

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

type opKey struct {
	op    uint8
	class types.Class
}

// binaryOps selects the opcode of a binary operation by operator and the
// numeric class of its operands.
var binaryOps = map[opKey]OpCode{
	{uint8(ir.BinaryAdd), types.ClassSint}:  OpIAdd,
	{uint8(ir.BinaryAdd), types.ClassUint}:  OpIAdd,
	{uint8(ir.BinaryAdd), types.ClassFloat}: OpFAdd,

	{uint8(ir.BinarySubtract), types.ClassSint}:  OpISub,
	{uint8(ir.BinarySubtract), types.ClassUint}:  OpISub,
	{uint8(ir.BinarySubtract), types.ClassFloat}: OpFSub,

	{uint8(ir.BinaryMultiply), types.ClassSint}:  OpIMul,
	{uint8(ir.BinaryMultiply), types.ClassUint}:  OpIMul,
	{uint8(ir.BinaryMultiply), types.ClassFloat}: OpFMul,

	{uint8(ir.BinaryDivide), types.ClassSint}:  OpSDiv,
	{uint8(ir.BinaryDivide), types.ClassUint}:  OpUDiv,
	{uint8(ir.BinaryDivide), types.ClassFloat}: OpFDiv,

	{uint8(ir.BinaryModulo), types.ClassSint}:  OpSRem,
	{uint8(ir.BinaryModulo), types.ClassUint}:  OpUMod,
	{uint8(ir.BinaryModulo), types.ClassFloat}: OpFRem,

	{uint8(ir.BinaryEqual), types.ClassBool}:  OpLogicalEqual,
	{uint8(ir.BinaryEqual), types.ClassSint}:  OpIEqual,
	{uint8(ir.BinaryEqual), types.ClassUint}:  OpIEqual,
	{uint8(ir.BinaryEqual), types.ClassFloat}: OpFOrdEqual,

	{uint8(ir.BinaryNotEqual), types.ClassBool}:  OpLogicalNotEqual,
	{uint8(ir.BinaryNotEqual), types.ClassSint}:  OpINotEqual,
	{uint8(ir.BinaryNotEqual), types.ClassUint}:  OpINotEqual,
	{uint8(ir.BinaryNotEqual), types.ClassFloat}: OpFOrdNotEqual,

	{uint8(ir.BinaryLess), types.ClassSint}:  OpSLessThan,
	{uint8(ir.BinaryLess), types.ClassUint}:  OpULessThan,
	{uint8(ir.BinaryLess), types.ClassFloat}: OpFOrdLessThan,

	{uint8(ir.BinaryLessEqual), types.ClassSint}:  OpSLessThanEqual,
	{uint8(ir.BinaryLessEqual), types.ClassUint}:  OpULessThanEqual,
	{uint8(ir.BinaryLessEqual), types.ClassFloat}: OpFOrdLessThanEqual,

	{uint8(ir.BinaryGreater), types.ClassSint}:  OpSGreaterThan,
	{uint8(ir.BinaryGreater), types.ClassUint}:  OpUGreaterThan,
	{uint8(ir.BinaryGreater), types.ClassFloat}: OpFOrdGreaterThan,

	{uint8(ir.BinaryGreaterEqual), types.ClassSint}:  OpSGreaterThanEqual,
	{uint8(ir.BinaryGreaterEqual), types.ClassUint}:  OpUGreaterThanEqual,
	{uint8(ir.BinaryGreaterEqual), types.ClassFloat}: OpFOrdGreaterThanEqual,

	{uint8(ir.BinaryAnd), types.ClassBool}: OpLogicalAnd,
	{uint8(ir.BinaryAnd), types.ClassSint}: OpBitwiseAnd,
	{uint8(ir.BinaryAnd), types.ClassUint}: OpBitwiseAnd,

	{uint8(ir.BinaryInclusiveOr), types.ClassBool}: OpLogicalOr,
	{uint8(ir.BinaryInclusiveOr), types.ClassSint}: OpBitwiseOr,
	{uint8(ir.BinaryInclusiveOr), types.ClassUint}: OpBitwiseOr,

	{uint8(ir.BinaryExclusiveOr), types.ClassBool}: OpLogicalNotEqual,
	{uint8(ir.BinaryExclusiveOr), types.ClassSint}: OpBitwiseXor,
	{uint8(ir.BinaryExclusiveOr), types.ClassUint}: OpBitwiseXor,

	{uint8(ir.BinaryLogicalAnd), types.ClassBool}: OpLogicalAnd,
	{uint8(ir.BinaryLogicalOr), types.ClassBool}:  OpLogicalOr,

	{uint8(ir.BinaryShiftLeft), types.ClassSint}:  OpShiftLeftLogical,
	{uint8(ir.BinaryShiftLeft), types.ClassUint}:  OpShiftLeftLogical,
	{uint8(ir.BinaryShiftRight), types.ClassSint}: OpShiftRightArithmetic,
	{uint8(ir.BinaryShiftRight), types.ClassUint}: OpShiftRightLogical,
}

var unaryOps = map[opKey]OpCode{
	{uint8(ir.UnaryNegate), types.ClassSint}:     OpSNegate,
	{uint8(ir.UnaryNegate), types.ClassFloat}:    OpFNegate,
	{uint8(ir.UnaryLogicalNot), types.ClassBool}: OpLogicalNot,
	{uint8(ir.UnaryBitwiseNot), types.ClassSint}: OpNot,
	{uint8(ir.UnaryBitwiseNot), types.ClassUint}: OpNot,
}

// BinaryOpcode returns the opcode implementing op on operands of type t.
func BinaryOpcode(op ir.BinaryOp, t types.Type) (OpCode, bool) {
	code, ok := binaryOps[opKey{uint8(op), types.ClassOf(t)}]
	return code, ok
}

func (g *Generator) emitBinary(inst *ir.Instruction) {
	op := inst.Payload.(*ir.Binary).Op
	lhs, rhs := inst.Operand(0), inst.Operand(1)
	lt, rt := lhs.Type(), rhs.Type()
	typ := g.Type(inst.Result().Type())

	l, r := g.Value(lhs), g.Value(rhs)

	if op == ir.BinaryMultiply && types.IsFloat(lt) {
		if code, swap, ok := floatProduct(lt, rt); ok {
			if swap {
				l, r = r, l
			}
			id := g.builder.AllocID()
			g.fn.Add(code, typ, id, l, r)
			g.bind(inst, id)
			return
		}
	}

	code, ok := BinaryOpcode(op, lt)
	if !ok {
		g.fatalf("unhandled binary operator %v on %v", op, lt)
	}

	// SPIR-V arithmetic wants operands of one shape.
	if lv, ok := lt.(*types.Vector); ok {
		if s, ok := rt.(*types.Scalar); ok {
			r = g.splat(g.module.Types.Vec(s, lv.Width), r)
		}
	} else if rv, ok := rt.(*types.Vector); ok {
		if s, ok := lt.(*types.Scalar); ok {
			l = g.splat(g.module.Types.Vec(s, rv.Width), l)
		}
	}

	id := g.builder.AllocID()
	g.fn.Add(code, typ, id, l, r)
	g.bind(inst, id)
}

// floatProduct selects the dedicated SPIR-V opcode for a float product of
// a vector or matrix with a scalar, vector or matrix. swap reports that
// the operands have to be exchanged.
func floatProduct(lt, rt types.Type) (code OpCode, swap, ok bool) {
	switch lt.(type) {
	case *types.Scalar:
		switch rt.(type) {
		case *types.Vector:
			return OpVectorTimesScalar, true, true
		case *types.Matrix:
			return OpMatrixTimesScalar, true, true
		}
	case *types.Vector:
		switch rt.(type) {
		case *types.Scalar:
			return OpVectorTimesScalar, false, true
		case *types.Matrix:
			return OpVectorTimesMatrix, false, true
		}
	case *types.Matrix:
		switch rt.(type) {
		case *types.Scalar:
			return OpMatrixTimesScalar, false, true
		case *types.Vector:
			return OpMatrixTimesVector, false, true
		case *types.Matrix:
			return OpMatrixTimesMatrix, false, true
		}
	}
	return 0, false, false
}

func (g *Generator) splat(v *types.Vector, scalar uint32) uint32 {
	words := []uint32{g.Type(v), g.builder.AllocID()}
	for i := uint32(0); i < v.Width; i++ {
		words = append(words, scalar)
	}
	g.fn.Add(OpCompositeConstruct, words...)
	return words[1]
}

func (g *Generator) emitUnary(inst *ir.Instruction) {
	op := inst.Payload.(*ir.Unary).Op
	v := inst.Operand(0)

	code, ok := unaryOps[opKey{uint8(op), types.ClassOf(v.Type())}]
	if !ok {
		g.fatalf("unhandled unary operator %v on %v", op, v.Type())
	}

	id := g.builder.AllocID()
	g.fn.Add(code, g.Type(inst.Result().Type()), id, g.Value(v))
	g.bind(inst, id)
}

func (g *Generator) emitUserCall(inst *ir.Instruction) {
	fn := inst.Payload.(*ir.UserCall).Func

	fid, ok := g.functionIDs[fn]
	if !ok {
		g.fatalf("call to unknown function %s", fn.Name)
	}

	words := []uint32{g.Type(fn.ReturnType), g.builder.AllocID(), fid}
	for _, a := range inst.Operands() {
		words = append(words, g.pointer(a))
	}
	g.fn.Add(OpFunctionCall, words...)
	g.bind(inst, words[1])
}

// pointer returns the ID of v. Uniform and storage variables are wrapped
// in a struct, so a pointer to the variable's store type is taken by an
// access chain to member 0.
func (g *Generator) pointer(v ir.Value) uint32 {
	store, ok := g.resources[v]
	if !ok {
		return g.Value(v)
	}

	ptr := v.Type().(*types.Pointer)
	id := g.builder.AllocID()
	g.fn.Add(OpAccessChain, g.pointerType(g.storageClass(ptr.Space), g.Type(store)), id, g.values[v], g.u32(0))
	return id
}

func (g *Generator) emitConstruct(inst *ir.Instruction) {
	t := inst.Result().Type()
	typ := g.Type(t)
	args := inst.Operands()

	if len(args) == 0 {
		g.bind(inst, g.null(typ))
		return
	}

	ids := make([]uint32, len(args))
	for i, a := range args {
		ids[i] = g.Value(a)
	}

	switch t := t.(type) {
	case *types.Vector:
		if len(args) == 1 {
			if _, ok := args[0].Type().(*types.Scalar); ok {
				g.bind(inst, g.splat(t, ids[0]))
				return
			}
		}
	case *types.Matrix:
		if _, ok := args[0].Type().(*types.Scalar); ok && uint32(len(args)) == t.Columns*t.Rows {
			col := t.ColumnType()
			cols := make([]uint32, t.Columns)
			for c := range cols {
				words := []uint32{g.Type(col), g.builder.AllocID()}
				words = append(words, ids[uint32(c)*t.Rows:uint32(c+1)*t.Rows]...)
				g.fn.Add(OpCompositeConstruct, words...)
				cols[c] = words[1]
			}
			ids = cols
		}
	}

	id := g.builder.AllocID()
	g.fn.Add(OpCompositeConstruct, append([]uint32{typ, id}, ids...)...)
	g.bind(inst, id)
}

//nolint:gocyclo // conversion matrix
func (g *Generator) emitConvert(inst *ir.Instruction) {
	v := inst.Operand(0)
	from, to := types.ClassOf(v.Type()), types.ClassOf(inst.Result().Type())
	fromElem, toElem := types.ElementOf(v.Type()), types.ElementOf(inst.Result().Type())
	if fromElem == nil || toElem == nil {
		g.fatalf("unhandled conversion from %v to %v", v.Type(), inst.Result().Type())
	}

	typ := g.Type(inst.Result().Type())
	val := g.Value(v)

	if fromElem.Kind == toElem.Kind {
		g.bind(inst, val)
		return
	}

	id := g.builder.AllocID()

	switch {
	case from == types.ClassFloat && to == types.ClassFloat:
		g.fn.Add(OpFConvert, typ, id, val)
	case from == types.ClassFloat && to == types.ClassSint:
		g.fn.Add(OpConvertFToS, typ, id, val)
	case from == types.ClassFloat && to == types.ClassUint:
		g.fn.Add(OpConvertFToU, typ, id, val)
	case from == types.ClassSint && to == types.ClassFloat:
		g.fn.Add(OpConvertSToF, typ, id, val)
	case from == types.ClassUint && to == types.ClassFloat:
		g.fn.Add(OpConvertUToF, typ, id, val)
	case (from == types.ClassSint || from == types.ClassUint) && (to == types.ClassSint || to == types.ClassUint):
		g.fn.Add(OpBitcast, typ, id, val)
	case from == types.ClassBool:
		one, zero := g.oneAndZero(inst.Result().Type())
		g.fn.Add(OpSelect, typ, id, val, one, zero)
	case to == types.ClassBool:
		zero := g.Constant(g.module.Constants.Zero(v.Type()))
		code := OpINotEqual
		if from == types.ClassFloat {
			code = OpFOrdNotEqual
		}
		g.fn.Add(code, typ, id, val, zero)
	default:
		g.fatalf("unhandled conversion from %v to %v", v.Type(), inst.Result().Type())
	}

	g.bind(inst, id)
}

func (g *Generator) oneAndZero(t types.Type) (one, zero uint32) {
	ct := g.module.Constants
	s := types.ElementOf(t)

	o, z := ct.Scalar(s, 1), ct.Scalar(s, 0)
	if v, ok := t.(*types.Vector); ok {
		o, z = ct.Splat(v, o), ct.Splat(v, z)
	}

	return g.Constant(o), g.Constant(z)
}

func (g *Generator) emitAccess(inst *ir.Instruction) {
	ops := inst.Operands()
	base, indices := ops[0], ops[1:]
	typ := g.Type(inst.Result().Type())

	if _, ok := base.Type().(*types.Pointer); ok {
		words := []uint32{typ, g.builder.AllocID()}
		if _, wrapped := g.resources[base]; wrapped {
			words = append(words, g.values[base], g.u32(0))
		} else {
			words = append(words, g.Value(base))
		}
		for _, idx := range indices {
			words = append(words, g.Value(idx))
		}
		g.fn.Add(OpAccessChain, words...)
		g.bind(inst, words[1])
		return
	}

	constant := true
	for _, idx := range indices {
		if _, ok := idx.(*ir.Constant); !ok {
			constant = false
		}
	}

	if constant {
		words := []uint32{typ, g.builder.AllocID(), g.Value(base)}
		for _, idx := range indices {
			words = append(words, idx.(*ir.Constant).Bits)
		}
		g.fn.Add(OpCompositeExtract, words...)
		g.bind(inst, words[1])
		return
	}

	if _, ok := base.Type().(*types.Vector); ok && len(indices) == 1 {
		id := g.builder.AllocID()
		g.fn.Add(OpVectorExtractDynamic, typ, id, g.Value(base), g.Value(indices[0]))
		g.bind(inst, id)
		return
	}

	// Dynamic index into an array or matrix value: spill it to a
	// temporary and index through a pointer.
	tmp := g.temporary(base.Type())
	g.fn.Add(OpStore, tmp, g.Value(base))

	words := []uint32{g.pointerType(StorageClassFunction, typ), g.builder.AllocID(), tmp}
	for _, idx := range indices {
		words = append(words, g.Value(idx))
	}
	g.fn.Add(OpAccessChain, words...)

	id := g.builder.AllocID()
	g.fn.Add(OpLoad, typ, id, words[1])
	g.bind(inst, id)
}

func (g *Generator) emitSwizzle(inst *ir.Instruction) {
	idx := inst.Payload.(*ir.Swizzle).Indices
	v := g.Value(inst.Operand(0))
	typ := g.Type(inst.Result().Type())
	id := g.builder.AllocID()

	if len(idx) == 1 {
		g.fn.Add(OpCompositeExtract, typ, id, v, idx[0])
	} else {
		g.fn.Add(OpVectorShuffle, append([]uint32{typ, id, v, v}, idx...)...)
	}

	g.bind(inst, id)
}
