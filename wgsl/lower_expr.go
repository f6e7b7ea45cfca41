package wgsl

import (
	"strconv"
	"strings"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
)

// binaryOpTable maps WGSL binary operators to IR binary operators.
var binaryOpTable = map[TokenKind]ir.BinaryOp{
	TokenPlus:           ir.BinaryAdd,
	TokenMinus:          ir.BinarySubtract,
	TokenStar:           ir.BinaryMultiply,
	TokenSlash:          ir.BinaryDivide,
	TokenPercent:        ir.BinaryModulo,
	TokenEqualEqual:     ir.BinaryEqual,
	TokenBangEqual:      ir.BinaryNotEqual,
	TokenLess:           ir.BinaryLess,
	TokenLessEqual:      ir.BinaryLessEqual,
	TokenGreater:        ir.BinaryGreater,
	TokenGreaterEqual:   ir.BinaryGreaterEqual,
	TokenAmpersand:      ir.BinaryAnd,
	TokenPipe:           ir.BinaryInclusiveOr,
	TokenCaret:          ir.BinaryExclusiveOr,
	TokenAmpAmp:         ir.BinaryLogicalAnd,
	TokenPipePipe:       ir.BinaryLogicalOr,
	TokenLessLess:       ir.BinaryShiftLeft,
	TokenGreaterGreater: ir.BinaryShiftRight,
}

// assignOpTable maps compound assignment operators to IR binary operators.
var assignOpTable = map[TokenKind]ir.BinaryOp{
	TokenPlusEqual:           ir.BinaryAdd,
	TokenMinusEqual:          ir.BinarySubtract,
	TokenStarEqual:           ir.BinaryMultiply,
	TokenSlashEqual:          ir.BinaryDivide,
	TokenPercentEqual:        ir.BinaryModulo,
	TokenAmpEqual:            ir.BinaryAnd,
	TokenPipeEqual:           ir.BinaryInclusiveOr,
	TokenCaretEqual:          ir.BinaryExclusiveOr,
	TokenLessLessEqual:       ir.BinaryShiftLeft,
	TokenGreaterGreaterEqual: ir.BinaryShiftRight,
}

// unaryOpTable maps WGSL value unary operators to IR unary operators.
var unaryOpTable = map[TokenKind]ir.UnaryOp{
	TokenMinus: ir.UnaryNegate,
	TokenBang:  ir.UnaryLogicalNot,
	TokenTilde: ir.UnaryBitwiseNot,
}

// expr lowers an expression to a value.
//
//nolint:gocyclo // one arm per expression kind
func (l *Lowerer) expr(e Expr) ir.Value {
	switch e := e.(type) {
	case *Literal:
		return l.literal(e)
	case *Ident:
		return l.ident(e)
	case *BinaryExpr:
		return l.binaryExpr(e)
	case *UnaryExpr:
		return l.unaryExpr(e)
	case *CallExpr:
		v := l.call(e)
		if v == nil {
			l.fatalf(e.Span, "call to %s used as a value has no result", e.Func.Name)
		}
		return v
	case *IndexExpr:
		return l.index(e)
	case *MemberExpr:
		return l.member(e)
	case *ConstructExpr:
		return l.construct(e)
	case nil:
		l.fatalf(Span{}, "missing expression")
	}

	l.warnf(e.Pos(), "unhandled expression %T", e)
	if e.ResolvedType() == nil {
		l.fatalf(e.Pos(), "unhandled expression %T has no type", e)
	}
	return l.module.Constants.Zero(l.module.Types.Get(e.ResolvedType()))
}

func (l *Lowerer) literal(lit *Literal) ir.Value {
	s, ok := lit.Type.(*types.Scalar)
	if !ok {
		l.fatalf(lit.Span, "literal %q has non-scalar type %v", lit.Value, lit.Type)
	}

	consts := l.module.Constants
	switch lit.Kind {
	case TokenBoolLiteral:
		return consts.Bool(lit.Value == "true")
	case TokenIntLiteral:
		v, err := strconv.ParseInt(strings.TrimRight(lit.Value, "iu"), 0, 64)
		if err != nil {
			l.fatalf(lit.Span, "bad integer literal %q", lit.Value)
		}
		return consts.Scalar(s, float64(v))
	case TokenFloatLiteral:
		v, err := parseFloat(lit.Value)
		if err != nil {
			l.fatalf(lit.Span, "bad float literal %q", lit.Value)
		}
		return consts.Scalar(s, v)
	}

	l.fatalf(lit.Span, "unknown literal kind %v", lit.Kind)
	return nil
}

// parseFloat parses a WGSL float literal. In a hex literal a trailing f is
// a digit unless the literal has an exponent, which hex literals may omit.
func parseFloat(lit string) (float64, error) {
	hex := strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X")
	exp := strings.ContainsAny(lit, "pP")

	if n := len(lit); n > 0 && (lit[n-1] == 'h' || lit[n-1] == 'f' && (!hex || exp)) {
		lit = lit[:n-1]
	}
	if hex && !exp {
		lit += "p0"
	}

	return strconv.ParseFloat(lit, 64)
}

func (l *Lowerer) ident(id *Ident) ir.Value {
	v, ok := l.values[id.Decl]
	if !ok {
		l.fatalf(id.Span, "unresolved identifier %q", id.Name)
	}
	if _, isVar := id.Decl.(*VarDecl); isVar {
		return l.b.Load(v)
	}
	return v
}

func (l *Lowerer) binaryExpr(e *BinaryExpr) ir.Value {
	op, ok := binaryOpTable[e.Op]
	if !ok {
		l.warnf(e.Span, "unhandled binary operator %v", e.Op)
		return l.module.Constants.Zero(l.module.Types.Get(e.Type))
	}

	if (op == ir.BinaryLogicalAnd || op == ir.BinaryLogicalOr) && hasCall(e.Right) {
		return l.shortCircuit(op, e)
	}

	lhs := l.expr(e.Left)
	rhs := l.expr(e.Right)

	return l.binary(op, e.Type, lhs, rhs)
}

// shortCircuit lowers `a && b` and `a || b` whose right operand may have
// side effects. The result lives in a variable initialized with a; b is
// evaluated and stored only on the arm that needs it:
//
//	var r = a; if (a) { r = b; }            // &&
//	var r = a; if (a) { } else { r = b; }   // ||
func (l *Lowerer) shortCircuit(op ir.BinaryOp, e *BinaryExpr) ir.Value {
	lhs := l.expr(e.Left)
	t := l.module.Types.Get(e.Type)

	res := l.b.Var("", types.SpaceFunction, types.ReadWrite, t, lhs)

	ifInst := l.b.If(lhs)
	p := ifInst.If()

	eval, skip := p.True, p.False
	if op == ir.BinaryLogicalOr {
		eval, skip = skip, eval
	}

	l.inBlock(eval, func() {
		l.b.Store(res, l.expr(e.Right))
		l.b.ExitIf(ifInst)
	})
	l.inBlock(skip, func() { l.b.ExitIf(ifInst) })

	l.setCurrent(l.module.Block(p.Merge))

	return l.b.Load(res)
}

// hasCall reports whether evaluating e may call a function. Other
// expressions have no side effects and can be evaluated eagerly.
func hasCall(e Expr) bool {
	switch e := e.(type) {
	case *Literal, *Ident, nil:
		return false
	case *BinaryExpr:
		return hasCall(e.Left) || hasCall(e.Right)
	case *UnaryExpr:
		return hasCall(e.Operand)
	case *IndexExpr:
		return hasCall(e.Expr) || hasCall(e.Index)
	case *MemberExpr:
		return hasCall(e.Expr)
	case *ConstructExpr:
		for _, a := range e.Args {
			if hasCall(a) {
				return true
			}
		}
		return false
	}
	return true
}

// binary emits a binary operation. Except for multiplication, which has
// native vector-scalar forms, a scalar operand of a mixed scalar-vector
// operation is splatted to the vector type.
func (l *Lowerer) binary(op ir.BinaryOp, t types.Type, lhs, rhs ir.Value) ir.Value {
	if op != ir.BinaryMultiply && op != ir.BinaryShiftLeft && op != ir.BinaryShiftRight {
		lv, lvec := lhs.Type().(*types.Vector)
		rv, rvec := rhs.Type().(*types.Vector)
		switch {
		case lvec && !rvec:
			rhs = l.splat(lv, rhs)
		case rvec && !lvec:
			lhs = l.splat(rv, lhs)
		}
	}
	return l.b.Binary(op, t, lhs, rhs)
}

func (l *Lowerer) splat(v *types.Vector, s ir.Value) ir.Value {
	vt := l.module.Types.Vec(v.Elem, v.Width)
	if c, ok := s.(*ir.Constant); ok {
		return l.module.Constants.Splat(vt, c)
	}

	args := make([]ir.Value, v.Width)
	for i := range args {
		args[i] = s
	}
	return l.b.Construct(vt, args...)
}

func (l *Lowerer) unaryExpr(e *UnaryExpr) ir.Value {
	switch e.Op {
	case TokenAmpersand:
		return l.ref(e.Operand)
	case TokenStar:
		return l.b.Load(l.expr(e.Operand))
	}

	op, ok := unaryOpTable[e.Op]
	if !ok {
		l.warnf(e.Span, "unhandled unary operator %v", e.Op)
		return l.module.Constants.Zero(l.module.Types.Get(e.Type))
	}

	v := l.expr(e.Operand)
	if c, ok := v.(*ir.Constant); ok && op == ir.UnaryNegate && !c.IsComposite() {
		if neg := l.negate(c); neg != nil {
			return neg
		}
	}

	return l.b.Unary(op, e.Type, v)
}

// negate folds negation of a signed or float scalar constant.
func (l *Lowerer) negate(c *ir.Constant) *ir.Constant {
	s, _ := c.Type().(*types.Scalar)
	if s == nil {
		return nil
	}
	switch s.Kind {
	case types.KindI32:
		return l.module.Constants.I32(-c.I32())
	case types.KindF32:
		return l.module.Constants.F32(-c.F32())
	case types.KindF16:
		return l.module.Constants.F16(-c.F32())
	}
	return nil
}

// call lowers a function call. It returns nil for calls without a result.
func (l *Lowerer) call(e *CallExpr) ir.Value {
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.expr(a)
	}

	if e.Callee != nil {
		fn, ok := l.funcs[e.Callee]
		if !ok {
			l.fatalf(e.Span, "call to undeclared function %s", e.Func.Name)
		}
		if r := l.b.UserCall(fn, args...); r != nil {
			return r
		}
		return nil
	}

	bf, ok := ir.LookupBuiltin(e.Func.Name)
	if !ok {
		l.warnf(e.Span, "unhandled builtin %s", e.Func.Name)
		if e.Type == nil {
			return nil
		}
		return l.module.Constants.Zero(l.module.Types.Get(e.Type))
	}

	if r := l.b.Call(bf, e.Type, args...); r != nil {
		return r
	}
	return nil
}

func (l *Lowerer) index(e *IndexExpr) ir.Value {
	if l.isRef(e.Expr) {
		return l.b.Load(l.ref(e))
	}

	base := l.expr(e.Expr)
	idx := l.expr(e.Index)
	return l.b.Access(e.Type, base, idx)
}

func (l *Lowerer) member(e *MemberExpr) ir.Value {
	if vec, ok := types.Deref(e.Expr.ResolvedType()).(*types.Vector); ok && len(e.Member) > 1 {
		idx := l.swizzleIndices(e, vec)
		return l.b.Swizzle(e.Type, l.expr(e.Expr), idx...)
	}

	if l.isRef(e.Expr) {
		return l.b.Load(l.ref(e))
	}

	base := l.expr(e.Expr)
	idx := l.memberIndex(e, base.Type())
	return l.b.Access(e.Type, base, l.module.Constants.U32(idx))
}

func (l *Lowerer) memberIndex(e *MemberExpr, t types.Type) uint32 {
	switch t := types.Deref(t).(type) {
	case *types.Struct:
		if i, ok := t.MemberIndex(e.Member); ok {
			return uint32(i)
		}
	case *types.Vector:
		if len(e.Member) == 1 {
			return l.swizzleIndices(e, t)[0]
		}
	}

	l.fatalf(e.Span, "no member %q in %v", e.Member, t)
	return 0
}

func (l *Lowerer) swizzleIndices(e *MemberExpr, v *types.Vector) []uint32 {
	idx := make([]uint32, len(e.Member))
	for i, ch := range e.Member {
		n := strings.IndexRune("xyzw", ch)
		if n < 0 {
			n = strings.IndexRune("rgba", ch)
		}
		if n < 0 || uint32(n) >= v.Width {
			l.fatalf(e.Span, "invalid swizzle %q of %v", e.Member, v)
		}
		idx[i] = uint32(n)
	}
	return idx
}

// isRef reports whether e denotes memory, so that accesses through it are
// lowered as pointer access chains.
func (l *Lowerer) isRef(e Expr) bool {
	switch e := e.(type) {
	case *Ident:
		v, ok := l.values[e.Decl]
		if !ok {
			return false
		}
		_, ptr := v.Type().(*types.Pointer)
		return ptr
	case *IndexExpr:
		return l.isRef(e.Expr)
	case *MemberExpr:
		if _, vec := types.Deref(e.Expr.ResolvedType()).(*types.Vector); vec && len(e.Member) > 1 {
			return false
		}
		return l.isRef(e.Expr)
	case *UnaryExpr:
		return e.Op == TokenStar
	}
	return false
}

// ref lowers an expression denoting memory to a pointer value.
func (l *Lowerer) ref(e Expr) ir.Value {
	switch e := e.(type) {
	case *Ident:
		v, ok := l.values[e.Decl]
		if !ok {
			l.fatalf(e.Span, "unresolved identifier %q", e.Name)
		}
		if _, ptr := v.Type().(*types.Pointer); !ptr {
			l.fatalf(e.Span, "%s is not a reference", e.Name)
		}
		return v
	case *IndexExpr:
		base := l.ref(e.Expr)
		idx := l.expr(e.Index)
		return l.b.Access(l.elemPtr(base, e.Type), base, idx)
	case *MemberExpr:
		base := l.ref(e.Expr)
		idx := l.memberIndex(e, base.Type())
		return l.b.Access(l.elemPtr(base, e.Type), base, l.module.Constants.U32(idx))
	case *UnaryExpr:
		if e.Op == TokenStar {
			return l.expr(e.Operand)
		}
	}

	l.fatalf(e.Pos(), "%T is not a reference", e)
	return nil
}

func (l *Lowerer) elemPtr(base ir.Value, elem types.Type) types.Type {
	p := base.Type().(*types.Pointer)
	return l.module.Types.Ptr(p.Space, elem, p.Access)
}

// constant lowers an expression that must fold to a constant.
func (l *Lowerer) constant(e Expr) *ir.Constant {
	c, ok := l.expr(e).(*ir.Constant)
	if !ok {
		l.fatalf(e.Pos(), "expression is not a constant")
	}
	return c
}

func (l *Lowerer) construct(e *ConstructExpr) ir.Value {
	t := l.module.Types.Get(e.Type)
	if len(e.Args) == 0 {
		return l.module.Constants.Zero(t)
	}

	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.expr(a)
	}

	if len(args) == 1 {
		arg := args[0]
		if types.Equal(arg.Type(), t) {
			return arg
		}

		switch tt := t.(type) {
		case *types.Scalar:
			return l.convert(tt, arg)
		case *types.Vector:
			switch at := arg.Type().(type) {
			case *types.Scalar:
				if !types.Equal(at, tt.Elem) {
					arg = l.convert(tt.Elem, arg)
				}
				return l.splat(tt, arg)
			case *types.Vector:
				return l.convert(tt, arg)
			}
		}
	}

	if c := l.foldComposite(t, args); c != nil {
		return c
	}

	return l.b.Construct(t, args...)
}

// convert emits a value conversion, folding scalar constants.
func (l *Lowerer) convert(t types.Type, v ir.Value) ir.Value {
	if s, ok := t.(*types.Scalar); ok {
		if c, ok := v.(*ir.Constant); ok && !c.IsComposite() {
			return l.module.Constants.Scalar(s, scalarValue(c))
		}
	}
	return l.b.Convert(t, v)
}

func scalarValue(c *ir.Constant) float64 {
	s, _ := c.Type().(*types.Scalar)
	if s == nil {
		return 0
	}
	switch s.Kind {
	case types.KindBool:
		if c.Bool() {
			return 1
		}
		return 0
	case types.KindI32:
		return float64(c.I32())
	case types.KindU32:
		return float64(c.U32())
	}
	return float64(c.F32())
}

// foldComposite returns a composite constant when every argument is a
// constant of the element type, or nil.
func (l *Lowerer) foldComposite(t types.Type, args []ir.Value) *ir.Constant {
	var elem types.Type
	var n int
	switch t := t.(type) {
	case *types.Vector:
		elem, n = t.Elem, int(t.Width)
	case *types.Matrix:
		elem, n = t.ColumnType(), int(t.Columns)
	case *types.Array:
		elem, n = t.Elem, int(t.Count)
	default:
		return nil
	}
	if len(args) != n {
		return nil
	}

	elems := make([]*ir.Constant, n)
	for i, a := range args {
		c, ok := a.(*ir.Constant)
		if !ok || !types.Equal(c.Type(), elem) {
			return nil
		}
		elems[i] = c
	}

	return l.module.Constants.Composite(t, elems...)
}
