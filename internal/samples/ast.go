package samples

import (
	"fmt"
	"strconv"

	"github.com/gogpu/tir/types"
	"github.com/gogpu/tir/wgsl"
)

// Scalar and vector types used by the samples. They are deliberately not
// interned: the IR builder must accept structurally equal types from any
// source.
var (
	Bool = &types.Scalar{Kind: types.KindBool}
	I32  = &types.Scalar{Kind: types.KindI32}
	U32  = &types.Scalar{Kind: types.KindU32}
	F32  = &types.Scalar{Kind: types.KindF32}
)

func Vec(elem *types.Scalar, n uint32) *types.Vector {
	return &types.Vector{Elem: elem, Width: n}
}

// I returns an i32 literal.
func I(v int32) *wgsl.Literal {
	return &wgsl.Literal{Kind: wgsl.TokenIntLiteral, Value: strconv.Itoa(int(v)) + "i", Type: I32}
}

// U returns a u32 literal.
func U(v uint32) *wgsl.Literal {
	return &wgsl.Literal{Kind: wgsl.TokenIntLiteral, Value: strconv.FormatUint(uint64(v), 10) + "u", Type: U32}
}

// F returns an f32 literal.
func F(v float32) *wgsl.Literal {
	return &wgsl.Literal{Kind: wgsl.TokenFloatLiteral, Value: strconv.FormatFloat(float64(v), 'g', -1, 32) + "f", Type: F32}
}

// B returns a bool literal.
func B(v bool) *wgsl.Literal {
	return &wgsl.Literal{Kind: wgsl.TokenBoolLiteral, Value: strconv.FormatBool(v), Type: Bool}
}

// Ref returns an identifier referring to decl.
func Ref(decl wgsl.Decl) *wgsl.Ident {
	switch d := decl.(type) {
	case *wgsl.VarDecl:
		return &wgsl.Ident{Name: d.Name, Decl: d, Type: d.Type}
	case *wgsl.LetDecl:
		return &wgsl.Ident{Name: d.Name, Decl: d, Type: d.Type}
	case *wgsl.ConstDecl:
		return &wgsl.Ident{Name: d.Name, Decl: d, Type: d.Type}
	case *wgsl.Parameter:
		return &wgsl.Ident{Name: d.Name, Decl: d, Type: d.Type}
	}
	panic(fmt.Sprintf("unsupported declaration %T", decl))
}

// Bin returns a binary expression of type t.
func Bin(l wgsl.Expr, op wgsl.TokenKind, r wgsl.Expr, t types.Type) *wgsl.BinaryExpr {
	return &wgsl.BinaryExpr{Left: l, Op: op, Right: r, Type: t}
}

// Cmp returns a comparison.
func Cmp(l wgsl.Expr, op wgsl.TokenKind, r wgsl.Expr) *wgsl.BinaryExpr {
	return Bin(l, op, r, Bool)
}

// Call returns a call of a user function.
func Call(fn *wgsl.FunctionDecl, args ...wgsl.Expr) *wgsl.CallExpr {
	return &wgsl.CallExpr{Func: &wgsl.Ident{Name: fn.Name}, Args: args, Callee: fn, Type: fn.ReturnType}
}

// Builtin returns a call of a builtin function with result type t, which
// is nil for builtins without a result.
func Builtin(name string, t types.Type, args ...wgsl.Expr) *wgsl.CallExpr {
	return &wgsl.CallExpr{Func: &wgsl.Ident{Name: name}, Args: args, Type: t}
}

// Construct returns a value constructor.
func Construct(t types.Type, args ...wgsl.Expr) *wgsl.ConstructExpr {
	return &wgsl.ConstructExpr{Type: t, Args: args}
}

// Member returns a member access or swizzle of type t.
func Member(e wgsl.Expr, member string, t types.Type) *wgsl.MemberExpr {
	return &wgsl.MemberExpr{Expr: e, Member: member, Type: t}
}

// Index returns an index expression of type t.
func Index(e, idx wgsl.Expr, t types.Type) *wgsl.IndexExpr {
	return &wgsl.IndexExpr{Expr: e, Index: idx, Type: t}
}

// Addr returns &e.
func Addr(e wgsl.Expr, t types.Type) *wgsl.UnaryExpr {
	return &wgsl.UnaryExpr{Op: wgsl.TokenAmpersand, Operand: e, Type: t}
}

func Block(stmts ...wgsl.Stmt) *wgsl.BlockStmt {
	return &wgsl.BlockStmt{Statements: stmts}
}

func Assign(l wgsl.Expr, r wgsl.Expr) *wgsl.AssignStmt {
	return &wgsl.AssignStmt{Left: l, Op: wgsl.TokenEqual, Right: r}
}

func Return(v wgsl.Expr) *wgsl.ReturnStmt {
	return &wgsl.ReturnStmt{Value: v}
}

func Expr(e wgsl.Expr) *wgsl.ExprStmt {
	return &wgsl.ExprStmt{Expr: e}
}

// Var returns a function scope variable declaration.
func Var(name string, t types.Type, init wgsl.Expr) *wgsl.VarDecl {
	return &wgsl.VarDecl{Name: name, Type: t, Init: init}
}

// Let returns a let declaration typed by its initializer.
func Let(name string, init wgsl.Expr) *wgsl.LetDecl {
	return &wgsl.LetDecl{Name: name, Type: init.ResolvedType(), Init: init}
}

// Param returns a function parameter.
func Param(name string, t types.Type, attrs ...wgsl.Attribute) *wgsl.Parameter {
	return &wgsl.Parameter{Name: name, Type: t, Attributes: attrs}
}

// Fn returns a function declaration. ret is nil for functions without a
// result.
func Fn(name string, ret types.Type, params []*wgsl.Parameter, body ...wgsl.Stmt) *wgsl.FunctionDecl {
	return &wgsl.FunctionDecl{Name: name, Params: params, ReturnType: ret, Body: Block(body...)}
}

// Attr returns an attribute with literal or identifier arguments.
func Attr(name string, args ...interface{}) wgsl.Attribute {
	a := wgsl.Attribute{Name: name}
	for _, arg := range args {
		switch arg := arg.(type) {
		case int:
			a.Args = append(a.Args, &wgsl.Literal{Kind: wgsl.TokenIntLiteral, Value: strconv.Itoa(arg), Type: I32})
		case string:
			a.Args = append(a.Args, &wgsl.Ident{Name: arg})
		default:
			panic(fmt.Sprintf("unsupported attribute argument %T", arg))
		}
	}
	return a
}
