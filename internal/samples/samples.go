// Package samples holds validated WGSL ASTs used by the tests and by tirc.
package samples

import (
	"sort"

	"github.com/gogpu/tir/types"
	"github.com/gogpu/tir/wgsl"
)

// Sample is a named program.
type Sample struct {
	Name        string
	Description string
	Build       func() *wgsl.Module
}

var registry = map[string]Sample{}

func register(name, desc string, build func() *wgsl.Module) {
	registry[name] = Sample{Name: name, Description: desc, Build: build}
}

// All returns every sample ordered by name.
func All() []Sample {
	out := make([]Sample, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the sample with the given name.
func Lookup(name string) (Sample, bool) {
	s, ok := registry[name]
	return s, ok
}

func init() {
	register("if_else", "if (a) { x(); } else { y(); }", IfElse)
	register("early_return", "return inside an if followed by more statements", EarlyReturn)
	register("for_loop", "for (var i = 0; i < 5; i = i + 1) { }", ForLoop)
	register("switch_fallthrough", "switch with case 1i, default falling through", SwitchFallthrough)
	register("while_loop", "while loop summing into a variable", WhileLoop)
	register("loop_break_if", "loop with a continuing block ending in break if", LoopBreakIf)
	register("dead_code", "statements after return are dropped", DeadCode)
	register("compute_double", "compute shader doubling a storage buffer", ComputeDouble)
	register("fragment_uv", "fragment shader writing a color from its input", FragmentUV)
	register("vertex_select", "vertex shader with a local variable and a member store", VertexSelect)
}

func voidFns() (x, y *wgsl.FunctionDecl) {
	return Fn("x", nil, nil), Fn("y", nil, nil)
}

// IfElse is `if (a) { x(); } else { y(); }`.
func IfElse() *wgsl.Module {
	x, y := voidFns()
	a := Param("a", Bool)

	f := Fn("f", nil, []*wgsl.Parameter{a},
		&wgsl.IfStmt{
			Condition: Ref(a),
			Body:      Block(Expr(Call(x))),
			Else:      Block(Expr(Call(y))),
		},
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, y, f}}
}

// EarlyReturn is `if (cond) { return 1i; } x(); return 2i;`.
func EarlyReturn() *wgsl.Module {
	x, _ := voidFns()
	cond := Param("cond", Bool)

	f := Fn("f", I32, []*wgsl.Parameter{cond},
		&wgsl.IfStmt{
			Condition: Ref(cond),
			Body:      Block(Return(I(1))),
		},
		Expr(Call(x)),
		Return(I(2)),
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, f}}
}

// ForLoop is `for (var i = 0; i < 5; i = i + 1) { }`.
func ForLoop() *wgsl.Module {
	i := Var("i", I32, I(0))

	f := Fn("f", nil, nil,
		&wgsl.ForStmt{
			Init:      i,
			Condition: Cmp(Ref(i), wgsl.TokenLess, I(5)),
			Update:    Assign(Ref(i), Bin(Ref(i), wgsl.TokenPlus, I(1), I32)),
			Body:      Block(),
		},
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}}
}

// SwitchFallthrough is
//
//	switch s {
//	case 1i, default: { x(); fallthrough; }
//	case 2i: { y(); }
//	}
func SwitchFallthrough() *wgsl.Module {
	x, y := voidFns()
	s := Param("s", I32)

	f := Fn("f", nil, []*wgsl.Parameter{s},
		&wgsl.SwitchStmt{
			Selector: Ref(s),
			Cases: []*wgsl.SwitchCaseClause{
				{Selectors: []wgsl.Expr{I(1)}, IsDefault: true, Body: Block(Expr(Call(x)), &wgsl.FallthroughStmt{})},
				{Selectors: []wgsl.Expr{I(2)}, Body: Block(Expr(Call(y)))},
			},
		},
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, y, f}}
}

// WhileLoop sums 0..n-1.
func WhileLoop() *wgsl.Module {
	n := Param("n", I32)
	sum := Var("sum", I32, I(0))
	i := Var("i", I32, I(0))

	f := Fn("sum_to", I32, []*wgsl.Parameter{n},
		sum,
		i,
		&wgsl.WhileStmt{
			Condition: Cmp(Ref(i), wgsl.TokenLess, Ref(n)),
			Body: Block(
				&wgsl.AssignStmt{Left: Ref(sum), Op: wgsl.TokenPlusEqual, Right: Ref(i)},
				&wgsl.IncDecStmt{Expr: Ref(i), Op: wgsl.TokenPlusPlus},
			),
		},
		Return(Ref(sum)),
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}}
}

// LoopBreakIf is `loop { x(); continuing { i++; break if i >= 4; } }`.
func LoopBreakIf() *wgsl.Module {
	x, _ := voidFns()
	i := Var("i", I32, I(0))

	f := Fn("f", nil, nil,
		i,
		&wgsl.LoopStmt{
			Body: Block(Expr(Call(x))),
			Continuing: Block(
				&wgsl.IncDecStmt{Expr: Ref(i), Op: wgsl.TokenPlusPlus},
				&wgsl.BreakIfStmt{Condition: Cmp(Ref(i), wgsl.TokenGreaterEqual, I(4))},
			),
		},
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, f}}
}

// DeadCode is `x(); return; y();`.
func DeadCode() *wgsl.Module {
	x, y := voidFns()

	f := Fn("f", nil, nil,
		Expr(Call(x)),
		Return(nil),
		Expr(Call(y)),
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, y, f}}
}

// ComputeDouble doubles every element of a storage buffer.
func ComputeDouble() *wgsl.Module {
	arr := &types.Array{Elem: F32, Stride: 4}
	data := &wgsl.VarDecl{
		Name:         "data",
		Type:         arr,
		AddressSpace: "storage",
		AccessMode:   "read_write",
		Attributes:   []wgsl.Attribute{Attr("group", 0), Attr("binding", 0)},
	}

	id := Param("id", Vec(U32, 3), Attr("builtin", "global_invocation_id"))
	idx := Let("i", Member(Ref(id), "x", U32))

	elem := func() *wgsl.IndexExpr { return Index(Ref(data), Ref(idx), F32) }

	main := Fn("main", nil, []*wgsl.Parameter{id},
		idx,
		&wgsl.IfStmt{
			Condition: Cmp(Ref(idx), wgsl.TokenLess,
				Builtin("arrayLength", U32, Addr(Ref(data), &types.Pointer{Store: arr, Space: types.SpaceStorage}))),
			Body: Block(
				Assign(elem(), Bin(elem(), wgsl.TokenStar, F(2), F32)),
			),
		},
	)
	main.Attributes = []wgsl.Attribute{Attr("compute"), Attr("workgroup_size", 64)}

	return &wgsl.Module{
		GlobalVars: []*wgsl.VarDecl{data},
		Functions:  []*wgsl.FunctionDecl{main},
	}
}

// FragmentUV returns vec4<f32>(uv, 0.0, 1.0).
func FragmentUV() *wgsl.Module {
	uv := Param("uv", Vec(F32, 2), Attr("location", 0))
	v4 := Vec(F32, 4)

	fs := Fn("fs", v4, []*wgsl.Parameter{uv},
		Return(Construct(v4, Ref(uv), F(0), F(1))),
	)
	fs.Attributes = []wgsl.Attribute{Attr("fragment")}
	fs.ReturnAttrs = []wgsl.Attribute{Attr("location", 0)}

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{fs}}
}

// VertexSelect moves one vertex of a fixed position.
func VertexSelect() *wgsl.Module {
	v4 := Vec(F32, 4)
	idx := Param("idx", U32, Attr("builtin", "vertex_index"))
	p := Var("p", v4, Construct(v4, F(0), F(0), F(0), F(1)))

	vs := Fn("vs", v4, []*wgsl.Parameter{idx},
		p,
		&wgsl.IfStmt{
			Condition: Cmp(Ref(idx), wgsl.TokenEqualEqual, U(1)),
			Body:      Block(Assign(Member(Ref(p), "x", F32), F(1))),
		},
		Return(Ref(p)),
	)
	vs.Attributes = []wgsl.Attribute{Attr("vertex")}
	vs.ReturnAttrs = []wgsl.Attribute{Attr("builtin", "position")}

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{vs}}
}
