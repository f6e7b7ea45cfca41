package wgsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
	"github.com/gogpu/tir/wgsl"
)

func lower(t *testing.T, ast *wgsl.Module) *ir.Module {
	t.Helper()

	m, diags, err := wgsl.Lower(context.Background(), ast)
	require.NoError(t, err, "diagnostics: %v", diags)
	assert.Zero(t, diags.Count(diag.Warning), "diagnostics: %v", diags)

	return m
}

func kinds(b *ir.Block) []ir.Kind {
	out := make([]ir.Kind, len(b.Instructions))
	for i, inst := range b.Instructions {
		out[i] = inst.Kind
	}
	return out
}

func calleeName(inst *ir.Instruction) string {
	return inst.Payload.(*ir.UserCall).Func.Name
}

func TestLowerIfElse(t *testing.T) {
	m := lower(t, samples.IfElse())

	f := m.Function("f")
	require.NotNil(t, f)

	entry := m.Block(f.Entry)
	require.Equal(t, []ir.Kind{ir.KindIf}, kinds(entry))

	ifInst := entry.Terminator()
	p := ifInst.If()

	tb := m.Block(p.True)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindExitIf}, kinds(tb))
	assert.Equal(t, "x", calleeName(tb.Instructions[0]))
	assert.Equal(t, p.Merge, tb.Terminator().Branch().Target)

	fb := m.Block(p.False)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindExitIf}, kinds(fb))
	assert.Equal(t, "y", calleeName(fb.Instructions[0]))

	merge := m.Block(p.Merge)
	assert.True(t, m.IsConnected(merge))
	assert.Len(t, merge.Inbound, 2)
	assert.Equal(t, []ir.Kind{ir.KindReturn}, kinds(merge))
}

func TestLowerEarlyReturn(t *testing.T) {
	m := lower(t, samples.EarlyReturn())

	f := m.Function("f")
	ifInst := m.Block(f.Entry).Terminator()
	require.Equal(t, ir.KindIf, ifInst.Kind)
	p := ifInst.If()

	tb := m.Block(p.True)
	require.Equal(t, []ir.Kind{ir.KindReturn}, kinds(tb))
	assert.Equal(t, int32(1), tb.Instructions[0].Operand(0).(*ir.Constant).I32())

	fb := m.Block(p.False)
	assert.Equal(t, []ir.Kind{ir.KindExitIf}, kinds(fb))

	merge := m.Block(p.Merge)
	require.Len(t, merge.Inbound, 1)
	assert.Same(t, fb.Instructions[0], merge.Inbound[0])
	assert.True(t, m.IsConnected(merge))

	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindReturn}, kinds(merge))
	assert.Equal(t, "x", calleeName(merge.Instructions[0]))
}

func TestLowerForLoop(t *testing.T) {
	m := lower(t, samples.ForLoop())

	f := m.Function("f")
	loop := m.Block(f.Entry).Terminator()
	require.Equal(t, ir.KindLoop, loop.Kind)
	p := loop.Loop()

	require.NotEqual(t, ir.NoBlock, p.Initializer)
	init := m.Block(p.Initializer)
	require.Equal(t, []ir.Kind{ir.KindVar, ir.KindNextIteration}, kinds(init))
	assert.Equal(t, "i", m.Name(init.Instructions[0].Result()))

	body := m.Block(p.Body)
	assert.Equal(t, []ir.Kind{ir.KindLoad, ir.KindBinary, ir.KindIf}, kinds(body))

	cont := m.Block(p.Continuing)
	require.Equal(t, []ir.Kind{ir.KindLoad, ir.KindBinary, ir.KindStore, ir.KindNextIteration}, kinds(cont))
	back := cont.Terminator()
	assert.Same(t, loop, back.Branch().Control)
	assert.Equal(t, p.Body, back.Branch().Target)
	assert.Contains(t, body.Inbound, back)

	assert.True(t, m.IsConnected(m.Block(p.Merge)))
}

func TestLowerWhileLoop(t *testing.T) {
	m := lower(t, samples.WhileLoop())

	f := m.Function("sum_to")
	entry := m.Block(f.Entry)
	loop := entry.Terminator()
	require.Equal(t, ir.KindLoop, loop.Kind)
	p := loop.Loop()
	assert.Equal(t, ir.NoBlock, p.Initializer)

	guard := m.Block(p.Body).Terminator()
	require.Equal(t, ir.KindIf, guard.Kind)
	assert.Equal(t, []ir.Kind{ir.KindExitIf}, kinds(m.Block(guard.If().True)))
	assert.Equal(t, []ir.Kind{ir.KindExitLoop}, kinds(m.Block(guard.If().False)))

	rest := m.Block(guard.If().Merge)
	assert.Equal(t, ir.KindContinue, rest.Terminator().Kind)

	merge := m.Block(p.Merge)
	assert.Equal(t, []ir.Kind{ir.KindLoad, ir.KindReturn}, kinds(merge))
}

func TestLowerLoopBreakIf(t *testing.T) {
	m := lower(t, samples.LoopBreakIf())

	f := m.Function("f")
	loop := m.Block(f.Entry).Terminator()
	require.Equal(t, ir.KindLoop, loop.Kind)
	p := loop.Loop()

	cont := m.Block(p.Continuing)
	bi := cont.Terminator()
	require.Equal(t, ir.KindBreakIf, bi.Kind)
	assert.Equal(t, []ir.BlockID{p.Body, p.Merge}, bi.Successors())
	assert.True(t, m.IsConnected(m.Block(p.Merge)))
}

func TestLowerSwitchFallthrough(t *testing.T) {
	m := lower(t, samples.SwitchFallthrough())

	f := m.Function("f")
	sw := m.Block(f.Entry).Terminator()
	require.Equal(t, ir.KindSwitch, sw.Kind)
	p := sw.Switch()
	require.Len(t, p.Cases, 2)

	first := p.Cases[0]
	assert.True(t, first.IsDefault())
	require.Len(t, first.Selectors, 2)
	assert.Equal(t, int32(1), first.Selectors[0].I32())
	assert.Nil(t, first.Selectors[1])

	start := m.Block(first.Start)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindFallthrough}, kinds(start))
	ft := start.Terminator().Branch()
	assert.Equal(t, p.Cases[1].Start, ft.Target)
	assert.NotEqual(t, p.Merge, ft.Target)

	second := m.Block(p.Cases[1].Start)
	assert.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindExitSwitch}, kinds(second))

	merge := m.Block(p.Merge)
	require.Len(t, merge.Inbound, 1)
	assert.Same(t, second.Terminator(), merge.Inbound[0])
}

func TestLowerDeadCode(t *testing.T) {
	m := lower(t, samples.DeadCode())

	entry := m.Block(m.Function("f").Entry)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindReturn}, kinds(entry))
	assert.Equal(t, "x", calleeName(entry.Instructions[0]))

	for _, b := range m.FunctionBlocks(m.Function("f")) {
		for _, inst := range b.Instructions {
			if inst.Kind == ir.KindUserCall {
				assert.NotEqual(t, "y", calleeName(inst))
			}
		}
	}
}

func TestLowerDeadCodeAfterBreak(t *testing.T) {
	x := samples.Fn("x", nil, nil)
	f := samples.Fn("f", nil, nil,
		&wgsl.LoopStmt{
			Body: samples.Block(
				&wgsl.BreakStmt{},
				samples.Expr(samples.Call(x)),
			),
		},
	)

	m := lower(t, &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, f}})

	loop := m.Block(m.Function("f").Entry).Terminator()
	body := m.Block(loop.Loop().Body)
	assert.Equal(t, []ir.Kind{ir.KindExitLoop}, kinds(body))

	cont := m.Block(loop.Loop().Continuing)
	assert.False(t, m.IsConnected(cont))
	assert.Equal(t, []ir.Kind{ir.KindNextIteration}, kinds(cont))
}

func TestLowerUnreachableMerge(t *testing.T) {
	a := samples.Param("a", samples.Bool)
	f := samples.Fn("f", samples.I32, []*wgsl.Parameter{a},
		&wgsl.IfStmt{
			Condition: samples.Ref(a),
			Body:      samples.Block(samples.Return(samples.I(1))),
			Else:      samples.Block(samples.Return(samples.I(2))),
		},
		samples.Return(samples.I(3)),
	)

	m := lower(t, &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}})

	ifInst := m.Block(m.Function("f").Entry).Terminator()
	merge := m.Block(ifInst.If().Merge)
	assert.False(t, m.IsConnected(merge))
	assert.Equal(t, []ir.Kind{ir.KindUnreachable}, kinds(merge))
	assert.Empty(t, ir.Validate(m))
}

func TestLowerContinueOutsideLoop(t *testing.T) {
	f := samples.Fn("f", nil, nil, &wgsl.ContinueStmt{Span: wgsl.Span{Start: wgsl.Position{Line: 3, Column: 5}}})

	m, diags, err := wgsl.Lower(context.Background(), &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}})
	require.Error(t, err)
	assert.Nil(t, m)

	require.Len(t, diags, 1)
	assert.Equal(t, diag.InternalError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "continue outside of a loop")
	assert.Equal(t, 3, diags[0].Source.Line)
}

func TestLowerFallthroughInLastCase(t *testing.T) {
	s := samples.Param("s", samples.I32)
	f := samples.Fn("f", nil, []*wgsl.Parameter{s},
		&wgsl.SwitchStmt{
			Selector: samples.Ref(s),
			Cases: []*wgsl.SwitchCaseClause{
				{IsDefault: true, Body: samples.Block(&wgsl.FallthroughStmt{})},
			},
		},
	)

	_, diags, err := wgsl.Lower(context.Background(), &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}})
	require.Error(t, err)
	assert.True(t, diags.ContainsErrors())
}

type unknownStmt struct{ wgsl.ExprStmt }

func TestLowerUnknownStatement(t *testing.T) {
	x := samples.Fn("x", nil, nil)
	f := samples.Fn("f", nil, nil,
		&unknownStmt{},
		samples.Expr(samples.Call(x)),
	)

	m, diags, err := wgsl.Lower(context.Background(), &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, f}})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.Warning, diags[0].Severity)

	entry := m.Block(m.Function("f").Entry)
	assert.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindReturn}, kinds(entry))
}

func TestLowerEntryPoints(t *testing.T) {
	m := lower(t, samples.ComputeDouble())

	main := m.Function("main")
	require.NotNil(t, main)
	assert.Equal(t, ir.StageCompute, main.Stage)
	assert.Equal(t, [3]uint32{64, 1, 1}, main.WorkgroupSize)
	require.Len(t, main.Params, 1)
	assert.Equal(t, ir.BuiltinGlobalInvocationID, main.Params[0].IO.Builtin)

	root := m.RootBlock()
	require.Len(t, root.Instructions, 1)
	v := root.Instructions[0].Var()
	assert.Equal(t, types.SpaceStorage, v.Space)
	assert.Equal(t, types.ReadWrite, v.Access)
	require.NotNil(t, v.Binding)
	assert.Equal(t, ir.BindingPoint{Group: 0, Binding: 0}, *v.Binding)

	m = lower(t, samples.FragmentUV())
	fs := m.Function("fs")
	assert.Equal(t, ir.StageFragment, fs.Stage)
	assert.True(t, fs.ReturnIO.HasLocation)
	assert.True(t, fs.Params[0].IO.HasLocation)
}

func TestLowerConstantFolding(t *testing.T) {
	v4 := samples.Vec(samples.F32, 4)
	f := samples.Fn("f", v4, nil,
		samples.Return(samples.Construct(v4, samples.F(0), samples.F(0), samples.F(0), samples.F(1))),
	)

	m := lower(t, &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}})

	ret := m.Block(m.Function("f").Entry).Terminator()
	require.Equal(t, []ir.Kind{ir.KindReturn}, kinds(m.Block(m.Function("f").Entry)))
	c, ok := ret.Operand(0).(*ir.Constant)
	require.True(t, ok)
	assert.Equal(t, "vec4<f32>(0.0f, 0.0f, 0.0f, 1.0f)", c.String())
}

func TestLowerSamplesValidate(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			m := lower(t, s.Build())
			assert.Empty(t, ir.Validate(m))
		})
	}
}

func TestLowerDeterministic(t *testing.T) {
	for _, s := range samples.All() {
		a := ir.Disassemble(lower(t, s.Build()))
		b := ir.Disassemble(lower(t, s.Build()))
		assert.Equal(t, a, b, s.Name)
	}
}

func logicalModule(op wgsl.TokenKind, rhs func(side *wgsl.FunctionDecl) wgsl.Expr) *wgsl.Module {
	side := samples.Fn("side", samples.Bool, nil, samples.Return(samples.B(true)))
	a := samples.Param("a", samples.Bool)

	f := samples.Fn("f", samples.Bool, []*wgsl.Parameter{a},
		samples.Return(samples.Cmp(samples.Ref(a), op, rhs(side))),
	)

	return &wgsl.Module{Functions: []*wgsl.FunctionDecl{side, f}}
}

func TestLowerLogicalAndShortCircuits(t *testing.T) {
	m := lower(t, logicalModule(wgsl.TokenAmpAmp, func(side *wgsl.FunctionDecl) wgsl.Expr {
		return samples.Call(side)
	}))
	assert.Empty(t, ir.Validate(m))

	f := m.Function("f")
	entry := m.Block(f.Entry)
	require.Equal(t, []ir.Kind{ir.KindVar, ir.KindIf}, kinds(entry))

	res := entry.Instructions[0]
	assert.Same(t, f.Params[0], res.Operand(0))

	ifInst := entry.Terminator()
	assert.Same(t, f.Params[0], ifInst.Operand(0))
	p := ifInst.If()

	// side() runs only when a holds.
	tb := m.Block(p.True)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindStore, ir.KindExitIf}, kinds(tb))
	assert.Equal(t, "side", calleeName(tb.Instructions[0]))
	assert.Same(t, res.Result(), tb.Instructions[1].Operand(0))
	assert.Equal(t, []ir.Kind{ir.KindExitIf}, kinds(m.Block(p.False)))

	merge := m.Block(p.Merge)
	require.Equal(t, []ir.Kind{ir.KindLoad, ir.KindReturn}, kinds(merge))
	assert.Same(t, res.Result(), merge.Instructions[0].Operand(0))
}

func TestLowerLogicalOrShortCircuits(t *testing.T) {
	m := lower(t, logicalModule(wgsl.TokenPipePipe, func(side *wgsl.FunctionDecl) wgsl.Expr {
		return samples.Call(side)
	}))
	assert.Empty(t, ir.Validate(m))

	p := m.Block(m.Function("f").Entry).Terminator().If()

	// side() runs only when a does not hold.
	assert.Equal(t, []ir.Kind{ir.KindExitIf}, kinds(m.Block(p.True)))
	fb := m.Block(p.False)
	require.Equal(t, []ir.Kind{ir.KindUserCall, ir.KindStore, ir.KindExitIf}, kinds(fb))
	assert.Equal(t, "side", calleeName(fb.Instructions[0]))
}

func TestLowerLogicalWithoutCallsIsEager(t *testing.T) {
	m := lower(t, logicalModule(wgsl.TokenAmpAmp, func(*wgsl.FunctionDecl) wgsl.Expr {
		return samples.B(false)
	}))

	entry := m.Block(m.Function("f").Entry)
	require.Equal(t, []ir.Kind{ir.KindBinary, ir.KindReturn}, kinds(entry))
	assert.Equal(t, ir.BinaryLogicalAnd, entry.Instructions[0].Payload.(*ir.Binary).Op)
}

func TestLowerFloatLiterals(t *testing.T) {
	for lit, want := range map[string]float32{
		"1.5f":    1.5,
		"2.0":     2,
		"1e2f":    100,
		"0x1.8":   1.5,
		"0x1.f":   1.9375,
		"0x1p4f":  16,
		"0x1.8p1": 3,
	} {
		f := samples.Fn("f", samples.F32, nil,
			samples.Return(&wgsl.Literal{Kind: wgsl.TokenFloatLiteral, Value: lit, Type: samples.F32}),
		)

		m := lower(t, &wgsl.Module{Functions: []*wgsl.FunctionDecl{f}})

		c, ok := m.Block(m.Function("f").Entry).Terminator().Operand(0).(*ir.Constant)
		require.True(t, ok, lit)
		assert.Equal(t, want, c.F32(), lit)
	}
}
