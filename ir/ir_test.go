package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/types"
)

func newTestFunction(t *testing.T) (*Module, *Function, *Builder) {
	t.Helper()

	m := NewModule()
	f := m.NewFunction("f", nil)
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	return m, f, b
}

func TestAppendAfterTerminatorPanics(t *testing.T) {
	m, f, b := newTestFunction(t)

	b.Return(nil)

	assert.Panics(t, func() {
		b.Unreachable()
	})
	assert.Len(t, m.Block(f.Entry).Instructions, 1)
}

func TestUsagesTracked(t *testing.T) {
	m, _, b := newTestFunction(t)

	one := m.Constants.I32(1)
	sum := b.Binary(BinaryAdd, m.Types.I32(), one, one)
	b.Return(nil)

	require.Len(t, one.Usages(), 2)
	assert.Equal(t, Usage{Instruction: sum.Source, Operand: 0}, one.Usages()[0])
	assert.Equal(t, Usage{Instruction: sum.Source, Operand: 1}, one.Usages()[1])

	two := m.Constants.I32(2)
	sum.Source.SetOperand(1, two)

	assert.Len(t, one.Usages(), 1)
	assert.Len(t, two.Usages(), 1)
	assert.Same(t, two, sum.Source.Operand(1))
}

func TestIfInboundEdges(t *testing.T) {
	m, f, b := newTestFunction(t)

	cond := m.AddParam(f, "c", m.Types.Bool())
	ifInst := b.If(cond)
	p := ifInst.If()

	assert.Equal(t, []*Instruction{ifInst}, m.Block(p.True).Inbound)
	assert.Equal(t, []*Instruction{ifInst}, m.Block(p.False).Inbound)
	assert.Empty(t, m.Block(p.Merge).Inbound)
	assert.Same(t, ifInst, m.Block(p.True).Parent)
	assert.Same(t, f, m.Block(p.Merge).Func)
}

func TestIsConnected_IfBothSidesReturn(t *testing.T) {
	m, f, b := newTestFunction(t)

	cond := m.AddParam(f, "c", m.Types.Bool())
	ifInst := b.If(cond)
	p := ifInst.If()

	b.SetInsertion(m.Block(p.True))
	b.Return(nil)
	b.SetInsertion(m.Block(p.False))
	b.Return(nil)

	assert.True(t, m.IsConnected(m.Block(f.Entry)))
	assert.True(t, m.IsConnected(m.Block(p.True)))
	assert.False(t, m.IsConnected(m.Block(p.Merge)))
}

func TestIsConnected_IfOneSideExits(t *testing.T) {
	m, f, b := newTestFunction(t)

	cond := m.AddParam(f, "c", m.Types.Bool())
	ifInst := b.If(cond)
	p := ifInst.If()

	b.SetInsertion(m.Block(p.True))
	b.Return(nil)
	b.SetInsertion(m.Block(p.False))
	b.ExitIf(ifInst)

	assert.True(t, m.IsConnected(m.Block(p.Merge)))
}

func TestIsConnected_LoopTerminates(t *testing.T) {
	m, f, b := newTestFunction(t)

	loop := b.Loop(false)
	p := loop.Loop()

	b.SetInsertion(m.Block(p.Body))
	b.Continue(loop)
	b.SetInsertion(m.Block(p.Continuing))
	b.NextIteration(loop)

	// The merge is only reachable through exits; there are none, and the
	// back-edge cycle must not make the search loop forever.
	assert.False(t, m.IsConnected(m.Block(p.Merge)))
	assert.True(t, m.IsConnected(m.Block(p.Continuing)))
	assert.True(t, m.IsConnected(m.Block(p.Body)))
	assert.Len(t, m.ReachableBlocks(f), 3)
}

func TestIsConnected_DetachedCycle(t *testing.T) {
	m, f, _ := newTestFunction(t)

	// Two blocks branching to each other but not reachable from the entry.
	loop := &Instruction{Kind: KindLoop, Payload: &Loop{Body: m.NewBlock().ID, Continuing: m.NewBlock().ID, Merge: m.NewBlock().ID}}
	p := loop.Loop()
	body, cont := m.Block(p.Body), m.Block(p.Continuing)
	body.Func, cont.Func = f, f

	b := NewBuilder(m)
	b.SetInsertion(body)
	b.Continue(loop)
	b.SetInsertion(cont)
	b.NextIteration(loop)

	assert.False(t, m.IsConnected(body))
	assert.False(t, m.IsConnected(cont))
}

func TestIsConnected_BreakIfReachesMerge(t *testing.T) {
	m, _, b := newTestFunction(t)

	loop := b.Loop(false)
	p := loop.Loop()

	b.SetInsertion(m.Block(p.Body))
	b.Continue(loop)
	b.SetInsertion(m.Block(p.Continuing))
	b.BreakIf(loop, m.Constants.Bool(true))

	assert.True(t, m.IsConnected(m.Block(p.Merge)))
}

func TestSwitchCases(t *testing.T) {
	m, f, b := newTestFunction(t)

	sel := m.AddParam(f, "s", m.Types.I32())
	sw := b.Switch(sel, [][]*Constant{
		{m.Constants.I32(1), nil},
		{m.Constants.I32(2)},
	})
	p := sw.Switch()

	require.Len(t, p.Cases, 2)
	assert.True(t, p.Cases[0].IsDefault())
	assert.False(t, p.Cases[1].IsDefault())
	assert.Equal(t, []BlockID{p.Cases[0].Start, p.Cases[1].Start}, sw.Successors())

	b.SetInsertion(m.Block(p.Cases[0].Start))
	b.Fallthrough(sw, p.Cases[1].Start)

	assert.Len(t, m.Block(p.Cases[1].Start).Inbound, 2)
}

func TestFunctionBlocksOrder(t *testing.T) {
	m, f, b := newTestFunction(t)

	cond := m.AddParam(f, "c", m.Types.Bool())
	ifInst := b.If(cond)
	p := ifInst.If()

	b.SetInsertion(m.Block(p.True))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.False))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.Merge))
	b.Return(nil)

	var ids []BlockID
	for _, blk := range m.FunctionBlocks(f) {
		ids = append(ids, blk.ID)
	}
	assert.Equal(t, []BlockID{f.Entry, p.True, p.False, p.Merge}, ids)
}

func TestVarResultIsPointer(t *testing.T) {
	m, _, b := newTestFunction(t)

	v := b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.F32(), nil)

	ptr, ok := v.Type().(*types.Pointer)
	require.True(t, ok)
	assert.Same(t, m.Types.F32(), ptr.Store)
	assert.Equal(t, "x", m.Name(v))

	ld := b.Load(v)
	assert.Same(t, m.Types.F32(), ld.Type())
}
