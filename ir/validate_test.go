package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/types"
)

func TestValidateValidModule(t *testing.T) {
	m := buildIfModule()

	diags := Validate(m)
	assert.Empty(t, diags, diags.String())
}

func TestValidateUnterminatedBlock(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", nil)
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.I32(), nil)

	diags := Validate(m)
	require.True(t, diags.ContainsErrors())
	assert.Contains(t, diags.String(), "does not end in a terminator")
}

func TestValidateReturnType(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", m.Types.I32())
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	b.Return(m.Constants.F32(1))

	diags := Validate(m)
	require.True(t, diags.ContainsErrors())
	assert.Contains(t, diags.String(), "return of f32 in function returning i32")
}

func TestValidateContinueInContinuing(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", nil)
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))

	loop := b.Loop(false)
	p := loop.Loop()
	b.SetInsertion(m.Block(p.Body))
	b.Continue(loop)
	b.SetInsertion(m.Block(p.Continuing))
	b.Continue(loop)
	b.SetInsertion(m.Block(p.Merge))
	b.Unreachable()

	diags := Validate(m)
	require.True(t, diags.ContainsErrors())
	assert.Contains(t, diags.String(), "continue in $B")
}

func TestValidateExitLoopThroughIf(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", nil)
	cond := m.AddParam(f, "c", m.Types.Bool())
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))

	loop := b.Loop(false)
	lp := loop.Loop()
	b.SetInsertion(m.Block(lp.Body))
	ifInst := b.If(cond)
	ip := ifInst.If()
	b.SetInsertion(m.Block(ip.True))
	b.ExitLoop(loop)
	b.SetInsertion(m.Block(ip.False))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(ip.Merge))
	b.Continue(loop)
	b.SetInsertion(m.Block(lp.Continuing))
	b.NextIteration(loop)
	b.SetInsertion(m.Block(lp.Merge))
	b.Return(nil)

	diags := Validate(m)
	assert.Empty(t, diags, diags.String())
}

func TestValidateRootBlock(t *testing.T) {
	m := NewModule()
	b := NewBuilder(m)
	b.Var("v", types.SpaceFunction, types.ReadWrite, m.Types.I32(), nil)

	diags := Validate(m)
	require.True(t, diags.ContainsErrors())
	assert.Contains(t, diags.String(), "module-scope var in function address space")
}
