package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/tir/types"
)

func buildIfModule() *Module {
	m := NewModule()
	f := m.NewFunction("f", nil)
	cond := m.AddParam(f, "a", m.Types.Bool())

	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	ifInst := b.If(cond)
	p := ifInst.If()

	b.SetInsertion(m.Block(p.True))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.False))
	b.ExitIf(ifInst)
	b.SetInsertion(m.Block(p.Merge))
	b.Return(nil)
	return m
}

func TestDisassembleIf(t *testing.T) {
	m := buildIfModule()

	want := `%f = func(%a:bool):void {
  $B1: {
    if %a [t: $B2, f: $B3, m: $B4]
  }
  $B2: {  # true
    exit_if $B4
  }
  $B3: {  # false
    exit_if $B4
  }
  $B4: {  # if merge
    ret
  }
}
`
	assert.Equal(t, want, Disassemble(m))
}

func TestDisassembleDeterministic(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("main", m.Types.I32())
	f.Stage = StageCompute
	f.WorkgroupSize = [3]uint32{8, 1, 1}

	b := NewBuilder(m)
	g := b.Var("g", types.SpacePrivate, types.ReadWrite, m.Types.I32(), nil)

	b.SetInsertion(m.Block(f.Entry))
	x := b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.I32(), m.Constants.I32(1))
	y := b.Var("x", types.SpaceFunction, types.ReadWrite, m.Types.I32(), nil)
	lx := b.Load(x)
	lg := b.Load(g)
	sum := b.Binary(BinaryAdd, m.Types.I32(), lx, lg)
	b.Store(y, sum)
	b.Return(b.Load(y))

	first := Disassemble(m)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Disassemble(m))
	}

	want := `$B1: {  # root
  %g:ptr<private, i32, read_write> = var
}

%main = @compute @workgroup_size(8, 1, 1) func():i32 {
  $B2: {
    %x:ptr<function, i32, read_write> = var, 1i
    %x_1:ptr<function, i32, read_write> = var
    %1:i32 = load %x
    %2:i32 = load %g
    %3:i32 = add %1, %2
    store %x_1, %3
    %4:i32 = load %x_1
    ret %4
  }
}
`
	assert.Equal(t, want, first)
}

func TestDisassembleLoop(t *testing.T) {
	m := NewModule()
	f := m.NewFunction("f", nil)
	b := NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))

	loop := b.Loop(false)
	p := loop.Loop()
	b.SetInsertion(m.Block(p.Body))
	b.Continue(loop)
	b.SetInsertion(m.Block(p.Continuing))
	b.BreakIf(loop, m.Constants.Bool(true))
	b.SetInsertion(m.Block(p.Merge))
	b.Return(nil)

	want := `%f = func():void {
  $B1: {
    loop [b: $B2, c: $B3, m: $B4]
  }
  $B2: {  # body
    continue $B3
  }
  $B3: {  # continuing
    break_if true [n: $B2, m: $B4]
  }
  $B4: {  # loop merge
    ret
  }
}
`
	assert.Equal(t, want, Disassemble(m))
}

func TestDisassembleBlock(t *testing.T) {
	m := buildIfModule()
	f := m.Functions[0]

	assert.Equal(t, "$B1: {\n  if %a [t: $B2, f: $B3, m: $B4]\n}\n", DisassembleBlock(m, m.Block(f.Entry)))
}
