package wgsl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/types"
	"github.com/gogpu/tir/wgsl"
)

func write(t *testing.T, ast *wgsl.Module) string {
	t.Helper()

	src, err := wgsl.Write(lower(t, ast), wgsl.DefaultWriterOptions())
	require.NoError(t, err)

	return src
}

func TestWriteForLoop(t *testing.T) {
	src := write(t, samples.ForLoop())

	assert.Contains(t, src, "for(var i : i32 = 0i; (i < 5i); i = (i + 1i)) { }")
	assert.Equal(t, `fn f() {
  for(var i : i32 = 0i; (i < 5i); i = (i + 1i)) { }
}
`, src)
}

func TestWriteIfElse(t *testing.T) {
	src := write(t, samples.IfElse())

	assert.Equal(t, `fn x() { }

fn y() { }

fn f(a : bool) {
  if (a) {
    x();
  } else {
    y();
  }
}
`, src)
}

func TestWriteEarlyReturn(t *testing.T) {
	src := write(t, samples.EarlyReturn())

	assert.Equal(t, `fn x() { }

fn f(cond : bool) -> i32 {
  if (cond) {
    return 1i;
  }
  x();
  return 2i;
}
`, src)
}

func TestWriteWhileLoop(t *testing.T) {
	src := write(t, samples.WhileLoop())

	assert.Equal(t, `fn sum_to(n : i32) -> i32 {
  var sum : i32 = 0i;
  var i : i32 = 0i;
  while(i < n) {
    sum = (sum + i);
    i = (i + 1i);
  }
  return sum;
}
`, src)
}

func TestWriteLoopBreakIf(t *testing.T) {
	src := write(t, samples.LoopBreakIf())

	assert.Equal(t, `fn x() { }

fn f() {
  var i : i32 = 0i;
  loop {
    x();
    continuing {
      i = (i + 1i);
      break if (i >= 4i);
    }
  }
}
`, src)
}

func TestWriteSwitchFallthrough(t *testing.T) {
	src := write(t, samples.SwitchFallthrough())

	assert.Equal(t, `fn x() { }

fn y() { }

fn f(s : i32) {
  switch(s) {
    case 1i, default: {
      x();
      fallthrough;
    }
    case 2i: {
      y();
    }
  }
}
`, src)
}

func TestWriteSwitchBreakOnlyCase(t *testing.T) {
	x := samples.Fn("x", nil, nil)
	s := samples.Param("s", samples.I32)
	f := samples.Fn("f", nil, []*wgsl.Parameter{s},
		&wgsl.SwitchStmt{
			Selector: samples.Ref(s),
			Cases: []*wgsl.SwitchCaseClause{
				{Selectors: []wgsl.Expr{samples.I(1)}, Body: samples.Block()},
				{IsDefault: true, Body: samples.Block(samples.Expr(samples.Call(x)))},
			},
		},
	)

	src := write(t, &wgsl.Module{Functions: []*wgsl.FunctionDecl{x, f}})

	assert.Equal(t, `fn x() { }

fn f(s : i32) {
  switch(s) {
    case 1i: {
      break;
    }
    default: {
      x();
    }
  }
}
`, src)
}

func TestWriteComputeShader(t *testing.T) {
	src := write(t, samples.ComputeDouble())

	assert.True(t, strings.HasPrefix(src, "@group(0) @binding(0) var<storage, read_write> data : array<f32>;\n"), src)
	assert.Contains(t, src, "@compute @workgroup_size(64, 1, 1)\nfn main(@builtin(global_invocation_id) id : vec3<u32>) {\n")
	assert.Contains(t, src, "let i = id.x;")
	assert.Contains(t, src, "if (i < arrayLength(&data)) {")
	assert.Contains(t, src, "data[i] = (data[i] * 2.0f);")
}

func TestWriteVertexShader(t *testing.T) {
	src := write(t, samples.VertexSelect())

	assert.Equal(t, `@vertex
fn vs(@builtin(vertex_index) idx : u32) -> @builtin(position) vec4<f32> {
  var p : vec4<f32> = vec4<f32>(0.0f, 0.0f, 0.0f, 1.0f);
  if (idx == 1u) {
    p.x = 1.0f;
  }
  return p;
}
`, src)
}

func TestWriteFlushesLoadsBeforeStores(t *testing.T) {
	m := ir.NewModule()
	i32 := m.Types.I32()
	f := m.NewFunction("f", i32)

	b := ir.NewBuilder(m)
	b.SetInsertion(m.Block(f.Entry))
	x := b.Var("x", types.SpaceFunction, types.ReadWrite, i32, m.Constants.I32(1))
	old := b.Load(x)
	b.Store(x, m.Constants.I32(2))
	b.Return(old)

	src, err := wgsl.Write(m, wgsl.DefaultWriterOptions())
	require.NoError(t, err)

	assert.Equal(t, `fn f() -> i32 {
  var x : i32 = 1i;
  let v = x;
  x = 2i;
  return v;
}
`, src)
}

func TestWriteIndentOption(t *testing.T) {
	src, err := wgsl.Write(lower(t, samples.IfElse()), wgsl.WriterOptions{Indent: "\t"})
	require.NoError(t, err)
	assert.Contains(t, src, "\tif (a) {\n\t\tx();\n")
}
