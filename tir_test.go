package tir

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tir/diag"
	"github.com/gogpu/tir/internal/samples"
	"github.com/gogpu/tir/spirv"
	"github.com/gogpu/tir/wgsl"
)

func TestCompileAllSamples(t *testing.T) {
	opts := DefaultOptions()
	opts.Targets = TargetAll

	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			res, err := Compile(context.Background(), s.Build(), opts)
			require.NoError(t, err, "diagnostics: %v", res.Diagnostics)

			require.GreaterOrEqual(t, len(res.SPIRV), 20)
			assert.Equal(t, uint32(spirv.MagicNumber), binary.LittleEndian.Uint32(res.SPIRV))

			assert.NotEmpty(t, res.WGSL)
			assert.Contains(t, res.IR, "%")
			assert.NotNil(t, res.Module)
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Targets = TargetAll

	a, err := Compile(context.Background(), samples.WhileLoop(), opts)
	require.NoError(t, err)
	b, err := Compile(context.Background(), samples.WhileLoop(), opts)
	require.NoError(t, err)

	assert.Equal(t, a.SPIRV, b.SPIRV)
	assert.Equal(t, a.WGSL, b.WGSL)
	assert.Equal(t, a.IR, b.IR)
}

func TestCompileTargets(t *testing.T) {
	opts := DefaultOptions()
	opts.Targets = TargetWGSL

	res, err := Compile(context.Background(), samples.ForLoop(), opts)
	require.NoError(t, err)

	assert.Nil(t, res.SPIRV)
	assert.Empty(t, res.IR)
	assert.Contains(t, res.WGSL, "for(var i : i32 = 0i; (i < 5i); i = (i + 1i)) { }")
}

func TestCompileLowerError(t *testing.T) {
	ast := &wgsl.Module{Functions: []*wgsl.FunctionDecl{
		samples.Fn("f", nil, nil, &wgsl.ContinueStmt{}),
	}}

	res, err := Compile(context.Background(), ast, DefaultOptions())
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.Module)
	assert.True(t, res.Diagnostics.ContainsErrors())
}

func TestCompileGenerateError(t *testing.T) {
	v4 := samples.Vec(samples.F32, 4)
	fs := samples.Fn("fs", v4, []*wgsl.Parameter{samples.Param("c", v4)},
		samples.Return(samples.Construct(v4)),
	)
	fs.Attributes = []wgsl.Attribute{samples.Attr("fragment")}
	fs.ReturnAttrs = []wgsl.Attribute{samples.Attr("location", 0)}

	opts := DefaultOptions()
	opts.Targets = TargetAll

	res, err := Compile(context.Background(), &wgsl.Module{Functions: []*wgsl.FunctionDecl{fs}}, opts)
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.NotNil(t, res.Module)

	require.Equal(t, 1, res.Diagnostics.Count(diag.InternalError), "diagnostics: %v", res.Diagnostics)
	assert.Contains(t, res.Diagnostics[0].Message, "without builtin or location")

	assert.Nil(t, res.SPIRV)
	assert.Empty(t, res.WGSL)
	assert.Empty(t, res.IR)
}

func TestTargets(t *testing.T) {
	for _, name := range []string{"spirv", "wgsl", "ir"} {
		tg, err := ParseTarget(name)
		require.NoError(t, err)
		assert.Equal(t, name, tg.String())
	}

	tg, err := ParseTarget("all")
	require.NoError(t, err)
	assert.Equal(t, "spirv+wgsl+ir", tg.String())

	_, err = ParseTarget("hlsl")
	assert.Error(t, err)

	assert.Equal(t, "none", Target(0).String())
}
