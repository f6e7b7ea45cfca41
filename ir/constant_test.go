package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/tir/types"
)

func TestConstantDeduplication(t *testing.T) {
	m := NewModule()
	c := m.Constants

	assert.Same(t, c.I32(5), c.I32(5))
	assert.Same(t, c.F32(1.5), c.F32(1.5))
	assert.NotSame(t, c.I32(5), c.U32(5))

	v1 := c.Composite(&types.Vector{Elem: &types.Scalar{Kind: types.KindF32}, Width: 3}, c.F32(1), c.F32(2), c.F32(3))
	v2 := c.Composite(m.Types.Vec(m.Types.F32(), 3), c.F32(1), c.F32(2), c.F32(3))
	assert.Same(t, v1, v2)
	assert.Same(t, m.Types.Vec(m.Types.F32(), 3), v1.Type())
}

func TestConstantValues(t *testing.T) {
	m := NewModule()
	c := m.Constants

	assert.Equal(t, int32(-7), c.I32(-7).I32())
	assert.Equal(t, uint32(7), c.U32(7).U32())
	assert.True(t, c.Bool(true).Bool())
	assert.Equal(t, float32(0.5), c.F16(0.5).F32())
	assert.Equal(t, uint32(0x3800), c.F16(0.5).Bits)
}

func TestConstantString(t *testing.T) {
	m := NewModule()
	c := m.Constants

	for _, tc := range []struct {
		c    *Constant
		want string
	}{
		{c.I32(5), "5i"},
		{c.I32(-3), "-3i"},
		{c.U32(5), "5u"},
		{c.F32(1), "1.0f"},
		{c.F32(0.25), "0.25f"},
		{c.F16(1), "1.0h"},
		{c.Bool(false), "false"},
		{c.Splat(m.Types.Vec(m.Types.I32(), 2), c.I32(0)), "vec2<i32>(0i, 0i)"},
	} {
		assert.Equal(t, tc.want, tc.c.String())
	}
}

func TestZero(t *testing.T) {
	m := NewModule()
	c := m.Constants

	assert.Same(t, c.I32(0), c.Zero(m.Types.I32()))
	assert.True(t, c.Zero(m.Types.Vec(m.Types.F32(), 4)).IsZero())

	s := m.Types.Struct("S", []types.StructMember{{Name: "a", Type: m.Types.F32()}})
	z := c.Zero(s)
	assert.True(t, z.Null)
	assert.Equal(t, "S()", z.String())
}
