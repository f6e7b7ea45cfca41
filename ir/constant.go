package ir

import (
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"

	"github.com/gogpu/tir/types"
)

// Constant is an immutable literal value.
//
// Scalar constants keep their bit pattern in Bits: bools as 0/1, i32 as the
// two's complement pattern, f32 as IEEE single bits and f16 as IEEE half
// bits. Composite constants keep their per-element constants. A Null
// constant is the zero value of a type that has no scalar elements list
// (structs and arrays).
type Constant struct {
	usages

	typ      types.Type
	Bits     uint32
	Elements []*Constant
	Null     bool

	index int
}

// Type implements Value.
func (c *Constant) Type() types.Type { return c.typ }

// IsComposite reports whether c is built from element constants.
func (c *Constant) IsComposite() bool { return c.Elements != nil }

// Bool returns the value of a bool constant.
func (c *Constant) Bool() bool { return c.Bits != 0 }

// I32 returns the value of an i32 constant.
func (c *Constant) I32() int32 { return int32(c.Bits) }

// U32 returns the value of a u32 constant.
func (c *Constant) U32() uint32 { return c.Bits }

// F32 returns the value of an f32 or f16 constant as float32.
func (c *Constant) F32() float32 {
	if s, ok := c.typ.(*types.Scalar); ok && s.Kind == types.KindF16 {
		return float16.Frombits(uint16(c.Bits)).Float32()
	}
	return math.Float32frombits(c.Bits)
}

// IsZero reports whether every element of c is zero.
func (c *Constant) IsZero() bool {
	if c.Null {
		return true
	}
	if c.IsComposite() {
		for _, e := range c.Elements {
			if !e.IsZero() {
				return false
			}
		}
		return true
	}
	return c.Bits == 0
}

// String returns the WGSL spelling of the constant.
func (c *Constant) String() string {
	if c.Null {
		return c.typ.String() + "()"
	}
	if c.IsComposite() {
		var b strings.Builder
		b.WriteString(c.typ.String())
		b.WriteByte('(')
		for i, e := range c.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteByte(')')
		return b.String()
	}
	s, _ := c.typ.(*types.Scalar)
	if s == nil {
		return "?"
	}
	switch s.Kind {
	case types.KindBool:
		return strconv.FormatBool(c.Bool())
	case types.KindI32:
		return strconv.FormatInt(int64(c.I32()), 10) + "i"
	case types.KindU32:
		return strconv.FormatUint(uint64(c.U32()), 10) + "u"
	case types.KindF32:
		return FormatFloat(c.F32()) + "f"
	case types.KindF16:
		return FormatFloat(c.F32()) + "h"
	}
	return "?"
}

// FormatFloat formats a float so that it always reads back as a float
// literal: 1 becomes "1.0".
func FormatFloat(v float32) string {
	switch {
	case math.IsInf(float64(v), 1):
		return "inf"
	case math.IsInf(float64(v), -1):
		return "-inf"
	case math.IsNaN(float64(v)):
		return "nan"
	}
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ConstantTable deduplicates constants by type and bit pattern.
type ConstantTable struct {
	types  *types.Manager
	consts map[string]*Constant
	order  []*Constant
}

// NewConstantTable creates a constant table backed by the given type manager.
func NewConstantTable(tm *types.Manager) *ConstantTable {
	return &ConstantTable{
		types:  tm,
		consts: make(map[string]*Constant),
	}
}

// All returns the constants in creation order.
func (t *ConstantTable) All() []*Constant { return t.order }

// Count returns the number of unique constants.
func (t *ConstantTable) Count() int { return len(t.order) }

func (t *ConstantTable) get(c *Constant) *Constant {
	c.typ = t.types.Get(c.typ)

	var key strings.Builder
	key.WriteString(types.Key(c.typ))
	key.WriteByte('|')
	switch {
	case c.Null:
		key.WriteString("null")
	case c.IsComposite():
		for _, e := range c.Elements {
			key.WriteString(strconv.Itoa(e.index))
			key.WriteByte(',')
		}
	default:
		key.WriteString(strconv.FormatUint(uint64(c.Bits), 16))
	}

	k := key.String()
	if existing, ok := t.consts[k]; ok {
		return existing
	}
	c.index = len(t.order)
	t.consts[k] = c
	t.order = append(t.order, c)
	return c
}

// Bool returns a bool constant.
func (t *ConstantTable) Bool(v bool) *Constant {
	var bits uint32
	if v {
		bits = 1
	}
	return t.get(&Constant{typ: t.types.Bool(), Bits: bits})
}

// I32 returns an i32 constant.
func (t *ConstantTable) I32(v int32) *Constant {
	return t.get(&Constant{typ: t.types.I32(), Bits: uint32(v)})
}

// U32 returns a u32 constant.
func (t *ConstantTable) U32(v uint32) *Constant {
	return t.get(&Constant{typ: t.types.U32(), Bits: v})
}

// F32 returns an f32 constant.
func (t *ConstantTable) F32(v float32) *Constant {
	return t.get(&Constant{typ: t.types.F32(), Bits: math.Float32bits(v)})
}

// F16 returns an f16 constant, rounding v to the nearest half.
func (t *ConstantTable) F16(v float32) *Constant {
	return t.get(&Constant{typ: t.types.F16(), Bits: uint32(float16.Fromfloat32(v).Bits())})
}

// Scalar returns a scalar constant of type s with the given value, converting
// the value to the scalar kind.
func (t *ConstantTable) Scalar(s *types.Scalar, v float64) *Constant {
	switch s.Kind {
	case types.KindBool:
		return t.Bool(v != 0)
	case types.KindI32:
		return t.I32(int32(v))
	case types.KindU32:
		return t.U32(uint32(v))
	case types.KindF16:
		return t.F16(float32(v))
	}
	return t.F32(float32(v))
}

// Composite returns a composite constant of type typ.
func (t *ConstantTable) Composite(typ types.Type, elems ...*Constant) *Constant {
	e := make([]*Constant, len(elems))
	copy(e, elems)
	return t.get(&Constant{typ: typ, Elements: e})
}

// Splat returns a vector constant with every element equal to elem.
func (t *ConstantTable) Splat(v *types.Vector, elem *Constant) *Constant {
	elems := make([]*Constant, v.Width)
	for i := range elems {
		elems[i] = elem
	}
	return t.Composite(v, elems...)
}

// Zero returns the zero value of typ.
func (t *ConstantTable) Zero(typ types.Type) *Constant {
	switch typ := typ.(type) {
	case *types.Scalar:
		return t.get(&Constant{typ: typ})
	case *types.Vector:
		return t.Splat(typ, t.Zero(typ.Elem))
	case *types.Matrix:
		col := t.Zero(typ.ColumnType())
		elems := make([]*Constant, typ.Columns)
		for i := range elems {
			elems[i] = col
		}
		return t.Composite(typ, elems...)
	}
	return t.get(&Constant{typ: typ, Null: true})
}
