// Package types defines the immutable shader type model.
//
// Types are deduplicated by structural identity: two structurally equal
// types have the same Key, and a Manager hands out one shared instance per
// Key, so interned types can be compared with ==.
package types

import (
	"strconv"
	"strings"
)

// Type is a shader type.
type Type interface {
	// String returns the WGSL spelling of the type.
	String() string

	typ()
}

// ScalarKind is the kind of a scalar type.
type ScalarKind uint8

const (
	KindBool ScalarKind = iota
	KindI32
	KindU32
	KindF32
	KindF16
)

// Void is the type of functions without a result.
type Void struct{}

func (*Void) typ()           {}
func (*Void) String() string { return "void" }

// Scalar is a bool, integer or floating point type.
type Scalar struct {
	Kind ScalarKind
}

func (*Scalar) typ() {}

func (s *Scalar) String() string {
	switch s.Kind {
	case KindBool:
		return "bool"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindF32:
		return "f32"
	case KindF16:
		return "f16"
	}
	return "scalar(" + strconv.Itoa(int(s.Kind)) + ")"
}

// Vector is a vector of 2, 3 or 4 scalars.
type Vector struct {
	Elem  *Scalar
	Width uint32
}

func (*Vector) typ() {}

func (v *Vector) String() string {
	return "vec" + strconv.FormatUint(uint64(v.Width), 10) + "<" + v.Elem.String() + ">"
}

// Matrix is a column-major matrix of floating point scalars.
type Matrix struct {
	Elem    *Scalar
	Columns uint32
	Rows    uint32
}

func (*Matrix) typ() {}

func (m *Matrix) String() string {
	return "mat" + strconv.FormatUint(uint64(m.Columns), 10) + "x" +
		strconv.FormatUint(uint64(m.Rows), 10) + "<" + m.Elem.String() + ">"
}

// ColumnType returns the vector type of one column.
func (m *Matrix) ColumnType() *Vector {
	return &Vector{Elem: m.Elem, Width: m.Rows}
}

// AddressSpace is a memory address space.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkgroup
	SpaceUniform
	SpaceStorage
	SpacePushConstant
	SpaceHandle
)

func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkgroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpacePushConstant:
		return "push_constant"
	case SpaceHandle:
		return "handle"
	}
	return "space(" + strconv.Itoa(int(s)) + ")"
}

// Access is the access mode of a pointer.
type Access uint8

const (
	ReadWrite Access = iota
	Read
	Write
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "read_write"
}

// Pointer is a pointer to a value of type Store in the given address space.
type Pointer struct {
	Store  Type
	Space  AddressSpace
	Access Access
}

func (*Pointer) typ() {}

func (p *Pointer) String() string {
	return "ptr<" + p.Space.String() + ", " + p.Store.String() + ", " + p.Access.String() + ">"
}

// StructMember is a member of a struct.
type StructMember struct {
	Name   string
	Type   Type
	Offset uint32
}

// Struct is a named structure type. Offsets, Size and Align are filled in by
// Manager.Struct.
type Struct struct {
	Name    string
	Members []StructMember
	Size    uint32
	Align   uint32
}

func (*Struct) typ()             {}
func (s *Struct) String() string { return s.Name }

// MemberIndex returns the index of the member with the given name.
func (s *Struct) MemberIndex(name string) (int, bool) {
	for i, m := range s.Members {
		if m.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Array is a fixed size or runtime sized array.
type Array struct {
	Elem   Type
	Count  uint32 // 0 for runtime-sized arrays
	Stride uint32
}

func (*Array) typ() {}

func (a *Array) String() string {
	if a.Count == 0 {
		return "array<" + a.Elem.String() + ">"
	}
	return "array<" + a.Elem.String() + ", " + strconv.FormatUint(uint64(a.Count), 10) + ">"
}

// IsRuntimeSized reports whether the array has no fixed element count.
func (a *Array) IsRuntimeSized() bool { return a.Count == 0 }

// Sampler is an opaque sampler handle.
type Sampler struct {
	Comparison bool
}

func (*Sampler) typ() {}

func (s *Sampler) String() string {
	if s.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

// TextureDim is the dimensionality of a texture.
type TextureDim uint8

const (
	Dim1D TextureDim = iota
	Dim2D
	Dim3D
	DimCube
)

// Texture is an opaque sampled texture handle.
type Texture struct {
	Dim     TextureDim
	Sampled *Scalar
}

func (*Texture) typ() {}

func (t *Texture) String() string {
	var dim string
	switch t.Dim {
	case Dim1D:
		dim = "1d"
	case Dim2D:
		dim = "2d"
	case Dim3D:
		dim = "3d"
	case DimCube:
		dim = "cube"
	}
	return "texture_" + dim + "<" + t.Sampled.String() + ">"
}

// Key returns a string that is equal for structurally equal types.
func Key(t Type) string {
	var b strings.Builder
	writeKey(&b, t)
	return b.String()
}

func writeKey(b *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		b.WriteString("nil")
	case *Void:
		b.WriteString("void")
	case *Scalar:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(int(t.Kind)))
	case *Vector:
		b.WriteString("v")
		b.WriteString(strconv.FormatUint(uint64(t.Width), 10))
		b.WriteByte(':')
		writeKey(b, t.Elem)
	case *Matrix:
		b.WriteString("m")
		b.WriteString(strconv.FormatUint(uint64(t.Columns), 10))
		b.WriteByte('x')
		b.WriteString(strconv.FormatUint(uint64(t.Rows), 10))
		b.WriteByte(':')
		writeKey(b, t.Elem)
	case *Pointer:
		b.WriteString("p")
		b.WriteString(strconv.Itoa(int(t.Space)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(t.Access)))
		b.WriteByte(':')
		writeKey(b, t.Store)
	case *Struct:
		// Structs are nominal in WGSL; the name is part of the identity.
		b.WriteString("struct ")
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, m := range t.Members {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(m.Name)
			b.WriteByte(':')
			writeKey(b, m.Type)
		}
		b.WriteByte('}')
	case *Array:
		b.WriteString("a")
		b.WriteString(strconv.FormatUint(uint64(t.Count), 10))
		b.WriteByte(':')
		writeKey(b, t.Elem)
	case *Sampler:
		if t.Comparison {
			b.WriteString("samplercmp")
		} else {
			b.WriteString("sampler")
		}
	case *Texture:
		b.WriteString("tex")
		b.WriteString(strconv.Itoa(int(t.Dim)))
		b.WriteByte(':')
		writeKey(b, t.Sampled)
	default:
		b.WriteString("unknown")
	}
}

// Equal reports whether two types are structurally equal.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	return Key(a) == Key(b)
}

// Class is the numeric class of a type's elements.
type Class uint8

const (
	ClassNone Class = iota
	ClassBool
	ClassSint
	ClassUint
	ClassFloat
)

func (c Class) String() string {
	switch c {
	case ClassBool:
		return "bool"
	case ClassSint:
		return "sint"
	case ClassUint:
		return "uint"
	case ClassFloat:
		return "float"
	}
	return "none"
}

// ElementOf returns the scalar element of a scalar, vector or matrix type,
// or nil.
func ElementOf(t Type) *Scalar {
	switch t := t.(type) {
	case *Scalar:
		return t
	case *Vector:
		return t.Elem
	case *Matrix:
		return t.Elem
	}
	return nil
}

// ClassOf returns the numeric class of t's elements.
func ClassOf(t Type) Class {
	s := ElementOf(t)
	if s == nil {
		return ClassNone
	}
	switch s.Kind {
	case KindBool:
		return ClassBool
	case KindI32:
		return ClassSint
	case KindU32:
		return ClassUint
	case KindF32, KindF16:
		return ClassFloat
	}
	return ClassNone
}

// IsFloat reports whether t is a float scalar, vector or matrix.
func IsFloat(t Type) bool { return ClassOf(t) == ClassFloat }

// IsSigned reports whether t is a signed integer scalar or vector.
func IsSigned(t Type) bool { return ClassOf(t) == ClassSint }

// BitWidth returns the width in bits of a scalar kind.
func BitWidth(k ScalarKind) uint32 {
	switch k {
	case KindF16:
		return 16
	case KindBool:
		return 1
	}
	return 32
}

// Deref returns the store type of a pointer, or t itself.
func Deref(t Type) Type {
	if p, ok := t.(*Pointer); ok {
		return p.Store
	}
	return t
}
