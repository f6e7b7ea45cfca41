package types

// Manager interns types so that structurally equal types share one instance.
// A Manager belongs to a single compilation and is not safe for concurrent use.
type Manager struct {
	types map[string]Type
	order []Type
}

// NewManager creates an empty type manager.
func NewManager() *Manager {
	return &Manager{
		types: make(map[string]Type, 16),
		order: make([]Type, 0, 16),
	}
}

// Get returns the interned instance of t, registering t on first use.
// Composite types are interned bottom-up so that their elements are shared too.
func (m *Manager) Get(t Type) Type {
	switch t := t.(type) {
	case *Vector:
		t = &Vector{Elem: m.Get(t.Elem).(*Scalar), Width: t.Width}
		return m.intern(t)
	case *Matrix:
		t = &Matrix{Elem: m.Get(t.Elem).(*Scalar), Columns: t.Columns, Rows: t.Rows}
		return m.intern(t)
	case *Pointer:
		t = &Pointer{Store: m.Get(t.Store), Space: t.Space, Access: t.Access}
		return m.intern(t)
	case *Array:
		return m.array(t.Elem, t.Count)
	case *Struct:
		return m.Struct(t.Name, t.Members)
	case *Texture:
		t = &Texture{Dim: t.Dim, Sampled: m.Get(t.Sampled).(*Scalar)}
		return m.intern(t)
	}
	return m.intern(t)
}

func (m *Manager) intern(t Type) Type {
	key := Key(t)
	if existing, ok := m.types[key]; ok {
		return existing
	}
	m.types[key] = t
	m.order = append(m.order, t)
	return t
}

// All returns the interned types in registration order.
func (m *Manager) All() []Type {
	return m.order
}

// Count returns the number of unique types registered.
func (m *Manager) Count() int {
	return len(m.order)
}

// Void returns the void type.
func (m *Manager) Void() Type { return m.intern(&Void{}) }

// Bool returns the bool type.
func (m *Manager) Bool() *Scalar { return m.scalar(KindBool) }

// I32 returns the i32 type.
func (m *Manager) I32() *Scalar { return m.scalar(KindI32) }

// U32 returns the u32 type.
func (m *Manager) U32() *Scalar { return m.scalar(KindU32) }

// F32 returns the f32 type.
func (m *Manager) F32() *Scalar { return m.scalar(KindF32) }

// F16 returns the f16 type.
func (m *Manager) F16() *Scalar { return m.scalar(KindF16) }

func (m *Manager) scalar(k ScalarKind) *Scalar {
	return m.intern(&Scalar{Kind: k}).(*Scalar)
}

// Vec returns the vector type vecN<elem>.
func (m *Manager) Vec(elem *Scalar, n uint32) *Vector {
	return m.Get(&Vector{Elem: elem, Width: n}).(*Vector)
}

// Mat returns the matrix type matCxR<elem>.
func (m *Manager) Mat(elem *Scalar, cols, rows uint32) *Matrix {
	return m.Get(&Matrix{Elem: elem, Columns: cols, Rows: rows}).(*Matrix)
}

// Ptr returns a pointer type.
func (m *Manager) Ptr(space AddressSpace, store Type, access Access) *Pointer {
	return m.Get(&Pointer{Store: store, Space: space, Access: access}).(*Pointer)
}

// Array returns array<elem, count>.
func (m *Manager) Array(elem Type, count uint32) *Array {
	return m.array(elem, count)
}

// RuntimeArray returns array<elem>.
func (m *Manager) RuntimeArray(elem Type) *Array {
	return m.array(elem, 0)
}

func (m *Manager) array(elem Type, count uint32) *Array {
	elem = m.Get(elem)
	align, size := AlignAndSize(elem)
	return m.intern(&Array{Elem: elem, Count: count, Stride: roundUp(align, size)}).(*Array)
}

// Struct returns the struct type with the given members, computing the
// member offsets and the struct layout.
func (m *Manager) Struct(name string, members []StructMember) *Struct {
	laid := make([]StructMember, len(members))
	var offset, maxAlign uint32 = 0, 1
	for i, mem := range members {
		t := m.Get(mem.Type)
		align, size := AlignAndSize(t)
		offset = roundUp(align, offset)
		laid[i] = StructMember{Name: mem.Name, Type: t, Offset: offset}
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}
	s := &Struct{
		Name:    name,
		Members: laid,
		Size:    roundUp(maxAlign, offset),
		Align:   maxAlign,
	}
	return m.intern(s).(*Struct)
}

// Sampler returns a sampler type.
func (m *Manager) Sampler(comparison bool) *Sampler {
	return m.intern(&Sampler{Comparison: comparison}).(*Sampler)
}

// Texture returns a sampled texture type.
func (m *Manager) Texture(dim TextureDim, sampled *Scalar) *Texture {
	return m.Get(&Texture{Dim: dim, Sampled: sampled}).(*Texture)
}
