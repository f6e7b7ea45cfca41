package types

// AlignAndSize returns the alignment and size in bytes of a host-shareable
// type, following the WGSL memory layout rules.
func AlignAndSize(t Type) (align, size uint32) {
	switch t := t.(type) {
	case *Scalar:
		if t.Kind == KindF16 {
			return 2, 2
		}
		return 4, 4
	case *Vector:
		return vectorAlignAndSize(t.Elem, t.Width)
	case *Matrix:
		align, colSize := vectorAlignAndSize(t.Elem, t.Rows)
		return align, t.Columns * roundUp(align, colSize)
	case *Array:
		align, size = AlignAndSize(t.Elem)
		stride := roundUp(align, size)
		if t.Count == 0 {
			return align, stride
		}
		return align, t.Count * stride
	case *Struct:
		return t.Align, t.Size
	case *Pointer, *Sampler, *Texture:
		return 4, 4
	}
	return 1, 0
}

// Stride returns the distance in bytes between consecutive elements of
// type t in an array.
func Stride(t Type) uint32 {
	align, size := AlignAndSize(t)
	return roundUp(align, size)
}

func vectorAlignAndSize(elem *Scalar, width uint32) (align, size uint32) {
	_, scalarSize := AlignAndSize(elem)
	size = scalarSize * width
	switch width {
	case 2:
		align = scalarSize * 2
	default:
		// vec3 is aligned like vec4.
		align = scalarSize * 4
	}
	return align, size
}

// roundUp rounds n up to a multiple of k.
func roundUp(k, n uint32) uint32 {
	if k == 0 {
		return n
	}
	return (n + k - 1) / k * k
}
