package shader

import "fmt"

// typeSizes maps every GLSL type tag with a static byte size to that size.
// Sizes are tightly packed component sizes, not std140 strides.
var typeSizes = func() map[string]uint32 {
	m := map[string]uint32{
		"bool":   4, // one 32-bit word in every block layout
		"int":    4,
		"uint":   4,
		"float":  4,
		"double": 8,
	}
	for n := uint32(2); n <= 4; n++ {
		m[fmt.Sprintf("vec%d", n)] = n * 4
		m[fmt.Sprintf("ivec%d", n)] = n * 4
		m[fmt.Sprintf("uvec%d", n)] = n * 4
		m[fmt.Sprintf("bvec%d", n)] = n * 4
		m[fmt.Sprintf("dvec%d", n)] = n * 8
		m[fmt.Sprintf("mat%d", n)] = n * n * 4
		for r := uint32(2); r <= 4; r++ {
			m[fmt.Sprintf("mat%dx%d", n, r)] = n * r * 4
		}
	}
	return m
}()

// TypeSize returns the byte size of a type tag. The second result is false
// for every tag without a static size (samplers, images, structs, void).
func TypeSize(tag string) (uint32, bool) {
	size, ok := typeSizes[tag]
	return size, ok
}

// ArraySize multiplies an element size by explicitly sized dimensions.
// Runtime sized or non-literal dimensions make the size unknown.
func ArraySize(elem uint32, dims []ArrayDim) (uint32, bool) {
	size := uint64(elem)
	for _, d := range dims {
		if !d.Sized || d.Size <= 0 {
			return 0, false
		}
		size *= uint64(d.Size)
		if size > uint64(^uint32(0)) {
			return 0, false
		}
	}
	return uint32(size), true
}
