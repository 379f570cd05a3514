package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewQuadMesh builds a unit quad in the XZ plane with +Y normals,
// centered at the origin.
func NewQuadMesh() *MeshData {
	positions := []mgl32.Vec3{
		{-0.5, 0, -0.5},
		{0.5, 0, -0.5},
		{0.5, 0, 0.5},
		{-0.5, 0, 0.5},
	}
	normals := []mgl32.Vec3{
		{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0},
	}
	indices := []uint32{0, 2, 1, 0, 3, 2}
	return NewMeshData(positions, normals, indices)
}

// NewIcosphereMesh tessellates a unit sphere by subdividing an
// icosahedron. Normals point outward (equal to positions on a unit
// sphere), so shading is smooth.
func NewIcosphereMesh(subdivisions int) *MeshData {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)

	positions := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range positions {
		positions[i] = positions[i].Normalize()
	}

	indices := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	// Each subdivision replaces a triangle with four, splitting edges at
	// their midpoints projected back onto the sphere.
	for s := 0; s < subdivisions; s++ {
		midCache := map[[2]uint32]uint32{}
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if idx, ok := midCache[key]; ok {
				return idx
			}
			m := positions[a].Add(positions[b]).Mul(0.5).Normalize()
			positions = append(positions, m)
			idx := uint32(len(positions) - 1)
			midCache[key] = idx
			return idx
		}

		next := make([]uint32, 0, len(indices)*4)
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			ab := midpoint(a, b)
			bc := midpoint(b, c)
			ca := midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		indices = next
	}

	normals := make([]mgl32.Vec3, len(positions))
	copy(normals, positions)

	return NewMeshData(positions, normals, indices)
}
