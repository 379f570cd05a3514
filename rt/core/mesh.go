package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type AssetId string

func NewAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// MeshData is the plain data contract between scene graph and extraction:
// indexed triangle lists with per-vertex positions and normals in object
// space. Indices reference positions/normals in triples.
type MeshData struct {
	Id        AssetId
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

func NewMeshData(positions, normals []mgl32.Vec3, indices []uint32) *MeshData {
	return &MeshData{
		Id:        NewAssetId(),
		Positions: positions,
		Normals:   normals,
		Indices:   indices,
	}
}

// TriangleCount reports the number of complete index triples.
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle is one world-space triangle produced by extraction: three
// vertex positions, three vertex normals and a material table index.
type Triangle struct {
	P0, P1, P2 mgl32.Vec3
	N0, N1, N2 mgl32.Vec3
	Material   int32
}

func (t *Triangle) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	lo := mgl32.Vec3{
		min3(t.P0.X(), t.P1.X(), t.P2.X()),
		min3(t.P0.Y(), t.P1.Y(), t.P2.Y()),
		min3(t.P0.Z(), t.P1.Z(), t.P2.Z()),
	}
	hi := mgl32.Vec3{
		max3(t.P0.X(), t.P1.X(), t.P2.X()),
		max3(t.P0.Y(), t.P1.Y(), t.P2.Y()),
		max3(t.P0.Z(), t.P1.Z(), t.P2.Z()),
	}
	return lo, hi
}

func (t *Triangle) Centroid() mgl32.Vec3 {
	return t.P0.Add(t.P1).Add(t.P2).Mul(1.0 / 3.0)
}

func min3(a, b, c float32) float32 {
	return min(min(a, b), c)
}

func max3(a, b, c float32) float32 {
	return max(max(a, b), c)
}
