package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is one scene graph entry. A node may carry a mesh; group nodes
// just carry a transform and children.
type Node struct {
	Id        AssetId
	Transform *Transform
	Mesh      *MeshData
	Material  Material
	Children  []*Node
}

func NewNode() *Node {
	return &Node{
		Id:        NewAssetId(),
		Transform: NewTransform(),
		Material:  DefaultMaterial(),
	}
}

func NewMeshNode(mesh *MeshData, material Material) *Node {
	n := NewNode()
	n.Mesh = mesh
	n.Material = material
	return n
}

func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

type Scene struct {
	Root *Node
}

func NewScene() *Scene {
	return &Scene{Root: NewNode()}
}

func (s *Scene) Add(node *Node) {
	s.Root.AddChild(node)
}

// Renderable is a flat mesh handle with its composed world transform,
// produced by one explicit graph walk. Downstream stages never touch the
// graph again.
type Renderable struct {
	Mesh     *MeshData
	Material Material
	World    mgl32.Mat4
}

// CollectRenderables walks the graph once, composing transforms along the
// way, and returns every mesh-carrying node as a flat handle list.
func (s *Scene) CollectRenderables() []Renderable {
	var out []Renderable
	if s.Root == nil {
		return out
	}

	type frame struct {
		node   *Node
		parent mgl32.Mat4
	}
	stack := []frame{{s.Root, mgl32.Ident4()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		world := f.parent.Mul4(f.node.Transform.ObjectToWorld())
		if f.node.Mesh != nil {
			out = append(out, Renderable{
				Mesh:     f.node.Mesh,
				Material: f.node.Material,
				World:    world,
			})
		}
		for _, c := range f.node.Children {
			stack = append(stack, frame{c, world})
		}
	}
	return out
}

// Geometry is the atomically built extraction result: world-space
// triangles plus the deduplicated material table they index into.
type Geometry struct {
	Triangles []Triangle
	Materials []Material
}

// Extract bakes every renderable's transform into world-space triangles.
// Identical materials collapse to one table entry.
func (s *Scene) Extract() *Geometry {
	geom := &Geometry{}
	matIndex := map[Material]int32{}

	for _, r := range s.CollectRenderables() {
		mi, ok := matIndex[r.Material]
		if !ok {
			mi = int32(len(geom.Materials))
			geom.Materials = append(geom.Materials, r.Material)
			matIndex[r.Material] = mi
		}

		normalMat := r.World.Mat3().Inv().Transpose()
		mesh := r.Mesh
		for i := 0; i+2 < len(mesh.Indices); i += 3 {
			i0, i1, i2 := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
			tri := Triangle{
				P0:       transformPoint(r.World, mesh.Positions[i0]),
				P1:       transformPoint(r.World, mesh.Positions[i1]),
				P2:       transformPoint(r.World, mesh.Positions[i2]),
				N0:       transformNormal(normalMat, mesh.Normals[i0]),
				N1:       transformNormal(normalMat, mesh.Normals[i1]),
				N2:       transformNormal(normalMat, mesh.Normals[i2]),
				Material: mi,
			}
			geom.Triangles = append(geom.Triangles, tri)
		}
	}
	return geom
}

func transformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func transformNormal(m mgl32.Mat3, n mgl32.Vec3) mgl32.Vec3 {
	out := m.Mul3x1(n)
	if out.Len() > 0 {
		return out.Normalize()
	}
	return out
}
