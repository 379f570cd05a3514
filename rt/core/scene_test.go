package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCollectRenderablesComposesTransforms(t *testing.T) {
	scene := NewScene()

	group := NewNode()
	group.Transform.Position = mgl32.Vec3{10, 0, 0}

	child := NewMeshNode(NewQuadMesh(), DefaultMaterial())
	child.Transform.Position = mgl32.Vec3{0, 5, 0}

	group.AddChild(child)
	scene.Add(group)

	renderables := scene.CollectRenderables()
	if len(renderables) != 1 {
		t.Fatalf("expected 1 renderable, got %d", len(renderables))
	}

	origin := renderables[0].World.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	want := mgl32.Vec3{10, 5, 0}
	if origin.Sub(want).Len() > 1e-5 {
		t.Errorf("composed transform: got %v, want %v", origin, want)
	}
}

func TestExtractBakesWorldSpace(t *testing.T) {
	scene := NewScene()
	node := NewMeshNode(NewQuadMesh(), DefaultMaterial())
	node.Transform.Position = mgl32.Vec3{0, 3, 0}
	node.Transform.Scale = mgl32.Vec3{2, 2, 2}
	scene.Add(node)

	geom := scene.Extract()
	if len(geom.Triangles) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(geom.Triangles))
	}
	if len(geom.Materials) != 1 {
		t.Fatalf("expected 1 material, got %d", len(geom.Materials))
	}

	for _, tri := range geom.Triangles {
		for _, p := range []mgl32.Vec3{tri.P0, tri.P1, tri.P2} {
			if p.Y() != 3 {
				t.Errorf("vertex not translated: %v", p)
			}
			if math.Abs(float64(p.X())) > 1.0001 || math.Abs(float64(p.Z())) > 1.0001 {
				t.Errorf("vertex not scaled into [-1,1]: %v", p)
			}
		}
		for _, n := range []mgl32.Vec3{tri.N0, tri.N1, tri.N2} {
			if n.Sub(mgl32.Vec3{0, 1, 0}).Len() > 1e-5 {
				t.Errorf("normal should survive uniform scale: %v", n)
			}
		}
	}
}

func TestExtractDeduplicatesMaterials(t *testing.T) {
	scene := NewScene()
	red := NewDiffuseMaterial(mgl32.Vec3{1, 0, 0})
	blue := NewDiffuseMaterial(mgl32.Vec3{0, 0, 1})

	scene.Add(NewMeshNode(NewQuadMesh(), red))
	scene.Add(NewMeshNode(NewQuadMesh(), red))
	scene.Add(NewMeshNode(NewQuadMesh(), blue))

	geom := scene.Extract()
	if len(geom.Materials) != 2 {
		t.Fatalf("expected 2 deduplicated materials, got %d", len(geom.Materials))
	}
	for _, tri := range geom.Triangles {
		if tri.Material < 0 || int(tri.Material) >= len(geom.Materials) {
			t.Errorf("material index %d out of range", tri.Material)
		}
	}
}

func TestIcosphereMesh(t *testing.T) {
	mesh := NewIcosphereMesh(2)

	if mesh.TriangleCount() != 20*4*4 {
		t.Fatalf("expected 320 triangles after 2 subdivisions, got %d", mesh.TriangleCount())
	}
	for i, p := range mesh.Positions {
		if math.Abs(float64(p.Len()-1)) > 1e-5 {
			t.Fatalf("vertex %d not on unit sphere: %v", i, p)
		}
		if mesh.Normals[i].Sub(p).Len() > 1e-6 {
			t.Fatalf("normal %d should equal position on unit sphere", i)
		}
	}
}

func TestCameraBasisFallbackUp(t *testing.T) {
	cam := NewCamera()
	cam.Forward = mgl32.Vec3{0, 1, 0} // parallel to world up

	right, up, forward := cam.Basis()
	for _, v := range []mgl32.Vec3{right, up, forward} {
		if math.Abs(float64(v.Len()-1)) > 1e-5 {
			t.Fatalf("basis vector not unit: %v", v)
		}
	}
	if math.Abs(float64(right.Dot(up))) > 1e-5 || math.Abs(float64(right.Dot(forward))) > 1e-5 {
		t.Error("basis is not orthogonal")
	}
	// With right = forward x up', up = right x forward, the triple
	// satisfies right x up = -forward.
	if right.Cross(up).Add(forward).Len() > 1e-5 {
		t.Errorf("basis is not right handed: %v", right.Cross(up))
	}
}
