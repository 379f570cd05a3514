package trace

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/bvh"
	"github.com/lumen3d/lumen/rt/core"
)

func bruteForce(tris []core.Triangle, r Ray) (Hit, bool) {
	best := Hit{T: float32(math.Inf(1))}
	found := false
	for i := range tris {
		if hit, ok := hitTriangle(r, &tris[i]); ok && hit.T < best.T {
			best = hit
			found = true
		}
	}
	return best, found
}

func randomTriangle(rng *rand.Rand) core.Triangle {
	p := func() mgl32.Vec3 {
		return mgl32.Vec3{
			rng.Float32()*10 - 5,
			rng.Float32()*10 - 5,
			rng.Float32()*10 - 5,
		}
	}
	tri := core.Triangle{P0: p(), P1: p(), P2: p()}
	n := tri.P1.Sub(tri.P0).Cross(tri.P2.Sub(tri.P0))
	if n.Len() > 1e-6 {
		n = n.Normalize()
	}
	tri.N0, tri.N1, tri.N2 = n, n, n
	return tri
}

func TestHitAABB(t *testing.T) {
	lo := mgl32.Vec3{-1, -1, -1}
	hi := mgl32.Vec3{1, 1, 1}

	cases := []struct {
		name string
		ray  Ray
		want bool
	}{
		{"through center", Ray{mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 1}}, true},
		{"pointing away", Ray{mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, -1}}, false},
		{"origin inside", Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}}, true},
		{"misses side", Ray{mgl32.Vec3{5, 0, -5}, mgl32.Vec3{0, 0, 1}}, false},
		{"parallel inside slab", Ray{mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 1}}, true},
		{"parallel outside slab", Ray{mgl32.Vec3{0, 5, -5}, mgl32.Vec3{0, 0, 1}}, false},
		{"grazing a face", Ray{mgl32.Vec3{-5, 1, 0}, mgl32.Vec3{1, 0, 0}}, true},
		{"behind the box", Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}}, false},
	}

	for _, tc := range cases {
		if got := hitAABB(tc.ray, lo, hi); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHitTriangle(t *testing.T) {
	tri := core.Triangle{
		P0: mgl32.Vec3{-1, -1, 0},
		P1: mgl32.Vec3{1, -1, 0},
		P2: mgl32.Vec3{0, 1, 0},
		N0: mgl32.Vec3{0, 0, 1},
		N1: mgl32.Vec3{0, 0, 1},
		N2: mgl32.Vec3{0, 0, 1},
	}

	hit, ok := hitTriangle(Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}}, &tri)
	if !ok {
		t.Fatal("expected hit through the centroid region")
	}
	if math.Abs(float64(hit.T-5)) > 1e-4 {
		t.Errorf("expected t=5, got %f", hit.T)
	}
	if hit.Normal.Sub(mgl32.Vec3{0, 0, 1}).Len() > 1e-5 {
		t.Errorf("unexpected normal %v", hit.Normal)
	}

	// Outside the barycentric range.
	if _, ok := hitTriangle(Ray{mgl32.Vec3{2, 2, 5}, mgl32.Vec3{0, 0, -1}}, &tri); ok {
		t.Error("ray outside the triangle should miss")
	}

	// Ray exactly in the triangle's plane: near-zero determinant, miss.
	if _, ok := hitTriangle(Ray{mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}}, &tri); ok {
		t.Error("in-plane ray should be treated as a miss")
	}

	// Zero-area triangle: silent miss, not an error.
	degenerate := tri
	degenerate.P2 = degenerate.P0
	if _, ok := hitTriangle(Ray{mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}}, &degenerate); ok {
		t.Error("degenerate triangle should miss")
	}

	// Hits behind the origin are rejected.
	if _, ok := hitTriangle(Ray{mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, -1}}, &tri); ok {
		t.Error("triangle behind the ray should miss")
	}
}

func TestTraversalMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for config := 0; config < 120; config++ {
		count := 1 + rng.Intn(40)
		tris := make([]core.Triangle, count)
		for i := range tris {
			tris[i] = randomTriangle(rng)
		}
		ix := NewIntersector(tris, bvh.Build(tris))

		for rayIdx := 0; rayIdx < 8; rayIdx++ {
			dir := mgl32.Vec3{
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
			}
			if dir.Len() < 1e-3 {
				dir = mgl32.Vec3{0, 0, 1}
			}
			r := Ray{
				Origin: mgl32.Vec3{rng.Float32()*20 - 10, rng.Float32()*20 - 10, rng.Float32()*20 - 10},
				Dir:    dir.Normalize(),
			}

			got, gotOk := ix.Intersect(r)
			want, wantOk := bruteForce(tris, r)

			if gotOk != wantOk {
				t.Fatalf("config %d ray %d: hit=%v, brute force hit=%v", config, rayIdx, gotOk, wantOk)
			}
			if !gotOk {
				continue
			}
			if math.Abs(float64(got.T-want.T)) > 1e-4 {
				t.Fatalf("config %d ray %d: t=%f, brute force t=%f", config, rayIdx, got.T, want.T)
			}
			if got.Point.Sub(want.Point).Len() > 1e-3 {
				t.Fatalf("config %d ray %d: point %v vs %v", config, rayIdx, got.Point, want.Point)
			}
			if got.Normal.Sub(want.Normal).Len() > 1e-3 {
				t.Fatalf("config %d ray %d: normal %v vs %v", config, rayIdx, got.Normal, want.Normal)
			}
		}
	}
}

func TestEmptySceneNeverHits(t *testing.T) {
	ix := NewIntersector(nil, nil)
	if _, ok := ix.Intersect(Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}}); ok {
		t.Error("empty scene should report no hit")
	}
}

// axisChain builds a deliberately unbalanced scene: triangles lined up
// along one axis so median splits still produce a deep traversal front.
func axisChain(n int) []core.Triangle {
	tris := make([]core.Triangle, n)
	for i := range tris {
		x := float32(i) * 2
		tris[i] = core.Triangle{
			P0: mgl32.Vec3{x - 0.5, -0.5, 0},
			P1: mgl32.Vec3{x + 0.5, -0.5, 0},
			P2: mgl32.Vec3{x, 0.5, 0},
			N0: mgl32.Vec3{0, 0, 1},
			N1: mgl32.Vec3{0, 0, 1},
			N2: mgl32.Vec3{0, 0, 1},
		}
	}
	return tris
}

func TestStackOverflowDegradesSilently(t *testing.T) {
	tris := axisChain(256)
	nodes := bvh.Build(tris)

	// A ray along the chain axis intersects every node box, maximizing
	// stack pressure.
	r := Ray{
		Origin: mgl32.Vec3{-10, 0, 0.01},
		Dir:    mgl32.Vec3{1, 0, 0},
	}

	tiny := NewIntersector(tris, nodes)
	tiny.MaxStackDepth = 2
	roomy := NewIntersector(tris, nodes)
	roomy.MaxStackDepth = 512

	tinyHit, tinyOk := tiny.Intersect(r) // must terminate, not crash
	roomyHit, roomyOk := roomy.Intersect(r)

	if !roomyOk {
		t.Fatal("full traversal should find a hit")
	}
	// The degraded result may be empty, but a reported hit can never be
	// better (closer) than the exhaustive one.
	if tinyOk && tinyHit.T < roomyHit.T-1e-4 {
		t.Errorf("degraded traversal returned an impossible hit: %f < %f", tinyHit.T, roomyHit.T)
	}
}
