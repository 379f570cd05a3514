package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/bvh"
	"github.com/lumen3d/lumen/rt/core"
)

const (
	// Rays and triangles closer to degenerate than this are treated as
	// misses, never as errors.
	intersectEpsilon = 1e-6

	// DefaultMaxStackDepth bounds BVH traversal. Exceeding it degrades
	// silently: traversal stops descending and keeps the best hit so far.
	DefaultMaxStackDepth = 64
)

type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

type Hit struct {
	T        float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Material int32
}

// hitAABB is the slab test. Axes with a near-zero direction component
// are handled positionally: origin outside the slab rejects, otherwise
// the axis constrains nothing.
func hitAABB(r Ray, lo, hi mgl32.Vec3) bool {
	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))

	for axis := 0; axis < 3; axis++ {
		o := r.Origin[axis]
		d := r.Dir[axis]

		if d > -intersectEpsilon && d < intersectEpsilon {
			if o < lo[axis] || o > hi[axis] {
				return false
			}
			continue
		}

		inv := 1 / d
		t0 := (lo[axis] - o) * inv
		t1 := (hi[axis] - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
	}

	return tMax >= max(0, tMin)
}

// hitTriangle runs Moller-Trumbore against one triangle. Near-parallel
// configurations (|det| < epsilon) and t <= epsilon report a miss; the
// latter guards against self-intersection. The hit normal is the
// barycentric interpolation of the three vertex normals.
func hitTriangle(r Ray, tri *core.Triangle) (Hit, bool) {
	e1 := tri.P1.Sub(tri.P0)
	e2 := tri.P2.Sub(tri.P0)

	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det > -intersectEpsilon && det < intersectEpsilon {
		return Hit{}, false
	}

	invDet := 1 / det
	tv := r.Origin.Sub(tri.P0)
	u := tv.Dot(p) * invDet
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	q := tv.Cross(e1)
	v := r.Dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := e2.Dot(q) * invDet
	if t <= intersectEpsilon {
		return Hit{}, false
	}

	w := 1 - u - v
	normal := tri.N0.Mul(w).Add(tri.N1.Mul(u)).Add(tri.N2.Mul(v))
	if l := normal.Len(); l > 1e-6 {
		normal = normal.Mul(1 / l)
	}

	return Hit{
		T:        t,
		Point:    r.Origin.Add(r.Dir.Mul(t)),
		Normal:   normal,
		Material: tri.Material,
	}, true
}

// Intersector answers closest-hit queries against one immutable build
// of (triangles, BVH).
type Intersector struct {
	Triangles     []core.Triangle
	Nodes         []bvh.Node
	MaxStackDepth int
}

func NewIntersector(triangles []core.Triangle, nodes []bvh.Node) *Intersector {
	return &Intersector{
		Triangles:     triangles,
		Nodes:         nodes,
		MaxStackDepth: DefaultMaxStackDepth,
	}
}

// Intersect walks the BVH depth first with a bounded stack and returns
// the closest hit. An empty tree reports no hit. If a push would exceed
// the stack bound, traversal aborts and reports the best hit found so
// far rather than failing.
func (ix *Intersector) Intersect(r Ray) (Hit, bool) {
	best := Hit{T: float32(math.Inf(1))}
	found := false

	if len(ix.Nodes) == 0 {
		return best, false
	}

	depth := ix.MaxStackDepth
	if depth <= 0 {
		depth = DefaultMaxStackDepth
	}

	stack := make([]int32, 1, depth)
	stack[0] = 0

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &ix.Nodes[idx]

		if node.IsLeaf() {
			if node.Triangle < 0 || int(node.Triangle) >= len(ix.Triangles) {
				continue
			}
			if hit, ok := hitTriangle(r, &ix.Triangles[node.Triangle]); ok && hit.T < best.T {
				best = hit
				found = true
			}
			continue
		}

		for _, child := range [2]int32{node.Left, node.Right} {
			if child < 0 || int(child) >= len(ix.Nodes) {
				continue
			}
			c := &ix.Nodes[child]
			if !hitAABB(r, c.Min, c.Max) {
				continue
			}
			if len(stack) >= depth {
				// Stack exhausted: silent degrade, keep what we have.
				return best, found
			}
			stack = append(stack, child)
		}
	}

	return best, found
}
