package bvh

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/core"
)

// Node is one flat BVH entry. Leaves hold a triangle index and
// Left = Right = -1; internal nodes hold child indices and Triangle = -1.
// Node 0 is always the root.
type Node struct {
	Min      mgl32.Vec3
	Max      mgl32.Vec3
	Left     int32
	Right    int32
	Triangle int32
}

func (n *Node) IsLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

type item struct {
	min      mgl32.Vec3
	max      mgl32.Vec3
	centroid mgl32.Vec3
	index    int32
}

// treeNode is the intermediate binary tree before breadth-first
// flattening assigns stable array indices.
type treeNode struct {
	min, max    mgl32.Vec3
	left, right *treeNode
	triangle    int32
}

// Build converts world-space triangles into a flat BVH using a full-sweep
// surface area heuristic. Empty input yields an empty array; traversal
// treats that as "no hit".
func Build(triangles []core.Triangle) []Node {
	if len(triangles) == 0 {
		return nil
	}

	items := make([]item, len(triangles))
	for i := range triangles {
		lo, hi := triangles[i].Bounds()
		items[i] = item{
			min:      lo,
			max:      hi,
			centroid: lo.Add(hi).Mul(0.5),
			index:    int32(i),
		}
	}

	root := buildTree(items)
	return flatten(root)
}

func buildTree(items []item) *treeNode {
	node := &treeNode{triangle: -1}
	node.min, node.max = bounds(items)

	if len(items) == 1 {
		node.triangle = items[0].index
		return node
	}

	axis := longestAxis(node.min, node.max)
	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})

	// Two elements split directly into two leaves; no cost search.
	mid := 1
	if len(items) > 2 {
		mid = bestSplit(items)
	}

	node.left = buildTree(items[:mid])
	node.right = buildTree(items[mid:])
	return node
}

// bestSplit sweeps every partition point along the sorted axis and picks
// the minimum of area(L)*|L| + area(R)*|R|. Prefix/suffix boxes keep the
// sweep linear.
func bestSplit(items []item) int {
	n := len(items)

	leftArea := make([]float32, n)
	lo := items[0].min
	hi := items[0].max
	for i := 0; i < n-1; i++ {
		lo = vecMin(lo, items[i].min)
		hi = vecMax(hi, items[i].max)
		leftArea[i] = surfaceArea(lo, hi)
	}

	rightArea := make([]float32, n)
	lo = items[n-1].min
	hi = items[n-1].max
	for i := n - 1; i > 0; i-- {
		lo = vecMin(lo, items[i].min)
		hi = vecMax(hi, items[i].max)
		rightArea[i] = surfaceArea(lo, hi)
	}

	best := 1
	bestCost := float32(math.Inf(1))
	for i := 1; i < n; i++ {
		cost := leftArea[i-1]*float32(i) + rightArea[i]*float32(n-i)
		if cost < bestCost {
			bestCost = cost
			best = i
		}
	}
	return best
}

// flatten lays the tree out breadth first so siblings are adjacent and
// the root lands at index 0.
func flatten(root *treeNode) []Node {
	var nodes []Node

	type entry struct {
		tn     *treeNode
		parent int32 // flat index of parent, -1 for root
		isLeft bool
	}

	queue := []entry{{root, -1, false}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		idx := int32(len(nodes))
		nodes = append(nodes, Node{
			Min:      e.tn.min,
			Max:      e.tn.max,
			Left:     -1,
			Right:    -1,
			Triangle: e.tn.triangle,
		})

		if e.parent >= 0 {
			if e.isLeft {
				nodes[e.parent].Left = idx
			} else {
				nodes[e.parent].Right = idx
			}
		}

		if e.tn.left != nil {
			queue = append(queue, entry{e.tn.left, idx, true})
		}
		if e.tn.right != nil {
			queue = append(queue, entry{e.tn.right, idx, false})
		}
	}
	return nodes
}

func bounds(items []item) (mgl32.Vec3, mgl32.Vec3) {
	lo := items[0].min
	hi := items[0].max
	for _, it := range items[1:] {
		lo = vecMin(lo, it.min)
		hi = vecMax(hi, it.max)
	}
	return lo, hi
}

func longestAxis(lo, hi mgl32.Vec3) int {
	extent := hi.Sub(lo)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	return axis
}

// surfaceArea is the AABB area 2*(xy+xz+yz) used by the SAH cost.
func surfaceArea(lo, hi mgl32.Vec3) float32 {
	d := hi.Sub(lo)
	return 2 * (d.X()*d.Y() + d.X()*d.Z() + d.Y()*d.Z())
}

func vecMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a.X(), b.X()), min(a.Y(), b.Y()), min(a.Z(), b.Z())}
}

func vecMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a.X(), b.X()), max(a.Y(), b.Y()), max(a.Z(), b.Z())}
}
