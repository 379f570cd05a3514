package bvh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Matches WGSL BVHNode
// struct BVHNode {
//    aabb_min : vec3<f32>, _pad0 : f32; (16)
//    aabb_max : vec3<f32>, _pad1 : f32; (16)
//    left : i32; (4)
//    right : i32; (4)
//    tri : i32; (4)
//    _pad2 : i32; (4)
// }; -> 48 bytes

const NodeByteSize = 48

func (n *Node) ToBytes() []byte {
	buf := make([]byte, NodeByteSize)

	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(n.Min.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(n.Min.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Min.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], 0)

	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Max.X()))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(n.Max.Y()))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(n.Max.Z()))
	binary.LittleEndian.PutUint32(buf[28:32], 0)

	binary.LittleEndian.PutUint32(buf[32:36], uint32(n.Left))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(n.Right))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(n.Triangle))
	binary.LittleEndian.PutUint32(buf[44:48], 0)

	return buf
}

// Serialize packs the flat node array for upload as a storage buffer.
// An empty tree still produces one placeholder node so the buffer binding
// is never zero sized; the placeholder is a leaf with Triangle = -1 and
// an inverted box, which no ray can hit.
func Serialize(nodes []Node) []byte {
	if len(nodes) == 0 {
		empty := Node{
			Min:      mgl32.Vec3{1, 1, 1},
			Max:      mgl32.Vec3{-1, -1, -1},
			Left:     -1,
			Right:    -1,
			Triangle: -1,
		}
		return empty.ToBytes()
	}

	out := make([]byte, 0, len(nodes)*NodeByteSize)
	for i := range nodes {
		out = append(out, nodes[i].ToBytes()...)
	}
	return out
}
