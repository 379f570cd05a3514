package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/lumen3d/lumen/rt/bvh"
	"github.com/lumen3d/lumen/rt/env"
	"github.com/lumen3d/lumen/rt/trace"
)

const (
	// HeadroomScene keeps small scene edits from recreating buffers
	// (and bind groups) every frame.
	HeadroomScene = 1024 * 1024
)

// BufferManager owns every GPU buffer the path tracing passes bind.
// Buffers grow in place when the scene outgrows them; growing returns
// true so the caller knows bind groups must be rebuilt.
type BufferManager struct {
	Device *wgpu.Device

	ParamsBuf   *wgpu.Buffer
	TriangleBuf *wgpu.Buffer
	BVHNodesBuf *wgpu.Buffer
	MaterialBuf *wgpu.Buffer

	EnvInfoBuf   *wgpu.Buffer
	EnvPixelsBuf *wgpu.Buffer
	EnvCDFBuf    *wgpu.Buffer

	// One linear RGBA sample image per pass and the running average,
	// both vec4 per pixel.
	SampleBuf *wgpu.Buffer
	AccumBuf  *wgpu.Buffer

	SceneBindGroup  *wgpu.BindGroup
	TargetBindGroup *wgpu.BindGroup
	AccumBindGroup  *wgpu.BindGroup
	BlitBindGroup   *wgpu.BindGroup
}

func NewBufferManager(device *wgpu.Device) *BufferManager {
	return &BufferManager{Device: device}
}

func (m *BufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}

		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		*buf = newBuf

		if len(data) > 0 {
			m.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true
	}

	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false
}

// UpdateScene uploads triangles, materials and BVH nodes as one atomic
// scene build. Empty scenes still bind valid placeholder buffers.
func (m *BufferManager) UpdateScene(data *trace.SceneData) bool {
	recreated := false

	triData := SerializeTriangles(data.Triangles)
	if len(triData) == 0 {
		triData = make([]byte, TriangleByteSize)
	}
	if m.ensureBuffer("TriangleBuf", &m.TriangleBuf, triData, wgpu.BufferUsageStorage, HeadroomScene) {
		recreated = true
	}

	nodeData := bvh.Serialize(data.Nodes)
	if m.ensureBuffer("BVHNodesBuf", &m.BVHNodesBuf, nodeData, wgpu.BufferUsageStorage, HeadroomScene) {
		recreated = true
	}

	matData := SerializeMaterials(data.Materials)
	if len(matData) == 0 {
		matData = make([]byte, MaterialByteSize)
	}
	if m.ensureBuffer("MaterialBuf", &m.MaterialBuf, matData, wgpu.BufferUsageStorage, 0) {
		recreated = true
	}

	return recreated
}

// UpdateParams writes the per-frame render params uniform.
func (m *BufferManager) UpdateParams(p Params) {
	if m.ParamsBuf == nil {
		var err error
		m.ParamsBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "ParamsUB",
			Size:  ParamsByteSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
	}
	m.Device.GetQueue().WriteBuffer(m.ParamsBuf, 0, p.ToBytes())
}

// UpdateEnvironment uploads the equirect radiance pixels and the
// marginal/conditional CDF tables. A nil map binds 1x1 placeholders;
// the params uniform's hasEnv flag keeps the shader from reading them.
func (m *BufferManager) UpdateEnvironment(em *env.Map) bool {
	width, height := 1, 1
	pixData := make([]byte, 16)
	cdfData := make([]byte, 16)
	if em != nil {
		width, height = em.Width, em.Height
		pixData = em.PixelBytes()
		cdfData = em.CDFBytes()
	}

	info := make([]byte, 16)
	putU32(info[0:], uint32(width))
	putU32(info[4:], uint32(height))

	recreated := false
	if m.ensureBuffer("EnvInfoUB", &m.EnvInfoBuf, info, wgpu.BufferUsageUniform, 0) {
		recreated = true
	}
	if m.ensureBuffer("EnvPixelsBuf", &m.EnvPixelsBuf, pixData, wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	if m.ensureBuffer("EnvCDFBuf", &m.EnvCDFBuf, cdfData, wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	return recreated
}

// ResizeTargets sizes the sample and accumulation images for the
// render resolution. The accumulation contents are undefined after a
// resize; the caller resets frame counting anyway.
func (m *BufferManager) ResizeTargets(width, height uint32) bool {
	size := make([]byte, width*height*16)

	recreated := false
	if m.ensureBuffer("SampleBuf", &m.SampleBuf, size, wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	if m.ensureBuffer("AccumBuf", &m.AccumBuf, size, wgpu.BufferUsageStorage, 0) {
		recreated = true
	}
	return recreated
}

// CreateBindGroups rebuilds every bind group against the given
// pipelines. Must be called after any ensureBuffer recreation.
func (m *BufferManager) CreateBindGroups(raytrace, accumulate *wgpu.ComputePipeline, blit *wgpu.RenderPipeline) {
	var err error

	m.SceneBindGroup, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: raytrace.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: m.TriangleBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: m.BVHNodesBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: m.MaterialBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: m.EnvInfoBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: m.EnvPixelsBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: m.EnvCDFBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}

	m.TargetBindGroup, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: raytrace.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.SampleBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}

	m.AccumBindGroup, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: accumulate.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: m.SampleBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: m.AccumBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}

	m.BlitBindGroup, err = m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: blit.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: m.AccumBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
}

// Release frees every owned buffer.
func (m *BufferManager) Release() {
	for _, b := range []*wgpu.Buffer{
		m.ParamsBuf, m.TriangleBuf, m.BVHNodesBuf, m.MaterialBuf,
		m.EnvInfoBuf, m.EnvPixelsBuf, m.EnvCDFBuf,
		m.SampleBuf, m.AccumBuf,
	} {
		if b != nil {
			b.Release()
		}
	}
}
