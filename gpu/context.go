// Package gpu implements the wgpu device surfaces behind the renderer: the
// cascade depth passes, the forward lighting pass and the debug readback.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/assets"
	"github.com/lumen3d/lumen/core"
)

// uniformStride is the per-draw slot size in dynamically offset uniform
// buffers. WebGPU requires dynamic offsets aligned to 256 bytes.
const uniformStride = 256

// vertexStride is position (3) plus normal (3), interleaved float32.
const vertexStride = 6 * 4

// clipCorrection remaps a GL-convention clip z in [-1, 1] to the [0, 1]
// range wgpu expects. Every projection-bearing matrix gets premultiplied by
// this before upload; the CPU-side math stays in GL convention throughout.
var clipCorrection = mgl32.Translate3D(0, 0, 0.5).Mul4(mgl32.Scale3D(1, 1, 0.5))

// meshBuffers is the device-side copy of one registered mesh, shared
// between the depth and forward pipelines.
type meshBuffers struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount uint32
}

// Context holds the device handles and the uploaded mesh buffers the render
// passes share.
type Context struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	meshes map[core.MeshID]*meshBuffers
}

func NewContext(device *wgpu.Device, queue *wgpu.Queue) *Context {
	return &Context{
		Device: device,
		Queue:  queue,
		meshes: make(map[core.MeshID]*meshBuffers),
	}
}

// UploadMesh creates the vertex and index buffers for one registered mesh.
// Normals are not stored in the registry; they are recomputed here by
// area-weighted accumulation over the index list.
func (c *Context) UploadMesh(id core.MeshID, asset *assets.MeshAsset) error {
	if _, ok := c.meshes[id]; ok {
		return nil
	}
	if len(asset.Positions) == 0 || len(asset.Indices) == 0 {
		return fmt.Errorf("mesh %q has no geometry", asset.Name)
	}

	vertexData := interleaveVertices(asset.Positions, asset.Indices)

	vbuf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    asset.Name + " VB",
		Contents: wgpu.ToBytes(vertexData),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("mesh %q vertex buffer: %w", asset.Name, err)
	}

	ibuf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    asset.Name + " IB",
		Contents: wgpu.ToBytes(asset.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vbuf.Release()
		return fmt.Errorf("mesh %q index buffer: %w", asset.Name, err)
	}

	c.meshes[id] = &meshBuffers{
		vertex:     vbuf,
		index:      ibuf,
		indexCount: uint32(len(asset.Indices)),
	}
	return nil
}

// UploadAll uploads every mesh in the registry that is not on the device
// yet.
func (c *Context) UploadAll(reg *assets.Registry) error {
	for _, id := range reg.IDs() {
		asset, _ := reg.Lookup(id)
		if err := c.UploadMesh(id, asset); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) mesh(id core.MeshID) (*meshBuffers, error) {
	m, ok := c.meshes[id]
	if !ok {
		return nil, fmt.Errorf("mesh %q not uploaded", id)
	}
	return m, nil
}

// Release frees every mesh buffer. The device itself belongs to the caller.
func (c *Context) Release() {
	for id, m := range c.meshes {
		m.vertex.Release()
		m.index.Release()
		delete(c.meshes, id)
	}
}

// interleaveVertices packs position and a smooth per-vertex normal into the
// layout both pipelines consume. Degenerate triangles contribute a zero
// cross product and drop out of the sum on their own.
func interleaveVertices(positions []mgl32.Vec3, indices []uint32) []float32 {
	normals := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		face := positions[b].Sub(positions[a]).Cross(positions[c].Sub(positions[a]))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}

	out := make([]float32, 0, len(positions)*6)
	for i, p := range positions {
		n := normals[i]
		if n.Len() > 1e-12 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		out = append(out, p.X(), p.Y(), p.Z(), n.X(), n.Y(), n.Z())
	}
	return out
}
