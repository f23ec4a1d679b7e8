package assets

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/lumen3d/lumen/core"
)

// LoadGLTF imports the triangle geometry of a glTF/GLB file and registers
// it as one mesh. Only positions and indices are read; materials, normals
// and animation belong to other passes.
func (r *Registry) LoadGLTF(path string) (core.MeshID, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open gltf: %w", err)
	}

	var positions []mgl32.Vec3
	var indices []uint32

	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}

			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			prims, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return "", fmt.Errorf("mesh %q positions: %w", m.Name, err)
			}

			base := uint32(len(positions))
			positions = append(positions, prims...)

			if prim.Indices != nil {
				idx, err := readIndexAccessor(doc, *prim.Indices)
				if err != nil {
					return "", fmt.Errorf("mesh %q indices: %w", m.Name, err)
				}
				for _, i := range idx {
					indices = append(indices, base+i)
				}
			} else {
				for i := range prims {
					indices = append(indices, base+uint32(i))
				}
			}
		}
	}

	if len(positions) == 0 {
		return "", fmt.Errorf("%s: no triangle geometry", path)
	}

	return r.Register(filepath.Base(path), positions, indices), nil
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]mgl32.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 || accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", accessor.Type, accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = 12
	}

	out := make([]mgl32.Vec3, accessor.Count)
	for i := range out {
		offset := start + i*stride
		for j := 0; j < 3; j++ {
			out[i][j] = readFloat32(data[offset+j*4:])
		}
	}
	return out, nil
}

func readIndexAccessor(doc *gltf.Document, accessorIdx int) ([]uint32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	data, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, accessor.Count)
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		if stride == 0 {
			stride = 1
		}
		for i := range out {
			out[i] = uint32(data[start+i*stride])
		}
	case gltf.ComponentUshort:
		if stride == 0 {
			stride = 2
		}
		for i := range out {
			o := start + i*stride
			out[i] = uint32(data[o]) | uint32(data[o+1])<<8
		}
	case gltf.ComponentUint:
		if stride == 0 {
			stride = 4
		}
		for i := range out {
			o := start + i*stride
			out[i] = uint32(data[o]) | uint32(data[o+1])<<8 | uint32(data[o+2])<<16 | uint32(data[o+3])<<24
		}
	default:
		return nil, fmt.Errorf("unsupported index component type %v", accessor.ComponentType)
	}
	return out, nil
}

// accessorBytes resolves an accessor to its backing bytes. Only embedded
// (GLB) buffers are supported; external .bin sidecars are not.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor) (data []byte, start, stride int, err error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}

	view := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[view.Buffer]
	if buffer.URI != "" {
		return nil, 0, 0, fmt.Errorf("external buffers not supported")
	}
	if buffer.Data == nil {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}

	return buffer.Data, view.ByteOffset + accessor.ByteOffset, view.ByteStride, nil
}

func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
