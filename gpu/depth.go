package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/shaders"
)

type depthDraw struct {
	mesh core.MeshID
	mvp  mgl32.Mat4
}

// DepthBackend runs the depth-only cascade passes. The Begin/Draw/End calls
// only record; Flush encodes everything into one command encoder. Recording
// first keeps the per-draw uniform slots distinct: a WriteBuffer to a region
// another queued draw reads would clobber it, since queue writes all land
// before the command buffer executes.
type DepthBackend struct {
	ctx  *Context
	maps *ShadowMapSet

	pipeline *wgpu.RenderPipeline
	bgl      *wgpu.BindGroupLayout

	uniformBuf *wgpu.Buffer
	bindGroup  *wgpu.BindGroup
	capacity   int

	cascades [][]depthDraw
	open     int
}

func NewDepthBackend(ctx *Context, maps *ShadowMapSet) (*DepthBackend, error) {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "DepthOnlyShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.DepthOnlyWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("depth shader: %w", err)
	}
	defer module.Release()

	bgl, err := ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "DepthUniformsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   64,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("depth bind group layout: %w", err)
	}

	layout, err := ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("depth pipeline layout: %w", err)
	}
	defer layout.Release()

	pipeline, err := ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "DepthOnlyPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: vertexStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         0,
							ShaderLocation: 0,
						},
					},
				},
			},
		},
		// No fragment stage: the depth attachment is the whole output.
		Fragment: nil,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("depth pipeline: %w", err)
	}

	return &DepthBackend{
		ctx:      ctx,
		maps:     maps,
		pipeline: pipeline,
		bgl:      bgl,
		open:     -1,
	}, nil
}

// BeginCascade opens recording for cascade i. Cascades run in order;
// cascade 0 starts a fresh frame, discarding anything a failed previous
// frame left behind.
func (b *DepthBackend) BeginCascade(i int) error {
	if i == 0 {
		b.cascades = b.cascades[:0]
		b.open = -1
	}
	if b.open >= 0 {
		return fmt.Errorf("cascade %d still open", b.open)
	}
	if i != len(b.cascades) {
		return fmt.Errorf("cascade %d out of order, expected %d", i, len(b.cascades))
	}
	if i >= b.maps.Cascades() {
		return fmt.Errorf("cascade %d exceeds the %d shadow map layers", i, b.maps.Cascades())
	}
	b.cascades = append(b.cascades, nil)
	b.open = i
	return nil
}

// DrawDepth records one caster for the open cascade.
func (b *DepthBackend) DrawDepth(mesh core.MeshID, mvp mgl32.Mat4) error {
	if b.open < 0 {
		return fmt.Errorf("draw outside a cascade pass")
	}
	if _, err := b.ctx.mesh(mesh); err != nil {
		return err
	}
	b.cascades[b.open] = append(b.cascades[b.open], depthDraw{mesh: mesh, mvp: mvp})
	return nil
}

// EndCascade closes recording for cascade i.
func (b *DepthBackend) EndCascade(i int) error {
	if b.open != i {
		return fmt.Errorf("end cascade %d but %d is open", i, b.open)
	}
	b.open = -1
	return nil
}

// Flush encodes every recorded cascade pass into the encoder and resets the
// recording. Each layer is cleared even when it received no draws, so a
// frame with fewer casters never samples stale depth.
func (b *DepthBackend) Flush(encoder *wgpu.CommandEncoder) error {
	if b.open >= 0 {
		return fmt.Errorf("cascade %d still open at flush", b.open)
	}

	total := 0
	for _, draws := range b.cascades {
		total += len(draws)
	}
	if err := b.ensureCapacity(total); err != nil {
		return err
	}

	if total > 0 {
		staging := make([]byte, total*uniformStride)
		slot := 0
		for _, draws := range b.cascades {
			for _, d := range draws {
				corrected := clipCorrection.Mul4(d.mvp)
				copy(staging[slot*uniformStride:], wgpu.ToBytes(corrected[:]))
				slot++
			}
		}
		b.ctx.Queue.WriteBuffer(b.uniformBuf, 0, staging)
	}

	slot := 0
	for i, draws := range b.cascades {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label:            fmt.Sprintf("CascadePass%d", i),
			ColorAttachments: nil,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            b.maps.LayerView(i),
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		})

		pass.SetPipeline(b.pipeline)
		for _, d := range draws {
			m, err := b.ctx.mesh(d.mesh)
			if err != nil {
				pass.End()
				return err
			}
			pass.SetBindGroup(0, b.bindGroup, []uint32{uint32(slot * uniformStride)})
			pass.SetVertexBuffer(0, m.vertex, 0, m.vertex.GetSize())
			pass.SetIndexBuffer(m.index, wgpu.IndexFormatUint32, 0, m.index.GetSize())
			pass.DrawIndexed(m.indexCount, 1, 0, 0, 0)
			slot++
		}

		if err := pass.End(); err != nil {
			return fmt.Errorf("end cascade pass %d: %w", i, err)
		}
	}

	b.cascades = b.cascades[:0]
	return nil
}

func (b *DepthBackend) ensureCapacity(draws int) error {
	if draws <= b.capacity && b.uniformBuf != nil {
		return nil
	}
	capacity := b.capacity * 2
	if capacity < 64 {
		capacity = 64
	}
	for capacity < draws {
		capacity *= 2
	}

	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.uniformBuf != nil {
		b.uniformBuf.Release()
		b.uniformBuf = nil
	}

	buf, err := b.ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "DepthUniforms",
		Size:  uint64(capacity * uniformStride),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("depth uniform buffer: %w", err)
	}

	bg, err := b.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "DepthUniformsBG",
		Layout: b.bgl,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    64,
			},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("depth bind group: %w", err)
	}

	b.uniformBuf = buf
	b.bindGroup = bg
	b.capacity = capacity
	return nil
}

func (b *DepthBackend) Release() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
	}
	if b.uniformBuf != nil {
		b.uniformBuf.Release()
	}
	if b.bgl != nil {
		b.bgl.Release()
	}
	if b.pipeline != nil {
		b.pipeline.Release()
	}
}
