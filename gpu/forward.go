package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/shaders"
	"github.com/lumen3d/lumen/shadow"
)

// sceneUniforms matches SceneUniforms in the forward WGSL, including its
// padding. One upload per frame.
type sceneUniforms struct {
	View         mgl32.Mat4
	Proj         mgl32.Mat4
	CascadeVP    [shaders.MaxCascades]mgl32.Mat4
	CascadeFar   mgl32.Vec4
	LightDir     mgl32.Vec4
	LightColor   mgl32.Vec4
	CascadeCount uint32
	ShadowBias   float32
	_            [2]float32
}

// modelUniforms matches ModelUniforms in the forward WGSL. One slot per
// draw, dynamically offset.
type modelUniforms struct {
	World mgl32.Mat4
	Color mgl32.Vec4
}

var (
	baseColor     = mgl32.Vec4{0.72, 0.72, 0.75, 1}
	selectedColor = mgl32.Vec4{0.95, 0.55, 0.15, 1}
)

// ForwardPass shades the view-culled entities with the directional light
// and the cascade shadow maps.
type ForwardPass struct {
	ctx  *Context
	maps *ShadowMapSet
	bias float32

	pipeline *wgpu.RenderPipeline
	sceneBGL *wgpu.BindGroupLayout
	modelBGL *wgpu.BindGroupLayout

	sceneBuf *wgpu.Buffer
	sceneBG  *wgpu.BindGroup
	sampler  *wgpu.Sampler

	modelBuf *wgpu.Buffer
	modelBG  *wgpu.BindGroup
	capacity int

	depthTex  *wgpu.Texture
	depthView *wgpu.TextureView
	width     uint32
	height    uint32
}

func NewForwardPass(ctx *Context, maps *ShadowMapSet, surfaceFormat wgpu.TextureFormat, width, height uint32, bias float32) (*ForwardPass, error) {
	f := &ForwardPass{ctx: ctx, maps: maps, bias: bias}

	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ForwardShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ForwardWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("forward shader: %w", err)
	}
	defer module.Release()

	f.sceneBGL, err = ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ForwardSceneBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(unsafe.Sizeof(sceneUniforms{})),
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeComparison,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scene bind group layout: %w", err)
	}

	f.modelBGL, err = ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ForwardModelBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   uint64(unsafe.Sizeof(modelUniforms{})),
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("model bind group layout: %w", err)
	}

	layout, err := ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{f.sceneBGL, f.modelBGL},
	})
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("forward pipeline layout: %w", err)
	}
	defer layout.Release()

	f.pipeline, err = ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ForwardPipeline",
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
						{
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         12,
							ShaderLocation: 1,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
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
		f.Release()
		return nil, fmt.Errorf("forward pipeline: %w", err)
	}

	f.sceneBuf, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SceneUniforms",
		Size:  uint64(unsafe.Sizeof(sceneUniforms{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("scene uniform buffer: %w", err)
	}

	f.sampler, err = ctx.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "ShadowComparisonSampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLessEqual,
		MaxAnisotropy: 1,
	})
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("comparison sampler: %w", err)
	}

	f.sceneBG, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ForwardSceneBG",
		Layout: f.sceneBGL,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  f.sceneBuf,
				Size:    uint64(unsafe.Sizeof(sceneUniforms{})),
			},
			{
				Binding:     1,
				TextureView: maps.ArrayView(),
			},
			{
				Binding: 2,
				Sampler: f.sampler,
			},
		},
	})
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("scene bind group: %w", err)
	}

	if err := f.Resize(width, height); err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}

// Resize recreates the main depth buffer to match the surface.
func (f *ForwardPass) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if f.depthTex != nil && width == f.width && height == f.height {
		return nil
	}
	if f.depthView != nil {
		f.depthView.Release()
		f.depthView = nil
	}
	if f.depthTex != nil {
		f.depthTex.Release()
		f.depthTex = nil
	}

	tex, err := f.ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "MainDepth",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("main depth texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("main depth view: %w", err)
	}

	f.depthTex = tex
	f.depthView = view
	f.width = width
	f.height = height
	return nil
}

// Render encodes the lighting pass over the visible entities. The cascade
// matrices and the projection get the clip-space correction here; the rest
// of the pipeline computes in GL convention.
func (f *ForwardPass) Render(encoder *wgpu.CommandEncoder, target *wgpu.TextureView, view, proj mgl32.Mat4, cascades []shadow.CascadeUniform, light core.DirectionalLight, visible []*core.Entity) error {
	if len(cascades) > shaders.MaxCascades {
		return fmt.Errorf("%d cascades exceed the shader's %d slots", len(cascades), shaders.MaxCascades)
	}

	scene := sceneUniforms{
		View:         view,
		Proj:         clipCorrection.Mul4(proj),
		CascadeCount: uint32(len(cascades)),
		ShadowBias:   f.bias,
	}
	for i, c := range cascades {
		scene.CascadeVP[i] = clipCorrection.Mul4(c.LightViewProj)
		scene.CascadeFar[i] = c.FarPlane
	}
	dir := light.Normalized()
	scene.LightDir = mgl32.Vec4{dir.X(), dir.Y(), dir.Z(), 0}
	scene.LightColor = mgl32.Vec4{light.Color[0], light.Color[1], light.Color[2], light.Intensity}
	f.ctx.Queue.WriteBuffer(f.sceneBuf, 0, wgpu.ToBytes([]sceneUniforms{scene}))

	if err := f.ensureCapacity(len(visible)); err != nil {
		return err
	}
	if len(visible) > 0 {
		staging := make([]byte, len(visible)*uniformStride)
		for i, e := range visible {
			color := baseColor
			if e.Selected {
				color = selectedColor
			}
			u := modelUniforms{World: e.WorldMatrix(), Color: color}
			copy(staging[i*uniformStride:], wgpu.ToBytes([]modelUniforms{u}))
		}
		f.ctx.Queue.WriteBuffer(f.modelBuf, 0, staging)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ForwardPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.05, G: 0.07, B: 0.1, A: 1},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            f.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, f.sceneBG, nil)
	for i, e := range visible {
		m, err := f.ctx.mesh(e.Mesh)
		if err != nil {
			pass.End()
			return err
		}
		pass.SetBindGroup(1, f.modelBG, []uint32{uint32(i * uniformStride)})
		pass.SetVertexBuffer(0, m.vertex, 0, m.vertex.GetSize())
		pass.SetIndexBuffer(m.index, wgpu.IndexFormatUint32, 0, m.index.GetSize())
		pass.DrawIndexed(m.indexCount, 1, 0, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("end forward pass: %w", err)
	}
	return nil
}

func (f *ForwardPass) ensureCapacity(draws int) error {
	if draws <= f.capacity && f.modelBuf != nil {
		return nil
	}
	capacity := f.capacity * 2
	if capacity < 64 {
		capacity = 64
	}
	for capacity < draws {
		capacity *= 2
	}

	if f.modelBG != nil {
		f.modelBG.Release()
		f.modelBG = nil
	}
	if f.modelBuf != nil {
		f.modelBuf.Release()
		f.modelBuf = nil
	}

	buf, err := f.ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ModelUniforms",
		Size:  uint64(capacity * uniformStride),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("model uniform buffer: %w", err)
	}

	bg, err := f.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ForwardModelBG",
		Layout: f.modelBGL,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Size:    uint64(unsafe.Sizeof(modelUniforms{})),
			},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("model bind group: %w", err)
	}

	f.modelBuf = buf
	f.modelBG = bg
	f.capacity = capacity
	return nil
}

func (f *ForwardPass) Release() {
	if f.modelBG != nil {
		f.modelBG.Release()
	}
	if f.modelBuf != nil {
		f.modelBuf.Release()
	}
	if f.sceneBG != nil {
		f.sceneBG.Release()
	}
	if f.sampler != nil {
		f.sampler.Release()
	}
	if f.sceneBuf != nil {
		f.sceneBuf.Release()
	}
	if f.depthView != nil {
		f.depthView.Release()
	}
	if f.depthTex != nil {
		f.depthTex.Release()
	}
	if f.pipeline != nil {
		f.pipeline.Release()
	}
	if f.modelBGL != nil {
		f.modelBGL.Release()
	}
	if f.sceneBGL != nil {
		f.sceneBGL.Release()
	}
}
