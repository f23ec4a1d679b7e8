package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShadowMapSet is one Depth32Float texture with a layer per cascade. The
// depth passes render into per-layer views; the forward pass samples the
// whole array through one comparison-filtered view. CopySrc stays on for
// the debug readback.
type ShadowMapSet struct {
	texture    *wgpu.Texture
	layerViews []*wgpu.TextureView
	arrayView  *wgpu.TextureView
	resolution int
}

func NewShadowMapSet(device *wgpu.Device, resolution, cascades int) (*ShadowMapSet, error) {
	if resolution <= 0 || cascades <= 0 {
		return nil, fmt.Errorf("shadow maps need a positive resolution and cascade count, got %dx%d", resolution, cascades)
	}

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "CascadeShadowMaps",
		Size: wgpu.Extent3D{
			Width:              uint32(resolution),
			Height:             uint32(resolution),
			DepthOrArrayLayers: uint32(cascades),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create shadow map texture: %w", err)
	}

	s := &ShadowMapSet{
		texture:    tex,
		resolution: resolution,
	}

	for i := 0; i < cascades; i++ {
		view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("CascadeShadowMap%d", i),
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("create cascade %d view: %w", i, err)
		}
		s.layerViews = append(s.layerViews, view)
	}

	arrayView, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "CascadeShadowMapArray",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(cascades),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("create array view: %w", err)
	}
	s.arrayView = arrayView

	return s, nil
}

// Cascades returns how many layers the set holds.
func (s *ShadowMapSet) Cascades() int {
	return len(s.layerViews)
}

// Resolution returns the texture edge in texels.
func (s *ShadowMapSet) Resolution() int {
	return s.resolution
}

// LayerView returns the render-attachment view for one cascade.
func (s *ShadowMapSet) LayerView(i int) *wgpu.TextureView {
	return s.layerViews[i]
}

// ArrayView returns the sampling view covering every cascade.
func (s *ShadowMapSet) ArrayView() *wgpu.TextureView {
	return s.arrayView
}

func (s *ShadowMapSet) Release() {
	if s.arrayView != nil {
		s.arrayView.Release()
		s.arrayView = nil
	}
	for _, v := range s.layerViews {
		v.Release()
	}
	s.layerViews = nil
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}
