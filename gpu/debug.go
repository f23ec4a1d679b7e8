package gpu

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	xdraw "golang.org/x/image/draw"
)

// debugDumpEdge caps the written image size; full-resolution cascades are
// downscaled to keep the dumps diffable.
const debugDumpEdge = 512

// DumpShadowMap reads one cascade layer back from the device and writes it
// as a grayscale PNG, near depths dark. Blocking; debugging only.
func DumpShadowMap(ctx *Context, maps *ShadowMapSet, layer int, path string) error {
	if layer < 0 || layer >= maps.Cascades() {
		return fmt.Errorf("layer %d out of range, have %d cascades", layer, maps.Cascades())
	}

	res := maps.Resolution()
	width := uint32(res)
	// Buffer copies need 256-byte row alignment.
	bytesPerRow := (width*4 + 255) &^ 255
	size := uint64(bytesPerRow) * uint64(res)

	buf, err := ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ShadowMapReadback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("readback buffer: %w", err)
	}
	defer buf.Release()

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("readback encoder: %w", err)
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  maps.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: uint32(layer)},
			Aspect:   wgpu.TextureAspectDepthOnly,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: uint32(res),
			},
		},
		&wgpu.Extent3D{Width: width, Height: uint32(res), DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("readback command: %w", err)
	}
	ctx.Queue.Submit(cmd)

	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	if err != nil {
		return fmt.Errorf("map readback buffer: %w", err)
	}
	ctx.Device.Poll(true, nil)
	if status := <-done; status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("readback map failed: %v", status)
	}
	data := buf.GetMappedRange(0, uint(size))

	img := image.NewGray(image.Rect(0, 0, res, res))
	for y := 0; y < res; y++ {
		row := uint64(y) * uint64(bytesPerRow)
		for x := 0; x < res; x++ {
			o := row + uint64(x)*4
			bits := uint32(data[o]) | uint32(data[o+1])<<8 | uint32(data[o+2])<<16 | uint32(data[o+3])<<24
			d := math.Float32frombits(bits)
			if d < 0 {
				d = 0
			}
			if d > 1 {
				d = 1
			}
			img.SetGray(x, y, color.Gray{Y: uint8(d * 255)})
		}
	}
	buf.Unmap()

	var out image.Image = img
	if res > debugDumpEdge {
		small := image.NewGray(image.Rect(0, 0, debugDumpEdge, debugDumpEdge))
		xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		out = small
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, out); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return nil
}
