package gpu

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"

	"github.com/ptyterm/ptyterm"
)

// CellMetrics is the font-derived pixel geometry every render command
// is positioned against.
type CellMetrics struct {
	CellW, CellH float32
	Baseline     float32
}

// FrameUniform is the per-frame uniform both pipeline passes share.
type FrameUniform struct {
	ScreenWidthPx, ScreenHeightPx float32
}

// vertex is a single (position, color, uv) vertex; backgrounds leave
// UV unused and glyph quads leave color as the resolved foreground.
type vertex struct {
	X, Y       float32
	R, G, B, A float32
	U, V       float32
}

// Renderer owns the GPU device/queue, the glyph atlas, and the
// persistent grow-only vertex buffers for the two render passes. It
// is owned exclusively by the UI activity, matching the concurrency
// discipline the rest of this module follows.
type Renderer struct {
	device hal.Device
	queue  hal.Queue

	atlas       *Atlas
	atlasTex    hal.Texture
	atlasView   hal.TextureView
	atlasDirty  bool

	bgVertBuf    hal.Buffer
	bgVertBufCap uint64
	glyphVertBuf hal.Buffer
	glyphVertBufCap uint64

	bindGroup hal.BindGroup
	metrics   CellMetrics
}

// NewRenderer creates a Renderer bound to device/queue, with an atlas
// backed by the given fallback font chain (primary monospace first).
func NewRenderer(device hal.Device, queue hal.Queue, fonts []Rasterizer, fontSize float32, metrics CellMetrics) *Renderer {
	return &Renderer{
		device:  device,
		queue:   queue,
		atlas:   NewAtlas(fonts, fontSize),
		metrics: metrics,
	}
}

// Resize is the hook for surface size changes. The renderer holds no
// surface-sized resources, so it changes nothing; the atlas is
// retained across resizes since glyph identity does not depend on
// surface size.
func (r *Renderer) Resize(widthPx, heightPx uint32) {
	// Surface-sized attachments are owned by the caller's swapchain in
	// this module's scope; Resize exists so callers have a single
	// hook to invalidate any surface-dependent state without having
	// to know the renderer never caches any.
	_ = widthPx
	_ = heightPx
}

// SetFontSize invalidates and rebuilds the atlas at a new size.
func (r *Renderer) SetFontSize(size float32) {
	r.atlas.SetSize(size)
	r.atlasDirty = true
}

// RenderFrame draws a full draw list in two passes: opaque background
// quads for every command whose bg differs from the palette default,
// then textured glyph quads for every non-space command. view is the
// target color attachment (a surface view or an offscreen resolve
// texture's view).
func (r *Renderer) RenderFrame(cmds []ptyterm.RenderCommand, defaultBg ptyterm.Rgb, widthPx, heightPx uint32, view hal.TextureView) error {
	if err := r.ensureAtlasTexture(); err != nil {
		return fmt.Errorf("ensure atlas texture: %w", err)
	}

	bgVerts := r.buildBackgroundVertices(cmds, defaultBg, widthPx, heightPx)
	glyphVerts := r.buildGlyphVertices(cmds, widthPx, heightPx)

	if err := r.uploadVertices(bgVerts, glyphVerts); err != nil {
		return fmt.Errorf("upload vertices: %w", err)
	}

	return r.encodeAndSubmit(view, len(bgVerts), len(glyphVerts))
}

// buildBackgroundVertices emits one quad (6 vertices, two triangles)
// per render command whose background differs from the screen
// default; wide cells are twice as wide.
func (r *Renderer) buildBackgroundVertices(cmds []ptyterm.RenderCommand, defaultBg ptyterm.Rgb, widthPx, heightPx uint32) []vertex {
	var verts []vertex
	for _, cmd := range cmds {
		if cmd.Bg == defaultBg {
			continue
		}
		w := r.metrics.CellW
		if cmd.Flags.Has(ptyterm.FlagWideChar) {
			w *= 2
		}
		x0 := float32(cmd.Col) * r.metrics.CellW
		y0 := float32(cmd.Row) * r.metrics.CellH
		verts = append(verts, quadVertices(x0, y0, w, r.metrics.CellH, colorOf(cmd.Bg), widthPx, heightPx, 0, 0, 0, 0)...)
	}
	return verts
}

// buildGlyphVertices emits one textured quad per render command whose
// character is non-space, sized and positioned from the atlas entry's
// metrics and UV rectangle.
func (r *Renderer) buildGlyphVertices(cmds []ptyterm.RenderCommand, widthPx, heightPx uint32) []vertex {
	var verts []vertex
	for _, cmd := range cmds {
		if cmd.Character == ' ' || cmd.Character == 0 {
			continue
		}
		entry := r.atlas.Lookup(GlyphKey{Char: cmd.Character, Size: r.atlas.fontSize})
		x0 := float32(cmd.Col)*r.metrics.CellW + entry.OffsetX
		y0 := float32(cmd.Row)*r.metrics.CellH + r.metrics.Baseline - entry.OffsetY
		verts = append(verts, quadVertices(
			x0, y0, float32(entry.PixelW), float32(entry.PixelH),
			colorOf(cmd.Fg), widthPx, heightPx,
			entry.U0, entry.V0, entry.U1, entry.V1,
		)...)
	}
	return verts
}

func colorOf(c ptyterm.Rgb) [4]float32 {
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1}
}

// quadVertices builds two triangles covering the pixel rectangle
// (x0,y0,w,h), converting to clip space via x = 2*px/W - 1,
// y = 1 - 2*py/H, with the given solid color and UV rectangle (a
// zero UV rectangle is ignored by the background pass's shader).
func quadVertices(x0, y0, w, h float32, color [4]float32, widthPx, heightPx uint32, u0, v0, u1, v1 float32) []vertex {
	toClipX := func(px float32) float32 { return 2*px/float32(widthPx) - 1 }
	toClipY := func(py float32) float32 { return 1 - 2*py/float32(heightPx) }

	x1, y1 := x0+w, y0+h
	corners := [4][2]float32{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	uvs := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}

	mk := func(i int) vertex {
		return vertex{
			X: toClipX(corners[i][0]), Y: toClipY(corners[i][1]),
			R: color[0], G: color[1], B: color[2], A: color[3],
			U: uvs[i][0], V: uvs[i][1],
		}
	}
	// two triangles: 0-1-2, 0-2-3
	return []vertex{mk(0), mk(1), mk(2), mk(0), mk(2), mk(3)}
}

func (r *Renderer) ensureAtlasTexture() error {
	pixels, size := r.atlas.Pixels()
	if r.atlasTex != nil && !r.atlasDirty {
		return nil
	}
	if r.atlasTex != nil {
		r.device.DestroyTextureView(r.atlasView)
		r.device.DestroyTexture(r.atlasTex)
	}

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "glyph_atlas",
		Size:          hal.Extent3D{Width: uint32(size), Height: uint32(size), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        types.TextureFormatR8Unorm,
		Usage:         types.TextureUsageTextureBinding | types.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture: %w", err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "glyph_atlas_view"})
	if err != nil {
		return fmt.Errorf("create atlas view: %w", err)
	}
	r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex},
		pixels,
		&hal.ImageDataLayout{BytesPerRow: uint32(size)},
		&hal.Extent3D{Width: uint32(size), Height: uint32(size), DepthOrArrayLayers: 1},
	)

	r.atlasTex = tex
	r.atlasView = view
	r.atlasDirty = false
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	return nil
}

func (r *Renderer) uploadVertices(bgVerts, glyphVerts []vertex) error {
	bgBytes := vertexBytes(bgVerts)
	if err := r.ensureVertexBuffer(&r.bgVertBuf, &r.bgVertBufCap, "background_verts", bgBytes); err != nil {
		return err
	}
	glyphBytes := vertexBytes(glyphVerts)
	return r.ensureVertexBuffer(&r.glyphVertBuf, &r.glyphVertBufCap, "glyph_verts", glyphBytes)
}

// ensureVertexBuffer grows the buffer backing *buf only when data
// exceeds its current capacity, matching the grow-only discipline
// the rest of this module's GPU paths follow.
func (r *Renderer) ensureVertexBuffer(buf *hal.Buffer, cap *uint64, label string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	needed := uint64(len(data))
	if *buf == nil || *cap < needed {
		if *buf != nil {
			r.device.DestroyBuffer(*buf)
		}
		allocSize := needed * 2
		newBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  allocSize,
			Usage: types.BufferUsageVertex | types.BufferUsageCopyDst,
		})
		if err != nil {
			*buf = nil
			*cap = 0
			return fmt.Errorf("create %s buffer: %w", label, err)
		}
		*buf = newBuf
		*cap = allocSize
	}
	r.queue.WriteBuffer(*buf, 0, data)
	return nil
}

func vertexBytes(verts []vertex) []byte {
	out := make([]byte, 0, len(verts)*32)
	for _, v := range verts {
		out = appendFloat32(out, v.X, v.Y, v.R, v.G, v.B, v.A, v.U, v.V)
	}
	return out
}

func appendFloat32(buf []byte, vals ...float32) []byte {
	for _, f := range vals {
		bits := math.Float32bits(f)
		buf = append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return buf
}

func (r *Renderer) encodeAndSubmit(view hal.TextureView, bgVertCount, glyphVertCount int) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "unified_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     types.LoadOpClear,
			StoreOp:    types.StoreOpStore,
			ClearValue: types.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})

	if bgVertCount > 0 {
		r.recordBackgroundPass(rp, bgVertCount)
	}
	if glyphVertCount > 0 {
		r.recordGlyphPass(rp, glyphVertCount)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer cmdBuf.Destroy()

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if _, err := r.device.Wait(fence, 1, 2*time.Second); err != nil {
		return fmt.Errorf("wait for fence: %w", err)
	}
	return nil
}

// recordBackgroundPass issues the solid-color vertex-passthrough draw
// for pass 1's background quads.
func (r *Renderer) recordBackgroundPass(rp hal.RenderPassEncoder, vertCount int) {
	rp.SetVertexBuffer(0, r.bgVertBuf, 0)
	rp.Draw(uint32(vertCount), 1, 0, 0)
}

// recordGlyphPass binds the atlas and issues the textured-quad draw
// for pass 2's glyphs; the fragment shader samples the atlas red
// channel as alpha and outputs vec4(fg.rgb, alpha).
func (r *Renderer) recordGlyphPass(rp hal.RenderPassEncoder, vertCount int) {
	rp.SetBindGroup(0, r.bindGroup, nil)
	rp.SetVertexBuffer(0, r.glyphVertBuf, 0)
	rp.Draw(uint32(vertCount), 1, 0, 0)
}
