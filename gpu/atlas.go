// Package gpu implements the glyph atlas and two-pass renderer that
// turns a draw list of ptyterm.RenderCommand values into pixels on a
// GPU surface.
package gpu

// Rasterizer produces a glyph bitmap for a rune at a given pixel
// size. A real implementation wraps a font library; tests use a stub.
type Rasterizer interface {
	// Rasterize returns an 8-bit alpha bitmap (width*height bytes,
	// row-major) for ch at size, plus its advance width and whether
	// the font could represent ch at all.
	Rasterize(ch rune, size float32) (bitmap []byte, width, height int, advance float32, ok bool)
}

// GlyphKey identifies one atlas entry.
type GlyphKey struct {
	Char   rune
	Size   float32
	Bold   bool
	Italic bool
}

// GlyphEntry is a packed atlas entry: the rectangle it occupies in
// the atlas texture, in UV (0..1) and pixel space, plus layout
// metrics needed to position the glyph quad.
type GlyphEntry struct {
	U0, V0, U1, V1 float32
	PixelW, PixelH int
	OffsetX        float32
	OffsetY        float32
	Advance        float32
}

// shelf is one horizontal strip of the atlas texture that glyphs are
// packed into left-to-right; a new shelf is started when a glyph is
// taller than the current shelf's remaining rows allow reuse of.
type shelf struct {
	y, height int
	nextX     int
}

// Atlas is a lazily-populated, shelf-packed glyph texture cache keyed
// by (rune, size, weight, italic). A glyph's pixel rectangle never
// moves once packed (growth only rescales the stored UVs); the whole
// atlas is rebuilt when the font size changes. It is not
// safe for concurrent use — callers keep it behind the same
// exclusive-owner discipline as the rest of the GPU layer (see the
// concurrency model this package's caller follows).
type Atlas struct {
	size       int // current square texture dimension in pixels
	pixels     []byte
	entries    map[GlyphKey]GlyphEntry
	shelves    []shelf
	fonts      []Rasterizer // fallback chain, primary first
	fontSize   float32
}

// DefaultAtlasSize is the initial square texture dimension; the atlas
// doubles when a shelf cannot fit a new glyph.
const DefaultAtlasSize = 256

// NewAtlas creates an empty atlas backed by the given fallback font
// chain (primary monospace first, then CJK/symbol fallbacks) at the
// given pixel size.
func NewAtlas(fonts []Rasterizer, fontSize float32) *Atlas {
	a := &Atlas{
		size:     DefaultAtlasSize,
		entries:  make(map[GlyphKey]GlyphEntry),
		fonts:    fonts,
		fontSize: fontSize,
	}
	a.pixels = make([]byte, a.size*a.size)
	return a
}

// SetSize changes the font size, invalidating the atlas wholesale:
// glyph identity is otherwise immutable, so only a size change forces
// a rebuild.
func (a *Atlas) SetSize(fontSize float32) {
	if fontSize == a.fontSize {
		return
	}
	a.fontSize = fontSize
	a.size = DefaultAtlasSize
	a.pixels = make([]byte, a.size*a.size)
	a.entries = make(map[GlyphKey]GlyphEntry)
	a.shelves = nil
}

// Pixels returns the current atlas texture's CPU-side bitmap and its
// square dimension, for upload to the GPU texture.
func (a *Atlas) Pixels() ([]byte, int) {
	return a.pixels, a.size
}

// Lookup returns the packed entry for key, rasterizing and packing it
// on first reference (a cache miss). Unresolvable glyphs (absent from
// every font in the fallback chain) return a box-drawing replacement
// entry instead of failing.
func (a *Atlas) Lookup(key GlyphKey) GlyphEntry {
	if e, ok := a.entries[key]; ok {
		return e
	}
	e := a.rasterizeAndPack(key)
	a.entries[key] = e
	return e
}

func (a *Atlas) rasterizeAndPack(key GlyphKey) GlyphEntry {
	for _, font := range a.fonts {
		bitmap, w, h, advance, ok := font.Rasterize(key.Char, key.Size)
		if !ok {
			continue
		}
		return a.pack(bitmap, w, h, advance)
	}
	return a.packReplacement(key.Size)
}

// pack finds room for a w x h bitmap via shelf packing, growing the
// atlas (doubling) if no shelf has room, and copies the bitmap's
// bytes into the backing pixel buffer.
func (a *Atlas) pack(bitmap []byte, w, h int, advance float32) GlyphEntry {
	x, y, ok := a.allocate(w, h)
	if !ok {
		a.grow()
		x, y, ok = a.allocate(w, h)
		if !ok {
			// A single glyph wider/taller than a doubled atlas is
			// pathological; fail closed with a zero-size entry
			// rather than looping forever.
			return GlyphEntry{}
		}
	}

	for row := 0; row < h; row++ {
		srcStart := row * w
		dstStart := (y+row)*a.size + x
		copy(a.pixels[dstStart:dstStart+w], bitmap[srcStart:srcStart+w])
	}

	return GlyphEntry{
		U0: float32(x) / float32(a.size),
		V0: float32(y) / float32(a.size),
		U1: float32(x+w) / float32(a.size),
		V1: float32(y+h) / float32(a.size),
		PixelW: w, PixelH: h,
		Advance: advance,
	}
}

func (a *Atlas) allocate(w, h int) (x, y int, ok bool) {
	for i := range a.shelves {
		s := &a.shelves[i]
		if h <= s.height && s.nextX+w <= a.size {
			x, y = s.nextX, s.y
			s.nextX += w
			return x, y, true
		}
	}
	lastY := 0
	if n := len(a.shelves); n > 0 {
		lastY = a.shelves[n-1].y + a.shelves[n-1].height
	}
	if lastY+h > a.size || w > a.size {
		return 0, 0, false
	}
	a.shelves = append(a.shelves, shelf{y: lastY, height: h, nextX: w})
	return 0, lastY, true
}

func (a *Atlas) grow() {
	newSize := a.size * 2
	newPixels := make([]byte, newSize*newSize)
	for row := 0; row < a.size; row++ {
		copy(newPixels[row*newSize:row*newSize+a.size], a.pixels[row*a.size:(row+1)*a.size])
	}
	a.size = newSize
	a.pixels = newPixels
	// Packed glyphs keep their pixel positions in the top-left of the
	// grown texture, so only their normalized UVs are rescaled; the
	// shelves stay valid and may now extend across the wider texture.
	for key, e := range a.entries {
		e.U0, e.V0, e.U1, e.V1 = e.U0/2, e.V0/2, e.U1/2, e.V1/2
		a.entries[key] = e
	}
}

// packReplacement packs a simple box-drawing replacement glyph (a
// filled rectangle outline) for a rune no font in the chain could
// rasterize.
func (a *Atlas) packReplacement(size float32) GlyphEntry {
	w := int(size * 0.6)
	h := int(size)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	bitmap := make([]byte, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			onBorder := row == 0 || row == h-1 || col == 0 || col == w-1
			if onBorder {
				bitmap[row*w+col] = 0xFF
			}
		}
	}
	return a.pack(bitmap, w, h, size*0.6)
}
