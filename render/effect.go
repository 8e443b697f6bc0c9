package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ErrInvalidEffect is returned when an effect config cannot be validated,
// eg: a malformed hex color string
var ErrInvalidEffect = errors.New("invalid effect config")

// Effect is the closed set of visual effects that can be composited onto a
// tracked region.  Each variant carries its own validated parameters;
// construction clamps out of range values.
type Effect interface {
	isEffect()
}

// BlurEffect applies a gaussian blur inside the box
type BlurEffect struct {
	// Intensity of the blur, clamped to 0..20
	Intensity float64
}

// MosaicEffect pixelates the box contents
type MosaicEffect struct {
	// BlockSize is the mosaic cell size in pixels, clamped to 5..50
	BlockSize int
}

// EmojiEffect overlays an emoji glyph centered on the box
type EmojiEffect struct {
	// Emoji is the glyph to render, eg: a single emoji rune
	Emoji string
	// Scale of the glyph relative to the box size, clamped to 0.5..3.0
	Scale float64
	// Rotation in degrees, clamped to 0..360
	Rotation float64
}

// ColorEffect fills the box with a translucent solid color
type ColorEffect struct {
	// Color to composite
	Color color.RGBA
	// Opacity of the fill, clamped to 0..1
	Opacity float64
}

func (BlurEffect) isEffect()   {}
func (MosaicEffect) isEffect() {}
func (EmojiEffect) isEffect()  {}
func (ColorEffect) isEffect()  {}

// NewBlurEffect returns a blur effect with intensity clamped to 0..20
func NewBlurEffect(intensity float64) BlurEffect {
	return BlurEffect{Intensity: clampF64(intensity, 0, 20)}
}

// NewMosaicEffect returns a mosaic effect with block size clamped to 5..50
func NewMosaicEffect(blockSize int) MosaicEffect {
	if blockSize < 5 {
		blockSize = 5
	}
	if blockSize > 50 {
		blockSize = 50
	}
	return MosaicEffect{BlockSize: blockSize}
}

// NewEmojiEffect returns an emoji effect with scale clamped to 0.5..3.0 and
// rotation clamped to 0..360 degrees
func NewEmojiEffect(emoji string, scale, rotation float64) EmojiEffect {
	return EmojiEffect{
		Emoji:    emoji,
		Scale:    clampF64(scale, 0.5, 3.0),
		Rotation: clampF64(rotation, 0, 360),
	}
}

// NewColorEffect returns a solid color effect from a hex color string such
// as "#FF8800" and an opacity clamped to 0..1
func NewColorEffect(hex string, opacity float64) (ColorEffect, error) {

	clr, err := ParseHexColor(hex)

	if err != nil {
		return ColorEffect{}, err
	}

	return ColorEffect{
		Color:   clr,
		Opacity: clampF64(opacity, 0, 1),
	}, nil
}

// ParseHexColor parses a "#RRGGBB" or "RRGGBB" hex color string
func ParseHexColor(s string) (color.RGBA, error) {

	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}

	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: hex color %q must be 6 digits",
			ErrInvalidEffect, s)
	}

	var rgb [3]uint8

	for i := 0; i < 3; i++ {
		hi, ok1 := hexVal(s[i*2])
		lo, ok2 := hexVal(s[i*2+1])

		if !ok1 || !ok2 {
			return color.RGBA{}, fmt.Errorf("%w: bad hex color %q",
				ErrInvalidEffect, s)
		}

		rgb[i] = hi<<4 | lo
	}

	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func hexVal(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Renderer composites effects onto frame regions.  The zero value handles
// blur, mosaic, and color; emoji rendering needs a glyph face loaded with
// SetEmojiFont.
type Renderer struct {
	emoji *EmojiFace
	// Padding expands the effect region by this many pixels in every
	// direction before compositing, so eg: a blur fully covers the object
	// instead of ending hard on the detection box edge
	Padding int
}

// NewRenderer returns a renderer with no padding and no emoji font loaded
func NewRenderer() *Renderer {
	return &Renderer{}
}

// SetEmojiFont loads the TTF font used to rasterize emoji glyphs
func (r *Renderer) SetEmojiFont(fontFile string) error {

	face, err := LoadEmojiFace(fontFile)

	if err != nil {
		return err
	}

	r.emoji = face
	return nil
}

// Apply composites the effect onto img inside the given pixel box (origin
// top left).  The box is expanded by the renderer padding and clamped to
// the frame; a degenerate box is a no-op.
func (r *Renderer) Apply(img *gocv.Mat, box image.Rectangle, e Effect) error {

	if r.Padding > 0 {
		box = ExpandBox(box, float64(r.Padding))
	}

	box = box.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if box.Dx() <= 0 || box.Dy() <= 0 {
		return nil
	}

	switch ef := e.(type) {

	case BlurEffect:
		return applyBlur(img, box, ef)

	case MosaicEffect:
		return applyMosaic(img, box, ef)

	case ColorEffect:
		return applyColor(img, box, ef)

	case EmojiEffect:
		if r.emoji == nil {
			return fmt.Errorf("%w: no emoji font loaded", ErrInvalidEffect)
		}
		return applyEmoji(img, box, ef, r.emoji)

	default:
		return fmt.Errorf("%w: unknown effect %T", ErrInvalidEffect, e)
	}
}

// applyBlur gaussian blurs the region in place.  Kernel size grows with
// intensity and must be odd.
func applyBlur(img *gocv.Mat, box image.Rectangle, e BlurEffect) error {

	if e.Intensity <= 0 {
		return nil
	}

	region := img.Region(box)
	defer region.Close()

	k := int(e.Intensity)*2 + 1

	gocv.GaussianBlur(region, &region, image.Pt(k, k), 0, 0,
		gocv.BorderDefault)

	return nil
}

// applyMosaic pixelates the region by downscaling to the block grid and
// upscaling back with nearest neighbor interpolation
func applyMosaic(img *gocv.Mat, box image.Rectangle, e MosaicEffect) error {

	region := img.Region(box)
	defer region.Close()

	smallW := box.Dx() / e.BlockSize
	smallH := box.Dy() / e.BlockSize

	if smallW < 1 {
		smallW = 1
	}

	if smallH < 1 {
		smallH = 1
	}

	small := gocv.NewMat()
	defer small.Close()

	gocv.Resize(region, &small, image.Pt(smallW, smallH), 0, 0,
		gocv.InterpolationArea)
	gocv.Resize(small, &region, image.Pt(box.Dx(), box.Dy()), 0, 0,
		gocv.InterpolationNearestNeighbor)

	return nil
}

// applyColor alpha blends a solid fill over the region
func applyColor(img *gocv.Mat, box image.Rectangle, e ColorEffect) error {

	if e.Opacity <= 0 {
		return nil
	}

	region := img.Region(box)
	defer region.Close()

	// Mats are BGR ordered
	fill := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(e.Color.B), float64(e.Color.G),
			float64(e.Color.R), 0),
		box.Dy(), box.Dx(), img.Type())
	defer fill.Close()

	gocv.AddWeighted(region, 1-e.Opacity, fill, e.Opacity, 0, &region)

	return nil
}

func clampF64(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
