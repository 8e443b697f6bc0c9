package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// emojiFontSize is the point size the glyph is rasterized at before being
// scaled to the target box
const emojiFontSize = 96.0

// EmojiFace wraps a parsed TTF face used to rasterize emoji glyphs
type EmojiFace struct {
	face font.Face
}

// LoadEmojiFace reads and parses a TTF font file containing the emoji
// glyphs to overlay
func LoadEmojiFace(fontFile string) (*EmojiFace, error) {

	// load font data
	fontBytes, err := os.ReadFile(fontFile)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    emojiFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &EmojiFace{face: face}, nil
}

// rasterize draws the glyph onto a transparent RGBA canvas sized to its
// bounds and returns the canvas
func (ef *EmojiFace) rasterize(glyph string) (*image.RGBA, error) {

	bounds, _ := font.BoundString(ef.face, glyph)

	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: glyph %q has no extent with the loaded font",
			ErrInvalidEffect, glyph)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}),
		image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: ef.face,
		Dot: fixed.Point26_6{
			X: -bounds.Min.X,
			Y: -bounds.Min.Y,
		},
	}
	dr.DrawString(glyph)

	return rgba, nil
}

// applyEmoji rasterizes the glyph, scales it to the box, optionally rotates
// it, and alpha blends it centered over the region
func applyEmoji(img *gocv.Mat, box image.Rectangle, e EmojiEffect,
	face *EmojiFace) error {

	rgba, err := face.rasterize(e.Emoji)

	if err != nil {
		return err
	}

	glyph, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if glyph.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from glyph RGBA")
	}

	defer glyph.Close()

	// scale glyph to the box, preserving glyph aspect
	side := box.Dx()
	if box.Dy() < side {
		side = box.Dy()
	}

	target := int(float64(side) * e.Scale)

	if target < 1 {
		return nil
	}

	gocv.Resize(glyph, &glyph, image.Pt(target, target), 0, 0,
		gocv.InterpolationArea)

	if e.Rotation != 0 {
		center := image.Pt(target/2, target/2)
		rot := gocv.GetRotationMatrix2D(center, e.Rotation, 1.0)
		defer rot.Close()
		gocv.WarpAffine(glyph, &glyph, rot, image.Pt(target, target))
	}

	// placement centered on the box, clamped to the frame
	cx := (box.Min.X + box.Max.X) / 2
	cy := (box.Min.Y + box.Max.Y) / 2

	place := image.Rect(cx-target/2, cy-target/2,
		cx-target/2+target, cy-target/2+target)

	clipped := place.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if clipped.Dx() <= 0 || clipped.Dy() <= 0 {
		return nil
	}

	// crop the glyph to the visible portion
	glyphROI := glyph.Region(image.Rect(
		clipped.Min.X-place.Min.X,
		clipped.Min.Y-place.Min.Y,
		clipped.Min.X-place.Min.X+clipped.Dx(),
		clipped.Min.Y-place.Min.Y+clipped.Dy()))
	defer glyphROI.Close()

	// split out the alpha channel as the blend mask and convert the color
	// channels to the Mat's BGR ordering
	channels := gocv.Split(glyphROI)

	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	if len(channels) != 4 {
		return fmt.Errorf("glyph Mat has %d channels, want 4", len(channels))
	}

	bgr := gocv.NewMat()
	defer bgr.Close()

	gocv.CvtColor(glyphROI, &bgr, gocv.ColorRGBAToBGR)

	region := img.Region(clipped)
	defer region.Close()

	bgr.CopyToWithMask(&region, channels[3])

	return nil
}
