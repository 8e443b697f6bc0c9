// Package preprocess scales video frames to the square dimensions a
// detection model's input tensor requires.
package preprocess

import (
	"image"
	"image/color"

	"github.com/swdee/go-trackfx/coords"
	"gocv.io/x/gocv"
)

// Resizer defines the struct used for handling image resizing
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// LetterBoxResize resizes the input image to the dimensions needed for the
// input tensor size whilst maintaining image aspect.  Color is that used for
// letter box padding, the detection models are letterboxed with black.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// SourceBox inverts the letterbox transform for a pixel box in network input
// space (origin top left), returning the pixel box in source image space
// clamped to the source bounds.  The letterbox padding and scale are distinct
// from any container orientation transform, which is handled by the coords
// package.
func (r *Resizer) SourceBox(b coords.Box) coords.Box {

	x1 := (b.X - float32(r.xPad)) / r.scale
	y1 := (b.Y - float32(r.yPad)) / r.scale
	x2 := (b.X + b.Width - float32(r.xPad)) / r.scale
	y2 := (b.Y + b.Height - float32(r.yPad)) / r.scale

	x1 = clampF(x1, 0, float32(r.srcWidth))
	y1 = clampF(y1, 0, float32(r.srcHeight))
	x2 = clampF(x2, 0, float32(r.srcWidth))
	y2 = clampF(y2, 0, float32(r.srcHeight))

	return coords.NewBox(x1, y1, x2-x1, y2-y1)
}

// NormalizedSourceBox inverts the letterbox transform for a pixel box in
// network input space and returns the box normalized (0..1) against the
// source image dimensions, origin top left.
func (r *Resizer) NormalizedSourceBox(b coords.Box) coords.Box {
	return coords.Normalize(r.SourceBox(b), r.srcWidth, r.srcHeight)
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

func clampF(val, min, max float32) float32 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
