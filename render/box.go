// Package render composites visual effects onto tracked frame regions and
// draws annotation overlays (boxes, labels, trails) on video frames.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Box is one labeled rectangle to draw.  Seq selects a stable color from
// the palette, eg: a detection index or track sequence number.
type Box struct {
	Rect  image.Rectangle
	Label string
	Seq   int
}

// boxLabel records the label drawing details so labels can be painted as
// the top most layer after all rectangles
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Boxes renders bounding boxes with text labels on the image
func Boxes(img *gocv.Mat, boxes []Box, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	for _, b := range boxes {

		// Get the color for this object
		colorIndex := b.Seq % len(classColors)
		if colorIndex < 0 {
			colorIndex += len(classColors)
		}
		useClr := classColors[colorIndex]

		// draw rectangle around detected object
		gocv.Rectangle(img, b.Rect, useClr, lineThickness)

		text := b.Label
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (b.Rect.Min.X + b.Rect.Max.X) / 2

		case Right:
			centerX = b.Rect.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = b.Rect.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, b.Rect.Min.Y-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			b.Rect.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, b.Rect.Min.Y)

		// record label rendering details
		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by neighboring boxes
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// LabelFor formats the standard "<class> <confidence>" annotation text
func LabelFor(className string, confidence float32) string {
	return fmt.Sprintf("%s %.2f", className, confidence)
}
