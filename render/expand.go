package render

import (
	"image"

	clipper "github.com/ctessum/go.clipper"
)

// ExpandBox grows an effect region outward by the given distance in pixels
// using a polygon offset with round joins, then returns the axis aligned
// bounds of the offset polygon.  Offsetting rather than simple inflation
// keeps the expansion uniform when the box is later combined with rotated
// overlays.
func ExpandBox(box image.Rectangle, distance float64) image.Rectangle {

	if distance <= 0 {
		return box
	}

	// convert the box corners to a Clipper Path
	path := clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(box.Min.X), Y: clipper.CInt(box.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(box.Max.X), Y: clipper.CInt(box.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(box.Max.X), Y: clipper.CInt(box.Max.Y)},
		&clipper.IntPoint{X: clipper.CInt(box.Min.X), Y: clipper.CInt(box.Max.Y)},
	}

	// create a ClipperOffset object and add the path
	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	// execute the offset operation
	solution := co.Execute(distance)

	if len(solution) == 0 {
		return box
	}

	// take the axis aligned bounds of the offset polygon
	out := box

	for _, sol := range solution {
		for _, pt := range sol {
			p := image.Pt(int(pt.X), int(pt.Y))

			if p.X < out.Min.X {
				out.Min.X = p.X
			}
			if p.Y < out.Min.Y {
				out.Min.Y = p.Y
			}
			if p.X > out.Max.X {
				out.Max.X = p.X
			}
			if p.Y > out.Max.Y {
				out.Max.Y = p.Y
			}
		}
	}

	return out
}
