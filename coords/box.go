// Package coords converts bounding boxes between the coordinate spaces used
// across the pipeline: tensor-normalized space (0..1 relative to the frame fed
// to the network), source frame pixel space (origin top left, y down), and
// the effective display space after a container orientation transform has
// been applied.  Every function states the convention it consumes and
// produces.
package coords

// Box is a corner format bounding box (x, y, width, height).  Whether the
// values are normalized (0..1) or pixels, and which corner the origin sits
// at, is stated by each function exchanging a Box.
type Box struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// NewBox creates a corner format box
func NewBox(x, y, width, height float32) Box {
	return Box{X: x, Y: y, Width: width, Height: height}
}

// IsDegenerate reports whether the box has zero (or negative) area.  A
// degenerate box is valid input but yields no tracking or effect output.
func (b Box) IsDegenerate() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Denormalize converts a normalized box (0..1) to pixel space for an image
// of the given dimensions.  The origin corner is unchanged.
func Denormalize(b Box, width, height int) Box {
	return Box{
		X:      b.X * float32(width),
		Y:      b.Y * float32(height),
		Width:  b.Width * float32(width),
		Height: b.Height * float32(height),
	}
}

// Normalize converts a pixel space box to normalized (0..1) coordinates for
// an image of the given dimensions.  The origin corner is unchanged.
func Normalize(b Box, width, height int) Box {
	return Box{
		X:      b.X / float32(width),
		Y:      b.Y / float32(height),
		Width:  b.Width / float32(width),
		Height: b.Height / float32(height),
	}
}

// FlipVertical converts a normalized box between bottom left origin (y up)
// and top left origin (y down) conventions.  The flip is an involution, so
// the same function performs both directions.  The appearance tracker
// reports bottom up boxes which must pass through this flip before being
// merged with detection results.
func FlipVertical(b Box) Box {
	return Box{
		X:      b.X,
		Y:      1 - b.Y - b.Height,
		Width:  b.Width,
		Height: b.Height,
	}
}

// ClampNormalized translates a normalized box back inside the unit square so
// its origin is non negative, then trims width/height so it does not extend
// past 1.0.  Used after rotation re-projection which can produce small
// negative origin offsets.
func ClampNormalized(b Box) Box {

	if b.X < 0 {
		b.X = 0
	}

	if b.Y < 0 {
		b.Y = 0
	}

	if b.X+b.Width > 1 {
		b.Width = 1 - b.X
	}

	if b.Y+b.Height > 1 {
		b.Height = 1 - b.Y
	}

	if b.Width < 0 {
		b.Width = 0
	}

	if b.Height < 0 {
		b.Height = 0
	}

	return b
}
