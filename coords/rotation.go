package coords

// Rotation is the orientation transform a video container declares for
// display, independent of the raw pixel buffer dimensions.  Angles are
// clockwise display rotations.
type Rotation int

const (
	RotationNone Rotation = 0
	Rotation90   Rotation = 90
	Rotation180  Rotation = 180
	Rotation270  Rotation = 270
	// RotationUnknown marks a transform composition that is not one of the
	// four supported right angle rotations.  Boxes pass through untouched
	// and are flagged transform-uncertain rather than failing the pipeline.
	RotationUnknown Rotation = -1
)

// EffectiveResolution returns the display resolution of a video after its
// orientation transform is applied to the raw buffer dimensions.  All boxes
// exchanged with callers are relative to this effective size, never the raw
// buffer size.
func EffectiveResolution(width, height int, rot Rotation) (int, int) {
	switch rot {
	case Rotation90, Rotation270:
		return height, width
	default:
		return width, height
	}
}

// ApplyRotation re-projects a normalized top left origin box from raw buffer
// space into effective display space for the given rotation.  The returned
// bool is false when the rotation is unknown, in which case the box is
// passed through untransformed and the caller should mark the record
// transform-uncertain.
func ApplyRotation(b Box, rot Rotation) (Box, bool) {

	var out Box

	switch rot {
	case RotationNone:
		return b, true

	case Rotation90:
		// raw (x,y) top left maps to effective top right corner
		out = Box{
			X:      1 - b.Y - b.Height,
			Y:      b.X,
			Width:  b.Height,
			Height: b.Width,
		}

	case Rotation180:
		out = Box{
			X:      1 - b.X - b.Width,
			Y:      1 - b.Y - b.Height,
			Width:  b.Width,
			Height: b.Height,
		}

	case Rotation270:
		out = Box{
			X:      b.Y,
			Y:      1 - b.X - b.Width,
			Width:  b.Height,
			Height: b.Width,
		}

	default:
		return b, false
	}

	// rotation of a clamped input cannot overflow, but float rounding can
	// leave a tiny negative origin
	return ClampNormalized(out), true
}

// InvertRotation re-projects a normalized top left origin box from effective
// display space back into raw buffer space.  It is the inverse of
// ApplyRotation for the four supported rotations.
func InvertRotation(b Box, rot Rotation) (Box, bool) {
	switch rot {
	case Rotation90:
		return ApplyRotation(b, Rotation270)
	case Rotation270:
		return ApplyRotation(b, Rotation90)
	default:
		return ApplyRotation(b, rot)
	}
}
