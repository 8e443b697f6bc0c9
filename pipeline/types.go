// Package pipeline drives a full video through periodic object detection and
// continuous appearance tracking, producing one merged, time ordered result
// stream which effect rendering and export consume.
package pipeline

import (
	"errors"

	"github.com/swdee/go-trackfx/coords"
)

var (
	// ErrInvalidInput is returned for malformed caller input such as a bad
	// video path, a degenerate selection box, or an out of range frame
	// index.  The operation aborts and no partial state is retained.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFrameUnavailable is returned when a frame cannot be decoded at a
	// specific index.  Batch operations skip the frame and continue.
	ErrFrameUnavailable = errors.New("frame unavailable")

	// ErrExportFailed is returned when the output video cannot be written.
	// Any partial output file should be treated as invalid.
	ErrExportFailed = errors.New("video export failed")
)

// DetectedObject is one detection instance from a single inference call.
// It survives only within that call unless promoted into a track.
type DetectedObject struct {
	// ClassName of the detected object
	ClassName string
	// Confidence score in 0..1
	Confidence float32
	// Box is the bounding box normalized (0..1) against the effective
	// (orientation corrected) resolution, origin top left
	Box coords.Box
	// PixelBox is the same box in pixels of the effective resolution,
	// origin top left, the convention all public boundaries use
	PixelBox coords.Box
	// Identifier is the class index rendered as a string
	Identifier string
	// TransformUncertain marks a box that could not be re-projected
	// through the container orientation transform and passed through
	// untransformed
	TransformUncertain bool
}

// ResultSource marks whether a result row came from the detector or from
// the per frame tracking advance
type ResultSource string

const (
	SourceDetection ResultSource = "detection"
	SourceTracking  ResultSource = "tracking"
)

// TrackingResult is one row of the merged output stream.  Rows are append
// only, ordered by frame index ascending and, within one frame, detection
// rows before tracking rows.
type TrackingResult struct {
	// ObjectID is the track identity the row belongs to, assigned once
	ObjectID string
	// FrameIndex the row was produced at
	FrameIndex int
	// ClassName of the tracked object
	ClassName string
	// Confidence of this observation
	Confidence float32
	// Source of the row, detection or tracking
	Source ResultSource
	// Box in pixels of the effective (orientation corrected) resolution,
	// origin top left
	Box coords.Box
	// TransformUncertain marks a box that passed through an unsupported
	// orientation transform unconverted
	TransformUncertain bool
}
