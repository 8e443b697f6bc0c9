package tracker

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// TrackState represents the lifecycle state of a tracked object
type TrackState int

const (
	// Active means the track is being advanced every frame
	Active TrackState = iota
	// Lost is terminal.  A reacquired object becomes a brand new Track
	// with a new ID, there is no transition back to Active.
	Lost
)

// Track represents a continuing identity for one physical object across
// frames.  The bounding box is held in pixel space of the raw video frame,
// origin top left.
type Track struct {
	// Kalman filter used for motion prediction between appearance matches
	kalmanFilter *KalmanFilter
	// Mean state vector
	mean StateMean
	// Covariance matrix
	covariance StateCov
	// Bounding box of the tracked object
	rect Rect
	// Current state of the track
	state TrackState
	// Last advance confidence score
	score float32
	// Unique ID for the track, assigned once, immutable
	id string
	// className is the object class from detection, or "manual" for a
	// caller selected region
	className string
	// label is the numeric class index from detection, -1 for manual
	label int
	// framesSinceUpdate counts consecutive advance failures
	framesSinceUpdate int
	// frameID of the last successful update
	frameID int
	// startFrameID is the frame the track was created on
	startFrameID int
}

// NewTrack creates a new Active track for an object first located at rect
// with the given confidence
func NewTrack(id string, rect Rect, score float32, label int,
	className string, frameID int) *Track {

	t := &Track{
		kalmanFilter: NewKalmanFilter(1.0/20, 1.0/160),
		mean:         make(StateMean, 8),
		covariance:   StateCov{mat.NewDense(8, 8, nil)},
		rect:         rect,
		state:        Active,
		score:        score,
		id:           id,
		className:    className,
		label:        label,
		frameID:      frameID,
		startFrameID: frameID,
	}

	t.kalmanFilter.Initiate(t.mean, &t.covariance, DetectBox(t.rect.GetXyah()))

	return t
}

// ID returns the unique ID for the track
func (t *Track) ID() string {
	return t.id
}

// GetRect returns the current bounding box of the tracked object
func (t *Track) GetRect() *Rect {
	return &t.rect
}

// State returns the current lifecycle state
func (t *Track) State() TrackState {
	return t.state
}

// Score returns the confidence of the last advance or update
func (t *Track) Score() float32 {
	return t.score
}

// ClassName returns the object class the track was created from
func (t *Track) ClassName() string {
	return t.className
}

// Label returns the numeric class index, -1 for manually selected regions
func (t *Track) Label() int {
	return t.label
}

// FramesSinceUpdate returns the number of consecutive advance failures
func (t *Track) FramesSinceUpdate() int {
	return t.framesSinceUpdate
}

// FrameID returns the frame index of the last successful update
func (t *Track) FrameID() int {
	return t.frameID
}

// StartFrameID returns the frame the track was created on
func (t *Track) StartFrameID() int {
	return t.startFrameID
}

// Predict advances the motion model one frame and returns the predicted
// bounding box.  The appearance matcher searches around this prediction.
func (t *Track) Predict() Rect {
	t.kalmanFilter.Predict(t.mean, &t.covariance)
	return rectFromMean(t.mean)
}

// Update feeds a confirmed location back into the motion model and resets
// the failure counter
func (t *Track) Update(measured Rect, score float32, frameID int) error {

	err := t.kalmanFilter.Update(t.mean, &t.covariance,
		DetectBox(measured.GetXyah()))

	if err != nil {
		return fmt.Errorf("error updating track %s: %w", t.id, err)
	}

	t.rect = rectFromMean(t.mean)
	t.score = score
	t.framesSinceUpdate = 0
	t.frameID = frameID

	return nil
}

// Miss records a failed advance.  Once misses reaches maxMisses the track
// transitions to Lost and reports true.
func (t *Track) Miss(maxMisses int) bool {

	t.framesSinceUpdate++

	if t.framesSinceUpdate >= maxMisses {
		t.MarkLost()
		return true
	}

	return false
}

// MarkLost retires the track.  Lost is terminal.
func (t *Track) MarkLost() {
	t.state = Lost
}

// PixelRect returns the current box rounded to an image.Rectangle
func (t *Track) PixelRect() image.Rectangle {
	return image.Rect(
		int(t.rect.TLX()), int(t.rect.TLY()),
		int(t.rect.BRX()), int(t.rect.BRY()))
}

// rectFromMean converts the xyah kalman state into a corner format Rect
func rectFromMean(mean StateMean) Rect {
	height := mean[3]
	width := mean[2] * mean[3]
	return NewRect(mean[0]-width/2, mean[1]-height/2, width, height)
}
