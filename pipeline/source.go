package pipeline

import (
	"context"
	"fmt"

	"github.com/swdee/go-trackfx/coords"
	"gocv.io/x/gocv"
)

// FrameSource extracts decodable images from a video by frame index.
// Frames are returned in the raw buffer orientation; Resolution reports the
// effective (orientation corrected) size callers exchange boxes in.
type FrameSource interface {
	// Frame returns the decoded image at the given index.  The caller owns
	// the returned Mat and must Close it.  A decode failure returns an
	// error wrapping ErrFrameUnavailable.
	Frame(ctx context.Context, index int) (gocv.Mat, error)
	// Frames returns the total frame count
	Frames() int
	// Rotation returns the container's declared orientation transform
	Rotation() coords.Rotation
	// Resolution returns the effective display size, ie: the raw buffer
	// size with the orientation transform applied
	Resolution() (width, height int)
	// FPS returns the frame rate of the video
	FPS() float64
}

// VideoFileSource reads frames from a video file through OpenCV.  OpenCV
// discards container rotation metadata, so the display rotation is declared
// by the caller on open.
type VideoFileSource struct {
	capture  *gocv.VideoCapture
	file     string
	frames   int
	width    int
	height   int
	fps      float64
	rotation coords.Rotation
	// next is the index the capture will decode without seeking
	next int
}

// OpenVideoFile opens a video file as a FrameSource.  rotation is the
// orientation transform the container declares for display, RotationNone
// when it has none.
func OpenVideoFile(file string, rotation coords.Rotation) (*VideoFileSource, error) {

	capture, err := gocv.VideoCaptureFile(file)

	if err != nil {
		return nil, fmt.Errorf("%w: opening video %s: %v", ErrInvalidInput,
			file, err)
	}

	v := &VideoFileSource{
		capture:  capture,
		file:     file,
		frames:   int(capture.Get(gocv.VideoCaptureFrameCount)),
		width:    int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:   int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:      capture.Get(gocv.VideoCaptureFPS),
		rotation: rotation,
	}

	if v.width <= 0 || v.height <= 0 {
		capture.Close()
		return nil, fmt.Errorf("%w: %s has no decodable video stream",
			ErrInvalidInput, file)
	}

	return v, nil
}

// Frame returns the decoded image at the given index in raw buffer
// orientation.  Sequential access avoids seeking.
func (v *VideoFileSource) Frame(ctx context.Context, index int) (gocv.Mat, error) {

	if err := ctx.Err(); err != nil {
		return gocv.NewMat(), err
	}

	if index < 0 || (v.frames > 0 && index >= v.frames) {
		return gocv.NewMat(), fmt.Errorf("%w: frame %d out of range",
			ErrFrameUnavailable, index)
	}

	if index != v.next {
		v.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	}

	img := gocv.NewMat()

	if ok := v.capture.Read(&img); !ok || img.Empty() {
		img.Close()
		v.next = -1
		return gocv.NewMat(), fmt.Errorf("%w: decoding frame %d of %s",
			ErrFrameUnavailable, index, v.file)
	}

	v.next = index + 1

	return img, nil
}

// Frames returns the container's frame count
func (v *VideoFileSource) Frames() int {
	return v.frames
}

// Rotation returns the declared orientation transform
func (v *VideoFileSource) Rotation() coords.Rotation {
	return v.rotation
}

// Resolution returns the effective display size after the orientation
// transform is applied to the raw buffer dimensions
func (v *VideoFileSource) Resolution() (int, int) {
	return coords.EffectiveResolution(v.width, v.height, v.rotation)
}

// FPS returns the video frame rate
func (v *VideoFileSource) FPS() float64 {
	return v.fps
}

// Close releases the underlying capture handle
func (v *VideoFileSource) Close() error {
	return v.capture.Close()
}

// MatSliceSource serves a fixed slice of in-memory frames, used in tests
// and for callers that buffer video themselves
type MatSliceSource struct {
	Mats []gocv.Mat
	Rot  coords.Rotation
	Rate float64
}

// Frame returns a clone of the frame at index so callers can Close their
// copy without touching the buffer
func (m *MatSliceSource) Frame(ctx context.Context, index int) (gocv.Mat, error) {

	if err := ctx.Err(); err != nil {
		return gocv.NewMat(), err
	}

	if index < 0 || index >= len(m.Mats) {
		return gocv.NewMat(), fmt.Errorf("%w: frame %d out of range",
			ErrFrameUnavailable, index)
	}

	if m.Mats[index].Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: frame %d is empty",
			ErrFrameUnavailable, index)
	}

	return m.Mats[index].Clone(), nil
}

// Frames returns the buffered frame count
func (m *MatSliceSource) Frames() int {
	return len(m.Mats)
}

// Rotation returns the declared orientation transform
func (m *MatSliceSource) Rotation() coords.Rotation {
	return m.Rot
}

// Resolution returns the effective display size of the first frame
func (m *MatSliceSource) Resolution() (int, int) {

	if len(m.Mats) == 0 {
		return 0, 0
	}

	return coords.EffectiveResolution(
		m.Mats[0].Cols(), m.Mats[0].Rows(), m.Rot)
}

// FPS returns the declared frame rate, defaulting to 30
func (m *MatSliceSource) FPS() float64 {
	if m.Rate <= 0 {
		return 30
	}
	return m.Rate
}

// Close releases all buffered frames
func (m *MatSliceSource) Close() error {
	for i := range m.Mats {
		m.Mats[i].Close()
	}
	m.Mats = nil
	return nil
}
