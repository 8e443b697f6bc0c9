package tracker

import (
	"fmt"
	"image"

	"github.com/swdee/go-trackfx/coords"
	"gocv.io/x/gocv"
)

// Result is the outcome of a successful per frame advance.  Box is
// normalized (0..1) against the frame dimensions with a BOTTOM LEFT origin,
// the tracker's native vertical convention.  Callers merging tracker output
// with detection output must flip it through coords.FlipVertical first.
type Result struct {
	Box   coords.Box
	Score float32
}

// VisualParams configures the appearance based advance step
type VisualParams struct {
	// LossThreshold is the confidence floor below which an advance counts
	// as a failure
	LossThreshold float32
	// MaxMisses is the number of consecutive failed advances after which a
	// track transitions to Lost
	MaxMisses int
	// SearchFactor inflates the predicted box to form the search window the
	// template is matched within
	SearchFactor float32
	// RefreshThreshold is the minimum advance confidence required before
	// the appearance template is replaced with the newly matched region.
	// Refreshing on weak matches accelerates drift.
	RefreshThreshold float32
}

// DefaultVisualParams returns the parameters used when none are supplied:
// loss threshold 0.3, one miss allowed, 2.5x search window, template
// refresh at 0.8
func DefaultVisualParams() VisualParams {
	return VisualParams{
		LossThreshold:    0.3,
		MaxMisses:        1,
		SearchFactor:     2.5,
		RefreshThreshold: 0.8,
	}
}

// VisualTracker advances tracks frame to frame by normalized cross
// correlation template matching inside a motion predicted search window.
// It owns one appearance template per track and no other shared state, so
// Advance calls for different tracks are independent.  All tracks must be
// advanced against the same frame before moving to the next frame index.
type VisualTracker struct {
	// Params configure matching and loss behavior
	Params VisualParams
	// templates keyed by track ID
	templates map[string]gocv.Mat
}

// NewVisualTracker returns a tracker using the given parameters
func NewVisualTracker(p VisualParams) *VisualTracker {

	if p.MaxMisses < 1 {
		p.MaxMisses = 1
	}

	if p.SearchFactor < 1 {
		p.SearchFactor = 1
	}

	return &VisualTracker{
		Params:    p,
		templates: make(map[string]gocv.Mat),
	}
}

// minimum template side length in pixels.  Regions smaller than this carry
// too little appearance to match reliably.
const minTemplateSide = 4

// StartTracking captures the appearance template for a newly created track
// from the frame it was first located in
func (vt *VisualTracker) StartTracking(track *Track, frame gocv.Mat) error {

	r := clampToFrame(track.PixelRect(), frame)

	if r.Dx() < minTemplateSide || r.Dy() < minTemplateSide {
		return fmt.Errorf("track %s region %v is too small to track",
			track.ID(), r)
	}

	region := frame.Region(r)
	defer region.Close()

	vt.setTemplate(track.ID(), region.Clone())

	return nil
}

// Advance estimates the track's box in the given frame.  On success the
// track's motion model is updated and the refined box is returned.  On a
// failed or low confidence match the track's miss counter advances and,
// once MaxMisses is reached, the track transitions to Lost; ok is false and
// no result is produced either way.
func (vt *VisualTracker) Advance(track *Track, frame gocv.Mat,
	frameID int) (Result, bool) {

	if track.State() != Active {
		return Result{}, false
	}

	tmpl, exists := vt.templates[track.ID()]

	if !exists {
		// never registered, nothing to match against
		track.Miss(vt.Params.MaxMisses)
		return Result{}, false
	}

	pred := track.Predict()

	window := vt.searchWindow(pred, tmpl, frame)

	if window.Dx() < tmpl.Cols() || window.Dy() < tmpl.Rows() {
		// search window cannot contain the template, eg: the object left
		// the visible frame
		track.Miss(vt.Params.MaxMisses)
		return Result{}, false
	}

	region := frame.Region(window)
	defer region.Close()

	res := gocv.NewMat()
	defer res.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(region, tmpl, &res, gocv.TmCcoeffNormed, mask)

	_, score, _, maxLoc := gocv.MinMaxLoc(res)

	if score < vt.Params.LossThreshold {
		track.Miss(vt.Params.MaxMisses)
		return Result{}, false
	}

	measured := NewRect(
		float32(window.Min.X+maxLoc.X),
		float32(window.Min.Y+maxLoc.Y),
		float32(tmpl.Cols()),
		float32(tmpl.Rows()),
	)

	if err := track.Update(measured, score, frameID); err != nil {
		track.Miss(vt.Params.MaxMisses)
		return Result{}, false
	}

	// replace the appearance template on strong matches only
	if score >= vt.Params.RefreshThreshold {
		r := clampToFrame(image.Rect(
			window.Min.X+maxLoc.X,
			window.Min.Y+maxLoc.Y,
			window.Min.X+maxLoc.X+tmpl.Cols(),
			window.Min.Y+maxLoc.Y+tmpl.Rows()), frame)

		if r.Dx() >= minTemplateSide && r.Dy() >= minTemplateSide {
			region := frame.Region(r)
			vt.setTemplate(track.ID(), region.Clone())
			region.Close()
		}
	}

	// report normalized with the tracker's bottom left origin convention
	norm := coords.Normalize(coords.NewBox(
		track.GetRect().TLX(), track.GetRect().TLY(),
		track.GetRect().Width(), track.GetRect().Height()),
		frame.Cols(), frame.Rows())

	return Result{
		Box:   coords.FlipVertical(norm),
		Score: score,
	}, true
}

// ReAnchor replaces a track's appearance template and motion state with a
// fresh detection of the same object, countering template drift
func (vt *VisualTracker) ReAnchor(track *Track, rect Rect, score float32,
	frame gocv.Mat, frameID int) error {

	if err := track.Update(rect, score, frameID); err != nil {
		return err
	}

	return vt.StartTracking(track, frame)
}

// StopTracking releases the appearance template for a retired track
func (vt *VisualTracker) StopTracking(id string) {
	if tmpl, exists := vt.templates[id]; exists {
		tmpl.Close()
		delete(vt.templates, id)
	}
}

// Close releases all appearance templates
func (vt *VisualTracker) Close() {
	for id, tmpl := range vt.templates {
		tmpl.Close()
		delete(vt.templates, id)
	}
}

// setTemplate stores a template, closing any previous one
func (vt *VisualTracker) setTemplate(id string, tmpl gocv.Mat) {
	if old, exists := vt.templates[id]; exists {
		old.Close()
	}
	vt.templates[id] = tmpl
}

// searchWindow inflates the predicted box by the search factor around its
// center and clamps it to the frame, growing back to at least the template
// size where the frame allows
func (vt *VisualTracker) searchWindow(pred Rect, tmpl gocv.Mat,
	frame gocv.Mat) image.Rectangle {

	cx := pred.TLX() + pred.Width()/2
	cy := pred.TLY() + pred.Height()/2

	w := float32(tmpl.Cols()) * vt.Params.SearchFactor
	h := float32(tmpl.Rows()) * vt.Params.SearchFactor

	window := image.Rect(
		int(cx-w/2), int(cy-h/2),
		int(cx+w/2), int(cy+h/2))

	window = clampToFrame(window, frame)

	// widen a clamped window back out to template size where possible
	if window.Dx() < tmpl.Cols() {
		window = growAxis(window, tmpl.Cols(), frame.Cols(), true)
	}

	if window.Dy() < tmpl.Rows() {
		window = growAxis(window, tmpl.Rows(), frame.Rows(), false)
	}

	return window
}

// clampToFrame intersects r with the frame bounds
func clampToFrame(r image.Rectangle, frame gocv.Mat) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
}

// growAxis expands one axis of r to the wanted size, keeping it inside
// [0, limit].  If limit is smaller than want the axis spans the full frame.
func growAxis(r image.Rectangle, want, limit int, horizontal bool) image.Rectangle {

	if horizontal {
		r.Max.X = r.Min.X + want
		if r.Max.X > limit {
			r.Max.X = limit
			r.Min.X = limit - want
			if r.Min.X < 0 {
				r.Min.X = 0
			}
		}
	} else {
		r.Max.Y = r.Min.Y + want
		if r.Max.Y > limit {
			r.Max.Y = limit
			r.Min.Y = limit - want
			if r.Min.Y < 0 {
				r.Min.Y = 0
			}
		}
	}

	return r
}
