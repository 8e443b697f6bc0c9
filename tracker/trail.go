package tracker

import "sync"

// Point represents the x,y coordinates of the center of a tracked bounding
// box
type Point struct {
	X, Y int
}

// path is the history of center points for one track
type path struct {
	points []Point
}

// Trail keeps a history of track positions used for drawing a motion trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points keyed by track ID
	history map[string]*path
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size specifies the
// maximum length of the trail to maintain per track.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[string]*path),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[string]*path)
}

// Add a track's current position to the history
func (t *Trail) Add(track *Track) {
	t.Lock()
	defer t.Unlock()

	// init map if no history exists yet for track id
	if _, exists := t.history[track.ID()]; !exists {
		t.history[track.ID()] = &path{}
	}

	h := t.history[track.ID()]

	// find center point
	x := track.GetRect().TLX() + (track.GetRect().Width() / 2)
	y := track.GetRect().TLY() + (track.GetRect().Height() / 2)

	h.points = append(h.points, Point{
		X: int(x),
		Y: int(y),
	})

	// check if history is exceeded and drop oldest point
	if len(h.points) > t.size {
		h.points = h.points[1:]
	}
}

// Points returns the trail points recorded for the given track ID, oldest
// first
func (t *Trail) Points(id string) []Point {
	t.Lock()
	defer t.Unlock()

	h, exists := t.history[id]

	if !exists {
		return nil
	}

	out := make([]Point, len(h.points))
	copy(out, h.points)

	return out
}

// Remove drops the history for a retired track
func (t *Trail) Remove(id string) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}
