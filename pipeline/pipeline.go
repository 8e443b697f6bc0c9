package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	trackfx "github.com/swdee/go-trackfx"
	"github.com/swdee/go-trackfx/coords"
	"github.com/swdee/go-trackfx/postprocess"
	"github.com/swdee/go-trackfx/tracker"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// TrackerEngine is the per frame tracking advance the orchestrator drives.
// tracker.VisualTracker is the production implementation.
type TrackerEngine interface {
	StartTracking(track *tracker.Track, frame gocv.Mat) error
	Advance(track *tracker.Track, frame gocv.Mat, frameID int) (tracker.Result, bool)
	ReAnchor(track *tracker.Track, rect tracker.Rect, score float32,
		frame gocv.Mat, frameID int) error
	StopTracking(id string)
	Close()
}

// TrackOptions filter which detections are promoted into tracks during a
// batch run
type TrackOptions struct {
	// TargetClassName restricts detection to one class.  Empty tracks
	// every class the model knows.
	TargetClassName string
	// MinConfidence drops detections scoring below it.  Zero uses the
	// configured box threshold.
	MinConfidence float32
	// DetectionInterval runs the detector every N frames.  Zero uses the
	// configured interval.
	DetectionInterval int
}

// Pipeline combines periodic detection with continuous per frame tracking
// over a frame source and produces one merged result stream.  Track
// identities persist across calls, so an object selected manually with
// SelectObject is carried through a later batch run.
//
// A Pipeline is not safe for concurrent calls; drive one video per
// Pipeline.
type Pipeline struct {
	cfg Config
	log *zap.Logger

	model    *trackfx.Model
	detector Detector
	visual   TrackerEngine

	mu sync.Mutex
	// tracks keyed by object ID, order preserving insertion sequence so
	// result rows are deterministic
	tracks map[string]*tracker.Track
	order  []string

	// trail records recent track positions for overlay rendering
	trail *tracker.Trail
}

// NewPipeline returns a Pipeline with no model loaded.  SelectObject and
// tracking work immediately; detection requires LoadModel first.
func NewPipeline(cfg Config, log *zap.Logger) *Pipeline {

	cfg.Validate()

	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		cfg: cfg,
		log: log,
		visual: tracker.NewVisualTracker(tracker.VisualParams{
			LossThreshold:    cfg.Track.LossThreshold,
			MaxMisses:        cfg.Track.MaxMisses,
			SearchFactor:     cfg.Track.SearchFactor,
			RefreshThreshold: cfg.Track.RefreshThreshold,
		}),
		tracks: make(map[string]*tracker.Track),
		trail:  tracker.NewTrail(90),
	}
}

// LoadModel loads the configured ONNX model and wires up the detector.
// Calling it again replaces the previous model.
func (p *Pipeline) LoadModel(file string) error {

	labels := trackfx.COCOLabels()

	if p.cfg.Model.LabelsFile != "" {
		loaded, err := trackfx.LoadLabels(p.cfg.Model.LabelsFile)

		if err != nil {
			return fmt.Errorf("error loading labels: %w", err)
		}

		labels = loaded
	}

	model, err := trackfx.LoadModel(file, trackfx.ModelYOLOv8,
		p.cfg.Model.InputSize, labels)

	if err != nil {
		return err
	}

	if p.model != nil {
		p.model.Close()
	}

	p.model = model

	params := postprocess.YOLOv8COCOParams()
	params.ObjThreshold = p.cfg.Detect.ObjThreshold
	params.BoxThreshold = p.cfg.Detect.BoxThreshold
	params.NMSThreshold = p.cfg.Detect.NMSThreshold
	params.ObjectClassNum = p.cfg.Model.Classes
	params.AnchorCount = p.cfg.Model.Anchors

	if old, ok := p.detector.(*YOLODetector); ok {
		old.Close()
	}

	p.detector = NewYOLODetector(model, params, p.log.Named("detector"))

	p.log.Info("model loaded", zap.String("file", file),
		zap.Int("inputSize", p.cfg.Model.InputSize),
		zap.Int("classes", len(labels)))

	return nil
}

// SetDetector replaces the detector, for callers supplying their own
// inference path
func (p *Pipeline) SetDetector(d Detector) {
	p.detector = d
}

// SetTrackerEngine replaces the per frame tracking advance
func (p *Pipeline) SetTrackerEngine(t TrackerEngine) {
	if p.visual != nil {
		p.visual.Close()
	}
	p.visual = t
}

// SelectObject begins tracking a manually selected region.  pixelBox is in
// pixels of the effective (orientation corrected) resolution, origin top
// left.  The returned object ID identifies the track in every later result
// row.
func (p *Pipeline) SelectObject(ctx context.Context, src FrameSource,
	frameIndex int, pixelBox coords.Box) (string, error) {

	if pixelBox.IsDegenerate() {
		return "", fmt.Errorf("%w: selection box %+v is degenerate",
			ErrInvalidInput, pixelBox)
	}

	if frameIndex < 0 || (src.Frames() > 0 && frameIndex >= src.Frames()) {
		return "", fmt.Errorf("%w: frame index %d out of range",
			ErrInvalidInput, frameIndex)
	}

	frame, err := src.Frame(ctx, frameIndex)

	if err != nil {
		return "", err
	}

	defer frame.Close()

	effW, effH := src.Resolution()
	rot := src.Rotation()

	// selection arrives in effective display space, the tracker works in
	// the raw frame buffer, so undo the orientation transform
	norm := coords.Normalize(pixelBox, effW, effH)
	raw, certain := coords.InvertRotation(norm, rot)

	if !certain {
		p.log.Warn("selection passed through unsupported orientation untransformed",
			zap.Int("rotation", int(rot)))
	}

	rawPix := coords.Denormalize(raw, frame.Cols(), frame.Rows())
	rect := tracker.NewRect(rawPix.X, rawPix.Y, rawPix.Width, rawPix.Height)

	id := uuid.NewString()
	track := tracker.NewTrack(id, rect, 1.0, -1, "", frameIndex)

	if err := p.visual.StartTracking(track, frame); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	p.addTrack(track)

	p.log.Info("object selected", zap.String("objectId", id),
		zap.Int("frame", frameIndex))

	return id, nil
}

// DetectObjectsInFrame runs a single detection pass over one frame and
// returns the results in effective display space.  Nothing is tracked.
func (p *Pipeline) DetectObjectsInFrame(ctx context.Context,
	src FrameSource, frameIndex int) ([]DetectedObject, error) {

	if p.detector == nil {
		p.log.Warn("detection requested with no model loaded")
		return nil, nil
	}

	frame, err := src.Frame(ctx, frameIndex)

	if err != nil {
		return nil, err
	}

	defer frame.Close()

	rot := src.Rotation()
	effW, effH := src.Resolution()

	dets := p.detector.Detect(frame, nil)
	out := make([]DetectedObject, 0, len(dets))

	for _, det := range dets {
		out = append(out, toDetectedObject(det, rot, effW, effH))
	}

	return out, nil
}

// DetectAndTrackObjects walks the whole video: the detector runs every
// DetectionInterval frames and every active track is advanced on every
// frame.  Detections overlapping an existing track re-anchor it; the rest
// spawn new tracks.  Rows come back ordered by frame ascending with each
// frame's detection rows ahead of its tracking rows.
//
// Cancellation is honored at frame granularity: on ctx cancellation the
// rows accumulated so far are returned together with ctx.Err().
func (p *Pipeline) DetectAndTrackObjects(ctx context.Context,
	src FrameSource, opts TrackOptions) ([]TrackingResult, error) {

	interval := opts.DetectionInterval

	if interval <= 0 {
		interval = p.cfg.Detect.Interval
	}

	minConf := opts.MinConfidence

	if minConf <= 0 {
		minConf = p.cfg.Detect.BoxThreshold
	}

	rot := src.Rotation()
	effW, effH := src.Resolution()

	var results []TrackingResult

	total := src.Frames()

	for i := 0; i < total; i++ {

		if err := ctx.Err(); err != nil {
			return results, err
		}

		frame, err := src.Frame(ctx, i)

		if err != nil {
			if errors.Is(err, ErrFrameUnavailable) {
				p.log.Warn("skipping undecodable frame", zap.Int("frame", i))
				continue
			}
			return results, err
		}

		// tracks that got re-anchored by a detection this frame skip the
		// appearance advance, their state is already current
		anchored := make(map[string]bool)

		if p.detector != nil && interval > 0 && i%interval == 0 {
			rows := p.detectFrame(frame, i, opts.TargetClassName, minConf,
				rot, effW, effH, anchored)
			results = append(results, rows...)
		}

		results = append(results, p.advanceFrame(frame, i, rot, effW, effH,
			anchored)...)

		frame.Close()
	}

	p.log.Info("batch complete", zap.Int("frames", total),
		zap.Int("rows", len(results)), zap.Int("tracks", len(p.order)))

	return results, nil
}

// detectFrame runs one detection pass, claims overlapping tracks, spawns
// tracks for the rest and returns the frame's detection rows
func (p *Pipeline) detectFrame(frame gocv.Mat, frameID int,
	targetClass string, minConf float32, rot coords.Rotation,
	effW, effH int, anchored map[string]bool) []TrackingResult {

	cands := p.detector.Detect(frame, nil)

	filtered := cands[:0]

	for _, det := range cands {
		if det.Confidence < minConf {
			continue
		}
		if targetClass != "" && det.ClassName != targetClass {
			continue
		}
		filtered = append(filtered, det)
	}

	if len(filtered) == 0 {
		return nil
	}

	// detection boxes move into raw pixel space to match track state
	rects := make([]tracker.Rect, len(filtered))
	objects := make([]tracker.Object, len(filtered))

	for n, det := range filtered {
		pix := coords.Denormalize(det.Box, frame.Cols(), frame.Rows())
		rects[n] = tracker.NewRect(pix.X, pix.Y, pix.Width, pix.Height)
		objects[n] = tracker.NewObject(rects[n], det.Class, det.Confidence,
			int64(n))
	}

	live := p.activeTracks()

	assignment, err := tracker.MatchDetections(live, objects,
		p.cfg.Detect.ClaimIoU)

	if err != nil {
		p.log.Warn("detection assignment failed", zap.Int("frame", frameID),
			zap.Error(err))
		assignment = tracker.Assignment{
			UnmatchedDetected: seq(len(filtered)),
		}
	}

	// detection index -> owning object ID
	owner := make(map[int]string, len(filtered))

	for _, m := range assignment.Matches {
		track := live[m[0]]
		det := m[1]

		if err := p.visual.ReAnchor(track, rects[det], filtered[det].Confidence,
			frame, frameID); err != nil {
			p.log.Warn("re-anchor failed", zap.String("objectId", track.ID()),
				zap.Error(err))
		}

		owner[det] = track.ID()
		anchored[track.ID()] = true
	}

	for _, det := range assignment.UnmatchedDetected {
		id := uuid.NewString()
		track := tracker.NewTrack(id, rects[det], filtered[det].Confidence,
			filtered[det].Class, filtered[det].ClassName, frameID)

		if err := p.visual.StartTracking(track, frame); err != nil {
			// no track handle exists, so the detection row carries no id
			p.log.Warn("detection region not trackable",
				zap.Int("frame", frameID), zap.Error(err))
			continue
		}

		p.addTrack(track)
		owner[det] = id
		anchored[id] = true

		p.log.Debug("track started", zap.String("objectId", id),
			zap.String("class", filtered[det].ClassName),
			zap.Int("frame", frameID))
	}

	rows := make([]TrackingResult, 0, len(filtered))

	for n, det := range filtered {
		box, certain := coords.ApplyRotation(det.Box, rot)

		rows = append(rows, TrackingResult{
			ObjectID:           owner[n],
			FrameIndex:         frameID,
			ClassName:          det.ClassName,
			Confidence:         det.Confidence,
			Source:             SourceDetection,
			Box:                coords.Denormalize(box, effW, effH),
			TransformUncertain: !certain,
		})
	}

	return rows
}

// advanceFrame advances every active track through the frame and returns
// the frame's tracking rows, retiring tracks that transition to Lost
func (p *Pipeline) advanceFrame(frame gocv.Mat, frameID int,
	rot coords.Rotation, effW, effH int,
	anchored map[string]bool) []TrackingResult {

	var rows []TrackingResult

	for _, track := range p.activeTracks() {

		var norm coords.Box
		var score float32

		if anchored[track.ID()] {
			// freshly re-anchored, report the anchored position directly
			r := track.GetRect()
			norm = coords.Normalize(
				coords.NewBox(r.X(), r.Y(), r.Width(), r.Height()),
				frame.Cols(), frame.Rows())
			score = track.Score()
		} else {
			res, ok := p.visual.Advance(track, frame, frameID)

			if !ok {
				if track.State() == tracker.Lost {
					p.retireTrack(track.ID())
					p.log.Info("track lost", zap.String("objectId", track.ID()),
						zap.Int("frame", frameID))
				}
				continue
			}

			// the tracker reports bottom left origin, everything above it
			// is top left
			norm = coords.FlipVertical(res.Box)
			score = res.Score
		}

		p.trail.Add(track)

		box, certain := coords.ApplyRotation(norm, rot)

		rows = append(rows, TrackingResult{
			ObjectID:           track.ID(),
			FrameIndex:         frameID,
			ClassName:          track.ClassName(),
			Confidence:         score,
			Source:             SourceTracking,
			Box:                coords.Denormalize(box, effW, effH),
			TransformUncertain: !certain,
		})
	}

	return rows
}

// activeTracks returns the live tracks in creation order
func (p *Pipeline) activeTracks() []*tracker.Track {

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*tracker.Track, 0, len(p.order))

	for _, id := range p.order {
		if t := p.tracks[id]; t != nil && t.State() == tracker.Active {
			out = append(out, t)
		}
	}

	return out
}

func (p *Pipeline) addTrack(t *tracker.Track) {
	p.mu.Lock()
	p.tracks[t.ID()] = t
	p.order = append(p.order, t.ID())
	p.mu.Unlock()
}

func (p *Pipeline) retireTrack(id string) {

	p.visual.StopTracking(id)
	p.trail.Remove(id)

	p.mu.Lock()
	delete(p.tracks, id)

	for n, tid := range p.order {
		if tid == id {
			p.order = append(p.order[:n], p.order[n+1:]...)
			break
		}
	}
	p.mu.Unlock()
}

// ActiveTracks returns the live tracks in creation order, for overlay
// rendering alongside Trail
func (p *Pipeline) ActiveTracks() []*tracker.Track {
	return p.activeTracks()
}

// Trail returns the position history of the live tracks, in raw frame
// pixel space
func (p *Pipeline) Trail() *tracker.Trail {
	return p.trail
}

// Track returns the live track for an object ID, or nil once it is lost
// or was never created
func (p *Pipeline) Track(id string) *tracker.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracks[id]
}

// Close releases the model, detector and tracking state
func (p *Pipeline) Close() error {

	if p.visual != nil {
		p.visual.Close()
	}

	if d, ok := p.detector.(*YOLODetector); ok {
		d.Close()
	}

	if p.model != nil {
		return p.model.Close()
	}

	return nil
}

func seq(n int) []int {

	out := make([]int, n)

	for i := range out {
		out[i] = i
	}

	return out
}
