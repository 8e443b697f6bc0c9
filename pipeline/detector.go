package pipeline

import (
	"encoding/binary"
	"image/color"
	"strconv"

	trackfx "github.com/swdee/go-trackfx"
	"github.com/swdee/go-trackfx/coords"
	"github.com/swdee/go-trackfx/postprocess"
	"github.com/swdee/go-trackfx/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Detection is a single frame candidate produced by a Detector, expressed
// normalized (0..1) against the raw frame buffer, origin top left.  The
// orchestrator re-projects it into effective display space at the public
// boundary.
type Detection struct {
	Class      int
	ClassName  string
	Confidence float32
	Box        coords.Box
}

// Detector yields detections for one raw video frame.  Implementations
// must be safe to call repeatedly from the orchestrator loop; a failed
// frame returns an empty slice rather than an error so a long batch
// degrades gracefully.
type Detector interface {
	Detect(frame gocv.Mat, trace *postprocess.Trace) []Detection
}

// YOLODetector runs a loaded YOLO model over frames: letterbox resize,
// DNN inference, tensor decode, and duplicate suppression, with the
// letterbox scale and padding inverted on the way out.
type YOLODetector struct {
	model *trackfx.Model
	proc  *postprocess.YOLOv8
	log   *zap.Logger
	// resizer is cached and rebuilt when the source resolution changes
	resizer *preprocess.Resizer
	// letterboxed is reused across frames
	letterboxed gocv.Mat
}

// letterboxes are padded with neutral black, centered
var letterboxFill = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// NewYOLODetector wraps a loaded model with its post processor.  A nil
// model is allowed: Detect then returns no candidates and logs once per
// call, since detection is invoked opportunistically across many frames
// and one unloaded model must not abort a batch.
func NewYOLODetector(model *trackfx.Model, params postprocess.YOLOv8Params,
	log *zap.Logger) *YOLODetector {

	if log == nil {
		log = zap.NewNop()
	}

	return &YOLODetector{
		model:       model,
		proc:        postprocess.NewYOLOv8(params),
		log:         log,
		letterboxed: gocv.NewMat(),
	}
}

// Detect runs inference on the frame and returns decoded, suppressed
// candidates normalized against the raw frame, origin top left
func (d *YOLODetector) Detect(frame gocv.Mat, trace *postprocess.Trace) []Detection {

	if d.model == nil {
		d.log.Warn("detect called with no model loaded")
		return nil
	}

	if frame.Empty() {
		return nil
	}

	input := d.model.InputSize()

	// rebuild the resizer when the frame resolution changes
	if d.resizer == nil || d.resizer.SrcWidth() != frame.Cols() ||
		d.resizer.SrcHeight() != frame.Rows() {

		if d.resizer != nil {
			d.resizer.Close()
		}

		d.resizer = preprocess.NewResizer(frame.Cols(), frame.Rows(),
			input.X, input.Y)
	}

	d.resizer.LetterBoxResize(frame, &d.letterboxed, letterboxFill)

	blob := gocv.BlobFromImage(d.letterboxed, 1.0/255.0, input,
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	out, err := d.model.Forward(blob)

	if err != nil {
		out.Close()
		d.log.Warn("inference failed", zap.Error(err))
		return nil
	}

	defer out.Close()

	buf, err := tensorData(out)

	if err != nil {
		d.log.Warn("unsupported output tensor format", zap.Error(err))
		return nil
	}

	dets, err := d.proc.DetectObjects(buf, out.Size(), trace)

	if err != nil {
		// shape mismatch yields no candidates but never aborts a batch
		d.log.Warn("decoding output tensor failed", zap.Error(err))
		return nil
	}

	results := make([]Detection, 0, len(dets))

	for _, det := range dets {

		// invert the letterbox scale and padding back to source pixels,
		// then normalize
		box := d.resizer.NormalizedSourceBox(coords.NewBox(
			det.Box.X, det.Box.Y, det.Box.Width, det.Box.Height))

		if box.IsDegenerate() {
			continue
		}

		results = append(results, Detection{
			Class:      det.Class,
			ClassName:  d.model.ClassName(det.Class),
			Confidence: det.Probability,
			Box:        box,
		})
	}

	return results
}

// tensorData exposes the output tensor as float32 values.  Models exported
// with half precision outputs produce a CV16F tensor which is converted
// through the float16 lookup table; float32 tensors are addressed in place.
func tensorData(out gocv.Mat) ([]float32, error) {

	if out.Type() == gocv.MatTypeCV16F {
		return trackfx.Float16ToFloat32(halfWords(out.ToBytes())), nil
	}

	return out.DataPtrFloat32()
}

// halfWords reinterprets a raw tensor byte buffer as 16 bit words
func halfWords(data []byte) []uint16 {

	words := make([]uint16, len(data)/2)

	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[2*i:])
	}

	return words
}

// Close releases cached buffers
func (d *YOLODetector) Close() {

	if d.resizer != nil {
		d.resizer.Close()
		d.resizer = nil
	}

	d.letterboxed.Close()
}

// toDetectedObject maps a raw frame space Detection to the public boundary
// representation: effective resolution, top left origin, both normalized
// and pixel forms
func toDetectedObject(det Detection, rot coords.Rotation,
	effW, effH int) DetectedObject {

	box, certain := coords.ApplyRotation(det.Box, rot)

	return DetectedObject{
		ClassName:          det.ClassName,
		Confidence:         det.Confidence,
		Box:                box,
		PixelBox:           coords.Denormalize(box, effW, effH),
		Identifier:         strconv.Itoa(det.Class),
		TransformUncertain: !certain,
	}
}
