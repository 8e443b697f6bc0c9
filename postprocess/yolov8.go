package postprocess

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when an output tensor does not have the
// layout the decoder was configured for.  The decode yields no candidates
// but a multi frame batch carries on.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// YOLOv8 decodes the single output tensor of a YOLOv8 style detection model.
// The tensor layout is [1, F, N] where F = 4 (box) + 1 (objectness) +
// ObjectClassNum + MaskCoefNum and N is the anchor slot count.
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// idGen is a counter that increments and provides the next number
	// for each detection result ID
	idGen *idGenerator
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// ObjThreshold is the minimum objectness score an anchor slot needs
	// before its class scores are scanned at all
	ObjThreshold float32
	// BoxThreshold is the minimum final confidence (objectness multiplied by
	// best class score) required for a candidate to be reported
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaskCoefNum is the number of segmentation mask coefficients appended
	// to each anchor slot, 0 for plain detection models
	MaskCoefNum int
	// AnchorCount is the number of anchor slots N in the output tensor
	AnchorCount int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
}

// YOLOv8COCOParams returns an instance of YOLOv8Params configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 80
// - Objectness Threshold: 0.1
// - Box Threshold: 0.1
// - NMS Threshold: 0.45
// - Anchor Count: 8400
// - Maximum Object Number: 64
func YOLOv8COCOParams() YOLOv8Params {
	return YOLOv8Params{
		ObjThreshold:    0.1,
		BoxThreshold:    0.1,
		NMSThreshold:    0.45,
		ObjectClassNum:  80,
		MaskCoefNum:     0,
		AnchorCount:     8400,
		MaxObjectNumber: 64,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return &YOLOv8{
		Params: p,
		idGen:  newIDGenerator(),
	}
}

// Trace is an optional observability hook passed into decode calls.  Either
// func may be nil.  It replaces any notion of global debug state: all
// intermediate values flow through here or nowhere.
type Trace struct {
	// OnSlot is invoked for every anchor slot that passes the objectness
	// gate, before class scores are scanned
	OnSlot func(slot int, objectness float32)
	// OnCandidate is invoked for every accepted candidate before
	// suppression
	OnCandidate func(slot int, det DetectResult)
}

// featuresPerSlot is the F dimension of the output tensor
func (y *YOLOv8) featuresPerSlot() int {
	return 4 + 1 + y.Params.ObjectClassNum + y.Params.MaskCoefNum
}

// checkShape validates the output tensor dimensions against the configured
// layout.  A leading batch dimension of 1 is accepted and ignored.
func (y *YOLOv8) checkShape(shape []int) error {

	if len(shape) == 3 {
		if shape[0] != 1 {
			return fmt.Errorf("%w: batch dimension %d, want 1",
				ErrShapeMismatch, shape[0])
		}
		shape = shape[1:]
	}

	if len(shape) != 2 {
		return fmt.Errorf("%w: got %d dimensions, want [1, F, N]",
			ErrShapeMismatch, len(shape))
	}

	if shape[0] != y.featuresPerSlot() || shape[1] != y.Params.AnchorCount {
		return fmt.Errorf("%w: got [%d, %d], want [%d, %d]",
			ErrShapeMismatch, shape[0], shape[1],
			y.featuresPerSlot(), y.Params.AnchorCount)
	}

	return nil
}

// DetectObjects decodes a flat output tensor buffer into de-duplicated
// detection results.  Boxes are converted from the tensor's center format
// (cx, cy, w, h) to corner format before leaving this package; all
// downstream consumers use corner format exclusively.  Every anchor slot is
// scanned, never a truncated subset.  On a shape mismatch an error is
// returned together with an empty result list.
func (y *YOLOv8) DetectObjects(buf []float32, shape []int,
	trace *Trace) ([]DetectResult, error) {

	if err := y.checkShape(shape); err != nil {
		return nil, err
	}

	n := y.Params.AnchorCount
	classNum := y.Params.ObjectClassNum

	if len(buf) < y.featuresPerSlot()*n {
		return nil, fmt.Errorf("%w: buffer holds %d values, want %d",
			ErrShapeMismatch, len(buf), y.featuresPerSlot()*n)
	}

	var candidates []DetectResult

	for i := 0; i < n; i++ {

		objectness := buf[4*n+i]

		if objectness <= y.Params.ObjThreshold {
			continue
		}

		if trace != nil && trace.OnSlot != nil {
			trace.OnSlot(i, objectness)
		}

		// scan the class scores for this slot
		maxClassID := -1
		maxScore := float32(0)

		for c := 0; c < classNum; c++ {
			score := buf[(5+c)*n+i]

			if score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		confidence := objectness * maxScore

		if confidence <= y.Params.BoxThreshold || maxClassID < 0 ||
			maxClassID >= classNum {
			continue
		}

		// box is stored center format (cx, cy, w, h)
		cx := buf[0*n+i]
		cy := buf[1*n+i]
		w := buf[2*n+i]
		h := buf[3*n+i]

		det := DetectResult{
			Class: maxClassID,
			Box: Rect{
				X:      cx - w/2,
				Y:      cy - h/2,
				Width:  w,
				Height: h,
			},
			Probability: confidence,
			ID:          y.idGen.GetNext(),
		}

		if y.Params.MaskCoefNum > 0 {
			det.MaskCoef = make([]float32, y.Params.MaskCoefNum)
			for m := 0; m < y.Params.MaskCoefNum; m++ {
				det.MaskCoef[m] = buf[(5+classNum+m)*n+i]
			}
		}

		if trace != nil && trace.OnCandidate != nil {
			trace.OnCandidate(i, det)
		}

		candidates = append(candidates, det)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	group := Suppress(candidates, y.Params.NMSThreshold, true)

	if len(group) > y.Params.MaxObjectNumber {
		group = group[:y.Params.MaxObjectNumber]
	}

	return group, nil
}
