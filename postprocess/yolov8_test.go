package postprocess

import (
	"errors"
	"math"
	"testing"
)

// testParams is a small tensor layout that keeps the fixtures readable:
// 4 classes, 6 anchor slots, no mask coefficients, so F = 9
func testParams() YOLOv8Params {
	return YOLOv8Params{
		ObjThreshold:    0.1,
		BoxThreshold:    0.1,
		NMSThreshold:    0.45,
		ObjectClassNum:  4,
		AnchorCount:     6,
		MaxObjectNumber: 64,
	}
}

// testTensor returns a zeroed [F, N] buffer for testParams
func testTensor(p YOLOv8Params) []float32 {
	return make([]float32, (4+1+p.ObjectClassNum+p.MaskCoefNum)*p.AnchorCount)
}

// setSlot fills anchor slot i with a center format box, objectness and
// class scores
func setSlot(buf []float32, p YOLOv8Params, i int, cx, cy, w, h,
	objectness float32, classScores []float32) {

	n := p.AnchorCount
	buf[0*n+i] = cx
	buf[1*n+i] = cy
	buf[2*n+i] = w
	buf[3*n+i] = h
	buf[4*n+i] = objectness

	for c, score := range classScores {
		buf[(5+c)*n+i] = score
	}
}

func TestDetectObjectsConfidenceAndBox(t *testing.T) {

	p := testParams()
	buf := testTensor(p)

	// objectness 0.9, best class 0.8 at index 3
	setSlot(buf, p, 0, 320, 320, 100, 50, 0.9,
		[]float32{0.1, 0.05, 0.2, 0.8})

	proc := NewYOLOv8(p)
	dets, err := proc.DetectObjects(buf, []int{1, 9, 6}, nil)

	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}

	det := dets[0]

	if det.Class != 3 {
		t.Errorf("class = %d, want 3", det.Class)
	}

	if math.Abs(float64(det.Probability)-0.72) > 1e-5 {
		t.Errorf("probability = %f, want 0.72", det.Probability)
	}

	// center (320, 320) size (100, 50) converts to corner (270, 295)
	if det.Box.X != 270 || det.Box.Y != 295 ||
		det.Box.Width != 100 || det.Box.Height != 50 {
		t.Errorf("box = %+v, want corner (270, 295, 100, 50)", det.Box)
	}
}

func TestDetectObjectsObjectnessGate(t *testing.T) {

	p := testParams()
	buf := testTensor(p)

	// fails the objectness gate outright, class scores never matter
	setSlot(buf, p, 0, 100, 100, 40, 40, 0.05,
		[]float32{0.99, 0, 0, 0})

	// passes objectness but the product 0.2 * 0.4 = 0.08 is under the box
	// threshold
	setSlot(buf, p, 1, 200, 200, 40, 40, 0.2,
		[]float32{0.4, 0, 0, 0})

	// passes both: 0.5 * 0.5 = 0.25
	setSlot(buf, p, 2, 300, 300, 40, 40, 0.5,
		[]float32{0.5, 0, 0, 0})

	proc := NewYOLOv8(p)
	dets, err := proc.DetectObjects(buf, []int{9, 6}, nil)

	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}

	if dets[0].Box.X != 280 {
		t.Errorf("surviving detection is the wrong slot: %+v", dets[0])
	}
}

func TestDetectObjectsShapeMismatch(t *testing.T) {

	p := testParams()
	proc := NewYOLOv8(p)

	tests := []struct {
		name  string
		shape []int
	}{
		{"wrong feature count", []int{1, 10, 6}},
		{"wrong anchor count", []int{1, 9, 7}},
		{"batch over one", []int{2, 9, 6}},
		{"one dimension", []int{54}},
	}

	for _, tc := range tests {
		dets, err := proc.DetectObjects(testTensor(p), tc.shape, nil)

		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("%s: err = %v, want ErrShapeMismatch", tc.name, err)
		}

		if len(dets) != 0 {
			t.Errorf("%s: got %d detections on mismatch", tc.name, len(dets))
		}
	}
}

func TestDetectObjectsScansEverySlot(t *testing.T) {

	p := testParams()
	buf := testTensor(p)

	// the strongest detection sits in the very last slot
	setSlot(buf, p, p.AnchorCount-1, 500, 500, 60, 60, 0.9,
		[]float32{0, 0.9, 0, 0})

	proc := NewYOLOv8(p)
	dets, err := proc.DetectObjects(buf, []int{1, 9, 6}, nil)

	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(dets) != 1 || dets[0].Class != 1 {
		t.Fatalf("last slot not decoded, got %+v", dets)
	}
}

func TestDetectObjectsTrace(t *testing.T) {

	p := testParams()
	buf := testTensor(p)

	setSlot(buf, p, 0, 100, 100, 40, 40, 0.05, []float32{0.9, 0, 0, 0})
	setSlot(buf, p, 1, 200, 200, 40, 40, 0.9, []float32{0.9, 0, 0, 0})

	var slots []int
	var candidates []int

	trace := &Trace{
		OnSlot: func(slot int, objectness float32) {
			slots = append(slots, slot)
		},
		OnCandidate: func(slot int, det DetectResult) {
			candidates = append(candidates, slot)
		},
	}

	proc := NewYOLOv8(p)

	if _, err := proc.DetectObjects(buf, []int{1, 9, 6}, trace); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(slots) != 1 || slots[0] != 1 {
		t.Errorf("OnSlot saw %v, want only slot 1", slots)
	}

	if len(candidates) != 1 || candidates[0] != 1 {
		t.Errorf("OnCandidate saw %v, want only slot 1", candidates)
	}
}

func TestDetectObjectsMaskCoefficients(t *testing.T) {

	p := testParams()
	p.MaskCoefNum = 2

	buf := testTensor(p)
	n := p.AnchorCount

	setSlot(buf, p, 0, 100, 100, 40, 40, 0.9, []float32{0.9, 0, 0, 0})
	buf[(5+p.ObjectClassNum+0)*n+0] = 0.25
	buf[(5+p.ObjectClassNum+1)*n+0] = -0.5

	proc := NewYOLOv8(p)
	dets, err := proc.DetectObjects(buf, []int{1, 11, 6}, nil)

	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}

	coefs := dets[0].MaskCoef

	if len(coefs) != 2 || coefs[0] != 0.25 || coefs[1] != -0.5 {
		t.Errorf("mask coefficients = %v, want [0.25 -0.5]", coefs)
	}
}
