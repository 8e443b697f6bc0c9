package postprocess

import (
	"math"
	"reflect"
	"testing"
)

func TestCalcIoU(t *testing.T) {

	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name string
		b    Rect
		want float32
	}{
		{"identical", Rect{X: 0, Y: 0, Width: 10, Height: 10}, 1.0},
		{"disjoint", Rect{X: 20, Y: 20, Width: 10, Height: 10}, 0.0},
		{"touching edges", Rect{X: 10, Y: 0, Width: 10, Height: 10}, 0.0},
		// overlap 5x10 = 50, union 100 + 100 - 50 = 150
		{"half shifted", Rect{X: 5, Y: 0, Width: 10, Height: 10}, 50.0 / 150.0},
		// contained 5x5 = 25, union 100
		{"contained", Rect{X: 0, Y: 0, Width: 5, Height: 5}, 0.25},
	}

	for _, tc := range tests {
		got := CalcIoU(a, tc.b)

		if math.Abs(float64(got-tc.want)) > 1e-6 {
			t.Errorf("%s: IoU = %f, want %f", tc.name, got, tc.want)
		}

		// symmetry
		if rev := CalcIoU(tc.b, a); rev != got {
			t.Errorf("%s: IoU not symmetric, %f vs %f", tc.name, got, rev)
		}
	}
}

func TestSuppressOverlap(t *testing.T) {

	// two candidates of the same class with IoU 0.6, over the 0.45
	// threshold, so the weaker one is dropped
	dets := []DetectResult{
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.7},
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 7.5}, Probability: 0.9},
	}

	if iou := CalcIoU(dets[0].Box, dets[1].Box); math.Abs(float64(iou)-0.75) > 1e-6 {
		t.Fatalf("fixture IoU = %f, want 0.75", iou)
	}

	keep := Suppress(dets, 0.45, true)

	if len(keep) != 1 {
		t.Fatalf("kept %d, want 1", len(keep))
	}

	if keep[0].Probability != 0.9 {
		t.Errorf("kept the weaker candidate: %+v", keep[0])
	}
}

func TestSuppressBelowThresholdKeepsBoth(t *testing.T) {

	// IoU 50/150 = 0.33, under threshold, both survive
	dets := []DetectResult{
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.7},
		{Class: 0, Box: Rect{X: 5, Y: 0, Width: 10, Height: 10}, Probability: 0.9},
	}

	keep := Suppress(dets, 0.45, true)

	if len(keep) != 2 {
		t.Fatalf("kept %d, want 2", len(keep))
	}

	// ordered probability descending
	if keep[0].Probability < keep[1].Probability {
		t.Errorf("results not ordered by probability: %+v", keep)
	}
}

func TestSuppressClassAware(t *testing.T) {

	// fully overlapping boxes of different classes never suppress each
	// other in class aware mode
	dets := []DetectResult{
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.9},
		{Class: 1, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.8},
	}

	if keep := Suppress(dets, 0.45, true); len(keep) != 2 {
		t.Errorf("class aware kept %d, want 2", len(keep))
	}

	if keep := Suppress(dets, 0.45, false); len(keep) != 1 {
		t.Errorf("class blind kept %d, want 1", len(keep))
	}
}

func TestSuppressIdempotent(t *testing.T) {

	dets := []DetectResult{
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.9},
		{Class: 0, Box: Rect{X: 1, Y: 1, Width: 10, Height: 10}, Probability: 0.8},
		{Class: 0, Box: Rect{X: 30, Y: 30, Width: 10, Height: 10}, Probability: 0.7},
		{Class: 1, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.6},
	}

	once := Suppress(dets, 0.45, true)
	twice := Suppress(once, 0.45, true)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("suppression not idempotent:\nonce:  %+v\ntwice: %+v",
			once, twice)
	}
}

func TestSuppressStableTies(t *testing.T) {

	// equal probabilities keep their input order
	dets := []DetectResult{
		{Class: 0, Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Probability: 0.5, ID: 1},
		{Class: 0, Box: Rect{X: 50, Y: 50, Width: 10, Height: 10}, Probability: 0.5, ID: 2},
	}

	keep := Suppress(dets, 0.45, true)

	if len(keep) != 2 || keep[0].ID != 1 || keep[1].ID != 2 {
		t.Errorf("tied candidates reordered: %+v", keep)
	}
}
