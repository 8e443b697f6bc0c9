package tracker

import (
	"testing"
)

// costs are framed the way MatchDetections builds them: rows are live
// tracks, columns are detections, each cell 1 minus the pair's overlap
func runAssignmentCase(t *testing.T, cost [][]float64, wantX, wantY []int) {
	t.Helper()

	n := len(cost)
	x := make([]int, n)
	y := make([]int, n)

	ret, err := lapjvInternal(n, cost, x, y)

	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if ret != 0 {
		t.Fatalf("solve returned %d", ret)
	}

	for i := 0; i < n; i++ {
		if x[i] != wantX[i] {
			t.Errorf("track %d assigned detection %d, want %d", i, x[i], wantX[i])
		}
		if y[i] != wantY[i] {
			t.Errorf("detection %d assigned track %d, want %d", i, y[i], wantY[i])
		}
	}
}

func TestLapjvInternal(t *testing.T) {

	t.Run("each track overlaps its own detection", func(t *testing.T) {
		runAssignmentCase(t, [][]float64{
			{0.1, 0.9, 0.8},
			{0.9, 0.2, 0.7},
			{0.8, 0.9, 0.3},
		}, []int{0, 1, 2}, []int{0, 1, 2})
	})

	t.Run("two tracks crossed over", func(t *testing.T) {
		runAssignmentCase(t, [][]float64{
			{0.9, 0.1, 0.9},
			{0.2, 0.9, 0.8},
			{0.9, 0.9, 0.1},
		}, []int{1, 0, 2}, []int{1, 0, 2})
	})

	t.Run("four tracks one swap", func(t *testing.T) {
		runAssignmentCase(t, [][]float64{
			{0.2, 0.9, 0.9, 0.9},
			{0.9, 0.9, 0.3, 0.9},
			{0.9, 0.1, 0.9, 0.9},
			{0.9, 0.9, 0.9, 0.4},
		}, []int{0, 2, 1, 3}, []int{0, 2, 1, 3})
	})
}
