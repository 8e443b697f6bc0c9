package postprocess

import (
	"sort"
)

// CalcIoU returns the Intersection over Union of two corner format boxes.
// Disjoint boxes score 0, identical boxes score 1.
func CalcIoU(a, b Rect) float32 {

	ix1 := maxF(a.X, b.X)
	iy1 := maxF(a.Y, b.Y)
	ix2 := minF(a.X+a.Width, b.X+b.Width)
	iy2 := minF(a.Y+a.Height, b.Y+b.Height)

	iw := ix2 - ix1
	ih := iy2 - iy1

	if iw <= 0 || ih <= 0 {
		return 0
	}

	intersection := iw * ih
	union := a.Width*a.Height + b.Width*b.Height - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Suppress performs greedy Non-Maximum Suppression over the candidate
// detections.  Candidates are sorted by probability descending (stable for
// equal probabilities), the best remaining candidate is kept, and every
// remaining candidate overlapping it beyond the IoU threshold is dropped.
// When classAware is true only candidates of the same class suppress each
// other.  The returned slice is ordered probability descending; callers
// needing spatial order must re-sort.
func Suppress(dets []DetectResult, iouThreshold float32,
	classAware bool) []DetectResult {

	if len(dets) == 0 {
		return nil
	}

	sorted := make([]DetectResult, len(dets))
	copy(sorted, dets)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Probability > sorted[j].Probability
	})

	removed := make([]bool, len(sorted))
	keep := make([]DetectResult, 0, len(sorted))

	for i := range sorted {

		if removed[i] {
			continue
		}

		keep = append(keep, sorted[i])

		for j := i + 1; j < len(sorted); j++ {

			if removed[j] {
				continue
			}

			if classAware && sorted[j].Class != sorted[i].Class {
				continue
			}

			if CalcIoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				removed[j] = true
			}
		}
	}

	return keep
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
