package tracker

import (
	"fmt"
	"math"
)

// Assignment is the result of matching fresh detections against the live
// track set.  Matches pairs a track index with a detection index; the
// unmatched lists carry the indices left over on each side.
type Assignment struct {
	Matches           [][2]int
	UnmatchedTracks   []int
	UnmatchedDetected []int
}

// MatchDetections associates detections with active tracks by solving a
// linear assignment over the IoU cost matrix (1 - IoU).  Pairs whose IoU
// falls below iouThreshold stay unmatched; an unmatched detection is a
// candidate for a brand new track, an unmatched track simply carries on
// with appearance tracking.
func MatchDetections(tracks []*Track, detections []Object,
	iouThreshold float32) (Assignment, error) {

	cost := iouCostMatrix(tracks, detections)

	matches, unmatchedTracks, unmatchedDets, err := linearAssignment(
		cost, len(tracks), len(detections), 1-iouThreshold)

	if err != nil {
		return Assignment{}, fmt.Errorf("error matching detections: %w", err)
	}

	return Assignment{
		Matches:           matches,
		UnmatchedTracks:   unmatchedTracks,
		UnmatchedDetected: unmatchedDets,
	}, nil
}

// iouCostMatrix builds the (1 - IoU) cost matrix between track boxes and
// detection boxes
func iouCostMatrix(tracks []*Track, detections []Object) [][]float32 {

	if len(tracks)*len(detections) == 0 {
		return nil
	}

	cost := make([][]float32, len(tracks))

	for ti, track := range tracks {
		cost[ti] = make([]float32, len(detections))

		for di := range detections {
			cost[ti][di] = 1 - detections[di].Rect.CalcIoU(*track.GetRect())
		}
	}

	return cost
}

// linearAssignment solves the assignment problem with the LAPJV algorithm
func linearAssignment(costMatrix [][]float32, nRows, nCols int,
	thresh float32) (matchesIdx [][2]int, unmatchRowIdx,
	unmatchColIdx []int, fatalErr error) {

	if len(costMatrix) == 0 {
		for i := 0; i < nRows; i++ {
			unmatchRowIdx = append(unmatchRowIdx, i)
		}
		for i := 0; i < nCols; i++ {
			unmatchColIdx = append(unmatchColIdx, i)
		}
		return
	}

	rowsol, colsol, fatalErr := execLapjv(costMatrix, true, thresh)

	if fatalErr != nil {
		return
	}

	for i, sol := range rowsol {
		if sol >= 0 {
			matchesIdx = append(matchesIdx, [2]int{i, sol})
		} else {
			unmatchRowIdx = append(unmatchRowIdx, i)
		}
	}
	for i, sol := range colsol {
		if sol < 0 {
			unmatchColIdx = append(unmatchColIdx, i)
		}
	}

	return
}

// execLapjv prepares the cost matrix (padding it square and applying the
// cost limit) and runs the LAPJV solver
func execLapjv(cost [][]float32, extendCost bool,
	costLimit float32) (rowsol []int, colsol []int, err error) {

	// Copy cost matrix
	costC := make([][]float32, len(cost))
	for i := range cost {
		costC[i] = make([]float32, len(cost[i]))
		copy(costC[i], cost[i])
	}

	nRows := len(cost)
	nCols := len(cost[0])
	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	n := 0
	if nRows == nCols {
		n = nRows
	} else {
		if !extendCost {
			return nil, nil, fmt.Errorf("the `extendCost` variable should be set to true")
		}
	}

	if extendCost || costLimit < float32(math.MaxFloat32) {
		n = nRows + nCols
		costCExtended := make([][]float32, n)
		for i := range costCExtended {
			costCExtended[i] = make([]float32, n)
		}

		if costLimit < float32(math.MaxFloat32) {
			for i := range costCExtended {
				for j := range costCExtended[i] {
					costCExtended[i][j] = costLimit / 2.0
				}
			}
		} else {
			costMax := float32(-1)
			for i := range costC {
				for j := range costC[i] {
					if costC[i][j] > costMax {
						costMax = costC[i][j]
					}
				}
			}
			for i := range costCExtended {
				for j := range costCExtended[i] {
					costCExtended[i][j] = costMax + 1
				}
			}
		}

		for i := nRows; i < len(costCExtended); i++ {
			for j := nCols; j < len(costCExtended[i]); j++ {
				costCExtended[i][j] = 0
			}
		}
		for i := 0; i < nRows; i++ {
			for j := 0; j < nCols; j++ {
				costCExtended[i][j] = costC[i][j]
			}
		}

		costC = costCExtended
	}

	costPtr := make([][]float64, n)
	for i := range costPtr {
		costPtr[i] = make([]float64, n)
		for j := range costPtr[i] {
			costPtr[i][j] = float64(costC[i][j])
		}
	}

	xC := make([]int, n)
	yC := make([]int, n)

	ret, err := lapjvInternal(n, costPtr, xC, yC)
	if ret != 0 || err != nil {
		return nil, nil, fmt.Errorf("the result of lapjvInternal() is invalid: %w", err)
	}

	if n != nRows {
		for i := 0; i < n; i++ {
			if xC[i] >= nCols {
				xC[i] = -1
			}
			if yC[i] >= nRows {
				yC[i] = -1
			}
		}
		for i := 0; i < nRows; i++ {
			rowsol[i] = xC[i]
		}
		for i := 0; i < nCols; i++ {
			colsol[i] = yC[i]
		}
	}

	return rowsol, colsol, nil
}
