package render

import (
	"image"
	"testing"
)

func TestExpandBox(t *testing.T) {

	box := image.Rect(100, 100, 200, 180)

	got := ExpandBox(box, 10)

	// edge midpoints offset by exactly the distance, so the bounds grow by
	// the distance on every side, give or take integer rounding
	tol := 2

	if got.Min.X > box.Min.X-10+tol || got.Min.X < box.Min.X-10-tol ||
		got.Min.Y > box.Min.Y-10+tol || got.Min.Y < box.Min.Y-10-tol ||
		got.Max.X < box.Max.X+10-tol || got.Max.X > box.Max.X+10+tol ||
		got.Max.Y < box.Max.Y+10-tol || got.Max.Y > box.Max.Y+10+tol {
		t.Errorf("ExpandBox(%v, 10) = %v", box, got)
	}

	// the original box is always contained
	if !box.In(got) {
		t.Errorf("expanded box %v does not contain %v", got, box)
	}
}

func TestExpandBoxZeroDistance(t *testing.T) {

	box := image.Rect(10, 10, 50, 50)

	if got := ExpandBox(box, 0); got != box {
		t.Errorf("zero distance altered box: %v", got)
	}

	if got := ExpandBox(box, -5); got != box {
		t.Errorf("negative distance altered box: %v", got)
	}
}
