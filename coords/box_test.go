package coords

import (
	"math"
	"testing"
)

const boxEpsilon = 1e-5

func boxNear(a, b Box, eps float64) bool {
	return math.Abs(float64(a.X-b.X)) <= eps &&
		math.Abs(float64(a.Y-b.Y)) <= eps &&
		math.Abs(float64(a.Width-b.Width)) <= eps &&
		math.Abs(float64(a.Height-b.Height)) <= eps
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {

	tests := []struct {
		box    Box
		width  int
		height int
	}{
		{NewBox(0, 0, 1920, 1080), 1920, 1080},
		{NewBox(100, 200, 300, 400), 1920, 1080},
		{NewBox(0.5, 0.5, 1, 1), 640, 640},
		{NewBox(1919, 1079, 1, 1), 1920, 1080},
	}

	for _, tc := range tests {
		norm := Normalize(tc.box, tc.width, tc.height)
		back := Denormalize(norm, tc.width, tc.height)

		if !boxNear(tc.box, back, 1e-2) {
			t.Errorf("round trip of %+v through %dx%d gave %+v",
				tc.box, tc.width, tc.height, back)
		}
	}
}

func TestFlipVerticalInvolution(t *testing.T) {

	tests := []Box{
		NewBox(0.1, 0.2, 0.3, 0.4),
		NewBox(0, 0, 1, 1),
		NewBox(0.5, 0.9, 0.2, 0.1),
	}

	for _, box := range tests {
		flipped := FlipVertical(box)
		back := FlipVertical(flipped)

		if !boxNear(box, back, boxEpsilon) {
			t.Errorf("double flip of %+v gave %+v", box, back)
		}
	}

	// a box hugging the bottom edge in y-up terms hugs the top edge in
	// y-down terms
	got := FlipVertical(NewBox(0.2, 0, 0.1, 0.3))

	if !boxNear(got, NewBox(0.2, 0.7, 0.1, 0.3), boxEpsilon) {
		t.Errorf("bottom edge flip gave %+v", got)
	}
}

func TestIsDegenerate(t *testing.T) {

	tests := []struct {
		box  Box
		want bool
	}{
		{NewBox(0.1, 0.1, 0.2, 0.2), false},
		{NewBox(0.1, 0.1, 0, 0.2), true},
		{NewBox(0.1, 0.1, 0.2, 0), true},
		{NewBox(0.1, 0.1, -0.2, 0.2), true},
	}

	for _, tc := range tests {
		if got := tc.box.IsDegenerate(); got != tc.want {
			t.Errorf("IsDegenerate(%+v) = %v, want %v", tc.box, got, tc.want)
		}
	}
}

func TestClampNormalized(t *testing.T) {

	got := ClampNormalized(NewBox(-0.1, 0.5, 0.4, 0.8))

	if got.X != 0 || got.Y != 0.5 {
		t.Errorf("origin not clamped, got %+v", got)
	}

	if got.X+got.Width > 1+boxEpsilon || got.Y+got.Height > 1+boxEpsilon {
		t.Errorf("extent not clamped, got %+v", got)
	}

	inside := NewBox(0.1, 0.2, 0.3, 0.4)

	if got := ClampNormalized(inside); !boxNear(got, inside, boxEpsilon) {
		t.Errorf("in-bounds box altered, got %+v", got)
	}
}
