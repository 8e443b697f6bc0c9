package preprocess

import (
	"gocv.io/x/gocv"
	"image/color"
	"math"
	"testing"

	"github.com/swdee/go-trackfx/coords"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC1)

		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		resizer.LetterBoxResize(img, &resizedImg, black)

		if resizer.XPad() != tc.expectedXPad || resizer.YPad() != tc.expectedYPad {
			t.Errorf("Test failed for src (%d, %d): Padding values wrong, expected XPad=%d, YPad=%d, got xPad=%d, yPad=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad, resizer.XPad(), resizer.YPad())
		}

		if resizer.ScaleFactor() != tc.expectedScale {
			t.Errorf("Test failed for src (%d, %d): Scalefactor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.ScaleFactor())
		}

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func boxNear(a, b coords.Box, eps float64) bool {
	return math.Abs(float64(a.X-b.X)) <= eps &&
		math.Abs(float64(a.Y-b.Y)) <= eps &&
		math.Abs(float64(a.Width-b.Width)) <= eps &&
		math.Abs(float64(a.Height-b.Height)) <= eps
}

func TestSourceBox(t *testing.T) {

	// 1280x720 letterboxed into 640x640: scale 0.5, yPad 140
	resizer := NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	tests := []struct {
		name     string
		box      coords.Box
		expected coords.Box
	}{
		{
			"interior box",
			coords.NewBox(100, 240, 50, 60),
			coords.NewBox(200, 200, 100, 120),
		},
		{
			"full network area clamps to source",
			coords.NewBox(0, 0, 640, 640),
			coords.NewBox(0, 0, 1280, 720),
		},
		{
			"box inside top padding clamps to zero height",
			coords.NewBox(0, 0, 640, 100),
			coords.NewBox(0, 0, 1280, 0),
		},
	}

	for _, tc := range tests {
		got := resizer.SourceBox(tc.box)

		if !boxNear(got, tc.expected, 1e-3) {
			t.Errorf("%s: SourceBox(%+v) = %+v, want %+v",
				tc.name, tc.box, got, tc.expected)
		}
	}
}

func TestNormalizedSourceBox(t *testing.T) {

	resizer := NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	got := resizer.NormalizedSourceBox(coords.NewBox(100, 240, 50, 60))
	want := coords.NewBox(200.0/1280, 200.0/720, 100.0/1280, 120.0/720)

	if !boxNear(got, want, 1e-5) {
		t.Errorf("NormalizedSourceBox = %+v, want %+v", got, want)
	}
}
