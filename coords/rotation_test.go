package coords

import "testing"

func TestEffectiveResolution(t *testing.T) {

	tests := []struct {
		width  int
		height int
		rot    Rotation
		wantW  int
		wantH  int
	}{
		{1920, 1080, RotationNone, 1920, 1080},
		{1920, 1080, Rotation90, 1080, 1920},
		{1920, 1080, Rotation180, 1920, 1080},
		{1920, 1080, Rotation270, 1080, 1920},
		{1920, 1080, RotationUnknown, 1920, 1080},
	}

	for _, tc := range tests {
		w, h := EffectiveResolution(tc.width, tc.height, tc.rot)

		if w != tc.wantW || h != tc.wantH {
			t.Errorf("EffectiveResolution(%d, %d, %d) = %dx%d, want %dx%d",
				tc.width, tc.height, tc.rot, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestApplyRotationKnownPoints(t *testing.T) {

	// a box hugging the top left of the raw buffer
	box := NewBox(0, 0, 0.2, 0.1)

	tests := []struct {
		rot  Rotation
		want Box
	}{
		{RotationNone, NewBox(0, 0, 0.2, 0.1)},
		// clockwise 90: top left corner ends up top right
		{Rotation90, NewBox(0.9, 0, 0.1, 0.2)},
		{Rotation180, NewBox(0.8, 0.9, 0.2, 0.1)},
		{Rotation270, NewBox(0, 0.8, 0.1, 0.2)},
	}

	for _, tc := range tests {
		got, ok := ApplyRotation(box, tc.rot)

		if !ok {
			t.Errorf("rotation %d reported uncertain", tc.rot)
		}

		if !boxNear(got, tc.want, boxEpsilon) {
			t.Errorf("ApplyRotation(%+v, %d) = %+v, want %+v",
				box, tc.rot, got, tc.want)
		}
	}
}

func TestApplyRotationUnknownPassesThrough(t *testing.T) {

	box := NewBox(0.1, 0.2, 0.3, 0.4)
	got, ok := ApplyRotation(box, RotationUnknown)

	if ok {
		t.Error("unknown rotation reported certain")
	}

	if !boxNear(got, box, boxEpsilon) {
		t.Errorf("unknown rotation altered box: %+v", got)
	}
}

func TestInvertRotationRoundTrip(t *testing.T) {

	box := NewBox(0.25, 0.4, 0.3, 0.2)

	for _, rot := range []Rotation{RotationNone, Rotation90, Rotation180,
		Rotation270} {

		fwd, ok := ApplyRotation(box, rot)

		if !ok {
			t.Fatalf("rotation %d uncertain", rot)
		}

		back, ok := InvertRotation(fwd, rot)

		if !ok {
			t.Fatalf("inverse of rotation %d uncertain", rot)
		}

		if !boxNear(box, back, boxEpsilon) {
			t.Errorf("rotation %d round trip gave %+v", rot, back)
		}
	}
}
