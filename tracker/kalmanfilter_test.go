package tracker

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func stateNear(t *testing.T, got, want StateMean, eps float32) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("state length %d, want %d", len(got), len(want))
	}

	for i := range got {
		if diff := got[i] - want[i]; diff > eps || diff < -eps {
			t.Errorf("state[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func covNear(t *testing.T, got mat.Matrix, want *mat.Dense, eps float64) {
	t.Helper()

	r1, c1 := got.Dims()
	r2, c2 := want.Dims()

	if r1 != r2 || c1 != c2 {
		t.Fatalf("covariance dims %dx%d, want %dx%d", r1, c1, r2, c2)
	}

	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			if diff := got.At(i, j) - want.At(i, j); diff > eps || diff < -eps {
				t.Errorf("covariance[%d][%d] = %v, want %v",
					i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

// TestKalmanSeedPredictUpdate walks one filter cycle over a tracked box in
// xyah form and pins the state and covariance at each step.  The expected
// values fix the position and velocity noise weights, so a change to either
// shows up here first.
func TestKalmanSeedPredictUpdate(t *testing.T) {

	kf := NewKalmanFilter(1.0/20, 1.0/160)

	mean := make(StateMean, 8)
	covariance := &StateCov{mat.NewDense(8, 8, nil)}

	// track seeded from a box centered at (100,200), square, 50px tall
	seed := DetectBox{100.0, 200.0, 1.0, 50.0}
	kf.Initiate(mean, covariance, seed)

	stateNear(t, mean,
		StateMean{100.0, 200.0, 1.0, 50.0, 0.0, 0.0, 0.0, 0.0}, 1e-4)

	covNear(t, covariance, mat.NewDense(8, 8, []float64{
		25.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0,
		0.0, 25.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 9.999999747378752e-05, 0.0, 0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 25.0, 0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0, 9.765625, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0, 0.0, 9.765625, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 9.999999439624929e-11, 0.0,
		0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 9.765625,
	}), 1e-4)

	// with zero seeded velocity the predicted box stays put while the
	// uncertainty widens
	kf.Predict(mean, covariance)

	stateNear(t, mean,
		StateMean{100.0, 200.0, 1.0, 50.0, 0.0, 0.0, 0.0, 0.0}, 1e-4)

	covNear(t, covariance, mat.NewDense(8, 8, []float64{
		41.015625, 0.0, 0.0, 0.0, 9.765625, 0.0, 0.0, 0.0,
		0.0, 41.015625, 0.0, 0.0, 0.0, 9.765625, 0.0, 0.0,
		0.0, 0.0, 0.00020000009494756943, 0.0, 0.0, 0.0, 9.999999439624929e-11, 0.0,
		0.0, 0.0, 0.0, 41.015625, 0.0, 0.0, 0.0, 9.765625,
		9.765625, 0.0, 0.0, 0.0, 9.86328125, 0.0, 0.0, 0.0,
		0.0, 9.765625, 0.0, 0.0, 0.0, 9.86328125, 0.0, 0.0,
		0.0, 0.0, 9.999999439624929e-11, 0.0, 0.0, 0.0, 1.9999998879249858e-10, 0.0,
		0.0, 0.0, 0.0, 9.765625, 0.0, 0.0, 0.0, 9.86328125,
	}), 1e-4)

	// the box is re-observed slightly down-right and taller
	observed := DetectBox{105.0, 205.0, 1.1, 55.0}

	if err := kf.Update(mean, covariance, observed); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// the corrected state moves most of the way to the observation and
	// picks up velocity toward it
	stateNear(t, mean, StateMean{104.338844, 204.338837, 1.001961,
		54.338844, 1.033058, 1.033058, 0.0, 1.033058}, 1e-4)

	covNear(t, covariance, mat.NewDense(8, 8, []float64{
		5.423553719008268, 0.0, 0.0, 0.0, 1.2913223140495873, 0.0, 0.0, 0.0,
		0.0, 5.423553719008268, 0.0, 0.0, 0.0, 1.2913223140495873, 0.0, 0.0,
		0.0, 0.0, 0.00019607852290531608, 0.0, 0.0, 0.0, 9.803920941585902e-11, 0.0,
		0.0, 0.0, 0.0, 5.423553719008268, 0.0, 0.0, 0.0, 1.2913223140495873,
		1.291322314049589, 0.0, 0.0, 0.0, 7.845590134297521, 0.0, 0.0, 0.0,
		0.0, 1.291322314049589, 0.0, 0.0, 0.0, 7.845590134297521, 0.0, 0.0,
		0.0, 0.0, 9.803920941585902e-11, 0.0, 0.0, 0.0, 1.9999998781210662e-10, 0.0,
		0.0, 0.0, 0.0, 1.291322314049589, 0.0, 0.0, 0.0, 7.845590134297521,
	}), 1e-4)
}

// TestKalmanSettlesOnStationaryBox re-observes the same box every cycle and
// expects the state to converge onto it with the velocity dying out, the
// behavior a parked object produces
func TestKalmanSettlesOnStationaryBox(t *testing.T) {

	kf := NewKalmanFilter(1.0/20, 1.0/160)

	mean := make(StateMean, 8)
	covariance := &StateCov{mat.NewDense(8, 8, nil)}

	kf.Initiate(mean, covariance, DetectBox{100.0, 200.0, 1.0, 50.0})

	parked := DetectBox{140.0, 230.0, 1.2, 60.0}

	for i := 0; i < 60; i++ {
		kf.Predict(mean, covariance)

		if err := kf.Update(mean, covariance, parked); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}

	for i, want := range parked {
		if math.Abs(float64(mean[i]-want)) > 0.5 {
			t.Errorf("state[%d] = %f, want near %f", i, mean[i], want)
		}
	}

	for i := 4; i < 8; i++ {
		if math.Abs(float64(mean[i])) > 0.5 {
			t.Errorf("residual velocity state[%d] = %f", i, mean[i])
		}
	}
}
