package tracker

import "testing"

func TestMatchDetectionsClaims(t *testing.T) {

	tracks := []*Track{
		NewTrack("a", NewRect(100, 100, 50, 50), 0.9, 0, "", 0),
		NewTrack("b", NewRect(400, 400, 60, 60), 0.9, 0, "", 0),
	}

	detections := []Object{
		// near track b
		NewObject(NewRect(405, 398, 58, 62), 0, 0.8, 0),
		// near track a
		NewObject(NewRect(102, 99, 50, 52), 0, 0.7, 1),
		// far from everything
		NewObject(NewRect(700, 50, 40, 40), 0, 0.6, 2),
	}

	assignment, err := MatchDetections(tracks, detections, 0.5)

	if err != nil {
		t.Fatalf("matching failed: %v", err)
	}

	if len(assignment.Matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(assignment.Matches),
			assignment)
	}

	matched := map[int]int{}

	for _, m := range assignment.Matches {
		matched[m[0]] = m[1]
	}

	if matched[0] != 1 || matched[1] != 0 {
		t.Errorf("wrong pairing: %v", matched)
	}

	if len(assignment.UnmatchedDetected) != 1 ||
		assignment.UnmatchedDetected[0] != 2 {
		t.Errorf("unmatched detections = %v, want [2]",
			assignment.UnmatchedDetected)
	}

	if len(assignment.UnmatchedTracks) != 0 {
		t.Errorf("unmatched tracks = %v, want none",
			assignment.UnmatchedTracks)
	}
}

func TestMatchDetectionsThreshold(t *testing.T) {

	tracks := []*Track{
		NewTrack("a", NewRect(0, 0, 100, 100), 0.9, 0, "", 0),
	}

	// IoU 50x100 / (10000 + 10000 - 5000) = 1/3, under a 0.5 threshold
	detections := []Object{
		NewObject(NewRect(50, 0, 100, 100), 0, 0.8, 0),
	}

	assignment, err := MatchDetections(tracks, detections, 0.5)

	if err != nil {
		t.Fatalf("matching failed: %v", err)
	}

	if len(assignment.Matches) != 0 {
		t.Errorf("weak overlap was matched: %+v", assignment.Matches)
	}

	if len(assignment.UnmatchedTracks) != 1 ||
		len(assignment.UnmatchedDetected) != 1 {
		t.Errorf("both sides should be unmatched: %+v", assignment)
	}
}

func TestMatchDetectionsEmptySides(t *testing.T) {

	track := NewTrack("a", NewRect(0, 0, 100, 100), 0.9, 0, "", 0)

	assignment, err := MatchDetections(nil,
		[]Object{NewObject(NewRect(0, 0, 10, 10), 0, 0.5, 0)}, 0.5)

	if err != nil {
		t.Fatalf("matching failed: %v", err)
	}

	if len(assignment.UnmatchedDetected) != 1 {
		t.Errorf("no tracks: unmatched detections = %v",
			assignment.UnmatchedDetected)
	}

	assignment, err = MatchDetections([]*Track{track}, nil, 0.5)

	if err != nil {
		t.Fatalf("matching failed: %v", err)
	}

	if len(assignment.UnmatchedTracks) != 1 {
		t.Errorf("no detections: unmatched tracks = %v",
			assignment.UnmatchedTracks)
	}
}
