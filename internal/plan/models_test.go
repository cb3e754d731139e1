package plan

import (
	"reflect"
	"testing"
)

func samplePlan() TimelinePlan {
	return TimelinePlan{
		ARollURL:      "https://cdn.test/a.mp4",
		ARollDuration: 42.5,
		Transcript: []TranscriptSegment{
			{StartSec: 0, EndSec: 3.2, Text: "welcome back"},
			{StartSec: 3.2, EndSec: 8, Text: "today we talk about food"},
		},
		Insertions: []Insertion{
			{StartSec: 5, DurationSec: 2.5, BRollID: "b1", Confidence: 0.9, Reason: "mentions food"},
			{StartSec: 20, DurationSec: 2, BRollID: "b2", Confidence: 0.7, Reason: "pacing break"},
		},
		BRolls: []BRollClip{
			{ID: "b1", URL: "https://cdn.test/b1.mp4", Metadata: "cooking", DurationSec: 5, Description: "a pan on a stove"},
			{ID: "b2", URL: "https://cdn.test/b2.mp4", Metadata: "city", DurationSec: 7, Description: "a street at dusk"},
		},
	}
}

func TestPlan_RoundTrip(t *testing.T) {
	original := samplePlan()

	data, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := DecodePlan(data)
	if err != nil {
		t.Fatalf("DecodePlan() error = %v", err)
	}

	if !reflect.DeepEqual(original, *decoded) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", *decoded, original)
	}
}

func TestDecodePlan_Invalid(t *testing.T) {
	if _, err := DecodePlan([]byte("{not json")); err == nil {
		t.Error("DecodePlan() should fail on invalid JSON")
	}
}

func TestPlan_Clip(t *testing.T) {
	p := samplePlan()

	clip, ok := p.Clip("b2")
	if !ok {
		t.Fatal("Clip(b2) not found")
	}
	if clip.URL != "https://cdn.test/b2.mp4" {
		t.Errorf("clip.URL = %q", clip.URL)
	}

	if _, ok := p.Clip("missing"); ok {
		t.Error("Clip(missing) should not be found")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestIsTerminalStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{JobStatusQueued, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}
	for _, tt := range tests {
		if got := IsTerminalStatus(tt.status); got != tt.want {
			t.Errorf("IsTerminalStatus(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
