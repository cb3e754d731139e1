// Package plan defines the timeline plan model, the constraint
// validator/selector that turns raw oracle candidates into a valid plan, and
// the assembler that orchestrates a planning run.
package plan

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"
)

// Placement constraints enforced on every accepted plan.
const (
	MinInsertions = 3
	MaxInsertions = 6

	MinInsertionSec = 1.5
	MaxInsertionSec = 3.0

	MinGapSec = 5.0
)

// TranscriptSegment is one timestamped span of A-roll speech. Segments are
// ordered by start time and never overlap.
type TranscriptSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// BRollClip is one secondary clip available for insertion. Metadata is the
// caller-supplied hint; Description is the oracle's enhanced description.
type BRollClip struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Metadata    string  `json:"metadata,omitempty"`
	DurationSec float64 `json:"duration_sec"`
	Description string  `json:"description,omitempty"`
}

// Insertion schedules one B-roll clip over the A-roll visual track.
type Insertion struct {
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	BRollID     string  `json:"broll_id"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason,omitempty"`
}

// EndSec returns the end of the insertion interval.
func (i Insertion) EndSec() float64 {
	return i.StartSec + i.DurationSec
}

// TimelinePlan is the validated, persisted description of all insertions for
// one A-roll/B-roll set. It is immutable once created; ARollURL travels with
// the plan so a render job snapshot is self-contained.
type TimelinePlan struct {
	ARollURL      string              `json:"a_roll_url"`
	ARollDuration float64             `json:"a_roll_duration"`
	Transcript    []TranscriptSegment `json:"transcript"`
	Insertions    []Insertion         `json:"insertions"`
	BRolls        []BRollClip         `json:"b_rolls"`
}

// Clip returns the B-roll clip with the given id.
func (p *TimelinePlan) Clip(id string) (BRollClip, bool) {
	for _, c := range p.BRolls {
		if c.ID == id {
			return c, true
		}
	}
	return BRollClip{}, false
}

// Encode serializes the plan to its interchange JSON.
func (p *TimelinePlan) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePlan parses interchange JSON back into a plan.
func DecodePlan(data []byte) (*TimelinePlan, error) {
	var p TimelinePlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &p, nil
}

// Run is one completed planning run. The most recent run is the "current
// plan"; older runs stay readable by id.
type Run struct {
	ID               string       `json:"id"`
	UnderConstrained bool         `json:"under_constrained"`
	Plan             TimelinePlan `json:"plan"`
	CreatedAt        time.Time    `json:"created_at"`
}

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// IsTerminalStatus reports whether a render job status can never change again.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// RenderJob tracks one asynchronous render of a plan snapshot. Plan is copied
// by value at creation so later planning runs cannot touch an in-flight
// render.
type RenderJob struct {
	ID         string       `json:"id"`
	RunID      string       `json:"run_id"`
	Status     string       `json:"status"`
	OutputPath string       `json:"output_path,omitempty"`
	Error      string       `json:"error,omitempty"`
	Plan       TimelinePlan `json:"plan"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
