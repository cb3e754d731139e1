package plan

import "context"

// Oracle is the external AI capability set consumed by the assembler. Any
// backend satisfying this contract is substitutable; responses are treated as
// unvalidated until they pass the selector.
type Oracle interface {
	// Transcribe returns ordered transcript segments for the A-roll plus its
	// total duration in seconds.
	Transcribe(ctx context.Context, sourceURL string) ([]TranscriptSegment, float64, error)

	// Describe returns the oracle's visual analysis of one B-roll clip.
	Describe(ctx context.Context, clip BRollClip) (ClipAnalysis, error)

	// ProposeInsertions returns raw candidate insertions. Candidates may
	// violate every constraint; the selector enforces validity.
	ProposeInsertions(ctx context.Context, req ProposalRequest) ([]Insertion, error)
}

// ClipAnalysis is the oracle's view of a single clip.
type ClipAnalysis struct {
	DurationSec float64
	Description string
}

// Constraints are the numeric placement rules handed to the candidate oracle
// so it can aim for a valid plan.
type Constraints struct {
	MinCount       int
	MaxCount       int
	MinDurationSec float64
	MaxDurationSec float64
	MinGapSec      float64
}

// DefaultConstraints returns the placement rules the selector enforces.
func DefaultConstraints() Constraints {
	return Constraints{
		MinCount:       MinInsertions,
		MaxCount:       MaxInsertions,
		MinDurationSec: MinInsertionSec,
		MaxDurationSec: MaxInsertionSec,
		MinGapSec:      MinGapSec,
	}
}

// ProposalRequest carries everything the candidate oracle needs.
type ProposalRequest struct {
	Transcript    []TranscriptSegment
	ARollDuration float64
	Clips         []BRollClip
	Constraints   Constraints
}
