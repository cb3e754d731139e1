package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flona/broll-engine/internal/logging"
)

// describeConcurrency bounds parallel clip description calls so the oracle
// backend is not hammered with one request per clip at once.
const describeConcurrency = 2

// Source is one caller-supplied video reference.
type Source struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Metadata string `json:"metadata,omitempty"`
}

// SourceSet is the input to a planning run: one A-roll plus up to
// MaxInsertions B-roll clips.
type SourceSet struct {
	ARoll  Source   `json:"a_roll"`
	BRolls []Source `json:"b_rolls"`
}

// Validate checks the source set and fills in default clip ids.
func (s *SourceSet) Validate() error {
	if s.ARoll.URL == "" {
		return fmt.Errorf("a_roll url is required")
	}
	if len(s.BRolls) == 0 {
		return fmt.Errorf("at least one b_roll is required")
	}
	if len(s.BRolls) > MaxInsertions {
		return fmt.Errorf("at most %d b_rolls are supported, got %d", MaxInsertions, len(s.BRolls))
	}

	seen := make(map[string]bool, len(s.BRolls))
	for i := range s.BRolls {
		if s.BRolls[i].URL == "" {
			return fmt.Errorf("b_roll %d: url is required", i)
		}
		if s.BRolls[i].ID == "" {
			s.BRolls[i].ID = fmt.Sprintf("broll_%d", i+1)
		}
		if seen[s.BRolls[i].ID] {
			return fmt.Errorf("duplicate b_roll id %q", s.BRolls[i].ID)
		}
		seen[s.BRolls[i].ID] = true
	}
	return nil
}

// LoadSourceSet reads a source set from a JSON file (the sample data file).
func LoadSourceSet(path string) (*SourceSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source set: %w", err)
	}
	var s SourceSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse source set: %w", err)
	}
	return &s, nil
}

// Assembler runs a full planning pass: transcribe the A-roll, describe every
// clip, ask the oracle for candidates, validate them, persist the run.
type Assembler struct {
	oracle Oracle
	repo   Repository
	logger *slog.Logger
}

func NewAssembler(oracle Oracle, repo Repository, logger *slog.Logger) *Assembler {
	return &Assembler{oracle: oracle, repo: repo, logger: logger}
}

// GeneratePlan executes one planning run. On any oracle failure the run
// aborts with *OracleError and nothing is persisted; an empty
// post-filter candidate set aborts with ErrNoValidCandidates. Fewer than
// MinInsertions accepted candidates is a warning carried on the run, not an
// error.
func (a *Assembler) GeneratePlan(ctx context.Context, sources *SourceSet) (*Run, error) {
	if err := sources.Validate(); err != nil {
		return nil, err
	}

	transcript, arollDuration, err := a.oracle.Transcribe(ctx, sources.ARoll.URL)
	if err != nil {
		return nil, &OracleError{Stage: "transcribe", Err: err}
	}
	transcript, err = normalizeTranscript(transcript, arollDuration)
	if err != nil {
		return nil, &OracleError{Stage: "transcribe", Err: err}
	}
	if a.logger != nil {
		a.logger.Info("a-roll transcribed", "segments", len(transcript), "duration_sec", arollDuration)
	}

	clips, err := a.describeClips(ctx, sources.BRolls)
	if err != nil {
		return nil, &OracleError{Stage: "describe", Err: err}
	}

	candidates, err := a.oracle.ProposeInsertions(ctx, ProposalRequest{
		Transcript:    transcript,
		ARollDuration: arollDuration,
		Clips:         clips,
		Constraints:   DefaultConstraints(),
	})
	if err != nil {
		return nil, &OracleError{Stage: "propose", Err: err}
	}
	if a.logger != nil {
		a.logger.Info("candidates proposed", "count", len(candidates))
	}

	selection, err := Select(candidates, clips, arollDuration)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:               NewID(),
		UnderConstrained: selection.UnderConstrained,
		Plan: TimelinePlan{
			ARollURL:      sources.ARoll.URL,
			ARollDuration: arollDuration,
			Transcript:    transcript,
			Insertions:    selection.Insertions,
			BRolls:        clips,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := a.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	if a.logger != nil {
		logging.WithRunID(a.logger, run.ID).Info("plan generated",
			"insertions", len(selection.Insertions),
			"filtered", selection.Filtered,
			"rejected", selection.Rejected,
			"under_constrained", selection.UnderConstrained,
		)
	}
	return run, nil
}

// describeClips runs description calls with bounded concurrency. The calls
// are independent of each other; candidate proposal waits on all of them.
func (a *Assembler) describeClips(ctx context.Context, sources []Source) ([]BRollClip, error) {
	clips := make([]BRollClip, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(describeConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			clip := BRollClip{ID: src.ID, URL: src.URL, Metadata: src.Metadata}
			analysis, err := a.oracle.Describe(gctx, clip)
			if err != nil {
				return fmt.Errorf("clip %s: %w", src.ID, err)
			}
			clip.DurationSec = analysis.DurationSec
			clip.Description = analysis.Description
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

// normalizeTranscript sorts segments by start time and rejects malformed
// oracle output: inverted or negative timestamps, overlapping segments, or a
// non-positive total duration.
func normalizeTranscript(segments []TranscriptSegment, totalDuration float64) ([]TranscriptSegment, error) {
	if !finite(totalDuration) || totalDuration <= 0 {
		return nil, fmt.Errorf("invalid a-roll duration %v", totalDuration)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty transcript")
	}

	sorted := make([]TranscriptSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartSec < sorted[j].StartSec
	})

	for i, seg := range sorted {
		if !finite(seg.StartSec) || !finite(seg.EndSec) {
			return nil, fmt.Errorf("segment %d: non-numeric timestamps", i)
		}
		if seg.StartSec < 0 || seg.EndSec <= seg.StartSec {
			return nil, fmt.Errorf("segment %d: invalid interval [%v, %v]", i, seg.StartSec, seg.EndSec)
		}
		if i > 0 && seg.StartSec < sorted[i-1].EndSec {
			return nil, fmt.Errorf("segment %d overlaps its predecessor", i)
		}
	}
	return sorted, nil
}
