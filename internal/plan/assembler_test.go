package plan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/flona/broll-engine/internal/db"
)

type stubOracle struct {
	transcript    []TranscriptSegment
	arollDuration float64
	transcribeErr error

	descriptions map[string]ClipAnalysis
	describeErr  error

	candidates []Insertion
	proposeErr error
}

func (s *stubOracle) Transcribe(ctx context.Context, sourceURL string) ([]TranscriptSegment, float64, error) {
	if s.transcribeErr != nil {
		return nil, 0, s.transcribeErr
	}
	return s.transcript, s.arollDuration, nil
}

func (s *stubOracle) Describe(ctx context.Context, clip BRollClip) (ClipAnalysis, error) {
	if s.describeErr != nil {
		return ClipAnalysis{}, s.describeErr
	}
	if a, ok := s.descriptions[clip.ID]; ok {
		return a, nil
	}
	return ClipAnalysis{DurationSec: 4, Description: "stub clip"}, nil
}

func (s *stubOracle) ProposeInsertions(ctx context.Context, req ProposalRequest) ([]Insertion, error) {
	if s.proposeErr != nil {
		return nil, s.proposeErr
	}
	return s.candidates, nil
}

func setupTestRepo(t *testing.T) (*db.DB, Repository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewRepository(database.Conn())
}

func testSources() *SourceSet {
	return &SourceSet{
		ARoll: Source{URL: "https://cdn.test/a.mp4"},
		BRolls: []Source{
			{ID: "b1", URL: "https://cdn.test/b1.mp4", Metadata: "cooking"},
			{ID: "b2", URL: "https://cdn.test/b2.mp4", Metadata: "city"},
		},
	}
}

func healthyOracle() *stubOracle {
	return &stubOracle{
		transcript: []TranscriptSegment{
			{StartSec: 0, EndSec: 5, Text: "hello"},
			{StartSec: 5, EndSec: 12, Text: "let's cook"},
		},
		arollDuration: 40,
		descriptions: map[string]ClipAnalysis{
			"b1": {DurationSec: 5, Description: "a pan on a stove"},
			"b2": {DurationSec: 7, Description: "a street at dusk"},
		},
		candidates: []Insertion{
			{StartSec: 5, DurationSec: 2, Confidence: 0.9, BRollID: "b1", Reason: "cooking"},
			{StartSec: 15, DurationSec: 2.5, Confidence: 0.8, BRollID: "b2", Reason: "pacing"},
			{StartSec: 30, DurationSec: 2, Confidence: 0.7, BRollID: "b1", Reason: "callback"},
		},
	}
}

func TestAssembler_GeneratePlan(t *testing.T) {
	_, repo := setupTestRepo(t)
	a := NewAssembler(healthyOracle(), repo, nil)

	run, err := a.GeneratePlan(context.Background(), testSources())
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}

	if run.ID == "" {
		t.Error("run.ID is empty")
	}
	if run.UnderConstrained {
		t.Error("run should not be under-constrained with 3 accepted candidates")
	}
	if len(run.Plan.Insertions) != 3 {
		t.Errorf("plan has %d insertions, want 3", len(run.Plan.Insertions))
	}
	if run.Plan.ARollURL != "https://cdn.test/a.mp4" {
		t.Errorf("plan.ARollURL = %q", run.Plan.ARollURL)
	}
	if clip, ok := run.Plan.Clip("b1"); !ok || clip.Description != "a pan on a stove" {
		t.Errorf("clip b1 missing oracle description: %+v", clip)
	}

	// The run must be persisted and readable as the latest.
	latest, err := repo.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest == nil || latest.ID != run.ID {
		t.Errorf("latest run = %+v, want id %s", latest, run.ID)
	}
}

func TestAssembler_TranscribeFailure(t *testing.T) {
	_, repo := setupTestRepo(t)
	oracle := healthyOracle()
	oracle.transcribeErr = fmt.Errorf("model unreachable")
	a := NewAssembler(oracle, repo, nil)

	_, err := a.GeneratePlan(context.Background(), testSources())

	var oe *OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OracleError", err)
	}
	if oe.Stage != "transcribe" {
		t.Errorf("stage = %q, want transcribe", oe.Stage)
	}

	latest, _ := repo.LatestRun(context.Background())
	if latest != nil {
		t.Error("no run should be persisted after an oracle failure")
	}
}

func TestAssembler_MalformedTranscript(t *testing.T) {
	_, repo := setupTestRepo(t)
	oracle := healthyOracle()
	oracle.transcript = []TranscriptSegment{
		{StartSec: 0, EndSec: 6, Text: "one"},
		{StartSec: 4, EndSec: 9, Text: "overlaps"},
	}
	a := NewAssembler(oracle, repo, nil)

	_, err := a.GeneratePlan(context.Background(), testSources())

	var oe *OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OracleError for overlapping segments", err)
	}
}

func TestAssembler_DescribeFailure(t *testing.T) {
	_, repo := setupTestRepo(t)
	oracle := healthyOracle()
	oracle.describeErr = fmt.Errorf("quota exceeded")
	a := NewAssembler(oracle, repo, nil)

	_, err := a.GeneratePlan(context.Background(), testSources())

	var oe *OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OracleError", err)
	}
	if oe.Stage != "describe" {
		t.Errorf("stage = %q, want describe", oe.Stage)
	}
}

func TestAssembler_NoSurvivingCandidates(t *testing.T) {
	_, repo := setupTestRepo(t)
	oracle := healthyOracle()
	oracle.candidates = []Insertion{
		{StartSec: 100, DurationSec: 2, Confidence: 0.9, BRollID: "b1"}, // past a-roll end
	}
	a := NewAssembler(oracle, repo, nil)

	_, err := a.GeneratePlan(context.Background(), testSources())
	if !errors.Is(err, ErrNoValidCandidates) {
		t.Fatalf("error = %v, want ErrNoValidCandidates", err)
	}

	latest, _ := repo.LatestRun(context.Background())
	if latest != nil {
		t.Error("no run should be persisted when validation fails")
	}
}

func TestAssembler_UnderConstrainedStillPersists(t *testing.T) {
	_, repo := setupTestRepo(t)
	oracle := healthyOracle()
	oracle.candidates = oracle.candidates[:1]
	a := NewAssembler(oracle, repo, nil)

	run, err := a.GeneratePlan(context.Background(), testSources())
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if !run.UnderConstrained {
		t.Error("run with 1 insertion should be under-constrained")
	}

	latest, _ := repo.LatestRun(context.Background())
	if latest == nil || !latest.UnderConstrained {
		t.Error("under-constrained flag should persist with the run")
	}
}

func TestSourceSet_Validate(t *testing.T) {
	s := &SourceSet{
		ARoll:  Source{URL: "https://cdn.test/a.mp4"},
		BRolls: []Source{{URL: "https://cdn.test/b.mp4"}},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.BRolls[0].ID != "broll_1" {
		t.Errorf("default id = %q, want broll_1", s.BRolls[0].ID)
	}

	if err := (&SourceSet{}).Validate(); err == nil {
		t.Error("Validate() should fail without an a_roll url")
	}

	dup := &SourceSet{
		ARoll: Source{URL: "https://cdn.test/a.mp4"},
		BRolls: []Source{
			{ID: "x", URL: "https://cdn.test/1.mp4"},
			{ID: "x", URL: "https://cdn.test/2.mp4"},
		},
	}
	if err := dup.Validate(); err == nil {
		t.Error("Validate() should fail on duplicate clip ids")
	}

	var many []Source
	for i := 0; i < MaxInsertions+1; i++ {
		many = append(many, Source{URL: fmt.Sprintf("https://cdn.test/%d.mp4", i)})
	}
	tooMany := &SourceSet{ARoll: Source{URL: "https://cdn.test/a.mp4"}, BRolls: many}
	if err := tooMany.Validate(); err == nil {
		t.Error("Validate() should fail with too many clips")
	}
}
