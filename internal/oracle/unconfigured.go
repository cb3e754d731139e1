package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flona/broll-engine/internal/plan"
)

// Unconfigured is the oracle used when no Gemini project is configured. Every
// call fails, so planning is disabled while the rest of the engine (status,
// render of previously persisted plans) keeps working.
type Unconfigured struct {
	logger *slog.Logger
}

func NewUnconfigured(logger *slog.Logger) *Unconfigured {
	return &Unconfigured{logger: logger}
}

func (u *Unconfigured) err() error {
	return fmt.Errorf("gemini oracle not configured: set BROLL_GEMINI_PROJECT")
}

func (u *Unconfigured) Transcribe(ctx context.Context, sourceURL string) ([]plan.TranscriptSegment, float64, error) {
	u.logger.Warn("oracle stub: transcription requested without configuration")
	return nil, 0, u.err()
}

func (u *Unconfigured) Describe(ctx context.Context, clip plan.BRollClip) (plan.ClipAnalysis, error) {
	u.logger.Warn("oracle stub: clip description requested without configuration")
	return plan.ClipAnalysis{}, u.err()
}

func (u *Unconfigured) ProposeInsertions(ctx context.Context, req plan.ProposalRequest) ([]plan.Insertion, error) {
	u.logger.Warn("oracle stub: candidate proposal requested without configuration")
	return nil, u.err()
}
