// Package oracle implements the external AI capability set (transcription,
// clip description, insertion proposal) on Vertex AI Gemini. Responses are
// schema-unverified by nature; callers run them through the plan selector.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"

	"github.com/flona/broll-engine/internal/fetch"
	"github.com/flona/broll-engine/internal/plan"
)

const videoMIMEType = "video/mp4"

// Gemini talks to a Vertex AI generative model. Video sources are downloaded
// and sent inline with the prompt.
type Gemini struct {
	client  *vertexgenai.Client
	model   *vertexgenai.GenerativeModel
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

func NewGemini(ctx context.Context, projectID, location, modelName string, fetcher fetch.Fetcher, logger *slog.Logger) (*Gemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	m := c.GenerativeModel(modelName)
	return &Gemini{client: c, model: m, fetcher: fetcher, logger: logger}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Transcribe(ctx context.Context, sourceURL string) ([]plan.TranscriptSegment, float64, error) {
	video, err := g.fetcher.FetchBytes(ctx, sourceURL)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch a-roll: %w", err)
	}

	raw, err := g.generate(ctx,
		vertexgenai.Blob{MIMEType: videoMIMEType, Data: video},
		vertexgenai.Text(transcribePrompt),
	)
	if err != nil {
		return nil, 0, err
	}

	var resp struct {
		DurationSec float64                  `json:"duration_sec"`
		Segments    []plan.TranscriptSegment `json:"segments"`
	}
	if err := decodeResponse(raw, &resp); err != nil {
		return nil, 0, err
	}

	if g.logger != nil {
		g.logger.Debug("transcription received", "segments", len(resp.Segments), "duration_sec", resp.DurationSec)
	}
	return resp.Segments, resp.DurationSec, nil
}

func (g *Gemini) Describe(ctx context.Context, clip plan.BRollClip) (plan.ClipAnalysis, error) {
	video, err := g.fetcher.FetchBytes(ctx, clip.URL)
	if err != nil {
		return plan.ClipAnalysis{}, fmt.Errorf("failed to fetch clip %s: %w", clip.ID, err)
	}

	raw, err := g.generate(ctx,
		vertexgenai.Blob{MIMEType: videoMIMEType, Data: video},
		vertexgenai.Text(fmt.Sprintf(describePrompt, clip.Metadata)),
	)
	if err != nil {
		return plan.ClipAnalysis{}, err
	}

	var resp struct {
		DurationSec float64 `json:"duration_sec"`
		Description string  `json:"enhanced_description"`
	}
	if err := decodeResponse(raw, &resp); err != nil {
		return plan.ClipAnalysis{}, err
	}

	if resp.Description == "" {
		resp.Description = clip.Metadata
	}
	return plan.ClipAnalysis{DurationSec: resp.DurationSec, Description: resp.Description}, nil
}

func (g *Gemini) ProposeInsertions(ctx context.Context, req plan.ProposalRequest) ([]plan.Insertion, error) {
	raw, err := g.generate(ctx, vertexgenai.Text(buildProposalPrompt(req)))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Insertions []plan.Insertion `json:"insertions"`
	}
	if err := decodeResponse(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Insertions, nil
}

// generate sends parts to the model and returns the concatenated text of the
// first candidate.
func (g *Gemini) generate(ctx context.Context, parts ...vertexgenai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(vertexgenai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model returned no text parts")
	}
	return b.String(), nil
}

// decodeResponse strips an optional markdown code fence and unmarshals the
// remaining JSON.
func decodeResponse(raw string, v interface{}) error {
	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("unparseable model response: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding ``` or ```json fence, which the model
// adds despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx != -1 && strings.EqualFold(strings.TrimSpace(s[:idx]), "json") {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
