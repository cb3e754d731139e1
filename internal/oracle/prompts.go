package oracle

import (
	"fmt"
	"strings"

	"github.com/flona/broll-engine/internal/plan"
)

const transcribePrompt = `Analyze this video and provide a detailed transcript with timestamps.

Transcribe exactly what is said, in the language spoken.

Return ONLY a valid JSON object in this exact format:
{
    "duration_sec": <total video duration in seconds>,
    "segments": [
        {
            "start_sec": <start time in seconds>,
            "end_sec": <end time in seconds>,
            "text": "<transcribed text for this segment>"
        }
    ]
}

Rules:
1. Break the transcript into sentence-level segments
2. Each segment should be 2-8 seconds long
3. Timestamps must be accurate to 0.5 seconds
4. Include all spoken content
5. Return ONLY the JSON, no other text`

const describePrompt = `Analyze this B-roll video clip and provide information about it.

Existing metadata: %s

Return ONLY a valid JSON object in this exact format:
{
    "duration_sec": <video duration in seconds>,
    "enhanced_description": "<detailed description of visual content, mood, colors, movement, and themes>",
    "keywords": ["<keyword1>", "<keyword2>"]
}

Focus on:
1. What is visually shown
2. The mood and atmosphere
3. Key objects and settings
4. Visual themes that could match the spoken content of a talking-head video`

// buildProposalPrompt renders the transcript, clip catalogue, and numeric
// constraints into the candidate-generation prompt.
func buildProposalPrompt(req plan.ProposalRequest) string {
	var transcript strings.Builder
	for _, seg := range req.Transcript {
		fmt.Fprintf(&transcript, "[%.1fs - %.1fs]: %s\n", seg.StartSec, seg.EndSec, seg.Text)
	}

	var clips strings.Builder
	for _, clip := range req.Clips {
		desc := clip.Description
		if desc == "" {
			desc = clip.Metadata
		}
		fmt.Fprintf(&clips, "- %s: %s (duration: %.1fs)\n", clip.ID, desc, clip.DurationSec)
	}

	c := req.Constraints
	return fmt.Sprintf(`You are a professional video editor. Analyze the following A-roll transcript and B-roll clips, then create an optimal B-roll insertion plan.

A-ROLL TRANSCRIPT (duration: %.1fs):
%s
AVAILABLE B-ROLL CLIPS:
%s
RULES:
1. Insert %d-%d B-roll clips total
2. Each insertion should be %.1f-%.1f seconds long
3. Minimum %.1f seconds gap between insertions
4. Do NOT insert B-roll during emotionally important or key message moments
5. Prefer inserting B-roll when the speaker mentions concepts that match the B-roll visuals
6. B-roll should enhance the message, not distract from it
7. Match B-roll thematically to what is being said at that moment
8. Consider the flow and pacing of the video

Return ONLY a valid JSON object in this exact format:
{
    "insertions": [
        {
            "start_sec": <when to start showing B-roll>,
            "duration_sec": <how long to show B-roll>,
            "broll_id": "<which B-roll clip to use>",
            "confidence": <0.0-1.0 confidence score>,
            "reason": "<brief explanation of why this B-roll fits here>"
        }
    ]
}

Be strategic and thoughtful about placements. The B-roll should feel natural and enhance storytelling.`,
		req.ARollDuration, transcript.String(), clips.String(),
		c.MinCount, c.MaxCount, c.MinDurationSec, c.MaxDurationSec, c.MinGapSec)
}
