// Package render turns timeline plans into finished videos. The compositor
// overlays each clip onto the base track with short crossfades while the
// base audio runs uninterrupted, and the manager runs render jobs on a
// bounded worker pool.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/flona/broll-engine/internal/fetch"
	"github.com/flona/broll-engine/internal/media"
	"github.com/flona/broll-engine/internal/plan"
)

// transitionDuration is the crossfade length in seconds at each overlay edge.
const transitionDuration = 0.3

// Compositor renders a timeline plan to outputPath.
type Compositor interface {
	Render(ctx context.Context, p *plan.TimelinePlan, outputPath string) error
}

// FFmpegCompositor downloads the plan's sources and composites them with
// ffmpeg. Each render works in its own temp directory which is removed when
// the render finishes.
type FFmpegCompositor struct {
	fetcher fetch.Fetcher
	prober  media.Prober
	tempDir string
	logger  *slog.Logger
}

func NewFFmpegCompositor(fetcher fetch.Fetcher, prober media.Prober, tempDir string, logger *slog.Logger) *FFmpegCompositor {
	return &FFmpegCompositor{
		fetcher: fetcher,
		prober:  prober,
		tempDir: tempDir,
		logger:  logger,
	}
}

// overlaySegment is one clip placement resolved against the base track.
type overlaySegment struct {
	ClipID       string
	StartSec     float64
	DurationSec  float64
	FadeOutStart float64
	// PadSec is how long the clip's last frame is held when the clip is
	// shorter than the planned insertion.
	PadSec float64
}

// overlayTimeline resolves a plan's insertions into overlay segments sorted
// by start time. Fade-out begins one transition before the segment ends.
func overlayTimeline(p *plan.TimelinePlan) []overlaySegment {
	segments := make([]overlaySegment, 0, len(p.Insertions))
	for _, ins := range p.Insertions {
		fadeOutStart := ins.DurationSec - transitionDuration
		if fadeOutStart < 0 {
			fadeOutStart = 0
		}
		var padSec float64
		if clip, ok := p.Clip(ins.BRollID); ok && clip.DurationSec > 0 && clip.DurationSec < ins.DurationSec {
			padSec = ins.DurationSec - clip.DurationSec
		}
		segments = append(segments, overlaySegment{
			ClipID:       ins.BRollID,
			StartSec:     ins.StartSec,
			DurationSec:  ins.DurationSec,
			FadeOutStart: fadeOutStart,
			PadSec:       padSec,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSec < segments[j].StartSec
	})
	return segments
}

func (c *FFmpegCompositor) Render(ctx context.Context, p *plan.TimelinePlan, outputPath string) error {
	workDir, err := os.MkdirTemp(c.tempDir, "render-*")
	if err != nil {
		return newError(KindIO, fmt.Errorf("creating work dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	basePath := filepath.Join(workDir, "base.mp4")
	if err := c.fetcher.Fetch(ctx, p.ARollURL, basePath); err != nil {
		return newError(KindSourceUnavailable, err)
	}

	segments := overlayTimeline(p)
	clipPaths, err := c.fetchClips(ctx, p, segments, workDir)
	if err != nil {
		return err
	}

	info, err := c.prober.Probe(basePath)
	if err != nil {
		return newError(KindRenderTool, err)
	}

	stream := buildGraph(basePath, segments, clipPaths, info, outputPath)
	if err := c.run(ctx, stream); err != nil {
		return err
	}

	c.logger.Info("composited timeline",
		"output", outputPath,
		"overlays", len(segments),
		"base_duration_sec", info.DurationSec)
	return nil
}

// fetchClips downloads each distinct clip referenced by the segments.
func (c *FFmpegCompositor) fetchClips(ctx context.Context, p *plan.TimelinePlan, segments []overlaySegment, workDir string) (map[string]string, error) {
	paths := make(map[string]string, len(segments))
	for _, seg := range segments {
		if _, ok := paths[seg.ClipID]; ok {
			continue
		}
		clip, ok := p.Clip(seg.ClipID)
		if !ok {
			return nil, newError(KindSourceUnavailable, fmt.Errorf("plan references unknown clip %q", seg.ClipID))
		}
		dest := filepath.Join(workDir, clip.ID+".mp4")
		if err := c.fetcher.Fetch(ctx, clip.URL, dest); err != nil {
			return nil, newError(KindSourceUnavailable, err)
		}
		paths[seg.ClipID] = dest
	}
	return paths, nil
}

// buildGraph assembles the filter graph: the base track is normalized to a
// constant frame rate, each clip is scaled and padded to the base dimensions,
// trimmed to its planned duration (the last frame is held when the clip is
// shorter), faded at both edges, shifted to its start time, and overlaid.
// The base audio is mapped through untouched.
func buildGraph(basePath string, segments []overlaySegment, clipPaths map[string]string, info *media.ProbeResult, outputPath string) *ffmpeg.Stream {
	fps := fmt.Sprintf("%g", info.FrameRate)
	width := fmt.Sprintf("%d", info.Width)
	height := fmt.Sprintf("%d", info.Height)

	base := ffmpeg.Input(basePath)
	video := base.Get("v").
		Filter("fps", ffmpeg.Args{fps}).
		Filter("format", ffmpeg.Args{"yuv420p"})

	for _, seg := range segments {
		clip := ffmpeg.Input(clipPaths[seg.ClipID]).Get("v").
			Filter("fps", ffmpeg.Args{fps}).
			Filter("scale", ffmpeg.Args{width, height}, ffmpeg.KwArgs{"force_original_aspect_ratio": "decrease"}).
			Filter("pad", ffmpeg.Args{width, height, "(ow-iw)/2", "(oh-ih)/2"}, ffmpeg.KwArgs{"color": "black"}).
			Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"}).
			Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": seg.DurationSec}).
			Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})

		if seg.PadSec > 0 {
			clip = clip.Filter("tpad", ffmpeg.Args{}, ffmpeg.KwArgs{"stop_mode": "clone", "stop_duration": seg.PadSec})
		}

		clip = clip.
			Filter("format", ffmpeg.Args{"yuv420p"}).
			Filter("fade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "in", "st": 0, "d": transitionDuration}).
			Filter("fade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "out", "st": seg.FadeOutStart, "d": transitionDuration}).
			Filter("setpts", ffmpeg.Args{fmt.Sprintf("PTS+%g/TB", seg.StartSec)})

		video = ffmpeg.Filter([]*ffmpeg.Stream{video, clip}, "overlay",
			ffmpeg.Args{"0", "0"}, ffmpeg.KwArgs{"eof_action": "pass"})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{video, base.Get("a")}, outputPath, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   "medium",
		"crf":      "20",
		"c:a":      "aac",
		"b:a":      "192k",
		"movflags": "+faststart",
	})
}

// run executes the compiled ffmpeg command, killing it if ctx expires.
func (c *FFmpegCompositor) run(ctx context.Context, stream *ffmpeg.Stream) error {
	cmd := stream.OverWriteOutput().Compile()

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return newError(KindRenderTool, fmt.Errorf("starting ffmpeg: %w", err))
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		return newError(KindRenderTool, ctx.Err())
	case err := <-done:
		if err != nil {
			return newError(KindRenderTool, fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String())))
		}
	}
	return nil
}

// stderrTail keeps the end of ffmpeg's stderr, where the actual error lives.
func stderrTail(s string) string {
	const max = 800
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
