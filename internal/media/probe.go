// Package media inspects video files with ffprobe.
package media

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeResult holds the stream properties the compositor needs to size
// overlays against the base track.
type ProbeResult struct {
	DurationSec float64
	Width       int
	Height      int
	FrameRate   float64
}

type Prober interface {
	Probe(filePath string) (*ProbeResult, error)
}

// FFprobe shells out to ffprobe via the ffmpeg-go bindings.
type FFprobe struct {
	logger *slog.Logger
}

func NewFFprobe(logger *slog.Logger) *FFprobe {
	return &FFprobe{logger: logger}
}

func (p *FFprobe) Probe(filePath string) (*ProbeResult, error) {
	raw, err := ffmpeg.Probe(filePath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}
	result, err := parseProbeOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}
	if p.logger != nil {
		p.logger.Debug("probed source",
			"path", filePath,
			"duration_sec", result.DurationSec,
			"width", result.Width,
			"height", result.Height)
	}
	return result, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(raw string) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing duration %q: %w", out.Format.Duration, err)
		}
		result.DurationSec = d
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		result.Width = stream.Width
		result.Height = stream.Height
		result.FrameRate = parseFrameRate(stream.FrameRate)
		break
	}
	if result.Width == 0 || result.Height == 0 {
		return nil, fmt.Errorf("no video stream found")
	}
	return result, nil
}

// parseFrameRate handles ffprobe's rational form, e.g. "30000/1001".
func parseFrameRate(s string) float64 {
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// StubProber returns fixed dimensions without invoking ffprobe. It keeps the
// service usable for plan generation on hosts without ffmpeg installed.
type StubProber struct {
	logger *slog.Logger
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Probe(filePath string) (*ProbeResult, error) {
	if p.logger != nil {
		p.logger.Info("probe stub: returning default dimensions", "path", filePath)
	}
	return &ProbeResult{DurationSec: 0, Width: 1920, Height: 1080, FrameRate: 30}, nil
}
