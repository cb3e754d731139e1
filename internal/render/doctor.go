package render

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const doctorCacheTTL = 5 * time.Minute

// Capabilities describes the render tooling found on this host.
type Capabilities struct {
	FFmpegPath  string    `json:"ffmpeg_path,omitempty"`
	FFprobePath string    `json:"ffprobe_path,omitempty"`
	Available   bool      `json:"available"`
	ProbedAt    time.Time `json:"probed_at"`
}

// ProbeTools checks PATH for the ffmpeg binaries the compositor shells out to.
func ProbeTools(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{ProbedAt: time.Now().UTC()}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		caps.FFmpegPath = path
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		caps.FFprobePath = path
	}
	caps.Available = caps.FFmpegPath != "" && caps.FFprobePath != ""
	return caps, nil
}

// CachedDoctor caches tool probes with a TTL so health checks do not hit the
// filesystem on every request.
type CachedDoctor struct {
	probe  func(ctx context.Context) (*Capabilities, error)
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		probe:  ProbeTools,
		ttl:    doctorCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.probe(ctx)
	if err != nil {
		d.logger.Warn("tool probe failed", "error", err)
		if d.cached != nil {
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
