package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flona/broll-engine/internal/fetch"
	"github.com/flona/broll-engine/internal/media"
	"github.com/flona/broll-engine/internal/plan"
)

func TestOverlayTimelineSortsAndComputesFades(t *testing.T) {
	p := &plan.TimelinePlan{
		Insertions: []plan.Insertion{
			{StartSec: 20, DurationSec: 3, BRollID: "b2"},
			{StartSec: 5, DurationSec: 2, BRollID: "b1"},
			{StartSec: 12, DurationSec: 1.5, BRollID: "b3"},
		},
	}

	segments := overlayTimeline(p)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}

	wantOrder := []string{"b1", "b3", "b2"}
	for i, id := range wantOrder {
		if segments[i].ClipID != id {
			t.Errorf("segment %d = %q, want %q", i, segments[i].ClipID, id)
		}
	}

	if got := segments[0].FadeOutStart; got != 1.7 {
		t.Errorf("FadeOutStart for 2s segment = %v, want 1.7", got)
	}
	if got := segments[2].FadeOutStart; got != 2.7 {
		t.Errorf("FadeOutStart for 3s segment = %v, want 2.7", got)
	}
}

func TestOverlayTimelineHoldsLastFrameOfShortClips(t *testing.T) {
	p := &plan.TimelinePlan{
		BRolls: []plan.BRollClip{
			{ID: "short", DurationSec: 1.5},
			{ID: "long", DurationSec: 10},
			{ID: "unknown_dur"},
		},
		Insertions: []plan.Insertion{
			{StartSec: 5, DurationSec: 3, BRollID: "short"},
			{StartSec: 15, DurationSec: 2, BRollID: "long"},
			{StartSec: 25, DurationSec: 2, BRollID: "unknown_dur"},
		},
	}

	segments := overlayTimeline(p)
	if got := segments[0].PadSec; got != 1.5 {
		t.Errorf("PadSec for short clip = %v, want 1.5", got)
	}
	if got := segments[1].PadSec; got != 0 {
		t.Errorf("PadSec for long clip = %v, want 0", got)
	}
	if got := segments[2].PadSec; got != 0 {
		t.Errorf("PadSec for clip without a known duration = %v, want 0", got)
	}
}

func TestOverlayTimelineFadeOutNeverNegative(t *testing.T) {
	p := &plan.TimelinePlan{
		Insertions: []plan.Insertion{{StartSec: 1, DurationSec: 0.2, BRollID: "b1"}},
	}
	segments := overlayTimeline(p)
	if segments[0].FadeOutStart != 0 {
		t.Errorf("FadeOutStart = %v, want 0", segments[0].FadeOutStart)
	}
}

func TestOverlayTimelineEmptyPlan(t *testing.T) {
	segments := overlayTimeline(&plan.TimelinePlan{})
	if len(segments) != 0 {
		t.Errorf("got %d segments for empty plan, want 0", len(segments))
	}
}

func TestRenderUnreachableBaseSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher := fetch.NewHTTPFetcher(5*time.Second, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewFFmpegCompositor(fetcher, media.NewStubProber(nil), t.TempDir(), logger)

	p := &plan.TimelinePlan{ARollURL: srv.URL + "/a.mp4"}
	err := c.Render(context.Background(), p, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected error for unreachable base source")
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if rerr.Kind != KindSourceUnavailable {
		t.Errorf("Kind = %q, want %q", rerr.Kind, KindSourceUnavailable)
	}
}

func TestRenderUnknownClipReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake video"))
	}))
	defer srv.Close()

	fetcher := fetch.NewHTTPFetcher(5*time.Second, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewFFmpegCompositor(fetcher, media.NewStubProber(nil), t.TempDir(), logger)

	p := &plan.TimelinePlan{
		ARollURL:   srv.URL + "/a.mp4",
		Insertions: []plan.Insertion{{StartSec: 5, DurationSec: 2, BRollID: "missing"}},
	}
	err := c.Render(context.Background(), p, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected error for unknown clip reference")
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if rerr.Kind != KindSourceUnavailable {
		t.Errorf("Kind = %q, want %q", rerr.Kind, KindSourceUnavailable)
	}
	if !strings.Contains(rerr.Err.Error(), "missing") {
		t.Errorf("error %q should name the missing clip", rerr.Err)
	}
}

func TestStderrTail(t *testing.T) {
	short := "some error"
	if got := stderrTail(short); got != short {
		t.Errorf("stderrTail(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("x", 2000) + "END"
	got := stderrTail(long)
	if !strings.HasPrefix(got, "...") {
		t.Errorf("tail should be marked truncated, got prefix %q", got[:10])
	}
	if !strings.HasSuffix(got, "END") {
		t.Error("tail should keep the end of stderr")
	}
}

func TestRenderFailureMessage(t *testing.T) {
	msg := renderFailureMessage(newError(KindRenderTool, errors.New("exit status 1")))
	if !strings.HasPrefix(msg, "render_tool: ") {
		t.Errorf("message = %q, want render_tool prefix", msg)
	}

	plain := renderFailureMessage(errors.New("boom"))
	if plain != "boom" {
		t.Errorf("message = %q, want %q", plain, "boom")
	}
}
