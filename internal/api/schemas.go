package api

import (
	"fmt"
	"time"

	"github.com/flona/broll-engine/internal/plan"
)

type HealthResponse struct {
	Status           string               `json:"status"`
	Version          string               `json:"version"`
	UptimeS          int64                `json:"uptime_s"`
	OracleConfigured bool                 `json:"oracle_configured"`
	RenderTools      *RenderToolsResponse `json:"render_tools,omitempty"`
}

type RenderToolsResponse struct {
	Available   bool   `json:"available"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
	FFprobePath string `json:"ffprobe_path,omitempty"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
}

type PlanRequest struct {
	VideoURLs     *plan.SourceSet `json:"video_urls,omitempty"`
	UseSampleData bool            `json:"use_sample_data,omitempty"`
}

type PlanResponse struct {
	RunID            string            `json:"run_id"`
	UnderConstrained bool              `json:"under_constrained"`
	Plan             plan.TimelinePlan `json:"plan"`
	CreatedAt        string            `json:"created_at"`
}

type RenderRequest struct {
	RunID string `json:"run_id,omitempty"`
}

type RenderJobResponse struct {
	JobID       string `json:"job_id"`
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type RenderJobListResponse struct {
	Jobs []RenderJobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RunToResponse(run *plan.Run) PlanResponse {
	return PlanResponse{
		RunID:            run.ID,
		UnderConstrained: run.UnderConstrained,
		Plan:             run.Plan,
		CreatedAt:        run.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *plan.RenderJob) RenderJobResponse {
	resp := RenderJobResponse{
		JobID:     j.ID,
		RunID:     j.RunID,
		Status:    j.Status,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
	if j.Status == plan.JobStatusCompleted {
		resp.DownloadURL = fmt.Sprintf("/renders/%s/download", j.ID)
	}
	return resp
}
