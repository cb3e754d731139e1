package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flona/broll-engine/internal/config"
	"github.com/flona/broll-engine/internal/export"
	"github.com/flona/broll-engine/internal/plan"
	"github.com/flona/broll-engine/internal/render"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/sample-sources", sampleSourcesHandler(cfg))

		r.Post("/plans", generatePlanHandler(cfg))
		r.Get("/plans/latest", latestPlanHandler(cfg))
		r.Get("/plans/{id}", getPlanHandler(cfg))
		r.Get("/plans/{id}/export.edl", exportPlanHandler(cfg))

		r.Post("/renders", submitRenderHandler(cfg))
		r.Get("/renders", listRendersHandler(cfg))
		r.Get("/renders/{id}", getRenderHandler(cfg))
		r.Get("/renders/{id}/download", downloadRenderHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:           "ok",
			Version:          config.Version,
			UptimeS:          int64(time.Since(cfg.StartTime).Seconds()),
			OracleConfigured: cfg.OracleConfigured,
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(r.Context())
			if err == nil && caps != nil {
				resp.RenderTools = &RenderToolsResponse{
					Available:   caps.Available,
					FFmpegPath:  caps.FFmpegPath,
					FFprobePath: caps.FFprobePath,
					LastProbeAt: caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func sampleSourcesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := plan.LoadSourceSet(cfg.SampleSourcesPath)
		if err != nil {
			WriteError(w, http.StatusNotFound, "sample sources not configured", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, sources)
	}
}

func generatePlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var sources *plan.SourceSet
		switch {
		case req.UseSampleData:
			loaded, err := plan.LoadSourceSet(cfg.SampleSourcesPath)
			if err != nil {
				WriteError(w, http.StatusNotFound, "sample sources not configured", "NOT_FOUND")
				return
			}
			sources = loaded
		case req.VideoURLs != nil:
			sources = req.VideoURLs
		default:
			WriteError(w, http.StatusBadRequest, "video_urls or use_sample_data is required", "VALIDATION_ERROR")
			return
		}

		if err := sources.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.OracleTimeout)
		defer cancel()

		run, err := cfg.Assembler.GeneratePlan(ctx, sources)
		if err != nil {
			if cfg.Metrics != nil {
				cfg.Metrics.IncPlansFailed()
			}
			writePlanError(w, err)
			return
		}

		if cfg.Metrics != nil {
			cfg.Metrics.PlanGenerated(run.UnderConstrained)
		}
		WriteJSON(w, http.StatusCreated, RunToResponse(run))
	}
}

func writePlanError(w http.ResponseWriter, err error) {
	var oerr *plan.OracleError
	switch {
	case errors.As(err, &oerr):
		WriteError(w, http.StatusBadGateway, oerr.Error(), "ORACLE_ERROR")
	case errors.Is(err, plan.ErrNoValidCandidates):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
	default:
		WriteError(w, http.StatusInternalServerError, "plan generation failed", "INTERNAL_ERROR")
	}
}

func latestPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := cfg.Repository.LatestRun(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load latest plan", "INTERNAL_ERROR")
			return
		}
		if run == nil {
			WriteError(w, http.StatusNotFound, "no plan has been generated yet", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, RunToResponse(run))
	}
}

func getPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := lookupRun(w, r, cfg)
		if run == nil {
			return
		}
		WriteJSON(w, http.StatusOK, RunToResponse(run))
	}
}

func exportPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := lookupRun(w, r, cfg)
		if run == nil {
			return
		}

		frameRate := 30.0
		if fps := r.URL.Query().Get("fps"); fps != "" {
			parsed, err := strconv.ParseFloat(fps, 64)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "invalid fps parameter", "VALIDATION_ERROR")
				return
			}
			frameRate = parsed
		}

		edl := export.GenerateEDL(&run.Plan, "BROLL PLAN "+run.ID, frameRate)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+run.ID+`.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

func lookupRun(w http.ResponseWriter, r *http.Request, cfg ServerConfig) *plan.Run {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "run id required", "BAD_REQUEST")
		return nil
	}

	run, err := cfg.Repository.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load plan", "INTERNAL_ERROR")
		return nil
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "plan not found", "NOT_FOUND")
		return nil
	}
	return run
}

func submitRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var run *plan.Run
		var err error
		if req.RunID != "" {
			run, err = cfg.Repository.GetRun(r.Context(), req.RunID)
		} else {
			run, err = cfg.Repository.LatestRun(r.Context())
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load plan", "INTERNAL_ERROR")
			return
		}
		if run == nil {
			WriteError(w, http.StatusNotFound, "no plan to render", "NOT_FOUND")
			return
		}

		job, err := cfg.RenderManager.Submit(r.Context(), run)
		if err != nil {
			if errors.Is(err, render.ErrQueueFull) {
				WriteError(w, http.StatusTooManyRequests, "render queue is full", "QUEUE_FULL")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to submit render", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func listRendersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 100 {
				WriteError(w, http.StatusBadRequest, "invalid limit parameter", "VALIDATION_ERROR")
				return
			}
			limit = parsed
		}

		jobs, err := cfg.Repository.ListRenderJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list render jobs", "INTERNAL_ERROR")
			return
		}

		resp := RenderJobListResponse{Jobs: make([]RenderJobResponse, 0, len(jobs))}
		for _, job := range jobs {
			resp.Jobs = append(resp.Jobs, JobToResponse(job))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, cfg)
		if job == nil {
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func downloadRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := lookupJob(w, r, cfg)
		if job == nil {
			return
		}

		if job.Status != plan.JobStatusCompleted || job.OutputPath == "" {
			WriteError(w, http.StatusConflict, "render is not completed", "NOT_READY")
			return
		}

		if err := cfg.Artifacts.ServeFile(w, r, job.OutputPath); err != nil {
			cfg.Logger.Error("artifact serve error", "error", err, "job_id", job.ID)
		}
	}
}

func lookupJob(w http.ResponseWriter, r *http.Request, cfg ServerConfig) *plan.RenderJob {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
		return nil
	}

	job, err := cfg.Repository.GetRenderJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load render job", "INTERNAL_ERROR")
		return nil
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "render job not found", "NOT_FOUND")
		return nil
	}
	return job
}
