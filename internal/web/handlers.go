package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"podshare/internal/pipeline"
)

type PackageRequest struct {
	Folder string `json:"folder"`
	Name   string `json:"name,omitempty"`
	// RSSPath points at a saved feed file to download episodes from first.
	RSSPath        string `json:"rss_path,omitempty"`
	CheckFilesOnly bool   `json:"check_files_only,omitempty"`
	TorrentOnly    bool   `json:"torrent_only,omitempty"`
	SkipDupeCheck  bool   `json:"skip_dupe_check,omitempty"`
}

type JobResponse struct {
	ID          string    `json:"id"`
	Folder      string    `json:"folder"`
	Name        string    `json:"name"`
	Status      JobStatus `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Progress    int       `json:"progress"`
	Total       int       `json:"total"`
	Warnings    []string  `json:"warnings,omitempty"`
	TorrentPath string    `json:"torrent_path,omitempty"`
	ReportPath  string    `json:"report_path,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	StartedAt   *string   `json:"started_at,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Folder == "" {
		http.Error(w, "Folder is required", http.StatusBadRequest)
		return
	}

	// Jobs run unattended, so every confirmation is auto-accepted.
	jobConfig := s.config
	jobConfig.AssumeYes = true

	job := s.jobMgr.CreateJob(req.Folder, req.Name, jobConfig)
	s.logger.Info("Created job %s for folder: %s", job.ID, req.Folder)

	go s.processJob(job, req)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.jobToResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	// Extract job ID from path: /api/jobs/{id} or /api/jobs/{id}/cancel
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Handle GET /api/jobs/{id}
	if r.Method == http.MethodGet && len(parts) == 1 {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.jobToResponse(job))
		return
	}

	// Handle POST /api/jobs/{id}/cancel
	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel" {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		if job.Cancel != nil {
			job.Cancel()
		}

		s.jobMgr.UpdateJob(jobID, func(j *Job) {
			j.Status = StatusCancelled
		})

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
		return
	}

	http.Error(w, "Invalid request", http.StatusBadRequest)
}

func (s *Server) processJob(job *Job, req PackageRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Cancel = cancel
		j.Status = StatusRunning
	})

	s.logger.Info("Starting job %s", job.ID)

	hooks := pipeline.Hooks{
		OnStage: func(stage string) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Stage = stage
			})
		},
		OnPieceProgress: func(done, total int) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Progress = done
				j.Total = total
			})
		},
		OnWarning: func(msg string) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Warnings = append(j.Warnings, msg)
			})
		},
	}

	res, err := pipeline.Run(ctx, job.Config, s.logger, pipeline.Options{
		FolderPath:     req.Folder,
		Name:           req.Name,
		RSSPath:        req.RSSPath,
		CheckFilesOnly: req.CheckFilesOnly,
		TorrentOnly:    req.TorrentOnly,
		SkipDupeCheck:  req.SkipDupeCheck,
	}, hooks)
	if err != nil {
		s.logger.Error("Job %s failed: %v", job.ID, err)
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		return
	}

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Status = StatusCompleted
		j.TorrentPath = res.TorrentPath
		j.ReportPath = res.ReportPath
	})

	s.logger.Info("Job %s completed successfully", job.ID)
}

func (s *Server) jobToResponse(job *Job) *JobResponse {
	resp := &JobResponse{
		ID:          job.ID,
		Folder:      job.Folder,
		Name:        job.Name,
		Status:      job.Status,
		Stage:       job.Stage,
		Progress:    job.Progress,
		Total:       job.Total,
		Warnings:    job.Warnings,
		TorrentPath: job.TorrentPath,
		ReportPath:  job.ReportPath,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	if job.StartedAt != nil {
		started := job.StartedAt.Format("2006-01-02 15:04:05")
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &completed
	}

	return resp
}
