package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/scheduler"
	"github.com/fulfildesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability decides readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStates reports the background sweeps' last runs
type JobStates interface {
	States() []scheduler.JobState
}

// SystemHandler handles health and build information endpoints
type SystemHandler struct {
	BaseHandler
	name         string
	version      string
	startTime    time.Time
	checks       map[string]Pinger
	jobs         JobStates
	checkTimeout time.Duration
}

// NewSystemHandler creates a new SystemHandler. checks maps a dependency name
// (database, redis) to its probe; jobs may be nil when sweeps are disabled.
func NewSystemHandler(name, version string, checks map[string]Pinger, jobs JobStates) *SystemHandler {
	return &SystemHandler{
		name:         name,
		version:      version,
		startTime:    time.Now(),
		checks:       checks,
		jobs:         jobs,
		checkTimeout: 2 * time.Second,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string               `json:"name" example:"fulfildesk"`
	Version   string               `json:"version" example:"1.0.0"`
	GoVersion string               `json:"go_version" example:"go1.25.5"`
	Uptime    string               `json:"uptime" example:"1h30m45s"`
	Jobs      []scheduler.JobState `json:"jobs"`
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Description  Version, uptime and the last run of each background sweep
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Jobs:      []scheduler.JobState{},
	}
	if h.jobs != nil {
		info.Jobs = h.jobs.States()
	}
	h.Success(c, info)
}

// HealthResponse is the liveness and readiness payload
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready godoc
// @Summary      Readiness probe
// @Description  Pings every dependency; any failure answers 503
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
