package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/pd-arena/internal/catalog"
)

// Version information, set at build time via ldflags
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// GetVersionInfo returns the build version
func GetVersionInfo() VersionInfo {
	return VersionInfo{EngineVersion: EngineVersion, GitCommit: GitCommit, BuildTime: BuildTime}
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse is the /health payload
type HealthCheckResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   VersionInfo            `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthCheck is one component check
type HealthCheck struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"`
}

// SystemInfo contains runtime information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
}

// handleHealthCheck reports whether the strategy folder and catalog are usable
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"strategies": s.checkStrategies(),
		"catalog":    s.checkCatalog(),
		"jvm":        s.checkJVM(),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		if c.Status == HealthStatusUnhealthy {
			overall = HealthStatusUnhealthy
			break
		}
		if c.Status == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.writeJSON(w, status, HealthCheckResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   GetVersionInfo(),
		Uptime:    time.Since(s.startTime).String(),
		Checks:    checks,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemoryAlloc:   m.Alloc,
		},
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) checkStrategies() HealthCheck {
	start := time.Now()
	info, err := os.Stat(s.strategyDir)
	if err != nil || !info.IsDir() {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "strategy folder unavailable", Duration: time.Since(start).String()}
	}
	artifacts, err := catalog.Discover(s.strategyDir)
	if err != nil {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error(), Duration: time.Since(start).String()}
	}
	check := HealthCheck{Status: HealthStatusHealthy, Message: fmt.Sprintf("%d strategies available", len(artifacts))}
	if len(artifacts) < 2 {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("only %d strategies available (a match needs 2)", len(artifacts))
	}
	check.Duration = time.Since(start).String()
	return check
}

func (s *Server) checkCatalog() HealthCheck {
	if s.catalog == nil {
		return HealthCheck{Status: HealthStatusHealthy, Message: "catalog disabled"}
	}
	start := time.Now()
	entries, err := s.catalog.List()
	if err != nil {
		return HealthCheck{Status: HealthStatusDegraded, Message: err.Error(), Duration: time.Since(start).String()}
	}
	return HealthCheck{
		Status:   HealthStatusHealthy,
		Message:  fmt.Sprintf("%d verified strategies", len(entries)),
		Duration: time.Since(start).String(),
	}
}

func (s *Server) checkJVM() HealthCheck {
	if s.jvm == nil {
		return HealthCheck{Status: HealthStatusHealthy, Message: "not configured"}
	}
	if s.jvm.Running() {
		return HealthCheck{Status: HealthStatusHealthy, Message: "running"}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "idle (starts on first managed strategy)"}
}
