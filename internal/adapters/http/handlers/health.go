// Package handlers provides HTTP request handlers for the service.
package handlers

import (
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// SyncStatus reports the most recent sync run. *app.SyncService implements it.
type SyncStatus interface {
	LastReport() (app.SyncReport, bool)
}

// BuildInfo is served on /-/build. Version, commit and build time come from
// ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills in the Go version. Without a commit from ldflags the VCS
// revision stamped by the toolchain is used, when there is one.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	bi := BuildInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}

	if commit == "" || commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			bi.Commit = rev
		}
	}

	return bi
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}

	return ""
}

// HealthHandler serves the probe and status routes under /-/.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	sync      SyncStatus
}

// NewHealthHandler creates a health handler. sync may be nil when the process
// has no sync service.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo, sync SyncStatus) *HealthHandler {
	return &HealthHandler{registry: registry, buildInfo: buildInfo, sync: sync}
}

// Register mounts the routes:
//
//	GET /-/live     liveness, never checks dependencies
//	GET /-/ready    readiness over the health registry
//	GET /-/build    build information
//	GET /-/sync     last sync report
//	GET /-/metrics  Prometheus exposition
func (h *HealthHandler) Register(engine *gin.Engine) {
	rg := engine.Group("/-")
	rg.GET("/live", h.Liveness)
	rg.GET("/ready", h.Readiness)
	rg.GET("/build", h.Build)
	rg.GET("/sync", h.SyncStatus)
	rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Liveness answers 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readinessResponse struct {
	Status string                        `json:"status"`
	Checks map[string]*ports.CheckResult `json:"checks,omitempty"`
}

// Readiness runs every registered check. Only a failing critical check
// (storage) answers 503; a degraded quote source still serves traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	status := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, readinessResponse{Status: string(result.Status), Checks: result.Checks})
}

// Build serves the build information.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

type syncStatusResponse struct {
	Ran  bool            `json:"ran"`
	Last *app.SyncReport `json:"last,omitempty"`
}

// SyncStatus serves the last sync report, or {"ran":false} before the first.
func (h *HealthHandler) SyncStatus(c *gin.Context) {
	var resp syncStatusResponse
	if h.sync != nil {
		if report, ok := h.sync.LastReport(); ok {
			resp = syncStatusResponse{Ran: true, Last: &report}
		}
	}

	c.JSON(http.StatusOK, resp)
}
