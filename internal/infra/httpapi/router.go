// Package httpapi is the JSON HTTP surface used by the web form and dashboard.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"spill_report_service/internal/app"
	"spill_report_service/internal/infra/metrics"
	"spill_report_service/internal/infra/objectstore"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services groups the application services the handlers call.
type Services struct {
	Reports     *app.ReportService
	Dashboard   *app.DashboardService
	Attachments *app.AttachmentService
	Directory   *app.DirectoryService
}

type Options struct {
	// AllowedOrigins of "*" or an empty list allows every origin.
	AllowedOrigins []string
	MaxUploadBytes int64
	// UploadDir is served under /uploads when set.
	UploadDir string
	Auth      AuthOptions
	Metrics   *metrics.Metrics
	Log       *logrus.Entry
}

type handler struct {
	svc            Services
	log            *logrus.Entry
	maxUploadBytes int64
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("PATCH")
	cfg.AddAllowHeaders("Authorization", apiKeyHeader)
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition")
	return cfg
}

// requestLogger logs one line per request once the handler chain is done.
func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case strings.HasPrefix(c.Request.URL.Path, "/healthz"), strings.HasPrefix(c.Request.URL.Path, "/metrics"):
			entry.Debug("Request served")
		default:
			entry.Info("Request served")
		}
	}
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(svc Services, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &handler{svc: svc, log: log, maxUploadBytes: opts.MaxUploadBytes}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), cors.New(corsConfig(opts.AllowedOrigins)))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.UploadDir != "" {
		r.Static(objectstore.LocalPrefix, opts.UploadDir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Auth.Disabled {
		log.Warn("HTTP API authentication is disabled")
	}
	api := r.Group("/api", authenticate(opts.Auth, log))
	reporter := requireRole(RoleReporter, RoleStaff)
	staff := requireRole(RoleStaff)
	admin := requireRole(RoleAdmin)
	{
		api.POST("/reports", reporter, h.createReport)
		api.GET("/reports", staff, h.listReports)
		api.GET("/reports/:id", staff, h.getReport)
		api.PATCH("/reports/:id", staff, h.updateReport)
		api.POST("/reports/:id/photos", reporter, h.uploadPhoto)
		api.POST("/reports/:id/documents", reporter, h.uploadDocument)

		api.GET("/export", staff, h.exportReports)
		api.GET("/stats", staff, h.stats)

		api.GET("/intervenants", reporter, h.listIntervenants)
		api.POST("/intervenants", admin, h.createIntervenant)
	}
	return r
}
