package main

import (
	"net/http"

	"paricus-portal/internal/cdrstore"
	"paricus-portal/internal/httpapi"
	"paricus-portal/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerPublicRoutes mounts unauthenticated health and metrics routes.
func registerPublicRoutes(r *gin.Engine, handle *cdrstore.Handle) {
	r.GET("/healthz", func(c *gin.Context) {
		var mode string
		switch handle.Current().(type) {
		case cdrstore.Configured:
			mode = "live"
		case cdrstore.Unconfigured:
			mode = "mock"
		default:
			mode = "pending"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cdr_mode": mode})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerProtectedRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerProtectedRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		// RECORDINGS routes
		rec := v1.Group("/recordings")
		rec.Use(rbac.RequireTenant())
		rec.Use(rbac.RequirePermission(rbac.PermViewRecordings))
		{
			rec.GET("", h.ListRecordings)
			rec.GET("/agents", h.ListAgents)
			rec.GET("/call-types", h.ListCallTypes)
			rec.GET("/tags", h.ListTags)
			rec.GET("/summary", h.RecordingsSummary)
			rec.GET("/:interaction_id", h.GetRecording)
		}

		// ADMIN routes
		// BPO staff only; tenant admins never see store internals.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleBPOAdmin, rbac.RoleSuperAdmin))
		admin.Use(rbac.RequirePermission(rbac.PermManageCache))
		{
			admin.GET("/recordings/connectivity", h.TestConnectivity)
			admin.POST("/recordings/cache/clear", h.ClearCache)
			admin.GET("/audit", h.ListAuditEvents)
		}
	}
}
