package httpapi

import (
	"net/http"
	"time"

	"paricus-portal/internal/audit"
	"paricus-portal/internal/recordings"
	"paricus-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TestConnectivity reports whether the CDR store answers. An unconfigured store is not an
// outage: the portal serves synthetic data and the check returns 200 with mode "mock".
func (h Handlers) TestConnectivity(c *gin.Context) {
	ctx := c.Request.Context()
	res := h.Recordings.TestConnectivity(ctx)

	if h.Audit != nil {
		if err := h.Audit.LogConnectivityCheck(ctx, actor(c), res.OK, res.Mode); err != nil {
			logger.From(ctx).Warn("audit append failed", "err", err)
		}
	}

	status := http.StatusOK
	if !res.OK && res.Mode == recordings.ModeLive {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}

// ClearCache flushes every recordings cache category. RBAC: manage_cache.
func (h Handlers) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Recordings.ClearCache(ctx); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cache flush failed"})
		return
	}
	epoch := h.Recordings.CacheEpoch()

	// Best-effort: the flush already happened.
	if h.Audit != nil {
		if err := h.Audit.LogCacheCleared(ctx, actor(c), epoch); err != nil {
			logger.From(ctx).Warn("audit append failed", "err", err)
		}
	}
	ttls := gin.H{}
	for cat, ttl := range h.Recordings.CacheTTLs() {
		ttls[string(cat)] = int64(ttl / time.Second)
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "epoch": epoch, "ttl_seconds": ttls})
}

// ListAuditEvents returns recent admin audit events, newest first. Optional query: type, limit.
func (h Handlers) ListAuditEvents(c *gin.Context) {
	if h.AuditLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit log not configured"})
		return
	}
	limit, err := intParam(c, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	events := h.AuditLog.Recent(limit, audit.EventType(c.Query("type")))
	c.JSON(http.StatusOK, gin.H{"events": events})
}
