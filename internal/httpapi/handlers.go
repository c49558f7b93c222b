package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paricus-portal/internal/audit"
	"paricus-portal/internal/auth"
	"paricus-portal/internal/cache"
	"paricus-portal/internal/cdrstore"
	"paricus-portal/internal/rbac"
	"paricus-portal/internal/recordings"
	"paricus-portal/internal/reporting"
	"paricus-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recordings is the gateway surface the handlers call. *recordings.Gateway implements it.
type Recordings interface {
	ListRecordings(ctx context.Context, f recordings.FilterSet, limit, offset int) (recordings.CachedPage, error)
	GetRecordingByID(ctx context.Context, id string) (recordings.CallRecord, error)
	ListDistinctAgentNames(ctx context.Context) ([]string, error)
	ListDistinctCallTypes(ctx context.Context) ([]string, error)
	ListDistinctTags(ctx context.Context) ([]recordings.TagInfo, error)
	TestConnectivity(ctx context.Context) recordings.Connectivity
	ClearCache(ctx context.Context) error
	CacheEpoch() uint64
	CacheTTLs() map[cache.Category]time.Duration
}

// AuditLog serves recently retained audit events. *audit.MemoryRepo implements it.
type AuditLog interface {
	Recent(limit int, typ audit.EventType) []audit.Event
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Recordings Recordings
	Reporting  *reporting.Service
	Audit      *audit.Service
	AuditLog   AuditLog
}

// scope resolves the company the caller may query. BPO staff keep the requested company;
// everyone else is pinned to the company in their token, which must be a known tenant.
func scope(c *gin.Context, requested string) (string, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return "", false
	}
	company := rbac.ScopeCompany(id, requested)
	if company != "" && !recordings.IsTenant(company) {
		if rbac.IsBPO(id.Role) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown company: " + company})
		} else {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "company is not a recognized tenant"})
		}
		return "", false
	}
	if company == "" && !rbac.IsBPO(id.Role) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "company required"})
		return "", false
	}
	return company, true
}

func actor(c *gin.Context) audit.Actor {
	id, _ := auth.IdentityFrom(c.Request.Context())
	return audit.Actor{UserID: id.UserID, Role: id.Role, Company: id.Company, IP: c.ClientIP()}
}

// writeError maps service errors onto HTTP statuses. Driver detail stays in the log.
func writeError(c *gin.Context, err error) {
	var qe *recordings.QueryError
	switch {
	case errors.Is(err, recordings.ErrInvalidFilter), errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, recordings.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "recording not found"})
	case errors.Is(err, cdrstore.ErrPoolExhausted):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "recordings store busy, retry shortly"})
	case errors.As(err, &qe) && qe.Unavailable():
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "recordings store unavailable"})
	default:
		logger.From(c.Request.Context()).Error("request failed", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recordings query failed"})
	}
}
