package httpapi

import (
	"net/http"
	"time"

	"paricus-portal/internal/auth"
	"paricus-portal/internal/rbac"
	"paricus-portal/internal/recordings"
	"paricus-portal/internal/reporting"

	"github.com/gin-gonic/gin"
)

type listResponse struct {
	Records    []recordings.CallRecord `json:"records"`
	TotalCount int                     `json:"totalCount"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	CachedAt   time.Time               `json:"cachedAt"`
}

func (h Handlers) ListRecordings(c *gin.Context) {
	f, err := parseFilters(c)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		writeError(c, err)
		return
	}
	company, ok := scope(c, f.Company)
	if !ok {
		return
	}
	f.Company = company

	page, err := h.Recordings.ListRecordings(c.Request.Context(), f, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	records := page.Records
	if records == nil {
		records = []recordings.CallRecord{}
	}
	c.JSON(http.StatusOK, listResponse{
		Records:    records,
		TotalCount: page.TotalCount,
		Limit:      limit,
		Offset:     offset,
		CachedAt:   page.CachedAt,
	})
}

// GetRecording hides other tenants' records behind a 404 rather than a 403.
func (h Handlers) GetRecording(c *gin.Context) {
	company, ok := scope(c, "")
	if !ok {
		return
	}
	r, err := h.Recordings.GetRecordingByID(c.Request.Context(), c.Param("interaction_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if company != "" && r.CompanyName != company {
		writeError(c, recordings.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h Handlers) ListAgents(c *gin.Context) {
	names, err := h.Recordings.ListDistinctAgentNames(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": names})
}

func (h Handlers) ListCallTypes(c *gin.Context) {
	types, err := h.Recordings.ListDistinctCallTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"callTypes": types})
}

// ListTags returns distinct tag strings. Tenant users only see tags resolving to their company.
func (h Handlers) ListTags(c *gin.Context) {
	company, ok := scope(c, "")
	if !ok {
		return
	}
	tags, err := h.Recordings.ListDistinctTags(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]recordings.TagInfo, 0, len(tags))
	for _, t := range tags {
		if company == "" || t.CompanyName == company {
			out = append(out, t)
		}
	}
	c.JSON(http.StatusOK, gin.H{"tags": out})
}

func (h Handlers) RecordingsSummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	f, err := parseFilters(c)
	if err != nil {
		writeError(c, err)
		return
	}
	company, ok := scope(c, f.Company)
	if !ok {
		return
	}
	sum, err := h.Reporting.RecordingsSummary(c.Request.Context(), reporting.SummaryRequest{
		From:    f.StartDate,
		To:      f.EndDate,
		Company: company,
		Agent:   f.AgentName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Me echoes the caller's identity and effective scope.
func (h Handlers) Me(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	scopeName := id.Company
	if rbac.IsBPO(id.Role) {
		scopeName = "all"
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":     id.UserID,
		"role":        id.Role,
		"company":     id.Company,
		"scope":       scopeName,
		"permissions": id.Permissions,
	})
}
