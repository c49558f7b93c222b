package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"paricus-portal/internal/recordings"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// parseFilters reads the recordings query string. company is returned raw; callers scope it.
func parseFilters(c *gin.Context) (recordings.FilterSet, error) {
	var f recordings.FilterSet
	var err error
	if f.StartDate, err = recordings.ParseDate(c.Query("startDate"), false); err != nil {
		return f, err
	}
	if f.EndDate, err = recordings.ParseDate(c.Query("endDate"), true); err != nil {
		return f, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, fmt.Errorf("%w: endDate is before startDate", recordings.ErrInvalidFilter)
	}
	if f.HasAudio, err = recordings.ParseHasAudio(c.Query("hasAudio")); err != nil {
		return f, err
	}
	f.AgentName = c.Query("agentName")
	f.CallType = c.Query("callType")
	f.CustomerPhone = c.Query("customerPhone")
	f.InteractionID = c.Query("interactionId")
	f.Company = strings.TrimSpace(c.Query("company"))
	return f.Normalize(), nil
}

func parsePage(c *gin.Context) (limit, offset int, err error) {
	limit, err = intParam(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", recordings.ErrInvalidFilter, maxLimit)
	}
	offset, err = intParam(c, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must be non-negative", recordings.ErrInvalidFilter)
	}
	return limit, offset, nil
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", recordings.ErrInvalidFilter, key)
	}
	return n, nil
}
