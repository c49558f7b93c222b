package recordings

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CallRecord is one row of the external CDR table plus derived view fields.
// The store owns these rows; nothing here writes them.
type CallRecord struct {
	InteractionID       string    `json:"interactionId"`
	CallType            string    `json:"callType"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	CustomerPhoneNumber string    `json:"customerPhoneNumber"`
	AgentName           string    `json:"agentName"`
	AudioFileName       *string   `json:"audioFileName"`
	Tags                string    `json:"tags"`

	// Derived, never persisted.
	CompanyName   string `json:"companyName"`
	CustomerPhone string `json:"customerPhone"`
}

// HasAudio reports whether the record references a retrievable audio asset.
func (r CallRecord) HasAudio() bool {
	return r.AudioFileName != nil && *r.AudioFileName != ""
}

func (r CallRecord) annotate() CallRecord {
	r.CompanyName = ResolveTenant(r.Tags)
	r.CustomerPhone = r.CustomerPhoneNumber
	return r
}

// FilterSet is a conjunctive search over CallRecords. Zero-valued fields are unset.
type FilterSet struct {
	StartDate     *time.Time
	EndDate       *time.Time
	AgentName     string // prefix
	CallType      string // exact
	CustomerPhone string // prefix
	InteractionID string // exact
	Company       string // tenant name
	HasAudio      *bool  // nil = either
}

// Normalize trims string fields and moves timestamps to UTC so equal filters compare and
// hash equally.
func (f FilterSet) Normalize() FilterSet {
	out := FilterSet{
		AgentName:     strings.TrimSpace(f.AgentName),
		CallType:      strings.TrimSpace(f.CallType),
		CustomerPhone: strings.TrimSpace(f.CustomerPhone),
		InteractionID: strings.TrimSpace(f.InteractionID),
		Company:       strings.TrimSpace(f.Company),
	}
	if f.StartDate != nil {
		t := f.StartDate.UTC()
		out.StartDate = &t
	}
	if f.EndDate != nil {
		t := f.EndDate.UTC()
		out.EndDate = &t
	}
	if f.HasAudio != nil {
		b := *f.HasAudio
		out.HasAudio = &b
	}
	return out
}

func (f FilterSet) fields() map[string]any {
	m := map[string]any{}
	if f.StartDate != nil {
		m["startDate"] = f.StartDate.UTC().Format(time.RFC3339Nano)
	}
	if f.EndDate != nil {
		m["endDate"] = f.EndDate.UTC().Format(time.RFC3339Nano)
	}
	for k, v := range map[string]string{
		"agentName":     f.AgentName,
		"callType":      f.CallType,
		"customerPhone": f.CustomerPhone,
		"interactionId": f.InteractionID,
		"company":       f.Company,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if f.HasAudio != nil {
		m["hasAudio"] = *f.HasAudio
	}
	return m
}

// encoding/json writes map keys sorted, which makes the key independent of field order.
func hashKey(prefix string, m map[string]any) string {
	raw, err := json.Marshal(m)
	if err != nil {
		// Only strings, bools and ints go in; marshal cannot fail.
		panic(fmt.Sprintf("recordings: cache key: %v", err))
	}
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// CountKey identifies a FilterSet regardless of pagination.
func (f FilterSet) CountKey() string {
	return hashKey("count", f.fields())
}

// PageKey identifies a FilterSet plus one page window.
func (f FilterSet) PageKey(limit, offset int) string {
	m := f.fields()
	m["limit"] = limit
	m["offset"] = offset
	return hashKey("page", m)
}

// ParseHasAudio reads the tri-state audio filter: "" is unset.
func ParseHasAudio(v string) (*bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: hasAudio must be true or false, got %q", ErrInvalidFilter, v)
	}
	return &b, nil
}

// ParseDate accepts RFC3339 or YYYY-MM-DD. A bare date used as an end bound covers the
// whole day.
func ParseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", ErrInvalidFilter, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// CachedPage is one page of results with the total for its FilterSet.
type CachedPage struct {
	Records    []CallRecord `json:"records"`
	TotalCount int          `json:"totalCount"`
	CachedAt   time.Time    `json:"cachedAt"`
}

// CachedCount is the total for a FilterSet.
type CachedCount struct {
	TotalCount int       `json:"totalCount"`
	CachedAt   time.Time `json:"cachedAt"`
}

// TagInfo pairs a distinct tag string with the tenant it resolves to.
type TagInfo struct {
	Tag         string `json:"tag"`
	CompanyName string `json:"companyName"`
}

// Connectivity is the outcome of TestConnectivity.
type Connectivity struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode"`
	Message string `json:"message"`
}

const (
	ModeLive = "live"
	ModeMock = "mock"
)
