package reporting

import "time"

// SummaryRequest selects the recordings to summarize. Company is already scoped by the
// caller's role; empty means every tenant.
type SummaryRequest struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Company string     `json:"company,omitempty"`
	Agent   string     `json:"agent,omitempty"`
}

// RecordingsSummary is the dashboard view over visible call recordings.
type RecordingsSummary struct {
	Company string `json:"company,omitempty"`

	TotalRecordings int `json:"total_recordings"`
	WithAudio       int `json:"with_audio"`
	WithoutAudio    int `json:"without_audio"`

	// AudioCoverage is WithAudio / TotalRecordings, 0 when there are none.
	AudioCoverage float64 `json:"audio_coverage"`

	// ByCompany counts recordings per recognized tenant. Records whose tags match no
	// tenant are in TotalRecordings only.
	ByCompany map[string]int `json:"by_company"`
}
