package recordings

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

const mockUniverseSize = 150

var (
	mockBaseTime = time.Date(2025, time.June, 30, 18, 0, 0, 0, time.UTC)

	mockAgents = []string{
		"Alicia Torres", "Ben Carter", "Carla Mendes", "David Okafor", "Elena Rossi",
		"Farid Haddad", "Grace Kim", "Hector Ruiz", "Irene Novak", "Jamal Wright",
	}
	mockTags = []string{
		"flex", "Flex Mobile;priority", "im telecom", "IMTelecom billing", "im_telecom porting",
		"tempo", "Tempo Wireless;retention", "north american local", "NorthAmerican activation",
		"general", "escalation", "", "test call", "Demo line", "qa-TEST",
	}
)

// MockSource serves a fixed synthetic universe with the same filter and pagination
// semantics as the live store. It is immutable after construction and safe for concurrent use.
type MockSource struct {
	universe []CallRecord
	calls    atomic.Int64
}

// NewMockSource generates the universe from a fixed seed. Two sources are always identical.
func NewMockSource() *MockSource {
	return &MockSource{universe: generateUniverse(mockUniverseSize)}
}

func generateUniverse(n int) []CallRecord {
	rng := rand.New(rand.NewPCG(0x5eed, 0xcd7))
	out := make([]CallRecord, 0, n)
	for i := 1; i <= n; i++ {
		start := mockBaseTime.Add(-time.Duration(i-1) * 53 * time.Minute)
		dur := time.Duration(30+rng.IntN(1770)) * time.Second

		r := CallRecord{
			InteractionID:       fmt.Sprintf("MOCK-%06d", i),
			CallType:            "inbound",
			StartTime:           start,
			EndTime:             start.Add(dur),
			CustomerPhoneNumber: fmt.Sprintf("+1555%07d", rng.IntN(10_000_000)),
			AgentName:           mockAgents[rng.IntN(len(mockAgents))],
			Tags:                mockTags[rng.IntN(len(mockTags))],
		}

		switch {
		case i == 1:
			r.Tags = "flex"
		case i%17 == 0:
			r.CallType = "outbound"
		}

		r.AudioFileName = mockAudio(i)
		out = append(out, r)
	}
	return out
}

// Every 7th row has no audio and every 11th an empty file name. Row 1 always has audio.
func mockAudio(i int) *string {
	var name string
	switch {
	case i == 1:
		name = "audio_1.wav"
	case i%7 == 0:
		return nil
	case i%11 == 0:
		name = ""
	default:
		name = fmt.Sprintf("audio_%d.wav", i)
	}
	return &name
}

// Universe returns every generated row, including ones the baseline hides, without
// derived fields. Used to seed fixture databases.
func (m *MockSource) Universe() []CallRecord {
	out := make([]CallRecord, len(m.universe))
	copy(out, m.universe)
	return out
}

// Calls reports how many queries the source has answered.
func (m *MockSource) Calls() int64 {
	return m.calls.Load()
}

// Generate filters, orders and slices the universe.
func (m *MockSource) Generate(limit, offset int, f FilterSet) ([]CallRecord, int) {
	m.calls.Add(1)
	matched := m.filter(f)
	total := len(matched)

	if offset >= total {
		return []CallRecord{}, total
	}
	// offset+limit can overflow for caller-supplied values.
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	page := make([]CallRecord, 0, end-offset)
	for _, r := range matched[offset:end] {
		page = append(page, r.annotate())
	}
	return page, total
}

// Count returns how many records match f.
func (m *MockSource) Count(f FilterSet) int {
	m.calls.Add(1)
	return len(m.filter(f))
}

// Get finds a visible record by id.
func (m *MockSource) Get(id string) (CallRecord, bool) {
	m.calls.Add(1)
	matched := m.filter(FilterSet{InteractionID: id})
	if len(matched) == 0 {
		return CallRecord{}, false
	}
	return matched[0].annotate(), true
}

// Distinct returns the sorted distinct non-empty values of column over visible records.
func (m *MockSource) Distinct(column string) ([]string, error) {
	var pick func(CallRecord) string
	switch column {
	case "agentname":
		pick = func(r CallRecord) string { return r.AgentName }
	case "calltype":
		pick = func(r CallRecord) string { return r.CallType }
	case "tags":
		pick = func(r CallRecord) string { return r.Tags }
	default:
		return nil, fmt.Errorf("%w: no distinct listing for column %q", ErrInvalidFilter, column)
	}
	m.calls.Add(1)

	seen := map[string]bool{}
	out := []string{}
	for _, r := range m.filter(FilterSet{}) {
		v := pick(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

func (m *MockSource) filter(f FilterSet) []CallRecord {
	out := make([]CallRecord, 0, len(m.universe))
	for _, r := range m.universe {
		if visible(r) && matches(r, f) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b CallRecord) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.InteractionID, a.InteractionID)
	})
	return out
}

// visible applies the baseline: inbound only, no test or demo tags.
func visible(r CallRecord) bool {
	if r.CallType != "inbound" {
		return false
	}
	tags := strings.ToLower(r.Tags)
	return !strings.Contains(tags, "test") && !strings.Contains(tags, "demo")
}

func matches(r CallRecord, f FilterSet) bool {
	if f.StartDate != nil && r.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.StartTime.After(*f.EndDate) {
		return false
	}
	if f.AgentName != "" && !strings.HasPrefix(r.AgentName, f.AgentName) {
		return false
	}
	if f.CallType != "" && r.CallType != f.CallType {
		return false
	}
	if f.CustomerPhone != "" && !strings.HasPrefix(r.CustomerPhoneNumber, f.CustomerPhone) {
		return false
	}
	if f.InteractionID != "" && r.InteractionID != f.InteractionID {
		return false
	}
	if f.Company != "" && IsTenant(f.Company) && ResolveTenant(r.Tags) != f.Company {
		return false
	}
	if f.HasAudio != nil && r.HasAudio() != *f.HasAudio {
		return false
	}
	return true
}
