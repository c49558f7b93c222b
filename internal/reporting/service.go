package reporting

import (
	"context"
	"errors"
	"fmt"

	"paricus-portal/internal/recordings"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Counter is the part of the recordings gateway reporting needs. Counts go through the
// count cache, so a dashboard refresh inside its lifetime costs no store round-trips.
type Counter interface {
	CountRecordings(ctx context.Context, f recordings.FilterSet) (int, error)
}

type Service struct {
	counter Counter
	// parallelism bounds concurrent count queries per summary.
	parallelism int
}

func NewService(counter Counter) *Service { return &Service{counter: counter, parallelism: 4} }

func (s *Service) RecordingsSummary(ctx context.Context, req SummaryRequest) (RecordingsSummary, error) {
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return RecordingsSummary{}, fmt.Errorf("%w: to is before from", ErrInvalidRequest)
	}
	if req.Company != "" && !recordings.IsTenant(req.Company) {
		return RecordingsSummary{}, fmt.Errorf("%w: unknown company %q", ErrInvalidRequest, req.Company)
	}
	if s.counter == nil {
		return RecordingsSummary{}, errors.New("reporting: counter not configured")
	}

	base := recordings.FilterSet{StartDate: req.From, EndDate: req.To, AgentName: req.Agent, Company: req.Company}
	withAudio := base
	withAudio.HasAudio = boolPtr(true)

	companies := recordings.Tenants()
	if req.Company != "" {
		companies = []string{req.Company}
	}

	out := RecordingsSummary{Company: req.Company, ByCompany: make(map[string]int, len(companies))}
	perCompany := make([]int, len(companies))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	g.Go(func() (err error) {
		out.TotalRecordings, err = s.counter.CountRecordings(ctx, base)
		return err
	})
	g.Go(func() (err error) {
		out.WithAudio, err = s.counter.CountRecordings(ctx, withAudio)
		return err
	})
	for i, c := range companies {
		f := base
		f.Company = c
		g.Go(func() (err error) {
			perCompany[i], err = s.counter.CountRecordings(ctx, f)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return RecordingsSummary{}, err
	}

	for i, c := range companies {
		out.ByCompany[c] = perCompany[i]
	}
	out.WithoutAudio = out.TotalRecordings - out.WithAudio
	if out.TotalRecordings > 0 {
		out.AudioCoverage = float64(out.WithAudio) / float64(out.TotalRecordings)
	}
	return out, nil
}

func boolPtr(b bool) *bool { return &b }
