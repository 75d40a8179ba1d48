package reports

import (
	"context"
	"fmt"
	"time"

	"gym-access-go/pkg/logger"
)

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 500
)

type Service struct {
	repo Repository
	log  logger.Logger
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo: repo,
		log:  log,
		loc:  loc,
		now:  time.Now,
	}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	today := s.today()
	counts, err := s.repo.Counts(ctx, today)
	if err != nil {
		s.log.InternalError("reports: summary failed", err)
		return Summary{}, fmt.Errorf("reports summary: %w", err)
	}

	return Summary{
		AsOf:                  today,
		ActiveMembers:         counts.ActiveMembers,
		ExpiredMembers:        counts.ExpiredMembers,
		UpToDateMembers:       counts.ActiveMembers - counts.ExpiredMembers,
		EstimatedRevenueCents: counts.RevenueCents,
	}, nil
}

// RecentAccess returns the latest access events across all members.
func (s *Service) RecentAccess(ctx context.Context, limit int) ([]AccessLogEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := s.repo.RecentAccess(ctx, limit)
	if err != nil {
		s.log.InternalError("reports: access log failed", err)
		return nil, fmt.Errorf("reports access log: %w", err)
	}
	return rows, nil
}

func (s *Service) Roster(ctx context.Context) ([]RosterRow, error) {
	rows, err := s.repo.Roster(ctx)
	if err != nil {
		s.log.InternalError("reports: roster failed", err)
		return nil, fmt.Errorf("reports roster: %w", err)
	}
	return rows, nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
