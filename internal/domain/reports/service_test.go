package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-access-go/pkg/logger"
)

type fakeRepo struct {
	counts    Counts
	today     time.Time
	limit     int
	recent    []AccessLogEntry
	roster    []RosterRow
	countsErr error
}

func (f *fakeRepo) Counts(ctx context.Context, today time.Time) (Counts, error) {
	f.today = today
	return f.counts, f.countsErr
}

func (f *fakeRepo) RecentAccess(ctx context.Context, limit int) ([]AccessLogEntry, error) {
	f.limit = limit
	return f.recent, nil
}

func (f *fakeRepo) Roster(ctx context.Context) ([]RosterRow, error) {
	return f.roster, nil
}

func TestSummaryDerivesUpToDate(t *testing.T) {
	repo := &fakeRepo{counts: Counts{ActiveMembers: 10, ExpiredMembers: 3, RevenueCents: 5_000_000}}
	svc := NewService(repo, logger.Discard(), time.FixedZone("ART", -3*60*60))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC) }

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.UpToDateMembers)
	assert.Equal(t, int64(5_000_000), summary.EstimatedRevenueCents)

	wantToday := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantToday, repo.today)
	assert.Equal(t, wantToday, summary.AsOf)
}

func TestSummaryWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeRepo{countsErr: boom}, logger.Discard(), time.UTC)

	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRecentAccessClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, logger.Discard(), time.UTC)

	cases := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{20, 20},
		{10_000, 500},
	}
	for _, tc := range cases {
		_, err := svc.RecentAccess(context.Background(), tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, repo.limit, "limit %d", tc.in)
	}
}
