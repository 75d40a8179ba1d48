package reports

import (
	"context"
	"time"
)

type Repository interface {
	Counts(ctx context.Context, today time.Time) (Counts, error)
	RecentAccess(ctx context.Context, limit int) ([]AccessLogEntry, error)
	Roster(ctx context.Context) ([]RosterRow, error)
}
