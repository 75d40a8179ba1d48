package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	reportsdomain "gym-access-go/internal/domain/reports"
)

type SQLRepository struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Counts(ctx context.Context, today time.Time) (reportsdomain.Counts, error) {
	query := `SELECT
			COUNT(*) AS active_members,
			COALESCE(SUM(CASE WHEN m.expiration_date <= ? THEN 1 ELSE 0 END), 0) AS expired_members,
			COALESCE(SUM(p.price_cents), 0) AS revenue_cents
		FROM members m
		LEFT JOIN plans p ON p.id = m.plan_id
		WHERE m.active = ?`

	var counts reportsdomain.Counts
	if err := r.db.WithContext(ctx).Raw(query, today, true).Scan(&counts).Error; err != nil {
		return reportsdomain.Counts{}, err
	}
	return counts, nil
}

func (r *SQLRepository) RecentAccess(ctx context.Context, limit int) ([]reportsdomain.AccessLogEntry, error) {
	query := `SELECT e.id AS event_id, e.member_id, m.first_name, m.last_name, m.dni, e.kind, e.occurred_at
		FROM access_events e
		JOIN members m ON m.id = e.member_id
		ORDER BY e.id DESC
		LIMIT ?`

	rows := make([]reportsdomain.AccessLogEntry, 0)
	if err := r.db.WithContext(ctx).Raw(query, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLRepository) Roster(ctx context.Context) ([]reportsdomain.RosterRow, error) {
	query := `SELECT m.id AS member_id, m.first_name, m.last_name, m.dni,
			COALESCE(p.name, '') AS plan_name,
			m.remaining_visits, m.expiration_date, m.last_payment_date, m.active
		FROM members m
		LEFT JOIN plans p ON p.id = m.plan_id
		ORDER BY m.last_name, m.first_name, m.id`

	rows := make([]reportsdomain.RosterRow, 0)
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
