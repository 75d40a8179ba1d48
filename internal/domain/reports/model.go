package reports

import (
	"time"

	"gym-access-go/internal/domain/membership"
)

// Summary is the front-desk dashboard. Expired counts members whose
// expiration date is today or earlier, the same rule the kiosk applies.
type Summary struct {
	AsOf                  time.Time `json:"as_of"`
	ActiveMembers         int64     `json:"active_members"`
	ExpiredMembers        int64     `json:"expired_members"`
	UpToDateMembers       int64     `json:"up_to_date_members"`
	EstimatedRevenueCents int64     `json:"estimated_revenue_cents"`
}

// Counts is what the store aggregates for a Summary.
type Counts struct {
	ActiveMembers  int64 `gorm:"column:active_members"`
	ExpiredMembers int64 `gorm:"column:expired_members"`
	RevenueCents   int64 `gorm:"column:revenue_cents"`
}

type AccessLogEntry struct {
	EventID    int64                 `json:"event_id" gorm:"column:event_id"`
	MemberID   int64                 `json:"member_id" gorm:"column:member_id"`
	FirstName  string                `json:"first_name" gorm:"column:first_name"`
	LastName   string                `json:"last_name" gorm:"column:last_name"`
	DNI        string                `json:"dni" gorm:"column:dni"`
	Kind       membership.AccessKind `json:"kind" gorm:"column:kind"`
	OccurredAt time.Time             `json:"occurred_at" gorm:"column:occurred_at"`
}

type RosterRow struct {
	MemberID        int64      `json:"member_id" gorm:"column:member_id"`
	FirstName       string     `json:"first_name" gorm:"column:first_name"`
	LastName        string     `json:"last_name" gorm:"column:last_name"`
	DNI             string     `json:"dni" gorm:"column:dni"`
	PlanName        string     `json:"plan_name" gorm:"column:plan_name"`
	RemainingVisits int        `json:"remaining_visits" gorm:"column:remaining_visits"`
	ExpirationDate  time.Time  `json:"expiration_date" gorm:"column:expiration_date"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty" gorm:"column:last_payment_date"`
	Active          bool       `json:"active" gorm:"column:active"`
}
