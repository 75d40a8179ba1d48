package membership

import "time"

// RenewalWindowDays is how long an entitlement lasts after registration,
// renewal or reactivation.
const RenewalWindowDays = 30

// Plan is a catalog entry. Prices are whole cents.
type Plan struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"uniqueIndex;not null"`
	PriceCents    int64     `gorm:"not null;default:0"`
	DefaultVisits int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Member is a membership record. Rows are never hard-deleted; Active=false
// marks a soft-deleted member whose DNI stays reserved.
type Member struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"`
	FirstName        string     `gorm:"not null"`
	LastName         string     `gorm:"not null"`
	DNI              string     `gorm:"column:dni;uniqueIndex;not null"`
	PlanID           *int64     `gorm:"index"`
	Plan             *Plan      `gorm:"foreignKey:PlanID"`
	RemainingVisits  int        `gorm:"not null;default:0"`
	ExpirationDate   time.Time  `gorm:"type:date;not null"`
	LastPaymentDate  *time.Time `gorm:"type:date"`
	RegistrationDate time.Time  `gorm:"type:date;not null"`
	Active           bool       `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (m Member) PlanName() string {
	if m.Plan == nil {
		return ""
	}
	return m.Plan.Name
}

// AccessKind is the tag stored on every history row.
type AccessKind string

const (
	AccessGranted        AccessKind = "Ingreso"
	AccessDeniedExpired  AccessKind = "Vencido"
	AccessDeniedNoVisits AccessKind = "Sin Pases"
)

// AccessEvent is one row of the append-only access history.
type AccessEvent struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	MemberID   int64      `gorm:"index;not null"`
	OccurredAt time.Time  `gorm:"not null"`
	Kind       AccessKind `gorm:"not null"`
}

// Outcome is the result of a check-in attempt. Only Granted admits.
type Outcome string

const (
	OutcomeGranted        Outcome = "granted"
	OutcomeDeniedExpired  Outcome = "denied_expired"
	OutcomeDeniedNoVisits Outcome = "denied_no_visits"
	OutcomeUnknown        Outcome = "unknown"
)

func (o Outcome) accessKind() (AccessKind, bool) {
	switch o {
	case OutcomeGranted:
		return AccessGranted, true
	case OutcomeDeniedExpired:
		return AccessDeniedExpired, true
	case OutcomeDeniedNoVisits:
		return AccessDeniedNoVisits, true
	default:
		return "", false
	}
}

// MemberCard is what the kiosk shows after a check-in against a known DNI.
type MemberCard struct {
	MemberID        int64
	FirstName       string
	LastName        string
	PlanName        string
	ExpirationDate  time.Time
	LastPaymentDate *time.Time
	RemainingVisits int
}

type CheckInResult struct {
	Outcome Outcome
	// Card is nil when Outcome is OutcomeUnknown.
	Card *MemberCard
}

func (r CheckInResult) Admitted() bool {
	return r.Outcome == OutcomeGranted
}

// DNIStatus is the tagged result of looking a DNI up across all rows.
type DNIStatus string

const (
	DNIStatusNotFound DNIStatus = "not_found"
	DNIStatusActive   DNIStatus = "active"
	DNIStatusInactive DNIStatus = "inactive"
)

type RegisterInput struct {
	FirstName string
	LastName  string
	DNI       string
	PlanName  string
	Visits    int
}

type ReactivateInput struct {
	FirstName string
	LastName  string
	DNI       string
	PlanName  string
	Visits    int
}

type EditInput struct {
	ID        int64
	FirstName string
	LastName  string
	DNI       string
}

// Entitlement is the set of fields a renewal or reactivation resets.
type Entitlement struct {
	PlanID          *int64
	RemainingVisits int
	LastPaymentDate time.Time
	ExpirationDate  time.Time
}
