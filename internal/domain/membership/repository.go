package membership

import "context"

// Repository is the membership store plus the access history log. Every
// engine operation runs inside exactly one Transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	// Plan catalog
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)
	SeedPlans(ctx context.Context, plans []Plan) error

	// Members
	GetMemberByID(ctx context.Context, id int64) (*Member, error)
	GetMemberByDNI(ctx context.Context, dni string) (*Member, error)
	GetActiveMemberByDNI(ctx context.Context, dni string) (*Member, error)
	ListActiveMembers(ctx context.Context, filter string) ([]Member, error)
	CreateMember(ctx context.Context, member *Member) error
	UpdateIdentity(ctx context.Context, input EditInput) (bool, error)
	ResetEntitlement(ctx context.Context, memberID int64, ent Entitlement) (bool, error)
	ReactivateByDNI(ctx context.Context, input ReactivateInput, ent Entitlement) (bool, error)
	SetActive(ctx context.Context, memberID int64, active bool) (bool, error)
	// DecrementVisit takes one visit only if the balance is positive. false
	// means nothing changed.
	DecrementVisit(ctx context.Context, memberID int64) (bool, error)

	// Access history
	AppendAccessEvent(ctx context.Context, event *AccessEvent) error
	ListAccessEvents(ctx context.Context, memberID int64, limit int) ([]AccessEvent, error)
}
