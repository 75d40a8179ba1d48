package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gym-access-go/internal/db"
	membershipdomain "gym-access-go/internal/domain/membership"
)

// SQLRepository stores members and access history through gorm. The same
// queries run on SQLite and Postgres.
type SQLRepository struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Transaction(ctx context.Context, fn func(membershipdomain.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLRepository{db: tx})
	})
	return translate(err)
}

// Plan catalog

func (r *SQLRepository) ListPlans(ctx context.Context) ([]membershipdomain.Plan, error) {
	var plans []membershipdomain.Plan
	if err := r.db.WithContext(ctx).Order("id asc").Find(&plans).Error; err != nil {
		return nil, translate(err)
	}
	return plans, nil
}

func (r *SQLRepository) GetPlanByName(ctx context.Context, name string) (*membershipdomain.Plan, error) {
	var plan membershipdomain.Plan
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membershipdomain.ErrPlanNotFound
		}
		return nil, translate(err)
	}
	return &plan, nil
}

func (r *SQLRepository) SeedPlans(ctx context.Context, plans []membershipdomain.Plan) error {
	if len(plans) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&plans).Error
	return translate(err)
}

// Members

func (r *SQLRepository) GetMemberByID(ctx context.Context, id int64) (*membershipdomain.Member, error) {
	return r.firstMember(ctx, "id = ?", id)
}

func (r *SQLRepository) GetMemberByDNI(ctx context.Context, dni string) (*membershipdomain.Member, error) {
	return r.firstMember(ctx, "dni = ?", dni)
}

func (r *SQLRepository) GetActiveMemberByDNI(ctx context.Context, dni string) (*membershipdomain.Member, error) {
	return r.firstMember(ctx, "dni = ? AND active = ?", dni, true)
}

func (r *SQLRepository) firstMember(ctx context.Context, query string, args ...any) (*membershipdomain.Member, error) {
	var member membershipdomain.Member
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where(query, args...).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, membershipdomain.ErrMemberNotFound
		}
		return nil, translate(err)
	}
	return &member, nil
}

func (r *SQLRepository) ListActiveMembers(ctx context.Context, filter string) ([]membershipdomain.Member, error) {
	query := r.db.WithContext(ctx).
		Preload("Plan").
		Where("active = ?", true)

	if filter != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter)) + "%"
		query = query.Where(
			`(LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(dni) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}

	var members []membershipdomain.Member
	if err := query.Order("id desc").Find(&members).Error; err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (r *SQLRepository) CreateMember(ctx context.Context, member *membershipdomain.Member) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
	if db.IsUniqueViolation(err) {
		return membershipdomain.ErrDuplicateDNI
	}
	return translate(err)
}

func (r *SQLRepository) UpdateIdentity(ctx context.Context, input membershipdomain.EditInput) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&membershipdomain.Member{}).
		Where("id = ?", input.ID).
		Updates(map[string]interface{}{
			"first_name": input.FirstName,
			"last_name":  input.LastName,
			"dni":        input.DNI,
		})
	if db.IsUniqueViolation(result.Error) {
		return false, membershipdomain.ErrDuplicateDNI
	}
	return result.RowsAffected > 0, translate(result.Error)
}

func (r *SQLRepository) ResetEntitlement(ctx context.Context, memberID int64, ent membershipdomain.Entitlement) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&membershipdomain.Member{}).
		Where("id = ?", memberID).
		Updates(entitlementColumns(ent))
	return result.RowsAffected > 0, translate(result.Error)
}

func (r *SQLRepository) ReactivateByDNI(ctx context.Context, input membershipdomain.ReactivateInput, ent membershipdomain.Entitlement) (bool, error) {
	updates := entitlementColumns(ent)
	updates["first_name"] = input.FirstName
	updates["last_name"] = input.LastName
	updates["active"] = true

	result := r.db.WithContext(ctx).
		Model(&membershipdomain.Member{}).
		Where("dni = ? AND active = ?", input.DNI, false).
		Updates(updates)
	return result.RowsAffected > 0, translate(result.Error)
}

func entitlementColumns(ent membershipdomain.Entitlement) map[string]interface{} {
	return map[string]interface{}{
		"plan_id":           ent.PlanID,
		"remaining_visits":  ent.RemainingVisits,
		"last_payment_date": ent.LastPaymentDate,
		"expiration_date":   ent.ExpirationDate,
	}
}

func (r *SQLRepository) SetActive(ctx context.Context, memberID int64, active bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&membershipdomain.Member{}).
		Where("id = ?", memberID).
		Update("active", active)
	return result.RowsAffected > 0, translate(result.Error)
}

func (r *SQLRepository) DecrementVisit(ctx context.Context, memberID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&membershipdomain.Member{}).
		Where("id = ? AND remaining_visits > 0", memberID).
		Update("remaining_visits", gorm.Expr("remaining_visits - 1"))
	return result.RowsAffected == 1, translate(result.Error)
}

// Access history

func (r *SQLRepository) AppendAccessEvent(ctx context.Context, event *membershipdomain.AccessEvent) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *SQLRepository) ListAccessEvents(ctx context.Context, memberID int64, limit int) ([]membershipdomain.AccessEvent, error) {
	var events []membershipdomain.AccessEvent
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("id desc").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, translate(err)
	}
	return events, nil
}

// translate turns lock contention into ErrConflict so the engine retries it.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if db.IsRetryable(err) {
		return fmt.Errorf("%w: %v", membershipdomain.ErrConflict, err)
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
