package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gym-access-go/pkg/logger"
)

const (
	defaultMaxRetries   = 4
	defaultRetryInitial = 20 * time.Millisecond
	maxRetryElapsed     = 2 * time.Second

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Options tunes a Service. MaxRetries 0 disables retrying; other zero values
// fall back to defaults.
type Options struct {
	MaxRetries   int
	RetryInitial time.Duration
	Location     *time.Location
	Recorder     Recorder
}

// Service is the entitlement engine. It owns the admission rules and runs
// each state change as one retried transaction.
type Service struct {
	repo         Repository
	log          logger.Logger
	metrics      Recorder
	tracer       trace.Tracer
	loc          *time.Location
	maxRetries   int
	retryInitial time.Duration
	now          func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	return NewServiceWithOptions(repo, log, Options{MaxRetries: defaultMaxRetries})
}

func NewServiceWithOptions(repo Repository, log logger.Logger, opts Options) *Service {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = defaultRetryInitial
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}

	return &Service{
		repo:         repo,
		log:          log,
		metrics:      opts.Recorder,
		tracer:       otel.Tracer("gym-access/membership"),
		loc:          opts.Location,
		maxRetries:   opts.MaxRetries,
		retryInitial: opts.RetryInitial,
		now:          time.Now,
	}
}

// SeedCatalog inserts the fixed plan set. Existing plans are left alone.
func (s *Service) SeedCatalog(ctx context.Context) error {
	err := s.retry(ctx, "seed_catalog", func() error {
		return s.repo.SeedPlans(ctx, CatalogPlans())
	})
	return s.fail("seed_catalog", err)
}

// CheckIn resolves one presentation of a DNI at the kiosk. Unknown and denied
// outcomes are results, not errors; an error always means storage trouble.
func (s *Service) CheckIn(ctx context.Context, dni string) (CheckInResult, error) {
	ctx, span := s.tracer.Start(ctx, "membership.check_in")
	defer span.End()

	dni = normalizeDNI(dni)
	if dni == "" {
		s.recordCheckIn(span, CheckInResult{Outcome: OutcomeUnknown})
		return CheckInResult{Outcome: OutcomeUnknown}, nil
	}

	today := s.today()
	var result CheckInResult

	err := s.inTx(ctx, "check_in", func(tx Repository) error {
		result = CheckInResult{Outcome: OutcomeUnknown}

		member, err := tx.GetActiveMemberByDNI(ctx, dni)
		if errors.Is(err, ErrMemberNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		outcome := decide(*member, today)
		if outcome == OutcomeGranted {
			taken, err := tx.DecrementVisit(ctx, member.ID)
			if err != nil {
				return err
			}
			if !taken {
				// Balance moved between read and write; re-run the decision.
				return ErrConflict
			}
			member.RemainingVisits--
		}

		kind, _ := outcome.accessKind()
		event := &AccessEvent{
			MemberID:   member.ID,
			OccurredAt: s.now().UTC(),
			Kind:       kind,
		}
		if err := tx.AppendAccessEvent(ctx, event); err != nil {
			return err
		}

		result = CheckInResult{Outcome: outcome, Card: cardFor(member)}
		return nil
	})
	if err != nil {
		endSpan(span, err)
		return CheckInResult{}, s.fail("check_in", err)
	}

	s.recordCheckIn(span, result)
	return result, nil
}

// decide applies the admission rules. Expiration is checked before the visit
// balance, so an expired member with visits left is denied as expired.
func decide(member Member, today time.Time) Outcome {
	if !today.Before(dateOnly(member.ExpirationDate)) {
		return OutcomeDeniedExpired
	}
	if member.RemainingVisits <= 0 {
		return OutcomeDeniedNoVisits
	}
	return OutcomeGranted
}

func (s *Service) recordCheckIn(span trace.Span, result CheckInResult) {
	s.metrics.CheckIn(result.Outcome)
	span.SetAttributes(attribute.String("checkin.outcome", string(result.Outcome)))

	if result.Card == nil {
		s.log.Info("checkin: unknown dni")
		return
	}
	span.SetAttributes(attribute.Int64("member.id", result.Card.MemberID))
	s.log.Info("checkin: resolved",
		"member_id", result.Card.MemberID,
		"outcome", result.Outcome,
		"remaining_visits", result.Card.RemainingVisits,
	)
}

// LookupDNIStatus tells whether a DNI is free, held by an active member or
// held by a soft-deleted one.
func (s *Service) LookupDNIStatus(ctx context.Context, dni string) (DNIStatus, error) {
	var status DNIStatus
	err := s.retry(ctx, "lookup_dni_status", func() error {
		var err error
		status, err = dniStatus(ctx, s.repo, normalizeDNI(dni))
		return err
	})
	if err != nil {
		return "", s.fail("lookup_dni_status", err)
	}
	return status, nil
}

func dniStatus(ctx context.Context, repo Repository, dni string) (DNIStatus, error) {
	if dni == "" {
		return DNIStatusNotFound, nil
	}
	member, err := repo.GetMemberByDNI(ctx, dni)
	if errors.Is(err, ErrMemberNotFound) {
		return DNIStatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if member.Active {
		return DNIStatusActive, nil
	}
	return DNIStatusInactive, nil
}

// Register creates a new active member. A DNI held by a soft-deleted member
// yields ErrDNIBelongsToInactive so the caller can offer Reactivate instead.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.register")
	defer span.End()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.DNI = normalizeDNI(input.DNI)
	if input.Visits < 0 {
		return nil, s.fail("register", ErrInvalidVisits)
	}

	today := s.today()
	var created *Member

	err := s.inTx(ctx, "register", func(tx Repository) error {
		status, err := dniStatus(ctx, tx, input.DNI)
		if err != nil {
			return err
		}
		switch status {
		case DNIStatusActive:
			return ErrDuplicateActiveDNI
		case DNIStatusInactive:
			return ErrDNIBelongsToInactive
		}

		plan, err := resolvePlan(ctx, tx, input.PlanName)
		if err != nil {
			return err
		}

		member := &Member{
			FirstName:        input.FirstName,
			LastName:         input.LastName,
			DNI:              input.DNI,
			RemainingVisits:  input.Visits,
			ExpirationDate:   expirationFrom(today),
			LastPaymentDate:  &today,
			RegistrationDate: today,
			Active:           true,
		}
		if plan != nil {
			member.PlanID = &plan.ID
		}

		if err := tx.CreateMember(ctx, member); err != nil {
			if errors.Is(err, ErrDuplicateDNI) {
				// Another writer took the DNI after our lookup.
				return ErrConflict
			}
			return err
		}
		member.Plan = plan
		created = member
		return nil
	})
	if err != nil {
		endSpan(span, err)
		return nil, s.fail("register", err)
	}

	span.SetAttributes(attribute.Int64("member.id", created.ID))
	s.log.Info("member: registered", "member_id", created.ID, "plan", created.PlanName())
	return created, nil
}

// Renew resets the entitlement window. Visits are replaced, not added.
func (s *Service) Renew(ctx context.Context, memberID int64, planName string, visits int) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.renew", trace.WithAttributes(attribute.Int64("member.id", memberID)))
	defer span.End()

	if visits < 0 {
		return nil, s.fail("renew", ErrInvalidVisits)
	}

	today := s.today()
	var renewed *Member

	err := s.inTx(ctx, "renew", func(tx Repository) error {
		if _, err := tx.GetMemberByID(ctx, memberID); err != nil {
			return err
		}

		plan, err := resolvePlan(ctx, tx, planName)
		if err != nil {
			return err
		}

		ok, err := tx.ResetEntitlement(ctx, memberID, newEntitlement(plan, visits, today))
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotFound
		}

		renewed, err = tx.GetMemberByID(ctx, memberID)
		return err
	})
	if err != nil {
		endSpan(span, err)
		return nil, s.fail("renew", err)
	}

	s.log.Info("member: renewed", "member_id", memberID, "plan", renewed.PlanName(), "visits", visits)
	return renewed, nil
}

// Reactivate revives a soft-deleted member by DNI with a fresh window. Any
// visits left from before the deletion are discarded.
func (s *Service) Reactivate(ctx context.Context, input ReactivateInput) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.reactivate")
	defer span.End()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.DNI = normalizeDNI(input.DNI)
	if input.Visits < 0 {
		return nil, s.fail("reactivate", ErrInvalidVisits)
	}

	today := s.today()
	var revived *Member

	err := s.inTx(ctx, "reactivate", func(tx Repository) error {
		plan, err := resolvePlan(ctx, tx, input.PlanName)
		if err != nil {
			return err
		}

		ok, err := tx.ReactivateByDNI(ctx, input, newEntitlement(plan, input.Visits, today))
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotFound
		}

		revived, err = tx.GetMemberByDNI(ctx, input.DNI)
		return err
	})
	if err != nil {
		endSpan(span, err)
		return nil, s.fail("reactivate", err)
	}

	span.SetAttributes(attribute.Int64("member.id", revived.ID))
	s.log.Info("member: reactivated", "member_id", revived.ID, "plan", revived.PlanName())
	return revived, nil
}

// Edit changes identity fields only.
func (s *Service) Edit(ctx context.Context, input EditInput) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.edit", trace.WithAttributes(attribute.Int64("member.id", input.ID)))
	defer span.End()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.DNI = normalizeDNI(input.DNI)

	var edited *Member
	err := s.inTx(ctx, "edit", func(tx Repository) error {
		ok, err := tx.UpdateIdentity(ctx, input)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotFound
		}
		edited, err = tx.GetMemberByID(ctx, input.ID)
		return err
	})
	if err != nil {
		endSpan(span, err)
		return nil, s.fail("edit", err)
	}

	s.log.Info("member: edited", "member_id", input.ID)
	return edited, nil
}

// SoftDelete deactivates a member. Deleting twice, or deleting an id that
// does not exist, succeeds.
func (s *Service) SoftDelete(ctx context.Context, memberID int64) error {
	ctx, span := s.tracer.Start(ctx, "membership.soft_delete", trace.WithAttributes(attribute.Int64("member.id", memberID)))
	defer span.End()

	var touched bool
	err := s.inTx(ctx, "soft_delete", func(tx Repository) error {
		var err error
		touched, err = tx.SetActive(ctx, memberID, false)
		return err
	})
	if err != nil {
		endSpan(span, err)
		return s.fail("soft_delete", err)
	}

	if !touched {
		s.log.Debug("member: soft delete matched no row", "member_id", memberID)
		return nil
	}
	s.log.Info("member: soft deleted", "member_id", memberID)
	return nil
}

// ListActive returns active members whose name, surname or DNI contains
// filter, newest first.
func (s *Service) ListActive(ctx context.Context, filter string) ([]Member, error) {
	var members []Member
	err := s.retry(ctx, "list_active", func() error {
		var err error
		members, err = s.repo.ListActiveMembers(ctx, strings.TrimSpace(filter))
		return err
	})
	if err != nil {
		return nil, s.fail("list_active", err)
	}
	return members, nil
}

func (s *Service) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	var member *Member
	err := s.retry(ctx, "get_member", func() error {
		var err error
		member, err = s.repo.GetMemberByID(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, s.fail("get_member", err)
	}
	return member, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	err := s.retry(ctx, "list_plans", func() error {
		var err error
		plans, err = s.repo.ListPlans(ctx)
		return err
	})
	if err != nil {
		return nil, s.fail("list_plans", err)
	}
	return plans, nil
}

// MemberHistory lists a member's access events newest first. History of
// soft-deleted members stays readable.
func (s *Service) MemberHistory(ctx context.Context, memberID int64, limit int) ([]AccessEvent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var events []AccessEvent
	err := s.retry(ctx, "member_history", func() error {
		if _, err := s.repo.GetMemberByID(ctx, memberID); err != nil {
			return err
		}
		var err error
		events, err = s.repo.ListAccessEvents(ctx, memberID, limit)
		return err
	})
	if err != nil {
		return nil, s.fail("member_history", err)
	}
	return events, nil
}

// Today is the calendar date the engine currently judges expiration against.
func (s *Service) Today() time.Time {
	return s.today()
}

func (s *Service) inTx(ctx context.Context, op string, fn func(Repository) error) error {
	return s.retry(ctx, op, func() error {
		return s.repo.Transaction(ctx, fn)
	})
}

// retry re-runs fn while it reports ErrConflict, with exponential backoff and
// at most maxRetries extra attempts.
func (s *Service) retry(ctx context.Context, op string, fn func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.retryInitial
	expo.MaxElapsedTime = maxRetryElapsed

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(s.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		s.metrics.Retry(op)
		s.log.Debug("membership: retrying after conflict", "op", op, "wait", wait, "err", err)
	}

	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, notify)
}

// fail is the engine boundary: business errors pass through, everything else
// becomes a StorageError.
func (s *Service) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if isBusinessError(err) {
		s.log.BusinessError("membership: "+op+" rejected", err)
		return err
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	s.metrics.StorageFailure(op)
	s.log.InternalError("membership: "+op+" failed", err)
	return &StorageError{Op: op, Err: err}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func resolvePlan(ctx context.Context, repo Repository, name string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	plan, err := repo.GetPlanByName(ctx, name)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, nil
	}
	return plan, err
}

func newEntitlement(plan *Plan, visits int, today time.Time) Entitlement {
	ent := Entitlement{
		RemainingVisits: visits,
		LastPaymentDate: today,
		ExpirationDate:  expirationFrom(today),
	}
	if plan != nil {
		ent.PlanID = &plan.ID
	}
	return ent
}

func cardFor(member *Member) *MemberCard {
	return &MemberCard{
		MemberID:        member.ID,
		FirstName:       member.FirstName,
		LastName:        member.LastName,
		PlanName:        member.PlanName(),
		ExpirationDate:  dateOnly(member.ExpirationDate),
		LastPaymentDate: member.LastPaymentDate,
		RemainingVisits: member.RemainingVisits,
	}
}

func expirationFrom(today time.Time) time.Time {
	return today.AddDate(0, 0, RenewalWindowDays)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeDNI(dni string) string {
	return strings.TrimSpace(dni)
}

func endSpan(span trace.Span, err error) {
	if isBusinessError(err) {
		span.SetAttributes(attribute.String("membership.rejected", err.Error()))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
