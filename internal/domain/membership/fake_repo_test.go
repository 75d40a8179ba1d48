package membership

import (
	"context"
	"sort"
	"strings"
)

// fakeRepo keeps state in maps. Transaction works on a copy and swaps it in
// only when fn succeeds, so failed operations leave no trace.
type fakeRepo struct {
	state *fakeState

	// conflicts makes the next N Transaction calls fail with ErrConflict
	// before running fn.
	conflicts    int
	transactions int
	failAppend   error
}

type fakeState struct {
	plans   map[int64]Plan
	members map[int64]Member
	events  []AccessEvent
	nextID  int64
	eventID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{state: &fakeState{
		plans:   make(map[int64]Plan),
		members: make(map[int64]Member),
	}}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		plans:   make(map[int64]Plan, len(s.plans)),
		members: make(map[int64]Member, len(s.members)),
		events:  append([]AccessEvent(nil), s.events...),
		nextID:  s.nextID,
		eventID: s.eventID,
	}
	for id, p := range s.plans {
		c.plans[id] = p
	}
	for id, m := range s.members {
		c.members[id] = m
	}
	return c
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	r.transactions++
	if r.conflicts > 0 {
		r.conflicts--
		return ErrConflict
	}
	tx := &fakeRepo{state: r.state.clone(), failAppend: r.failAppend}
	if err := fn(tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *fakeRepo) ListPlans(ctx context.Context) ([]Plan, error) {
	plans := make([]Plan, 0, len(r.state.plans))
	for _, p := range r.state.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans, nil
}

func (r *fakeRepo) GetPlanByName(ctx context.Context, name string) (*Plan, error) {
	for _, p := range r.state.plans {
		if p.Name == name {
			plan := p
			return &plan, nil
		}
	}
	return nil, ErrPlanNotFound
}

func (r *fakeRepo) SeedPlans(ctx context.Context, plans []Plan) error {
	for _, p := range plans {
		if _, err := r.GetPlanByName(ctx, p.Name); err == nil {
			continue
		}
		r.state.nextID++
		p.ID = r.state.nextID
		r.state.plans[p.ID] = p
	}
	return nil
}

func (r *fakeRepo) withPlan(m Member) *Member {
	if m.PlanID != nil {
		if p, ok := r.state.plans[*m.PlanID]; ok {
			m.Plan = &p
		}
	}
	return &m
}

func (r *fakeRepo) GetMemberByID(ctx context.Context, id int64) (*Member, error) {
	m, ok := r.state.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return r.withPlan(m), nil
}

func (r *fakeRepo) GetMemberByDNI(ctx context.Context, dni string) (*Member, error) {
	for _, m := range r.state.members {
		if m.DNI == dni {
			return r.withPlan(m), nil
		}
	}
	return nil, ErrMemberNotFound
}

func (r *fakeRepo) GetActiveMemberByDNI(ctx context.Context, dni string) (*Member, error) {
	m, err := r.GetMemberByDNI(ctx, dni)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (r *fakeRepo) ListActiveMembers(ctx context.Context, filter string) ([]Member, error) {
	filter = strings.ToLower(filter)
	result := make([]Member, 0)
	for _, m := range r.state.members {
		if !m.Active {
			continue
		}
		hay := strings.ToLower(m.FirstName + "\x00" + m.LastName + "\x00" + m.DNI)
		if filter != "" && !strings.Contains(hay, filter) {
			continue
		}
		result = append(result, *r.withPlan(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *fakeRepo) dniTaken(dni string, except int64) bool {
	for id, m := range r.state.members {
		if id != except && m.DNI == dni {
			return true
		}
	}
	return false
}

func (r *fakeRepo) CreateMember(ctx context.Context, member *Member) error {
	if r.dniTaken(member.DNI, 0) {
		return ErrDuplicateDNI
	}
	r.state.nextID++
	member.ID = r.state.nextID
	stored := *member
	stored.Plan = nil
	r.state.members[member.ID] = stored
	return nil
}

func (r *fakeRepo) UpdateIdentity(ctx context.Context, input EditInput) (bool, error) {
	m, ok := r.state.members[input.ID]
	if !ok {
		return false, nil
	}
	if r.dniTaken(input.DNI, input.ID) {
		return false, ErrDuplicateDNI
	}
	m.FirstName, m.LastName, m.DNI = input.FirstName, input.LastName, input.DNI
	r.state.members[input.ID] = m
	return true, nil
}

func (r *fakeRepo) ResetEntitlement(ctx context.Context, memberID int64, ent Entitlement) (bool, error) {
	m, ok := r.state.members[memberID]
	if !ok {
		return false, nil
	}
	applyEntitlement(&m, ent)
	r.state.members[memberID] = m
	return true, nil
}

func (r *fakeRepo) ReactivateByDNI(ctx context.Context, input ReactivateInput, ent Entitlement) (bool, error) {
	for id, m := range r.state.members {
		if m.DNI != input.DNI || m.Active {
			continue
		}
		m.Active = true
		m.FirstName, m.LastName = input.FirstName, input.LastName
		applyEntitlement(&m, ent)
		r.state.members[id] = m
		return true, nil
	}
	return false, nil
}

func applyEntitlement(m *Member, ent Entitlement) {
	paid := ent.LastPaymentDate
	m.PlanID = ent.PlanID
	m.RemainingVisits = ent.RemainingVisits
	m.LastPaymentDate = &paid
	m.ExpirationDate = ent.ExpirationDate
}

func (r *fakeRepo) SetActive(ctx context.Context, memberID int64, active bool) (bool, error) {
	m, ok := r.state.members[memberID]
	if !ok {
		return false, nil
	}
	m.Active = active
	r.state.members[memberID] = m
	return true, nil
}

func (r *fakeRepo) DecrementVisit(ctx context.Context, memberID int64) (bool, error) {
	m, ok := r.state.members[memberID]
	if !ok || m.RemainingVisits <= 0 {
		return false, nil
	}
	m.RemainingVisits--
	r.state.members[memberID] = m
	return true, nil
}

func (r *fakeRepo) AppendAccessEvent(ctx context.Context, event *AccessEvent) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	r.state.eventID++
	event.ID = r.state.eventID
	r.state.events = append(r.state.events, *event)
	return nil
}

func (r *fakeRepo) ListAccessEvents(ctx context.Context, memberID int64, limit int) ([]AccessEvent, error) {
	result := make([]AccessEvent, 0)
	for i := len(r.state.events) - 1; i >= 0 && len(result) < limit; i-- {
		if r.state.events[i].MemberID == memberID {
			result = append(result, r.state.events[i])
		}
	}
	return result, nil
}

func (r *fakeRepo) eventsFor(memberID int64) []AccessEvent {
	var out []AccessEvent
	for _, e := range r.state.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out
}
