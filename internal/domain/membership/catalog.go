package membership

import "strings"

// FallbackVisits is pre-filled for plans missing from the allowance table.
const FallbackVisits = 12

type catalogEntry struct {
	name       string
	priceCents int64
	visits     int
}

// The allowance is keyed by exact plan name. "Libre" and "Pase Libre" are
// distinct entries, never substring matches of each other.
var catalog = []catalogEntry{
	{name: "Libre", priceCents: 2500000, visits: 30},
	{name: "Pase Libre", priceCents: 3200000, visits: 30},
	{name: "3 veces por semana", priceCents: 1800000, visits: 12},
	{name: "Boxeo", priceCents: 2000000, visits: 12},
	{name: "Funcional", priceCents: 2000000, visits: 12},
}

var allowances = func() map[string]int {
	m := make(map[string]int, len(catalog))
	for _, entry := range catalog {
		m[entry.name] = entry.visits
	}
	return m
}()

// DefaultVisits returns the visit count a form should pre-fill for a plan.
// It is advisory; operators may override it.
func DefaultVisits(planName string) int {
	if visits, ok := allowances[strings.TrimSpace(planName)]; ok {
		return visits
	}
	return FallbackVisits
}

// CatalogPlans returns the fixed plan set used to seed the store.
func CatalogPlans() []Plan {
	plans := make([]Plan, 0, len(catalog))
	for _, entry := range catalog {
		plans = append(plans, Plan{
			Name:          entry.name,
			PriceCents:    entry.priceCents,
			DefaultVisits: entry.visits,
		})
	}
	return plans
}
