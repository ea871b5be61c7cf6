package domain

// FreePlanID is the identifier of the free tier in the default catalog.
const FreePlanID = "free"

// DefaultPlans returns the built-in plan catalog. The backend catalog is
// authoritative; this set is only consulted when the remote catalog is
// unavailable mid-checkout, so a selected plan can still be priced.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:         FreePlanID,
			Name:       "Free",
			PriceCents: 0,
			RAMMB:      1024,
			FPS:        30,
		},
		{
			ID:         "1",
			Name:       "Starter",
			PriceCents: 10000, // $100/mo
			RAMMB:      2048,
			FPS:        60,
		},
		{
			ID:         "2",
			Name:       "Pro",
			PriceCents: 30000, // $300/mo
			RAMMB:      4096,
			FPS:        120,
		},
		{
			ID:         "4",
			Name:       "Premium",
			PriceCents: 50000, // $500/mo
			RAMMB:      8192,
			FPS:        240,
		},
	}
}

// PlanByID looks up id in plans and reports whether it was found.
func PlanByID(plans []Plan, id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
