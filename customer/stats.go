package customer

import (
	"context"
	"time"
)

// ExpiringSoonDays is the window, in days, in which a membership counts as expiring soon.
const ExpiringSoonDays = 30

type Stats struct {
	Total        int `json:"total"`
	Gold         int `json:"gold"`
	Platinum     int `json:"platinum"`
	Diamond      int `json:"diamond"`
	ExpiringSoon int `json:"expiringSoon"`
}

func (r *Repository) ComputeStats(ctx context.Context) (Stats, error) {
	ctx, span := r.tracer.Start(ctx, "customer.ComputeStats")
	defer span.End()

	customers, err := r.load(ctx)
	if err != nil {
		return Stats{}, err
	}
	return StatsAt(customers, r.now()), nil
}

// StatsAt counts customers per tier and those whose membership ends within the next
// ExpiringSoonDays days. Expired memberships are not expiring soon.
func StatsAt(customers []Customer, now time.Time) Stats {
	s := Stats{Total: len(customers)}
	for _, c := range customers {
		switch c.MembershipType {
		case Gold:
			s.Gold++
		case Platinum:
			s.Platinum++
		case Diamond:
			s.Diamond++
		}

		if days := c.DaysUntilExpiry(now); days > 0 && days <= ExpiringSoonDays {
			s.ExpiringSoon++
		}
	}
	return s
}
