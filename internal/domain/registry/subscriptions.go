package registry

import "github.com/pizzeria/dashboard-delivery-service/internal/domain/event"

// subscriptionSet is the per-client allow-list of event types eligible for broadcast.
type subscriptionSet map[event.EventType]struct{}

func allSubscriptions() subscriptionSet {
	set := make(subscriptionSet, len(event.AllEventTypes()))
	for _, t := range event.AllEventTypes() {
		set[t] = struct{}{}
	}
	return set
}

func (s subscriptionSet) has(t event.EventType) bool {
	_, ok := s[t]
	return ok
}

// names lists the set in enumeration order so snapshots are stable.
func (s subscriptionSet) names() []string {
	res := make([]string, 0, len(s))
	for _, t := range event.AllEventTypes() {
		if s.has(t) {
			res = append(res, t.String())
		}
	}
	return res
}
