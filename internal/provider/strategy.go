package provider

import (
	"sort"
	"sync/atomic"
)

// Strategy orders a set of candidate providers from most- to
// least-preferred for a single request. The fallback engine walks the
// order, skipping providers whose circuit is open (§4.2).
type Strategy interface {
	Order(handles []*handle) []*handle
}

func copyHandles(handles []*handle) []*handle {
	out := make([]*handle, len(handles))
	copy(out, handles)
	return out
}

// RoundRobinStrategy rotates the starting provider on each call so load is
// spread evenly across healthy providers over time (§4.2's fairness
// property, §8 scenario 3).
type RoundRobinStrategy struct {
	next uint64
}

func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

func (s *RoundRobinStrategy) Order(handles []*handle) []*handle {
	if len(handles) == 0 {
		return nil
	}
	start := int(atomic.AddUint64(&s.next, 1)-1) % len(handles)
	ordered := make([]*handle, 0, len(handles))
	for i := 0; i < len(handles); i++ {
		ordered = append(ordered, handles[(start+i)%len(handles)])
	}
	return ordered
}

// HealthBasedStrategy prefers providers with the highest rolling success
// rate, breaking ties by fewest consecutive failures.
type HealthBasedStrategy struct{}

func (HealthBasedStrategy) Order(handles []*handle) []*handle {
	ordered := copyHandles(handles)
	sort.SliceStable(ordered, func(i, j int) bool {
		hi, hj := ordered[i].snapshotHealth(), ordered[j].snapshotHealth()
		if hi.SuccessRate != hj.SuccessRate {
			return hi.SuccessRate > hj.SuccessRate
		}
		return hi.ConsecutiveFailures < hj.ConsecutiveFailures
	})
	return ordered
}

// PerformanceBasedStrategy prefers providers with the lowest observed
// average latency, as a proxy for user-perceived responsiveness.
type PerformanceBasedStrategy struct{}

func (PerformanceBasedStrategy) Order(handles []*handle) []*handle {
	ordered := copyHandles(handles)
	sort.SliceStable(ordered, func(i, j int) bool {
		hi, hj := ordered[i].snapshotHealth(), ordered[j].snapshotHealth()
		return hi.AverageLatency < hj.AverageLatency
	})
	return ordered
}

// PriorityStrategy orders providers by their static configured priority
// (lower value tried first), falling back to registration order on ties.
type PriorityStrategy struct{}

func (PriorityStrategy) Order(handles []*handle) []*handle {
	ordered := copyHandles(handles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].provider.Metadata().Priority < ordered[j].provider.Metadata().Priority
	})
	return ordered
}

// StrategyByName resolves the config-driven strategy name to an instance.
func StrategyByName(name string) Strategy {
	switch name {
	case "round_robin":
		return NewRoundRobinStrategy()
	case "performance_based":
		return PerformanceBasedStrategy{}
	case "priority":
		return PriorityStrategy{}
	default:
		return HealthBasedStrategy{}
	}
}
