package strategy

import (
	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

// Names accepted by New.
const (
	LatencyWeighted = "latency-weighted"
	RoundRobin      = "round-robin"
	Random          = "random"
	LeastLatency    = "least-latency"
)

// Strategy picks an endpoint from a table. ok is false when the table is
// empty; that is a normal outcome, not an error.
type Strategy interface {
	Select(table *Table) (endpoint backend.Endpoint, ok bool)
}

// Names lists every strategy name New understands.
func Names() []string {
	return []string{LatencyWeighted, RoundRobin, Random, LeastLatency}
}

// New returns the strategy registered under name, falling back to latency
// weighting for unknown names. known reports whether name was recognised.
func New(name string) (s Strategy, known bool) {
	switch name {
	case LatencyWeighted:
		return NewLatencyWeightedStrategy(), true
	case RoundRobin:
		return NewRoundRobinStrategy(), true
	case Random:
		return NewRandomStrategy(), true
	case LeastLatency:
		return NewLeastLatencyStrategy(), true
	default:
		return NewLatencyWeightedStrategy(), false
	}
}
