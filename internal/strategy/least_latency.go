package strategy

import (
	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

// leastLatencyStrategy always picks the fastest probed endpoint, which is the
// last table entry.
type leastLatencyStrategy struct{}

func (l *leastLatencyStrategy) Select(table *Table) (backend.Endpoint, bool) {
	n := table.Len()
	if n == 0 {
		return backend.Endpoint{}, false
	}

	return table.at(n - 1), true
}

func NewLeastLatencyStrategy() Strategy {
	return &leastLatencyStrategy{}
}
