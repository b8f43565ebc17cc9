package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

type roundRobinStrategy struct {
	current uint64
}

func (rb *roundRobinStrategy) Select(table *Table) (backend.Endpoint, bool) {
	n := table.Len()
	if n == 0 {
		return backend.Endpoint{}, false
	}

	next := atomic.AddUint64(&rb.current, 1)
	index := (next - 1) % uint64(n)

	return table.at(int(index)), true
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
