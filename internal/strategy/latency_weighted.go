package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

// latencyWeightedStrategy draws uniformly over [1, Total] and maps the draw
// to an entry through the cumulative weights.
type latencyWeightedStrategy struct {
	draw func(total int) int
}

// NewLatencyWeightedStrategy returns the default strategy.
func NewLatencyWeightedStrategy() Strategy {
	return NewLatencyWeightedStrategyWithDraw(func(total int) int {
		return rand.IntN(total) + 1
	})
}

// NewLatencyWeightedStrategyWithDraw uses draw to produce values in
// [1, total].
func NewLatencyWeightedStrategyWithDraw(draw func(total int) int) Strategy {
	return &latencyWeightedStrategy{draw: draw}
}

func (l *latencyWeightedStrategy) Select(table *Table) (backend.Endpoint, bool) {
	total := table.Total()
	if total == 0 {
		return backend.Endpoint{}, false
	}

	return table.Lookup(l.draw(total))
}
