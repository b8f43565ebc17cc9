package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

type randomStrategy struct{}

func (r *randomStrategy) Select(table *Table) (backend.Endpoint, bool) {
	n := table.Len()
	if n == 0 {
		return backend.Endpoint{}, false
	}

	return table.at(rand.IntN(n)), true
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
