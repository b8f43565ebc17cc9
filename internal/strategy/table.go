package strategy

import (
	"sort"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

// Table is an immutable selection table. Entries are ordered by latency,
// slowest first, with strictly increasing cumulative weights.
type Table struct {
	entries []backend.Scored
}

// BuildTable sorts a copy of scored by latency descending and assigns
// triangular cumulative weights. The input slice is left untouched.
func BuildTable(scored []backend.Scored) *Table {
	entries := make([]backend.Scored, len(scored))
	copy(entries, scored)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Latency > entries[j].Latency
	})

	weight := 0
	for i := range entries {
		weight += i + 1
		entries[i].CumulativeWeight = weight
	}

	return &Table{entries: entries}
}

// Len returns the number of entries. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Total returns the last cumulative weight, or 0 for an empty table.
func (t *Table) Total() int {
	if t.Len() == 0 {
		return 0
	}
	return t.entries[len(t.entries)-1].CumulativeWeight
}

// Entries returns a copy of the table in selection order.
func (t *Table) Entries() []backend.Scored {
	if t.Len() == 0 {
		return nil
	}
	out := make([]backend.Scored, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the first entry whose cumulative weight is at least draw.
// Draws outside [1, Total] match nothing.
func (t *Table) Lookup(draw int) (backend.Endpoint, bool) {
	if draw < 1 || draw > t.Total() {
		return backend.Endpoint{}, false
	}

	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].CumulativeWeight >= draw
	})

	return t.entries[idx].Endpoint, true
}

func (t *Table) at(i int) backend.Endpoint {
	return t.entries[i].Endpoint
}
