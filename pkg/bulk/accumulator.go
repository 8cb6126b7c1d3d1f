package bulk

// accumulator collects mutations into the currently open batch.
// It is NOT thread-safe; the owning Writer serializes access.
type accumulator struct {
	open []Mutation
	size int
}

func newAccumulator(size int) *accumulator {
	return &accumulator{
		open: make([]Mutation, 0, size),
		size: size,
	}
}

// append adds a mutation to the open batch.
func (a *accumulator) append(m Mutation) {
	a.open = append(a.open, m)
}

// full reports whether the open batch has reached the configured size.
func (a *accumulator) full() bool {
	return len(a.open) >= a.size
}

// len returns the number of mutations in the open batch.
func (a *accumulator) len() int {
	return len(a.open)
}

// takeAndReset detaches the open batch and installs a fresh empty one.
// Allocation strategy follows the striped-batcher handoff: the detached
// slice is owned exclusively by the caller from here on.
func (a *accumulator) takeAndReset() []Mutation {
	batch := a.open
	a.open = make([]Mutation, 0, a.size)
	return batch
}
