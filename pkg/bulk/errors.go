package bulk

import "errors"

var (
	// ErrTooManyStalls is returned by Flush once the writer's cumulative
	// stall count exceeds MaxTotalStalls. Some mutations may not have
	// reached the sink and submissions may still be in flight.
	ErrTooManyStalls = errors.New("bulk: total stall budget exceeded, aborting flush")
)
