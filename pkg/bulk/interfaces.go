package bulk

import (
	"context"
	"time"
)

// ItemFailure describes a single document the sink rejected within an
// otherwise executed bulk request.
type ItemFailure struct {
	ID     string
	Status int
	Reason string
}

// Completion is the terminal report of one submitted batch. Exactly one
// Completion is delivered per successful Submit call. Err is set when the
// request as a whole failed to execute; Failures lists per-item rejections
// of an executed request.
type Completion struct {
	Took      time.Duration
	Succeeded int
	Failures  []ItemFailure
	Err       error
}

// Sink accepts closed batches for asynchronous execution.
//
// Submit initiates the request and returns a channel that delivers exactly
// one Completion, from whatever goroutine the sink runs on. A non-nil error
// return means dispatch itself failed and no Completion will ever arrive;
// the caller keeps ownership of slot accounting in that case.
type Sink interface {
	Submit(ctx context.Context, batch []Mutation) (<-chan Completion, error)
}
