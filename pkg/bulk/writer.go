package bulk

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultBulkSize       = 100
	defaultMaxTotalStalls = 10
)

// Config holds the tunables of a Writer.
type Config struct {
	// BulkSize is the number of mutations per bulk request.
	BulkSize int
	// MaxActiveRequests bounds outstanding submissions. Only consulted
	// when the Writer constructs its own Limiter.
	MaxActiveRequests int
	// WaitBeforeContinue is how long a blocked wait runs before it is
	// counted as a stall and retried. Only consulted when the Writer
	// constructs its own Limiter.
	WaitBeforeContinue time.Duration
	// MaxTotalStalls is the cumulative stall budget after which Flush
	// gives up fatally.
	MaxTotalStalls int
}

func (c *Config) setDefaults() {
	if c.BulkSize <= 0 {
		c.BulkSize = defaultBulkSize
	}
	if c.MaxActiveRequests <= 0 {
		c.MaxActiveRequests = defaultMaxActiveRequests
	}
	if c.WaitBeforeContinue <= 0 {
		c.WaitBeforeContinue = defaultWaitBeforeContinue
	}
	if c.MaxTotalStalls <= 0 {
		c.MaxTotalStalls = defaultMaxTotalStalls
	}
}

// Stats is a point-in-time snapshot of a writer and its shared limiter.
type Stats struct {
	Pending     int   `json:"pending"`
	Outstanding int   `json:"outstanding"`
	Stalls      int   `json:"stalls"`
	TotalDocs   int64 `json:"total_docs"`
}

// Writer accumulates mutations into bounded batches and submits them
// asynchronously to a Sink, capped by a shared Limiter.
//
// Multiple goroutines may call Write concurrently; calls are serialized
// internally and race only on which batch a mutation lands in. Batches are
// handed to the sink in the order they close; completion order is up to the
// sink.
type Writer struct {
	cfg     Config
	sink    Sink
	limiter *Limiter
	log     *zap.Logger

	mu     sync.Mutex
	acc    *accumulator // nil until the first Write
	stalls int
}

// NewWriter creates a writer submitting to sink, throttled by limiter.
// Pass the same Limiter to every writer that targets one physical sink; a
// nil limiter gets a private one built from cfg. A nil logger is replaced
// with a no-op logger.
func NewWriter(sink Sink, limiter *Limiter, cfg Config, log *zap.Logger) *Writer {
	cfg.setDefaults()
	if limiter == nil {
		limiter = NewLimiter(cfg.MaxActiveRequests, cfg.WaitBeforeContinue)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		cfg:     cfg,
		sink:    sink,
		limiter: limiter,
		log:     log,
	}
}

// Write appends one mutation to the open batch, submitting the batch when
// it fills. It blocks only while a submission waits for a free slot under
// saturation. The returned error is non-nil only when ctx ends during such
// a wait.
func (w *Writer) Write(ctx context.Context, m Mutation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.acc == nil {
		w.acc = newAccumulator(w.cfg.BulkSize)
	}
	w.acc.append(m)

	if w.acc.full() {
		return w.submitLocked(ctx)
	}
	return nil
}

// Flush submits any partial batch and blocks until every outstanding
// submission has completed. It fails with ErrTooManyStalls once the
// writer's cumulative stall count exceeds MaxTotalStalls; outstanding
// submissions then complete or fail in the background. Calling Flush
// before the first Write is a no-op.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.acc == nil {
		return nil
	}
	if w.stalls > w.cfg.MaxTotalStalls {
		return errors.Wrapf(ErrTooManyStalls, "%d stalls over budget %d", w.stalls, w.cfg.MaxTotalStalls)
	}

	if w.acc.len() > 0 {
		if err := w.submitLocked(ctx); err != nil {
			return err
		}
	}

	return w.limiter.AwaitDrain(ctx, func() bool {
		w.stalls++
		w.log.Warn("timed out waiting for outstanding bulk requests",
			zap.Int("outstanding", w.limiter.Outstanding()),
			zap.Int("stalls", w.stalls),
			zap.Duration("waited", w.limiter.WaitEach()))
		return w.stalls <= w.cfg.MaxTotalStalls
	})
}

// Stats returns a snapshot of the writer and its limiter.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	pending := 0
	if w.acc != nil {
		pending = w.acc.len()
	}
	stalls := w.stalls
	w.mu.Unlock()

	return Stats{
		Pending:     pending,
		Outstanding: w.limiter.Outstanding(),
		Stalls:      stalls,
		TotalDocs:   w.limiter.TotalDocs(),
	}
}

// submitLocked closes the open batch and dispatches it. Called with w.mu
// held; a fresh open batch is always installed, even when dispatch fails.
// Dispatch failures are logged and swallowed, and the acquired slot is
// released here because the sink never took over completion.
func (w *Writer) submitLocked(ctx context.Context) error {
	active, err := w.limiter.AcquireSlot(ctx, func() {
		w.stalls++
		w.log.Warn("timed out waiting for a free bulk slot",
			zap.Int("outstanding", w.limiter.Outstanding()),
			zap.Int("stalls", w.stalls),
			zap.Duration("waited", w.limiter.WaitEach()))
	})
	if err != nil {
		return err
	}

	batch := w.acc.takeAndReset()
	docs := len(batch)
	w.log.Info("submitting bulk request",
		zap.Int("docs", docs),
		zap.Int("active", active))

	done, err := w.sink.Submit(ctx, batch)
	if err != nil {
		w.limiter.ReleaseSlot(0)
		w.log.Error("failed to dispatch bulk request", zap.Error(err))
		return nil
	}

	go w.awaitCompletion(docs, done)
	return nil
}

// awaitCompletion consumes the single completion of one submission and
// releases its slot, whichever way the submission ended.
func (w *Writer) awaitCompletion(docs int, done <-chan Completion) {
	c := <-done

	switch {
	case c.Err != nil:
		w.limiter.ReleaseSlot(0)
		w.log.Error("bulk request failed", zap.Error(c.Err), zap.Int("docs", docs))
	case len(c.Failures) > 0:
		total := w.limiter.ReleaseSlot(c.Succeeded)
		first := c.Failures[0]
		w.log.Error("bulk request has item failures",
			zap.Int("failed", len(c.Failures)),
			zap.Int("docs", docs),
			zap.String("first_id", first.ID),
			zap.Int("first_status", first.Status),
			zap.String("first_reason", first.Reason),
			zap.Int64("total_docs", total))
	default:
		total := w.limiter.ReleaseSlot(c.Succeeded)
		w.log.Info("bulk request success",
			zap.Duration("took", c.Took),
			zap.Int("docs", docs),
			zap.Int64("total_docs", total))
	}
}
