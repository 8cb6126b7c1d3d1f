package bulk

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

const testWaitEach = 5 * time.Millisecond

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)

	if l.MaxActive() != defaultMaxActiveRequests {
		t.Errorf("expected default max active %d, got %d", defaultMaxActiveRequests, l.MaxActive())
	}
	if l.WaitEach() != defaultWaitBeforeContinue {
		t.Errorf("expected default wait %v, got %v", defaultWaitBeforeContinue, l.WaitEach())
	}
}

func TestLimiter_AcquireBelowCap(t *testing.T) {
	l := NewLimiter(3, testWaitEach)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		active, err := l.AcquireSlot(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected acquire error: %v", err)
		}
		if active != want {
			t.Errorf("expected outstanding %d, got %d", want, active)
		}
	}

	if l.Outstanding() != 3 {
		t.Errorf("expected 3 outstanding, got %d", l.Outstanding())
	}
}

func TestLimiter_AcquireBlocksAtCap(t *testing.T) {
	l := NewLimiter(1, testWaitEach)
	ctx := context.Background()

	if _, err := l.AcquireSlot(ctx, nil); err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}

	acquired := make(chan int, 1)
	go func() {
		active, err := l.AcquireSlot(ctx, nil)
		if err != nil {
			t.Errorf("unexpected acquire error: %v", err)
		}
		acquired <- active
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the cap is reached")
	case <-time.After(20 * time.Millisecond):
	}

	l.ReleaseSlot(0)

	select {
	case active := <-acquired:
		if active != 1 {
			t.Errorf("expected outstanding 1 after release+acquire, got %d", active)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not resume after release")
	}
}

func TestLimiter_AcquireReportsStalls(t *testing.T) {
	l := NewLimiter(1, testWaitEach)
	ctx := context.Background()

	if _, err := l.AcquireSlot(ctx, nil); err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}

	var stalls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.AcquireSlot(ctx, func() { stalls.Add(1) })
	}()

	// Several wait cycles elapse without a release.
	time.Sleep(10 * testWaitEach)
	if stalls.Load() == 0 {
		t.Error("expected stall callbacks while saturated")
	}

	l.ReleaseSlot(0)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not resume after release")
	}
}

func TestLimiter_AcquireContextCanceled(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := l.AcquireSlot(ctx, nil); err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := l.AcquireSlot(ctx, nil)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not observe cancellation")
	}

	// The canceled caller must not have claimed a slot.
	if l.Outstanding() != 1 {
		t.Errorf("expected 1 outstanding, got %d", l.Outstanding())
	}
}

func TestLimiter_ReleaseWakesAllWaiters(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	ctx := context.Background()

	if _, err := l.AcquireSlot(ctx, nil); err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}

	var acquired atomic.Int32
	for i := 0; i < 2; i++ {
		go func() {
			if _, err := l.AcquireSlot(ctx, nil); err == nil {
				acquired.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	if got := acquired.Load(); got != 0 {
		t.Fatalf("expected both waiters blocked, %d acquired", got)
	}

	// One release frees one slot: both waiters wake, exactly one wins.
	l.ReleaseSlot(0)
	waitFor(t, func() bool { return acquired.Load() == 1 })

	time.Sleep(20 * time.Millisecond)
	if got := acquired.Load(); got != 1 {
		t.Fatalf("expected exactly one winner after one release, got %d", got)
	}

	l.ReleaseSlot(0)
	waitFor(t, func() bool { return acquired.Load() == 2 })
}

func TestLimiter_AwaitDrainImmediate(t *testing.T) {
	l := NewLimiter(2, testWaitEach)

	if err := l.AwaitDrain(context.Background(), func() bool {
		t.Error("no stall expected with nothing outstanding")
		return false
	}); err != nil {
		t.Errorf("unexpected drain error: %v", err)
	}
}

func TestLimiter_AwaitDrainWaitsForReleases(t *testing.T) {
	l := NewLimiter(2, testWaitEach)
	ctx := context.Background()

	l.AcquireSlot(ctx, nil)
	l.AcquireSlot(ctx, nil)

	drained := make(chan error, 1)
	go func() {
		drained <- l.AwaitDrain(ctx, func() bool { return true })
	}()

	select {
	case <-drained:
		t.Fatal("drain should block with submissions outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	l.ReleaseSlot(1)
	select {
	case <-drained:
		t.Fatal("drain should still block with one submission outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	l.ReleaseSlot(1)
	select {
	case err := <-drained:
		if err != nil {
			t.Errorf("unexpected drain error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not finish after final release")
	}
}

func TestLimiter_AwaitDrainAbortsWhenTold(t *testing.T) {
	l := NewLimiter(1, testWaitEach)
	ctx := context.Background()

	l.AcquireSlot(ctx, nil)

	stalls := 0
	err := l.AwaitDrain(ctx, func() bool {
		stalls++
		return stalls < 3
	})

	if err != ErrTooManyStalls {
		t.Errorf("expected ErrTooManyStalls, got %v", err)
	}
	if stalls != 3 {
		t.Errorf("expected 3 stall cycles before abort, got %d", stalls)
	}
	// The never-released slot is still accounted for.
	if l.Outstanding() != 1 {
		t.Errorf("expected 1 outstanding, got %d", l.Outstanding())
	}
}

func TestLimiter_TotalDocsAccumulates(t *testing.T) {
	l := NewLimiter(3, testWaitEach)
	ctx := context.Background()

	l.AcquireSlot(ctx, nil)
	l.AcquireSlot(ctx, nil)

	if total := l.ReleaseSlot(100); total != 100 {
		t.Errorf("expected running total 100, got %d", total)
	}
	if total := l.ReleaseSlot(42); total != 142 {
		t.Errorf("expected running total 142, got %d", total)
	}
	if l.TotalDocs() != 142 {
		t.Errorf("expected total docs 142, got %d", l.TotalDocs())
	}
	if l.Outstanding() != 0 {
		t.Errorf("expected 0 outstanding, got %d", l.Outstanding())
	}
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
