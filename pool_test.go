package hxlookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pthm/hxlookup/lib/widget"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newPoolWidget(id string) func() (*widget.Widget, error) {
	return func() (*widget.Widget, error) {
		return widget.New(widget.Config{EntityType: "Account"}, widget.Deps{}, widget.WithID(id)), nil
	}
}

func TestPoolGetOrCreate(t *testing.T) {
	p := NewPool()
	defer p.Close()

	calls := 0
	create := func() (*widget.Widget, error) {
		calls++
		return newPoolWidget("w1")()
	}
	a, err := p.GetOrCreate("w1", create)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.GetOrCreate("w1", create)
	if a != b || calls != 1 {
		t.Errorf("second GetOrCreate built a new widget (calls %d)", calls)
	}
	if got, ok := p.Get("w1"); !ok || got != a {
		t.Error("Get did not return the pooled widget")
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d", p.Len())
	}

	boom := errors.New("boom")
	if _, err := p.GetOrCreate("w2", func() (*widget.Widget, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if p.Len() != 1 {
		t.Error("a failed create should not be pooled")
	}
}

func TestPoolCreatesOutsideLock(t *testing.T) {
	p := NewPool()
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	slow := func() (*widget.Widget, error) {
		calls.Add(1)
		close(started)
		<-release
		return newPoolWidget("slow")()
	}

	results := make(chan *widget.Widget, 2)
	for range 2 {
		go func() {
			w, err := p.GetOrCreate("slow", slow)
			if err != nil {
				t.Error(err)
			}
			results <- w
		}()
	}
	<-started

	// Another instance is not held up by the slow build.
	done := make(chan struct{})
	go func() {
		if _, err := p.GetOrCreate("fast", newPoolWidget("fast")); err != nil {
			t.Error(err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("GetOrCreate blocked behind another instance's create")
	}

	close(release)
	a, b := <-results, <-results
	if a == nil || a != b {
		t.Errorf("concurrent callers got different widgets: %p %p", a, b)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("create ran %d times, want 1", n)
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d", p.Len())
	}
}

func TestPoolReapClosesIdleWidgets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	p := NewPool(WithIdleTTL(time.Minute), WithPoolClock(clock.Now))
	defer p.Close()

	idle, _ := p.GetOrCreate("idle", newPoolWidget("idle"))
	clock.Advance(45 * time.Second)
	busy, _ := p.GetOrCreate("busy", newPoolWidget("busy"))
	clock.Advance(30 * time.Second)

	if n := p.Reap(); n != 1 {
		t.Fatalf("Reap closed %d widgets, want 1", n)
	}
	select {
	case <-idle.Done():
	default:
		t.Error("idle widget was not closed")
	}
	if _, err := idle.Snapshot(); !errors.Is(err, widget.ErrClosed) {
		t.Errorf("closed widget Snapshot err = %v", err)
	}
	if _, ok := p.Get("busy"); !ok {
		t.Error("busy widget was reaped")
	}
	if _, err := busy.Snapshot(); err != nil {
		t.Errorf("busy widget unusable: %v", err)
	}
}

func TestPoolRemoveAndRun(t *testing.T) {
	p := NewPool()
	w, _ := p.GetOrCreate("w1", newPoolWidget("w1"))
	if !p.Remove("w1") || p.Remove("w1") {
		t.Error("Remove should report presence once")
	}
	<-w.Done()

	other, _ := p.GetOrCreate("w2", newPoolWidget("w2"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done
	<-other.Done()
	if p.Len() != 0 {
		t.Errorf("Len after Run = %d", p.Len())
	}
}
