package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when Advance is called. Callbacks of
// expired timers run synchronously inside Advance, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	waiters []*fakeTimer
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Duration
	f        func()
	done     bool
}

func NewFake() *Fake {
	return &Fake{}
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{
		clock:    c,
		deadline: c.now + d,
		f:        f,
	}

	c.waiters = append(c.waiters, t)

	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}

	t.done = true

	return true
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, t := range c.waiters {
		if !t.done {
			n += 1
		}
	}

	return n
}

// Advance moves time forward by d and fires every timer that expired.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d

	var expired []*fakeTimer
	var pending []*fakeTimer

	for _, t := range c.waiters {
		switch {
		case t.done:
		case t.deadline <= c.now:
			t.done = true
			expired = append(expired, t)
		default:
			pending = append(pending, t)
		}
	}

	c.waiters = pending
	c.mu.Unlock()

	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].deadline < expired[j].deadline
	})

	// run outside the lock: callbacks may schedule or stop timers.
	for _, t := range expired {
		t.f()
	}
}
