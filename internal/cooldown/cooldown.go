// Package cooldown enforces a minimum interval between accepted score
// submissions of the same player.
//
// Unlike the token-bucket limiter in the HTTP middleware (edge abuse control
// per user or IP), a cooldown is a domain rule: a submission is accepted only
// when the previous *accepted* submission of that identity is at least Window
// old. A rejected attempt never moves the window.
//
// Two implementations are provided:
//   - Memory: process-local, per-identity locking, reset on restart
//   - Redis:  shared across processes using SET NX PX
package cooldown

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the cooldown between two accepted submissions.
const DefaultWindow = 3 * time.Second

// Decision is the result of a cooldown check. RetryAfter is set only when the
// submission was rejected and reports the time left until the identity is
// eligible again, measured from the last accepted submission.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter checks and records a submission attempt in one atomic step.
type Limiter interface {
	Allow(ctx context.Context, identity string, now time.Time) (Decision, error)
}

// entry guards the last accepted time of one identity.
type entry struct {
	mu   sync.Mutex
	last time.Time
	set  bool
}

// Memory is an in-process Limiter. Each identity has its own mutex, so
// concurrent submissions of one identity are serialized while different
// identities never contend on a shared lock.
//
// Entries are never evicted; memory grows with the number of distinct
// identities seen since start.
type Memory struct {
	window  time.Duration
	entries sync.Map // identity -> *entry
}

// NewMemory returns a Memory limiter. A non-positive window falls back to
// DefaultWindow.
func NewMemory(window time.Duration) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{window: window}
}

// Window reports the configured cooldown.
func (m *Memory) Window() time.Duration { return m.window }

// Allow accepts the attempt when identity has no accepted submission yet or
// the last one is at least Window old; the stored time then becomes now.
// It never returns an error.
func (m *Memory) Allow(_ context.Context, identity string, now time.Time) (Decision, error) {
	v, _ := m.entries.LoadOrStore(identity, &entry{})
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set {
		if elapsed := now.Sub(e.last); elapsed < m.window {
			return Decision{Allowed: false, RetryAfter: m.window - elapsed}, nil
		}
	}
	e.last = now
	e.set = true
	return Decision{Allowed: true}, nil
}

// Forget drops the entry of identity.
func (m *Memory) Forget(identity string) { m.entries.Delete(identity) }

// Len returns the number of tracked identities.
func (m *Memory) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
