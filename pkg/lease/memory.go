package lease

import (
	"context"
	"sync"
	"time"
)

type memoryHold struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is a process-local Locker. Leases expire after Options.TTL
// even if the holder never releases them.
type MemoryLocker struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	holds    map[string]memoryHold
	released chan struct{} // closed and replaced on every release
}

// NewMemoryLocker creates a process-local locker
func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		opts:     opts.withDefaults(),
		now:      time.Now,
		holds:    make(map[string]memoryHold),
		released: make(chan struct{}),
	}
}

// Acquire blocks until key is free, ctx is done, or the wait budget is spent
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	deadline := l.now().Add(l.opts.Wait)
	token := newToken()

	for {
		l.mu.Lock()
		now := l.now()
		hold, held := l.holds[key]
		if !held || !now.Before(hold.expiresAt) {
			l.holds[key] = memoryHold{token: token, expiresAt: now.Add(l.opts.TTL)}
			l.mu.Unlock()
			return l.releaser(key, token), nil
		}
		wake := l.released
		l.mu.Unlock()

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return nil, ErrBusy
		}
		// Wake up for a release, an expiring lease, or the deadline
		if untilExpiry := hold.expiresAt.Sub(now); untilExpiry < remaining {
			remaining = untilExpiry
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *MemoryLocker) releaser(key, token string) ReleaseFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// A lease that expired may already belong to someone else
			if hold, ok := l.holds[key]; ok && hold.token == token {
				delete(l.holds, key)
			}
			close(l.released)
			l.released = make(chan struct{})
		})
	}
}

// Held reports whether key currently has a live lease
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold, ok := l.holds[key]
	return ok && l.now().Before(hold.expiresAt)
}
