package dispatch

import (
	"context"
	"sync"
	"time"
)

// keyLocks serializes work per conversation key while letting unrelated
// keys proceed fully concurrently. Entries are reference-counted so the
// map does not grow with every key ever seen.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire takes the lock for key, waiting at most wait. On success it
// returns a release func and true; on bounded-wait expiry or context
// cancellation it returns false.
func (l *keyLocks) acquire(ctx context.Context, key string, wait time.Duration) (func(), bool) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.unref(key, e)
		}, true
	case <-timer.C:
		l.unref(key, e)
		return nil, false
	case <-ctx.Done():
		l.unref(key, e)
		return nil, false
	}
}

func (l *keyLocks) unref(key string, e *keyLock) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
