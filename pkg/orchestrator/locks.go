package orchestrator

import (
	"context"
	"sync"
)

// lockTable hands out one exclusive lock per interface key. Entries are
// reference counted and removed when no holder or waiter remains, so the
// table only ever contains interfaces with a transaction in flight.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*ifaceLock
}

type ifaceLock struct {
	ch   chan struct{}
	refs int
}

// acquire blocks until the lock for key is held or ctx is done. The
// returned release func is safe to call more than once.
func (t *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[string]*ifaceLock)
	}
	l, ok := t.locks[key]
	if !ok {
		l = &ifaceLock{ch: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		t.put(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			t.put(key, l)
		})
	}, nil
}

func (t *lockTable) put(key string, l *ifaceLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

// size returns the number of interfaces with a holder or waiter.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
