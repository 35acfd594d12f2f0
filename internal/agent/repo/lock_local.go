package repo

import (
	"context"
	"sync"
)

// LocalSessionLocker serializes turns within a single process. It is the
// locker of choice for tests and single-instance deployments where Redis
// coordination buys nothing.
type LocalSessionLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalSessionLocker() *LocalSessionLocker {
	return &LocalSessionLocker{locks: make(map[string]*localLock)}
}

// Acquire blocks until the session's mutex is held. Entries are refcounted
// and removed on final release, so the map is bounded by the number of
// in-flight turns rather than the number of sessions ever seen.
func (l *LocalSessionLocker) Acquire(_ context.Context, userID, sessionID string) (func(), error) {
	key := userID + ":" + sessionID

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}, nil
}
