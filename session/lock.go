package session

import (
	"context"
	"sync"

	"github.com/kavehmz/agentic-office-manager/errors"
)

// Locker provides operation-level mutual exclusion per conversation ID.
// It prevents two concurrent turns from racing on the same session's
// transcript and pending-approval state. Turns for distinct conversations
// proceed in parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*convMutex
}

type convMutex struct {
	mu       sync.Mutex
	refCount int
}

// NewLocker creates a new session locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*convMutex)}
}

// Lock acquires the lock for the given conversation ID. It blocks until the
// lock is acquired or the context is cancelled. Returns an unlock function
// that MUST be called when the turn is complete.
func (l *Locker) Lock(ctx context.Context, id string) (unlock func(), err error) {
	l.mu.Lock()
	cm, ok := l.locks[id]
	if !ok {
		cm = &convMutex{}
		l.locks[id] = cm
	}
	cm.refCount++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		cm.mu.Lock()
		close(acquired)
	}()

	release := func() {
		cm.mu.Unlock()
		l.mu.Lock()
		cm.refCount--
		if cm.refCount == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}

	select {
	case <-acquired:
		return release, nil
	case <-ctx.Done():
		// The acquiring goroutine may still obtain the mutex later; wait for
		// it and release immediately so the lock is never held forever.
		go func() {
			<-acquired
			release()
		}()
		return nil, errors.Wrapf(ctx.Err(), "session lock for '%s'", id)
	}
}

// ActiveCount returns the number of conversations with active or pending
// locks. Intended for testing.
func (l *Locker) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
