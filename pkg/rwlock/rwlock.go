// Package rwlock provides a reader/writer lock whose active writer may
// re-enter as a reader or a writer without deadlocking itself.
//
// Go does not expose goroutine identity, so the writer's identity travels in
// a context.Context: Lock returns a context carrying a token for this lock,
// and any nested RLock, Lock or Unlock made with that context is recognised
// as coming from the active writer.
package rwlock

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
)

type holderKey struct {
	lock *ReadWriteLock
}

// ReadWriteLock allows many concurrent readers or a single writer. The
// zero value is not usable; call New.
type ReadWriteLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	readers int
	writers int
	active  uint64
	seq     uint64
}

func New() *ReadWriteLock {
	l := &ReadWriteLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock blocks while another writer holds the lock. The active writer may
// acquire read locks freely.
func (l *ReadWriteLock) RLock(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.writers > 0 && !l.isActiveWriter(ctx) {
		l.cond.Wait()
	}
	l.readers++
}

// RUnlock releases one read lock. It returns ErrIllegalState when no reader
// holds the lock.
func (l *ReadWriteLock) RUnlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers == 0 {
		return fmt.Errorf("releasing read lock with no active readers: %w", apperrors.ErrIllegalState)
	}
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	return nil
}

// Lock blocks while any reader or another writer holds the lock, then records
// the caller as the active writer. The returned context identifies the writer
// and must be passed to Unlock and to any nested acquisition.
func (l *ReadWriteLock) Lock(ctx context.Context) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	for (l.writers > 0 || l.readers > 0) && !l.isActiveWriter(ctx) {
		l.cond.Wait()
	}
	if !l.isActiveWriter(ctx) {
		l.seq++
		l.active = l.seq
		ctx = context.WithValue(ctx, holderKey{l}, l.seq)
	}
	l.writers++
	return ctx
}

// Unlock releases one write acquisition. It returns ErrConcurrentModification
// when ctx does not identify the active writer.
func (l *ReadWriteLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isActiveWriter(ctx) {
		return fmt.Errorf("releasing write lock from a non-owner: %w", apperrors.ErrConcurrentModification)
	}
	l.writers--
	if l.writers == 0 {
		l.active = 0
		l.cond.Broadcast()
	}
	return nil
}

// IsActiveWriter reports whether ctx identifies the current write-lock holder.
func (l *ReadWriteLock) IsActiveWriter(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isActiveWriter(ctx)
}

func (l *ReadWriteLock) Readers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readers
}

func (l *ReadWriteLock) Writers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writers
}

// isActiveWriter must be called with mu held.
func (l *ReadWriteLock) isActiveWriter(ctx context.Context) bool {
	if l.writers == 0 {
		return false
	}
	token, ok := ctx.Value(holderKey{l}).(uint64)
	return ok && token == l.active
}
