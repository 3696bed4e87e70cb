package rwlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
)

const blockWait = 50 * time.Millisecond

func TestRUnlockWithoutReaders(t *testing.T) {
	l := New()
	err := l.RUnlock()
	if !errors.Is(err, apperrors.ErrIllegalState) {
		t.Fatalf("RUnlock() error = %v, want ErrIllegalState", err)
	}
}

func TestUnlockFromNonOwner(t *testing.T) {
	l := New()

	if err := l.Unlock(context.Background()); !errors.Is(err, apperrors.ErrConcurrentModification) {
		t.Errorf("Unlock() on free lock error = %v, want ErrConcurrentModification", err)
	}

	owner := l.Lock(context.Background())
	if err := l.Unlock(context.Background()); !errors.Is(err, apperrors.ErrConcurrentModification) {
		t.Errorf("Unlock() by stranger error = %v, want ErrConcurrentModification", err)
	}
	if l.Writers() != 1 {
		t.Errorf("Writers() = %d after rejected unlock, want 1", l.Writers())
	}
	if err := l.Unlock(owner); err != nil {
		t.Errorf("Unlock() by owner error = %v", err)
	}
}

func TestStaleTokenIsNotOwner(t *testing.T) {
	l := New()
	first := l.Lock(context.Background())
	if err := l.Unlock(first); err != nil {
		t.Fatal(err)
	}
	second := l.Lock(context.Background())
	defer l.Unlock(second)

	if l.IsActiveWriter(first) {
		t.Error("token from a finished write session still counts as active writer")
	}
	if err := l.Unlock(first); !errors.Is(err, apperrors.ErrConcurrentModification) {
		t.Errorf("Unlock(stale) error = %v, want ErrConcurrentModification", err)
	}
}

func TestWriterReentrancy(t *testing.T) {
	l := New()
	ctx := l.Lock(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.RLock(ctx)
		nested := l.Lock(ctx)
		if nested != ctx {
			t.Error("nested Lock returned a new identity")
		}
		if got := l.Writers(); got != 2 {
			t.Errorf("Writers() = %d, want 2", got)
		}
		if err := l.Unlock(nested); err != nil {
			t.Errorf("nested Unlock() error = %v", err)
		}
		if err := l.RUnlock(); err != nil {
			t.Errorf("RUnlock() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("active writer deadlocked re-entering its own lock")
	}

	if !l.IsActiveWriter(ctx) {
		t.Error("outer writer lost ownership after nested release")
	}
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if l.Writers() != 0 || l.IsActiveWriter(ctx) {
		t.Error("lock still held after final Unlock")
	}
}

func TestWriterExcludesReaders(t *testing.T) {
	l := New()
	ctx := l.Lock(context.Background())

	acquired := make(chan struct{})
	go func() {
		l.RLock(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired while a writer held the lock")
	case <-time.After(blockWait):
	}

	if err := l.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader not woken after writer released")
	}
	if err := l.RUnlock(); err != nil {
		t.Fatal(err)
	}
}

func TestReadersShareAndBlockWriter(t *testing.T) {
	l := New()
	l.RLock(context.Background())
	l.RLock(context.Background())
	if got := l.Readers(); got != 2 {
		t.Fatalf("Readers() = %d, want 2", got)
	}

	acquired := make(chan context.Context)
	go func() {
		acquired <- l.Lock(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired while readers held the lock")
	case <-time.After(blockWait):
	}

	l.RUnlock()
	select {
	case <-acquired:
		t.Fatal("writer acquired with one reader left")
	case <-time.After(blockWait):
	}

	l.RUnlock()
	select {
	case ctx := <-acquired:
		if err := l.Unlock(ctx); err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer not woken after readers released")
	}
}

func TestConcurrentWriters(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ctx := l.Lock(context.Background())
				counter++
				if err := l.Unlock(ctx); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	if counter != 5000 {
		t.Errorf("counter = %d, want 5000", counter)
	}
}

func BenchmarkReadLock(b *testing.B) {
	l := New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.RLock(ctx)
			l.RUnlock()
		}
	})
}
