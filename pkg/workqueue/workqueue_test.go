package workqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
)

func TestExecuteAndJoin(t *testing.T) {
	q := New(4, nil)
	defer q.Shutdown()

	var count atomic.Int64
	for i := 0; i < 1000; i++ {
		if err := q.Execute(func() error {
			count.Add(1)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	q.Join()

	if got := count.Load(); got != 1000 {
		t.Errorf("executed %d tasks, want 1000", got)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d after Join, want 0", q.Pending())
	}
}

func TestJoinWaitsForNestedTasks(t *testing.T) {
	q := New(2, nil)
	defer q.Shutdown()

	var count atomic.Int64
	var spawn func(depth int) Task
	spawn = func(depth int) Task {
		return func() error {
			count.Add(1)
			if depth == 0 {
				return nil
			}
			time.Sleep(time.Millisecond)
			for i := 0; i < 2; i++ {
				if err := q.Execute(spawn(depth - 1)); err != nil {
					return err
				}
			}
			return nil
		}
	}
	q.Execute(spawn(5))
	q.Join()

	if got := count.Load(); got != 63 {
		t.Errorf("executed %d tasks, want 63", got)
	}
}

func TestJoinIsReusable(t *testing.T) {
	q := New(3, nil)
	defer q.Shutdown()

	var count atomic.Int64
	for round := 1; round <= 3; round++ {
		for i := 0; i < 10; i++ {
			q.Execute(func() error {
				count.Add(1)
				return nil
			})
		}
		q.Join()
		if got := count.Load(); got != int64(round*10) {
			t.Fatalf("round %d: count = %d", round, got)
		}
	}
}

func TestFailingTasksDoNotKillWorkers(t *testing.T) {
	m := metrics.New()
	q := New(1, m)
	defer q.Shutdown()

	var ran atomic.Bool
	q.Execute(func() error { panic("boom") })
	q.Execute(func() error { return errors.New("plain failure") })
	q.Execute(func() error {
		ran.Store(true)
		return nil
	})
	q.Join()

	if !ran.Load() {
		t.Fatal("task after a panic and a failure never ran on the single worker")
	}
}

func TestExecuteAfterShutdown(t *testing.T) {
	q := New(2, nil)
	q.Shutdown()
	q.Shutdown()

	err := q.Execute(func() error { return nil })
	if !errors.Is(err, apperrors.ErrShutdown) {
		t.Errorf("Execute() after Shutdown error = %v, want ErrShutdown", err)
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	q := New(1, nil)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		q.Execute(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	q.Shutdown()

	if len(order) != 20 {
		t.Fatalf("ran %d tasks before shutdown returned, want 20", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("single worker ran tasks out of FIFO order: %v", order)
		}
	}
}

func TestDefaultWorkers(t *testing.T) {
	q := New(0, nil)
	defer q.Shutdown()
	if q.Size() != DefaultWorkers {
		t.Errorf("Size() = %d, want %d", q.Size(), DefaultWorkers)
	}
}

func BenchmarkExecute(b *testing.B) {
	q := New(8, nil)
	defer q.Shutdown()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Execute(func() error { return nil })
	}
	q.Join()
}
