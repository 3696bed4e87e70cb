package query

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/workqueue"
)

// Multi answers queries from many goroutines. Each query file is spread
// over a work queue, one task per line. The result cache has its own lock
// and the searcher is never called while holding it.
type Multi struct {
	searcher Searcher
	workers  int
	sink     Sink
	metrics  *metrics.Metrics
	group    singleflight.Group
	logger   *slog.Logger

	mu      sync.RWMutex
	results map[string][]index.PageScore
}

// NewMulti returns a Multi handler. sink and m may be nil.
func NewMulti(searcher Searcher, workers int, sink Sink, m *metrics.Metrics) *Multi {
	if workers < 1 {
		workers = workqueue.DefaultWorkers
	}
	return &Multi{
		searcher: searcher,
		workers:  workers,
		sink:     sink,
		metrics:  m,
		results:  make(map[string][]index.PageScore),
		logger:   slog.Default().With("component", "query"),
	}
}

// ParseQueryLine searches for line unless its normalised form is already
// stored. Concurrent calls for the same normalised query share one search.
func (h *Multi) ParseQueryLine(line string, exact bool) {
	key, stems := Key(line)
	if key == "" {
		h.observe("empty")
		return
	}
	if h.lookup(key) {
		h.observe("hit")
		return
	}

	h.group.Do(key, func() (any, error) {
		if h.lookup(key) {
			h.observe("hit")
			return nil, nil
		}
		start := time.Now()
		results := h.searcher.Search(stems, exact)
		h.observeSearch(exact, len(results), time.Since(start))

		h.mu.Lock()
		_, exists := h.results[key]
		if !exists {
			h.results[key] = results
		}
		h.mu.Unlock()

		if !exists && h.sink != nil {
			h.sink.Store(key, exact, results)
		}
		h.observe("miss")
		return nil, nil
	})
}

// ParseQueryFile submits one task per line of path and waits for all of
// them. Lines read before a read error are still answered.
func (h *Multi) ParseQueryFile(path string, exact bool) error {
	queue := workqueue.New(h.workers, h.metrics)
	defer queue.Shutdown()

	lines := 0
	err := eachLine(path, func(line string) error {
		lines++
		if err := queue.Execute(func() error {
			h.ParseQueryLine(line, exact)
			return nil
		}); err != nil {
			return fmt.Errorf("queueing query line: %w", err)
		}
		return nil
	})
	queue.Join()
	if err != nil {
		return err
	}
	h.logger.Info("queries answered",
		"path", path,
		"lines", lines,
		"queries", len(h.QueryLines()),
		"workers", queue.Size(),
		"exact", exact,
	)
	return nil
}

func (h *Multi) Results() map[string][]index.PageScore {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return copyResults(h.results)
}

func (h *Multi) QueryLines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedQueries(h.results)
}

func (h *Multi) QueryResults(line string) ([]index.PageScore, bool) {
	key, _ := Key(line)
	h.mu.RLock()
	defer h.mu.RUnlock()
	results, ok := h.results[key]
	return results, ok
}

func (h *Multi) lookup(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.results[key]
	return ok
}

func (h *Multi) observe(resultType string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (h *Multi) observeSearch(exact bool, results int, took time.Duration) {
	if h.metrics == nil {
		return
	}
	mode := "partial"
	if exact {
		mode = "exact"
	}
	h.metrics.SearchLatency.WithLabelValues(mode).Observe(took.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(results))
}

var _ Handler = (*Multi)(nil)
