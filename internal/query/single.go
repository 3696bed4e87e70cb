package query

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
)

// Single answers queries on the calling goroutine. It is not safe for
// concurrent use.
type Single struct {
	searcher Searcher
	sink     Sink
	results  map[string][]index.PageScore
	logger   *slog.Logger
}

// NewSingle returns a Single handler. sink may be nil.
func NewSingle(searcher Searcher, sink Sink) *Single {
	return &Single{
		searcher: searcher,
		sink:     sink,
		results:  make(map[string][]index.PageScore),
		logger:   slog.Default().With("component", "query"),
	}
}

func (h *Single) ParseQueryLine(line string, exact bool) {
	key, stems := Key(line)
	if key == "" {
		return
	}
	if _, ok := h.results[key]; ok {
		return
	}
	results := h.searcher.Search(stems, exact)
	h.results[key] = results
	if h.sink != nil {
		h.sink.Store(key, exact, results)
	}
}

func (h *Single) ParseQueryFile(path string, exact bool) error {
	err := eachLine(path, func(line string) error {
		h.ParseQueryLine(line, exact)
		return nil
	})
	if err != nil {
		return err
	}
	h.logger.Info("queries answered", "path", path, "queries", len(h.results), "exact", exact)
	return nil
}

func (h *Single) Results() map[string][]index.PageScore {
	return copyResults(h.results)
}

func (h *Single) QueryLines() []string {
	return sortedQueries(h.results)
}

func (h *Single) QueryResults(line string) ([]index.PageScore, bool) {
	key, _ := Key(line)
	results, ok := h.results[key]
	return results, ok
}

var _ Handler = (*Single)(nil)
