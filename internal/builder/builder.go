// Package builder populates an inverted index from text files on disk,
// either sequentially or by fanning one task per file into a work queue.
package builder

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/workqueue"
)

const sourceFile = "file"

const maxLineBytes = 16 << 20

type Builder struct {
	workers   int
	metrics   *metrics.Metrics
	collector *events.Collector
	logger    *slog.Logger
}

// New returns a Builder. m and collector may be nil.
func New(workers int, m *metrics.Metrics, collector *events.Collector) *Builder {
	return &Builder{
		workers:   workers,
		metrics:   m,
		collector: collector,
		logger:    slog.Default().With("component", "builder"),
	}
}

// IsTextFile reports whether name ends in .txt or .text, ignoring case.
func IsTextFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".text")
}

// DiscoverTextFiles lists the text files under root in lexical order. A root
// that is itself a regular file is returned as is, whatever its extension.
func DiscoverTextFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsTextFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// AddFile stems every line of path into idx using path as the location.
// Positions start at 1 and run across lines. It returns the number of
// words added.
func AddFile(idx index.Index, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	position := 1
	for scanner.Scan() {
		position = idx.AddPositions(path, tokenizer.Stems(scanner.Text()), position)
	}
	if err := scanner.Err(); err != nil {
		return position - 1, fmt.Errorf("reading %s: %w", path, err)
	}
	return position - 1, nil
}

// Build adds every text file under root to idx on the calling goroutine.
// A file that cannot be read is logged and skipped.
func (b *Builder) Build(root string, idx index.Index) error {
	files, err := DiscoverTextFiles(root)
	if err != nil {
		return err
	}
	for _, path := range files {
		start := time.Now()
		words, err := AddFile(idx, path)
		if err != nil {
			b.logger.Warn("skipping file", "path", path, "error", err)
			continue
		}
		b.indexed(path, words, start)
	}
	b.logger.Info("index built", "root", root, "files", len(files), "words", idx.NumWords())
	return nil
}

// BuildConcurrent indexes each file under root into a private index on a
// work queue and merges it into shared. A file that cannot be read is
// logged and its private index discarded.
func (b *Builder) BuildConcurrent(root string, shared *index.ThreadSafe) error {
	files, err := DiscoverTextFiles(root)
	if err != nil {
		return err
	}

	queue := workqueue.New(b.workers, b.metrics)
	defer queue.Shutdown()

	for _, path := range files {
		err := queue.Execute(func() error {
			start := time.Now()
			private := index.New()
			words, err := AddFile(private, path)
			if err != nil {
				return fmt.Errorf("skipping file: %w", err)
			}
			shared.Merge(private)
			b.indexed(path, words, start)
			return nil
		})
		if err != nil {
			return fmt.Errorf("queueing %s: %w", path, err)
		}
	}
	queue.Join()

	b.logger.Info("index built", "root", root, "files", len(files), "workers", queue.Size(), "words", shared.NumWords())
	return nil
}

func (b *Builder) indexed(path string, words int, start time.Time) {
	if b.metrics != nil {
		b.metrics.LocationsIndexed.WithLabelValues(sourceFile).Inc()
	}
	b.collector.Track(events.IndexEvent{
		Type:      events.EventLocationIndexed,
		RunID:     b.collector.RunID(),
		Location:  path,
		Source:    sourceFile,
		Words:     words,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
}
