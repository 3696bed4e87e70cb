package index

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/rwlock"
)

// ThreadSafe guards an InvertedIndex with a re-entrant reader/writer lock.
// Writes take the write lock, reads the read lock. Operations that are
// composed of other guarded operations re-enter the lock with the writer's
// context.
type ThreadSafe struct {
	index  *InvertedIndex
	lock   *rwlock.ReadWriteLock
	logger *slog.Logger
}

func NewThreadSafe() *ThreadSafe {
	return &ThreadSafe{
		index:  New(),
		lock:   rwlock.New(),
		logger: slog.Default().With("component", "threadsafe-index"),
	}
}

func (t *ThreadSafe) read(ctx context.Context) func() {
	t.lock.RLock(ctx)
	return func() {
		if err := t.lock.RUnlock(); err != nil {
			t.logger.Error("read unlock failed", "error", err)
		}
	}
}

func (t *ThreadSafe) write(ctx context.Context) (context.Context, func()) {
	ctx = t.lock.Lock(ctx)
	return ctx, func() {
		if err := t.lock.Unlock(ctx); err != nil {
			t.logger.Error("write unlock failed", "error", err)
		}
	}
}

func (t *ThreadSafe) AddPosition(word, location string, position int) bool {
	return t.addPosition(context.Background(), word, location, position)
}

func (t *ThreadSafe) addPosition(ctx context.Context, word, location string, position int) bool {
	_, unlock := t.write(ctx)
	defer unlock()
	return t.index.AddPosition(word, location, position)
}

// AddPositions adds all words under a single write session so no reader sees
// a partially added location.
func (t *ThreadSafe) AddPositions(location string, words []string, start int) int {
	ctx, unlock := t.write(context.Background())
	defer unlock()
	for _, w := range words {
		t.addPosition(ctx, w, location, start)
		start++
	}
	return start
}

func (t *ThreadSafe) Merge(other *InvertedIndex) {
	ctx, unlock := t.write(context.Background())
	defer unlock()
	t.index.Merge(other)
	t.logger.Debug("merged index", "words", t.numWords(ctx))
}

func (t *ThreadSafe) Search(queries []string, exact bool) []PageScore {
	defer t.read(context.Background())()
	return t.index.Search(queries, exact)
}

func (t *ThreadSafe) ExactSearch(queries []string) []PageScore {
	defer t.read(context.Background())()
	return t.index.ExactSearch(queries)
}

func (t *ThreadSafe) PartialSearch(queries []string) []PageScore {
	defer t.read(context.Background())()
	return t.index.PartialSearch(queries)
}

func (t *ThreadSafe) ContainsWord(word string) bool {
	defer t.read(context.Background())()
	return t.index.ContainsWord(word)
}

func (t *ThreadSafe) ContainsLocation(word, location string) bool {
	defer t.read(context.Background())()
	return t.index.ContainsLocation(word, location)
}

func (t *ThreadSafe) ContainsPosition(word, location string, position int) bool {
	defer t.read(context.Background())()
	return t.index.ContainsPosition(word, location, position)
}

func (t *ThreadSafe) HasCount(location string) bool {
	defer t.read(context.Background())()
	return t.index.HasCount(location)
}

func (t *ThreadSafe) NumWords() int {
	return t.numWords(context.Background())
}

func (t *ThreadSafe) numWords(ctx context.Context) int {
	defer t.read(ctx)()
	return t.index.NumWords()
}

func (t *ThreadSafe) NumLocations(word string) int {
	defer t.read(context.Background())()
	return t.index.NumLocations(word)
}

func (t *ThreadSafe) NumPositions(word, location string) int {
	defer t.read(context.Background())()
	return t.index.NumPositions(word, location)
}

func (t *ThreadSafe) NumCounts() int {
	defer t.read(context.Background())()
	return t.index.NumCounts()
}

func (t *ThreadSafe) Words() []string {
	defer t.read(context.Background())()
	return t.index.Words()
}

func (t *ThreadSafe) Locations(word string) []string {
	defer t.read(context.Background())()
	return t.index.Locations(word)
}

func (t *ThreadSafe) Positions(word, location string) []int {
	defer t.read(context.Background())()
	return t.index.Positions(word, location)
}

func (t *ThreadSafe) Count(location string) int {
	defer t.read(context.Background())()
	return t.index.Count(location)
}

func (t *ThreadSafe) Counts() map[string]int {
	defer t.read(context.Background())()
	return t.index.Counts()
}

func (t *ThreadSafe) Snapshot() Snapshot {
	defer t.read(context.Background())()
	return t.index.Snapshot()
}

func (t *ThreadSafe) String() string {
	defer t.read(context.Background())()
	return t.index.String()
}

var (
	_ Index = (*InvertedIndex)(nil)
	_ Index = (*ThreadSafe)(nil)
)
