package index

import (
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/btree"
)

// Index is the capability set shared by the plain and the thread-safe
// inverted index.
type Index interface {
	AddPosition(word, location string, position int) bool
	AddPositions(location string, words []string, start int) int
	Merge(other *InvertedIndex)
	Search(queries []string, exact bool) []PageScore
	ExactSearch(queries []string) []PageScore
	PartialSearch(queries []string) []PageScore

	ContainsWord(word string) bool
	ContainsLocation(word, location string) bool
	ContainsPosition(word, location string, position int) bool
	HasCount(location string) bool
	NumWords() int
	NumLocations(word string) int
	NumPositions(word, location string) int
	NumCounts() int
	Words() []string
	Locations(word string) []string
	Positions(word, location string) []int
	Count(location string) int
	Counts() map[string]int
	Snapshot() Snapshot
}

// Snapshot is a detached copy of the index: word → location → positions.
type Snapshot map[string]map[string][]int

type wordEntry struct {
	word      string
	locations map[string]*roaring.Bitmap
}

func lessEntry(a, b *wordEntry) bool {
	return a.word < b.word
}

const btreeDegree = 32

// InvertedIndex maps words to the locations they occur in and the 1-based
// positions within each location. It also tracks the word count of every
// location. It is not safe for concurrent use; see ThreadSafe.
type InvertedIndex struct {
	words  *btree.BTreeG[*wordEntry]
	counts map[string]int
}

func New() *InvertedIndex {
	return &InvertedIndex{
		words:  btree.NewG(btreeDegree, lessEntry),
		counts: make(map[string]int),
	}
}

func (idx *InvertedIndex) entry(word string) (*wordEntry, bool) {
	return idx.words.Get(&wordEntry{word: word})
}

func (idx *InvertedIndex) bitmap(word, location string) (*roaring.Bitmap, bool) {
	e, ok := idx.entry(word)
	if !ok {
		return nil, false
	}
	bm, ok := e.locations[location]
	return bm, ok
}

// MaxPosition is the largest position a position set can hold.
const MaxPosition = math.MaxUint32

func validPosition(position int) bool {
	return position >= 1 && uint64(position) <= MaxPosition
}

// AddPosition records word at position in location and reports whether the
// position was new. Positions run from 1 to MaxPosition; anything outside is
// rejected and leaves the index unchanged.
func (idx *InvertedIndex) AddPosition(word, location string, position int) bool {
	if !validPosition(position) {
		return false
	}
	if position > idx.counts[location] {
		idx.counts[location] = position
	}
	e, ok := idx.entry(word)
	if !ok {
		e = &wordEntry{word: word, locations: make(map[string]*roaring.Bitmap)}
		idx.words.ReplaceOrInsert(e)
	}
	bm, ok := e.locations[location]
	if !ok {
		bm = roaring.New()
		e.locations[location] = bm
	}
	return bm.CheckedAdd(uint32(position))
}

// AddPositions adds words at consecutive positions starting at start and
// returns the position after the last word.
func (idx *InvertedIndex) AddPositions(location string, words []string, start int) int {
	for _, w := range words {
		idx.AddPosition(w, location, start)
		start++
	}
	return start
}

// Merge folds other into idx. Positions are unioned and location counts take
// the larger value. other must not be used afterwards: its position sets may
// be adopted by idx.
func (idx *InvertedIndex) Merge(other *InvertedIndex) {
	other.words.Ascend(func(oe *wordEntry) bool {
		e, ok := idx.entry(oe.word)
		if !ok {
			idx.words.ReplaceOrInsert(oe)
			return true
		}
		for location, obm := range oe.locations {
			if bm, ok := e.locations[location]; ok {
				bm.Or(obm)
			} else {
				e.locations[location] = obm
			}
		}
		return true
	})
	for location, count := range other.counts {
		if count > idx.counts[location] {
			idx.counts[location] = count
		}
	}
}

func (idx *InvertedIndex) ContainsWord(word string) bool {
	_, ok := idx.entry(word)
	return ok
}

func (idx *InvertedIndex) ContainsLocation(word, location string) bool {
	_, ok := idx.bitmap(word, location)
	return ok
}

func (idx *InvertedIndex) ContainsPosition(word, location string, position int) bool {
	bm, ok := idx.bitmap(word, location)
	return ok && validPosition(position) && bm.Contains(uint32(position))
}

// HasCount reports whether location has a word count.
func (idx *InvertedIndex) HasCount(location string) bool {
	_, ok := idx.counts[location]
	return ok
}

func (idx *InvertedIndex) NumWords() int {
	return idx.words.Len()
}

// NumLocations returns how many locations contain word, or -1 if the word is
// not indexed.
func (idx *InvertedIndex) NumLocations(word string) int {
	e, ok := idx.entry(word)
	if !ok {
		return -1
	}
	return len(e.locations)
}

// NumPositions returns how many positions word has in location, or -1 if the
// pair is not indexed.
func (idx *InvertedIndex) NumPositions(word, location string) int {
	bm, ok := idx.bitmap(word, location)
	if !ok {
		return -1
	}
	return int(bm.GetCardinality())
}

func (idx *InvertedIndex) NumCounts() int {
	return len(idx.counts)
}

// Words returns every indexed word in ascending order.
func (idx *InvertedIndex) Words() []string {
	words := make([]string, 0, idx.words.Len())
	idx.words.Ascend(func(e *wordEntry) bool {
		words = append(words, e.word)
		return true
	})
	return words
}

// Locations returns the locations of word in ascending order.
func (idx *InvertedIndex) Locations(word string) []string {
	e, ok := idx.entry(word)
	if !ok {
		return []string{}
	}
	return sortedKeys(e.locations)
}

// Positions returns the positions of word in location in ascending order.
func (idx *InvertedIndex) Positions(word, location string) []int {
	bm, ok := idx.bitmap(word, location)
	if !ok {
		return []int{}
	}
	return toInts(bm)
}

// Count returns the word count of location, or -1 if it is unknown.
func (idx *InvertedIndex) Count(location string) int {
	count, ok := idx.counts[location]
	if !ok {
		return -1
	}
	return count
}

// Counts returns a copy of the location word-count table.
func (idx *InvertedIndex) Counts() map[string]int {
	counts := make(map[string]int, len(idx.counts))
	for location, count := range idx.counts {
		counts[location] = count
	}
	return counts
}

// Snapshot returns a deep copy of the index.
func (idx *InvertedIndex) Snapshot() Snapshot {
	snap := make(Snapshot, idx.words.Len())
	idx.words.Ascend(func(e *wordEntry) bool {
		locations := make(map[string][]int, len(e.locations))
		for location, bm := range e.locations {
			locations[location] = toInts(bm)
		}
		snap[e.word] = locations
		return true
	})
	return snap
}

func (idx *InvertedIndex) String() string {
	var b strings.Builder
	idx.words.Ascend(func(e *wordEntry) bool {
		b.WriteString(e.word)
		b.WriteString(": ")
		for i, location := range sortedKeys(e.locations) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(location)
			b.WriteString(e.locations[location].String())
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInts(bm *roaring.Bitmap) []int {
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
