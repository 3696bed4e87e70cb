package index

import (
	"sort"
	"strings"
)

// PageScore ranks one location for one query.
type PageScore struct {
	Location string  `json:"where"`
	Count    int     `json:"count"`
	Score    float64 `json:"score"`
}

// Less orders by score descending, then count descending, then location
// ascending ignoring case.
func (p PageScore) Less(o PageScore) bool {
	if p.Score != o.Score {
		return p.Score > o.Score
	}
	if p.Count != o.Count {
		return p.Count > o.Count
	}
	if c := strings.Compare(strings.ToLower(p.Location), strings.ToLower(o.Location)); c != 0 {
		return c < 0
	}
	return p.Location < o.Location
}

// Search runs an exact or a partial search for the normalised query terms.
func (idx *InvertedIndex) Search(queries []string, exact bool) []PageScore {
	if exact {
		return idx.ExactSearch(queries)
	}
	return idx.PartialSearch(queries)
}

// ExactSearch scores locations containing words equal to a query term.
func (idx *InvertedIndex) ExactSearch(queries []string) []PageScore {
	s := newScorer(idx.counts)
	for _, q := range queries {
		if e, ok := idx.entry(q); ok {
			s.add(e)
		}
	}
	return s.results()
}

// PartialSearch scores locations containing words that start with a query
// term. Each term is a contiguous scan of the ordered word set beginning at
// the term and ending at the first word without that prefix.
func (idx *InvertedIndex) PartialSearch(queries []string) []PageScore {
	s := newScorer(idx.counts)
	for _, q := range queries {
		idx.words.AscendGreaterOrEqual(&wordEntry{word: q}, func(e *wordEntry) bool {
			if !strings.HasPrefix(e.word, q) {
				return false
			}
			s.add(e)
			return true
		})
	}
	return s.results()
}

type scorer struct {
	counts map[string]int
	lookup map[string]*PageScore
	scores []*PageScore
}

func newScorer(counts map[string]int) *scorer {
	return &scorer{
		counts: counts,
		lookup: make(map[string]*PageScore),
	}
}

func (s *scorer) add(e *wordEntry) {
	for location, bm := range e.locations {
		ps, ok := s.lookup[location]
		if !ok {
			ps = &PageScore{Location: location}
			s.lookup[location] = ps
			s.scores = append(s.scores, ps)
		}
		ps.Count += int(bm.GetCardinality())
		ps.Score = float64(ps.Count) / float64(s.counts[location])
	}
}

func (s *scorer) results() []PageScore {
	out := make([]PageScore, len(s.scores))
	for i, ps := range s.scores {
		out[i] = *ps
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})
	return out
}
