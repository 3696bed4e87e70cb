// Package query turns query lines into normalised stem sets, runs ranked
// searches against an index and memoises the results by normalised query.
package query

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/tokenizer"
)

const maxLineBytes = 1 << 20

// Searcher is the part of an index a handler needs.
type Searcher interface {
	Search(queries []string, exact bool) []index.PageScore
}

// Handler parses query lines and stores one ranked result per normalised
// query. A line whose normalised form was already seen is not searched again.
type Handler interface {
	ParseQueryLine(line string, exact bool)
	ParseQueryFile(path string, exact bool) error
	// Results returns a copy of every stored result keyed by normalised query.
	Results() map[string][]index.PageScore
	// QueryLines returns the stored normalised queries in sorted order.
	QueryLines() []string
	// QueryResults normalises line and returns its stored result, if any.
	QueryResults(line string) ([]index.PageScore, bool)
}

// Sink receives every newly computed result exactly once.
type Sink interface {
	Store(key string, exact bool, results []index.PageScore)
}

// Key normalises line into its sorted unique stems and returns them joined
// by single spaces. An empty key means the line has nothing to search for.
func Key(line string) (string, []string) {
	stems := tokenizer.UniqueStems(line)
	return strings.Join(stems, " "), stems
}

// eachLine calls fn for every line of the file at path.
func eachLine(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening query file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading query file %s: %w", path, err)
	}
	return nil
}

func sortedQueries(results map[string][]index.PageScore) []string {
	lines := make([]string, 0, len(results))
	for k := range results {
		lines = append(lines, k)
	}
	sort.Strings(lines)
	return lines
}

func copyResults(results map[string][]index.PageScore) map[string][]index.PageScore {
	out := make(map[string][]index.PageScore, len(results))
	for k, v := range results {
		out[k] = v
	}
	return out
}
