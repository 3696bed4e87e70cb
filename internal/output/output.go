// Package output writes the index, the per-location word counts and the
// query results as pretty JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
)

const indent = "  "

// Result is the serialised form of one ranked location.
type Result struct {
	Count int         `json:"count"`
	Score json.Number `json:"score"`
	Where string      `json:"where"`
}

// FormatScore renders a score with eight decimal places.
func FormatScore(score float64) json.Number {
	return json.Number(strconv.FormatFloat(score, 'f', 8, 64))
}

// Results converts ranked page scores to their serialised form, keeping order.
func Results(scores []index.PageScore) []Result {
	out := make([]Result, len(scores))
	for i, s := range scores {
		out[i] = Result{Count: s.Count, Score: FormatScore(s.Score), Where: s.Location}
	}
	return out
}

// Encode writes v to w as JSON indented by two spaces. Map keys are sorted.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteIndex writes word → location → positions.
func WriteIndex(path string, snap index.Snapshot) error {
	if snap == nil {
		snap = index.Snapshot{}
	}
	return writeFile(path, snap)
}

// WriteCounts writes location → word count.
func WriteCounts(path string, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	return writeFile(path, counts)
}

// WriteResults writes normalised query → ranked results.
func WriteResults(path string, results map[string][]index.PageScore) error {
	out := make(map[string][]Result, len(results))
	for query, scores := range results {
		out[query] = Results(scores)
	}
	return writeFile(path, out)
}

func writeFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := Encode(f, v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
