package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Crawler.RetryAttempts = 1
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
}

type scored struct {
	Count int     `json:"count"`
	Score float64 `json:"score"`
	Where string  `json:"where"`
}

func textRun(t *testing.T, concurrent bool) (Options, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	writeFile(t, filepath.Join(input, "a.txt"), "fox jump")
	writeFile(t, filepath.Join(input, "b.txt"), "foxtrot jumps")
	writeFile(t, filepath.Join(dir, "queries.txt"), "fox\nFOXES\n\njump")
	return Options{
		Text:       input,
		Query:      filepath.Join(dir, "queries.txt"),
		Index:      filepath.Join(dir, "index.json"),
		Counts:     filepath.Join(dir, "counts.json"),
		Results:    filepath.Join(dir, "results.json"),
		Threads:    3,
		ThreadsSet: concurrent,
	}, input
}

func TestRunText(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		t.Run(fmt.Sprintf("concurrent=%v", concurrent), func(t *testing.T) {
			opts, input := textRun(t, concurrent)
			if err := Run(context.Background(), testConfig(t), opts); err != nil {
				t.Fatal(err)
			}
			a := filepath.Join(input, "a.txt")
			b := filepath.Join(input, "b.txt")

			var idx map[string]map[string][]int
			readJSON(t, opts.Index, &idx)
			if !reflect.DeepEqual(idx["jump"], map[string][]int{a: {2}, b: {2}}) {
				t.Errorf("index[jump] = %v", idx["jump"])
			}

			var counts map[string]int
			readJSON(t, opts.Counts, &counts)
			if !reflect.DeepEqual(counts, map[string]int{a: 2, b: 2}) {
				t.Errorf("counts = %v", counts)
			}

			var results map[string][]scored
			readJSON(t, opts.Results, &results)
			if len(results) != 2 {
				t.Errorf("results has %d queries, want 2: %v", len(results), results)
			}
			want := []scored{{1, 0.5, a}, {1, 0.5, b}}
			if !reflect.DeepEqual(results["fox"], want) {
				t.Errorf("results[fox] = %v, want %v", results["fox"], want)
			}
		})
	}
}

func TestRunExactQueries(t *testing.T) {
	opts, input := textRun(t, true)
	opts.Exact = true
	if err := Run(context.Background(), testConfig(t), opts); err != nil {
		t.Fatal(err)
	}
	var results map[string][]scored
	readJSON(t, opts.Results, &results)
	if len(results["fox"]) != 1 || results["fox"][0].Where != filepath.Join(input, "a.txt") {
		t.Errorf("exact results[fox] = %v", results["fox"])
	}
}

func TestRunStepsAreIndependent(t *testing.T) {
	opts, _ := textRun(t, true)
	opts.Query = filepath.Join(t.TempDir(), "missing.txt")
	opts.Counts = filepath.Join(t.TempDir(), "no-such-dir", "counts.json")

	err := Run(context.Background(), testConfig(t), opts)
	if err == nil {
		t.Fatal("Run() returned nil error with failing steps")
	}

	var idx map[string]map[string][]int
	readJSON(t, opts.Index, &idx)
	if len(idx) != 3 {
		t.Errorf("index has %d words, want 3", len(idx))
	}
	var results map[string][]scored
	readJSON(t, opts.Results, &results)
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

func TestRunEmptyIndexOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Index: filepath.Join(dir, "index.json"), Results: filepath.Join(dir, "results.json")}
	if err := Run(context.Background(), testConfig(t), opts); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{opts.Index, opts.Results} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "{}\n" {
			t.Errorf("%s = %q, want {}", filepath.Base(path), data)
		}
	}
}

func TestRunCrawl(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p>hello world</p><a href="/next">next</a>`)
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p>hello again</p>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	opts := Options{
		Seed:     srv.URL,
		MaxPages: 2,
		Counts:   filepath.Join(dir, "counts.json"),
		Index:    filepath.Join(dir, "index.json"),
	}
	if err := Run(context.Background(), testConfig(t), opts); err != nil {
		t.Fatal(err)
	}

	var counts map[string]int
	readJSON(t, opts.Counts, &counts)
	want := map[string]int{srv.URL + "/": 3, srv.URL + "/next": 2}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
	var idx map[string]map[string][]int
	readJSON(t, opts.Index, &idx)
	if !reflect.DeepEqual(idx["hello"], map[string][]int{srv.URL + "/": {1}, srv.URL + "/next": {1}}) {
		t.Errorf("index[hello] = %v", idx["hello"])
	}
}

func TestRunInvalidSeed(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Seed: "not a url", Index: filepath.Join(dir, "index.json")}
	if err := Run(context.Background(), testConfig(t), opts); err == nil {
		t.Error("Run() with an invalid seed returned nil error")
	}
	if _, err := os.Stat(opts.Index); err != nil {
		t.Errorf("index was not written after the crawl failed: %v", err)
	}
}

func TestRunExportWithoutDriver(t *testing.T) {
	opts := Options{Export: true}
	if err := Run(context.Background(), testConfig(t), opts); err == nil {
		t.Error("Run() exporting without a driver returned nil error")
	}
}

func TestOptionsConcurrent(t *testing.T) {
	tests := []struct {
		opts Options
		want bool
	}{
		{Options{}, false},
		{Options{Threads: 4}, false},
		{Options{ThreadsSet: true}, true},
		{Options{Seed: "http://example.com/"}, true},
	}
	for _, tt := range tests {
		if got := tt.opts.Concurrent(); got != tt.want {
			t.Errorf("%+v.Concurrent() = %v, want %v", tt.opts, got, tt.want)
		}
	}
}
