package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/app"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/logger"
)

// outputFlag is an output path that may be given bare (-index) to use the
// configured default, or with a value (-index=out.json).
type outputFlag struct {
	set  bool
	path string
}

func (f *outputFlag) String() string { return f.path }

func (f *outputFlag) Set(v string) error {
	f.set = true
	if v != "true" {
		f.path = v
	}
	return nil
}

func (f *outputFlag) IsBoolFlag() bool { return true }

// resolve returns the path to write to, or "" when the output was not
// requested.
func (f *outputFlag) resolve(fallback string) string {
	switch {
	case !f.set || f.path == "false":
		return ""
	case f.path == "":
		return fallback
	default:
		return f.path
	}
}

func main() {
	var indexOut, countsOut, resultsOut outputFlag
	configPath := flag.String("config", "", "path to config file")
	text := flag.String("text", "", "file or directory of .txt/.text files to index")
	seed := flag.String("html", "", "seed URL to crawl")
	threads := flag.Int("threads", 0, "worker count; selects the concurrent index")
	maxPages := flag.Int("max", 0, "maximum number of pages to crawl")
	queryPath := flag.String("query", "", "file of query lines")
	exact := flag.Bool("exact", false, "exact instead of prefix search")
	exportIndex := flag.Bool("export", false, "export the index to the configured SQL database")
	serve := flag.Bool("serve", false, "serve the search API after building")
	flag.Var(&indexOut, "index", "write the index (-index or -index=path)")
	flag.Var(&countsOut, "counts", "write per-location word counts (-counts or -counts=path)")
	flag.Var(&resultsOut, "results", "write query results (-results or -results=path)")
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument %q; output paths are given as -index=path\n", flag.Arg(0))
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	opts := app.Options{
		Text:     *text,
		Seed:     *seed,
		Query:    *queryPath,
		Exact:    *exact,
		Index:    indexOut.resolve(cfg.Output.IndexPath),
		Counts:   countsOut.resolve(cfg.Output.CountsPath),
		Results:  resultsOut.resolve(cfg.Output.ResultsPath),
		Export:   *exportIndex,
		Serve:    *serve,
		Threads:  *threads,
		MaxPages: *maxPages,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "threads" {
			opts.ThreadsSet = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search engine", "config", *configPath)
	if err := app.Run(ctx, cfg, opts); err != nil {
		slog.Error("run finished with failures", "error", err)
		stop()
		os.Exit(1)
	}
}
