// Package app runs the search engine's steps in order: crawl, build from
// text, answer queries, write outputs, export and serve. Every requested step
// runs even when an earlier one fails.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/fetcher"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/output"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/server"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/tracing"
)

// Options are the steps requested on the command line. An empty path means
// the step was not requested.
type Options struct {
	Text    string
	Seed    string
	Query   string
	Exact   bool
	Index   string
	Counts  string
	Results string
	Export  bool
	Serve   bool

	// Threads is the requested worker count. ThreadsSet reports whether it
	// was given at all; either it or Seed selects the concurrent index.
	Threads    int
	ThreadsSet bool
	// MaxPages bounds the crawl. Zero means the configured default.
	MaxPages int
}

// Concurrent reports whether the run uses the thread-safe index and the
// multithreaded query handler.
func (o Options) Concurrent() bool {
	return o.Seed != "" || o.ThreadsSet
}

// report traces each step as a child of the run span and collects step
// failures, including those of concurrent steps.
type report struct {
	ctx    context.Context
	mu     sync.Mutex
	failed []error
	logger *slog.Logger
}

// step runs fn, logging and recording its failure.
func (r *report) step(name string, fn func() error) error {
	_, span := tracing.Start(r.ctx, name)
	err := fn()
	span.End(err)
	if err != nil {
		r.logger.Error("step failed", "step", name, "error", err)
		err = fmt.Errorf("%s: %w", name, err)
		r.mu.Lock()
		r.failed = append(r.failed, err)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *report) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.failed...)
}

type runner struct {
	cfg       *config.Config
	opts      Options
	threads   int
	metrics   *metrics.Metrics
	collector *events.Collector
	redis     *pkgredis.Client
	sink      query.Sink
	idx       index.Index
	shared    *index.ThreadSafe
	queries   query.Handler
	logger    *slog.Logger
}

// Run executes every step opts requests and returns the joined errors of
// the steps that failed.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	start := time.Now()
	runID := uuid.NewString()
	log := slog.Default().With("component", "app", "run_id", runID)

	r := &runner{
		cfg:     cfg,
		opts:    opts,
		threads: opts.Threads,
		metrics: metrics.New(),
		logger:  log,
	}
	if r.threads < 1 {
		r.threads = cfg.Index.Threads
	}

	if cfg.Metrics.Enabled {
		shutdown := r.metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, kafka.WithRunID(runID))
		defer producer.Close()
		r.collector = events.NewCollector(producer, runID, cfg.Kafka.BufferSize)
		r.collector.Start(ctx)
		defer r.collector.Close()
	}
	if cfg.Redis.Enabled {
		r.connectRedis(ctx)
		if r.redis != nil {
			defer r.redis.Close()
		}
	}

	if opts.Concurrent() {
		r.shared = index.NewThreadSafe()
		r.idx = r.shared
		r.queries = query.NewMulti(r.shared, r.threads, r.sink, r.metrics)
	} else {
		plain := index.New()
		r.idx = plain
		r.queries = query.NewSingle(plain, r.sink)
	}
	log.Info("run started", "concurrent", opts.Concurrent(), "threads", r.threads)

	traceCtx, root := tracing.StartTrace(ctx, "run", runID)
	rep := &report{ctx: traceCtx, logger: log}
	if opts.Seed != "" {
		rep.step("crawl", func() error { return r.crawl(ctx) })
	}
	if opts.Text != "" {
		rep.step("build", r.build)
	}
	r.metrics.IndexWords.Set(float64(r.idx.NumWords()))
	if opts.Query != "" {
		rep.step("query", func() error { return r.queries.ParseQueryFile(opts.Query, opts.Exact) })
	}

	var g errgroup.Group
	if opts.Index != "" {
		g.Go(func() error {
			return rep.step("write index", func() error { return output.WriteIndex(opts.Index, r.idx.Snapshot()) })
		})
	}
	if opts.Counts != "" {
		g.Go(func() error {
			return rep.step("write counts", func() error { return output.WriteCounts(opts.Counts, r.idx.Counts()) })
		})
	}
	if opts.Results != "" {
		g.Go(func() error {
			return rep.step("write results", func() error { return output.WriteResults(opts.Results, r.queries.Results()) })
		})
	}
	if opts.Export {
		g.Go(func() error {
			return rep.step("export", func() error { return r.export(ctx) })
		})
	}
	// Failures are recorded in rep; Wait only synchronises.
	_ = g.Wait()

	if opts.Serve {
		rep.step("serve", func() error { return r.serve(ctx) })
	}

	err := rep.err()
	root.SetAttr("words", r.idx.NumWords())
	root.End(err)
	root.Log(log)
	log.Info("run finished",
		"words", r.idx.NumWords(),
		"locations", r.idx.NumCounts(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return err
}

func (r *runner) connectRedis(ctx context.Context) {
	client, err := pkgredis.NewClient(r.cfg.Redis)
	if err != nil {
		r.logger.Warn("redis unavailable, query results not mirrored", "error", err)
		return
	}
	sink := query.NewRedisSink(client, r.cfg.Redis.CacheTTL)
	if err := sink.Invalidate(ctx); err != nil {
		r.logger.Warn("clearing mirrored results failed", "error", err)
	}
	r.redis = client
	r.sink = sink
	r.logger.Info("query result mirror enabled", "addr", r.cfg.Redis.Addr, "ttl", r.cfg.Redis.CacheTTL)
}

func (r *runner) crawl(ctx context.Context) error {
	maxPages := r.opts.MaxPages
	if maxPages < 1 {
		maxPages = r.cfg.Crawler.MaxPages
	}
	c := crawler.New(fetcher.New(r.cfg.Crawler), crawler.Config{
		Workers:      r.threads,
		MaxPages:     maxPages,
		MaxRedirects: r.cfg.Crawler.MaxRedirects,
	}, r.metrics, r.collector)
	_, err := c.Crawl(ctx, r.opts.Seed, r.shared)
	return err
}

func (r *runner) build() error {
	b := builder.New(r.threads, r.metrics, r.collector)
	if r.shared != nil {
		return b.BuildConcurrent(r.opts.Text, r.shared)
	}
	return b.Build(r.opts.Text, r.idx)
}

func (r *runner) export(ctx context.Context) error {
	db, err := database.Open(r.cfg.Export)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = export.New(db, r.cfg.Export).Export(ctx, r.idx.Snapshot(), r.idx.Counts())
	return err
}

func (r *runner) serve(ctx context.Context) error {
	handlers := server.Handlers{
		Exact:   query.NewMulti(r.idx, r.threads, r.sink, r.metrics),
		Partial: query.NewMulti(r.idx, r.threads, r.sink, r.metrics),
	}
	if multi, ok := r.queries.(*query.Multi); ok {
		if r.opts.Exact {
			handlers.Exact = multi
		} else {
			handlers.Partial = multi
		}
	}

	checker := health.NewChecker()
	checker.RegisterOptional("index", func(ctx context.Context) health.ComponentHealth {
		words := r.idx.NumWords()
		if words == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d words", words)}
	})
	if r.redis != nil {
		checker.RegisterOptional("redis", health.PingCheck(r.redis))
	}

	h := server.NewHandler(r.idx, handlers, r.collector)
	return server.Serve(ctx, server.Routes(h, checker, r.metrics, r.cfg.Server), r.cfg.Server)
}
