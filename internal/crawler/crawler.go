// Package crawler performs a bounded breadth-first crawl from a seed URL and
// indexes every fetched page into a shared index.
//
// A crawl runs in two phases on one work queue. Phase one fetches pages and
// admits newly discovered links until the visited set reaches the page
// budget. Phase two, after the queue drains, strips and stems every fetched
// body into a private index and merges it into the shared one.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/htmlclean"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/linkfinder"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/workqueue"
)

const sourceWeb = "web"

// Fetcher downloads a page, following at most maxRedirects redirects.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxRedirects int) (string, error)
}

type Config struct {
	Workers      int
	MaxPages     int
	MaxRedirects int
}

// Result summarises a finished crawl.
type Result struct {
	Visited []string
	Fetched []string
	Indexed int
}

type Crawler struct {
	fetcher   Fetcher
	cfg       Config
	metrics   *metrics.Metrics
	collector *events.Collector
	logger    *slog.Logger
}

// New returns a Crawler. m and collector may be nil.
func New(fetcher Fetcher, cfg Config, m *metrics.Metrics, collector *events.Collector) *Crawler {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Crawler{
		fetcher:   fetcher,
		cfg:       cfg,
		metrics:   m,
		collector: collector,
		logger:    slog.Default().With("component", "crawler"),
	}
}

// frontier is the shared crawl state. visited maps every admitted URL to
// its fetched body; a nil body means not fetched (yet, or ever).
type frontier struct {
	mu      sync.Mutex
	pending []string
	visited map[string]*string
}

type crawl struct {
	*Crawler
	ctx      context.Context
	queue    *workqueue.WorkQueue
	frontier *frontier
	shared   *index.ThreadSafe
}

// ValidateSeed parses seed and checks it is an absolute http(s) URL.
func ValidateSeed(seed string) (*url.URL, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "seed %q: %v", seed, err)
	}
	if !linkfinder.IsHTTP(u) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "seed %q is not an absolute http(s) url", seed)
	}
	return u, nil
}

// Crawl visits at most MaxPages distinct URLs starting at seed and merges
// the text of every fetched page into shared.
func (c *Crawler) Crawl(ctx context.Context, seed string, shared *index.ThreadSafe) (Result, error) {
	u, err := ValidateSeed(seed)
	if err != nil {
		return Result{}, err
	}
	seed = linkfinder.Normalize(u)

	cr := &crawl{
		Crawler: c,
		ctx:     ctx,
		queue:   workqueue.New(c.cfg.Workers, c.metrics),
		frontier: &frontier{
			visited: map[string]*string{seed: nil},
		},
		shared: shared,
	}
	defer cr.queue.Shutdown()

	start := time.Now()
	if err := cr.queue.Execute(func() error { return cr.process(seed) }); err != nil {
		return Result{}, fmt.Errorf("queueing seed: %w", err)
	}
	cr.queue.Join()

	fetched := cr.fetchedPages()
	c.logger.Info("crawl phase complete",
		"seed", seed,
		"visited", cr.visitedCount(),
		"fetched", len(fetched),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	var mu sync.Mutex
	indexed := 0
	for _, page := range fetched {
		err := cr.queue.Execute(func() error {
			cr.indexPage(page.url, page.body)
			mu.Lock()
			indexed++
			mu.Unlock()
			return nil
		})
		if err != nil {
			return Result{}, fmt.Errorf("queueing %s: %w", page.url, err)
		}
	}
	cr.queue.Join()

	result := Result{
		Visited: cr.visitedURLs(),
		Fetched: make([]string, len(fetched)),
		Indexed: indexed,
	}
	for i, page := range fetched {
		result.Fetched[i] = page.url
	}
	c.logger.Info("crawl indexed",
		"seed", seed,
		"indexed", indexed,
		"words", shared.NumWords(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// process fetches pageURL and, while the budget allows, admits the links it
// contains.
func (cr *crawl) process(pageURL string) error {
	body, err := cr.fetcher.Fetch(cr.ctx, pageURL, cr.cfg.MaxRedirects)
	if err != nil {
		cr.dropped(pageURL, err)
		return err
	}
	body = htmlclean.StripBlockElements(body)
	cr.fetched(pageURL, len(body))

	var links []string
	if cr.visitedCount() < cr.cfg.MaxPages {
		if base, err := url.Parse(pageURL); err == nil {
			links = linkfinder.ListURLs(base, body)
		}
	}

	f := cr.frontier
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[pageURL] = &body
	f.pending = append(f.pending, links...)
	for len(f.visited) < cr.cfg.MaxPages && len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]
		if _, seen := f.visited[next]; seen {
			continue
		}
		f.visited[next] = nil
		if err := cr.queue.Execute(func() error { return cr.process(next) }); err != nil {
			return fmt.Errorf("queueing %s: %w", next, err)
		}
	}
	return nil
}

// indexPage strips a fetched body, builds a private index for it and merges it.
func (cr *crawl) indexPage(pageURL, body string) {
	start := time.Now()
	private := index.New()
	words := private.AddPositions(pageURL, tokenizer.Stems(htmlclean.StripEntities(htmlclean.StripTags(body))), 1) - 1
	cr.shared.Merge(private)

	if cr.metrics != nil {
		cr.metrics.LocationsIndexed.WithLabelValues(sourceWeb).Inc()
	}
	cr.collector.Track(events.IndexEvent{
		Type:      events.EventLocationIndexed,
		RunID:     cr.collector.RunID(),
		Location:  pageURL,
		Source:    sourceWeb,
		Words:     words,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
}

func (cr *crawl) fetched(pageURL string, size int) {
	if cr.metrics != nil {
		cr.metrics.PagesCrawled.WithLabelValues("fetched").Inc()
	}
	cr.collector.Track(events.CrawlEvent{
		Type:      events.EventPageFetched,
		RunID:     cr.collector.RunID(),
		URL:       pageURL,
		Bytes:     size,
		Timestamp: time.Now().UTC(),
	})
}

func (cr *crawl) dropped(pageURL string, err error) {
	if cr.metrics != nil {
		cr.metrics.PagesCrawled.WithLabelValues("dropped").Inc()
	}
	cr.collector.Track(events.CrawlEvent{
		Type:      events.EventPageDropped,
		RunID:     cr.collector.RunID(),
		URL:       pageURL,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (cr *crawl) visitedCount() int {
	cr.frontier.mu.Lock()
	defer cr.frontier.mu.Unlock()
	return len(cr.frontier.visited)
}

func (cr *crawl) visitedURLs() []string {
	cr.frontier.mu.Lock()
	defer cr.frontier.mu.Unlock()
	urls := make([]string, 0, len(cr.frontier.visited))
	for u := range cr.frontier.visited {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

type page struct {
	url  string
	body string
}

func (cr *crawl) fetchedPages() []page {
	cr.frontier.mu.Lock()
	defer cr.frontier.mu.Unlock()
	pages := make([]page, 0, len(cr.frontier.visited))
	for u, body := range cr.frontier.visited {
		if body != nil {
			pages = append(pages, page{url: u, body: *body})
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].url < pages[j].url })
	return pages
}
