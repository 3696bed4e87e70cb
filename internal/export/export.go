// Package export copies a built index and its word counts into SQL tables.
//
// The tables are replaced on every export:
//
//	CREATE TABLE index_positions (
//	    word     TEXT    NOT NULL,
//	    location TEXT    NOT NULL,
//	    position INTEGER NOT NULL,
//	    PRIMARY KEY (word, location, position)
//	);
//	CREATE TABLE location_counts (
//	    location   TEXT    PRIMARY KEY,
//	    word_count INTEGER NOT NULL
//	);
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/resilience"
)

const defaultBatchSize = 500

var schema = []string{
	`CREATE TABLE IF NOT EXISTS index_positions (
		word     TEXT    NOT NULL,
		location TEXT    NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (word, location, position)
	)`,
	`CREATE TABLE IF NOT EXISTS location_counts (
		location   TEXT    PRIMARY KEY,
		word_count INTEGER NOT NULL
	)`,
}

// Stats reports how many rows an export wrote.
type Stats struct {
	Positions int
	Counts    int
}

type Exporter struct {
	db        *database.Client
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

func New(db *database.Client, cfg config.ExportConfig) *Exporter {
	batch := cfg.BatchSize
	if batch < 1 {
		batch = defaultBatchSize
	}
	return &Exporter{
		db:        db,
		batchSize: batch,
		timeout:   cfg.Timeout,
		logger:    slog.Default().With("component", "export"),
	}
}

// Export replaces both tables with snap and counts in a single transaction.
func (e *Exporter) Export(ctx context.Context, snap index.Snapshot, counts map[string]int) (Stats, error) {
	start := time.Now()
	var stats Stats
	err := resilience.WithTimeout(ctx, e.timeout, "sql export", func(ctx context.Context) error {
		return e.db.InTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range schema {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("creating schema: %w", err)
				}
			}
			for _, table := range []string{"index_positions", "location_counts"} {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("clearing %s: %w", table, err)
				}
			}

			n, err := e.insert(ctx, tx, "index_positions (word, location, position)", 3, positionRows(snap))
			if err != nil {
				return err
			}
			stats.Positions = n
			n, err = e.insert(ctx, tx, "location_counts (location, word_count)", 2, countRows(counts))
			if err != nil {
				return err
			}
			stats.Counts = n
			return nil
		})
	})
	if err != nil {
		return Stats{}, fmt.Errorf("exporting index: %w", err)
	}

	e.logger.Info("index exported",
		"driver", e.db.Driver(),
		"positions", stats.Positions,
		"locations", stats.Counts,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// insert writes rows in multi-row INSERT statements of at most batchSize rows.
func (e *Exporter) insert(ctx context.Context, tx *sql.Tx, target string, width int, rows [][]any) (int, error) {
	for lo := 0; lo < len(rows); lo += e.batchSize {
		hi := min(lo+e.batchSize, len(rows))
		batch := rows[lo:hi]

		tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
		tuples := make([]string, len(batch))
		args := make([]any, 0, len(batch)*width)
		for i, row := range batch {
			tuples[i] = tuple
			args = append(args, row...)
		}
		query := e.db.Rebind("INSERT INTO " + target + " VALUES " + strings.Join(tuples, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return lo, fmt.Errorf("inserting into %s: %w", target, err)
		}
	}
	return len(rows), nil
}

func positionRows(snap index.Snapshot) [][]any {
	words := make([]string, 0, len(snap))
	for w := range snap {
		words = append(words, w)
	}
	sort.Strings(words)

	var rows [][]any
	for _, w := range words {
		locations := make([]string, 0, len(snap[w]))
		for l := range snap[w] {
			locations = append(locations, l)
		}
		sort.Strings(locations)
		for _, l := range locations {
			for _, p := range snap[w][l] {
				rows = append(rows, []any{w, l, p})
			}
		}
	}
	return rows
}

func countRows(counts map[string]int) [][]any {
	locations := make([]string, 0, len(counts))
	for l := range counts {
		locations = append(locations, l)
	}
	sort.Strings(locations)
	rows := make([][]any, len(locations))
	for i, l := range locations {
		rows[i] = []any{l, counts[l]}
	}
	return rows
}
