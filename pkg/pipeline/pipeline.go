// Package pipeline coordinates the full download: resolve page counts per
// letter, fetch every page through the cache, parse cached pages and write
// the resulting entries to the store.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"etymondl/pkg/pagecache"
	"etymondl/pkg/paginate"
	"etymondl/pkg/words"
)

// DefaultLetters is the full partition set of the remote listing.
var DefaultLetters = strings.Split("abcdefghijklmnopqrstuvwxyz", "")

// TaskError records one failed page-level task.
type TaskError struct {
	Page pagecache.PageID
	Err  error
}

// Summary aggregates the result of one full run. Failures are collected per
// task rather than aborting the batch, so a re-run can fill in the gaps
// (cached successes are skipped automatically).
type Summary struct {
	TotalPages      int
	PagesFetched    int
	PagesParsed     int
	EntriesSeen     int
	EntriesInserted int
	Failures        []TaskError
	LetterFailures  map[string]error
}

// Pipeline wires the cache, transport and store together.
type Pipeline struct {
	Cache     *pagecache.Cache
	Client    Getter
	DB        *sql.DB
	Letters   []string
	Workers   int
	BatchSize int
	Logger    zerolog.Logger
	// OnProgress is called as page-level work completes with the stage name
	// and (done, total). nil disables reporting.
	OnProgress func(stage string, done, total int)
}

// New creates a pipeline over the full letter set with defaults sized to the
// available hardware parallelism.
func New(cache *pagecache.Cache, client Getter, db *sql.DB) *Pipeline {
	return &Pipeline{
		Cache:     cache,
		Client:    client,
		DB:        db,
		Letters:   DefaultLetters,
		Workers:   runtime.NumCPU(),
		BatchSize: 200,
		Logger:    zerolog.Nop(),
	}
}

// Run executes the whole pipeline. Stage barriers are strict: every letter's
// pagination resolves before its pages are scheduled, every fetch completes
// before parsing starts, and the writer is flushed before Run returns.
// Per-task failures are recorded in the summary, not propagated.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{LetterFailures: map[string]error{}}

	counts, err := p.resolveCounts(ctx, sum)
	if err != nil {
		return sum, err
	}

	p.fetchPages(ctx, counts, sum)

	if err := p.parsePages(ctx, sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// resolveCounts discovers every letter's page count in parallel. A letter
// whose pagination cannot be determined is recorded and excluded; the others
// proceed. Only total failure aborts the run.
func (p *Pipeline) resolveCounts(ctx context.Context, sum *Summary) (map[string]int, error) {
	resolver := &paginate.Resolver{Cache: p.Cache, Client: p.Client}

	counts := make(map[string]int, len(p.Letters))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.workers())
	for _, letter := range p.Letters {
		letter := letter
		g.Go(func() error {
			n, err := resolver.Resolve(ctx, letter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.Logger.Error().Err(err).Str("letter", letter).Msg("pagination resolution failed")
				sum.LetterFailures[letter] = err
				return nil
			}
			p.Logger.Info().Str("letter", letter).Int("pages", n).Msg("resolved page count")
			counts[letter] = n
			return nil
		})
	}
	_ = g.Wait()

	if len(counts) == 0 && len(p.Letters) > 0 {
		return nil, fmt.Errorf("pagination resolution failed for all %d letters", len(p.Letters))
	}
	return counts, nil
}

// fetchPages drains the scheduler's outcome stream, recording failures and
// reporting progress.
func (p *Pipeline) fetchPages(ctx context.Context, counts map[string]int, sum *Summary) {
	sched := &Scheduler{Cache: p.Cache, Client: p.Client, Workers: p.workers(), Logger: p.Logger}
	for o := range sched.FetchAll(ctx, counts) {
		sum.TotalPages = o.Total
		if o.Err != nil {
			sum.Failures = append(sum.Failures, TaskError{Page: o.Page, Err: o.Err})
		} else {
			sum.PagesFetched++
		}
		if p.OnProgress != nil {
			p.OnProgress("fetch", o.Completed, o.Total)
		}
	}
}

// parsePages enumerates every cached page on disk, parses them on the worker
// pool and funnels the entry sets through a single EntryWriter.
func (p *Pipeline) parsePages(ctx context.Context, sum *Summary) error {
	pages, err := p.Cache.List()
	if err != nil {
		return err
	}

	writer := NewEntryWriter(p.DB, p.BatchSize)
	writer.OnError = func(err error) {
		p.Logger.Error().Err(err).Msg("batch write failed")
	}

	pool := NewWorkerPool(p.workers(), len(pages))
	pool.Start(ctx)

	var (
		mu   sync.Mutex
		done int
	)
	for _, id := range pages {
		id := id
		// Queue sized to the page list, so Submit never blocks.
		_ = pool.Submit(func(ctx context.Context) error {
			content, err := p.Cache.Read(id)
			var entries []words.Entry
			if err == nil {
				entries, err = words.Parse(content)
			}
			if err == nil {
				err = writer.Submit(entries)
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				p.Logger.Warn().Err(err).Stringer("page", id).Msg("page parse failed")
				sum.Failures = append(sum.Failures, TaskError{Page: id, Err: err})
			} else {
				sum.PagesParsed++
			}
			if p.OnProgress != nil {
				p.OnProgress("parse", done, len(pages))
			}
			return nil
		})
	}
	pool.Close()

	if err := writer.Close(); err != nil {
		return fmt.Errorf("flush entry writer: %w", err)
	}
	sum.EntriesSeen = writer.Seen()
	sum.EntriesInserted = writer.Inserted()
	return nil
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}
