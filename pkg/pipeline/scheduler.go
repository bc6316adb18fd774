package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"

	"etymondl/pkg/pagecache"
)

// Getter is the transport surface the scheduler needs.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
	SearchURL(letter string, page int) string
}

// Outcome reports completion of one page fetch task. Completed is a running
// count of finished tasks (including this one) so consumers can render
// progress as completed/total.
type Outcome struct {
	Page      pagecache.PageID
	Err       error
	Completed int
	Total     int
}

// Scheduler fans every (letter, page) fetch task out over a bounded worker
// pool. Already-cached pages complete as no-op successes, which makes a
// repeated run over the same counts perform zero network fetches.
type Scheduler struct {
	Cache   *pagecache.Cache
	Client  Getter
	Workers int
	Logger  zerolog.Logger
}

// FetchAll schedules one task per page of every letter in counts and streams
// outcomes in completion order. A failed task is reported and never aborts
// its siblings; the channel closes once every task has reported.
func (s *Scheduler) FetchAll(ctx context.Context, counts map[string]int) <-chan Outcome {
	letters := make([]string, 0, len(counts))
	for l := range counts {
		letters = append(letters, l)
	}
	sort.Strings(letters)

	var tasks []pagecache.PageID
	for _, l := range letters {
		for n := 1; n <= counts[l]; n++ {
			tasks = append(tasks, pagecache.NewPageID(l, n))
		}
	}

	total := len(tasks)
	out := make(chan Outcome, total)
	if total == 0 {
		close(out)
		return out
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := NewWorkerPool(workers, total)
	pool.Start(ctx)

	inner := make(chan Outcome, workers*2)
	for _, id := range tasks {
		id := id
		// The queue is sized to the full task list, so Submit never blocks.
		_ = pool.Submit(func(ctx context.Context) error {
			inner <- Outcome{Page: id, Err: s.fetchOne(ctx, id)}
			return nil
		})
	}

	go func() {
		pool.Close()
		close(inner)
	}()

	go func() {
		defer close(out)
		completed := 0
		for o := range inner {
			completed++
			o.Completed = completed
			o.Total = total
			if o.Err != nil {
				s.Logger.Warn().Err(o.Err).Stringer("page", o.Page).Msg("page fetch failed")
			} else {
				s.Logger.Debug().Stringer("page", o.Page).Int("completed", completed).Int("total", total).Msg("page done")
			}
			out <- o
		}
	}()

	return out
}

// fetchOne performs one task: a cache hit is a no-op success, a miss fetches
// from the network and writes through to the cache.
func (s *Scheduler) fetchOne(ctx context.Context, id pagecache.PageID) error {
	if s.Cache.Has(id) {
		return nil
	}
	content, err := s.Client.Get(ctx, s.Client.SearchURL(id.Letter, id.Number))
	if err != nil {
		return fmt.Errorf("fetch page %s: %w", id, err)
	}
	return s.Cache.Write(id, content)
}
