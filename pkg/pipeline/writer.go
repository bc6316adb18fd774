package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"etymondl/pkg/store"
	"etymondl/pkg/words"
)

// ErrWriterClosed is returned if a Submit is attempted after Close.
var ErrWriterClosed = errors.New("entry writer closed")

// EntryWriter serializes word inserts through a single database handle.
// Parse workers submit entry sets concurrently; the writer buffers them and a
// single committer goroutine flushes batches inside transactions, which
// satisfies SQLite's single-writer expectations without application locks.
type EntryWriter struct {
	db  *sql.DB
	cap int

	mu     sync.Mutex
	buf    []words.Entry
	closed bool

	commitCh chan []words.Entry
	wg       sync.WaitGroup

	seen     int64
	inserted int64

	errMu   sync.Mutex
	lastErr error
	// OnError is called for each failed batch. nil means errors are only
	// retained for Close to return.
	OnError func(error)
}

// NewEntryWriter creates a writer that flushes whenever batchSize entries are
// buffered. Close flushes the remainder.
func NewEntryWriter(db *sql.DB, batchSize int) *EntryWriter {
	if batchSize <= 0 {
		batchSize = 200
	}
	w := &EntryWriter{
		db:       db,
		cap:      batchSize,
		buf:      make([]words.Entry, 0, batchSize),
		commitCh: make(chan []words.Entry, 2), // buffer a couple of batches
	}
	w.wg.Add(1)
	go w.committer()
	return w
}

// Submit buffers one page's entries for insertion. Safe for concurrent use.
func (w *EntryWriter) Submit(entries []words.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	atomic.AddInt64(&w.seen, int64(len(entries)))
	w.buf = append(w.buf, entries...)
	if len(w.buf) >= w.cap {
		w.flushLocked()
	}
	return nil
}

// flushLocked assumes w.mu is held. A full commit channel blocks here, which
// propagates backpressure to Submit callers.
func (w *EntryWriter) flushLocked() {
	if len(w.buf) == 0 {
		return
	}
	batch := w.buf
	w.buf = make([]words.Entry, 0, w.cap)
	w.commitCh <- batch
}

func (w *EntryWriter) committer() {
	defer w.wg.Done()
	for batch := range w.commitCh {
		if err := w.writeBatch(batch); err != nil {
			w.errMu.Lock()
			if w.lastErr == nil {
				w.lastErr = err
			}
			w.errMu.Unlock()
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

func (w *EntryWriter) writeBatch(batch []words.Entry) error {
	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	n, err := store.InsertEntries(tx, batch)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d entries): %w", len(batch), err)
	}
	atomic.AddInt64(&w.inserted, int64(n))
	return nil
}

// Seen returns how many entries were submitted, duplicates included.
func (w *EntryWriter) Seen() int { return int(atomic.LoadInt64(&w.seen)) }

// Inserted returns how many rows were actually added to the store.
func (w *EntryWriter) Inserted() int { return int(atomic.LoadInt64(&w.inserted)) }

// Close flushes any buffered entries, waits for pending batches to commit and
// returns the first error seen during asynchronous writes, if any.
func (w *EntryWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	w.flushLocked()
	w.mu.Unlock()

	close(w.commitCh)
	w.wg.Wait()

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.lastErr
}
