package pagecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned by Read when no page is cached for the identity.
var ErrNotFound = errors.New("page not cached")

// PageID addresses one page of one letter's search results.
type PageID struct {
	Letter string
	Number int
}

// NewPageID normalizes the letter (trimmed, lower-cased) so that cache reads
// and writes agree on the on-disk location.
func NewPageID(letter string, number int) PageID {
	return PageID{Letter: strings.ToLower(strings.TrimSpace(letter)), Number: number}
}

// FileName returns the cache file name for the page, e.g. "007_a.html".
func (id PageID) FileName() string {
	return fmt.Sprintf("%03d_%s.html", id.Number, id.Letter)
}

func (id PageID) String() string {
	return fmt.Sprintf("%s/%d", id.Letter, id.Number)
}

// Cache stores fetched pages on disk, one directory per letter. Entries are
// write-once: there is no invalidation or expiry path, so a page that changes
// on the remote site stays stale until its file is deleted externally.
type Cache struct {
	Dir string
}

func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

func (c *Cache) path(id PageID) string {
	return filepath.Join(c.Dir, id.Letter, id.FileName())
}

// Has reports whether the page is already cached.
func (c *Cache) Has(id PageID) bool {
	_, err := os.Stat(c.path(id))
	return err == nil
}

// Read returns the cached content for the page, or ErrNotFound.
func (c *Cache) Read(id PageID) (string, error) {
	b, err := os.ReadFile(c.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("read cached page %s: %w", id, err)
	}
	return string(b), nil
}

// Write persists the page content, creating the letter directory if needed.
// Concurrent writes to the same identity are harmless: both writers carry the
// same fetched content and the last one wins.
func (c *Cache) Write(id PageID, content string) error {
	dir := filepath.Join(c.Dir, id.Letter)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	if err := os.WriteFile(c.path(id), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write cached page %s: %w", id, err)
	}
	return nil
}

// List walks the cache directory and returns the identity of every cached
// page, in letter-then-number order. Files that do not match the cache naming
// scheme are skipped.
func (c *Cache) List() ([]PageID, error) {
	var ids []PageID
	err := filepath.WalkDir(c.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == c.Dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if id, ok := parseFileName(d.Name()); ok {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cached pages: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Letter != ids[j].Letter {
			return ids[i].Letter < ids[j].Letter
		}
		return ids[i].Number < ids[j].Number
	})
	return ids, nil
}

// parseFileName inverts FileName: "007_a.html" -> {a 7}.
func parseFileName(name string) (PageID, bool) {
	base, ok := strings.CutSuffix(name, ".html")
	if !ok {
		return PageID{}, false
	}
	num, letter, ok := strings.Cut(base, "_")
	if !ok || letter == "" {
		return PageID{}, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return PageID{}, false
	}
	return PageID{Letter: letter, Number: n}, true
}
