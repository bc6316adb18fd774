// Package paginate discovers how many result pages each letter has.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"etymondl/pkg/pagecache"
)

// ErrPageCount is returned when the pagination control does not carry a
// numeric final-page marker. This is deliberately fatal for the letter:
// defaulting to one page would silently truncate the corpus.
var ErrPageCount = errors.New("could not determine page count")

// Getter is the transport surface the resolver needs.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
	SearchURL(letter string, page int) string
}

// Resolver reads (or fetches and caches) the first page of a letter's results
// and extracts the total page count from its pagination markup.
type Resolver struct {
	Cache  *pagecache.Cache
	Client Getter
}

// Resolve returns the total page count for letter. The first page is served
// from the cache when present; on a miss it is fetched and written to the
// cache before parsing, so a parse failure still leaves the page on disk.
func (r *Resolver) Resolve(ctx context.Context, letter string) (int, error) {
	id := pagecache.NewPageID(letter, 1)

	var content string
	if r.Cache.Has(id) {
		var err error
		content, err = r.Cache.Read(id)
		if err != nil {
			return 0, err
		}
	} else {
		var err error
		content, err = r.Client.Get(ctx, r.Client.SearchURL(letter, 1))
		if err != nil {
			return 0, fmt.Errorf("resolve pagination for %q: %w", letter, err)
		}
		if err := r.Cache.Write(id, content); err != nil {
			return 0, err
		}
	}

	n, err := PageCount(content)
	if err != nil {
		return 0, fmt.Errorf("letter %q: %w", letter, err)
	}
	return n, nil
}

// PageCount extracts the final page number from a page's pagination control.
// The site renders the control as a list whose second-to-last item is the
// last page number; that shape is a narrow contract validated by tests, not
// an assumption to relax.
func PageCount(content string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("parse pagination markup: %w", err)
	}

	items := doc.Find("ul.ant-pagination li")
	if items.Length() < 2 {
		return 0, fmt.Errorf("%w: pagination control missing or too short", ErrPageCount)
	}

	text := strings.TrimSpace(items.Eq(items.Length() - 2).Text())
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: final page marker %q is not numeric", ErrPageCount, text)
	}
	return n, nil
}
