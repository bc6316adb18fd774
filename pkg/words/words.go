// Package words parses cached search result pages into word entries.
package words

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// ErrEntryShape is returned when an entry block carries no name anchor.
// That never happens on well-formed pages, so it indicates the remote markup
// changed shape and the selectors need updating.
var ErrEntryShape = errors.New("entry block missing name anchor")

// Entry is one dictionary record. Two entries are the same record iff all
// three fields are equal; an empty POS means the entry carries no
// part-of-speech and is stored as NULL.
type Entry struct {
	Name    string
	Content string
	POS     string
}

var (
	reEscapes  = regexp.MustCompile(`\\x\S*`)
	reSpaces   = regexp.MustCompile(`[^\S\n]+`)
	reNewlines = regexp.MustCompile(`\n+`)
)

// Clean removes stray escape-sequence artifacts (a backslash, "x" and the
// following non-space run), collapses space runs to a single space and
// newline runs to a single newline.
func Clean(s string) string {
	s = reEscapes.ReplaceAllString(strings.TrimSpace(s), "")
	s = reSpaces.ReplaceAllString(s, " ")
	return reNewlines.ReplaceAllString(s, "\n")
}

// formatPOS normalizes a parenthesized part-of-speech token list:
// each comma-separated element is stripped to its alphanumeric runes and the
// elements are rejoined with ", ". "v., n.)" becomes "v, n".
func formatPOS(token string) string {
	parts := strings.Split(token, ",")
	for i, p := range parts {
		parts[i] = stripNonAlnum(p)
	}
	return strings.Join(parts, ", ")
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse extracts every word entry from one page of search results, in
// document order. Entries repeated within the page collapse to one.
//
// Parse is pure: identical content always yields an identical entry list.
func Parse(content string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	var (
		entries  []Entry
		seen     = map[Entry]struct{}{}
		shapeErr error
	)

	doc.Find(`div[class^="word"]`).EachWithBreak(func(i int, block *goquery.Selection) bool {
		nameSel := block.Find(`a[class^="word__name"]`)
		if nameSel.Length() == 0 {
			shapeErr = fmt.Errorf("%w (block %d)", ErrEntryShape, i)
			return false
		}
		name := nameSel.First().Text()

		pos := ""
		if strings.Contains(name, "(") {
			parts := strings.Split(name, "(")
			name = parts[0]
			pos = formatPOS(parts[1])
		}

		var paras []string
		block.Find("p").Each(func(_ int, p *goquery.Selection) {
			paras = append(paras, strings.ReplaceAll(p.Text(), "\n", ""))
		})

		e := Entry{
			Name:    Clean(name),
			Content: Clean(strings.Join(paras, "\n")),
			POS:     pos,
		}
		if _, dup := seen[e]; !dup {
			seen[e] = struct{}{}
			entries = append(entries, e)
		}
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	return entries, nil
}
