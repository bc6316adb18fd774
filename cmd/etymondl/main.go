package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"etymondl/pkg/fetch"
	"etymondl/pkg/logging"
	"etymondl/pkg/pagecache"
	"etymondl/pkg/pipeline"
	"etymondl/pkg/store"
)

func main() {
	dbFlag := flag.String("db", "words.db", "Path to the SQLite words database")
	cacheFlag := flag.String("cache", "pages", "Directory for cached search result pages")
	baseFlag := flag.String("base-url", fetch.DefaultBaseURL, "Dictionary site base URL")
	lettersFlag := flag.String("letters", "", "Comma-separated letters to download (default: a-z)")
	workersFlag := flag.Int("workers", 0, "Concurrent workers (default: number of CPUs)")
	jsonFlag := flag.Bool("json", false, "JSON log output instead of console")
	verboseFlag := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := logging.LevelInfo
	if *verboseFlag {
		level = logging.LevelDebug
	}
	logger := logging.Setup(logging.Config{Level: level, Pretty: !*jsonFlag})

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(*dbFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()
	fmt.Printf("Saving words to %s\n", *dbFlag)

	p := pipeline.New(pagecache.New(*cacheFlag), fetch.NewClient(*baseFlag), db)
	p.Logger = logger
	if *lettersFlag != "" {
		p.Letters = strings.Split(*lettersFlag, ",")
	}
	if *workersFlag > 0 {
		p.Workers = *workersFlag
	}
	p.OnProgress = func(stage string, done, total int) {
		if total == 0 {
			return
		}
		if done%25 == 0 || done == total {
			fmt.Printf("\r%s: %d/%d", stage, done, total)
			if done == total {
				fmt.Println()
			}
		}
	}

	sum, err := p.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}

	for letter, lerr := range sum.LetterFailures {
		logger.Warn().Err(lerr).Str("letter", letter).Msg("letter skipped")
	}
	for _, f := range sum.Failures {
		logger.Warn().Err(f.Err).Stringer("page", f.Page).Msg("task failed")
	}

	fmt.Printf("Fetched %d/%d pages, parsed %d, inserted %d new words (%d parsed entries, %d failures)\n",
		sum.PagesFetched, sum.TotalPages, sum.PagesParsed,
		sum.EntriesInserted, sum.EntriesSeen, len(sum.Failures)+len(sum.LetterFailures))
}
