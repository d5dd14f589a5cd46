package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rs/zerolog"
)

const (
	defaultTextURLFormat = "https://www.rfc-editor.org/rfc/rfc%d.txt"
	defaultFeedURL       = "https://www.rfc-editor.org/rfcrss.xml"
)

// Fetcher downloads RFC documents into the corpus directory.
type Fetcher struct {
	logger *zerolog.Logger
	dir    string

	textURLFormat string
	feedURL       string
}

func NewFetcher(logger *zerolog.Logger, dir string) *Fetcher {
	return &Fetcher{
		logger:        logger,
		dir:           dir,
		textURLFormat: defaultTextURLFormat,
		feedURL:       defaultFeedURL,
	}
}

// Fetch downloads the text rendering of an RFC and stores it in the
// corpus directory as rfc<number>.txt. Returns the written path.
func (f *Fetcher) Fetch(ctx context.Context, number int) (string, error) {
	url := fmt.Sprintf(f.textURLFormat, number)

	text, err := lib.FetchTextFromURL(ctx, f.logger, url)
	if err != nil {
		return "", fmt.Errorf("fetch rfc %d: %w", number, err)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create corpus dir: %w", err)
	}

	path := filepath.Join(f.dir, fmt.Sprintf("rfc%d.txt", number))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write rfc %d: %w", number, err)
	}

	f.logger.Info().
		Int("rfc", number).
		Str("path", path).
		Msg("Fetched RFC document")

	return path, nil
}

// RecentRFC is one entry from the rfc-editor announcement feed.
type RecentRFC struct {
	Number    int
	Title     string
	Published time.Time
}

var rfcTitlePattern = regexp.MustCompile(`RFC\s+(\d+)`)

// Recent lists the most recently published RFCs from the rfc-editor feed.
func (f *Fetcher) Recent(ctx context.Context) ([]RecentRFC, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = "rfcpilot/1.0"

	feed, err := parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse rfc feed: %w", err)
	}

	recent := make([]RecentRFC, 0, len(feed.Items))
	for _, item := range feed.Items {
		match := rfcTitlePattern.FindStringSubmatch(item.Title)
		if match == nil {
			f.logger.Debug().
				Str("title", item.Title).
				Msg("Skipping feed item without RFC number")
			continue
		}

		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		entry := RecentRFC{
			Number: number,
			Title:  item.Title,
		}
		if item.PublishedParsed != nil {
			entry.Published = *item.PublishedParsed
		}

		recent = append(recent, entry)
	}

	return recent, nil
}
