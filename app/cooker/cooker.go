package cooker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/feeds"
	"github.com/lysyi3m/feed-cooker/app/feed"
	"github.com/lysyi3m/feed-cooker/app/recipe"
)

const DefaultDescription = "Auto generated by feedcooker with love."

// SourceFetcher returns the normalized entries of one source.
type SourceFetcher interface {
	Run(ctx context.Context, url string) ([]feed.Item, error)
}

var _ SourceFetcher = (*feed.Fetcher)(nil)

// Options holds the settings shared by every recipe cooked in a process.
type Options struct {
	Owner       string
	Repository  string
	Limit       int // per-source item limit
	Concurrency int // sources fetched at once, 1 when unset
	Fetcher     SourceFetcher
}

type Cooker struct {
	name        string
	metadata    feed.Metadata
	urls        []string
	limit       int
	concurrency int
	titleFilter *feed.TitleFilter // nil when the recipe has no filter
	fetcher     SourceFetcher
	now         func() time.Time
}

// Dishes are the result of one run: the same merged items in both output
// formats.
type Dishes struct {
	JSON  *feed.JSONFeed
	Atom  *feeds.AtomFeed
	Items []feed.Item
	Stats Stats
}

type Stats struct {
	Sources int
	Failed  int
	Items   int
}

type fetchResult struct {
	items []feed.Item
	err   error
}

func New(opts Options, r *recipe.Recipe) (*Cooker, error) {
	if r == nil {
		return nil, fmt.Errorf("recipe is required")
	}

	required := map[string]string{
		"recipe name": r.Name,
		"owner":       opts.Owner,
		"repository":  opts.Repository,
	}
	for fieldName, fieldValue := range required {
		if fieldValue == "" {
			return nil, fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(r.URLs) == 0 {
		return nil, fmt.Errorf("recipe %s has no source URLs", r.Name)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", opts.Limit)
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	c := &Cooker{
		name: r.Name,
		metadata: feed.Metadata{
			Title:       fmt.Sprintf("%s by %s", r.Name, opts.Repository),
			Description: cmp.Or(r.Description, DefaultDescription),
			HomePageURL: fmt.Sprintf("https://github.com/%s", opts.Repository),
			FeedURL:     fmt.Sprintf("https://github.com/%s/well-done/%s.json", opts.Repository, r.Name),
			AuthorName:  opts.Owner,
			AuthorLink:  fmt.Sprintf("https://github.com/%s", opts.Owner),
		},
		urls:        slices.Clone(r.URLs),
		limit:       opts.Limit,
		concurrency: max(opts.Concurrency, 1),
		fetcher:     opts.Fetcher,
		now:         time.Now,
	}

	if pattern := r.TitlePattern(); pattern != "" {
		titleFilter, err := feed.NewTitleFilter(pattern)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.Name, err)
		}
		c.titleFilter = titleFilter
	}

	slog.Debug("Cooker ready", "recipe", c.name, "sources", len(c.urls), "limit", c.limit, "filter", c.titleFilter.String())
	return c, nil
}

func (c *Cooker) Name() string {
	return c.name
}

func (c *Cooker) Metadata() feed.Metadata {
	return c.metadata
}

// Run fetches every source, keeps at most limit filtered items per source
// and merges them newest first. Failing sources are logged and skipped.
func (c *Cooker) Run(ctx context.Context) *Dishes {
	startedAt := c.now()
	results := c.fetchAll(ctx)

	stats := Stats{Sources: len(c.urls)}
	var items []feed.Item

	for i, result := range results {
		url := c.urls[i]

		if result.err != nil {
			stats.Failed++
			c.logFailure(url, result.err)
			continue
		}

		fetched := result.items
		if c.titleFilter != nil {
			fetched = c.titleFilter.Run(fetched)
		}
		if len(fetched) > c.limit {
			fetched = fetched[:c.limit]
		}

		slog.Info("Fetched entries", "recipe", c.name, "url", url, "total", len(result.items), "kept", len(fetched))
		items = append(items, fetched...)
	}

	slices.SortStableFunc(items, func(a, b feed.Item) int {
		return b.PubDate.Compare(a.PubDate)
	})

	stats.Items = len(items)
	slog.Info("Recipe cooked", "recipe", c.name, "sources", stats.Sources, "failed", stats.Failed, "items", stats.Items, "duration", time.Since(startedAt))

	return &Dishes{
		JSON:  feed.NewJSONFeed(c.metadata, items),
		Atom:  feed.NewAtomFeed(c.metadata, items, startedAt),
		Items: items,
		Stats: stats,
	}
}

// fetchAll runs the fetcher over all sources with a bounded worker pool.
// Results are indexed by source position so merge order stays the
// declared order.
func (c *Cooker) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(c.urls))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(c.concurrency, len(c.urls)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items, err := c.fetcher.Run(ctx, c.urls[i])
				results[i] = fetchResult{items: items, err: err}
			}
		}()
	}

	for i := range c.urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (c *Cooker) logFailure(url string, err error) {
	var fetchErr *feed.FetchError
	var parseErr *feed.ParseError

	switch {
	case errors.As(err, &fetchErr):
		slog.Error("Failed to fetch source", "recipe", c.name, "url", url, "status", fetchErr.StatusCode, "error", err)
	case errors.As(err, &parseErr):
		slog.Error("Failed to parse source", "recipe", c.name, "url", url, "kind", parseErr.Kind, "error", err)
	default:
		slog.Error("Unexpected source failure", "recipe", c.name, "url", url, "error", err)
	}
}
