package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/model"
)

// Inserter is the slice of the store the scraper writes through.
type Inserter interface {
	InsertOutlets(ctx context.Context, outlets []model.Outlet) (int, error)
}

// Stats summarizes one scrape run.
type Stats struct {
	Pages    int
	Cards    int
	Skipped  int
	Inserted int
}

// Scraper walks a paginated outlet listing and loads matching outlets
// into the store.
type Scraper struct {
	fetcher    *Fetcher
	store      Inserter
	baseURL    string
	cityFilter string
	maxPages   int
}

// ScraperOption configures the Scraper.
type ScraperOption func(*Scraper)

// WithCityFilter keeps only outlets whose address contains the keyword,
// case-insensitively. Empty keeps everything.
func WithCityFilter(city string) ScraperOption {
	return func(s *Scraper) { s.cityFilter = city }
}

// WithMaxPages bounds pagination as a runaway guard.
func WithMaxPages(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// NewScraper creates a Scraper over the listing at baseURL.
func NewScraper(fetcher *Fetcher, store Inserter, baseURL string, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		fetcher:  fetcher,
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxPages: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fetches pages until one comes back empty, normalizes each card
// and bulk-inserts the batch. Cards with unparseable hours are skipped
// and counted, not fatal; a card is an outside input, not an invariant.
func (s *Scraper) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	var batch []model.Outlet

	for page := 1; page <= s.maxPages; page++ {
		pageURL := fmt.Sprintf("%s?page=%d", s.baseURL, page)
		body, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return stats, eris.Wrapf(err, "scrape: fetch page %d", page)
		}

		cards, err := ParseListing(body)
		if err != nil {
			return stats, eris.Wrapf(err, "scrape: parse page %d", page)
		}
		if len(cards) == 0 {
			break
		}
		stats.Pages++
		stats.Cards += len(cards)

		for _, card := range cards {
			outlet, ok := s.normalize(card)
			if !ok {
				stats.Skipped++
				continue
			}
			batch = append(batch, outlet)
		}
	}

	if len(batch) == 0 {
		zap.L().Info("scrape: nothing to insert",
			zap.Int("pages", stats.Pages),
			zap.Int("skipped", stats.Skipped),
		)
		return stats, nil
	}

	n, err := s.store.InsertOutlets(ctx, batch)
	if err != nil {
		return stats, eris.Wrap(err, "scrape: insert outlets")
	}
	stats.Inserted = n

	zap.L().Info("scrape: run complete",
		zap.Int("pages", stats.Pages),
		zap.Int("cards", stats.Cards),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func (s *Scraper) normalize(card Card) (model.Outlet, bool) {
	if card.Name == "" || card.Address == "" {
		zap.L().Debug("scrape: card missing name or address", zap.String("name", card.Name))
		return model.Outlet{}, false
	}
	if s.cityFilter != "" &&
		!strings.Contains(strings.ToLower(card.Address), strings.ToLower(s.cityFilter)) {
		return model.Outlet{}, false
	}

	outlet := model.Outlet{
		Name:    card.Name,
		Address: card.Address,
	}
	if card.Hours != "" {
		hours, err := model.ParseHours(card.Hours)
		if err != nil {
			zap.L().Warn("scrape: unparseable hours, skipping card",
				zap.String("name", card.Name),
				zap.String("hours", card.Hours),
				zap.Error(err),
			)
			return model.Outlet{}, false
		}
		outlet.WorkDayStart = hours.WorkDayStart
		outlet.WorkDayEnd = hours.WorkDayEnd
		outlet.StartTime = hours.StartTime
		outlet.EndTime = hours.EndTime
	}
	return outlet, true
}
