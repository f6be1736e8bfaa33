package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/scrape"
)

var (
	scrapeBaseURL string
	scrapeCity    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the outlet listing into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		baseURL := cfg.Scrape.BaseURL
		if scrapeBaseURL != "" {
			baseURL = scrapeBaseURL
		}
		city := cfg.Scrape.CityFilter
		if cmd.Flags().Changed("city") {
			city = scrapeCity
		}

		fetcher := scrape.NewFetcher(scrape.WithRateLimit(cfg.Scrape.RatePerSecond))
		scraper := scrape.NewScraper(fetcher, st, baseURL,
			scrape.WithCityFilter(city),
			scrape.WithMaxPages(cfg.Scrape.MaxPages),
		)

		stats, err := scraper.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("scrape complete",
			zap.Int("pages", stats.Pages),
			zap.Int("cards", stats.Cards),
			zap.Int("inserted", stats.Inserted),
			zap.Int("skipped", stats.Skipped),
		)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeBaseURL, "url", "", "listing base URL (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeCity, "city", "", "city filter keyword (empty keeps all outlets)")
	rootCmd.AddCommand(scrapeCmd)
}
