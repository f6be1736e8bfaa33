package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill coordinates for ungeocoded outlets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		providers := []geocode.Provider{
			geocode.NewNominatimProvider(
				geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
				geocode.WithCountryCode(cfg.Geocode.CountryCode),
			),
		}
		if cfg.Geocode.GoogleKey != "" {
			providers = append(providers, geocode.NewGoogleProvider(cfg.Geocode.GoogleKey))
			zap.L().Info("google geocoding fallback enabled")
		}

		backfiller := geocode.NewBackfiller(
			geocode.NewChain(providers...),
			st,
			cfg.Geocode.BatchSize,
			cfg.Geocode.Concurrency,
		)

		stats, err := backfiller.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("geocode backfill complete",
			zap.Int64("processed", stats.Processed),
			zap.Int64("matched", stats.Matched),
			zap.Int64("unmatched", stats.Unmatched),
			zap.Int64("failed", stats.Failed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
