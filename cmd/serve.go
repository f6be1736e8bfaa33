package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/api"
	"github.com/klgeo/outlets-cli/internal/nlquery"
	"github.com/klgeo/outlets-cli/internal/store"
	"github.com/klgeo/outlets-cli/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the outlet directory API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pipeline, err := buildPipeline(st)
		if err != nil {
			return err
		}

		handler := api.NewHandler(st, pipeline)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler.Router(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildPipeline wires the oracle, schema and timeouts into the query
// pipeline shared by serve and ask.
func buildPipeline(querier store.RowQuerier) (*nlquery.Pipeline, error) {
	oracle := anthropic.NewClient(cfg.Anthropic.Key,
		anthropic.WithModel(cfg.Anthropic.Model),
		anthropic.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)),
	)

	schema := nlquery.DefaultSchema()
	if cfg.Query.SchemaFile != "" {
		loaded, err := nlquery.LoadSchema(cfg.Query.SchemaFile)
		if err != nil {
			return nil, err
		}
		schema = loaded
	}

	return nlquery.NewPipeline(oracle, querier, schema, nlquery.Config{
		TranslateTimeout: time.Duration(cfg.Query.TranslateTimeoutSecs) * time.Second,
		ExecuteTimeout:   time.Duration(cfg.Query.ExecuteTimeoutSecs) * time.Second,
		DisplayCap:       cfg.Query.DisplayCap,
	}), nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
