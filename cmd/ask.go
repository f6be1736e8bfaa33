package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a natural-language question about the outlets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ask"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pipeline, err := buildPipeline(st)
		if err != nil {
			return err
		}

		question := strings.Join(args, " ")
		outcome := pipeline.Ask(ctx, question)
		if outcome.Failed() {
			zap.L().Debug("ask: request did not answer",
				zap.String("outcome", string(outcome.Kind)),
				zap.String("detail", outcome.Detail),
			)
		}

		fmt.Fprintln(cmd.OutOrStdout(), outcome.Answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
