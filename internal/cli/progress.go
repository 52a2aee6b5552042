package cli

import (
	"github.com/spf13/cobra"

	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/types"
)

func newProgressCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <puuid>",
		Short: "Recorded per-match history of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx, root)
			if err != nil {
				return err
			}
			defer engine.Stop()

			rec, err := engine.GetProgress(ctx, args[0])
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func newTrendCommand(root *rootOptions) *cobra.Command {
	var (
		category string
		window   int
	)
	cmd := &cobra.Command{
		Use:   "trend <puuid>",
		Short: "Compare a player's recent matches with the ones before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat types.Category
			if category != "" {
				c, err := types.ParseCategory(category)
				if err != nil {
					return err
				}
				cat = c
			}

			ctx := cmd.Context()
			engine, err := openEngine(ctx, root)
			if err != nil {
				return err
			}
			defer engine.Stop()

			if cat != "" {
				t, err := engine.Trend(ctx, args[0], cat, window)
				if err != nil {
					return err
				}
				printTrends(cmd.OutOrStdout(), t)
				return nil
			}
			overall, err := engine.Trend(ctx, args[0], "", window)
			if err != nil {
				return err
			}
			trends := []progress.Trend{overall}
			for _, c := range types.Categories {
				t, err := engine.Trend(ctx, args[0], c, window)
				if err != nil {
					return err
				}
				trends = append(trends, t)
			}
			printTrends(cmd.OutOrStdout(), trends...)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "restrict to one category (default: overall and every category)")
	cmd.Flags().IntVarP(&window, "window", "w", 0, "matches per side of the comparison (default: configured trend_window)")
	return cmd
}
