package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bloops-games/stockrush/internal/cache"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/database"
	statDb "github.com/bloops-games/stockrush/internal/database/stat/database"
	"github.com/spf13/cobra"
)

func newStatsCmd(cfg *config.Client) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the recorded results of a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			return runStats(cmd.Context(), *cfg, id)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "participant id")

	return cmd
}

func runStats(ctx context.Context, cfg config.Client, id string) error {
	db, err := database.NewFromEnv(ctx, &cfg.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}

	defer db.Close(ctx)

	statCache, err := cache.NewLRU(cfg.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	agg, err := statDb.New(db, statCache).FetchProfileStat(id)
	if errors.Is(err, statDb.ErrNotFound) {
		printWarn(fmt.Sprintf("no results for %s", id))
		return nil
	}
	if err != nil {
		return err
	}

	accent.Printf("%s\n", id)
	neutral.Printf("matches %d, wins %d, best rank %d\n", agg.Count, agg.Wins, agg.BestRank)
	neutral.Printf("worth best %s, worst %s, average %s\n",
		formatCents(agg.BestWorth), formatCents(agg.WorstWorth), formatCents(agg.AvgWorth))
	return nil
}
