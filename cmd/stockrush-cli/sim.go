package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/bot"
	"github.com/bloops-games/stockrush/internal/catalog"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/match"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport/memory"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type simOptions struct {
	players  int
	duration time.Duration
	think    time.Duration
	seed     uint32
}

func newSimCmd(cfg *config.Client) *cobra.Command {
	opts := simOptions{}
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Play a local match between bots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd.Context(), *cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.players, "players", 2, "number of bots")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Second, "match duration")
	cmd.Flags().DurationVar(&opts.think, "think", 250*time.Millisecond, "pause between bot moves")
	cmd.Flags().Uint32Var(&opts.seed, "seed", 0, "random seed, 0 picks one")

	return cmd
}

func runSim(ctx context.Context, cfg config.Client, opts simOptions) error {
	logger := logging.FromContext(ctx).Named("main.sim")

	game := cfg.Game
	game.Capacity = opts.players
	game.MatchDuration = opts.duration
	if err := game.Validate(); err != nil {
		return fmt.Errorf("validate game: %w", err)
	}

	cards, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		seed = rng.Fast().Uint32n(1<<31) + 1
	}
	src := rng.New(seed)

	registry := room.NewRegistry(game.Capacity, clock.Real{})
	broker := memory.NewBroker(registry, clock.Real{})
	roomID := room.GenerateID(src)

	printInfo(fmt.Sprintf("room %s, %d bots, seed %d", roomID, opts.players, seed))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type player struct {
		session *match.Session
		runner  *match.Runner
		bot     *bot.Bot
	}

	players := make([]player, 0, opts.players)
	for i := 0; i < opts.players; i++ {
		id := fmt.Sprintf("bot-%d", i+1)
		sopts := []match.Option{match.WithRand(rng.New(src.Uint32n(1<<31) + 1)), match.WithCatalog(cards)}
		if i == 0 {
			sopts = append(sopts, match.WithObserver(observe(id)))
		}

		s, err := match.New(ctx, match.Config{RoomID: roomID, ParticipantID: id, Name: id, Game: game}, broker.Connect(id), sopts...)
		if err != nil {
			return fmt.Errorf("new session %s: %w", id, err)
		}

		players = append(players, player{
			session: s,
			runner:  match.NewRunner(s, 0),
			bot:     bot.New(bot.DefaultConfig(), s, cards, rng.New(src.Uint32n(1<<31)+1)),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range players {
		p := p
		g.Go(func() error {
			return p.runner.Run(gctx)
		})
	}

	for i, p := range players {
		join := p.session.Join
		if i == 0 {
			join = p.session.Create
		}
		if err := p.runner.Do(ctx, join); err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("join %s: %w", p.session.ID(), err)
		}
	}

	var final match.View
	play := errgroup.Group{}
	for i, p := range players {
		i, p := i, p
		play.Go(func() error {
			ticker := time.NewTicker(opts.think)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				var v match.View
				err := p.runner.Do(ctx, func(ctx context.Context) error {
					if err := p.bot.Step(ctx); err != nil {
						return err
					}
					v = p.session.View()
					return nil
				})
				if errors.Is(err, match.ErrStopped) || errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("%s: %w", p.session.ID(), err)
				}

				if v.State == room.StateFinished {
					if i == 0 {
						final = v
					}
					return nil
				}
			}
		})
	}

	if err := play.Wait(); err != nil {
		logger.Errorf("bot failed: %v", err)
		cancel()
		_ = g.Wait()
		return err
	}

	cancel()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	if final.State != room.StateFinished {
		printWarn("match interrupted")
		return nil
	}

	renderScores(fmt.Sprintf("Final standings, room %s", final.RoomID), final.Scores)
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}

	cards, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cards, nil
}
