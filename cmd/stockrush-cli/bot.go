package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/bot"
	"github.com/bloops-games/stockrush/internal/cache"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/database"
	sessionDb "github.com/bloops-games/stockrush/internal/database/session/database"
	statDb "github.com/bloops-games/stockrush/internal/database/stat/database"
	statModel "github.com/bloops-games/stockrush/internal/database/stat/model"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/match"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport/wsrelay"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type botOptions struct {
	roomID string
	create bool
	id     string
	name   string
	think  time.Duration
}

func newBotCmd(cfg *config.Client) *cobra.Command {
	opts := botOptions{}
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Join a room on a relay and play with a random strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.roomID, "room", "", "room id, generated when creating")
	cmd.Flags().BoolVar(&opts.create, "create", false, "create the room instead of joining it")
	cmd.Flags().StringVar(&opts.id, "id", "", "participant id, restored from the last session by default")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().DurationVar(&opts.think, "think", 300*time.Millisecond, "pause between moves")

	return cmd
}

func runBot(ctx context.Context, cfg config.Client, opts botOptions) error {
	logger := logging.FromContext(ctx).Named("main.bot")

	if opts.roomID == "" {
		if !opts.create {
			return fmt.Errorf("--room is required unless --create is set")
		}
		opts.roomID = room.GenerateID(rng.Fast())
	}

	roomID, err := room.NormalizeID(opts.roomID)
	if err != nil {
		return err
	}

	cards, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	db, err := database.NewFromEnv(ctx, &cfg.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}

	defer db.Close(ctx)

	store := sessionDb.New(db)
	id := opts.id
	if id == "" {
		prev, err := store.Fetch(roomID)
		switch {
		case err == nil:
			id = prev.ParticipantID
			if opts.name == "" {
				opts.name = prev.Name
			}
			logger.Infow("resuming session", "room", roomID, "participant", id)
		case errors.Is(err, sessionDb.ErrEntryNotFound):
			id = uuid.New().String()
		default:
			return fmt.Errorf("fetch session: %w", err)
		}
	}
	if opts.name == "" {
		opts.name = "bot-" + id[:min(len(id), 6)]
	}

	client, err := wsrelay.Dial(ctx, cfg.RelayURL, id)
	if err != nil {
		return fmt.Errorf("wsrelay.Dial: %w", err)
	}

	defer client.Close()

	s, err := match.New(ctx, match.Config{RoomID: roomID, ParticipantID: id, Name: opts.name, Game: cfg.Game}, client,
		match.WithCatalog(cards),
		match.WithResumeStore(store),
		match.WithObserver(observe(opts.name)),
	)
	if err != nil {
		return fmt.Errorf("match.New: %w", err)
	}

	runner := match.NewRunner(s, 0)
	player := bot.New(bot.DefaultConfig(), s, cards, rng.Fast())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	join := s.Join
	if opts.create {
		join = s.Create
	}
	if err := runner.Do(ctx, join); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	printSuccess(fmt.Sprintf("%s joined room %s", opts.name, roomID))

	final, err := play(ctx, runner, s, player, opts.think)

	cancel()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	if final.State == room.StateFinished {
		renderScores(fmt.Sprintf("Final standings, room %s", roomID), final.Scores)
		if err := recordResult(db, cfg.CacheSize, id, final); err != nil {
			logger.Warnf("record result: %v", err)
		}
	}
	return err
}

func recordResult(db *database.DB, cacheSize int, id string, v match.View) error {
	statCache, err := cache.NewLRU(cacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	for _, s := range v.Scores {
		if s.ID != id {
			continue
		}
		return statDb.New(db, statCache).Add(statModel.NewResult(id, v.RoomID, s.Worth, s.Rank, len(v.Scores), time.Now()))
	}
	return nil
}

func play(ctx context.Context, runner *match.Runner, s *match.Session, player *bot.Bot, think time.Duration) (match.View, error) {
	ticker := time.NewTicker(think)
	defer ticker.Stop()

	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	var v match.View
	for {
		select {
		case <-ctx.Done():
			return v, nil
		case <-runner.Done():
			return v, nil
		case <-report.C:
			renderView(v)
			continue
		case <-ticker.C:
		}

		err := runner.Do(ctx, func(ctx context.Context) error {
			if err := player.Step(ctx); err != nil {
				return err
			}
			v = s.View()
			return nil
		})
		if errors.Is(err, match.ErrStopped) || errors.Is(err, context.Canceled) {
			return v, nil
		}
		if err != nil {
			return v, err
		}

		if v.State == room.StateFinished {
			return v, nil
		}
	}
}
