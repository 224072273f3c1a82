package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/bloops-games/stockrush/internal/buildinfo"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/server"
	"github.com/bloops-games/stockrush/internal/shutdown"
	"github.com/bloops-games/stockrush/internal/transport/token"
	"github.com/bloops-games/stockrush/internal/transport/wsrelay"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

var version string

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		buildinfo.GreetingCLI,
		buildinfo.ProjectName,
		buildinfo.Version(version),
		buildinfo.GithubURL,
	)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.DefaultLogger().Fatalf("loading .env: %v", err)
	}

	cfg, err := config.ProcessServer()
	if err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(cfg.Debug, cfg.LogFile)
	ctx, done := shutdown.New()
	defer done()
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, cfg); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, cfg config.Server) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	issuer, err := token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token.NewIssuer: %w", err)
	}

	registry := room.NewRegistry(cfg.Game.Capacity, clock.Real{})
	relay := wsrelay.NewServer(ctx, registry, issuer, wsrelay.Options{MaxConnections: cfg.MaxConnections})

	srv, err := server.New(cfg.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	logger.Infof("relay listening on %s", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ServeHTTP(gctx, &http.Server{Handler: relay}); err != nil {
			return fmt.Errorf("srv.ServeHTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})

	go func() {
		if err := http.ListenAndServe(":"+cfg.ProfPort, nil); err != nil {
			logger.Errorf("pprof default server: %v", err)
		}
	}()

	return g.Wait()
}
