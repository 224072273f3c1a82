package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bloops-games/stockrush/internal/buildinfo"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/shutdown"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
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

	cfg, err := config.ProcessClient()
	if err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	ctx, done := shutdown.New()
	defer done()
	ctx = logging.WithLogger(ctx, logging.NewLogger(cfg.Debug, cfg.LogFile))

	root := &cobra.Command{
		Use:          "stockrush-cli",
		Short:        "Stockrush match runner",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSimCmd(&cfg),
		newBotCmd(&cfg),
		newStatsCmd(&cfg),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		done()
		os.Exit(1)
	}
}
