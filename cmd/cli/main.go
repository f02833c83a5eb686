package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/satriojati/storymap/internal/buildinfo"
	"github.com/satriojati/storymap/internal/client/cli"
	"github.com/satriojati/storymap/internal/client/config"
	"github.com/satriojati/storymap/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
