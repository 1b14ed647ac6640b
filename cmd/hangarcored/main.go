package main

import (
	"context"
	"log"

	"hangarcore/internal/app"
	"hangarcore/pkg/config"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	logger.Init()

	flags := config.ParseCommandFlags()
	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("daemon_init_failed", err, eff.Config.App.DataDir, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("daemon_run_failed", err, eff.Config.App.DataDir, 0)
	}
}
