package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"hangarcore/pkg/config"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/state"
	"hangarcore/pkg/store"
)

// App encapsulates the store daemon components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	backend *store.Pebble

	srv  *http.Server
	fsrv *fasthttp.Server

	// exitCh carries operator shutdown requests from the admin endpoint.
	exitCh chan string
}

// New initializes resources that do not require a running context: the
// state tree and the pebble store. Call Run to start the HTTP server
// and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	dataDir := eff.Config.App.DataDir
	if err := state.EnsureStateDirs(dataDir); err != nil {
		return nil, fmt.Errorf("state dirs: %w", err)
	}

	dbPath := eff.DBPath
	if dbPath == "" {
		dbPath = state.StorePath(dataDir)
	}
	backend, err := store.OpenPebble(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dbPath, err)
	}

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		backend:   backend,
		exitCh:    make(chan string, 1),
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or a
// fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdownHTTP()
		return a.backend.Close()
	case reason := <-a.exitCh:
		logger.Info("operator_shutdown", zap.String("reason", reason))
		a.shutdownHTTP()
		return a.backend.Close()
	case err := <-errCh:
		_ = a.backend.Close()
		return err
	}
}
