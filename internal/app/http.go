package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"hangarcore/pkg/api"
	"hangarcore/pkg/auth"
	"hangarcore/pkg/banner"
	"hangarcore/pkg/shutdown"
	"hangarcore/pkg/telemetry"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// setupHTTPHandlers mounts all routes on the provided router.
func (a *App) setupHTTPHandlers(r *mux.Router) {
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", a.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/admin/shutdown", a.shutdownHandler).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler())

	h := &api.Handlers{Backend: a.backend}
	h.Register(r)
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.backend == nil {
		api.JSONError(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	api.JSONWrite(w, http.StatusOK, map[string]any{"status": "ok", "version": ver})
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	api.JSONWrite(w, http.StatusOK, map[string]any{"status": "ok"})
}

// statsHandler exposes pebble store internals for operators.
func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	api.JSONWrite(w, http.StatusOK, a.backend.Metrics())
}

// shutdownHandler records an operator exit request under the data dir
// and triggers a graceful stop. The request file survives the process
// so operators can audit who asked for the restart.
func (a *App) shutdownHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "operator request"
	}
	reqPath, err := shutdown.RequestExitFile(a.eff.Config.App.DataDir, body.Reason)
	if err != nil {
		api.JSONError(w, "failed to record exit request", http.StatusInternalServerError)
		return
	}
	api.JSONWrite(w, http.StatusAccepted, map[string]any{"status": "shutting down", "request": reqPath})
	select {
	case a.exitCh <- body.Reason:
	default:
	}
}

// startHTTP builds the handler chain, starts the configured HTTP
// engine in a goroutine and returns a channel carrying any server
// error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	r := mux.NewRouter()
	a.setupHTTPHandlers(r)

	secCfg := auth.SecConfig{
		BackendKeys: map[string]struct{}{},
		AllowUnauth: a.eff.Config.Security.APIKeys.AllowUnauth,
		RPS:         a.eff.Config.Security.RateLimit.RPS,
		Burst:       a.eff.Config.Security.RateLimit.Burst,
	}
	for _, k := range a.eff.Config.Security.APIKeys.Backend {
		secCfg.BackendKeys[k] = struct{}{}
	}

	wrapped := auth.Middleware(secCfg)(r)
	wrapped = telemetry.Middleware(wrapped)

	errCh := make(chan error, 1)
	if a.eff.Config.Server.Engine == "fasthttp" {
		a.fsrv = &fasthttp.Server{Handler: fasthttpadaptor.NewFastHTTPHandler(wrapped)}
		go func() { errCh <- a.fsrv.ListenAndServe(a.eff.Addr) }()
		return errCh
	}
	a.srv = &http.Server{Addr: a.eff.Addr, Handler: wrapped}
	go func() { errCh <- a.srv.ListenAndServe() }()
	return errCh
}

func (a *App) shutdownHTTP() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if a.fsrv != nil {
		_ = a.fsrv.Shutdown()
	}
}
