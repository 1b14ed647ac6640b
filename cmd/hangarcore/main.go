package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"hangarcore/internal/host"
	"hangarcore/pkg/config"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
	"hangarcore/pkg/shutdown"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// consoleNavigator routes screen changes for a headless host: it logs
// them. A GUI frontend supplies its own implementation.
type consoleNavigator struct{}

func (consoleNavigator) RouteTo(screenID string) {
	logger.Info("navigate", zap.String("screen", screenID))
}

func (consoleNavigator) DispatchParams(params map[string]any) error {
	logger.Info("navigate_params", zap.Int("count", len(params)))
	return nil
}

func main() {
	moduleName := flag.String("module", "", "run as a spawned module process under this name")
	taskJSON := flag.String("task", "", "dispatch a task document (JSON) and exit")
	listModules := flag.Bool("modules", false, "print the aggregated module catalog and exit")
	listScreens := flag.String("screens", "", "print a module's screens across branches and exit")
	publishToken := flag.String("publish-session", "", "publish a session token for this device and exit")

	logger.Init()

	// ParseCommandFlags defines the shared -addr/-db/-config flags and
	// calls flag.Parse, picking up the flags declared above too.
	flags := config.ParseCommandFlags()
	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svcs, err := host.New(eff)
	if err != nil {
		shutdown.Abort("host_init_failed", err, eff.Config.App.DataDir, 0)
	}
	defer svcs.Close()
	svcs.Router.Navigator = consoleNavigator{}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := svcs.Start(ctx); err != nil {
		shutdown.Abort("host_start_failed", err, eff.Config.App.DataDir, 0)
	}

	switch {
	case *publishToken != "":
		if err := svcs.Session.PublishSession(*publishToken); err != nil {
			log.Fatalf("publish session: %v", err)
		}
		return

	case *listModules:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(svcs.Disc.GetInstalledModules(ctx))
		return

	case *listScreens != "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(svcs.Disc.GetModuleScreens(ctx, *listScreens))
		return

	case *taskJSON != "":
		var task models.Task
		if err := json.Unmarshal([]byte(*taskJSON), &task); err != nil {
			log.Fatalf("invalid task JSON: %v", err)
		}
		if err := svcs.Router.Dispatch(ctx, eff.Config.App.UserID, task); err != nil {
			log.Fatalf("dispatch: %v", err)
		}
		return

	case *moduleName != "":
		inv := svcs.ConsumePendingInvocation(ctx, *moduleName, consoleNavigator{})
		if inv != nil {
			fmt.Printf("consumed invocation: route=%s params=%d\n", inv.Route, len(inv.Params))
		}
	}

	if token, ok := svcs.ResumeSession(ctx); ok {
		logger.Info("session_resumed", zap.Int("token_len", len(token)))
	} else {
		logger.Info("login_required")
	}

	<-ctx.Done()
}
