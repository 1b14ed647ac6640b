// Package router resolves a dashboard task selection to a concrete
// (module, screen) target and dispatches it: in-process modules route
// through discovery, out-of-process modules get an invocation plus a
// freshly launched process.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hangarcore/pkg/discovery"
	"hangarcore/pkg/invocation"
	"hangarcore/pkg/launcher"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
)

// DefaultScreen is the screen every module is assumed to have.
const DefaultScreen = "dashboardscreen"

// Router dispatches resolved tasks.
type Router struct {
	Discovery *discovery.Discovery
	Bus       *invocation.Bus
	Launcher  *launcher.Launcher
	// ModuleMap resolves legacy application_name task fields to module ids.
	ModuleMap map[string]string
	// SelfModuleID marks the in-process module; tasks targeting it route
	// via the navigator instead of spawning.
	SelfModuleID string
	Navigator    discovery.Navigator
	TTL          time.Duration
}

// ResolveModule applies the module field precedence:
// target_module_id > module_id > application_name map.
func (r *Router) ResolveModule(task models.Task) (string, error) {
	if task.TargetModuleID != "" {
		return task.TargetModuleID, nil
	}
	if task.ModuleID != "" {
		return task.ModuleID, nil
	}
	if task.ApplicationName != "" {
		if id, ok := r.ModuleMap[task.ApplicationName]; ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("task %s resolves to no module", task.ID)
}

// ResolveScreen applies the screen field precedence:
// target_screen_id > screen > screen_id > default dashboard screen.
func (r *Router) ResolveScreen(task models.Task) string {
	for _, s := range []string{task.TargetScreenID, task.Screen, task.ScreenID} {
		if s != "" {
			return s
		}
	}
	return DefaultScreen
}

// Dispatch routes a task for the given user. In-process targets navigate
// directly; everything else gets an invocation record and a spawned
// module process. A failed spawn is surfaced but leaves the invocation in
// place so a manual start still consumes it.
func (r *Router) Dispatch(ctx context.Context, userID string, task models.Task) error {
	moduleID, err := r.ResolveModule(task)
	if err != nil {
		return err
	}
	screenID := r.ResolveScreen(task)

	if moduleID == r.SelfModuleID {
		return r.Discovery.NavigateToModuleScreen(ctx, r.Navigator, moduleID, screenID, task.Params)
	}

	moduleName := moduleNameFromID(moduleID)
	if err := r.Bus.Create(ctx, userID, moduleName, screenID, task.Params, r.TTL); err != nil {
		return fmt.Errorf("write invocation for %s: %w", moduleName, err)
	}
	if _, err := r.Launcher.Start(ctx, moduleName); err != nil {
		logger.Log.Error("task_module_spawn_failed",
			zap.String("module", moduleName),
			zap.String("screen", screenID),
			zap.Error(err))
		return fmt.Errorf("start module %s: %w", moduleName, err)
	}
	logger.Log.Info("task_dispatched",
		zap.String("user", userID),
		zap.String("module", moduleID),
		zap.String("screen", screenID))
	return nil
}

// moduleNameFromID strips the conventional "module_" prefix so invocation
// records and executables are keyed by the bare module name.
func moduleNameFromID(moduleID string) string {
	return strings.TrimPrefix(moduleID, "module_")
}
