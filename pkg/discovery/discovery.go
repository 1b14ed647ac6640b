// Package discovery aggregates module and screen catalogs across every
// known branch into one view, current branch first. It never writes; its
// output is a pure function of store contents.
package discovery

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hangarcore/pkg/branch"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
)

// Navigator is the in-process routing capability a GUI layer provides.
type Navigator interface {
	RouteTo(screenID string)
}

// ParamsDispatcher is optionally implemented by Navigators that accept
// task parameters alongside a route.
type ParamsDispatcher interface {
	DispatchParams(params map[string]any) error
}

// Discovery presents the aggregated cross-branch module view.
type Discovery struct {
	Agg    *Aggregator
	Branch branch.Identity
	// DedupeByID collapses cross-branch duplicates to the first (most
	// current-branch) entry per module id. Default keeps one entry per
	// (id, branch).
	DedupeByID bool

	mu          sync.RWMutex
	screenCache map[string]models.ScreenEntry
}

// orderedTokens returns (branch name, token) pairs, current branch first.
func (d *Discovery) orderedTokens() [][2]string {
	known := d.Branch.Known()
	out := make([][2]string, 0, len(known))
	for _, name := range known {
		out = append(out, [2]string{name, branch.Sanitize(name)})
	}
	return out
}

// GetInstalledModules returns the deduplicated module catalog across all
// known branches, current-branch entries first.
func (d *Discovery) GetInstalledModules(ctx context.Context) []models.ModuleEntry {
	var out []models.ModuleEntry
	seen := map[string]bool{}
	for _, bt := range d.orderedTokens() {
		name, token := bt[0], bt[1]
		docs := d.Agg.GetCollection(ctx, models.ModulesCollection(token))
		for _, doc := range docs {
			var entry models.ModuleEntry
			if err := store.Decode(doc, &entry); err != nil {
				logger.Log.Warn("module_doc_invalid", zap.String("branch", name), zap.Error(err))
				continue
			}
			entry.Branch = name
			key := entry.ID + "|" + name
			if d.DedupeByID {
				key = entry.ID
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, entry)
		}
	}
	return out
}

// GetModuleScreens returns a module's screens across known branches,
// current branch first, deduplicated by (screen id, branch).
func (d *Discovery) GetModuleScreens(ctx context.Context, moduleID string) []models.ScreenEntry {
	var out []models.ScreenEntry
	seen := map[string]bool{}
	for _, bt := range d.orderedTokens() {
		name, token := bt[0], bt[1]
		for _, doc := range d.Agg.ModuleScreens(ctx, moduleID, token) {
			var entry models.ScreenEntry
			if err := store.Decode(doc, &entry); err != nil {
				logger.Log.Warn("screen_doc_invalid", zap.String("module", moduleID), zap.Error(err))
				continue
			}
			entry.Branch = name
			key := entry.ID + "|" + name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, entry)
		}
	}
	return out
}

// GetScreenDetails resolves one screen. With branchName given only that
// branch is searched; otherwise the current branch first, then the rest.
// Hits are cached; the cache returns the stored snapshot.
func (d *Discovery) GetScreenDetails(ctx context.Context, moduleID, screenID, branchName string) (models.ScreenEntry, bool) {
	cacheKey := moduleID + "|" + screenID + "|" + branchName
	d.mu.RLock()
	if entry, ok := d.screenCache[cacheKey]; ok {
		d.mu.RUnlock()
		return entry, true
	}
	d.mu.RUnlock()

	tokens := d.orderedTokens()
	if branchName != "" {
		tokens = [][2]string{{branchName, branch.Sanitize(branchName)}}
	}
	for _, bt := range tokens {
		name, token := bt[0], bt[1]
		for _, doc := range d.Agg.ModuleScreens(ctx, moduleID, token) {
			if store.DocID(doc) != screenID {
				continue
			}
			var entry models.ScreenEntry
			if err := store.Decode(doc, &entry); err != nil {
				continue
			}
			entry.Branch = name
			d.mu.Lock()
			if d.screenCache == nil {
				d.screenCache = map[string]models.ScreenEntry{}
			}
			d.screenCache[cacheKey] = entry
			d.mu.Unlock()
			return entry, true
		}
	}
	return models.ScreenEntry{}, false
}

// NavigateToModuleScreen is the in-process fallback path: when the target
// module is resident, delegate routing to its navigator. Cross-process
// navigation goes through the invocation bus instead.
func (d *Discovery) NavigateToModuleScreen(ctx context.Context, nav Navigator, moduleID, screenID string, params map[string]any) error {
	if nav == nil {
		return fmt.Errorf("module %s has no in-process navigator", moduleID)
	}
	if _, ok := d.GetScreenDetails(ctx, moduleID, screenID, ""); !ok {
		return fmt.Errorf("screen %s not found in module %s", screenID, moduleID)
	}
	nav.RouteTo(screenID)
	if pd, ok := nav.(ParamsDispatcher); ok && len(params) > 0 {
		if err := pd.DispatchParams(params); err != nil {
			logger.Log.Error("dispatch_params_failed", zap.String("module", moduleID), zap.String("screen", screenID), zap.Error(err))
		}
	}
	logger.Log.Info("navigated_in_process", zap.String("module", moduleID), zap.String("screen", screenID))
	return nil
}
