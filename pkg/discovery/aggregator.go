package discovery

import (
	"context"
	"strings"

	"hangarcore/pkg/branch"
	"hangarcore/pkg/config"
	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
)

// Aggregator is the explicit branch-filter wrapper around the store
// adapter. The source system patched the adapter at import time per
// branch; here the mode is plain construction-time state and nothing else
// in the process changes behavior.
//
// When a mode other than off is active, module catalogs from branches
// other than the current one are suppressed, and module screen lookups
// resolve the legacy per-branch schema against the newer branchless one in
// the configured preference order.
type Aggregator struct {
	Store  *store.Adapter
	Branch branch.Identity
	Mode   config.BranchlessMode
}

const modulesPrefix = "module_indexes_modules_"

// GetCollection reads a collection through the branch filter.
func (ag *Aggregator) GetCollection(ctx context.Context, name string) []store.Document {
	if ag.Mode != config.BranchlessOff && strings.HasPrefix(name, modulesPrefix) {
		token := strings.TrimPrefix(name, modulesPrefix)
		if token != ag.Branch.CurrentToken() {
			return []store.Document{}
		}
	}
	return ag.Store.GetCollection(ctx, name)
}

// ModuleScreens resolves a module's screen collection for one branch
// token, applying the legacy/branchless fallback. The first non-empty
// schema in preference order wins; both empty yields the empty slice.
func (ag *Aggregator) ModuleScreens(ctx context.Context, moduleID, token string) []store.Document {
	legacy := models.ModuleScreensCollection(moduleID, token)
	branchless := models.ModuleScreensBranchless(moduleID)

	var order []string
	switch ag.Mode {
	case config.BranchlessPreferNew:
		order = []string{branchless, legacy}
	case config.BranchlessPreferOld:
		order = []string{legacy, branchless}
	default:
		order = []string{legacy}
	}
	for _, coll := range order {
		if docs := ag.Store.GetCollection(ctx, coll); len(docs) > 0 {
			return docs
		}
	}
	return []store.Document{}
}
