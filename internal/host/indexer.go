package host

import (
	"hangarcore/pkg/branch"
	"hangarcore/pkg/config"
	"hangarcore/pkg/indexer"
	"hangarcore/pkg/store"
)

func newIndexer(adapter *store.Adapter, ident branch.Identity, cfg *config.Config) *indexer.Indexer {
	return &indexer.Indexer{
		Store:      adapter,
		Branch:     ident,
		SourceRoot: cfg.Indexer.SourceRoot,
		Glob:       cfg.Indexer.Glob,
		Pattern:    cfg.Indexer.Pattern,
		AppName:    cfg.App.Name,
		AppVersion: cfg.App.Version,
	}
}
