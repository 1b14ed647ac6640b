package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/telemetry"
)

const (
	opGetCollection = "get_collection"
	opGetDocument   = "get_document"
)

// Adapter is the C1 document store adapter: a Backend plus a process-local
// snapshot cache keyed by (operation, collection[, id]).
//
// Reads are best-effort: an unreachable backend surfaces as an empty
// collection or a nil document, logged at warn, never as an error. Writes
// fail loudly. Cache entries are invalidated by any write touching their
// collection; there is no cross-process freshness guarantee.
type Adapter struct {
	backend Backend

	mu    sync.RWMutex
	cache map[string]any
}

// NewAdapter wraps a backend with the caching adapter.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend, cache: make(map[string]any)}
}

// Backend exposes the wrapped backend for callers that need raw error
// semantics (the daemon's HTTP handlers).
func (a *Adapter) Backend() Backend { return a.backend }

func cacheKey(op string, parts ...string) string {
	return op + "|" + strings.Join(parts, "|")
}

// keyCollection extracts the collection component of a cache key.
func keyCollection(key string) string {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// GetCollection returns all documents of a collection. Concurrent callers
// with a warm cache share one snapshot; treat the result as read-only.
func (a *Adapter) GetCollection(ctx context.Context, name string) []Document {
	key := cacheKey(opGetCollection, name)
	a.mu.RLock()
	if v, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		telemetry.CacheHits.Inc()
		return v.([]Document)
	}
	a.mu.RUnlock()
	telemetry.CacheMisses.Inc()

	docs, err := a.backend.GetCollection(ctx, name)
	if err != nil {
		telemetry.StoreOps.WithLabelValues(opGetCollection, "error").Inc()
		logger.Log.Warn("get_collection_failed", zap.String("collection", name), zap.Error(err))
		return []Document{}
	}
	telemetry.StoreOps.WithLabelValues(opGetCollection, "ok").Inc()
	if docs == nil {
		docs = []Document{}
	}
	a.mu.Lock()
	a.cache[key] = docs
	a.mu.Unlock()
	return docs
}

// GetDocument returns one document, or nil when absent or unreachable.
func (a *Adapter) GetDocument(ctx context.Context, collection, id string) Document {
	key := cacheKey(opGetDocument, collection, id)
	a.mu.RLock()
	if v, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		telemetry.CacheHits.Inc()
		return v.(Document)
	}
	a.mu.RUnlock()
	telemetry.CacheMisses.Inc()

	doc, err := a.backend.GetDocument(ctx, collection, id)
	if err != nil {
		telemetry.StoreOps.WithLabelValues(opGetDocument, "error").Inc()
		logger.Log.Warn("get_document_failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil
	}
	telemetry.StoreOps.WithLabelValues(opGetDocument, "ok").Inc()
	if doc == nil {
		return nil
	}
	a.mu.Lock()
	a.cache[key] = doc
	a.mu.Unlock()
	return doc
}

// SetData stores a document, generating an id when the document carries
// none, and returns the id used.
func (a *Adapter) SetData(ctx context.Context, collection string, doc Document) (string, error) {
	id := DocID(doc)
	if id == "" {
		id = uuid.NewString()
	}
	if err := a.SetDataWithID(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// SetDataWithID upserts a document under an explicit id.
func (a *Adapter) SetDataWithID(ctx context.Context, collection, id string, doc Document) error {
	if doc == nil {
		doc = Document{}
	}
	doc["id"] = id
	if err := a.backend.SetDataWithID(ctx, collection, id, doc); err != nil {
		telemetry.StoreOps.WithLabelValues("set_data", "error").Inc()
		return err
	}
	telemetry.StoreOps.WithLabelValues("set_data", "ok").Inc()
	a.invalidateCollection(collection)
	a.mu.Lock()
	a.cache[cacheKey(opGetDocument, collection, id)] = doc
	a.mu.Unlock()
	return nil
}

// UpdateDocument merges a patch into an existing document; false when the
// document does not exist.
func (a *Adapter) UpdateDocument(ctx context.Context, collection, id string, patch Document) (bool, error) {
	ok, err := a.backend.UpdateDocument(ctx, collection, id, patch)
	if err != nil {
		telemetry.StoreOps.WithLabelValues("update_document", "error").Inc()
		return false, err
	}
	telemetry.StoreOps.WithLabelValues("update_document", "ok").Inc()
	a.invalidateCollection(collection)
	return ok, nil
}

// DeleteDocument removes a document; false when it did not exist. A delete
// against an unreachable backend reports the error to the caller.
func (a *Adapter) DeleteDocument(ctx context.Context, collection, id string) (bool, error) {
	ok, err := a.backend.DeleteDocument(ctx, collection, id)
	if err != nil {
		telemetry.StoreOps.WithLabelValues("delete_document", "error").Inc()
		return false, err
	}
	telemetry.StoreOps.WithLabelValues("delete_document", "ok").Inc()
	a.invalidateCollection(collection)
	return ok, nil
}

// ClearCache drops cache entries whose collection name starts with prefix;
// an empty prefix drops everything.
func (a *Adapter) ClearCache(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prefix == "" {
		a.cache = make(map[string]any)
		return
	}
	for k := range a.cache {
		if strings.HasPrefix(keyCollection(k), prefix) {
			delete(a.cache, k)
		}
	}
}

func (a *Adapter) invalidateCollection(collection string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.cache {
		if keyCollection(k) == collection {
			delete(a.cache, k)
		}
	}
}

// Disconnect closes the underlying backend.
func (a *Adapter) Disconnect() error {
	a.ClearCache("")
	return a.backend.Close()
}
