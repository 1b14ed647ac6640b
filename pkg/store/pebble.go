package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"

	"github.com/cockroachdb/pebble"
)

// Pebble is the embedded document store backend. Documents live under keys
// of the form doc:<collection>:<id> so a whole collection is one contiguous
// key range.
type Pebble struct {
	db   *pebble.DB
	path string
}

// OpenPebble opens (or creates) a pebble database at path.
func OpenPebble(path string) (*Pebble, error) {
	logger.Log.Info("opening_pebble_db", zap.String("path", path))
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Log.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	logger.Log.Info("pebble_opened", zap.String("path", path))
	return &Pebble{db: db, path: path}, nil
}

// Close closes the underlying database.
func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return err
	}
	p.db = nil
	logger.Log.Info("pebble_closed")
	return nil
}

func docKey(collection, id string) []byte {
	return []byte("doc:" + collection + ":" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte("doc:" + collection + ":")
}

// GetCollection returns every document in the collection in key order.
func (p *Pebble) GetCollection(ctx context.Context, name string) ([]Document, error) {
	if p.db == nil {
		return nil, fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	prefix := collectionPrefix(name)
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []Document
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var doc Document
		if err := json.Unmarshal(v, &doc); err != nil {
			logger.Log.Warn("collection_doc_invalid_json", zap.String("collection", name), zap.ByteString("key", iter.Key()), zap.Error(err))
			continue
		}
		out = append(out, doc)
	}
	return out, iter.Error()
}

// GetDocument returns the document or (nil, nil) when absent.
func (p *Pebble) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	if p.db == nil {
		return nil, fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	v, closer, err := p.db.Get(docKey(collection, id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}
	var doc Document
	if err := json.Unmarshal(v, &doc); err != nil {
		return nil, fmt.Errorf("invalid document JSON at %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// SetDataWithID upserts a document, forcing its "id" field to match the key.
func (p *Pebble) SetDataWithID(ctx context.Context, collection, id string, doc Document) error {
	if p.db == nil {
		return fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	if doc == nil {
		doc = Document{}
	}
	doc["id"] = id
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := p.db.Set(docKey(collection, id), data, pebble.Sync); err != nil {
		logger.Log.Error("save_document_failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return err
	}
	logger.Log.Debug("document_saved", zap.String("collection", collection), zap.String("id", id))
	return nil
}

// UpdateDocument merges patch into an existing document. Top-level fields
// only; "id" cannot be patched away.
func (p *Pebble) UpdateDocument(ctx context.Context, collection, id string, patch Document) (bool, error) {
	doc, err := p.GetDocument(ctx, collection, id)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	if err := p.SetDataWithID(ctx, collection, id, doc); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteDocument removes a document; returns false when it did not exist.
func (p *Pebble) DeleteDocument(ctx context.Context, collection, id string) (bool, error) {
	if p.db == nil {
		return false, fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	key := docKey(collection, id)
	_, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if closer != nil {
		closer.Close()
	}
	if err := p.db.Delete(key, pebble.Sync); err != nil {
		logger.Log.Error("delete_document_failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return false, err
	}
	logger.Log.Debug("document_deleted", zap.String("collection", collection), zap.String("id", id))
	return true, nil
}

// ListKeys returns all raw keys with the given prefix; empty prefix returns
// everything. Used by the offline inspection tool.
func (p *Pebble) ListKeys(prefix string) ([]string, error) {
	if p.db == nil {
		return nil, fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if len(pfx) > 0 && !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}

// GetRaw returns the raw value for a key. Inspection tool helper.
func (p *Pebble) GetRaw(key string) ([]byte, error) {
	if p.db == nil {
		return nil, fmt.Errorf("pebble not opened; call OpenPebble first")
	}
	v, closer, err := p.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}
	return append([]byte(nil), v...), nil
}
