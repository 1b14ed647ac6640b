package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document is a keyed JSON object. Every stored document carries its own
// "id" field; backends keep the field and the storage key in sync.
type Document = map[string]any

// Backend is the raw document store transport. Two implementations exist:
// an embedded pebble store (used by the daemon and by single-process
// deployments) and a remote HTTP client speaking to a hangarcored daemon.
//
// Backends fail loudly; the best-effort read semantics of the C1 contract
// (empty collection / nil document on unreachable backend) live in Adapter.
type Backend interface {
	GetCollection(ctx context.Context, name string) ([]Document, error)
	// GetDocument returns (nil, nil) when the document does not exist.
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	SetDataWithID(ctx context.Context, collection, id string, doc Document) error
	// UpdateDocument merges patch into an existing document. Returns false
	// when the document does not exist.
	UpdateDocument(ctx context.Context, collection, id string, patch Document) (bool, error)
	// DeleteDocument returns false when the document did not exist.
	DeleteDocument(ctx context.Context, collection, id string) (bool, error)
	Close() error
}

// DocID extracts the "id" field of a document, or "" if absent.
func DocID(doc Document) string {
	if doc == nil {
		return ""
	}
	if s, ok := doc["id"].(string); ok {
		return s
	}
	return ""
}

// Encode converts a typed entry (models.ModuleEntry etc.) into a Document
// via its JSON form.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills a typed entry from a Document via its JSON form.
func Decode(doc Document, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
