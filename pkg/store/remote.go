package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Remote is a Backend speaking the hangarcored HTTP JSON API. Console hosts
// and spawned module processes use it to share one store.
type Remote struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemote builds a remote backend for the daemon at baseURL
// (e.g. "http://127.0.0.1:7421"). apiKey may be empty when the daemon runs
// with allow_unauth.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Remote) Close() error { return nil }

func (r *Remote) collectionURL(name string) string {
	return r.baseURL + "/v1/collections/" + url.PathEscape(name)
}

func (r *Remote) docURL(collection, id string) string {
	return r.collectionURL(collection) + "/docs/" + url.PathEscape(id)
}

func (r *Remote) do(ctx context.Context, method, u string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (r *Remote) GetCollection(ctx context.Context, name string) ([]Document, error) {
	status, data, err := r.do(ctx, http.MethodGet, r.collectionURL(name), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get collection %s: status %d", name, status)
	}
	var out struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return out.Documents, nil
}

func (r *Remote) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	status, data, err := r.do(ctx, http.MethodGet, r.docURL(collection, id), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get document %s/%s: status %d", collection, id, status)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (r *Remote) SetDataWithID(ctx context.Context, collection, id string, doc Document) error {
	status, data, err := r.do(ctx, http.MethodPut, r.docURL(collection, id), doc)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("set document %s/%s: status %d: %s", collection, id, status, strings.TrimSpace(string(data)))
	}
	return nil
}

func (r *Remote) UpdateDocument(ctx context.Context, collection, id string, patch Document) (bool, error) {
	status, data, err := r.do(ctx, http.MethodPatch, r.docURL(collection, id), patch)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("update document %s/%s: status %d", collection, id, status)
	}
	var out struct {
		Updated bool `json:"updated"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	return out.Updated, nil
}

func (r *Remote) DeleteDocument(ctx context.Context, collection, id string) (bool, error) {
	status, data, err := r.do(ctx, http.MethodDelete, r.docURL(collection, id), nil)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("delete document %s/%s: status %d", collection, id, status)
	}
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return out.Deleted, nil
}
