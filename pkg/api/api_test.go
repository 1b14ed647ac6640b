package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"hangarcore/pkg/store"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	p, err := store.OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPebble: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	r := mux.NewRouter()
	(&Handlers{Backend: p}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestDocumentLifecycle(t *testing.T) {
	srv := testServer(t)
	base := srv.URL + "/v1/collections/modules"

	resp, _ := doJSON(t, http.MethodPut, base+"/docs/m1", map[string]any{"name": "inventory"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status %d", resp.StatusCode)
	}

	resp, doc := doJSON(t, http.MethodGet, base+"/docs/m1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	if doc["id"] != "m1" || doc["name"] != "inventory" {
		t.Fatalf("doc = %v", doc)
	}

	resp, body := doJSON(t, http.MethodPatch, base+"/docs/m1", map[string]any{"version": "2.0"})
	if resp.StatusCode != http.StatusOK || body["updated"] != true {
		t.Fatalf("patch: status %d body %v", resp.StatusCode, body)
	}
	_, doc = doJSON(t, http.MethodGet, base+"/docs/m1", nil)
	if doc["version"] != "2.0" || doc["name"] != "inventory" {
		t.Fatalf("patch not merged: %v", doc)
	}

	resp, body = doJSON(t, http.MethodDelete, base+"/docs/m1", nil)
	if resp.StatusCode != http.StatusOK || body["deleted"] != true {
		t.Fatalf("delete: status %d body %v", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, http.MethodGet, base+"/docs/m1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", resp.StatusCode)
	}
}

func TestCollectionListing(t *testing.T) {
	srv := testServer(t)
	base := srv.URL + "/v1/collections/screens"

	resp, body := doJSON(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if docs, ok := body["documents"].([]any); !ok || len(docs) != 0 {
		t.Fatalf("empty collection body = %v", body)
	}

	doJSON(t, http.MethodPut, base+"/docs/s1", map[string]any{"name": "radar"})
	doJSON(t, http.MethodPut, base+"/docs/s2", map[string]any{"name": "map"})

	_, body = doJSON(t, http.MethodGet, base, nil)
	docs, _ := body["documents"].([]any)
	if len(docs) != 2 {
		t.Fatalf("documents = %v", body)
	}
}

func TestCreateGeneratesID(t *testing.T) {
	srv := testServer(t)
	base := srv.URL + "/v1/collections/notes"

	resp, body := doJSON(t, http.MethodPost, base, map[string]any{"text": "inspect gimbal"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", body)
	}
	resp, doc := doJSON(t, http.MethodGet, base+"/docs/"+id, nil)
	if resp.StatusCode != http.StatusOK || doc["text"] != "inspect gimbal" {
		t.Fatalf("created doc missing: %d %v", resp.StatusCode, doc)
	}
}

func TestInvalidJSONRejected(t *testing.T) {
	srv := testServer(t)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/collections/modules/docs/m1", bytes.NewBufferString("{nope"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
