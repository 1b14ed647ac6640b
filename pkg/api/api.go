package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/store"
	"hangarcore/pkg/telemetry"
)

// Handlers serves the document store over HTTP. The daemon is the
// authoritative copy, so handlers talk to the backend directly and
// never go through the read cache.
type Handlers struct {
	Backend store.Backend
}

// Register mounts the collection and document routes on r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/v1/collections/{name}", h.getCollection).Methods(http.MethodGet)
	r.HandleFunc("/v1/collections/{name}", h.createDocument).Methods(http.MethodPost)
	r.HandleFunc("/v1/collections/{name}/docs/{id}", h.getDocument).Methods(http.MethodGet)
	r.HandleFunc("/v1/collections/{name}/docs/{id}", h.putDocument).Methods(http.MethodPut)
	r.HandleFunc("/v1/collections/{name}/docs/{id}", h.patchDocument).Methods(http.MethodPatch)
	r.HandleFunc("/v1/collections/{name}/docs/{id}", h.deleteDocument).Methods(http.MethodDelete)
}

func (h *Handlers) getCollection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	docs, err := h.Backend.GetCollection(r.Context(), name)
	if err != nil {
		logger.Error("get_collection_failed", zap.String("collection", name), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("get_collection", "error").Inc()
		JSONError(w, "failed to read collection", http.StatusInternalServerError)
		return
	}
	telemetry.StoreOps.WithLabelValues("get_collection", "ok").Inc()
	if docs == nil {
		docs = []store.Document{}
	}
	JSONWrite(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, id := vars["name"], vars["id"]
	doc, err := h.Backend.GetDocument(r.Context(), name, id)
	if err != nil {
		logger.Error("get_document_failed", zap.String("collection", name), zap.String("id", id), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("get_document", "error").Inc()
		JSONError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		JSONError(w, "document not found", http.StatusNotFound)
		return
	}
	telemetry.StoreOps.WithLabelValues("get_document", "ok").Inc()
	JSONWrite(w, http.StatusOK, doc)
}

func (h *Handlers) createDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	id := uuid.NewString()
	doc["id"] = id
	if err := h.Backend.SetDataWithID(r.Context(), name, id, doc); err != nil {
		logger.Error("create_document_failed", zap.String("collection", name), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("set_data", "error").Inc()
		JSONError(w, "failed to write document", http.StatusInternalServerError)
		return
	}
	telemetry.StoreOps.WithLabelValues("set_data", "ok").Inc()
	JSONWrite(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handlers) putDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, id := vars["name"], vars["id"]
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	doc["id"] = id
	if err := h.Backend.SetDataWithID(r.Context(), name, id, doc); err != nil {
		logger.Error("put_document_failed", zap.String("collection", name), zap.String("id", id), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("set_data", "error").Inc()
		JSONError(w, "failed to write document", http.StatusInternalServerError)
		return
	}
	telemetry.StoreOps.WithLabelValues("set_data", "ok").Inc()
	JSONWrite(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handlers) patchDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, id := vars["name"], vars["id"]
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	updated, err := h.Backend.UpdateDocument(r.Context(), name, id, doc)
	if err != nil {
		logger.Error("patch_document_failed", zap.String("collection", name), zap.String("id", id), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("update_document", "error").Inc()
		JSONError(w, "failed to update document", http.StatusInternalServerError)
		return
	}
	telemetry.StoreOps.WithLabelValues("update_document", "ok").Inc()
	JSONWrite(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, id := vars["name"], vars["id"]
	deleted, err := h.Backend.DeleteDocument(r.Context(), name, id)
	if err != nil {
		logger.Error("delete_document_failed", zap.String("collection", name), zap.String("id", id), zap.Error(err))
		telemetry.StoreOps.WithLabelValues("delete_document", "error").Inc()
		JSONError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	telemetry.StoreOps.WithLabelValues("delete_document", "ok").Inc()
	JSONWrite(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (store.Document, bool) {
	var doc store.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		JSONError(w, "invalid JSON body", http.StatusBadRequest)
		return nil, false
	}
	if doc == nil {
		doc = store.Document{}
	}
	return doc, true
}
