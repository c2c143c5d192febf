// internal/api/handlers/results_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/storage/blob"
	"github.com/go-chi/chi/v5"
)

// ResultsHandler serves the stored result artifacts behind presigned URLs.
// The artifact stays gzip-encoded end to end; clients decode transparently
// via Content-Encoding or consume the bytes as given.
type ResultsHandler struct {
	store  ResultStore
	signer *URLSigner
	logger *slog.Logger
}

func NewResultsHandler(store ResultStore, signer *URLSigner, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{store: store, signer: signer, logger: logger}
}

func (h *ResultsHandler) Download(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	query := r.URL.Query()

	if !h.signer.Verify(taskID, query.Get("expires"), query.Get("sig"), time.Now()) {
		writeError(w, http.StatusForbidden, "invalid or expired signature")
		return
	}

	payload, _, found, err := h.store.GetRaw(blob.ResultsKey(taskID))
	if err != nil {
		h.logger.Error("failed to read result artifact", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "result store unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "results not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.Write(payload)
}
