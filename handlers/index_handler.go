package handlers

import (
	"net/http"
)

// IndexHandler serves the chat page
type IndexHandler struct {
	page []byte
}

// NewIndexHandler creates a new IndexHandler for page
func NewIndexHandler(page []byte) *IndexHandler {
	return &IndexHandler{page: page}
}

// HandleIndex handles GET /
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
