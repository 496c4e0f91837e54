// Package handler exposes the order API over HTTP.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// maxBodyBytes caps request bodies to keep a single oversized payload
// from holding a connection and its buffers.
const maxBodyBytes = 1 << 20

// Handler serves the order endpoints.
type Handler struct {
	orders OrderService
}

// New constructs a Handler around the order service.
func New(orders OrderService) *Handler {
	return &Handler{orders: orders}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
}

// writeJSON writes the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the error wire format: {"code": n, "message": s}.
func writeError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}
