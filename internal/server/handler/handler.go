// Package handler serves the collector's HTTP endpoint.
//
// POST /submit accepts a record either as a JSON body or as multipart form
// data (a "data" field with the record plus one file part per photo).
// Photos go to the blob store first, then the row is inserted; a replay of
// the same record id overwrites the same objects and leaves the row as is.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/dmitrijs2005/fieldreport/internal/server/repositories/rows"
	"github.com/dmitrijs2005/fieldreport/internal/server/storage"
)

// DefaultMaxUploadBytes bounds a request body unless WithMaxUploadBytes says otherwise.
const DefaultMaxUploadBytes = 32 << 20

type RowStore interface {
	Insert(ctx context.Context, r *rows.Row) (bool, error)
}

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

type Handler struct {
	rows     RowStore
	blobs    BlobStore
	log      logging.Logger
	plain    bool
	maxBytes int64
	now      func() time.Time
}

type Option func(*Handler)

// WithPlainResponse makes successful submits answer "OK" as text/plain.
func WithPlainResponse(on bool) Option {
	return func(h *Handler) { h.plain = on }
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(r RowStore, b BlobStore, log logging.Logger, opts ...Option) *Handler {
	h := &Handler{
		rows:     r,
		blobs:    b,
		log:      log.With("module", "http_handler"),
		maxBytes: DefaultMaxUploadBytes,
		now:      time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes returns the collector mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submit", h.submit)
	mux.HandleFunc("HEAD /submit", h.ok)
	mux.HandleFunc("GET /healthz", h.ok)
	return mux
}

func (h *Handler) ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	sub, err := decodeRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, errUnsupportedMedia):
			status = http.StatusUnsupportedMediaType
		}
		h.log.Warn(ctx, "rejected submission", "error", err)
		h.writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	sub.ReceivedAt = h.now().UTC()

	keys := make([]string, 0, len(sub.Attachments))
	for i, a := range sub.Attachments {
		key := storage.ObjectKey(sub.ID, i, a.Name)
		if err := h.blobs.Put(ctx, key, a.MimeType, a.Data); err != nil {
			h.log.Error(ctx, "photo not stored", "id", sub.ID, "key", key, "error", err)
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		keys = append(keys, key)
	}

	inserted, err := h.rows.Insert(ctx, &rows.Row{
		ID:         sub.ID,
		ReceivedAt: sub.ReceivedAt,
		Category:   sub.Category,
		Fields:     sub.Fields,
		PhotoKeys:  keys,
	})
	if err != nil {
		h.log.Error(ctx, "row not stored", "id", sub.ID, "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}

	h.log.Info(ctx, "submission received", "id", sub.ID, "category", sub.Category, "photos", len(keys), "duplicate", !inserted)

	if h.plain {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": sub.ID, "duplicate": !inserted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ BlobStore = (*storage.S3Store)(nil)
var _ RowStore = (*rows.PostgresRepository)(nil)
