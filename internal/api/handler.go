// Package api exposes indexing, document browsing and search over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/indexing"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/search"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/blobstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Indexer is the write side. *indexing.Service implements it.
type Indexer interface {
	IndexUpload(ctx context.Context, up indexing.Upload) (*indexing.Receipt, error)
	IndexText(ctx context.Context, doc indexing.TextDocument) (*indexing.Receipt, error)
	Delete(ctx context.Context, key string) error
	Content(ctx context.Context, key string) (blobstore.Object, error)
}

// Catalog is the read side. *store.Store implements it.
type Catalog interface {
	ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, error)
	GetDocument(ctx context.Context, key string) (store.Document, error)
	DocumentKeywords(ctx context.Context, key string) ([]keywords.KeywordRecord, error)
}

// Searcher answers queries. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*search.Result, error)
	Spelling(word string) (search.Spelling, error)
}

type Handler struct {
	indexer       Indexer
	catalog       Catalog
	searcher      Searcher
	maxUploadSize int64
	logger        *slog.Logger
}

func NewHandler(indexer Indexer, catalog Catalog, searcher Searcher, maxUploadSize int64) *Handler {
	return &Handler{
		indexer:       indexer,
		catalog:       catalog,
		searcher:      searcher,
		maxUploadSize: maxUploadSize,
		logger:        slog.Default().With("component", "api-handler"),
	}
}

// UploadFile indexes the raw request body under the path's filename.
// Title and description come from query parameters.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
				"document exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "reading request body failed"))
		return
	}

	q := r.URL.Query()
	receipt, err := h.indexer.IndexUpload(r.Context(), indexing.Upload{
		Filename:    r.PathValue("filename"),
		Title:       q.Get("title"),
		Description: q.Get("description"),
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

// IndexText indexes a JSON text document.
func (h *Handler) IndexText(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+4096)
	}
	var doc indexing.TextDocument
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body"))
		return
	}
	receipt, err := h.indexer.IndexText(r.Context(), doc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.indexer.Delete(r.Context(), r.PathValue("key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := max(intParam(r, "offset", 0), 0)

	docs, err := h.catalog.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalog.GetDocument(r.Context(), r.PathValue("key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DocumentKeywords(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, err := h.catalog.GetDocument(r.Context(), key); err != nil {
		h.writeError(w, r, err)
		return
	}
	kws, err := h.catalog.DocumentKeywords(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if kws == nil {
		kws = []keywords.KeywordRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"storage_key": key,
		"keywords":    kws,
	})
}

// DocumentContent streams the original file back.
func (h *Handler) DocumentContent(w http.ResponseWriter, r *http.Request) {
	obj, err := h.indexer.Content(r.Context(), r.PathValue("key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	} else {
		contentType += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		h.logger.Error("failed to write content", "error", err)
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	res, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"), intParam(r, "limit", 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Spelling(w http.ResponseWriter, r *http.Request) {
	sp, err := h.searcher.Spelling(r.PathValue("word"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sp)
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Server-side failures are logged
// and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", status,
			"error", err,
		)
		message = http.StatusText(status)
	}
	var validation *indexing.ValidationError
	if errors.As(err, &validation) {
		h.writeJSON(w, status, map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
