package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/middleware"
)

// Options configures the middleware around the routes. Zero values turn
// the corresponding middleware off.
type Options struct {
	Validator        *apikey.Validator
	Limiter          *ratelimit.Limiter
	UploadsPerMinute int
	Metrics          *metrics.Metrics
	Health           *health.Checker
	RequestTimeout   time.Duration
	CORSOrigins      []string
	Tracing          bool
}

// NewRouter builds the HTTP handler.
//
// Route table:
//
//	POST   /api/v1/docs/file/{filename}   upload a raw file
//	POST   /api/v1/docs                   index a JSON text document
//	GET    /api/v1/docs                   list documents
//	GET    /api/v1/docs/{key}             document metadata
//	DELETE /api/v1/docs/{key}             remove a document
//	GET    /api/v1/docs/{key}/keywords    keyword counts
//	GET    /api/v1/docs/{key}/content     original file
//	GET    /api/v1/search?q=&limit=       keyword search
//	GET    /api/v1/spelling/{word}        spelling correction
//	GET    /health/live, /health/ready    liveness, readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → Trace → Auth → RateLimit → mux
func NewRouter(h *Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	mux.HandleFunc("POST /api/v1/docs/file/{filename}", h.UploadFile)
	mux.HandleFunc("POST /api/v1/docs", h.IndexText)
	mux.HandleFunc("GET /api/v1/docs", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/docs/{key}", h.GetDocument)
	mux.HandleFunc("DELETE /api/v1/docs/{key}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/docs/{key}/keywords", h.DocumentKeywords)
	mux.HandleFunc("GET /api/v1/docs/{key}/content", h.DocumentContent)

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/spelling/{word}", h.Spelling)

	var chain http.Handler = mux
	if opts.Limiter != nil {
		chain = RateLimit(opts.Limiter, opts.UploadsPerMinute)(chain)
	}
	if opts.Validator != nil {
		chain = Auth(opts.Validator)(chain)
	}
	chain = Trace(opts.Tracing)(chain)
	if opts.RequestTimeout > 0 {
		chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	}
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = CORS(DefaultCORSConfig(opts.CORSOrigins))(chain)
	chain = pkgmw.RequestID(chain)
	return chain
}
