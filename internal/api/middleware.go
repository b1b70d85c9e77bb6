package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/tracing"
)

type contextKey string

const apiKeyInfoKey contextKey = "api_key_info"

func mutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Auth requires a valid API key on mutating requests. Keys are read from
// "Authorization: Bearer <key>" or X-API-Key. With no keys configured every
// request passes.
func Auth(validator *apikey.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validator.Enabled() || !mutating(r) {
				next.ServeHTTP(w, r)
				return
			}
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			info, err := validator.Validate(r.Context(), key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			ctx := context.WithValue(r.Context(), apiKeyInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo returns the validated key of the request, nil when none.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(apiKeyInfoKey).(*apikey.KeyInfo)
	return info
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-API-Key")
}

// RateLimit caps mutating requests at perMinute per API key, or per remote
// address when auth is off.
func RateLimit(limiter *ratelimit.Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r) {
				next.ServeHTTP(w, r)
				return
			}
			id := "addr:" + remoteHost(r)
			if info := GetKeyInfo(r.Context()); info != nil {
				id = "key:" + info.ID
			}
			if !limiter.Allow(id, perMinute) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		return addr[:i]
	}
	return addr
}

// CORSConfig controls Cross-Origin Resource Sharing behaviour.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows the given origins, or any origin when empty.
func DefaultCORSConfig(origins []string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		MaxAge:       86400,
	}
}

// CORS sets the CORS response headers and answers preflight requests.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed := false
			for _, o := range cfg.AllowOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if !allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Trace opens a root span per request and logs the span tree when the
// request ends.
func Trace(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, logger.RequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			span.Log(logger.FromContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
